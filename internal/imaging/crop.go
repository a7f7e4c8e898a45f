package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Bounds is the pixel rectangle that was cut out of the source image.
	Bounds Bounds `json:"bounds"`
}

// Bounds is a pixel rectangle: (X1, Y1) inclusive, (X2, Y2) exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// PixelBounds converts a percentage region to whole source pixels of img,
// rounding outward and clipping to the image. The result may be empty when
// the region lies entirely outside the image.
func PixelBounds(img image.Image, r imagemap.Region) image.Rectangle {
	b := img.Bounds()
	px := r.Pixels(SizeOf(img))

	rect := image.Rect(
		b.Min.X+int(math.Floor(px.X)),
		b.Min.Y+int(math.Floor(px.Y)),
		b.Min.X+int(math.Ceil(px.X+px.Width)),
		b.Min.Y+int(math.Ceil(px.Y+px.Height)),
	)
	return rect.Intersect(b)
}

// CropRegion extracts the pixels under a percentage region, optionally scaled.
func CropRegion(img image.Image, r imagemap.Region, scale float64) (*CropResult, error) {
	rect := PixelBounds(img, r)
	if rect.Empty() {
		return nil, fmt.Errorf("region (%s,%s %sx%s) does not cover any pixels",
			imagemap.FormatForDisplay(r.X), imagemap.FormatForDisplay(r.Y),
			imagemap.FormatForDisplay(r.Width), imagemap.FormatForDisplay(r.Height))
	}

	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g shrinks region to nothing", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	data, err := encodePNG(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: data,
		MimeType:    "image/png",
		Bounds:      boundsOf(rect),
	}, nil
}

// encodePNG returns img as base64-encoded PNG.
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
