package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
)

const (
	fillAlpha    = 80
	outlineWidth = 2
	labelPadding = 2
)

// PreviewResult contains the image with region overlay
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Scale is the preview width divided by the source width.
	Scale float64 `json:"scale"`

	// Regions are the drawn rectangles in preview pixels, in document order.
	Regions []PreviewRegion `json:"regions"`
}

// PreviewRegion is one drawn region.
type PreviewRegion struct {
	Label  string `json:"label"`
	Color  string `json:"color"`
	Bounds Bounds `json:"bounds"`
}

// RegionColor returns the overlay colour for the region at index. Hues are
// spread by the golden angle so neighbouring regions never look alike.
func RegionColor(index int) colorful.Color {
	hue := math.Mod(float64(index)*137.508, 360)
	return colorful.Hcl(hue, 0.6, 0.65).Clamped()
}

// RenderPreview draws doc's regions over img, scaled down to at most
// maxWidth pixels wide (0 keeps the source size). Each region gets a
// translucent fill, a solid outline, and its label in the top-left corner.
func RenderPreview(img image.Image, doc imagemap.Document, maxWidth int) (*image.RGBA, []PreviewRegion) {
	base := imaging.Clone(img)
	if maxWidth > 0 && base.Bounds().Dx() > maxWidth {
		base = imaging.Resize(base, maxWidth, 0, imaging.Lanczos)
	}

	bounds := base.Bounds()
	size := SizeOf(base)
	overlay := image.NewRGBA(bounds)
	drawn := make([]PreviewRegion, 0, len(doc.Regions))

	for i, r := range doc.Regions {
		c := RegionColor(i)
		r8, g8, b8 := c.RGB255()
		solid := color.RGBA{R: r8, G: g8, B: b8, A: 255}
		fill := color.NRGBA{R: r8, G: g8, B: b8, A: fillAlpha}

		px := r.Pixels(size)
		rect := image.Rect(
			int(math.Round(px.X)),
			int(math.Round(px.Y)),
			int(math.Round(px.X+px.Width)),
			int(math.Round(px.Y+px.Height)),
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}

		draw.Draw(overlay, rect, image.NewUniform(fill), image.Point{}, draw.Over)
		drawOutline(overlay, rect, solid)

		label := doc.Label(i)
		drawLabel(overlay, rect.Min.X+outlineWidth, rect.Min.Y+outlineWidth, label, color.RGBA{255, 255, 255, 255}, solid)

		drawn = append(drawn, PreviewRegion{Label: label, Color: c.Hex(), Bounds: boundsOf(rect)})
	}

	return blend.Normal(base, overlay), drawn
}

// Preview renders the region overlay and returns it as base64 PNG.
func Preview(img image.Image, doc imagemap.Document, maxWidth int) (*PreviewResult, error) {
	out, drawn := RenderPreview(img, doc, maxWidth)

	data, err := encodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: data,
		MimeType:    "image/png",
		Scale:       float64(out.Bounds().Dx()) / float64(img.Bounds().Dx()),
		Regions:     drawn,
	}, nil
}

func drawOutline(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	w := outlineWidth
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+w),
		image.Rect(rect.Min.X, rect.Max.Y-w, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y),
		image.Rect(rect.Max.X-w, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(rect), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

// drawLabel draws text on a solid background box whose top-left is (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	box := image.Rect(x, y, x+width+2*labelPadding, y+height+2*labelPadding).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x+labelPadding, y+labelPadding+metrics.Ascent.Ceil())
	d.DrawString(text)
}
