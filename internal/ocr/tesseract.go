package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
	imgtools "github.com/ironsheep/imagemap-mcp/internal/imaging"
)

// minTextHeight is the crop height below which a region is upscaled before
// recognition. Tesseract does poorly on glyphs under ~20px.
const minTextHeight = 48

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the recognized image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing/newlines.
	FullText string `json:"full_text"`

	// Words contains individual words with their bounding boxes.
	// May be empty if bounding box extraction fails.
	Words []TextRegion `json:"words"`
}

// NameSuggestion is the text found inside one region.
type NameSuggestion struct {
	// Index is the position of the region in the document.
	Index int `json:"index"`

	// Name is the recognized text with whitespace collapsed to single
	// spaces. Empty when nothing legible was found.
	Name string `json:"name"`

	// Confidence is the mean word confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the region in source pixels.
	Bounds Bounds `json:"bounds"`
}

// NamesResult contains a suggestion per region that lies on the image.
type NamesResult struct {
	Suggestions []NameSuggestion `json:"suggestions"`
	Count       int              `json:"count"`
}

// Reader wraps one Tesseract client. It is not safe for concurrent use.
type Reader struct {
	client *gosseract.Client
}

// NewReader creates a Reader for the given Tesseract language code
// (e.g. "eng"). The language data must be installed on the system.
func NewReader(language string) (*Reader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	// Player names sit on a single line.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &Reader{client: client}, nil
}

// Close releases the Tesseract client.
func (r *Reader) Close() error {
	return r.client.Close()
}

// ReadText performs OCR on an in-memory image.
//
// If word-level bounding box extraction fails, the full text is still
// returned with an empty Words slice.
func (r *Reader) ReadText(img image.Image) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := r.client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Words: []TextRegion{}}, nil
	}

	words := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &OCRResult{FullText: text, Words: words}, nil
}

// SuggestNames reads the text inside each region and proposes it as the
// region's name.
//
// Parameters:
//   - img: Source image the regions were drawn on.
//   - regions: Regions in percentage coordinates.
//   - language: Tesseract language code (e.g., "eng").
//
// Regions that do not overlap the image are skipped. Suggestions carry the
// region's index so callers can apply them with an update.
//
// # Implementation Details
//
// Each region is cropped, converted to greyscale and, when shorter than
// minTextHeight, upscaled with Lanczos resampling before recognition.
func SuggestNames(img image.Image, regions []imagemap.Region, language string) (*NamesResult, error) {
	reader, err := NewReader(language)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	suggestions := make([]NameSuggestion, 0, len(regions))
	for i, region := range regions {
		rect := imgtools.PixelBounds(img, region)
		if rect.Empty() {
			continue
		}

		result, err := reader.ReadText(prepare(img, rect))
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}

		suggestions = append(suggestions, NameSuggestion{
			Index:      i,
			Name:       collapseSpaces(result.FullText),
			Confidence: meanConfidence(result.Words),
			Bounds: Bounds{
				X1: rect.Min.X,
				Y1: rect.Min.Y,
				X2: rect.Max.X,
				Y2: rect.Max.Y,
			},
		})
	}

	return &NamesResult{Suggestions: suggestions, Count: len(suggestions)}, nil
}

// prepare crops rect, converts it to greyscale and upscales short crops.
func prepare(img image.Image, rect image.Rectangle) image.Image {
	crop := imaging.Grayscale(imaging.Crop(img, rect))
	if h := crop.Bounds().Dy(); h < minTextHeight {
		return imaging.Resize(crop, 0, minTextHeight, imaging.Lanczos)
	}
	return crop
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func meanConfidence(words []TextRegion) float64 {
	if len(words) == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
