package imagemap

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIndexOutOfRange is returned when a region index does not exist.
	ErrIndexOutOfRange = errors.New("region index out of range")

	// ErrInvalidSize is returned when converting from pixels against a size
	// that is not positive and finite.
	ErrInvalidSize = errors.New("image size must be positive")
)

// Region is a clickable rectangle over the image, stored as percentages of
// the image width (X, Width) and height (Y, Height).
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Link is the destination URL. Empty is allowed while editing.
	Link string `json:"link"`

	// Name is the hover text. Empty falls back to the region's position.
	Name string `json:"name"`
}

// SetPixels replaces the rectangle of r with rect, converted to percentages
// of size. Link and Name are kept. It fails without touching r if size is not
// valid.
func (r *Region) SetPixels(rect PixelRect, size Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSize, size.Width, size.Height)
	}
	r.X = ToPercentage(rect.X, size.Width)
	r.Y = ToPercentage(rect.Y, size.Height)
	r.Width = ToPercentage(rect.Width, size.Width)
	r.Height = ToPercentage(rect.Height, size.Height)
	return nil
}

// Pixels returns the rectangle of r in the pixel frame of size.
func (r Region) Pixels(size Size) PixelRect {
	return PixelRect{
		X:      ToPixels(r.X, size.Width),
		Y:      ToPixels(r.Y, size.Height),
		Width:  ToPixels(r.Width, size.Width),
		Height: ToPixels(r.Height, size.Height),
	}
}

// RegionFromPixels builds a region with an empty link and name from a pixel
// rectangle.
func RegionFromPixels(rect PixelRect, size Size) (Region, error) {
	var r Region
	if err := r.SetPixels(rect, size); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Document is the editing state: one image and its ordered regions. A
// region's position in Regions is its identity; its display index is
// position+1.
type Document struct {
	ImageURL string   `json:"image_url"`
	Regions  []Region `json:"regions"`
}

// NewDocument returns an empty document for imageURL.
func NewDocument(imageURL string) Document {
	return Document{ImageURL: imageURL, Regions: []Region{}}
}

// SetImage switches the document to a new image. Existing regions are
// dropped since they were drawn against the old one.
func (d *Document) SetImage(imageURL string) {
	d.ImageURL = imageURL
	d.Regions = []Region{}
}

// Append adds r after the last region and returns its index.
func (d *Document) Append(r Region) int {
	d.Regions = append(d.Regions, r)
	return len(d.Regions) - 1
}

// Region returns the region at index.
func (d Document) Region(index int) (Region, error) {
	if err := d.checkIndex(index); err != nil {
		return Region{}, err
	}
	return d.Regions[index], nil
}

// Update replaces the region at index.
func (d *Document) Update(index int, r Region) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Regions[index] = r
	return nil
}

// Remove deletes the region at index; later regions move down by one.
func (d *Document) Remove(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Regions = append(d.Regions[:index:index], d.Regions[index+1:]...)
	return nil
}

// Label returns the text shown for the region at index: its name, or its
// 1-based position when the name is empty.
func (d Document) Label(index int) string {
	if index >= 0 && index < len(d.Regions) && d.Regions[index].Name != "" {
		return d.Regions[index].Name
	}
	return strconv.Itoa(index + 1)
}

// Clone returns a deep copy so callers can hand the document out without
// sharing the region slice.
func (d Document) Clone() Document {
	regions := make([]Region, len(d.Regions))
	copy(regions, d.Regions)
	return Document{ImageURL: d.ImageURL, Regions: regions}
}

// Markup encodes the document with placeholders for empty links and names,
// the form shown to users and persisted between sessions.
func (d Document) Markup() string {
	return Encode(d.Regions, d.ImageURL, true)
}

func (d Document) checkIndex(index int) error {
	if index < 0 || index >= len(d.Regions) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(d.Regions))
	}
	return nil
}
