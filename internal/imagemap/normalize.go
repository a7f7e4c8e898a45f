package imagemap

import (
	"math"
	"strconv"
)

// displayScale is 10^4, the number of fractional digits kept in markup.
const displayScale = 10000

// ToPercentage converts a pixel quantity to a percentage of total.
//
// total must be positive. A zero or negative total yields NaN or ±Inf, which
// the caller must not persist; check with IsFinite.
func ToPercentage(size, total float64) float64 {
	return size / total * 100
}

// ToPixels converts a percentage of total back to pixels. It is the inverse
// of ToPercentage up to floating-point rounding.
func ToPixels(percentage, total float64) float64 {
	return total / 100 * percentage
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatForDisplay rounds n to four decimal places (half away from zero) and
// renders it as the shortest decimal string: 33.333333 -> "33.3333",
// 10 -> "10". It is only used when writing markup; stored values keep full
// precision.
func FormatForDisplay(n float64) string {
	v := math.Round(n*displayScale) / displayScale
	if v == 0 {
		// normalizes -0
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Size is the rendered size of an image in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite, i.e. whether
// conversions against this size produce storable values.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && IsFinite(s.Width) && IsFinite(s.Height)
}

// PixelRect is a rectangle in the pixel frame of a rendered image.
type PixelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners returns the rectangle spanned by a drag from (ax, ay) to
// (bx, by), in whichever direction the drag went.
func RectFromCorners(ax, ay, bx, by float64) PixelRect {
	return PixelRect{
		X:      math.Min(ax, bx),
		Y:      math.Min(ay, by),
		Width:  math.Abs(bx - ax),
		Height: math.Abs(by - ay),
	}
}

// ClampPoint keeps a pointer position inside [0, Width] x [0, Height].
func ClampPoint(x, y float64, size Size) (float64, float64) {
	return clamp(x, 0, size.Width), clamp(y, 0, size.Height)
}

// ClampMove keeps a moved rectangle fully inside the image. The extents are
// left untouched; only the position is adjusted.
func ClampMove(rect PixelRect, size Size) PixelRect {
	rect.X = math.Min(math.Max(rect.X, 0), size.Width-rect.Width)
	rect.Y = math.Min(math.Max(rect.Y, 0), size.Height-rect.Height)
	return rect
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
