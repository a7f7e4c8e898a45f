package imagemap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPercentage(t *testing.T) {
	assert.Equal(t, 50.0, ToPercentage(50, 100))
	assert.Equal(t, 25.0, ToPercentage(200, 800))
	assert.InDelta(t, 33.333333, ToPercentage(1, 3), 1e-6)
}

func TestToPercentage_NonPositiveTotal(t *testing.T) {
	assert.True(t, math.IsNaN(ToPercentage(0, 0)))
	assert.False(t, IsFinite(ToPercentage(10, 0)))
	assert.False(t, IsFinite(ToPercentage(math.NaN(), 100)))
}

func TestToPixels(t *testing.T) {
	assert.Equal(t, 50.0, ToPixels(50, 100))
	assert.Equal(t, 200.0, ToPixels(25, 800))
}

func TestPixelPercentageRoundTrip(t *testing.T) {
	sizes := []float64{1, 3, 7.5, 100, 333, 1920, 4096.25}
	for _, s := range sizes {
		for _, frac := range []float64{0, 0.1, 0.25, 1.0 / 3, 0.5, 0.99, 1} {
			p := s * frac
			got := ToPixels(ToPercentage(p, s), s)
			assert.InDelta(t, p, got, 1e-9, "size=%v pixel=%v", s, p)
		}
	}
}

func TestFormatForDisplay(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{33.333333, "33.3333"},
		{10, "10"},
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{12.5, "12.5"},
		{0.00004, "0"},
		{0.00005, "0.0001"},
		{66.666666, "66.6667"},
		{100, "100"},
		{1234567.125, "1234567.125"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForDisplay(tt.in))
		})
	}
}

func TestSizeValid(t *testing.T) {
	assert.True(t, Size{Width: 10, Height: 5}.Valid())
	assert.False(t, Size{Width: 0, Height: 5}.Valid())
	assert.False(t, Size{Width: 10, Height: -1}.Valid())
	assert.False(t, Size{Width: math.Inf(1), Height: 5}.Valid())
	assert.False(t, Size{}.Valid())
}

func TestRectFromCorners(t *testing.T) {
	want := PixelRect{X: 10, Y: 20, Width: 30, Height: 40}

	assert.Equal(t, want, RectFromCorners(10, 20, 40, 60))
	assert.Equal(t, want, RectFromCorners(40, 60, 10, 20))
	assert.Equal(t, want, RectFromCorners(40, 20, 10, 60))
}

func TestClampPoint(t *testing.T) {
	size := Size{Width: 200, Height: 100}

	x, y := ClampPoint(-5, 50, size)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 50.0, y)

	x, y = ClampPoint(250, 150, size)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 100.0, y)
}

func TestClampMove(t *testing.T) {
	size := Size{Width: 200, Height: 100}

	tests := []struct {
		name string
		in   PixelRect
		want PixelRect
	}{
		{"inside", PixelRect{10, 10, 50, 20}, PixelRect{10, 10, 50, 20}},
		{"past left", PixelRect{-10, 10, 50, 20}, PixelRect{0, 10, 50, 20}},
		{"past right", PixelRect{180, 10, 50, 20}, PixelRect{150, 10, 50, 20}},
		{"past bottom", PixelRect{10, 95, 50, 20}, PixelRect{10, 80, 50, 20}},
		{"past top", PixelRect{10, -3, 50, 20}, PixelRect{10, 0, 50, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampMove(tt.in, size))
		})
	}
}
