package detection

import (
	"image"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
)

const (
	// edgeThreshold is the grey level above which an edge-filtered pixel
	// counts as an edge.
	edgeThreshold = 128

	// maxCoverage drops candidates spanning (almost) the whole image, which
	// is the image border rather than a clickable area.
	maxCoverage = 0.95

	// minContourPixels ignores specks left by noise.
	minContourPixels = 10
)

// Candidate is a suggested link area.
type Candidate struct {
	// Region is the suggestion in the percentage frame, ready to append to a
	// document. Link and Name are empty.
	Region imagemap.Region `json:"region"`

	// Bounds is the detected rectangle in source pixels.
	Bounds Bounds `json:"bounds"`

	// Confidence is the fraction of the bounding box outline that lies on
	// detected edges (0.0 to 1.0). Outlined or filled boxes score near 1.
	Confidence float64 `json:"confidence"`
}

// SuggestionsResult contains the suggested link areas.
type SuggestionsResult struct {
	// Candidates are sorted in reading order: top to bottom, then left to
	// right, so appending them gives sensible display indices.
	Candidates []Candidate `json:"candidates"`
	Count      int         `json:"count"`
}

// SuggestRegions finds boxed areas in an image, such as avatar frames or
// name plates on a team banner, and returns them as candidate link areas.
//
// Parameters:
//   - img: Source image.
//   - minAreaPercent: Smallest candidate as a percentage of the image area.
//   - tolerance: Minimum Confidence (0.0 to 1.0). Typical: 0.8.
//
// # Algorithm
//
//  1. Edge detection: bild's Laplacian edge filter on a greyscale copy,
//     then a fixed threshold to a binary edge mask
//  2. Contour finding: flood-fill groups 8-connected edge pixels
//  3. Bounding box of each contour
//  4. Filtering: drop boxes below minAreaPercent, near full-image boxes, and
//     boxes whose outline is not mostly edge pixels (not rectangular)
//  5. Nested duplicates within two pixels of each other collapse into one
func SuggestRegions(img image.Image, minAreaPercent, tolerance float64) (*SuggestionsResult, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	size := imagemap.Size{Width: float64(width), Height: float64(height)}

	edges := edgeMask(img)
	contours := findContours(edges, width, height)

	imageArea := float64(width * height)
	candidates := make([]Candidate, 0)

	for _, contour := range contours {
		box := boundingBox(contour, width, height)
		area := float64(box.Dx() * box.Dy())
		if area == 0 || area/imageArea*100 < minAreaPercent {
			continue
		}
		if area/imageArea > maxCoverage {
			continue
		}

		confidence := outlineCoverage(edges, box)
		if confidence < tolerance {
			continue
		}

		region, err := imagemap.RegionFromPixels(imagemap.PixelRect{
			X:      float64(box.Min.X),
			Y:      float64(box.Min.Y),
			Width:  float64(box.Dx()),
			Height: float64(box.Dy()),
		}, size)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, Candidate{
			Region: region,
			Bounds: Bounds{
				X1: box.Min.X + bounds.Min.X,
				Y1: box.Min.Y + bounds.Min.Y,
				X2: box.Max.X + bounds.Min.X,
				Y2: box.Max.Y + bounds.Min.Y,
			},
			Confidence: confidence,
		})
	}

	candidates = dedupe(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Bounds, candidates[j].Bounds
		if a.Y1 != b.Y1 {
			return a.Y1 < b.Y1
		}
		return a.X1 < b.X1
	})

	return &SuggestionsResult{Candidates: candidates, Count: len(candidates)}, nil
}

// edgeMask returns edges[y][x] in image-relative coordinates.
func edgeMask(img image.Image) [][]bool {
	filtered := effect.EdgeDetection(effect.Grayscale(img), 1.0)
	mask := segment.Threshold(filtered, edgeThreshold)

	b := mask.Bounds()
	edges := make([][]bool, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		edges[y] = make([]bool, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			edges[y][x] = mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
		}
	}
	return edges
}

// boundingBox returns the half-open box around a contour.
func boundingBox(contour []Point, width, height int) image.Rectangle {
	minX, minY := width, height
	maxX, maxY := -1, -1
	for _, p := range contour {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// outlineCoverage is the fraction of the box's border pixels that are edges,
// allowing one pixel of slack inward for anti-aliased or doubled outlines.
func outlineCoverage(edges [][]bool, box image.Rectangle) float64 {
	hit := func(x, y, dx, dy int) bool {
		return edges[y][x] || edges[y+dy][x+dx]
	}

	total, covered := 0, 0
	x0, y0, x1, y1 := box.Min.X, box.Min.Y, box.Max.X-1, box.Max.Y-1
	if x1-x0 < 2 || y1-y0 < 2 {
		return 0
	}

	for x := x0; x <= x1; x++ {
		total += 2
		if hit(x, y0, 0, 1) {
			covered++
		}
		if hit(x, y1, 0, -1) {
			covered++
		}
	}
	for y := y0 + 1; y < y1; y++ {
		total += 2
		if hit(x0, y, 1, 0) {
			covered++
		}
		if hit(x1, y, -1, 0) {
			covered++
		}
	}
	return float64(covered) / float64(total)
}

// dedupe drops candidates whose box is within two pixels of an already
// kept, higher-confidence one. Anti-aliased outlines produce such pairs.
func dedupe(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		duplicate := false
		for _, k := range kept {
			if near(c.Bounds, k.Bounds, 2) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

func near(a, b Bounds, slack int) bool {
	return abs(a.X1-b.X1) <= slack && abs(a.Y1-b.Y1) <= slack &&
		abs(a.X2-b.X2) <= slack && abs(a.Y2-b.Y2) <= slack
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
