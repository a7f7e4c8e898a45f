package imagemap

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	OpenTag  = "[imagemap]"
	CloseTag = "[/imagemap]"

	// PlaceholderLink and PlaceholderName stand in for empty fields on export
	// so the output still renders.
	PlaceholderLink = "https://example.com"
	PlaceholderName = "Sample text"

	// MinLines is the open tag, the image URL, one region and the close tag.
	MinLines = 4
)

// lineChar matches any character that may appear inside one line. It excludes
// the line terminators a browser regexp refuses to match with '.', so text
// with "\r\n" endings is rejected rather than silently accepted.
const lineChar = `[^\n\r\x{2028}\x{2029}]`

var (
	urlPattern        = regexp.MustCompile(`(?i)^(https?://)\S` + lineChar + `*$`)
	regionLinePattern = regexp.MustCompile(
		`^(\d+(\.\d+)?)\s(\d+(\.\d+)?)\s(\d+(\.\d+)?)\s(\d+(\.\d+)?)\s(https?://\S+)\s` + lineChar + `*$`)
	linkPattern = regexp.MustCompile(`^https?://\S+$`)
)

var (
	ErrTooShort   = errors.New("too few lines")
	ErrOpenTag    = errors.New("first line must be " + OpenTag)
	ErrImageURL   = errors.New("second line must be an http(s) image URL")
	ErrCloseTag   = errors.New("last line must be " + CloseTag)
	ErrRegionLine = errors.New("region line must be <x> <y> <width> <height> <link> <name>")

	ErrNotFinite = errors.New("coordinates must be finite numbers")
	ErrNegative  = errors.New("coordinates must not be negative")
	ErrLink      = errors.New("link must be an http(s) URL without spaces")
	ErrName      = errors.New("name must fit on one line")
)

// ValidationError reports why markup was rejected. Line is 0-based; it is -1
// when the failure is not tied to one line.
type ValidationError struct {
	Line   int
	Reason error
}

func (e *ValidationError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("invalid imagemap: %v", e.Reason)
	}
	return fmt.Sprintf("invalid imagemap: line %d: %v", e.Line+1, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Encode renders regions and imageURL as markup. With usePlaceholders, an
// empty link or name is replaced by PlaceholderLink or PlaceholderName;
// without it the empty value is written as is, leaving an empty token.
func Encode(regions []Region, imageURL string, usePlaceholders bool) string {
	lines := make([]string, 0, len(regions)+3)
	lines = append(lines, OpenTag, imageURL)

	for _, r := range regions {
		link, name := r.Link, r.Name
		if usePlaceholders {
			if link == "" {
				link = PlaceholderLink
			}
			if name == "" {
				name = PlaceholderName
			}
		}
		lines = append(lines, strings.Join([]string{
			FormatForDisplay(r.X),
			FormatForDisplay(r.Y),
			FormatForDisplay(r.Width),
			FormatForDisplay(r.Height),
			link,
			name,
		}, " "))
	}

	lines = append(lines, CloseTag)
	return strings.Join(lines, "\n")
}

// Validate checks text against the markup grammar and returns a
// *ValidationError for the first problem found.
func Validate(text string) error {
	lines := strings.Split(text, "\n")

	if len(lines) < MinLines {
		return &ValidationError{Line: -1, Reason: fmt.Errorf("%w: got %d, need at least %d", ErrTooShort, len(lines), MinLines)}
	}
	if lines[0] != OpenTag {
		return &ValidationError{Line: 0, Reason: ErrOpenTag}
	}
	if !urlPattern.MatchString(lines[1]) {
		return &ValidationError{Line: 1, Reason: ErrImageURL}
	}
	last := len(lines) - 1
	if lines[last] != CloseTag {
		return &ValidationError{Line: last, Reason: ErrCloseTag}
	}
	for i := 2; i < last; i++ {
		if !regionLinePattern.MatchString(lines[i]) {
			return &ValidationError{Line: i, Reason: ErrRegionLine}
		}
	}
	return nil
}

// IsURL reports whether s is acceptable as the image URL line.
func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// ValidateRegion reports whether r can be written as a region line that
// Validate accepts. Empty links and names pass: Encode replaces them with
// placeholders.
func ValidateRegion(r Region) error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if !IsFinite(v) {
			return ErrNotFinite
		}
		if v < 0 {
			return fmt.Errorf("%w: %g", ErrNegative, v)
		}
	}
	if r.Link != "" && !linkPattern.MatchString(r.Link) {
		return fmt.Errorf("%w: %q", ErrLink, r.Link)
	}
	if strings.ContainsAny(r.Name, "\n\r\u2028\u2029") {
		return fmt.Errorf("%w: %q", ErrName, r.Name)
	}
	return nil
}

// IsValid reports whether text is well-formed markup.
func IsValid(text string) bool {
	return Validate(text) == nil
}

// Decode reads markup into a Document. text must already have passed
// Validate: malformed input is not rejected and yields whatever structure
// falls out (NaN coordinates, empty links or names).
func Decode(text string) Document {
	lines := strings.Split(text, "\n")
	doc := Document{Regions: []Region{}}
	if len(lines) > 1 {
		doc.ImageURL = lines[1]
	}

	for i := 2; i < len(lines)-1; i++ {
		doc.Regions = append(doc.Regions, decodeLine(lines[i]))
	}
	return doc
}

// Parse validates and decodes text in one call. On failure it returns the
// *ValidationError and an empty Document.
func Parse(text string) (Document, error) {
	if err := Validate(text); err != nil {
		return Document{}, err
	}
	return Decode(text), nil
}

// decodeLine splits on single spaces: four numbers, the link, and everything
// after as the name.
func decodeLine(line string) Region {
	args := strings.Split(line, " ")

	var r Region
	r.X = parseNumber(args, 0)
	r.Y = parseNumber(args, 1)
	r.Width = parseNumber(args, 2)
	r.Height = parseNumber(args, 3)
	if len(args) > 4 {
		r.Link = args[4]
	}
	if len(args) > 5 {
		r.Name = strings.Join(args[5:], " ")
	}
	return r
}

func parseNumber(args []string, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	// out-of-range tokens keep ParseFloat's ±Inf or 0
	return v
}
