package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
	"github.com/ironsheep/imagemap-mcp/internal/notify"
	"github.com/ironsheep/imagemap-mcp/internal/store"
)

// Store keys.
const (
	// KeyMarkup holds the document as exported, placeholders included.
	KeyMarkup = "last-markup"

	// KeyImageURL holds the image URL on its own, so a document without
	// regions (which is not valid markup) survives a restart.
	KeyImageURL = "last-image-url"

	// KeyImagePath holds the local copy of the image used for sizes.
	KeyImagePath = "last-image-path"
)

var (
	// ErrNoImage is returned by pixel-frame operations when no local image
	// has been attached to the document.
	ErrNoImage = errors.New("no local image attached; pass image_path to document_new")

	// ErrNotFinite is returned when a coordinate is NaN or infinite.
	ErrNotFinite = imagemap.ErrNotFinite

	// ErrInvalidURL is returned by NewImage for an image URL the markup
	// cannot carry.
	ErrInvalidURL = errors.New("image URL must start with http:// or https://")
)

// SizeProvider reports the pixel size of a local image.
type SizeProvider interface {
	Size(path string) (imagemap.Size, error)
}

// Options configures a Session. Store, Notifier and Sizes are required.
type Options struct {
	Store    store.Store
	Notifier notify.Notifier
	Sizes    SizeProvider
	Logger   zerolog.Logger
}

// Session owns the document being edited and is its only writer. Every
// mutation is persisted to the store; a failed save is logged and does not
// fail the mutation.
type Session struct {
	mu        sync.Mutex
	doc       imagemap.Document
	imagePath string

	store    store.Store
	notifier notify.Notifier
	sizes    SizeProvider
	log      zerolog.Logger
}

// New returns a session with an empty document. Call Restore to pick up the
// previous session's state.
func New(opts Options) *Session {
	return &Session{
		doc:      imagemap.NewDocument(""),
		store:    opts.Store,
		notifier: opts.Notifier,
		sizes:    opts.Sizes,
		log:      opts.Logger.With().Str("component", "session").Logger(),
	}
}

// Restore loads the last persisted document. Stored markup that no longer
// validates is reported and ignored.
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, _, err := s.store.Get(KeyImageURL)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", KeyImageURL, err)
	}
	path, _, err := s.store.Get(KeyImagePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", KeyImagePath, err)
	}
	markup, ok, err := s.store.Get(KeyMarkup)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", KeyMarkup, err)
	}

	s.doc = imagemap.NewDocument(url)
	s.imagePath = path

	if ok {
		doc, err := imagemap.Parse(markup)
		if err != nil {
			s.log.Warn().Err(err).Msg("discarding stored markup")
			s.notifier.Error("Saved imagemap could not be restored: " + err.Error())
		} else {
			if doc.ImageURL != url {
				s.imagePath = ""
			}
			s.doc = doc
		}
	}

	s.log.Info().
		Str("image_url", s.doc.ImageURL).
		Int("regions", len(s.doc.Regions)).
		Msg("session restored")
	return nil
}

// Document returns a copy of the current document.
func (s *Session) Document() imagemap.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// ImagePath returns the local image attached to the document, if any.
func (s *Session) ImagePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imagePath
}

// Markup encodes the current document.
func (s *Session) Markup(usePlaceholders bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imagemap.Encode(s.doc.Regions, s.doc.ImageURL, usePlaceholders)
}

// Size returns the pixel size of the attached local image.
func (s *Session) Size() (imagemap.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size()
}

func (s *Session) size() (imagemap.Size, error) {
	if s.imagePath == "" {
		return imagemap.Size{}, ErrNoImage
	}
	size, err := s.sizes.Size(s.imagePath)
	if err != nil {
		return imagemap.Size{}, fmt.Errorf("failed to read image size: %w", err)
	}
	if !size.Valid() {
		return imagemap.Size{}, fmt.Errorf("%w: %s", imagemap.ErrInvalidSize, s.imagePath)
	}
	return size, nil
}

// NewImage starts over with a new image. All regions are dropped. imagePath
// is an optional local copy of the image, used for pixel conversions,
// previews and detection. Both are checked before anything changes; a bad
// URL is also reported through the notifier.
func (s *Session) NewImage(imageURL, imagePath string) error {
	if !imagemap.IsURL(imageURL) {
		s.notifier.Error("Invalid URL. Please check then try again.")
		return fmt.Errorf("%w: %q", ErrInvalidURL, imageURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if imagePath != "" {
		if _, err := s.sizes.Size(imagePath); err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}
	}

	s.doc.SetImage(imageURL)
	s.imagePath = imagePath
	s.persist()

	s.log.Info().Str("image_url", imageURL).Str("image_path", imagePath).Msg("new image")
	return nil
}

// AddRegion appends a region given in percentages and returns its index.
// Regions that could not be exported as markup are rejected.
func (s *Session) AddRegion(r imagemap.Region) (int, error) {
	if err := imagemap.ValidateRegion(r); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.doc.Append(r)
	s.persist()
	return index, nil
}

// AddPixelRegion appends the region dragged out from (ax, ay) to (bx, by) on
// the attached image. Both corners are clamped inside the image.
func (s *Session) AddPixelRegion(ax, ay, bx, by float64, link, name string) (int, imagemap.Region, error) {
	if err := checkFinite(ax, ay, bx, by); err != nil {
		return 0, imagemap.Region{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	size, err := s.size()
	if err != nil {
		return 0, imagemap.Region{}, err
	}

	ax, ay = imagemap.ClampPoint(ax, ay, size)
	bx, by = imagemap.ClampPoint(bx, by, size)

	r, err := imagemap.RegionFromPixels(imagemap.RectFromCorners(ax, ay, bx, by), size)
	if err != nil {
		return 0, imagemap.Region{}, err
	}
	r.Link = link
	r.Name = name
	if err := imagemap.ValidateRegion(r); err != nil {
		return 0, imagemap.Region{}, err
	}

	index := s.doc.Append(r)
	s.persist()
	return index, r, nil
}

// RegionPatch lists the fields to change in UpdateRegion. Nil fields are
// left as they are.
type RegionPatch struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Link   *string  `json:"link,omitempty"`
	Name   *string  `json:"name,omitempty"`
}

// Apply returns r with the patch applied.
func (p RegionPatch) Apply(r imagemap.Region) imagemap.Region {
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.Link != nil {
		r.Link = *p.Link
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	return r
}

// UpdateRegion changes the fields set in patch on the region at index.
func (s *Session) UpdateRegion(index int, patch RegionPatch) (imagemap.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.doc.Region(index)
	if err != nil {
		return imagemap.Region{}, err
	}

	r := patch.Apply(current)
	if err := imagemap.ValidateRegion(r); err != nil {
		return imagemap.Region{}, err
	}
	if err := s.doc.Update(index, r); err != nil {
		return imagemap.Region{}, err
	}
	s.persist()
	return r, nil
}

// MoveRegion moves the region at index so its top-left corner is at (x, y)
// pixels on the attached image, keeping it fully inside the image.
func (s *Session) MoveRegion(index int, x, y float64) (imagemap.Region, error) {
	if err := checkFinite(x, y); err != nil {
		return imagemap.Region{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.doc.Region(index)
	if err != nil {
		return imagemap.Region{}, err
	}

	size, err := s.size()
	if err != nil {
		return imagemap.Region{}, err
	}

	rect := r.Pixels(size)
	rect.X, rect.Y = x, y
	if err := r.SetPixels(imagemap.ClampMove(rect, size), size); err != nil {
		return imagemap.Region{}, err
	}
	if err := s.doc.Update(index, r); err != nil {
		return imagemap.Region{}, err
	}
	s.persist()
	return r, nil
}

// RemoveRegion deletes the region at index.
func (s *Session) RemoveRegion(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.doc.Remove(index); err != nil {
		return err
	}
	s.persist()
	return nil
}

// Import replaces the document with the one in text. Invalid text is
// reported through the notifier and leaves the document untouched. So is
// text that validates but decodes to a region that could not be exported
// again, such as tab-separated fields.
func (s *Session) Import(text string) (imagemap.Document, error) {
	doc, err := imagemap.Parse(text)
	if err == nil {
		for i, r := range doc.Regions {
			if rerr := imagemap.ValidateRegion(r); rerr != nil {
				err = fmt.Errorf("region %d: %w", i+1, rerr)
				break
			}
		}
	}
	if err != nil {
		s.notifier.Error("Invalid imagemap code: " + err.Error())
		return imagemap.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ImageURL != s.doc.ImageURL {
		s.imagePath = ""
	}
	s.doc = doc
	s.persist()

	s.log.Info().Int("regions", len(doc.Regions)).Msg("imported imagemap")
	return doc.Clone(), nil
}

// persist saves the document. Callers hold s.mu.
func (s *Session) persist() {
	if err := s.save(); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist document")
	}
}

func (s *Session) save() error {
	var markup string
	if len(s.doc.Regions) > 0 {
		markup = s.doc.Markup()
		// Restore discards markup that does not validate, so the last saved
		// copy is kept instead.
		if err := imagemap.Validate(markup); err != nil {
			return fmt.Errorf("document not saved: %w", err)
		}
	}

	if err := s.store.Set(KeyImageURL, s.doc.ImageURL); err != nil {
		return err
	}

	if s.imagePath != "" {
		if err := s.store.Set(KeyImagePath, s.imagePath); err != nil {
			return err
		}
	} else if err := s.store.Remove(KeyImagePath); err != nil {
		return err
	}

	// Without regions the markup would not validate on restore.
	if markup == "" {
		return s.store.Remove(KeyMarkup)
	}
	return s.store.Set(KeyMarkup, markup)
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if !imagemap.IsFinite(v) {
			return ErrNotFinite
		}
	}
	return nil
}
