package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/imagemap-mcp/internal/detection"
	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
	"github.com/ironsheep/imagemap-mcp/internal/imaging"
	"github.com/ironsheep/imagemap-mcp/internal/ocr"
	"github.com/ironsheep/imagemap-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "imagemap_encode", "document_get").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Notifications raised while the tool ran (for example a rejected import)
// follow the result as extra text items. Tool execution errors return a
// JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := api.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	notes := s.notes.Drain()
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	content := []map[string]interface{}{
		{
			"type": "text",
			"text": mustMarshalJSON(result),
		},
	}
	for _, n := range notes {
		content = append(content, map[string]interface{}{
			"type": "text",
			"text": fmt.Sprintf("[%s] %s", n.Level, n.Text),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": content,
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the codec, the session, or the imaging/detection/ocr packages
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Markup Codec
	case "imagemap_encode":
		return s.handleEncode(args)
	case "imagemap_validate":
		return s.handleValidate(args)
	case "imagemap_decode":
		return s.handleDecode(args)

	// Coordinate Normalizer
	case "imagemap_format_number":
		return s.handleFormatNumber(args)
	case "imagemap_to_percentage":
		return s.handleToPercentage(args)
	case "imagemap_to_pixels":
		return s.handleToPixels(args)

	// Document Editing
	case "document_new":
		return s.handleDocumentNew(args)
	case "document_get":
		return s.documentResult(), nil
	case "document_add_region":
		return s.handleAddRegion(args)
	case "document_update_region":
		return s.handleUpdateRegion(args)
	case "document_move_region":
		return s.handleMoveRegion(args)
	case "document_remove_region":
		return s.handleRemoveRegion(args)
	case "document_import":
		return s.handleImport(args)
	case "document_export":
		return s.handleExport(args)

	// Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Image Assistance
	case "imagemap_preview":
		return s.handlePreview(args)
	case "imagemap_crop_region":
		return s.handleCropRegion(args)
	case "imagemap_suggest_regions":
		return s.handleSuggestRegions(args)
	case "imagemap_suggest_names":
		return s.handleSuggestNames(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := api.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := api.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// orDefault returns *b, or def when the caller left the flag out.
func orDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// === Markup Codec Handlers ===

type markupResult struct {
	Markup string `json:"markup"`
}

type encodeArgs struct {
	ImageURL     string            `json:"image_url"`
	Regions      []imagemap.Region `json:"regions"`
	Placeholders *bool             `json:"placeholders"`
}

func (s *Server) handleEncode(args json.RawMessage) (interface{}, error) {
	var a encodeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return markupResult{
		Markup: imagemap.Encode(a.Regions, a.ImageURL, orDefault(a.Placeholders, true)),
	}, nil
}

type textArgs struct {
	Text string `json:"text"`
}

// validateResult reports a validation outcome. Line is 1-based and omitted
// when the failure is not tied to one line.
type validateResult struct {
	Valid  bool   `json:"valid"`
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleValidate(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	err := imagemap.Validate(a.Text)
	if err == nil {
		return validateResult{Valid: true}, nil
	}

	var verr *imagemap.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	return validateResult{
		Valid:  false,
		Line:   verr.Line + 1,
		Reason: verr.Reason.Error(),
	}, nil
}

func (s *Server) handleDecode(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	doc, err := imagemap.Parse(a.Text)
	if err != nil {
		return nil, err
	}
	return labelled(doc), nil
}

// === Coordinate Normalizer Handlers ===

type formatNumberArgs struct {
	Value float64 `json:"value"`
}

func (s *Server) handleFormatNumber(args json.RawMessage) (interface{}, error) {
	var a formatNumberArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return map[string]string{"text": imagemap.FormatForDisplay(a.Value)}, nil
}

type convertArgs struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	ImageWidth  float64 `json:"image_width"`
	ImageHeight float64 `json:"image_height"`
}

func (a convertArgs) size() imagemap.Size {
	return imagemap.Size{Width: a.ImageWidth, Height: a.ImageHeight}
}

func (s *Server) handleToPercentage(args json.RawMessage) (interface{}, error) {
	var a convertArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imagemap.RegionFromPixels(imagemap.PixelRect{
		X: a.X, Y: a.Y, Width: a.Width, Height: a.Height,
	}, a.size())
}

func (s *Server) handleToPixels(args json.RawMessage) (interface{}, error) {
	var a convertArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	size := a.size()
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %gx%g", imagemap.ErrInvalidSize, size.Width, size.Height)
	}
	r := imagemap.Region{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
	return r.Pixels(size), nil
}

// === Document Editing Handlers ===

// labelledRegion is a region with its display index and label.
type labelledRegion struct {
	imagemap.Region
	Index int    `json:"index"`
	Label string `json:"label"`
}

// labelledDocument is a document as shown to clients.
type labelledDocument struct {
	ImageURL string           `json:"image_url"`
	Regions  []labelledRegion `json:"regions"`
}

func labelled(doc imagemap.Document) labelledDocument {
	regions := make([]labelledRegion, len(doc.Regions))
	for i, r := range doc.Regions {
		regions[i] = labelledRegion{Region: r, Index: i, Label: doc.Label(i)}
	}
	return labelledDocument{ImageURL: doc.ImageURL, Regions: regions}
}

type documentResult struct {
	Document  labelledDocument `json:"document"`
	ImagePath string           `json:"image_path,omitempty"`
	Markup    string           `json:"markup"`
}

func (s *Server) documentResult() documentResult {
	return documentResult{
		Document:  labelled(s.session.Document()),
		ImagePath: s.session.ImagePath(),
		Markup:    s.session.Markup(s.cfg.Placeholders),
	}
}

type documentNewArgs struct {
	ImageURL  string `json:"image_url"`
	ImagePath string `json:"image_path"`
}

func (s *Server) handleDocumentNew(args json.RawMessage) (interface{}, error) {
	var a documentNewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ImageURL == "" {
		return nil, errors.New("image_url is required")
	}
	if a.ImagePath != "" {
		s.cache.Evict(a.ImagePath)
	}
	if err := s.session.NewImage(a.ImageURL, a.ImagePath); err != nil {
		return nil, err
	}
	return s.documentResult(), nil
}

type dragArgs struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type addRegionArgs struct {
	X      *float64  `json:"x"`
	Y      *float64  `json:"y"`
	Width  *float64  `json:"width"`
	Height *float64  `json:"height"`
	Drag   *dragArgs `json:"drag"`
	Link   string    `json:"link"`
	Name   string    `json:"name"`
}

type regionResult struct {
	Index  int             `json:"index"`
	Label  string          `json:"label"`
	Region imagemap.Region `json:"region"`
}

func (s *Server) regionResult(index int) (regionResult, error) {
	doc := s.session.Document()
	r, err := doc.Region(index)
	if err != nil {
		return regionResult{}, err
	}
	return regionResult{Index: index, Label: doc.Label(index), Region: r}, nil
}

func (s *Server) handleAddRegion(args json.RawMessage) (interface{}, error) {
	var a addRegionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	if a.Drag != nil {
		index, _, err := s.session.AddPixelRegion(a.Drag.X1, a.Drag.Y1, a.Drag.X2, a.Drag.Y2, a.Link, a.Name)
		if err != nil {
			return nil, err
		}
		return s.regionResult(index)
	}

	if a.X == nil || a.Y == nil || a.Width == nil || a.Height == nil {
		return nil, errors.New("either drag or all of x, y, width, height are required")
	}
	index, err := s.session.AddRegion(imagemap.Region{
		X: *a.X, Y: *a.Y, Width: *a.Width, Height: *a.Height,
		Link: a.Link, Name: a.Name,
	})
	if err != nil {
		return nil, err
	}
	return s.regionResult(index)
}

type indexArgs struct {
	Index *int `json:"index"`
}

func (a indexArgs) index() (int, error) {
	if a.Index == nil {
		return 0, errors.New("index is required")
	}
	return *a.Index, nil
}

type updateRegionArgs struct {
	indexArgs
	session.RegionPatch
}

func (s *Server) handleUpdateRegion(args json.RawMessage) (interface{}, error) {
	var a updateRegionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	index, err := a.index()
	if err != nil {
		return nil, err
	}
	if _, err := s.session.UpdateRegion(index, a.RegionPatch); err != nil {
		return nil, err
	}
	return s.regionResult(index)
}

type moveRegionArgs struct {
	indexArgs
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleMoveRegion(args json.RawMessage) (interface{}, error) {
	var a moveRegionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	index, err := a.index()
	if err != nil {
		return nil, err
	}
	if _, err := s.session.MoveRegion(index, a.X, a.Y); err != nil {
		return nil, err
	}
	return s.regionResult(index)
}

func (s *Server) handleRemoveRegion(args json.RawMessage) (interface{}, error) {
	var a indexArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	index, err := a.index()
	if err != nil {
		return nil, err
	}
	if err := s.session.RemoveRegion(index); err != nil {
		return nil, err
	}
	return s.documentResult(), nil
}

func (s *Server) handleImport(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.session.Import(a.Text); err != nil {
		return nil, err
	}
	return s.documentResult(), nil
}

type exportArgs struct {
	Placeholders *bool `json:"placeholders"`
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return markupResult{
		Markup: s.session.Markup(orDefault(a.Placeholders, s.cfg.Placeholders)),
	}, nil
}

// === Image Information Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

// imagePath returns path, or the image attached to the document.
func (s *Server) imagePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if p := s.session.ImagePath(); p != "" {
		return p, nil
	}
	return "", session.ErrNoImage
}

func (s *Server) loadImage(path string) (image.Image, error) {
	p, err := s.imagePath(path)
	if err != nil {
		return nil, err
	}
	return s.cache.Load(p)
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.imagePath(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, p)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.imagePath(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, p)
}

// === Image Assistance Handlers ===

type previewArgs struct {
	Path     string `json:"path"`
	Text     string `json:"text"`
	MaxWidth *int   `json:"max_width"`
}

func (s *Server) handlePreview(args json.RawMessage) (interface{}, error) {
	var a previewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	doc := s.session.Document()
	if a.Text != "" {
		parsed, err := imagemap.Parse(a.Text)
		if err != nil {
			return nil, err
		}
		doc = parsed
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	maxWidth := s.cfg.PreviewMaxWidth
	if a.MaxWidth != nil {
		maxWidth = *a.MaxWidth
	}
	return imaging.Preview(img, doc, maxWidth)
}

type cropRegionArgs struct {
	indexArgs
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleCropRegion(args json.RawMessage) (interface{}, error) {
	var a cropRegionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	index, err := a.index()
	if err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	r, err := s.session.Document().Region(index)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropRegion(img, r, a.Scale)
}

type suggestRegionsArgs struct {
	Path           string   `json:"path"`
	MinAreaPercent *float64 `json:"min_area_percent"`
	Tolerance      float64  `json:"tolerance"`
	Add            bool     `json:"add"`
}

type suggestRegionsResult struct {
	*detection.SuggestionsResult
	Added []int `json:"added,omitempty"`
}

func (s *Server) handleSuggestRegions(args json.RawMessage) (interface{}, error) {
	var a suggestRegionsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	minArea := s.cfg.DetectMinAreaPercent
	if a.MinAreaPercent != nil {
		minArea = *a.MinAreaPercent
	}
	if a.Tolerance == 0 {
		a.Tolerance = 0.8
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	found, err := detection.SuggestRegions(img, minArea, a.Tolerance)
	if err != nil {
		return nil, err
	}

	result := suggestRegionsResult{SuggestionsResult: found}
	if a.Add {
		for _, c := range found.Candidates {
			index, err := s.session.AddRegion(c.Region)
			if err != nil {
				return nil, err
			}
			result.Added = append(result.Added, index)
		}
	}
	return result, nil
}

type suggestNamesArgs struct {
	Path        string `json:"path"`
	Language    string `json:"language"`
	OnlyUnnamed bool   `json:"only_unnamed"`
	Apply       bool   `json:"apply"`
}

type suggestNamesResult struct {
	*ocr.NamesResult
	Applied []int `json:"applied,omitempty"`
}

func (s *Server) handleSuggestNames(args json.RawMessage) (interface{}, error) {
	var a suggestNamesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.cfg.OCRLanguage
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	doc := s.session.Document()
	found, err := ocr.SuggestNames(img, doc.Regions, a.Language)
	if err != nil {
		return nil, err
	}

	if a.OnlyUnnamed {
		kept := found.Suggestions[:0]
		for _, sug := range found.Suggestions {
			if doc.Regions[sug.Index].Name == "" {
				kept = append(kept, sug)
			}
		}
		found.Suggestions = kept
		found.Count = len(kept)
	}

	result := suggestNamesResult{NamesResult: found}
	if a.Apply {
		for _, sug := range found.Suggestions {
			if sug.Name == "" {
				continue
			}
			name := sug.Name
			if _, err := s.session.UpdateRegion(sug.Index, session.RegionPatch{Name: &name}); err != nil {
				return nil, err
			}
			result.Applied = append(result.Applied, sug.Index)
		}
	}
	return result, nil
}
