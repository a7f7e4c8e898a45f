package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/imagemap-mcp/internal/store"
)

const bannerURL = "https://i.ppy.sh/banner.png"

// createTestImageFile creates a test image file and returns its path.
// Each rect is painted white as {x1, y1, x2, y2}.
func createTestImageFile(t *testing.T, width, height int, c color.Color, rects ...[4]int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	for _, r := range rects {
		for y := r[1]; y < r[3]; y++ {
			for x := r[0]; x < r[2]; x++ {
				img.Set(x, y, color.White)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "banner.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the response and the text
// of its first content item.
func callTool(t *testing.T, s *Server, name string, args interface{}) (*MCPResponse, string) {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp, ""
	}

	content := contentOf(t, resp)
	return resp, content[0]["text"].(string)
}

func contentOf(t *testing.T, resp *MCPResponse) []map[string]interface{} {
	t.Helper()
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) == 0 {
		t.Fatal("Result should contain content items")
	}
	return content
}

// mustCall is callTool for calls expected to succeed; it decodes the result
// into out.
func mustCall(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	resp, text := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s failed: %s: %v", name, resp.Error.Message, resp.Error.Data)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode %s result: %v\n%s", name, err, text)
		}
	}
}

func expectToolError(t *testing.T, s *Server, name string, args interface{}, contains string) {
	t.Helper()
	resp, _ := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s should fail", name)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, contains) {
		t.Errorf("Error data: got %q, want it to contain %q", resp.Error.Data, contains)
	}
}

type testRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Link   string  `json:"link"`
	Name   string  `json:"name"`
	Index  int     `json:"index"`
	Label  string  `json:"label"`
}

type testDocument struct {
	Document struct {
		ImageURL string       `json:"image_url"`
		Regions  []testRegion `json:"regions"`
	} `json:"document"`
	ImagePath string `json:"image_path"`
	Markup    string `json:"markup"`
}

type testRegionResult struct {
	Index  int        `json:"index"`
	Label  string     `json:"label"`
	Region testRegion `json:"region"`
}

func TestHandleToolsCall_Encode(t *testing.T) {
	s := newTestServer(t)
	regions := []map[string]interface{}{
		{"x": 33.333333, "y": 0, "width": 10, "height": 12.5, "link": "https://osu.ppy.sh/u/2", "name": "peppy"},
		{"x": 0, "y": 50, "width": 5, "height": 5},
	}

	var got markupResult
	mustCall(t, s, "imagemap_encode", map[string]interface{}{
		"image_url": bannerURL,
		"regions":   regions,
	}, &got)

	want := "[imagemap]\n" + bannerURL + "\n" +
		"33.3333 0 10 12.5 https://osu.ppy.sh/u/2 peppy\n" +
		"0 50 5 5 https://example.com Sample text\n" +
		"[/imagemap]"
	if got.Markup != want {
		t.Errorf("markup:\ngot  %q\nwant %q", got.Markup, want)
	}

	mustCall(t, s, "imagemap_encode", map[string]interface{}{
		"image_url":    bannerURL,
		"regions":      regions[1:],
		"placeholders": false,
	}, &got)
	if !strings.Contains(got.Markup, "\n0 50 5 5  \n") {
		t.Errorf("placeholders=false should leave empty tokens: %q", got.Markup)
	}
}

func TestHandleToolsCall_Validate(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		text     string
		valid    bool
		line     int
		contains string
	}{
		{"valid", "[imagemap]\n" + bannerURL + "\n1 2 3 4 https://a b\n[/imagemap]", true, 0, ""},
		{"too short", "[imagemap]\n" + bannerURL + "\n[/imagemap]", false, 0, "too few lines"},
		{"bad url", "[imagemap]\nftp://x\n1 2 3 4 https://a b\n[/imagemap]", false, 2, "image URL"},
		{"bad region", "[imagemap]\n" + bannerURL + "\n1 2 3 https://a b\n[/imagemap]", false, 3, "region line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got validateResult
			mustCall(t, s, "imagemap_validate", map[string]interface{}{"text": tt.text}, &got)

			if got.Valid != tt.valid {
				t.Errorf("Valid: got %v, want %v", got.Valid, tt.valid)
			}
			if got.Line != tt.line {
				t.Errorf("Line: got %d, want %d", got.Line, tt.line)
			}
			if !strings.Contains(got.Reason, tt.contains) {
				t.Errorf("Reason: got %q, want it to contain %q", got.Reason, tt.contains)
			}
		})
	}
}

func TestHandleToolsCall_Decode(t *testing.T) {
	s := newTestServer(t)

	var got struct {
		ImageURL string       `json:"image_url"`
		Regions  []testRegion `json:"regions"`
	}
	mustCall(t, s, "imagemap_decode", map[string]interface{}{
		"text": "[imagemap]\n" + bannerURL + "\n10 20 30 40 https://osu.ppy.sh/u/2 Mr. Bean\n5 5 5 5 https://a \n[/imagemap]",
	}, &got)

	if got.ImageURL != bannerURL {
		t.Errorf("ImageURL: got %s", got.ImageURL)
	}
	if len(got.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(got.Regions))
	}
	if got.Regions[0].Name != "Mr. Bean" || got.Regions[0].Label != "Mr. Bean" {
		t.Errorf("first region: got %+v", got.Regions[0])
	}
	if got.Regions[1].Name != "" || got.Regions[1].Label != "2" {
		t.Errorf("unnamed region should be labelled by position: got %+v", got.Regions[1])
	}

	expectToolError(t, s, "imagemap_decode", map[string]interface{}{"text": "nope"}, "invalid imagemap")
}

func TestHandleToolsCall_Normalizer(t *testing.T) {
	s := newTestServer(t)

	var text map[string]string
	mustCall(t, s, "imagemap_format_number", map[string]interface{}{"value": 10}, &text)
	if text["text"] != "10" {
		t.Errorf("format 10: got %q", text["text"])
	}

	var pct testRegion
	mustCall(t, s, "imagemap_to_percentage", map[string]interface{}{
		"x": 50, "y": 25, "width": 100, "height": 50, "image_width": 200, "image_height": 100,
	}, &pct)
	if pct.X != 25 || pct.Y != 25 || pct.Width != 50 || pct.Height != 50 {
		t.Errorf("to_percentage: got %+v", pct)
	}

	var px testRegion
	mustCall(t, s, "imagemap_to_pixels", map[string]interface{}{
		"x": 25, "y": 25, "width": 50, "height": 50, "image_width": 200, "image_height": 100,
	}, &px)
	if px.X != 50 || px.Y != 25 || px.Width != 100 || px.Height != 50 {
		t.Errorf("to_pixels: got %+v", px)
	}

	expectToolError(t, s, "imagemap_to_percentage", map[string]interface{}{
		"x": 1, "y": 1, "width": 1, "height": 1, "image_width": 0, "image_height": 100,
	}, "image size must be positive")
}

func TestHandleToolsCall_DocumentWorkflow(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 100, color.Black)

	var doc testDocument
	mustCall(t, s, "document_new", map[string]interface{}{
		"image_url":  bannerURL,
		"image_path": imgPath,
	}, &doc)
	if doc.Document.ImageURL != bannerURL || len(doc.Document.Regions) != 0 {
		t.Fatalf("document_new: got %+v", doc)
	}
	if doc.ImagePath != imgPath {
		t.Errorf("ImagePath: got %s, want %s", doc.ImagePath, imgPath)
	}

	// Percent region
	var added testRegionResult
	mustCall(t, s, "document_add_region", map[string]interface{}{
		"x": 10, "y": 10, "width": 25, "height": 50, "link": "https://osu.ppy.sh/u/2", "name": "peppy",
	}, &added)
	if added.Index != 0 || added.Label != "peppy" {
		t.Errorf("first add: got %+v", added)
	}

	// Dragged region, clamped to the image
	mustCall(t, s, "document_add_region", map[string]interface{}{
		"drag": map[string]interface{}{"x1": 250, "y1": 100, "x2": 100, "y2": 50},
	}, &added)
	if added.Index != 1 || added.Label != "2" {
		t.Errorf("second add: got %+v", added)
	}
	if added.Region.X != 50 || added.Region.Y != 50 || added.Region.Width != 50 || added.Region.Height != 50 {
		t.Errorf("dragged region: got %+v", added.Region)
	}

	// Partial update keeps other fields
	mustCall(t, s, "document_update_region", map[string]interface{}{
		"index": 1, "name": "cookiezi",
	}, &added)
	if added.Region.Name != "cookiezi" || added.Region.Width != 50 {
		t.Errorf("update: got %+v", added.Region)
	}

	// Move past the bottom-right corner
	mustCall(t, s, "document_move_region", map[string]interface{}{
		"index": 0, "x": 500, "y": 500,
	}, &added)
	if added.Region.X != 75 || added.Region.Y != 50 {
		t.Errorf("move: got %+v", added.Region)
	}

	var exported markupResult
	mustCall(t, s, "document_export", map[string]interface{}{}, &exported)
	want := "[imagemap]\n" + bannerURL + "\n" +
		"75 50 25 50 https://osu.ppy.sh/u/2 peppy\n" +
		"50 50 50 50 https://example.com cookiezi\n" +
		"[/imagemap]"
	if exported.Markup != want {
		t.Errorf("export:\ngot  %q\nwant %q", exported.Markup, want)
	}

	mustCall(t, s, "document_remove_region", map[string]interface{}{"index": 0}, &doc)
	if len(doc.Document.Regions) != 1 || doc.Document.Regions[0].Name != "cookiezi" {
		t.Errorf("remove: got %+v", doc.Document.Regions)
	}

	expectToolError(t, s, "document_remove_region", map[string]interface{}{"index": 5}, "out of range")
	expectToolError(t, s, "document_remove_region", map[string]interface{}{}, "index is required")
	expectToolError(t, s, "document_add_region", map[string]interface{}{"x": 1}, "required")
}

func TestHandleToolsCall_DocumentNewRequiresURL(t *testing.T) {
	s := newTestServer(t)
	expectToolError(t, s, "document_new", map[string]interface{}{}, "image_url is required")
	expectToolError(t, s, "document_new", map[string]interface{}{
		"image_url":  bannerURL,
		"image_path": "/nonexistent/banner.png",
	}, "failed to load image")
	expectToolError(t, s, "document_new", map[string]interface{}{"image_url": "not a url"}, "image URL must start with")

	// The rejection notice is not carried into the next call
	resp, _ := callTool(t, s, "document_get", map[string]interface{}{})
	if n := len(contentOf(t, resp)); n != 1 {
		t.Errorf("document_get content items: got %d, want 1", n)
	}
}

func TestHandleToolsCall_AddRegionRejectsUnexportable(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s, "document_new", map[string]interface{}{"image_url": bannerURL}, nil)

	expectToolError(t, s, "document_add_region", map[string]interface{}{
		"x": 0, "y": 0, "width": 10, "height": 10, "link": "osu.ppy.sh/u/2",
	}, "link must be an http(s) URL")
	expectToolError(t, s, "document_add_region", map[string]interface{}{
		"x": -1, "y": 0, "width": 10, "height": 10,
	}, "must not be negative")

	var doc testDocument
	mustCall(t, s, "document_get", map[string]interface{}{}, &doc)
	if len(doc.Document.Regions) != 0 {
		t.Errorf("rejected regions were added: %+v", doc.Document.Regions)
	}
}

func TestHandleToolsCall_Import(t *testing.T) {
	s := newTestServer(t)

	var doc testDocument
	mustCall(t, s, "document_import", map[string]interface{}{
		"text": "[imagemap]\n" + bannerURL + "\n1 2 3 4 https://a peppy\n[/imagemap]",
	}, &doc)
	if len(doc.Document.Regions) != 1 || doc.Document.Regions[0].Name != "peppy" {
		t.Fatalf("import: got %+v", doc)
	}

	expectToolError(t, s, "document_import", map[string]interface{}{"text": "[imagemap]"}, "too few lines")

	// The rejected import is not carried into the next call
	resp, _ := callTool(t, s, "document_get", map[string]interface{}{})
	if n := len(contentOf(t, resp)); n != 1 {
		t.Errorf("document_get content items: got %d, want 1", n)
	}

	mustCall(t, s, "document_get", map[string]interface{}{}, &doc)
	if len(doc.Document.Regions) != 1 {
		t.Errorf("failed import should leave the document untouched: %+v", doc)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Format   string `json:"format"`
		MimeType string `json:"mime_type"`
	}
	mustCall(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)
	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}

	expectToolError(t, s, "image_dimensions", map[string]interface{}{}, "no local image")

	// Falls back to the document's image
	mustCall(t, s, "document_new", map[string]interface{}{"image_url": bannerURL, "image_path": imgPath}, nil)
	mustCall(t, s, "image_dimensions", map[string]interface{}{}, &info)
	if info.Width != 100 {
		t.Errorf("Width: got %d, want 100", info.Width)
	}
}

func TestHandleToolsCall_PreviewAndCrop(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 400, 200, color.Black)

	mustCall(t, s, "document_new", map[string]interface{}{"image_url": bannerURL, "image_path": imgPath}, nil)
	mustCall(t, s, "document_add_region", map[string]interface{}{"x": 0, "y": 0, "width": 50, "height": 50}, nil)

	var preview struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		MimeType string `json:"mime_type"`
		Regions  []struct {
			Label string `json:"label"`
		} `json:"regions"`
	}
	mustCall(t, s, "imagemap_preview", map[string]interface{}{"max_width": 200}, &preview)
	if preview.Width != 200 || preview.Height != 100 {
		t.Errorf("preview size: got %dx%d, want 200x100", preview.Width, preview.Height)
	}
	if len(preview.Regions) != 1 || preview.Regions[0].Label != "1" {
		t.Errorf("preview regions: got %+v", preview.Regions)
	}

	var crop struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	mustCall(t, s, "imagemap_crop_region", map[string]interface{}{"index": 0}, &crop)
	if crop.Width != 200 || crop.Height != 100 {
		t.Errorf("crop size: got %dx%d, want 200x100", crop.Width, crop.Height)
	}

	expectToolError(t, s, "imagemap_crop_region", map[string]interface{}{"index": 3}, "out of range")
}

func TestHandleToolsCall_SuggestRegions(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 100, color.Black,
		[4]int{20, 20, 70, 60},
		[4]int{120, 30, 180, 80},
	)
	mustCall(t, s, "document_new", map[string]interface{}{"image_url": bannerURL, "image_path": imgPath}, nil)

	var got struct {
		Count int   `json:"count"`
		Added []int `json:"added"`
	}
	mustCall(t, s, "imagemap_suggest_regions", map[string]interface{}{"add": true}, &got)
	if got.Count != 2 {
		t.Fatalf("Count: got %d, want 2", got.Count)
	}
	if len(got.Added) != 2 || got.Added[0] != 0 || got.Added[1] != 1 {
		t.Errorf("Added: got %v, want [0 1]", got.Added)
	}

	var doc testDocument
	mustCall(t, s, "document_get", map[string]interface{}{}, &doc)
	if len(doc.Document.Regions) != 2 {
		t.Fatalf("regions: got %d, want 2", len(doc.Document.Regions))
	}
	if r := doc.Document.Regions[0]; r.X != 10 || r.Y != 20 || r.Width != 25 || r.Height != 40 {
		t.Errorf("first region: got %+v", r)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	expectToolError(t, s, "nonexistent_tool", map[string]interface{}{}, "unknown tool")
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestRestore(t *testing.T) {
	st := store.NewMemoryStore()
	s := New(Options{Logger: zerolog.Nop(), Store: st})
	mustCall(t, s, "document_import", map[string]interface{}{
		"text": "[imagemap]\n" + bannerURL + "\n1 2 3 4 https://a peppy\n[/imagemap]",
	}, nil)

	// A second server on the same store picks the document up
	restored := New(Options{Logger: zerolog.Nop(), Store: st})
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	var doc testDocument
	mustCall(t, restored, "document_get", map[string]interface{}{}, &doc)
	if len(doc.Document.Regions) != 1 || doc.Document.Regions[0].Name != "peppy" {
		t.Errorf("restored document: got %+v", doc.Document)
	}
}
