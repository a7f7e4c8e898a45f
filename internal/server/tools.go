package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func schema(properties map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// regionSchema describes one region in percentage coordinates.
var regionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x":      prop("number", "Left edge, percent of image width"),
		"y":      prop("number", "Top edge, percent of image height"),
		"width":  prop("number", "Width, percent of image width"),
		"height": prop("number", "Height, percent of image height"),
		"link":   prop("string", "Destination URL"),
		"name":   prop("string", "Hover text"),
	},
	"required": []string{"x", "y", "width", "height"},
}

var (
	pathProp = prop("string", "Absolute path to a local copy of the image. Defaults to the image attached with document_new")
	textProp = prop("string", "Imagemap markup, starting with [imagemap] and ending with [/imagemap]")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Markup Codec
		{
			Name:        "imagemap_encode",
			Description: "Encode an image URL and regions as osu! [imagemap] markup. Coordinates are rounded to 4 decimal places.",
			InputSchema: schema(map[string]interface{}{
				"image_url": prop("string", "URL of the image the regions are drawn on"),
				"regions": map[string]interface{}{
					"type":        "array",
					"description": "Regions in display order",
					"items":       regionSchema,
				},
				"placeholders": map[string]interface{}{
					"type":        "boolean",
					"description": "Replace empty links with https://example.com and empty names with \"Sample text\". Default true",
					"default":     true,
				},
			}, "image_url", "regions"),
		},
		{
			Name:        "imagemap_validate",
			Description: "Check whether text is well-formed imagemap markup. Returns valid, and on failure the 1-based line and the reason.",
			InputSchema: schema(map[string]interface{}{
				"text": textProp,
			}, "text"),
		},
		{
			Name:        "imagemap_decode",
			Description: "Validate and decode imagemap markup into an image URL and regions. Invalid markup is an error.",
			InputSchema: schema(map[string]interface{}{
				"text": textProp,
			}, "text"),
		},

		// Coordinate Normalizer
		{
			Name:        "imagemap_format_number",
			Description: "Format a coordinate the way it appears in markup: rounded half away from zero to 4 decimal places, no trailing zeros.",
			InputSchema: schema(map[string]interface{}{
				"value": prop("number", "Value to format"),
			}, "value"),
		},
		{
			Name:        "imagemap_to_percentage",
			Description: "Convert a pixel rectangle to percentages of the image size.",
			InputSchema: schema(map[string]interface{}{
				"x":            prop("number", "Left edge in pixels"),
				"y":            prop("number", "Top edge in pixels"),
				"width":        prop("number", "Width in pixels"),
				"height":       prop("number", "Height in pixels"),
				"image_width":  prop("number", "Image width in pixels (must be positive)"),
				"image_height": prop("number", "Image height in pixels (must be positive)"),
			}, "x", "y", "width", "height", "image_width", "image_height"),
		},
		{
			Name:        "imagemap_to_pixels",
			Description: "Convert a rectangle in percentages to pixels of the given image size.",
			InputSchema: schema(map[string]interface{}{
				"x":            prop("number", "Left edge, percent of image width"),
				"y":            prop("number", "Top edge, percent of image height"),
				"width":        prop("number", "Width, percent of image width"),
				"height":       prop("number", "Height, percent of image height"),
				"image_width":  prop("number", "Image width in pixels (must be positive)"),
				"image_height": prop("number", "Image height in pixels (must be positive)"),
			}, "x", "y", "width", "height", "image_width", "image_height"),
		},

		// Document Editing
		{
			Name:        "document_new",
			Description: "Start a new imagemap for an image. Removes all existing regions. Attach a local copy of the image to enable pixel coordinates, previews and suggestions.",
			InputSchema: schema(map[string]interface{}{
				"image_url":  prop("string", "Public URL of the image, written into the markup"),
				"image_path": prop("string", "Optional absolute path to a local copy of the image"),
			}, "image_url"),
		},
		{
			Name:        "document_get",
			Description: "Return the current imagemap: image URL, regions with their labels, and the markup.",
			InputSchema: schema(map[string]interface{}{}),
		},
		{
			Name:        "document_add_region",
			Description: "Append a region. Give x, y, width and height in percent, or drag with two pixel corners on the attached image (clamped to the image).",
			InputSchema: schema(map[string]interface{}{
				"x":      prop("number", "Left edge, percent of image width"),
				"y":      prop("number", "Top edge, percent of image height"),
				"width":  prop("number", "Width, percent of image width"),
				"height": prop("number", "Height, percent of image height"),
				"drag": map[string]interface{}{
					"type":        "object",
					"description": "Start and end corners of a drag, in pixels. Either corner may come first",
					"properties": map[string]interface{}{
						"x1": map[string]interface{}{"type": "number"},
						"y1": map[string]interface{}{"type": "number"},
						"x2": map[string]interface{}{"type": "number"},
						"y2": map[string]interface{}{"type": "number"},
					},
					"required": []string{"x1", "y1", "x2", "y2"},
				},
				"link": prop("string", "Destination URL"),
				"name": prop("string", "Hover text; defaults to the region number"),
			}),
		},
		{
			Name:        "document_update_region",
			Description: "Change fields of the region at index. Omitted fields are kept.",
			InputSchema: schema(map[string]interface{}{
				"index":  prop("integer", "0-based region index"),
				"x":      prop("number", "Left edge, percent of image width"),
				"y":      prop("number", "Top edge, percent of image height"),
				"width":  prop("number", "Width, percent of image width"),
				"height": prop("number", "Height, percent of image height"),
				"link":   prop("string", "Destination URL"),
				"name":   prop("string", "Hover text"),
			}, "index"),
		},
		{
			Name:        "document_move_region",
			Description: "Move the region at index so its top-left corner is at (x, y) pixels on the attached image. The region is kept fully inside the image.",
			InputSchema: schema(map[string]interface{}{
				"index": prop("integer", "0-based region index"),
				"x":     prop("number", "New left edge in pixels"),
				"y":     prop("number", "New top edge in pixels"),
			}, "index", "x", "y"),
		},
		{
			Name:        "document_remove_region",
			Description: "Remove the region at index. Later regions move down by one.",
			InputSchema: schema(map[string]interface{}{
				"index": prop("integer", "0-based region index"),
			}, "index"),
		},
		{
			Name:        "document_import",
			Description: "Replace the current imagemap with the one in the markup. Invalid markup is rejected and leaves the current imagemap unchanged.",
			InputSchema: schema(map[string]interface{}{
				"text": textProp,
			}, "text"),
		},
		{
			Name:        "document_export",
			Description: "Return the current imagemap as markup.",
			InputSchema: schema(map[string]interface{}{
				"placeholders": map[string]interface{}{
					"type":        "boolean",
					"description": "Fill empty links and names with placeholders. Default true",
					"default":     true,
				},
			}),
		},

		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}),
		},

		// Image Assistance
		{
			Name:        "imagemap_preview",
			Description: "Draw the regions over the image and return it as base64-encoded PNG. Each region is tinted, outlined and labelled.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
				"text": prop("string", "Optional markup to preview instead of the current imagemap"),
				"max_width": map[string]interface{}{
					"type":        "integer",
					"description": "Scale the preview down to at most this width. 0 keeps the source size. Default from config (1024)",
				},
			}),
		},
		{
			Name:        "imagemap_crop_region",
			Description: "Crop the pixels under one region and return them as base64-encoded PNG.",
			InputSchema: schema(map[string]interface{}{
				"index": prop("integer", "0-based region index"),
				"path":  pathProp,
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
					"default":     1.0,
				},
			}, "index"),
		},
		{
			Name:        "imagemap_suggest_regions",
			Description: "Find boxed areas in the image (cards, avatar frames, name plates) and return them as regions in percent, in reading order.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
				"min_area_percent": map[string]interface{}{
					"type":        "number",
					"description": "Smallest suggestion as a percentage of the image area. Default from config (0.5)",
				},
				"tolerance": map[string]interface{}{
					"type":        "number",
					"description": "Minimum fraction of the box outline on detected edges (0.0-1.0). Default 0.8",
					"default":     0.8,
				},
				"add": map[string]interface{}{
					"type":        "boolean",
					"description": "Append the suggestions to the current imagemap",
					"default":     false,
				},
			}),
		},
		{
			Name:        "imagemap_suggest_names",
			Description: "Read the text inside each region with OCR and suggest it as the region's name.",
			InputSchema: schema(map[string]interface{}{
				"path":     pathProp,
				"language": prop("string", "Tesseract language code. Default from config (eng)"),
				"only_unnamed": map[string]interface{}{
					"type":        "boolean",
					"description": "Only suggest names for regions without one",
					"default":     false,
				},
				"apply": map[string]interface{}{
					"type":        "boolean",
					"description": "Set the suggested names on the regions",
					"default":     false,
				},
			}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
