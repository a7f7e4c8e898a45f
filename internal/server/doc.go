// Package server implements the MCP (Model Context Protocol) server for
// authoring osu! imagemaps.
//
// This package provides a JSON-RPC 2.0 server that exposes the imagemap
// codec, an editing session, and image assistance through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Markup Codec:
//   - imagemap_encode: Regions and image URL to markup
//   - imagemap_validate: Check markup, report the failing line
//   - imagemap_decode: Markup to regions
//
// Coordinate Normalizer:
//   - imagemap_format_number: 4-decimal display form
//   - imagemap_to_percentage, imagemap_to_pixels: Frame conversions
//
// Document Editing:
//   - document_new, document_get
//   - document_add_region, document_update_region, document_move_region,
//     document_remove_region
//   - document_import, document_export
//
// Image Information:
//   - image_load, image_dimensions
//
// Image Assistance:
//   - imagemap_preview: Regions drawn over the image
//   - imagemap_crop_region: Pixels under one region
//   - imagemap_suggest_regions: Boxed areas found by edge detection
//   - imagemap_suggest_names: Region text read with OCR
//
// # State
//
// The document being edited lives in a session and is saved to the store
// after every change; Restore picks it up again when the server starts.
// Decoded images are cached by path for the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Config: cfg, Logger: log, Store: st})
//	if err := srv.Restore(); err != nil {
//	    log.Warn().Err(err).Msg("restore failed")
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
