package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/ironsheep/imagemap-mcp/internal/config"
	"github.com/ironsheep/imagemap-mcp/internal/imaging"
	"github.com/ironsheep/imagemap-mcp/internal/notify"
	"github.com/ironsheep/imagemap-mcp/internal/session"
	"github.com/ironsheep/imagemap-mcp/internal/store"
)

// api is the JSON codec for the protocol. ConfigStd keeps encoding/json
// behaviour (sorted map keys, HTML escaping) so responses are stable.
var api = sonic.ConfigStd

const (
	protocolVersion = "2024-11-05"
	serverName      = "imagemap-mcp"
)

// Server handles MCP protocol communication
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	version string

	cache   *imaging.ImageCache
	notes   *notify.Recorder
	session *session.Session
}

// Options configures a Server.
type Options struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.Store
	Version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance. Missing options fall back to the
// default config and an in-memory store.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	log := opts.Logger.With().Str("component", "server").Logger()
	cache := imaging.NewImageCache()
	notes := &notify.Recorder{Next: notify.NewLogNotifier(opts.Logger)}

	return &Server{
		cfg:     cfg,
		log:     log,
		version: version,
		cache:   cache,
		notes:   notes,
		session: session.New(session.Options{
			Store:    st,
			Notifier: notes,
			Sizes:    cache,
			Logger:   opts.Logger,
		}),
	}
}

// Restore loads the previous session's document from the store.
func (s *Server) Restore() error {
	err := s.session.Restore()
	// Restore problems were logged; do not replay them into the first tool call.
	s.notes.Drain()
	return err
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to
// w until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := api.NewEncoder(w)

	s.log.Info().Str("version", s.version).Msg("serving on stdio")

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := api.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error().Err(err).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.Debug().Str("method", req.Method).Interface("id", req.ID).Msg("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    serverName,
				"version": s.version,
			},
		},
	}
}
