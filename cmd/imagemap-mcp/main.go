package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ironsheep/imagemap-mcp/internal/config"
	"github.com/ironsheep/imagemap-mcp/internal/logging"
	"github.com/ironsheep/imagemap-mcp/internal/server"
	"github.com/ironsheep/imagemap-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "imagemap-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for MCP protocol
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imagemap-mcp: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting imagemap MCP server")

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state store")
	}

	srv := server.New(server.Options{
		Config:  cfg,
		Logger:  log,
		Store:   st,
		Version: Version,
	})
	if err := srv.Restore(); err != nil {
		log.Warn().Err(err).Msg("failed to restore previous document")
	}
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// openStore returns the file store under cfg.StateDir, or an in-memory store
// when no state directory is configured.
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.StateDir == "" {
		log.Info().Msg("no state_dir configured; the document will not survive a restart")
		return store.NewMemoryStore(), nil
	}
	fs, err := store.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("state_dir", fs.Dir()).Msg("state store opened")
	return fs, nil
}
