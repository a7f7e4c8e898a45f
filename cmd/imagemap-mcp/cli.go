package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/bytedance/sonic"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/imagemap-mcp/internal/config"
	"github.com/ironsheep/imagemap-mcp/internal/imagemap"
	imgtools "github.com/ironsheep/imagemap-mcp/internal/imaging"
	"github.com/ironsheep/imagemap-mcp/internal/logging"
	"github.com/ironsheep/imagemap-mcp/internal/notify"
	"github.com/ironsheep/imagemap-mcp/internal/session"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

const usage = `imagemap-mcp - MCP server for authoring osu! [imagemap] markup

Usage:
  imagemap-mcp                          Run the MCP server on stdin/stdout
  imagemap-mcp validate FILE|-          Check markup; exit status 1 if invalid
  imagemap-mcp decode FILE|-            Print markup as JSON
  imagemap-mcp export [--copy]          Print the saved document's markup
  imagemap-mcp preview IMAGE MARKUP OUT Draw the regions over IMAGE into OUT
  imagemap-mcp init-config [PATH]       Write the default config file

Options:
  --version, -v    Print version information
  --help, -h       Print this help message

Environment variables:
  IMAGEMAP_MCP_CONFIG=PATH          Config file (default: user config dir)
  IMAGEMAP_MCP_LOG_LEVEL=debug      Log level
  IMAGEMAP_MCP_STATE_DIR=DIR        Where the current document is saved
  IMAGEMAP_MCP_PLACEHOLDERS=false   Export empty links and names as is

This server communicates via MCP protocol over stdin/stdout.
Configure it in your MCP client (e.g., Claude Desktop).
`

// errInvalid marks a completed check that found the input invalid; the
// message has already been printed.
var errInvalid = errors.New("invalid")

// runCommand runs a CLI subcommand and returns the process exit status.
func runCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "imagemap-mcp %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "validate":
		err = cmdValidate(args[1:], stdin, stdout)
	case "decode":
		err = cmdDecode(args[1:], stdin, stdout)
	case "export":
		err = cmdExport(args[1:], stdout, stderr)
	case "preview":
		err = cmdPreview(args[1:], stdout)
	case "init-config":
		err = cmdInitConfig(args[1:], stdout)
	default:
		fmt.Fprintf(stderr, "imagemap-mcp: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalid):
		return 1
	default:
		fmt.Fprintf(stderr, "imagemap-mcp: %v\n", err)
		return 1
	}
}

// readInput reads the named file, or stdin for "-". One trailing newline is
// dropped so files saved by editors still validate.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected exactly one FILE argument (- for stdin)")
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func cmdValidate(args []string, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(args, stdin)
	if err != nil {
		return err
	}
	if err := imagemap.Validate(text); err != nil {
		fmt.Fprintln(stdout, err)
		return errInvalid
	}
	fmt.Fprintln(stdout, "valid")
	return nil
}

func cmdDecode(args []string, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(args, stdin)
	if err != nil {
		return err
	}
	doc, err := imagemap.Parse(text)
	if err != nil {
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}

func cmdExport(args []string, stdout, stderr io.Writer) error {
	copyOut := false
	for _, a := range args {
		switch a {
		case "--copy", "-c":
			copyOut = true
		default:
			return fmt.Errorf("unknown export option %q", a)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(stderr, cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	notifier := notify.NewLogNotifier(log)
	sess := session.New(session.Options{
		Store:    st,
		Notifier: notifier,
		Sizes:    imgtools.NewImageCache(),
		Logger:   log,
	})
	if err := sess.Restore(); err != nil {
		return err
	}

	markup := sess.Markup(cfg.Placeholders)
	fmt.Fprintln(stdout, markup)

	if copyOut {
		if err := copyToClipboard(markup); err != nil {
			notifier.Error("Could not copy to clipboard: " + err.Error())
			return err
		}
		notifier.Success("Copied to clipboard")
	}
	return nil
}

func cmdPreview(args []string, stdout io.Writer) error {
	if len(args) != 3 {
		return errors.New("usage: preview IMAGE MARKUP OUT")
	}
	imagePath, markupPath, outPath := args[0], args[1], args[2]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	text, err := readInput([]string{markupPath}, nil)
	if err != nil {
		return err
	}
	doc, err := imagemap.Parse(text)
	if err != nil {
		return err
	}

	img, err := imgtools.NewImageCache().Load(imagePath)
	if err != nil {
		return err
	}

	out, drawn := imgtools.RenderPreview(img, doc, cfg.PreviewMaxWidth)
	if err := imaging.Save(out, outPath); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d, %d regions)\n", outPath, out.Bounds().Dx(), out.Bounds().Dy(), len(drawn))
	return nil
}

func cmdInitConfig(args []string, stdout io.Writer) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no config path given and no user config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}
