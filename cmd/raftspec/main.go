package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/config"
	"github.com/fwojciec/raftspec/sqlite"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Overrides the configured path when set before calling
	// Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	RecordService raftspec.RecordService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("raftspec"),
		kong.Description("Extract liferaft records from manuals and servicing certificates."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		err := fmt.Errorf("no command specified. Run 'raftspec --help' to see available commands")
		fmt.Fprintf(stderr, "error: %s\n", err)
		return err
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}
	deps.Config = cfg
	deps.Logger = newLogger(stderr, cli.Verbose)

	dbPath := cfg.Database
	if cli.DB != "" {
		dbPath = cli.DB
	}
	if m.DBPath != "" {
		dbPath = m.DBPath
	}

	// Open the database when one is configured. Storage is optional for
	// extract and required for the query commands.
	if m.RecordService == nil && dbPath != "" {
		m.DB = sqlite.NewDB(dbPath)
		if err := m.DB.Open(); err != nil {
			err = fmt.Errorf("failed to open database at %q: %w", dbPath, err)
			fmt.Fprintf(stderr, "error: %s\n", err)
			fmt.Fprintf(stderr, "Hint: Set RAFTSPEC_DATABASE or --db to use a different database path\n")
			return err
		}
		defer m.Close()
		m.RecordService = sqlite.NewRecordService(m.DB)
	}
	deps.Records = m.RecordService

	if strings.HasPrefix(kongCtx.Command(), "extract") {
		p, err := newPipeline(cfg, deps.Logger)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", raftspec.ErrorMessage(err))
			return err
		}
		deps.Pipeline = p
	}

	return kongCtx.Run(deps)
}

// newLogger returns a text logger on w when verbose is set and a discarding
// logger otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
