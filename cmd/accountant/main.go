package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/ai-accountant/internal/app"
	"github.com/zombor/ai-accountant/internal/notify"
	"github.com/zombor/ai-accountant/internal/store"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// rootConfig holds the flags shared by every subcommand
type rootConfig struct {
	apiURL    *string
	statePath *string
	exportDir *string
	timeout   *time.Duration
	noticeTTL *time.Duration
	logLevel  *string
}

// runtime is what a subcommand gets once the state file is open
type runtime struct {
	app   *app.App
	prefs *store.BoltPreferences
}

func (r *runtime) Close() {
	if err := r.prefs.Close(); err != nil {
		slog.Error("Failed to close state", "error", err)
	}
}

// open builds the App from the parsed root flags
func (c *rootConfig) open() (*runtime, error) {
	prefs, err := store.NewBoltPreferences(*c.statePath)
	if err != nil {
		return nil, err
	}

	a, err := app.New(app.Config{
		APIURL:    *c.apiURL,
		Timeout:   *c.timeout,
		NoticeTTL: *c.noticeTTL,
		ExportDir: *c.exportDir,
		OnNotice:  printNotice,
	}, prefs)
	if err != nil {
		prefs.Close()
		return nil, err
	}
	return &runtime{app: a, prefs: prefs}, nil
}

// selected is the subcommand the arguments chose, or root before parsing
func selected(root *ff.Command) *ff.Command {
	if cmd := root.GetSelected(); cmd != nil {
		return cmd
	}
	return root
}

func printNotice(n notify.Notification) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Severity, n.Message)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	rootFlags := ff.NewFlagSet("accountant")
	cfg := &rootConfig{
		apiURL:    rootFlags.StringLong("api-url", "http://localhost:8000/api", "Backend API base URL"),
		statePath: rootFlags.StringLong("state", "accountant.db", "Local state file path"),
		exportDir: rootFlags.StringLong("export-dir", ".", "Directory exports are saved to"),
		timeout:   rootFlags.DurationLong("timeout", 30*time.Second, "HTTP request timeout"),
		noticeTTL: rootFlags.DurationLong("notice-ttl", notify.DefaultTTL, "How long notifications stay visible"),
		logLevel:  rootFlags.StringLong("log-level", "info", "Log level: debug, info, warn or error"),
	}
	_ = rootFlags.BoolLong("version", "Show version information")

	root := &ff.Command{
		Name:        "accountant",
		Usage:       "accountant [FLAGS] <SUBCOMMAND> ...",
		ShortHelp:   "Upload receipts and invoices, review the extracted transactions and export them",
		Flags:       rootFlags,
		Subcommands: commands(cfg, rootFlags),
	}

	if err := root.Parse(os.Args[1:], ff.WithEnvVarPrefix("ACCOUNTANT")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(selected(root)))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*cfg.logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *cfg.logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(selected(root)))
			os.Exit(1)
		}
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
