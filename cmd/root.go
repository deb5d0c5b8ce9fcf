// Package cmd implements the CLI command structure for smarttodo.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"smarttodo/internal/ai"
	"smarttodo/internal/config"
	"smarttodo/internal/logging"
	"smarttodo/internal/store"
	"smarttodo/internal/store/pgstore"
	"smarttodo/internal/store/supabase"
	"smarttodo/internal/sync"
	"smarttodo/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the smarttodo CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("smarttodo", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		fmt.Println("smarttodo " + Version)
		return nil
	}

	// Determine the subcommand; no args means "tui".
	subcommand := "tui"
	remaining := fs.Args()
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		subcommand = remaining[0]
		remaining = remaining[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg)
	case "setup":
		return setupCommand(os.Stdout)
	case "init":
		return initCommand(os.Stdout)
	case "doctor":
		return doctorCommand(ctx, cfg, os.Stdout)
	case "version":
		fmt.Println("smarttodo " + Version)
		return nil
	case "help":
		printUsage(fs, os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

func tuiCommand(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return ui.RunTUI(ctx, orch)
}

func setupCommand(out io.Writer) error {
	fmt.Fprintln(out, "-- Run this in your Supabase SQL editor:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, store.SetupSQL)
	return nil
}

func initCommand(out io.Writer) error {
	const path = "smarttodo.toml"
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(config.Example), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func doctorCommand(ctx context.Context, cfg *config.Config, out io.Writer) error {
	fmt.Fprintf(out, "backend: %s\n", cfg.Backend)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "config: INVALID (%v)\n", err)
		return err
	}
	fmt.Fprintln(out, "config: ok")

	if cfg.HasAI() {
		fmt.Fprintf(out, "ai: enabled (model %s)\n", cfg.GeminiModel)
	} else {
		fmt.Fprintln(out, "ai: disabled (no GEMINI_API_KEY)")
	}

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "store: UNREACHABLE (%v)\n", err)
		return err
	}
	defer cleanup()

	if _, err := st.List(ctx); err != nil {
		if store.Classify(err) == store.KindSchemaMissing {
			fmt.Fprintln(out, "store: reachable, but the todos table is missing")
			fmt.Fprintln(out, "       run `smarttodo setup` and execute the SQL it prints")
			return nil
		}
		fmt.Fprintf(out, "store: FAILED (%v)\n", err)
		return err
	}
	fmt.Fprintln(out, "store: ok")
	return nil
}

// buildOrchestrator wires the configured collaborators into an orchestrator.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*sync.Orchestrator, func(), error) {
	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var aiClient ai.Client
	if cfg.HasAI() {
		gemini, err := ai.NewGemini(cfg.GeminiAPIKey, ai.WithModel(cfg.GeminiModel))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		aiClient = gemini
	}

	logger := logging.NewFromConfig(os.Stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	return sync.New(st, aiClient, logger), cleanup, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		st, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return st, st.Close, nil
	default:
		client, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey,
			supabase.WithTable(cfg.Table),
			supabase.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

func printUsage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintln(out, "smarttodo - AI-assisted todo list backed by Supabase")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  smarttodo [flags] [command]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  tui       Open the task list (default)")
	fmt.Fprintln(out, "  setup     Print the SQL that creates the todos table")
	fmt.Fprintln(out, "  init      Write an example smarttodo.toml")
	fmt.Fprintln(out, "  doctor    Check configuration and store connectivity")
	fmt.Fprintln(out, "  version   Print the version")
	fmt.Fprintln(out, "  help      Show this help")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}
