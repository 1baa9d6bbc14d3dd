package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/caseward/manualforge/internal/classify"
	"github.com/caseward/manualforge/internal/config"
	"github.com/caseward/manualforge/internal/events"
	"github.com/caseward/manualforge/internal/gitsource"
	"github.com/caseward/manualforge/internal/importer"
	"github.com/caseward/manualforge/internal/metrics"
	"github.com/caseward/manualforge/internal/server"
	"github.com/caseward/manualforge/internal/server/responses"
	"github.com/caseward/manualforge/internal/store"
	"github.com/caseward/manualforge/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"manualforge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Import struct {
		File        string `arg:"" help:"Document to import (.pdf, .docx, .md)"`
		DryRun      bool   `help:"Preview the extracted structure without persisting"`
		Granularity string `help:"Markdown section granularity" enum:"h2,h3," default:""`
		Title       string `help:"Override the derived manual title"`
		Actor       string `help:"User recorded as the manual creator"`
	} `cmd:"" help:"Import a single document as a new manual"`

	Merge struct {
		Paths       []string `arg:"" optional:"" help:"Document parts to merge into one manual"`
		GitURL      string   `help:"Clone markdown parts from this git repository instead"`
		Branch      string   `help:"Branch to clone (default branch if empty)"`
		DryRun      bool     `help:"Preview the merged structure without persisting"`
		Granularity string   `help:"Markdown section granularity" enum:"h2,h3," default:""`
		Title       string   `help:"Override the derived manual title"`
		Actor       string   `help:"User recorded as the manual creator"`
	} `cmd:"" help:"Merge multi-part documents into one manual"`

	Snapshot struct {
		Export struct {
			Out string `short:"o" help:"Snapshot file to write" default:"snapshot.json"`
		} `cmd:"" help:"Export the store as a JSON snapshot"`
		Import struct {
			In            string `arg:"" help:"Snapshot file to replay"`
			FallbackActor string `help:"Actor substituted for unknown authors" default:"migration-bot"`
		} `cmd:"" help:"Replay a JSON snapshot into the store"`
	} `cmd:"" help:"Export or replay store snapshots"`

	Serve struct{} `cmd:"" help:"Run the HTTP import API with metrics and inbox watching"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if ctx.Command() == "init" {
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch ctx.Command() {
	case "import <file>":
		err = runImport(cfg)
	case "merge <paths>", "merge":
		err = runMerge(cfg)
	case "snapshot export":
		err = runSnapshotExport(cfg, CLI.Snapshot.Export.Out)
	case "snapshot import <in>":
		err = runSnapshotImport(cfg, CLI.Snapshot.Import.In, CLI.Snapshot.Import.FallbackActor)
	case "serve":
		err = runServe(cfg)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// newOrchestrator builds a preview/commit pipeline over the configured
// store. The caller owns closing the returned store.
func newOrchestrator(cfg *config.Config) (*importer.Orchestrator, *store.Store, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	ps, err := classify.Lookup(cfg.Import.PatternSet)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return importer.New(st, importer.WithPatternSet(ps)), st, nil
}

func importOptions(cfg *config.Config, granularity, title string) importer.Options {
	if granularity == "" {
		granularity = cfg.Import.Granularity
	}
	return importer.Options{Granularity: granularity, ManualTitle: title}
}

func resolveActor(cfg *config.Config, actor string) string {
	if actor != "" {
		return actor
	}
	return cfg.Import.DefaultActor
}

func runImport(cfg *config.Config) error {
	payload, err := os.ReadFile(CLI.Import.File)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	doc := importer.Document{Filename: CLI.Import.File, Payload: payload}
	opts := importOptions(cfg, CLI.Import.Granularity, CLI.Import.Title)

	orch, st, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if CLI.Import.DryRun {
		res, err := orch.Preview(ctx, doc, opts)
		if err != nil {
			return err
		}
		return printPreview(res)
	}

	manualID, err := orch.Commit(ctx, doc, opts, resolveActor(cfg, CLI.Import.Actor))
	if err != nil {
		return err
	}
	fmt.Println(manualID)
	return nil
}

func runMerge(cfg *config.Config) error {
	var parts []importer.Part
	switch {
	case CLI.Merge.GitURL != "":
		fetched, cleanup, err := gitsource.Fetch(CLI.Merge.GitURL, CLI.Merge.Branch)
		if err != nil {
			return err
		}
		defer cleanup()
		parts = fetched
	case len(CLI.Merge.Paths) > 0:
		for _, path := range CLI.Merge.Paths {
			payload, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read part %s: %w", path, err)
			}
			parts = append(parts, importer.Part{Filename: path, Payload: payload})
		}
	default:
		return fmt.Errorf("merge needs file paths or --git-url")
	}

	opts := importOptions(cfg, CLI.Merge.Granularity, CLI.Merge.Title)

	orch, st, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if CLI.Merge.DryRun {
		res, err := orch.PreviewMerged(ctx, parts, opts)
		if err != nil {
			return err
		}
		return printPreview(res)
	}

	manualID, err := orch.CommitMerged(ctx, parts, opts, resolveActor(cfg, CLI.Merge.Actor))
	if err != nil {
		return err
	}
	fmt.Println(manualID)
	return nil
}

func printPreview(res *importer.Result) error {
	out, err := json.MarshalIndent(responses.PreviewFrom(res.Structure), "", "  ")
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	fmt.Println(string(out))
	slog.Info("Preview computed", "sections", res.Summary.Sections, "policies", res.Summary.Policies)
	return nil
}

func runSnapshotExport(cfg *config.Config, out string) error {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	snap, err := st.ExportSnapshot(context.Background())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	slog.Info("Snapshot exported", "path", out,
		"manuals", len(snap.Manuals), "sections", len(snap.Sections), "policies", len(snap.Policies))
	return nil
}

func runSnapshotImport(cfg *config.Config, in, fallbackActor string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.ImportSnapshot(context.Background(), &snap, fallbackActor); err != nil {
		return err
	}
	slog.Info("Snapshot imported", "path", in, "manuals", len(snap.Manuals))
	return nil
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ps, err := classify.Lookup(cfg.Import.PatternSet)
	if err != nil {
		return err
	}

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	opts := []importer.Option{
		importer.WithPatternSet(ps),
		importer.WithRecorder(recorder),
	}
	if cfg.NATS.URL != "" {
		pub, err := events.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return fmt.Errorf("connect event bus: %w", err)
		}
		defer pub.Close()
		opts = append(opts, importer.WithPublisher(pub))
	}
	orch := importer.New(st, opts...)

	if cfg.Inbox.Directory != "" {
		watcher, err := watch.New(cfg.Inbox.Directory, orch,
			importOptions(cfg, "", ""), cfg.Import.DefaultActor, cfg.Inbox.SweepEvery())
		if err != nil {
			return fmt.Errorf("create inbox watcher: %w", err)
		}
		go func() {
			if err := watcher.Start(ctx); err != nil {
				slog.Error("Inbox watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(cfg.Listen, orch, st, cfg.Import.DefaultActor, registry)
	slog.Info("Starting import API", "listen", cfg.Listen, "store", cfg.StorePath)
	return srv.Start(ctx)
}
