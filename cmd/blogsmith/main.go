// Command blogsmith generates a technical blog post for a topic.
//
// It loads configuration from a YAML file and the environment, runs the
// generation pipeline, writes the markdown and HTML output to disk, and
// records the run in a local SQLite database.
//
// Usage:
//
//	blogsmith -topic "Understanding Go Channels" [-config blogsmith.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calegray/blogsmith/pkg/blogsmith/compose"
	"github.com/calegray/blogsmith/pkg/blogsmith/config"
	"github.com/calegray/blogsmith/pkg/blogsmith/event"
	"github.com/calegray/blogsmith/pkg/blogsmith/observability"
	"github.com/calegray/blogsmith/pkg/blogsmith/provider"
	"github.com/calegray/blogsmith/pkg/blogsmith/store"
	"github.com/calegray/blogsmith/pkg/blogsmith/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		topic      = flag.String("topic", "", "blog post topic (required)")
		configPath = flag.String("config", "", "path to YAML config file")
		model      = flag.String("model", "", "override the configured model")
		research   = flag.Bool("research", false, "enable the research stage")
		images     = flag.String("images", "", "image provider: none or openai")
		outDir     = flag.String("out", "", "override the output directory")
		dbPath     = flag.String("db", "", "override the run database path")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Flags set on the command line win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model = *model
		case "research":
			cfg.EnableResearch = *research
		case "images":
			cfg.ImageProvider = *images
		case "out":
			cfg.OutputDir = *outDir
		case "db":
			cfg.DBPath = *dbPath
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *topic == "" {
		return errors.New("-topic is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	bus := event.NewBus(event.DefaultBuffer)
	defer bus.Close()
	progress, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	go func() {
		for p := range progress {
			if p.Status == event.StatusFailed {
				fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", p.Status, p.Stage, p.Err)
				continue
			}
			fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Status, p.Stage)
		}
	}()

	wf, err := workflow.New(
		workflow.Options{
			EnableResearch: cfg.EnableResearch,
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			MaxEvidence:    cfg.MaxEvidence,
		},
		providers,
		workflow.WithLogger(logger),
		workflow.WithEmitter(bus),
		workflow.WithMetrics(observability.NewMetricsRecorder()),
	)
	if err != nil {
		return err
	}

	started := time.Now()
	state, runErr := wf.Run(ctx, *topic)
	finished := time.Now()

	if cfg.DBPath != "" {
		if err := persistRun(state, runErr, *topic, started, finished, cfg.DBPath); err != nil {
			logger.Warn("failed to persist run", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	mdPath, htmlPath, err := writeOutput(cfg.OutputDir, state)
	if err != nil {
		return err
	}

	fmt.Println("wrote", mdPath)
	fmt.Println("wrote", htmlPath)
	for _, note := range state.Errors {
		fmt.Fprintf(os.Stderr, "note: %s: %s\n", note.Stage, note.Message)
	}
	return nil
}

// buildProviders constructs the real provider set from configuration.
func buildProviders(cfg config.Config) (workflow.Providers, error) {
	text, err := provider.NewOpenAIText(provider.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return workflow.Providers{}, fmt.Errorf("text provider: %w", err)
	}
	providers := workflow.Providers{Text: text}

	if cfg.ImageProvider == config.ImageProviderOpenAI {
		image, err := provider.NewOpenAIImage(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return workflow.Providers{}, fmt.Errorf("image provider: %w", err)
		}
		providers.Image = image
	}

	if cfg.EnableResearch {
		research, err := provider.NewTavily(cfg.TavilyAPIKey)
		if err != nil {
			return workflow.Providers{}, fmt.Errorf("research provider: %w", err)
		}
		providers.Research = research
	}

	return providers, nil
}

// writeOutput renders the document to markdown and HTML files under dir.
func writeOutput(dir string, state workflow.BlogState) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}

	slug := compose.Slug(state.Plan.Title)
	mdPath := filepath.Join(dir, slug+".md")
	if err := os.WriteFile(mdPath, []byte(state.Document), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown: %w", err)
	}

	html, err := compose.HTML(state.Document)
	if err != nil {
		return "", "", err
	}
	htmlPath := filepath.Join(dir, slug+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", "", fmt.Errorf("write html: %w", err)
	}

	return mdPath, htmlPath, nil
}

// persistRun records the run outcome and its image references.
func persistRun(state workflow.BlogState, runErr error, topic string, started, finished time.Time, dbPath string) error {
	st, err := store.NewArtifactStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	status := store.StatusCompleted
	notes := make([]string, 0, len(state.Errors))
	for _, n := range state.Errors {
		notes = append(notes, n.Stage+": "+n.Message)
	}
	if runErr != nil {
		status = store.StatusFailed
		notes = append(notes, "fatal: "+runErr.Error())
	}

	runID := state.RunID
	if runID == "" {
		runID = compose.Slug(topic) + "-" + started.UTC().Format("20060102T150405Z")
	}

	if err := st.SaveRun(store.RunRecord{
		ID:         runID,
		Topic:      topic,
		Status:     status,
		Document:   state.Document,
		Notes:      notes,
		StartedAt:  started,
		FinishedAt: finished,
	}); err != nil {
		return err
	}

	for id, ref := range state.Images {
		if err := st.SaveImage(runID, id, ref); err != nil {
			return err
		}
	}
	return nil
}
