// Command homeshow generates self-contained real-estate listing
// websites from a property store and a template catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/metrics"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"homeshow.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Generate struct {
		Property    string   `short:"p" required:"" help:"Property identifier"`
		Template    string   `short:"t" help:"Template identifier" default:"modern"`
		Output      string   `short:"o" help:"Output directory (relative paths resolve under output.root)"`
		Features    []string `short:"f" help:"Features to enable (must be declared by the template)"`
		SEOTitle    string   `help:"Override the page title"`
		SEODesc     string   `name:"seo-description" help:"Override the meta description"`
		SEOKeywords string   `help:"Override the meta keywords"`
		Analytics   string   `help:"Analytics identifier injected into the pages"`
	} `cmd:"" help:"Generate a listing website for one property"`

	Templates struct {
		List struct{} `cmd:"" help:"List available templates"`

		Fetch struct{} `cmd:"" help:"Clone or update the configured template pack repository"`

		Validate struct {
			Dir string `arg:"" help:"Template directory to validate"`
		} `cmd:"" help:"Validate a template definition"`
	} `cmd:"" help:"Manage the template catalog"`

	Properties struct {
		List struct{} `cmd:"" help:"List properties in the store"`

		Show struct {
			ID string `arg:"" help:"Property identifier"`
		} `cmd:"" help:"Show one property record"`
	} `cmd:"" help:"Inspect the property store"`

	Watch struct {
		Property string   `short:"p" required:"" help:"Property identifier to regenerate"`
		Template string   `short:"t" help:"Template identifier" default:"modern"`
		Output   string   `short:"o" help:"Output directory"`
		Features []string `short:"f" help:"Features to enable"`
	} `cmd:"" help:"Regenerate when the property store or templates change"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("homeshow"),
		kong.Description("Static real-estate listing website generator"))

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(kctx.Command(), logger); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(command string, logger *slog.Logger) error {
	switch command {
	case "generate":
		return runGenerate(logger)
	case "templates list":
		return runTemplatesList()
	case "templates fetch":
		return runTemplatesFetch(logger)
	case "templates validate <dir>":
		return runTemplatesValidate()
	case "properties list":
		return runPropertiesList()
	case "properties show <id>":
		return runPropertiesShow()
	case "watch":
		return runWatch(logger)
	case "init":
		return runInit()
	case "version":
		fmt.Printf("homeshow %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// loadEnvironment loads config and opens the store and catalog shared
// by most commands.
func loadEnvironment() (*config.Config, property.Store, *catalog.Catalog, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := property.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open property store: %w", err)
	}
	cat := catalog.New(cfg.Templates.Dir)
	if err := cat.EnsureBuiltins(); err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return cfg, store, cat, nil
}

// newRecorder starts the metrics endpoint when enabled.
func newRecorder(cfg *config.Config, logger *slog.Logger) metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return metrics.NoopRecorder{}
	}
	rec := metrics.NewPrometheusRecorder(prom.NewRegistry())
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		logger.Info("Metrics endpoint listening", "addr", cfg.Metrics.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics endpoint failed", "error", err)
		}
	}()
	return rec
}

func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", CLI.Config)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
