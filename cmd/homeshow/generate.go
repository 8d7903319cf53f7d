package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/jobs"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/sitegen"
	sgcontext "git.home.luguber.info/inful/homeshow/internal/sitegen/context"
)

// resolveTarget places relative output paths under the configured
// output root; an empty output defaults to <root>/<property-id>.
func resolveTarget(cfg *config.Config, output, propertyID string) string {
	if output == "" {
		return filepath.Join(cfg.Output.Root, propertyID)
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(cfg.Output.Root, output)
}

func runGenerate(logger *slog.Logger) error {
	cfg, store, cat, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := newRecorder(cfg, logger)
	gen := sitegen.NewGenerator(cfg, recorder, logger)
	queue := jobs.NewQueue(1, 1, gen, store, cat, recorder, logger)

	ctx, cancel := signalContext()
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	job, notifications, err := queue.Submit(jobs.SubmitRequest{
		PropertyID: CLI.Generate.Property,
		TemplateID: CLI.Generate.Template,
		Target:     resolveTarget(cfg, CLI.Generate.Output, CLI.Generate.Property),
		Options: sgcontext.Options{
			Features:       CLI.Generate.Features,
			SEOTitle:       CLI.Generate.SEOTitle,
			SEODescription: CLI.Generate.SEODesc,
			SEOKeywords:    CLI.Generate.SEOKeywords,
			AnalyticsID:    CLI.Generate.Analytics,
		},
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		queue.Cancel(job.ID)
	}()

	for n := range notifications {
		if !n.Terminal {
			logger.Info("Progress", logfields.JobID(n.JobID), logfields.JobState(string(n.State)))
			continue
		}
		if n.Err != nil {
			return n.Err
		}
		fmt.Printf("Generated %s\n", n.OutputDir)
	}
	return nil
}
