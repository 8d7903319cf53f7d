package main

import (
	"log/slog"

	"git.home.luguber.info/inful/homeshow/internal/jobs"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/sitegen"
	sgcontext "git.home.luguber.info/inful/homeshow/internal/sitegen/context"
	"git.home.luguber.info/inful/homeshow/internal/watch"
)

func runWatch(logger *slog.Logger) error {
	cfg, store, cat, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := newRecorder(cfg, logger)
	gen := sitegen.NewGenerator(cfg, recorder, logger)
	queue := jobs.NewQueue(1, 10, gen, store, cat, recorder, logger)

	ctx, cancel := signalContext()
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	request := jobs.SubmitRequest{
		PropertyID: CLI.Watch.Property,
		TemplateID: CLI.Watch.Template,
		Target:     resolveTarget(cfg, CLI.Watch.Output, CLI.Watch.Property),
		Options:    sgcontext.Options{Features: CLI.Watch.Features},
	}

	regenerate := func(reason string) {
		job, notifications, err := queue.Submit(request)
		if err != nil {
			logger.Error("Failed to enqueue regeneration", logfields.Error(err))
			return
		}
		logger.Info("Regenerating", logfields.JobID(job.ID), slog.String("reason", reason))
		go func() {
			for n := range notifications {
				if !n.Terminal {
					continue
				}
				if n.Err != nil {
					logger.Error("Regeneration failed", logfields.JobID(n.JobID), logfields.Error(n.Err))
				} else {
					logger.Info("Regeneration complete", logfields.JobID(n.JobID), logfields.Target(n.OutputDir))
				}
			}
		}()
	}

	// Generate once up front so the output exists before any change.
	regenerate("startup")

	watcher, err := watch.New(cfg.Watch, []string{cfg.Store.Path, cfg.Templates.Dir}, regenerate, logger)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
