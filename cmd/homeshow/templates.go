package main

import (
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
)

func runTemplatesList() error {
	_, store, cat, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	manifests, err := cat.List()
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Println("No templates found.")
		return nil
	}
	for _, m := range manifests {
		fmt.Printf("%-16s %-24s features: %s\n", m.ID, m.Name, strings.Join(m.Features, ", "))
	}
	return nil
}

func runTemplatesFetch(logger *slog.Logger) error {
	cfg, store, _, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Templates.PackURL == "" {
		return fmt.Errorf("templates.pack_url is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	fetcher := catalog.NewFetcher(cfg.Templates.PackURL, cfg.Templates.PackBranch, cfg.Templates.Dir)
	if err := fetcher.Fetch(ctx); err != nil {
		return err
	}
	logger.Info("Template pack up to date", logfields.URL(cfg.Templates.PackURL))
	return nil
}

func runTemplatesValidate() error {
	m, err := catalog.Load(CLI.Templates.Validate.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Template %q is valid: %d sections, %d pages, features: %s\n",
		m.ID, len(m.Sections), len(m.Pages), strings.Join(m.Features, ", "))
	return nil
}
