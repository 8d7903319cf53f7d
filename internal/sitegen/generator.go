// Package sitegen orchestrates one site generation run: validate →
// process_assets → render → write, with per-stage timing, observer
// notifications, and cancellation honored between stages.
package sitegen

import (
	stdcontext "context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/metrics"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/retry"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/assemble"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/assets"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/render"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/seo"
	"git.home.luguber.info/inful/homeshow/internal/version"
)

// Request is one generation run's immutable input.
type Request struct {
	JobID    string
	Record   *property.Record
	Manifest *catalog.Manifest
	Options  context.Options
	// Target is the final output directory.
	Target string
}

// stage is a discrete unit of work operating on the build state.
type stage func(ctx stdcontext.Context, st *buildState) error

// stageDef pairs a stage name with its executing function.
type stageDef struct {
	Name StageName
	Fn   stage
}

// buildState carries intermediate products across stages. One per run;
// never shared.
type buildState struct {
	req    Request
	report *Report

	rc     *context.RenderContext
	seoCtx *seo.SEO
	assets *assets.Result
	docs   []render.Document
	stage  *assemble.Stage
}

// Generator runs generation requests. Safe for concurrent use; all
// per-run state lives in the build state.
type Generator struct {
	defaults  config.Defaults
	builder   *context.Builder
	pipeline  *assets.Pipeline
	renderer  *render.Renderer
	assembler *assemble.Assembler
	recorder  metrics.Recorder
	log       *slog.Logger
}

// NewGenerator wires a generator from configuration.
func NewGenerator(cfg *config.Config, recorder metrics.Recorder, log *slog.Logger) *Generator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Generator{
		defaults:  cfg.Defaults,
		builder:   context.NewBuilder(cfg.Defaults),
		pipeline:  assets.New(cfg.Assets, log),
		renderer:  render.New(cfg.Assets.HeroLimit, cfg.Defaults.PlaceholderImage, version.Generator()),
		assembler: assemble.New(retry.FromConfig(cfg.Retry), recorder, log),
		recorder:  recorder,
		log:       log,
	}
}

// Generate runs the full pipeline for one request. The returned error
// always carries the failing stage; the previous output directory is
// never disturbed by a failed run.
func (g *Generator) Generate(ctx stdcontext.Context, req Request, obs Observer) (*Report, error) {
	if obs == nil {
		obs = NoopObserver{}
	}
	st := &buildState{
		req:    req,
		report: newReport(req.JobID, req.Record.ID, req.Manifest.ID, req.Target),
	}
	start := time.Now()

	defs := []stageDef{
		{StageValidate, g.stageValidate},
		{StageProcessAssets, g.stageProcessAssets},
		{StageRender, g.stageRender},
		{StageWrite, g.stageWrite},
	}

	err := g.runStages(ctx, st, defs, obs)
	st.report.Duration = time.Since(start)
	g.recorder.ObserveJobDuration(st.report.Duration)

	if st.stage != nil {
		// After a successful swap the staging dir no longer exists;
		// after any failure this removes partial output.
		st.stage.Discard()
	}
	if err != nil {
		g.recorder.IncJobOutcome(outcomeFor(err))
		return st.report, err
	}
	g.recorder.IncJobOutcome("completed")
	return st.report, nil
}

// runStages executes stages in order, recording timing and stopping on
// the first error. Cancellation is observed between stages only; a
// stage that has begun runs to completion or failure.
func (g *Generator) runStages(ctx stdcontext.Context, st *buildState, defs []stageDef, obs Observer) error {
	for _, def := range defs {
		if cerr := ctx.Err(); cerr != nil {
			return errors.Wrap(cerr, errors.CategoryInternal, "generation canceled").
				WithStage(string(def.Name))
		}
		obs.StageStarted(st.req.JobID, def.Name)
		t0 := time.Now()
		err := def.Fn(ctx, st)
		d := time.Since(t0)
		st.report.StageDurations[def.Name] = d

		g.log.Debug("Stage finished",
			logfields.JobID(st.req.JobID),
			logfields.Stage(string(def.Name)),
			logfields.DurationMS(float64(d.Milliseconds())),
			logfields.Error(err))
		obs.StageFinished(st.req.JobID, def.Name, d, err)

		if err != nil {
			return withStage(err, def.Name)
		}
	}
	return nil
}

func (g *Generator) stageValidate(_ stdcontext.Context, st *buildState) error {
	rc, err := g.builder.Build(st.req.Record, st.req.Manifest, st.req.Options)
	if err != nil {
		return err
	}
	st.rc = rc
	return nil
}

func (g *Generator) stageProcessAssets(ctx stdcontext.Context, st *buildState) error {
	stg, err := assemble.NewStage(st.req.Target)
	if err != nil {
		return err
	}
	st.stage = stg

	res, err := g.pipeline.Process(ctx, st.rc.Media, stg.Dir(), st.rc.FeatureEnabled("gallery"))
	if err != nil {
		return err
	}
	st.assets = res
	st.report.AssetsProcessed = res.Processed
	st.report.AssetsDeduplicated = res.Deduplicated
	g.recorder.IncAssetsProcessed(res.Processed)
	g.recorder.IncAssetsDeduplicated(res.Deduplicated)
	return nil
}

func (g *Generator) stageRender(_ stdcontext.Context, st *buildState) error {
	ogImage := ""
	if imgs := st.assets.Images(); len(imgs) > 0 {
		ogImage = imgs[0].Full
	}
	seoCtx, err := seo.Compose(st.rc, st.req.Options, g.defaults, ogImage)
	if err != nil {
		return err
	}
	st.seoCtx = seoCtx

	st.report.GeneratedAt = time.Now().UTC()
	docs, err := g.renderer.Render(render.Params{
		Context:     st.rc,
		SEO:         seoCtx,
		Manifest:    st.req.Manifest,
		Options:     st.req.Options,
		Assets:      st.assets,
		GeneratedAt: st.report.GeneratedAt,
	})
	if err != nil {
		return err
	}
	st.docs = docs
	st.report.Documents = len(docs)
	return nil
}

func (g *Generator) stageWrite(ctx stdcontext.Context, st *buildState) error {
	return g.assembler.Finalize(ctx, st.stage, assemble.Inputs{
		Documents: st.docs,
		Manifest:  st.req.Manifest,
		Site: assemble.SiteManifest{
			Template:     st.req.Manifest.ID,
			Features:     st.rc.Features,
			GeneratedAt:  st.report.GeneratedAt,
			Generator:    version.Generator(),
			Fingerprints: st.assets.Fingerprints(),
		},
		WritePlaceholder: len(st.assets.Images()) == 0,
		PlaceholderPath:  g.defaults.PlaceholderImage,
	})
}

// withStage stamps the failing stage onto the error, wrapping untyped
// errors so every failure leaving the generator is classified.
func withStage(err error, name StageName) error {
	if pe, ok := err.(*errors.Error); ok {
		if pe.Stage == "" {
			pe.Stage = string(name)
		}
		return pe
	}
	return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("stage %s failed", name)).
		WithStage(string(name))
}

func outcomeFor(err error) string {
	if resultLabel(err) == metrics.ResultCanceled {
		return "canceled"
	}
	return "failed"
}
