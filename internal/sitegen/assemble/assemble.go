// Package assemble writes a generated site to disk. Everything is
// staged in a sibling directory on the same filesystem, then swapped
// into the target path in one rename sequence, so a failure at any
// point leaves the previous output untouched.
package assemble

import (
	stdcontext "context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/metrics"
	"git.home.luguber.info/inful/homeshow/internal/retry"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/render"
)

// SiteManifestName is the machine-readable generation record written
// into every output directory.
const SiteManifestName = "homeshow-manifest.json"

// placeholderSVG is written when a property resolved zero images. An
// inline SVG keeps generation fully self-contained.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600" viewBox="0 0 800 600">
  <rect width="800" height="600" fill="#ecf0f1"/>
  <path d="M400 180 L540 300 L510 300 L510 420 L290 420 L290 300 L260 300 Z" fill="#bdc3c7"/>
  <rect x="370" y="350" width="60" height="70" fill="#ecf0f1"/>
  <text x="400" y="470" text-anchor="middle" font-family="sans-serif" font-size="24" fill="#95a5a6">No photo available</text>
</svg>
`

// SiteManifest records what produced an output directory. GeneratedAt
// is the only field that changes between identical regenerations.
type SiteManifest struct {
	Template     string            `json:"template"`
	Features     []string          `json:"features"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Generator    string            `json:"generator"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// Stage is the staging directory of one job. The asset pipeline writes
// media into it while the job runs; Finalize swaps it into the target.
type Stage struct {
	target string
	dir    string
}

// NewStage creates the staging directory next to the target path so
// the final rename never crosses filesystems.
func NewStage(target string) (*Stage, error) {
	target = filepath.Clean(target)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return nil, errors.Wrap(err, errors.CategoryWrite, "create output parent directory")
	}
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.Wrap(err, errors.CategoryWrite, "generate staging suffix")
	}
	dir := fmt.Sprintf("%s.staging-%s", target, hex.EncodeToString(suffix))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.CategoryWrite, fmt.Sprintf("create staging directory %s", dir))
	}
	return &Stage{target: target, dir: dir}, nil
}

// Dir returns the staging root; media and documents are written
// beneath it before the swap.
func (s *Stage) Dir() string { return s.dir }

// Target returns the final output path.
func (s *Stage) Target() string { return s.target }

// Discard removes the staging directory. Safe to call after a
// successful swap (the directory no longer exists then).
func (s *Stage) Discard() {
	_ = os.RemoveAll(s.dir)
}

// Assembler finalizes staged output. Transient write failures are
// retried per the policy before surfacing a write error.
type Assembler struct {
	policy   retry.Policy
	recorder metrics.Recorder
	log      *slog.Logger
}

// New creates an assembler.
func New(policy retry.Policy, recorder metrics.Recorder, log *slog.Logger) *Assembler {
	return &Assembler{policy: policy, recorder: recorder, log: log}
}

// Inputs collects everything Finalize writes besides the media the
// asset pipeline already staged.
type Inputs struct {
	Documents []render.Document
	Manifest  *catalog.Manifest
	Site      SiteManifest
	// WritePlaceholder requests the fallback image at PlaceholderPath
	// (site-relative) because the property resolved zero images.
	WritePlaceholder bool
	PlaceholderPath  string
}

// Finalize writes documents, static assets, and the site manifest into
// the stage, then atomically swaps the stage into the target path.
// On any error the previous output is left untouched; the caller
// discards the stage.
func (a *Assembler) Finalize(ctx stdcontext.Context, stage *Stage, in Inputs) error {
	if err := a.populate(stage, in); err != nil {
		return err
	}
	return a.swap(ctx, stage)
}

func (a *Assembler) populate(stage *Stage, in Inputs) error {
	for _, doc := range in.Documents {
		if err := writeDocument(stage.dir, doc); err != nil {
			return err
		}
	}

	for _, sub := range []string{in.Manifest.Assets.CSS, in.Manifest.Assets.JS} {
		if sub == "" {
			continue
		}
		src := filepath.Join(in.Manifest.Root, filepath.FromSlash(sub))
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue // template ships no such asset dir
		}
		if err := copyTree(src, filepath.Join(stage.dir, filepath.FromSlash(sub))); err != nil {
			return errors.Wrap(err, errors.CategoryWrite, fmt.Sprintf("copy template assets %s", sub))
		}
	}

	if in.WritePlaceholder && in.PlaceholderPath != "" {
		if err := writeDocument(stage.dir, render.Document{
			Path:    in.PlaceholderPath,
			Content: []byte(placeholderSVG),
		}); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(in.Site, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "marshal site manifest")
	}
	return writeDocument(stage.dir, render.Document{Path: SiteManifestName, Content: append(data, '\n')})
}

// swap replaces the target with the stage. The previous output is
// parked at <target>.old until the new tree is in place, and restored
// if the final rename fails.
func (a *Assembler) swap(ctx stdcontext.Context, stage *Stage) error {
	var lastErr error
	for attempt := 0; attempt <= a.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			a.recorder.IncWriteRetry()
			delay := a.policy.Delay(attempt)
			a.log.Warn("Retrying output swap",
				logfields.Target(stage.target),
				slog.Int("attempt", attempt),
				logfields.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		lastErr = a.swapOnce(stage)
		if lastErr == nil {
			return nil
		}
	}
	return errors.Wrap(lastErr, errors.CategoryWrite,
		fmt.Sprintf("swap staged output into %s", stage.target)).
		WithContext("target", stage.target)
}

func (a *Assembler) swapOnce(stage *Stage) error {
	old := stage.target + ".old"
	hadPrevious := false
	if _, err := os.Stat(stage.target); err == nil {
		hadPrevious = true
		_ = os.RemoveAll(old) // leftovers from an interrupted earlier swap
		if err := os.Rename(stage.target, old); err != nil {
			return fmt.Errorf("park previous output: %w", err)
		}
	}

	if err := os.Rename(stage.dir, stage.target); err != nil {
		if hadPrevious {
			if rerr := os.Rename(old, stage.target); rerr != nil {
				a.log.Error("Failed to restore previous output after swap failure",
					logfields.Target(stage.target), logfields.Error(rerr))
			}
		}
		return fmt.Errorf("activate staged output: %w", err)
	}

	if hadPrevious {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeDocument(root string, doc render.Document) error {
	path := filepath.Join(root, filepath.FromSlash(doc.Path))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryWrite, fmt.Sprintf("create directory for %s", doc.Path))
	}
	if err := os.WriteFile(path, doc.Content, 0o640); err != nil { // #nosec G306 -- generated site files are world-servable
		return errors.Wrap(err, errors.CategoryWrite, fmt.Sprintf("write %s", doc.Path)).
			WithContext("path", doc.Path)
	}
	return nil
}

// copyTree copies a directory recursively, verbatim.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(out, 0o750)
		}
		in, err := os.Open(path) // #nosec G304 -- template dir is operator controlled
		if err != nil {
			return err
		}
		defer in.Close()
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return err
		}
		f, err := os.Create(out) // #nosec G304 -- destination inside staging dir
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(f, in); err != nil {
			return err
		}
		return f.Close()
	})
}
