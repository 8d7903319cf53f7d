package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/homeshow/internal/logfields"
)

// Fetcher clones or updates a template pack repository into the
// catalog directory. Packs are plain git repositories whose top-level
// directories are template definitions.
type Fetcher struct {
	url    string
	branch string
	dir    string
}

// NewFetcher creates a fetcher for the given pack URL and catalog dir.
func NewFetcher(url, branch, dir string) *Fetcher {
	return &Fetcher{url: url, branch: branch, dir: dir}
}

// Fetch clones the pack on first run and pulls on subsequent runs.
func (f *Fetcher) Fetch(ctx context.Context) error {
	if f.url == "" {
		return fmt.Errorf("no template pack URL configured")
	}
	packDir := filepath.Join(f.dir, ".pack")

	if _, err := os.Stat(filepath.Join(packDir, ".git")); err == nil {
		return f.update(ctx, packDir)
	}
	return f.clone(ctx, packDir)
}

func (f *Fetcher) clone(ctx context.Context, packDir string) error {
	slog.Info("Cloning template pack", logfields.URL(f.url), logfields.Path(packDir))
	opts := &git.CloneOptions{URL: f.url, Depth: 1}
	if f.branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + f.branch)
		opts.SingleBranch = true
	}
	repo, err := git.PlainCloneContext(ctx, packDir, false, opts)
	if err != nil {
		return fmt.Errorf("clone template pack %s: %w", f.url, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Template pack cloned", slog.String("commit", ref.Hash().String()[:8]))
	}
	return f.link(packDir)
}

func (f *Fetcher) update(ctx context.Context, packDir string) error {
	slog.Info("Updating template pack", logfields.Path(packDir))
	repo, err := git.PlainOpen(packDir)
	if err != nil {
		return fmt.Errorf("open template pack: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open pack worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("pull template pack: %w", err)
	}
	return f.link(packDir)
}

// link copies every valid template in the pack into the catalog dir so
// the catalog sees a flat directory layout regardless of pack structure.
func (f *Fetcher) link(packDir string) error {
	entries, err := os.ReadDir(packDir)
	if err != nil {
		return fmt.Errorf("read template pack: %w", err)
	}
	installed := 0
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ".git" {
			continue
		}
		src := filepath.Join(packDir, e.Name())
		if _, err := os.Stat(filepath.Join(src, ManifestFilename)); err != nil {
			continue
		}
		dst := filepath.Join(f.dir, e.Name())
		if err := copyTree(src, dst); err != nil {
			return fmt.Errorf("install template %s: %w", e.Name(), err)
		}
		installed++
	}
	slog.Info("Template pack installed", slog.Int("templates", installed))
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o750)
		}
		data, err := os.ReadFile(path) // #nosec G304 -- walking a directory we cloned
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o600)
	})
}
