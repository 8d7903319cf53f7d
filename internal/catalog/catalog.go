package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
)

//go:embed builtin
var builtinFS embed.FS

// Catalog scans a directory of template definitions and resolves
// manifests by id. Built-in templates shipped with the binary are
// materialized into the directory on first use, so custom packs and
// builtins live side by side and can be overridden the same way.
type Catalog struct {
	dir string
}

// New creates a catalog over dir.
func New(dir string) *Catalog { return &Catalog{dir: dir} }

// Dir returns the catalog directory.
func (c *Catalog) Dir() string { return c.dir }

// EnsureBuiltins writes the embedded built-in templates into the
// catalog directory unless a template with the same id already exists
// there (user copies win).
func (c *Catalog) EnsureBuiltins() error {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		target := filepath.Join(c.dir, e.Name())
		if _, err := os.Stat(filepath.Join(target, ManifestFilename)); err == nil {
			continue // already present, leave untouched
		}
		if err := c.materialize("builtin/"+e.Name(), target); err != nil {
			return fmt.Errorf("install builtin template %s: %w", e.Name(), err)
		}
		slog.Info("Installed builtin template", logfields.Template(e.Name()), logfields.Path(target))
	}
	return nil
}

func (c *Catalog) materialize(src, dst string) error {
	return fs.WalkDir(builtinFS, src, func(path string, d fs.DirEntry, err error) error {
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
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o600)
	})
}

// List returns all manifests found in the catalog directory, sorted by id.
func (c *Catalog) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, fmt.Sprintf("read templates directory %s", c.dir))
	}
	var out []*Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(c.dir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFilename)); err != nil {
			continue // not a template directory
		}
		m, err := Load(dir)
		if err != nil {
			slog.Warn("Skipping invalid template", logfields.Path(dir), logfields.Error(err))
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get resolves one manifest by template id.
func (c *Catalog) Get(id string) (*Manifest, error) {
	manifests, err := c.List()
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, errors.Newf(errors.CategoryConfig, "template %q not found in %s", id, c.dir)
}
