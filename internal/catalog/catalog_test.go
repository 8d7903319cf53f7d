package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/homeshow/internal/errors"
)

func TestEnsureBuiltinsMaterializesModern(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	require.NoError(t, c.EnsureBuiltins())

	m, err := Load(filepath.Join(dir, "modern"))
	require.NoError(t, err)
	assert.Equal(t, "modern", m.ID)
	assert.Contains(t, m.Features, "gallery")
	assert.Contains(t, m.Features, "mortgage-calculator")

	// Static assets come along with the manifest.
	assert.FileExists(t, filepath.Join(dir, "modern", "css", "style.css"))
	assert.FileExists(t, filepath.Join(dir, "modern", "js", "script.js"))
	assert.FileExists(t, filepath.Join(dir, "modern", "index.html.tmpl"))
}

func TestEnsureBuiltinsKeepsUserCopy(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "modern")
	require.NoError(t, os.MkdirAll(custom, 0o750))
	customYAML := []byte(`
id: modern
name: Customized Modern
pages:
  - {name: index, template: index.html.tmpl, output: index.html}
`)
	require.NoError(t, os.WriteFile(filepath.Join(custom, ManifestFilename), customYAML, 0o600))

	c := New(dir)
	require.NoError(t, c.EnsureBuiltins())

	m, err := Load(custom)
	require.NoError(t, err)
	assert.Equal(t, "Customized Modern", m.Name)
}

func TestListSortsAndSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "zen", "id: zen\npages:\n  - {name: index, template: a.tmpl, output: index.html}\n")
	writeTemplate(t, dir, "airy", "id: airy\npages:\n  - {name: index, template: a.tmpl, output: index.html}\n")
	writeTemplate(t, dir, "broken", "id: [unclosed")
	// A stray non-template directory is ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o750))

	c := New(dir)
	manifests, err := c.List()
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "airy", manifests[0].ID)
	assert.Equal(t, "zen", manifests[1].ID)
}

func TestGetUnknownTemplate(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Get("brutalist")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "brutalist")
}

func writeTemplate(t *testing.T, dir, id, manifest string) {
	t.Helper()
	tdir := filepath.Join(dir, id)
	require.NoError(t, os.MkdirAll(tdir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tdir, ManifestFilename), []byte(manifest), 0o600))
}
