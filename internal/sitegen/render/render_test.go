package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/assets"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/seo"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

const testManifestYAML = `
id: plain
name: Plain
features: [gallery, map]
sections:
  - name: hero
    requires: [title, price]
  - name: map
    gate: map
    requires: [location]
  - name: gallery
    gate: gallery
pages:
  - name: index
    template: index.html.tmpl
    output: index.html
  - name: gallery
    template: gallery.html.tmpl
    output: gallery.html
    gate: gallery
`

const testIndexTmpl = `<html><body>
{{- if .Sections.hero }}<h1>{{ .Property.Title }} {{ .Property.Price }}</h1>{{ end }}
{{- if .Sections.map }}<div id="map">{{ .Property.Location }}</div>{{ end }}
{{- if .Sections.gallery }}<div class="g">{{ range .Gallery }}<img src="{{ .Thumb }}">{{ end }}</div>{{ end }}
{{- range .Hero }}<img class="hero" src="{{ .Full }}">{{ end }}
<footer>{{ .Generator }}</footer>
</body></html>`

const testGalleryTmpl = `<html><body>{{ range .Gallery }}<a href="{{ .Full }}"></a>{{ end }}</body></html>`

func writeTestTemplate(t *testing.T) *catalog.Manifest {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html.tmpl"), []byte(testIndexTmpl), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gallery.html.tmpl"), []byte(testGalleryTmpl), 0o600))
	m, err := catalog.Parse([]byte(testManifestYAML), dir)
	require.NoError(t, err)
	return m
}

func buildCtx(t *testing.T, rec *property.Record, m *catalog.Manifest, opts context.Options) *context.RenderContext {
	t.Helper()
	rc, err := context.NewBuilder(config.Default().Defaults).Build(rec, m, opts)
	require.NoError(t, err)
	return rc
}

func composeSEO(t *testing.T, rc *context.RenderContext, opts context.Options) *seo.SEO {
	t.Helper()
	s, err := seo.Compose(rc, opts, config.Default().Defaults, "")
	require.NoError(t, err)
	return s
}

func imageAssets(paths ...string) *assets.Result {
	res := &assets.Result{}
	for i, p := range paths {
		res.Assets = append(res.Assets, assets.ProcessedAsset{
			Kind:        property.KindImage,
			Fingerprint: "fp" + string(rune('0'+i)),
			Full:        "media/images/" + p,
			Thumb:       "media/thumbnails/" + p,
			Caption:     p,
		})
	}
	return res
}

func testRenderer() *Renderer {
	return New(5, "media/images/placeholder.svg", "HomeShow")
}

func TestRenderEmitsPagesAndExtras(t *testing.T) {
	m := writeTestTemplate(t)
	rec := &property.Record{ID: "p1", Title: strPtr("Villa"), Price: f64Ptr(100000)}
	opts := context.Options{Features: []string{"gallery"}}
	rc := buildCtx(t, rec, m, opts)

	docs, err := testRenderer().Render(Params{
		Context:     rc,
		SEO:         composeSEO(t, rc, opts),
		Manifest:    m,
		Options:     opts,
		Assets:      imageAssets("a.jpg"),
		GeneratedAt: time.Now(),
	})
	require.NoError(t, err)

	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	assert.Equal(t, []string{"index.html", "gallery.html", "robots.txt", "sitemap.xml"}, paths)

	index := string(docs[0].Content)
	assert.Contains(t, index, "Villa")
	assert.Contains(t, index, `class="g"`)
	assert.NotContains(t, index, `id="map"`) // map feature not enabled
}

func TestRenderGatedPageSkipped(t *testing.T) {
	m := writeTestTemplate(t)
	rec := &property.Record{ID: "p1", Title: strPtr("Villa"), Price: f64Ptr(100000)}
	rc := buildCtx(t, rec, m, context.Options{})

	docs, err := testRenderer().Render(Params{
		Context:  rc,
		SEO:      composeSEO(t, rc, context.Options{}),
		Manifest: m,
		Assets:   &assets.Result{},
	})
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, "gallery.html", d.Path)
	}
}

func TestRenderMissingRequiredVariableNamesSectionAndVariable(t *testing.T) {
	m := writeTestTemplate(t)
	// An ungated section requiring a variable the context cannot fill.
	m.Sections = append(m.Sections, catalog.Section{Name: "baths", Requires: []string{"bathrooms"}})

	rec := &property.Record{ID: "p1", Title: strPtr("Villa"), Price: f64Ptr(100000)}
	rc := buildCtx(t, rec, m, context.Options{})

	_, err := testRenderer().Render(Params{
		Context:  rc,
		SEO:      composeSEO(t, rc, context.Options{}),
		Manifest: m,
		Assets:   &assets.Result{},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryRender))
	assert.Contains(t, err.Error(), `"baths"`)
	assert.Contains(t, err.Error(), `"bathrooms"`)
}

func TestRenderDisabledSectionMissingVariablesIgnored(t *testing.T) {
	m := writeTestTemplate(t)
	// The map section requires location; with the feature off and a
	// record with no location the render must still succeed.
	rec := &property.Record{ID: "p1", Title: strPtr("Villa"), Price: f64Ptr(100000)}
	rc := buildCtx(t, rec, m, context.Options{})

	docs, err := testRenderer().Render(Params{
		Context:  rc,
		SEO:      composeSEO(t, rc, context.Options{}),
		Manifest: m,
		Assets:   &assets.Result{},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
}

func TestRenderHeroCappedGalleryUncapped(t *testing.T) {
	m := writeTestTemplate(t)
	rec := &property.Record{ID: "p1", Title: strPtr("Villa"), Price: f64Ptr(100000)}
	opts := context.Options{Features: []string{"gallery"}}
	rc := buildCtx(t, rec, m, opts)

	res := imageAssets("1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg", "7.jpg")
	docs, err := testRenderer().Render(Params{
		Context:  rc,
		SEO:      composeSEO(t, rc, opts),
		Manifest: m,
		Options:  opts,
		Assets:   res,
	})
	require.NoError(t, err)

	index := string(docs[0].Content)
	heroCount := 0
	for i := 0; i+12 < len(index); i++ {
		if index[i:i+12] == `class="hero"` {
			heroCount++
		}
	}
	assert.Equal(t, 5, heroCount)

	gallery := string(docs[1].Content)
	assert.Contains(t, gallery, "7.jpg")
	assert.Contains(t, gallery, "1.jpg") // caller order preserved
}

func TestRenderBuiltinModernTemplate(t *testing.T) {
	dir := t.TempDir()
	cat := catalog.New(dir)
	require.NoError(t, cat.EnsureBuiltins())
	m, err := cat.Get("modern")
	require.NoError(t, err)

	rec := &property.Record{
		ID:          "p1",
		Title:       strPtr("Lakeside Villa"),
		Price:       f64Ptr(725000),
		Type:        strPtr("house"),
		City:        strPtr("Springfield"),
		Description: strPtr("Calm **water** views."),
	}
	opts := context.Options{Features: []string{"gallery", "map", "mortgage-calculator", "contact-form", "social-sharing"}}
	rc := buildCtx(t, rec, m, opts)

	docs, err := testRenderer().Render(Params{
		Context:     rc,
		SEO:         composeSEO(t, rc, opts),
		Manifest:    m,
		Options:     opts,
		Assets:      imageAssets("a.jpg", "b.jpg"),
		GeneratedAt: time.Now(),
	})
	require.NoError(t, err)

	byPath := map[string]string{}
	for _, d := range docs {
		byPath[d.Path] = string(d.Content)
	}
	require.Contains(t, byPath, "index.html")
	require.Contains(t, byPath, "gallery.html")
	require.Contains(t, byPath, "contact.html")

	index := byPath["index.html"]
	assert.Contains(t, index, "Lakeside Villa")
	assert.Contains(t, index, "$725,000")
	assert.Contains(t, index, "<strong>water</strong>")
	assert.Contains(t, index, "RealEstateListing")
	assert.Contains(t, index, "mortgage-calculator")

	assert.Contains(t, byPath["robots.txt"], "Sitemap: sitemap.xml")
	assert.Contains(t, byPath["sitemap.xml"], "<loc>index.html</loc>")
}
