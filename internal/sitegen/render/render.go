// Package render expands a template's pages against the resolved
// context, gating optional sections by feature and enforcing each
// emitted section's required variables. Output is an ordered sequence
// of in-memory documents; nothing touches the filesystem here.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/assets"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/seo"
)

// Document is one rendered output file: site-relative path + content.
type Document struct {
	Path    string
	Content []byte
}

// ImageRef is the template-facing view of one processed image.
type ImageRef struct {
	Full    string
	Thumb   string
	Caption string
}

// PageData is the root value every page template executes against.
type PageData struct {
	Property context.PropertyView
	SEO      *seo.SEO
	Features []string
	// Sections maps section name → emitted. Templates gate blocks on
	// this so disabled sections leave no trace in the output.
	Sections map[string]bool

	Hero    []ImageRef
	Gallery []ImageRef
	// Placeholder is the site-relative fallback image used when the
	// property resolved zero images.
	Placeholder string

	AnalyticsID string
	GeneratedAt time.Time
	Generator   string
}

// Params collects everything one render run needs.
type Params struct {
	Context     *context.RenderContext
	SEO         *seo.SEO
	Manifest    *catalog.Manifest
	Options     context.Options
	Assets      *assets.Result
	GeneratedAt time.Time
}

// Renderer expands pages. Safe for concurrent use; templates are
// parsed per run because the catalog may change between jobs.
type Renderer struct {
	heroLimit   int
	placeholder string
	generator   string
}

// New creates a renderer. heroLimit caps the hero slider; placeholder
// is the site-relative image path used when no images resolved.
func New(heroLimit int, placeholder, generator string) *Renderer {
	if heroLimit <= 0 {
		heroLimit = 5
	}
	return &Renderer{heroLimit: heroLimit, placeholder: placeholder, generator: generator}
}

// Render produces the full ordered document sequence: manifest pages
// (gated ones only when their feature is enabled) plus robots.txt and
// sitemap.xml.
func (r *Renderer) Render(p Params) ([]Document, error) {
	rc := p.Context
	m := p.Manifest

	sections, err := emittedSections(m, rc)
	if err != nil {
		return nil, err
	}

	images := p.Assets.Images()
	gallery := make([]ImageRef, 0, len(images))
	for _, a := range images {
		gallery = append(gallery, ImageRef{Full: a.Full, Thumb: a.Thumb, Caption: a.Caption})
	}
	hero := gallery
	if len(hero) > r.heroLimit {
		hero = hero[:r.heroLimit]
	}

	data := PageData{
		Property:    rc.Property,
		SEO:         p.SEO,
		Features:    rc.Features,
		Sections:    sections,
		Hero:        hero,
		Gallery:     gallery,
		Placeholder: r.placeholder,
		AnalyticsID: p.Options.AnalyticsID,
		GeneratedAt: p.GeneratedAt,
		Generator:   r.generator,
	}

	var docs []Document
	var emitted []string
	for _, page := range m.Pages {
		if page.Gate != "" && !rc.FeatureEnabled(page.Gate) {
			continue
		}
		content, err := r.renderPage(m, page, &data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Path: page.Output, Content: content})
		emitted = append(emitted, page.Output)
	}

	docs = append(docs,
		Document{Path: "robots.txt", Content: []byte(robotsTxt)},
		Document{Path: "sitemap.xml", Content: sitemapXML(emitted)},
	)
	return docs, nil
}

// emittedSections resolves gating and required variables. A disabled
// section's missing variables never block generation; an emitted
// section missing a variable is a render error naming both.
func emittedSections(m *catalog.Manifest, rc *context.RenderContext) (map[string]bool, error) {
	sections := make(map[string]bool, len(m.Sections))
	var missing []string
	for _, s := range m.Sections {
		if s.Gate != "" && !rc.FeatureEnabled(s.Gate) {
			sections[s.Name] = false
			continue
		}
		sections[s.Name] = true
		for _, v := range s.Requires {
			if _, ok := rc.Lookup(v); !ok {
				missing = append(missing, fmt.Sprintf("section %q requires variable %q", s.Name, v))
			}
		}
	}
	if len(missing) > 0 {
		return nil, errors.Render(strings.Join(missing, "; ")).
			WithContext("template", m.ID)
	}
	return sections, nil
}

func (r *Renderer) renderPage(m *catalog.Manifest, page catalog.Page, data *PageData) ([]byte, error) {
	path := filepath.Join(m.Root, filepath.FromSlash(page.Template))
	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=error").ParseFiles(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryRender,
			fmt.Sprintf("parse page template %s", page.Template)).
			WithContext("template", m.ID).
			WithContext("page", page.Name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, errors.CategoryRender,
			fmt.Sprintf("execute page template %s", page.Template)).
			WithContext("template", m.ID).
			WithContext("page", page.Name)
	}
	return buf.Bytes(), nil
}

const robotsTxt = `User-agent: *
Allow: /

Sitemap: sitemap.xml
`

// sitemapXML lists the emitted pages. The index gets top priority;
// no lastmod is written so regeneration stays byte-stable.
func sitemapXML(pages []string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, p := range pages {
		priority := "0.8"
		if p == "index.html" {
			priority = "1.0"
		}
		fmt.Fprintf(&b, "    <url>\n        <loc>%s</loc>\n        <changefreq>weekly</changefreq>\n        <priority>%s</priority>\n    </url>\n", p, priority)
	}
	b.WriteString("</urlset>\n")
	return b.Bytes()
}
