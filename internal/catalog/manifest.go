// Package catalog loads and validates website template definitions.
// A template is a directory holding a template.yaml manifest, one
// html/template file per page, and static css/js copied verbatim into
// generated sites.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/util/sets"
)

// ManifestFilename is the per-template definition file.
const ManifestFilename = "template.yaml"

// Section is one optional or mandatory block of a page. A gated
// section is emitted only when its feature is enabled for the job.
type Section struct {
	Name string `yaml:"name"`
	// Requires lists context variable names that must resolve to
	// non-empty values when the section is emitted. Checked per
	// section at render time, so a disabled section's missing
	// variables never block generation.
	Requires []string `yaml:"requires,omitempty"`
	// Gate names a declared feature; empty means always emitted.
	Gate string `yaml:"gate,omitempty"`
}

// Page maps one template file to one output document.
type Page struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Output   string `yaml:"output"`
	// Gate optionally ties the whole page to a feature.
	Gate string `yaml:"gate,omitempty"`
}

// AssetPaths are root-relative locations of static assets inside the
// template directory; they are copied verbatim, never templated.
type AssetPaths struct {
	CSS string `yaml:"css"`
	JS  string `yaml:"js"`
}

// Manifest is the parsed, validated capability description of one
// template. It is authoritative: generation options are validated
// against it eagerly, before any stage runs.
type Manifest struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Style       string     `yaml:"style,omitempty"`
	Features    []string   `yaml:"features"`
	Sections    []Section  `yaml:"sections"`
	Pages       []Page     `yaml:"pages"`
	Assets      AssetPaths `yaml:"assets"`

	// Root is the template directory the manifest was loaded from.
	// Not part of the YAML document.
	Root string `yaml:"-"`
}

// FeatureSet returns the declared features as a set.
func (m *Manifest) FeatureSet() sets.Set[string] {
	return sets.New(m.Features...)
}

// Load reads and validates a manifest from a template directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFilename)
	data, err := os.ReadFile(path) // #nosec G304 -- catalog dir is operator controlled
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, fmt.Sprintf("read template manifest %s", path))
	}
	return Parse(data, dir)
}

// Parse decodes manifest bytes and validates them. root is recorded as
// the template directory for asset and page template resolution.
func Parse(data []byte, root string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "parse template manifest")
	}
	m.Root = root
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate enforces the manifest invariants: section and page gates
// must reference declared features, section names must be unique, page
// outputs must be unique and relative, and asset paths must be relative.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New(errors.CategoryConfig, "template manifest missing id")
	}
	declared := m.FeatureSet()

	seenSections := sets.New[string]()
	for _, s := range m.Sections {
		if s.Name == "" {
			return errors.Newf(errors.CategoryConfig, "template %s: section without a name", m.ID)
		}
		if seenSections.Has(s.Name) {
			return errors.Newf(errors.CategoryConfig, "template %s: duplicate section %q", m.ID, s.Name)
		}
		seenSections.Add(s.Name)
		if s.Gate != "" && !declared.Has(s.Gate) {
			return errors.Newf(errors.CategoryConfig,
				"template %s: section %q gated on undeclared feature %q", m.ID, s.Name, s.Gate)
		}
	}

	if len(m.Pages) == 0 {
		return errors.Newf(errors.CategoryConfig, "template %s: no pages declared", m.ID)
	}
	seenOutputs := sets.New[string]()
	for _, p := range m.Pages {
		if p.Template == "" || p.Output == "" {
			return errors.Newf(errors.CategoryConfig, "template %s: page %q needs template and output", m.ID, p.Name)
		}
		if !isRelative(p.Template) || !isRelative(p.Output) {
			return errors.Newf(errors.CategoryConfig, "template %s: page %q paths must be relative", m.ID, p.Name)
		}
		if seenOutputs.Has(p.Output) {
			return errors.Newf(errors.CategoryConfig, "template %s: duplicate page output %q", m.ID, p.Output)
		}
		seenOutputs.Add(p.Output)
		if p.Gate != "" && !declared.Has(p.Gate) {
			return errors.Newf(errors.CategoryConfig,
				"template %s: page %q gated on undeclared feature %q", m.ID, p.Name, p.Gate)
		}
	}

	for _, a := range []string{m.Assets.CSS, m.Assets.JS} {
		if a != "" && !isRelative(a) {
			return errors.Newf(errors.CategoryConfig, "template %s: asset path %q must be relative", m.ID, a)
		}
	}
	return nil
}

// Section returns a declared section by name.
func (m *Manifest) Section(name string) (Section, bool) {
	for _, s := range m.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

func isRelative(p string) bool {
	clean := filepath.Clean(p)
	return !filepath.IsAbs(clean) && clean != ".." && !strings.HasPrefix(clean, "../")
}
