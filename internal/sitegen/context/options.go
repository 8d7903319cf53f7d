package context

import (
	"strings"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/errors"
)

// Options is the caller-chosen surface of one generation request:
// which declared template features to enable, optional SEO overrides,
// and an optional analytics identifier.
type Options struct {
	// Features are requested feature names. They are normalized
	// case-insensitively and deduplicated preserving first-seen order.
	Features []string

	// SEO overrides. Empty string means "derive".
	SEOTitle       string
	SEODescription string
	SEOKeywords    string

	// AnalyticsID is an optional tracking identifier injected verbatim
	// into the generated pages.
	AnalyticsID string
}

// NormalizeFeature canonicalizes a feature name: lowercased, trimmed,
// underscores folded to hyphens.
func NormalizeFeature(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

// NormalizedFeatures returns the deduplicated feature list. Repeated
// names collapse to one entry, case-insensitively, keeping the first
// occurrence's position.
func (o *Options) NormalizedFeatures() []string {
	seen := make(map[string]struct{}, len(o.Features))
	out := make([]string, 0, len(o.Features))
	for _, f := range o.Features {
		n := NormalizeFeature(f)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ValidateFeatures rejects any requested feature the manifest does not
// declare. All unknown names are reported in one error.
func (o *Options) ValidateFeatures(m *catalog.Manifest) error {
	declared := m.FeatureSet()
	var unknown []string
	for _, f := range o.NormalizedFeatures() {
		if !declared.Has(f) {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return errors.Validationf("template %s does not declare feature(s): %s",
			m.ID, strings.Join(unknown, ", ")).
			WithContext("template", m.ID).
			WithContext("unknown_features", unknown)
	}
	return nil
}
