package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/homeshow/internal/errors"
)

const validManifestYAML = `
id: airy
name: Airy
features:
  - gallery
  - map
assets:
  css: css
  js: js
pages:
  - name: index
    template: index.html.tmpl
    output: index.html
  - name: gallery
    template: gallery.html.tmpl
    output: gallery.html
    gate: gallery
sections:
  - name: hero
    requires: [title, price]
  - name: map
    gate: map
    requires: [location]
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(validManifestYAML), "/tmp/airy")
	require.NoError(t, err)

	assert.Equal(t, "airy", m.ID)
	assert.Equal(t, "/tmp/airy", m.Root)
	assert.True(t, m.FeatureSet().Has("gallery"))
	assert.False(t, m.FeatureSet().Has("mortgage-calculator"))

	s, ok := m.Section("hero")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "price"}, s.Requires)

	_, ok = m.Section("absent")
	assert.False(t, ok)
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing id",
			yaml: "name: Airy\npages:\n  - {name: index, template: a.tmpl, output: index.html}\n",
			want: "missing id",
		},
		{
			name: "no pages",
			yaml: "id: airy\n",
			want: "no pages",
		},
		{
			name: "section gate on undeclared feature",
			yaml: `
id: airy
pages:
  - {name: index, template: a.tmpl, output: index.html}
sections:
  - {name: pool, gate: swimming}
`,
			want: "undeclared feature",
		},
		{
			name: "page gate on undeclared feature",
			yaml: `
id: airy
pages:
  - {name: index, template: a.tmpl, output: index.html, gate: swimming}
`,
			want: "undeclared feature",
		},
		{
			name: "duplicate section",
			yaml: `
id: airy
pages:
  - {name: index, template: a.tmpl, output: index.html}
sections:
  - {name: hero}
  - {name: hero}
`,
			want: "duplicate section",
		},
		{
			name: "duplicate page output",
			yaml: `
id: airy
pages:
  - {name: index, template: a.tmpl, output: index.html}
  - {name: other, template: b.tmpl, output: index.html}
`,
			want: "duplicate page output",
		},
		{
			name: "absolute page output",
			yaml: `
id: airy
pages:
  - {name: index, template: a.tmpl, output: /etc/index.html}
`,
			want: "must be relative",
		},
		{
			name: "escaping asset path",
			yaml: `
id: airy
assets:
  css: ../css
pages:
  - {name: index, template: a.tmpl, output: index.html}
`,
			want: "must be relative",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), "/tmp/airy")
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("id: [unclosed"), "/tmp/airy")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}
