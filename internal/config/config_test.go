package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "homeshow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  path: listings.db
templates:
  dir: my-templates
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "listings.db", cfg.Store.Path)
	assert.Equal(t, "my-templates", cfg.Templates.Dir)
	assert.Equal(t, "sites", cfg.Output.Root)
	assert.Equal(t, 300, cfg.Assets.ThumbWidth)
	assert.Equal(t, 200, cfg.Assets.ThumbHeight)
	assert.Equal(t, 5, cfg.Assets.HeroLimit)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.Equal(t, "Price on Request", cfg.Defaults.PriceText)
	assert.Equal(t, "USD", cfg.Defaults.Currency)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("HOMESHOW_DB", "/data/props.db")
	path := writeConfig(t, `
store:
  path: ${HOMESHOW_DB}
templates:
  dir: templates
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/props.db", cfg.Store.Path)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
templates:
  dir: templates
store:
  path: ""
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
store:
  path: listings.db
templates:
  dir: templates
assets:
  thumb_width: -10
  hero_limit: 0
retry:
  backoff: often
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Assets.ThumbWidth)
	assert.Equal(t, 5, cfg.Assets.HeroLimit)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
}

func TestDefaultsFillEmptyKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
store:
  path: listings.db
templates:
  dir: templates
defaults:
  price_text: Contact us
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Contact us", cfg.Defaults.PriceText)
	assert.Equal(t, "Beautiful Modern Property", cfg.Defaults.Title)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "homeshow.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "homeshow.db", cfg.Store.Path)

	err = Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Init(path, true))
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff("Fixed"))
	assert.Equal(t, RetryBackoffLinear, NormalizeRetryBackoff(" linear "))
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("EXPONENTIAL"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("often"))
}
