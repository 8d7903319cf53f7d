package config

// Defaults holds the documented fallback wording injected by the
// context builder when optional property fields are absent. These are
// presentation choices, kept in configuration rather than code so the
// wording is auditable in one place.
type Defaults struct {
	Title       string `yaml:"title"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
	PriceText   string `yaml:"price_text"`
	AgentName   string `yaml:"agent_name"`
	// Currency is the ISO 4217 code used for price formatting and
	// structured data.
	Currency string `yaml:"currency"`
	// Locale selects number formatting (BCP 47 tag).
	Locale string `yaml:"locale"`
	// PlaceholderImage is the site-relative path the renderer falls
	// back to when a property has no resolvable images.
	PlaceholderImage string `yaml:"placeholder_image"`
}

// fillEmpty copies fallback values for any unset field.
func (d *Defaults) fillEmpty(from Defaults) {
	if d.Title == "" {
		d.Title = from.Title
	}
	if d.Location == "" {
		d.Location = from.Location
	}
	if d.Description == "" {
		d.Description = from.Description
	}
	if d.PriceText == "" {
		d.PriceText = from.PriceText
	}
	if d.AgentName == "" {
		d.AgentName = from.AgentName
	}
	if d.Currency == "" {
		d.Currency = from.Currency
	}
	if d.Locale == "" {
		d.Locale = from.Locale
	}
	if d.PlaceholderImage == "" {
		d.PlaceholderImage = from.PlaceholderImage
	}
}

// Default returns the baseline configuration used by Init and as the
// substrate for Load.
func Default() *Config {
	return &Config{
		Store:     StoreConfig{Path: "homeshow.db"},
		Templates: CatalogConfig{Dir: "templates"},
		Output:    OutputConfig{Root: "sites"},
		Defaults: Defaults{
			Title:            "Beautiful Modern Property",
			Location:         "Prime Location",
			Description:      "A wonderful property in a sought-after neighborhood.",
			PriceText:        "Price on Request",
			AgentName:        "Listing Agent",
			Currency:         "USD",
			Locale:           "en-US",
			PlaceholderImage: "media/images/placeholder.svg",
		},
		Assets: AssetsConfig{
			ThumbWidth:  300,
			ThumbHeight: 200,
			Concurrency: 0,
			HeroLimit:   5,
		},
		Retry: RetryConfig{
			Backoff:      RetryBackoffLinear,
			InitialDelay: "1s",
			MaxDelay:     "30s",
			MaxRetries:   2,
		},
		Watch: WatchConfig{Debounce: "2s"},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9180",
		},
	}
}
