// Package context builds the fully resolved render context for one
// generation job. Defaults are injected here exactly once; downstream
// components never re-derive locale-sensitive formatting or fallback
// wording.
package context

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"git.home.luguber.info/inful/homeshow/internal/catalog"
	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/property"
	"git.home.luguber.info/inful/homeshow/internal/util/sets"
)

// PropertyView is the template-facing projection of a property record.
// Every field is pre-formatted display text; empty string means the
// source value was absent and no default applies.
type PropertyView struct {
	ID string

	Title           string
	Price           string // display text, defaulted when no numeric price
	PriceAmount     float64
	HasPrice        bool
	Location        string
	Description     string
	DescriptionHTML template.HTML

	Bedrooms     string
	Bathrooms    string
	Area         string
	YearBuilt    string
	PropertyType string // display, "Property" when the record has no type
	Transaction  string

	Features []string

	AgentName   string
	AgentEmail  string
	AgentPhone  string
	AgentAgency string

	HasCoordinates bool
	Latitude       float64
	Longitude      float64
}

// RenderContext is the immutable product of the builder: the resolved
// property view, the enabled feature set, and the ordered media list
// the asset pipeline consumes.
type RenderContext struct {
	Property PropertyView
	Features []string

	// Media preserves the record's presentation order end to end.
	Media []property.MediaReference

	// Record is the raw snapshot, kept for the SEO composer which
	// needs to distinguish absent from defaulted values.
	Record *property.Record

	enabled sets.Set[string]
}

// FeatureEnabled reports whether a normalized feature name was
// requested for this job.
func (c *RenderContext) FeatureEnabled(name string) bool {
	return c.enabled.Has(NormalizeFeature(name))
}

// Lookup resolves a manifest-declared required-variable name to its
// display value. The second return is false for names this context
// does not know, or knows but cannot fill.
func (c *RenderContext) Lookup(name string) (string, bool) {
	p := &c.Property
	var v string
	switch name {
	case "title":
		v = p.Title
	case "price":
		v = p.Price
	case "price_amount":
		if !p.HasPrice {
			return "", false
		}
		return strconv.FormatFloat(p.PriceAmount, 'f', -1, 64), true
	case "location":
		v = p.Location
	case "description":
		v = p.Description
	case "bedrooms":
		v = p.Bedrooms
	case "bathrooms":
		v = p.Bathrooms
	case "area":
		v = p.Area
	case "year_built":
		v = p.YearBuilt
	case "property_type":
		v = p.PropertyType
	case "transaction":
		v = p.Transaction
	case "agent_name":
		v = p.AgentName
	case "agent_email":
		v = p.AgentEmail
	case "agent_phone":
		v = p.AgentPhone
	case "coordinates":
		if !p.HasCoordinates {
			return "", false
		}
		return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," +
			strconv.FormatFloat(p.Longitude, 'f', -1, 64), true
	default:
		return "", false
	}
	if strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Builder turns property records into render contexts using a fixed
// defaults table and locale.
type Builder struct {
	defaults config.Defaults
	printer  *message.Printer
	markdown goldmark.Markdown
}

// NewBuilder creates a builder for the configured defaults. An
// unparseable locale falls back to en-US.
func NewBuilder(defaults config.Defaults) *Builder {
	tag, err := language.Parse(defaults.Locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Builder{
		defaults: defaults,
		printer:  message.NewPrinter(tag),
		markdown: goldmark.New(),
	}
}

// Build resolves a record against a manifest and options. It fails
// with a single validation error listing every missing value required
// by the enabled features.
func (b *Builder) Build(rec *property.Record, m *catalog.Manifest, opts Options) (*RenderContext, error) {
	if err := opts.ValidateFeatures(m); err != nil {
		return nil, err
	}
	features := opts.NormalizedFeatures()
	enabled := sets.New(features...)

	var problems []string
	if enabled.Has("mortgage-calculator") && rec.Price == nil {
		problems = append(problems, "mortgage-calculator feature requires a numeric price")
	}
	if enabled.Has("map") && !rec.HasCoordinates() && !rec.HasAddress() {
		problems = append(problems, "map feature requires coordinates or a textual address")
	}
	if len(problems) > 0 {
		return nil, errors.Validation(strings.Join(problems, "; ")).
			WithContext("property", rec.ID).
			WithContext("template", m.ID)
	}

	view, err := b.buildView(rec)
	if err != nil {
		return nil, err
	}

	return &RenderContext{
		Property: view,
		Features: features,
		Media:    rec.Media,
		Record:   rec,
		enabled:  enabled,
	}, nil
}

func (b *Builder) buildView(rec *property.Record) (PropertyView, error) {
	d := b.defaults
	v := PropertyView{
		ID:           rec.ID,
		Title:        stringOr(rec.Title, d.Title),
		Location:     b.location(rec),
		Description:  stringOr(rec.Description, d.Description),
		PropertyType: TypeDisplay(rec.Type),
		Transaction:  transactionDisplay(rec.Transaction),
		Features:     dedupeFeatures(rec.Features),
		AgentName:    stringOr(rec.AgentName, d.AgentName),
		AgentEmail:   stringOr(rec.AgentEmail, ""),
		AgentPhone:   stringOr(rec.AgentPhone, ""),
		AgentAgency:  stringOr(rec.AgentAgency, ""),
	}

	if rec.Price != nil {
		v.HasPrice = true
		v.PriceAmount = *rec.Price
		v.Price = currencySymbol(d.Currency) +
			b.printer.Sprint(number.Decimal(*rec.Price, number.MaxFractionDigits(0)))
	} else {
		v.Price = d.PriceText
	}

	if rec.Bedrooms != nil {
		v.Bedrooms = strconv.Itoa(*rec.Bedrooms)
	}
	if rec.Bathrooms != nil {
		v.Bathrooms = strconv.FormatFloat(*rec.Bathrooms, 'f', -1, 64)
	}
	if rec.AreaSqFt != nil {
		v.Area = b.printer.Sprint(number.Decimal(*rec.AreaSqFt, number.MaxFractionDigits(0))) + " sq ft"
	}
	if rec.YearBuilt != nil {
		v.YearBuilt = strconv.Itoa(*rec.YearBuilt)
	}
	if rec.HasCoordinates() {
		v.HasCoordinates = true
		v.Latitude = *rec.Latitude
		v.Longitude = *rec.Longitude
	}

	var buf bytes.Buffer
	if err := b.markdown.Convert([]byte(v.Description), &buf); err != nil {
		return PropertyView{}, errors.Wrap(err, errors.CategoryInternal, "render description markdown").
			WithContext("property", rec.ID)
	}
	// goldmark escapes raw HTML in the source, so plain text passes
	// through safely and Markdown gains structure.
	v.DescriptionHTML = template.HTML(buf.String()) // #nosec G203 -- goldmark output with raw HTML disabled

	return v, nil
}

// location joins the textual address components, falling back to the
// configured wording when the record carries none.
func (b *Builder) location(rec *property.Record) string {
	var parts []string
	for _, f := range []*string{rec.Address, rec.City, rec.Region, rec.PostalCode, rec.Country} {
		if f != nil && strings.TrimSpace(*f) != "" {
			parts = append(parts, strings.TrimSpace(*f))
		}
	}
	if len(parts) == 0 {
		return b.defaults.Location
	}
	return strings.Join(parts, ", ")
}

// TypeDisplay maps a raw property type to its display wording. An
// absent type reads as the generic "Property".
func TypeDisplay(t *string) string {
	if t == nil || strings.TrimSpace(*t) == "" {
		return "Property"
	}
	switch strings.ToLower(strings.TrimSpace(*t)) {
	case "house":
		return "House"
	case "apartment":
		return "Apartment"
	case "condo":
		return "Condo"
	case "townhouse":
		return "Townhouse"
	case "land":
		return "Land"
	case "commercial":
		return "Commercial"
	default:
		return strings.TrimSpace(*t)
	}
}

func transactionDisplay(t *string) string {
	if t == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(*t)) {
	case "sale":
		return "Sale"
	case "rent":
		return "Rent"
	default:
		return strings.TrimSpace(*t)
	}
}

// dedupeFeatures collapses repeated free-text feature strings
// case-insensitively, preserving first-seen order and original casing.
func dedupeFeatures(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		t := strings.TrimSpace(f)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func stringOr(v *string, fallback string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return strings.TrimSpace(*v)
	}
	return fallback
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "USD", "CAD", "AUD", "NZD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "JPY":
		return "¥"
	case "":
		return "$"
	default:
		return code + " "
	}
}
