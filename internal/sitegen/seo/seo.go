// Package seo derives the meta, Open Graph, Twitter card, and JSON-LD
// fields for a generated site. Composition is a pure function of the
// render context and the caller's overrides; every field follows the
// chain override → property-derived → generic default.
package seo

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
)

// maxDescriptionRunes is the meta-description cap search engines
// display.
const maxDescriptionRunes = 160

// SEO carries everything the page templates embed in <head>.
type SEO struct {
	Title       string
	Description string
	Keywords    string

	OGTitle       string
	OGDescription string
	OGType        string
	OGImage       string

	TwitterCard        string
	TwitterTitle       string
	TwitterDescription string

	// StructuredData is a complete JSON-LD document, already valid
	// JSON, embedded verbatim in a script tag.
	StructuredData template.JS
}

// schemaTypes is the total mapping from property type to schema.org
// type. A type outside this table is rejected, never silently omitted.
var schemaTypes = map[string]string{
	"house":      "SingleFamilyResidence",
	"apartment":  "Apartment",
	"condo":      "Apartment",
	"townhouse":  "House",
	"land":       "Land",
	"commercial": "Place",
}

// schemaResidenceDefault applies when the record declares no type.
const schemaResidenceDefault = "Residence"

// Compose builds the SEO context. ogImage is the output-relative path
// of the lead processed image, empty when the property has none.
func Compose(rc *context.RenderContext, opts context.Options, defaults config.Defaults, ogImage string) (*SEO, error) {
	p := rc.Property

	title := firstNonEmpty(opts.SEOTitle, p.Title, defaults.Title)
	description := truncateRunes(firstNonEmpty(opts.SEODescription, p.Description, defaults.Description), maxDescriptionRunes)
	keywords := firstNonEmpty(opts.SEOKeywords, deriveKeywords(p))

	ld, err := structuredData(rc, defaults.Currency)
	if err != nil {
		return nil, err
	}

	return &SEO{
		Title:              title,
		Description:        description,
		Keywords:           keywords,
		OGTitle:            title,
		OGDescription:      description,
		OGType:             "website",
		OGImage:            ogImage,
		TwitterCard:        "summary_large_image",
		TwitterTitle:       title,
		TwitterDescription: description,
		StructuredData:     template.JS(ld), // #nosec G203 -- product of json.Marshal
	}, nil
}

// SchemaType resolves the schema.org type for a raw property type.
// Absent means the generic residence; unknown is a validation error.
func SchemaType(raw *string) (string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return schemaResidenceDefault, nil
	}
	key := strings.ToLower(strings.TrimSpace(*raw))
	st, ok := schemaTypes[key]
	if !ok {
		return "", errors.Validationf("no structured-data mapping for property type %q", *raw).
			WithContext("property_type", *raw)
	}
	return st, nil
}

// structuredData builds the RealEstateListing JSON-LD document. The
// output is produced by json.Marshal, so it is syntactically valid
// regardless of special characters in the source text.
func structuredData(rc *context.RenderContext, currency string) (string, error) {
	rec := rc.Record
	p := rc.Property

	schemaType, err := SchemaType(rec.Type)
	if err != nil {
		return "", err
	}

	about := map[string]any{
		"@type": schemaType,
		"name":  p.Title,
	}
	if rec.Bedrooms != nil {
		about["numberOfRooms"] = *rec.Bedrooms
	}
	if rec.AreaSqFt != nil {
		about["floorSize"] = map[string]any{
			"@type":    "QuantitativeValue",
			"value":    *rec.AreaSqFt,
			"unitText": "sq ft",
		}
	}
	if rec.YearBuilt != nil {
		about["yearBuilt"] = *rec.YearBuilt
	}
	if addr := postalAddress(rc); addr != nil {
		about["address"] = addr
	}
	if p.HasCoordinates {
		about["geo"] = map[string]any{
			"@type":     "GeoCoordinates",
			"latitude":  p.Latitude,
			"longitude": p.Longitude,
		}
	}

	doc := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "RealEstateListing",
		"name":        p.Title,
		"description": p.Description,
		"url":         "index.html",
		"about":       about,
	}

	if rec.Price != nil {
		offer := map[string]any{
			"@type":         "Offer",
			"price":         *rec.Price,
			"priceCurrency": currency,
		}
		// Transaction mode picks the business function; the mapping is
		// fixed so identical inputs always produce identical documents.
		if rec.Transaction != nil {
			switch strings.ToLower(strings.TrimSpace(*rec.Transaction)) {
			case "rent":
				offer["businessFunction"] = "http://purl.org/goodrelations/v1#LeaseOut"
			default:
				offer["businessFunction"] = "http://purl.org/goodrelations/v1#Sell"
			}
		}
		doc["offers"] = offer
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "marshal structured data")
	}
	return string(out), nil
}

func postalAddress(rc *context.RenderContext) map[string]any {
	rec := rc.Record
	addr := map[string]any{"@type": "PostalAddress"}
	set := false
	if v := deref(rec.Address); v != "" {
		addr["streetAddress"] = v
		set = true
	}
	if v := deref(rec.City); v != "" {
		addr["addressLocality"] = v
		set = true
	}
	if v := deref(rec.Region); v != "" {
		addr["addressRegion"] = v
		set = true
	}
	if v := deref(rec.PostalCode); v != "" {
		addr["postalCode"] = v
		set = true
	}
	if v := deref(rec.Country); v != "" {
		addr["addressCountry"] = v
		set = true
	}
	if !set {
		return nil
	}
	return addr
}

// deriveKeywords mirrors the generated-site convention: generic terms
// plus location and type.
func deriveKeywords(p context.PropertyView) string {
	return fmt.Sprintf("real estate, property, %s, %s", p.Location, strings.ToLower(p.PropertyType))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
