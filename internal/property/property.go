// Package property defines the listing data model and the read-only
// store the generation pipeline consumes. The pipeline receives an
// immutable snapshot of a record; it never writes back.
package property

import "strings"

// MediaKind declares which pipeline transform applies to a reference.
type MediaKind string

const (
	KindImage     MediaKind = "image"
	KindFloorPlan MediaKind = "floor-plan"
	KindVideo     MediaKind = "video"
)

// ParseMediaKind normalizes a raw kind string. Unknown kinds are
// returned verbatim; the asset pipeline skips them rather than failing.
func ParseMediaKind(raw string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "image", "photo", "img":
		return KindImage
	case "floor-plan", "floorplan", "floor_plan", "plan":
		return KindFloorPlan
	case "video":
		return KindVideo
	default:
		return MediaKind(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// IsImage reports whether the kind goes through the image transform
// (floor plans are images with a different declared role).
func (k MediaKind) IsImage() bool { return k == KindImage || k == KindFloorPlan }

// MediaReference points at one source media file. Order within a
// record is the caller's presentation order and is preserved end to end.
type MediaReference struct {
	// Path is the source file path on the local filesystem.
	Path string `json:"path"`
	// Kind selects the transform; unknown kinds are skipped, not fatal.
	Kind MediaKind `json:"kind"`
	// Name is the original filename, kept for display captions only;
	// output names are derived from content fingerprints.
	Name string `json:"name"`
}

// Record is an immutable snapshot of one property listing. Optional
// scalar attributes are pointers: nil means "not provided", and the
// context builder is the single place defaults are injected.
type Record struct {
	ID string `json:"id"`

	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Type        *string  `json:"property_type,omitempty"` // house|apartment|condo|townhouse|land|commercial
	Transaction *string  `json:"transaction,omitempty"`   // sale|rent
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *float64 `json:"bathrooms,omitempty"`
	AreaSqFt    *float64 `json:"area_sqft,omitempty"`
	YearBuilt   *int     `json:"year_built,omitempty"`
	Description *string  `json:"description,omitempty"`

	Address    *string  `json:"address,omitempty"`
	City       *string  `json:"city,omitempty"`
	Region     *string  `json:"region,omitempty"`
	PostalCode *string  `json:"postal_code,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`

	Media    []MediaReference `json:"media,omitempty"`
	Features []string         `json:"features,omitempty"`

	AgentName   *string `json:"agent_name,omitempty"`
	AgentEmail  *string `json:"agent_email,omitempty"`
	AgentPhone  *string `json:"agent_phone,omitempty"`
	AgentAgency *string `json:"agent_agency,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// HasAddress reports whether any textual location component is set.
func (r *Record) HasAddress() bool {
	for _, f := range []*string{r.Address, r.City, r.Region, r.PostalCode, r.Country} {
		if f != nil && strings.TrimSpace(*f) != "" {
			return true
		}
	}
	return false
}
