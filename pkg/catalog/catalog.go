// Package catalog is the static registry of Google Maps Platform service
// families gmapper knows how to probe and price. Pricing is the public
// Google Maps Platform rate card (USD per 1,000 requests) as of 2024.
package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Service identifies one probeable service family. The set is closed:
// every known service has a constant here, and callers handle anything
// else through their own unknown-service fallback.
type Service string

const (
	ServiceMapsJavaScript Service = "maps_javascript"
	ServiceStaticMaps     Service = "static_maps"
	ServiceDirections     Service = "directions"
	ServicePlaces         Service = "places"
	ServiceGeocoding      Service = "geocoding"
	ServiceDistanceMatrix Service = "distance_matrix"
	ServiceElevation      Service = "elevation"
	ServiceRoads          Service = "roads"
	ServiceStreetView     Service = "streetview"
)

// AllServices returns every known service in catalog order.
func AllServices() []Service {
	return []Service{
		ServiceMapsJavaScript,
		ServiceStaticMaps,
		ServiceDirections,
		ServicePlaces,
		ServiceGeocoding,
		ServiceDistanceMatrix,
		ServiceElevation,
		ServiceRoads,
		ServiceStreetView,
	}
}

// keyPlaceholder is substituted with the credential when building a probe
// URL.
const keyPlaceholder = "{key}"

// Descriptor describes one service family: how to probe it and what it
// costs. Descriptors are immutable once the catalog is built.
type Descriptor struct {
	ID       Service
	Name     string
	Category string

	// ProbeURL is the GET endpoint template with a {key} placeholder.
	// Empty for synthetic entries created from pricing overrides, which
	// are priceable but not probeable.
	ProbeURL string

	// Tiers maps tier name to USD per 1,000 requests. PrimaryTier names
	// the tier used for summaries and projections; it is always present
	// in Tiers.
	Tiers       map[string]decimal.Decimal
	PrimaryTier string

	// PrimaryDetail describes what the primary tier prices, e.g.
	// "Dynamic map loads".
	PrimaryDetail string

	// FreeTierMonthly is the number of requests per month covered by the
	// free tier.
	FreeTierMonthly int64
}

// PrimaryCost returns the unit cost of the descriptor's primary tier.
func (d Descriptor) PrimaryCost() decimal.Decimal {
	return d.Tiers[d.PrimaryTier]
}

// Detail renders the explanatory pricing text for the primary tier.
func (d Descriptor) Detail() string {
	return fmt.Sprintf("%s: $%s/1k requests", d.PrimaryDetail, d.PrimaryCost().StringFixed(2))
}

// ProbeTarget substitutes the credential into the probe URL template.
func (d Descriptor) ProbeTarget(key string) string {
	return strings.ReplaceAll(d.ProbeURL, keyPlaceholder, key)
}

// Probeable reports whether this service has a probe endpoint.
func (d Descriptor) Probeable() bool {
	return d.ProbeURL != ""
}

// DefaultUnknownCost is the conservative per-1k estimate applied to
// enabled services the catalog has no pricing for.
var DefaultUnknownCost = decimal.NewFromFloat(5.00)

// Catalog is the immutable lookup table of service descriptors.
type Catalog struct {
	entries map[Service]Descriptor
	order   []Service
	canary  Service
}

func usd(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// New builds the built-in catalog.
func New() *Catalog {
	descriptors := []Descriptor{
		{
			ID:       ServiceMapsJavaScript,
			Name:     "Maps JavaScript API",
			Category: "maps",
			ProbeURL: "https://maps.googleapis.com/maps/api/js?key={key}",
			Tiers: map[string]decimal.Decimal{
				"static_map_loads": usd(7.00),
				"street_view":      usd(14.00),
				"aerial_view":      usd(14.00),
			},
			PrimaryTier:     "static_map_loads",
			PrimaryDetail:   "Dynamic map loads",
			FreeTierMonthly: 28000,
		},
		{
			ID:       ServiceStaticMaps,
			Name:     "Static Maps API",
			Category: "maps",
			ProbeURL: "https://maps.googleapis.com/maps/api/staticmap?center=0,0&zoom=1&size=1x1&key={key}",
			Tiers: map[string]decimal.Decimal{
				"default": usd(2.00),
				"premium": usd(1.60),
			},
			PrimaryTier:     "default",
			PrimaryDetail:   "Standard pricing",
			FreeTierMonthly: 100000,
		},
		{
			ID:       ServiceDirections,
			Name:     "Directions API",
			Category: "routes",
			ProbeURL: "https://maps.googleapis.com/maps/api/directions/json?origin=0,0&destination=1,1&key={key}",
			Tiers: map[string]decimal.Decimal{
				"basic":                   usd(5.00),
				"advanced":                usd(10.00),
				"advanced_next_departure": usd(20.00),
			},
			PrimaryTier:     "basic",
			PrimaryDetail:   "Basic directions (no traffic)",
			FreeTierMonthly: 40000,
		},
		{
			ID:       ServicePlaces,
			Name:     "Places API",
			Category: "places",
			ProbeURL: "https://maps.googleapis.com/maps/api/place/nearbysearch/json?location=0,0&radius=1&key={key}",
			Tiers: map[string]decimal.Decimal{
				"basic":              usd(17.00),
				"contact":            usd(20.00),
				"atmosphere":         usd(25.00),
				"details":            usd(17.00),
				"photos":             usd(7.00),
				"autocomplete":       usd(2.83),
				"query_autocomplete": usd(5.66),
			},
			PrimaryTier:     "details",
			PrimaryDetail:   "Place details",
			FreeTierMonthly: 11764,
		},
		{
			ID:       ServiceGeocoding,
			Name:     "Geocoding API",
			Category: "geocoding",
			ProbeURL: "https://maps.googleapis.com/maps/api/geocode/json?address=test&key={key}",
			Tiers: map[string]decimal.Decimal{
				"default": usd(5.00),
			},
			PrimaryTier:     "default",
			PrimaryDetail:   "Geocoding/Reverse geocoding",
			FreeTierMonthly: 40000,
		},
		{
			ID:       ServiceDistanceMatrix,
			Name:     "Distance Matrix API",
			Category: "routes",
			ProbeURL: "https://maps.googleapis.com/maps/api/distancematrix/json?origins=0,0&destinations=1,1&key={key}",
			Tiers: map[string]decimal.Decimal{
				"basic":    usd(5.00),
				"advanced": usd(10.00),
			},
			PrimaryTier:     "basic",
			PrimaryDetail:   "Basic distance matrix",
			FreeTierMonthly: 40000,
		},
		{
			ID:       ServiceElevation,
			Name:     "Elevation API",
			Category: "elevation",
			ProbeURL: "https://maps.googleapis.com/maps/api/elevation/json?locations=0,0&key={key}",
			Tiers: map[string]decimal.Decimal{
				"positional":   usd(5.00),
				"sampled_path": usd(10.00),
			},
			PrimaryTier:     "positional",
			PrimaryDetail:   "Positional requests",
			FreeTierMonthly: 40000,
		},
		{
			ID:       ServiceRoads,
			Name:     "Roads API",
			Category: "roads",
			ProbeURL: "https://roads.googleapis.com/v1/nearestRoads?points=0,0&key={key}",
			Tiers: map[string]decimal.Decimal{
				"snap_to_roads": usd(10.00),
				"nearest_roads": usd(10.00),
				"speed_limits":  usd(20.00),
			},
			PrimaryTier:     "nearest_roads",
			PrimaryDetail:   "Nearest roads",
			FreeTierMonthly: 20000,
		},
		{
			ID:       ServiceStreetView,
			Name:     "Street View Static API",
			Category: "streetview",
			ProbeURL: "https://maps.googleapis.com/maps/api/streetview/metadata?location=0,0&key={key}",
			Tiers: map[string]decimal.Decimal{
				"default": usd(7.00),
			},
			PrimaryTier:     "default",
			PrimaryDetail:   "Street View panoramas",
			FreeTierMonthly: 28571,
		},
	}

	c := &Catalog{
		entries: make(map[Service]Descriptor, len(descriptors)),
		canary:  ServiceStaticMaps,
	}
	for _, d := range descriptors {
		c.entries[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// NewFromDescriptors builds a catalog from explicit descriptors, in the
// given order. The first descriptor is the canary. Used for alternate
// catalogs and tests.
func NewFromDescriptors(descriptors ...Descriptor) *Catalog {
	c := &Catalog{entries: make(map[Service]Descriptor, len(descriptors))}
	for i, d := range descriptors {
		if i == 0 {
			c.canary = d.ID
		}
		c.entries[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// Lookup returns the descriptor for a service id.
func (c *Catalog) Lookup(id Service) (Descriptor, bool) {
	d, ok := c.entries[id]
	return d, ok
}

// Services returns all descriptors in catalog order.
func (c *Catalog) Services() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// Canary returns the descriptor used to establish basic key validity
// before the full sweep. In the built-in catalog this is Static Maps,
// the cheapest reliable endpoint.
func (c *Catalog) Canary() Descriptor {
	return c.entries[c.canary]
}

// WithOverrides returns a copy of the catalog with configured per-1k
// pricing overrides merged in. A known service keeps its tier table but
// has the primary tier repriced; an unknown id becomes a synthetic
// priceable (but not probeable) entry with no free tier.
func (c *Catalog) WithOverrides(overrides map[string]float64) *Catalog {
	if len(overrides) == 0 {
		return c
	}

	merged := &Catalog{
		entries: make(map[Service]Descriptor, len(c.entries)),
		canary:  c.canary,
	}
	for _, id := range c.order {
		merged.entries[id] = c.entries[id]
		merged.order = append(merged.order, id)
	}

	for id, price := range overrides {
		sid := Service(id)
		if d, ok := merged.entries[sid]; ok {
			tiers := make(map[string]decimal.Decimal, len(d.Tiers))
			for name, cost := range d.Tiers {
				tiers[name] = cost
			}
			tiers[d.PrimaryTier] = usd(price)
			d.Tiers = tiers
			merged.entries[sid] = d
			continue
		}
		merged.entries[sid] = Descriptor{
			ID:            sid,
			Name:          id,
			Category:      "custom",
			Tiers:         map[string]decimal.Decimal{"override": usd(price)},
			PrimaryTier:   "override",
			PrimaryDetail: "Configured override pricing",
		}
		merged.order = append(merged.order, sid)
	}
	return merged
}
