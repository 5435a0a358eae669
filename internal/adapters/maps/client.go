// Package maps wraps the Google Maps web services used for directions to the
// hospital and the roads around it. Route lookups are cached for a short time
// since the same origin is usually asked about several times in one dialog.
package maps

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
	gmaps "googlemaps.github.io/maps"
)

// HospitalAddress is the default destination of every route.
const HospitalAddress = "251 E Huron St, Chicago, IL 60611"

// HospitalLocation is the point traffic is sampled around.
var HospitalLocation = LatLng{Lat: 41.8947, Lng: -87.6214}

// Travel modes accepted by Directions.
const (
	Driving   = "driving"
	Walking   = "walking"
	Transit   = "transit"
	Bicycling = "bicycling"
)

// Modes lists the accepted travel modes.
var Modes = []string{Driving, Walking, Transit, Bicycling}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// RouteRequest asks for routes from Origin to the hospital.
// At most one of ArrivalTime and DepartureTime is honored; arrival wins.
type RouteRequest struct {
	Origin        string
	Mode          string
	ArrivalTime   time.Time
	DepartureTime time.Time
	Alternatives  bool
}

// Leg is the part of a route the tools report.
type Leg struct {
	Duration          time.Duration
	DurationInTraffic time.Duration
	DistanceMeters    int
	Steps             []string
}

// Client queries directions and nearby roads.
type Client struct {
	api         *gmaps.Client
	destination string
	location    LatLng
	radius      uint
	cache       *expirable.LRU[string, []Leg]
	logger      *slog.Logger
}

type config struct {
	baseURL     string
	destination string
	location    LatLng
	radius      uint
	cacheSize   int
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// Option configures the Client.
type Option func(*config)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithDestination overrides the hospital address and location.
func WithDestination(address string, at LatLng) Option {
	return func(c *config) {
		c.destination = address
		c.location = at
	}
}

// WithCache sets the route cache size and entry lifetime. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *config) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("maps: api key is required")
	}
	cfg := config{
		destination: HospitalAddress,
		location:    HospitalLocation,
		radius:      1000,
		cacheSize:   256,
		cacheTTL:    5 * time.Minute,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := []gmaps.ClientOption{gmaps.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, gmaps.WithBaseURL(cfg.baseURL))
	}
	api, err := gmaps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("maps: %w", err)
	}

	c := &Client{
		api:         api,
		destination: cfg.destination,
		location:    cfg.location,
		radius:      cfg.radius,
		logger:      cfg.logger,
	}
	if cfg.cacheSize > 0 {
		c.cache = expirable.NewLRU[string, []Leg](cfg.cacheSize, nil, cfg.cacheTTL)
	}
	return c, nil
}

// Destination is the address every route ends at.
func (c *Client) Destination() string { return c.destination }

// Directions returns the first leg of each route found, best first.
// An empty result is not an error.
func (c *Client) Directions(ctx context.Context, req RouteRequest) ([]Leg, error) {
	if strings.TrimSpace(req.Origin) == "" {
		return nil, domain.Validation("start address is required")
	}
	if req.Mode == "" {
		req.Mode = Driving
	}

	key := cacheKey(req)
	if c.cache != nil {
		if legs, ok := c.cache.Get(key); ok {
			c.logger.Debug("route cache hit", "origin", req.Origin, "mode", req.Mode)
			return legs, nil
		}
	}

	r := &gmaps.DirectionsRequest{
		Origin:       req.Origin,
		Destination:  c.destination,
		Mode:         gmaps.Mode(req.Mode),
		Alternatives: req.Alternatives,
	}
	switch {
	case !req.ArrivalTime.IsZero():
		r.ArrivalTime = strconv.FormatInt(req.ArrivalTime.Unix(), 10)
	case !req.DepartureTime.IsZero():
		r.DepartureTime = strconv.FormatInt(req.DepartureTime.Unix(), 10)
	default:
		r.DepartureTime = "now"
	}
	// Traffic estimates need a departure time and only apply to driving.
	if req.Mode == Driving && r.DepartureTime != "" {
		r.TrafficModel = gmaps.TrafficModelBestGuess
	}

	routes, _, err := c.api.Directions(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") || strings.Contains(err.Error(), "NOT_FOUND") {
			return nil, nil
		}
		return nil, domain.External("maps", err)
	}

	legs := make([]Leg, 0, len(routes))
	for _, route := range routes {
		if len(route.Legs) == 0 {
			continue
		}
		leg := route.Legs[0]
		steps := make([]string, 0, len(leg.Steps))
		for _, s := range leg.Steps {
			steps = append(steps, StripHTML(s.HTMLInstructions))
		}
		legs = append(legs, Leg{
			Duration:          leg.Duration,
			DurationInTraffic: leg.DurationInTraffic,
			DistanceMeters:    leg.Distance.Meters,
			Steps:             steps,
		})
	}

	if c.cache != nil {
		c.cache.Add(key, legs)
	}
	return legs, nil
}

// NearbyRoads names up to limit roads within a kilometer of the hospital.
func (c *Client) NearbyRoads(ctx context.Context, limit int) ([]string, error) {
	resp, err := c.api.NearbySearch(ctx, &gmaps.NearbySearchRequest{
		Location: &gmaps.LatLng{Lat: c.location.Lat, Lng: c.location.Lng},
		Radius:   c.radius,
		Type:     gmaps.PlaceType("route"),
	})
	if err != nil {
		return nil, domain.External("maps", err)
	}
	names := make([]string, 0, limit)
	for _, r := range resp.Results {
		if len(names) == limit {
			break
		}
		name := r.Name
		if name == "" {
			name = "Unknown Road"
		}
		names = append(names, name)
	}
	return names, nil
}

// Times are truncated so requests within the same minute share an entry.
func cacheKey(r RouteRequest) string {
	stamp := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return strconv.FormatInt(t.Truncate(time.Minute).Unix(), 10)
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(r.Origin)), r.Mode,
		stamp(r.ArrivalTime), stamp(r.DepartureTime), strconv.FormatBool(r.Alternatives),
	}, "|")
}

var (
	divOpen = regexp.MustCompile(`<div[^>]*>`)
	anyTag  = regexp.MustCompile(`<[^>]+>`)
)

// StripHTML turns a step instruction into plain text. Nested notes (rendered
// by the API as divs) are appended after " - ".
func StripHTML(s string) string {
	s = divOpen.ReplaceAllString(s, " - ")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
