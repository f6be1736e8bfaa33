package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Nominatim's usage policy requires an identifying User-Agent and at
// most one request per second.
const nominatimUserAgent = "outlets-cli/1.0 (github.com/klgeo/outlets-cli)"

// nominatimPlace is one entry of the Nominatim search response.
type nominatimPlace struct {
	Lat        string `json:"lat"`
	Lon        string `json:"lon"`
	Type       string `json:"type"`
	Importance float64 `json:"importance"`
}

// NominatimProvider geocodes via the OpenStreetMap Nominatim API.
type NominatimProvider struct {
	baseURL     string
	countryCode string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NominatimOption configures the NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimURL overrides the API endpoint, mostly for self-hosted
// instances and tests.
func WithNominatimURL(u string) NominatimOption {
	return func(p *NominatimProvider) { p.baseURL = u }
}

// WithCountryCode restricts results to one ISO country code.
func WithCountryCode(code string) NominatimOption {
	return func(p *NominatimProvider) { p.countryCode = code }
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// WithNominatimRateLimit overrides the requests-per-second limit.
func WithNominatimRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewNominatimProvider creates a NominatimProvider with the policy
// defaults: public endpoint, 1 req/s, results limited to Malaysia.
func NewNominatimProvider(opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:     defaultNominatimURL,
		countryCode: "my",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider. Nominatim needs no credentials.
func (p *NominatimProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {address},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if p.countryCode != "" {
		params.Set("countrycodes", p.countryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lat %q", place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lon %q", place.Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimTypeToQuality(place.Type),
		Matched:   true,
	}, nil
}

// nominatimTypeToQuality maps Nominatim place types to our quality taxonomy.
func nominatimTypeToQuality(placeType string) string {
	switch placeType {
	case "house", "building", "retail", "commercial":
		return "rooftop"
	case "road", "residential", "pedestrian":
		return "centroid"
	default:
		return "approximate"
	}
}
