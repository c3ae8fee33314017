// Package geo resolves free-text locations to coordinates for the map
// action of itinerary cards.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrMapLookup    = errors.New("map lookup failed")
	ErrNoResult     = fmt.Errorf("%w: no result", ErrMapLookup)
	ErrLookupFailed = fmt.Errorf("%w: lookup error", ErrMapLookup)
	ErrEmptyQuery   = fmt.Errorf("%w: empty query", ErrMapLookup)
)

// Coordinates is a resolved map position
type Coordinates struct {
	Query       string  `json:"query"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Locator resolves a location query
type Locator interface {
	Lookup(ctx context.Context, query string) (Coordinates, error)
}

// NominatimClient queries a Nominatim compatible search endpoint
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a client for the search API at baseURL
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *NominatimClient) Lookup(ctx context.Context, query string) (Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Coordinates{}, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("%w: decoding response: %v", ErrLookupFailed, err)
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrNoResult, query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrLookupFailed, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrLookupFailed, results[0].Lon)
	}

	return Coordinates{
		Query:       query,
		Lat:         lat,
		Lon:         lon,
		DisplayName: results[0].DisplayName,
	}, nil
}

// CachedLocator memoises successful lookups. Failures are not cached.
type CachedLocator struct {
	next   Locator
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCachedLocator wraps next with a cache whose entries live for ttl
func NewCachedLocator(next Locator, ttl time.Duration, logger *zap.Logger) *CachedLocator {
	return &CachedLocator{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.Named("geo"),
	}
}

func (l *CachedLocator) Lookup(ctx context.Context, query string) (Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if v, ok := l.cache.Get(key); ok {
		return v.(Coordinates), nil
	}

	coords, err := l.next.Lookup(ctx, query)
	if err != nil {
		l.logger.Info("Map lookup failed", zap.String("query", query), zap.Error(err))
		return Coordinates{}, err
	}
	l.cache.SetDefault(key, coords)
	return coords, nil
}

// Notice returns the inline message shown when a lookup fails
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrNoResult), errors.Is(err, ErrEmptyQuery):
		return "Location not found on the map."
	default:
		return "The map is unavailable right now."
	}
}
