// Package weather looks up the current temperature from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	// DefaultCity is queried when no location is known.
	DefaultCity = "Tokyo"
	// DefaultTTL is how long a successful report is reused.
	DefaultTTL = 10 * time.Minute

	requestTimeout = 5 * time.Second
	rateLimitDelay = time.Second
	rateLimitBurst = 5
)

// Descriptions of unavailable reports.
const (
	DescriptionNoKey       = "API key not configured"
	DescriptionUnreachable = "weather service unavailable"
)

// Location is where the weather is wanted. Coordinates take precedence over
// the city name.
type Location struct {
	Latitude  *float64
	Longitude *float64
	City      string
}

func (l Location) hasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Report is the current weather at a location. Temperature is nil whenever
// Available is false.
type Report struct {
	Temperature *float64 `json:"temperature"`
	City        string   `json:"city"`
	Description string   `json:"description"`
	Available   bool     `json:"available"`
}

// Client queries OpenWeatherMap with rate limiting and caching. It is safe
// for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	defaultCity string
	ttl         time.Duration
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	cache       Cache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithDefaultCity sets the city used when a location has neither
// coordinates nor a city.
func WithDefaultCity(city string) Option {
	return func(c *Client) {
		if city != "" {
			c.defaultCity = city
		}
	}
}

// WithCache replaces the in-memory report cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithTTL sets how long reports are cached. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the sustained request interval and burst.
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Every(every), burst) }
}

// NewClient returns a client. An empty apiKey yields a client that always
// reports the weather as unavailable without making requests.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		defaultCity: DefaultCity,
		ttl:         DefaultTTL,
		httpClient:  &http.Client{Timeout: requestTimeout},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), rateLimitBurst),
		cache:       NewMemoryCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the weather at loc. Failures never surface as errors; they
// produce an unavailable report and are logged.
func (c *Client) Current(ctx context.Context, loc Location) Report {
	city := loc.City
	if city == "" {
		city = c.defaultCity
	}

	if c.apiKey == "" {
		return Report{City: city, Description: DescriptionNoKey}
	}

	key := cacheKey(loc, city)
	if c.ttl > 0 {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("weather cache read failed", "key", key, "error", err)
		} else if ok {
			return cached
		}
	}

	report, err := c.fetch(ctx, loc, city)
	if err != nil {
		slog.Error("weather lookup failed", "city", city, "error", err)
		return Report{City: city, Description: DescriptionUnreachable}
	}

	if c.ttl > 0 {
		if err := c.cache.Set(ctx, key, report, c.ttl); err != nil {
			slog.Warn("weather cache write failed", "key", key, "error", err)
		}
	}
	return report
}

type currentWeather struct {
	Name string `json:"name"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (c *Client) fetch(ctx context.Context, loc Location, city string) (Report, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Report{}, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	if loc.hasCoordinates() {
		q.Set("lat", strconv.FormatFloat(*loc.Latitude, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(*loc.Longitude, 'f', -1, 64))
	} else {
		q.Set("q", city)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("requesting weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body currentWeather
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decoding weather: %w", err)
	}
	if body.Main.Temp == nil {
		return Report{}, fmt.Errorf("response has no temperature")
	}

	temp := math.Round(*body.Main.Temp*10) / 10
	report := Report{Temperature: &temp, City: city, Available: true}
	if loc.hasCoordinates() && body.Name != "" {
		report.City = body.Name
	}
	if len(body.Weather) > 0 {
		report.Description = body.Weather[0].Description
	}
	return report, nil
}

// cacheKey buckets coordinates to about a kilometre so nearby requests share
// a report.
func cacheKey(loc Location, city string) string {
	if loc.hasCoordinates() {
		return fmt.Sprintf("coord:%.2f,%.2f", *loc.Latitude, *loc.Longitude)
	}
	return "city:" + strings.ToLower(strings.TrimSpace(city))
}
