package owm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"

	"github.com/goccy/go-json"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"
	dailyPath      = "/data/2.5/forecast/daily"
	forecastDays   = 14
	maxBodyBytes   = 1 << 20
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Query selects the forecast location. Coordinates are used when HasCoords
// is set, otherwise City is sent as a free-form query (name or postal code).
type Query struct {
	City      string
	Lat       float64
	Lon       float64
	HasCoords bool
}

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

func isAuthFailure(err error) bool {
	var se httpStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.status == http.StatusUnauthorized || se.status == http.StatusForbidden
}

func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// FetchDaily returns the raw daily forecast document; parsing is left to
// forecast.Parser. Without a usable API key a mock document is returned so the
// rest of the pipeline keeps working.
func (c *Client) FetchDaily(ctx context.Context, q Query) ([]byte, error) {
	if c.apiKey == "" {
		return mockDaily(q)
	}

	params := url.Values{}
	if q.HasCoords {
		params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	} else {
		params.Set("q", q.City)
	}
	params.Set("mode", "json")
	params.Set("units", "metric")
	params.Set("cnt", strconv.Itoa(forecastDays))
	params.Set("appid", c.apiKey)

	body, err := c.fetch(ctx, c.baseURL+dailyPath+"?"+params.Encode())
	if err != nil {
		if isAuthFailure(err) {
			return mockDaily(q)
		}
		var se httpStatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %w", forecast.ErrProviderError, err)
		}
		return nil, fmt.Errorf("fetching daily forecast: %w", err)
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

type mockCity struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

var mockCities = []mockCity{
	{Name: "Budapest", Country: "HU", Lat: 47.4979, Lon: 19.0402},
	{Name: "London", Country: "GB", Lat: 51.5074, Lon: -0.1278},
	{Name: "New York", Country: "US", Lat: 40.7128, Lon: -74.0060},
	{Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503},
	{Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522},
	{Name: "Berlin", Country: "DE", Lat: 52.5200, Lon: 13.4050},
	{Name: "Sydney", Country: "AU", Lat: -33.8688, Lon: 151.2093},
	{Name: "Mountain View", Country: "US", Lat: 37.3861, Lon: -122.0839},
	{Name: "Amsterdam", Country: "NL", Lat: 52.3676, Lon: 4.9041},
	{Name: "Vienna", Country: "AT", Lat: 48.2082, Lon: 16.3738},
}

func lookupMockCity(q Query) mockCity {
	if q.HasCoords {
		return mockCity{Name: "Unknown", Lat: q.Lat, Lon: q.Lon}
	}
	name := strings.ToLower(strings.TrimSpace(q.City))
	for _, c := range mockCities {
		if name != "" && strings.Contains(strings.ToLower(c.Name), name) {
			return c
		}
	}
	return mockCities[7]
}

var mockConditions = []int{800, 801, 802, 500, 501, 803, 200, 600, 741, 804}

// mockDaily builds a stable document in the provider's daily schema.
func mockDaily(q Query) ([]byte, error) {
	city := lookupMockCity(q)
	start := time.Now().UTC().Truncate(24 * time.Hour)

	list := make([]map[string]any, 0, forecastDays)
	for i := 0; i < forecastDays; i++ {
		high := 20 + float64((i%5)-2)
		list = append(list, map[string]any{
			"dt":       start.AddDate(0, 0, i).Unix(),
			"pressure": 1012 + float64(i%4),
			"humidity": 55 + (i%6)*5,
			"speed":    2.5 + float64(i%3),
			"deg":      (i * 45) % 360,
			"weather":  []map[string]any{{"id": mockConditions[i%len(mockConditions)]}},
			"temp":     map[string]any{"day": high - 2, "max": high, "min": high - 8},
		})
	}
	doc := map[string]any{
		"cod": "200",
		"cnt": forecastDays,
		"city": map[string]any{
			"name":    city.Name,
			"country": city.Country,
			"coord":   map[string]any{"lat": city.Lat, "lon": city.Lon},
		},
		"list": list,
	}
	return json.Marshal(doc)
}
