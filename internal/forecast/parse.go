package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Parser turns a daily forecast response into entries.
//
// Dates embedded in the response are ignored: the provider reports them in the
// city's local time, so entry i is dated today + i days instead. This relies on
// the provider returning days in order starting with today.
type Parser struct {
	Locations LocationSink
	Publisher SummaryPublisher
	// Metric selects Celsius display strings for the published summary.
	Metric bool
}

// Parse validates the whole payload before returning anything; on error no
// entries are returned and nothing is published.
func (p *Parser) Parse(ctx context.Context, raw []byte, todayUTCMidnightMillis int64) ([]Entry, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if v, ok := doc["cod"]; ok {
		code, err := statusCode(v)
		if err != nil {
			return nil, err
		}
		if code != http.StatusOK {
			return nil, ErrProviderError
		}
	}

	list, err := requireArray(doc, "list", "list")
	if err != nil {
		return nil, err
	}
	city, err := requireObject(doc, "city", "city")
	if err != nil {
		return nil, err
	}
	coord, err := requireObject(city, "coord", "city.coord")
	if err != nil {
		return nil, err
	}
	lat, err := requireNumber(coord, "lat", "city.coord.lat")
	if err != nil {
		return nil, err
	}
	lon, err := requireNumber(coord, "lon", "city.coord.lon")
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(list))
	for i, item := range list {
		e, err := parseDay(item, i)
		if err != nil {
			return nil, err
		}
		e.Date = todayUTCMidnightMillis + int64(i)*DayInMillis
		entries[i] = e
	}

	if p.Locations != nil {
		if err := p.Locations.SetLocation(ctx, lat, lon); err != nil {
			slog.Warn("forecast location update failed", "lat", lat, "lon", lon, "error", err)
		}
	}

	if len(entries) > 0 && p.Publisher != nil {
		today := entries[0]
		p.Publisher.PublishSummary(ctx,
			FormatTemperature(today.High, p.Metric),
			FormatTemperature(today.Low, p.Metric),
			today.ConditionCode,
		)
	}

	return entries, nil
}

func parseDay(item any, i int) (Entry, error) {
	prefix := "list[" + strconv.Itoa(i) + "]"
	day, ok := item.(map[string]any)
	if !ok {
		return Entry{}, &FieldError{Path: prefix, Reason: "not an object"}
	}

	var (
		e   Entry
		err error
	)
	if e.Pressure, err = requireNumber(day, "pressure", prefix+".pressure"); err != nil {
		return Entry{}, err
	}
	if e.Humidity, err = requireInt(day, "humidity", prefix+".humidity"); err != nil {
		return Entry{}, err
	}
	if e.WindSpeed, err = requireNumber(day, "speed", prefix+".speed"); err != nil {
		return Entry{}, err
	}
	if e.WindDirection, err = requireNumber(day, "deg", prefix+".deg"); err != nil {
		return Entry{}, err
	}

	weather, err := requireArray(day, "weather", prefix+".weather")
	if err != nil {
		return Entry{}, err
	}
	if len(weather) == 0 {
		return Entry{}, &FieldError{Path: prefix + ".weather", Reason: "empty"}
	}
	cond, ok := weather[0].(map[string]any)
	if !ok {
		return Entry{}, &FieldError{Path: prefix + ".weather[0]", Reason: "not an object"}
	}
	if e.ConditionCode, err = requireInt(cond, "id", prefix+".weather[0].id"); err != nil {
		return Entry{}, err
	}

	temp, err := requireObject(day, "temp", prefix+".temp")
	if err != nil {
		return Entry{}, err
	}
	if e.High, err = requireNumber(temp, "max", prefix+".temp.max"); err != nil {
		return Entry{}, err
	}
	if e.Low, err = requireNumber(temp, "min", prefix+".temp.min"); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// statusCode accepts both the numeric and the string form of "cod";
// the provider uses either depending on the endpoint.
func statusCode(v any) (int, error) {
	switch c := v.(type) {
	case float64:
		return int(c), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			return 0, &FieldError{Path: "cod", Reason: "not a number"}
		}
		return n, nil
	}
	return 0, &FieldError{Path: "cod", Reason: "not a number"}
}

func requireObject(m map[string]any, key, path string) (map[string]any, error) {
	v, ok := m[key]
	if !ok {
		return nil, &FieldError{Path: path, Reason: "missing"}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &FieldError{Path: path, Reason: "not an object"}
	}
	return obj, nil
}

func requireArray(m map[string]any, key, path string) ([]any, error) {
	v, ok := m[key]
	if !ok {
		return nil, &FieldError{Path: path, Reason: "missing"}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &FieldError{Path: path, Reason: "not an array"}
	}
	return arr, nil
}

func requireNumber(m map[string]any, key, path string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &FieldError{Path: path, Reason: "missing"}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &FieldError{Path: path, Reason: "not a number"}
	}
	return f, nil
}

func requireInt(m map[string]any, key, path string) (int, error) {
	f, err := requireNumber(m, key, path)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
