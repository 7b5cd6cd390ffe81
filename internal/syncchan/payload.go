package syncchan

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	PathWeather        = "/weather"
	PathRequestWeather = "/get-weather"

	KeyHigh      = "high"
	KeyLow       = "low"
	KeyWeatherID = "weatherId"
	KeyUUID      = "uuid"
)

type DataMap map[string]any

// Encode produces the wire form. Map keys are emitted in sorted order, so equal
// maps always encode to equal bytes.
func Encode(d DataMap) ([]byte, error) {
	return json.Marshal(d)
}

func Decode(b []byte) (DataMap, error) {
	var d DataMap
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	if d == nil {
		d = DataMap{}
	}
	return d, nil
}

// WeatherSummary is what the phone publishes at PathWeather.
type WeatherSummary struct {
	High      string `json:"high"`
	Low       string `json:"low"`
	WeatherID int    `json:"weatherId"`
	UUID      string `json:"uuid"`
}

func (s WeatherSummary) DataMap() DataMap {
	return DataMap{
		KeyHigh:      s.High,
		KeyLow:       s.Low,
		KeyWeatherID: s.WeatherID,
		KeyUUID:      s.UUID,
	}
}

// DecodeSummary overlays the keys present in d onto prev. Keys that are absent
// keep their previous value; keys with the wrong type are an error.
func DecodeSummary(prev WeatherSummary, d DataMap) (WeatherSummary, error) {
	out := prev
	if v, ok := d[KeyHigh]; ok {
		s, ok := v.(string)
		if !ok {
			return prev, fmt.Errorf("summary key %q: expected string, got %T", KeyHigh, v)
		}
		out.High = s
	}
	if v, ok := d[KeyLow]; ok {
		s, ok := v.(string)
		if !ok {
			return prev, fmt.Errorf("summary key %q: expected string, got %T", KeyLow, v)
		}
		out.Low = s
	}
	if v, ok := d[KeyWeatherID]; ok {
		id, err := toInt(v)
		if err != nil {
			return prev, fmt.Errorf("summary key %q: %w", KeyWeatherID, err)
		}
		out.WeatherID = id
	}
	if v, ok := d[KeyUUID]; ok {
		s, ok := v.(string)
		if !ok {
			return prev, fmt.Errorf("summary key %q: expected string, got %T", KeyUUID, v)
		}
		out.UUID = s
	}
	return out, nil
}

// RefreshRequest is what the watch publishes at PathRequestWeather.
// Only the change matters; the token has no meaning.
type RefreshRequest struct {
	UUID string `json:"uuid"`
}

func (r RefreshRequest) DataMap() DataMap {
	return DataMap{KeyUUID: r.UUID}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
