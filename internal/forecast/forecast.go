package forecast

import (
	"context"
	"errors"
	"time"
)

// DayInMillis is the spacing between consecutive forecast dates.
const DayInMillis int64 = 24 * 60 * 60 * 1000

var (
	// ErrProviderError is returned when the payload carries a non-OK status.
	// A missing location and a provider outage are reported the same way.
	ErrProviderError = errors.New("provider reported an error")
	// ErrMalformedPayload is returned when a required field is missing or has the wrong type.
	ErrMalformedPayload = errors.New("malformed forecast payload")
)

// Entry is one day of forecast. Date is the UTC midnight of that day in epoch millis.
type Entry struct {
	Date          int64   `json:"date"`
	Humidity      int     `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	ConditionCode int     `json:"condition_code"`
}

// LocationSink receives the coordinates of the city the forecast belongs to.
type LocationSink interface {
	SetLocation(ctx context.Context, lat, lon float64) error
}

// SummaryPublisher pushes today's display values to the paired watch.
// Implementations must not block and never report failure to the caller.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, high, low string, weatherID int)
}

// FieldError names the JSON path that failed validation.
type FieldError struct {
	Path   string
	Reason string
}

func (e *FieldError) Error() string {
	return "forecast field " + e.Path + ": " + e.Reason
}

func (e *FieldError) Unwrap() error { return ErrMalformedPayload }

// NormalizedUTCToday returns the UTC midnight of now's UTC day in epoch millis.
func NormalizedUTCToday(now time.Time) int64 {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}
