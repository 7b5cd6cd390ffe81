package store

import (
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ForecastEntry struct {
	Date          int64   `gorm:"primaryKey;autoIncrement:false" json:"date"`
	Humidity      int     `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	WeatherID     int     `json:"weather_id"`
}

func fromEntry(e forecast.Entry) ForecastEntry {
	return ForecastEntry{
		Date:          e.Date,
		Humidity:      e.Humidity,
		Pressure:      e.Pressure,
		WindSpeed:     e.WindSpeed,
		WindDirection: e.WindDirection,
		High:          e.High,
		Low:           e.Low,
		WeatherID:     e.ConditionCode,
	}
}

func (f ForecastEntry) toEntry() forecast.Entry {
	return forecast.Entry{
		Date:          f.Date,
		Humidity:      f.Humidity,
		Pressure:      f.Pressure,
		WindSpeed:     f.WindSpeed,
		WindDirection: f.WindDirection,
		High:          f.High,
		Low:           f.Low,
		ConditionCode: f.WeatherID,
	}
}

// Location holds the coordinates of the last forecast. There is a single row.
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	OutcomeOK            = "ok"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeProviderError = "provider_error"
	OutcomeMalformed     = "malformed"
	OutcomeStoreFailed   = "store_failed"
)

type SyncRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StartedAt  time.Time      `gorm:"index" json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Entries    int            `json:"entries"`
	Outcome    string         `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
}
