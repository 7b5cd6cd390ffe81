package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const locationRowID = 1

type Repo struct {
	db *gorm.DB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)}
}

func OpenPostgres(user, password, dbName, host, port, sslMode string) (*gorm.DB, error) {
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "weather-sync.db"
	}
	return gorm.Open(sqlite.Open(path), gormConfig())
}

func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&ForecastEntry{}, &Location{}, &SyncRun{}); err != nil {
		return nil, err
	}
	return &Repo{db: db}, nil
}

// ReplaceForecast swaps the stored forecast for entries in one transaction.
func (r *Repo) ReplaceForecast(ctx context.Context, entries []forecast.Entry) error {
	rows := make([]ForecastEntry, len(entries))
	for i, e := range entries {
		rows[i] = fromEntry(e)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ForecastEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *Repo) ListForecast(ctx context.Context, fromMillis int64) ([]forecast.Entry, error) {
	var rows []ForecastEntry
	err := r.db.WithContext(ctx).
		Where(clause.Gte{Column: clause.Column{Name: "date"}, Value: fromMillis}).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]forecast.Entry, len(rows))
	for i, row := range rows {
		out[i] = row.toEntry()
	}
	return out, nil
}

func (r *Repo) CountForecast(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ForecastEntry{}).Count(&n).Error
	return n, err
}

// SetLocation implements forecast.LocationSink.
func (r *Repo) SetLocation(ctx context.Context, lat, lon float64) error {
	loc := &Location{ID: locationRowID, Lat: lat, Lon: lon, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "updated_at"}),
	}).Create(loc).Error
}

func (r *Repo) Location(ctx context.Context) (*Location, error) {
	var loc Location
	if err := r.db.WithContext(ctx).First(&loc, locationRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *Repo) RecordRun(ctx context.Context, run *SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}
	var runs []SyncRun
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "started_at"}, Desc: true}).
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
