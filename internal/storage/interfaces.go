package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// BarStore defines the interface for price bar storage operations
type BarStore interface {
	// UpsertBar writes a bar, replacing any existing row for the same
	// (ticker, timestamp) key
	UpsertBar(ctx context.Context, bar *models.Bar) error

	// UpsertBars writes multiple bars in one transaction
	UpsertBars(ctx context.Context, bars []*models.Bar) error

	// GetBars retrieves bars for a ticker within a time range, oldest first
	GetBars(ctx context.Context, ticker string, start, end time.Time) ([]*models.Bar, error)

	// GetLatestBars retrieves the latest N bars for a ticker, oldest first
	GetLatestBars(ctx context.Context, ticker string, limit int) ([]*models.Bar, error)

	// GetCloses retrieves the close series for a ticker over the last N
	// days, oldest first
	GetCloses(ctx context.Context, ticker string, days int) ([]float64, error)

	// GetVolumeStats computes volume statistics over a lookback window,
	// ignoring zero-volume rows
	GetVolumeStats(ctx context.Context, ticker string, lookbackDays int) (*models.VolumeStats, error)

	// GetRecentVolumes retrieves the last N bar volumes, oldest first
	GetRecentVolumes(ctx context.Context, ticker string, periods int) ([]int64, error)

	// GetRecentHigh returns the highest close over the last N days,
	// excluding the most recent bar
	GetRecentHigh(ctx context.Context, ticker string, days int) (float64, error)

	// Close closes the storage connection
	Close() error
}

// AlertStore defines the interface for alert storage operations
type AlertStore interface {
	// InsertAlert persists an alert
	InsertAlert(ctx context.Context, alert *models.Alert) error

	// GetRecentAlerts retrieves alerts created since a time, newest first
	GetRecentAlerts(ctx context.Context, since time.Time, limit int) ([]*models.Alert, error)

	// CountAlertsSince counts alerts for a ticker created since a time
	CountAlertsSince(ctx context.Context, ticker string, since time.Time) (int, error)

	// LastAlertTime returns the creation time of the most recent alert
	// for a ticker, or nil when none exists
	LastAlertTime(ctx context.Context, ticker string) (*time.Time, error)

	// Close closes the storage connection
	Close() error
}

// Broadcaster defines the interface for publishing alerts to downstream
// consumers
type Broadcaster interface {
	// PublishAlert publishes an alert to the alert stream and the
	// realtime channel
	PublishAlert(ctx context.Context, alert *models.Alert) error

	// Close closes the connection
	Close() error
}
