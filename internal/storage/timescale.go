package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	timescaleQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timescale_query_latency_seconds",
			Help:    "Query latency to TimescaleDB in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	timescaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timescale_errors_total",
			Help: "Total number of TimescaleDB operation errors",
		},
		[]string{"operation"},
	)
)

// TimescaleClient implements BarStore and AlertStore against TimescaleDB.
// stock_prices is a hypertable keyed by (time, ticker); writes use upsert
// semantics so duplicate or late bar delivery is idempotent.
type TimescaleClient struct {
	db *sql.DB
}

// NewTimescaleClient creates a new TimescaleDB client
func NewTimescaleClient(cfg config.DatabaseConfig) (*TimescaleClient, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to TimescaleDB",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
	)

	return &TimescaleClient{db: db}, nil
}

const upsertBarQuery = `
	INSERT INTO stock_prices (time, ticker, open, high, low, close, volume, vwap)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (time, ticker) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		vwap = EXCLUDED.vwap
`

// UpsertBar writes a bar, replacing any existing row for the same key
func (t *TimescaleClient) UpsertBar(ctx context.Context, bar *models.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	start := time.Now()
	_, err := t.db.ExecContext(ctx, upsertBarQuery,
		bar.Timestamp,
		bar.Ticker,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
		nullFloat(bar.VWAP),
	)
	timescaleQueryLatency.WithLabelValues("upsert_bar").Observe(time.Since(start).Seconds())
	if err != nil {
		timescaleErrors.WithLabelValues("upsert_bar").Inc()
		return fmt.Errorf("failed to upsert bar: %w", err)
	}
	return nil
}

// UpsertBars writes multiple bars in one transaction
func (t *TimescaleClient) UpsertBars(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBarQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			logger.Warn("Invalid bar, skipping",
				logger.ErrorField(err),
				logger.String("ticker", bar.Ticker),
			)
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			bar.Timestamp, bar.Ticker, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, nullFloat(bar.VWAP),
		); err != nil {
			timescaleErrors.WithLabelValues("upsert_bars").Inc()
			return fmt.Errorf("failed to upsert bar for %s: %w", bar.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars: %w", err)
	}
	return nil
}

// GetBars retrieves bars for a ticker within a time range, oldest first
func (t *TimescaleClient) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]*models.Bar, error) {
	query := `
		SELECT ticker, time, open, high, low, close, volume, COALESCE(vwap, 0)
		FROM stock_prices
		WHERE ticker = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC
	`
	rows, err := t.db.QueryContext(ctx, query, ticker, start, end)
	if err != nil {
		timescaleErrors.WithLabelValues("get_bars").Inc()
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetLatestBars retrieves the latest N bars for a ticker, oldest first
func (t *TimescaleClient) GetLatestBars(ctx context.Context, ticker string, limit int) ([]*models.Bar, error) {
	query := `
		SELECT ticker, time, open, high, low, close, volume, COALESCE(vwap, 0)
		FROM stock_prices
		WHERE ticker = $1
		ORDER BY time DESC
		LIMIT $2
	`
	rows, err := t.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		timescaleErrors.WithLabelValues("get_latest_bars").Inc()
		return nil, fmt.Errorf("failed to query latest bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// GetCloses retrieves the close series for a ticker over the last N days,
// oldest first
func (t *TimescaleClient) GetCloses(ctx context.Context, ticker string, days int) ([]float64, error) {
	query := `
		SELECT close
		FROM stock_prices
		WHERE ticker = $1 AND time >= NOW() - ($2 || ' days')::interval
		ORDER BY time ASC
	`
	rows, err := t.db.QueryContext(ctx, query, ticker, days)
	if err != nil {
		timescaleErrors.WithLabelValues("get_closes").Inc()
		return nil, fmt.Errorf("failed to query closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return closes, nil
}

// GetVolumeStats computes volume statistics over a lookback window.
// Zero-volume rows are excluded so halted sessions do not drag the
// baseline down.
func (t *TimescaleClient) GetVolumeStats(ctx context.Context, ticker string, lookbackDays int) (*models.VolumeStats, error) {
	query := `
		SELECT
			COALESCE(AVG(volume), 0),
			COALESCE(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY volume), 0),
			COALESCE(MAX(volume), 0),
			COALESCE(MIN(volume), 0),
			COALESCE(STDDEV(volume), 0)
		FROM stock_prices
		WHERE ticker = $1
		  AND time >= NOW() - ($2 || ' days')::interval
		  AND volume > 0
	`
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, ticker, lookbackDays)
	timescaleQueryLatency.WithLabelValues("volume_stats").Observe(time.Since(start).Seconds())

	stats := &models.VolumeStats{Ticker: ticker, LookbackDays: lookbackDays}
	if err := row.Scan(&stats.Average, &stats.Median, &stats.Max, &stats.Min, &stats.StdDev); err != nil {
		timescaleErrors.WithLabelValues("volume_stats").Inc()
		return nil, fmt.Errorf("failed to compute volume stats: %w", err)
	}
	return stats, nil
}

// GetRecentVolumes retrieves the last N bar volumes, oldest first
func (t *TimescaleClient) GetRecentVolumes(ctx context.Context, ticker string, periods int) ([]int64, error) {
	query := `
		SELECT volume FROM (
			SELECT time, volume
			FROM stock_prices
			WHERE ticker = $1
			ORDER BY time DESC
			LIMIT $2
		) sub
		ORDER BY time ASC
	`
	rows, err := t.db.QueryContext(ctx, query, ticker, periods)
	if err != nil {
		timescaleErrors.WithLabelValues("recent_volumes").Inc()
		return nil, fmt.Errorf("failed to query recent volumes: %w", err)
	}
	defer rows.Close()

	var volumes []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan volume: %w", err)
		}
		volumes = append(volumes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return volumes, nil
}

// GetRecentHigh returns the highest close over the last N days, excluding
// the most recent bar so a fresh breakout bar does not become its own
// resistance
func (t *TimescaleClient) GetRecentHigh(ctx context.Context, ticker string, days int) (float64, error) {
	query := `
		SELECT COALESCE(MAX(close), 0) FROM (
			SELECT close
			FROM stock_prices
			WHERE ticker = $1 AND time >= NOW() - ($2 || ' days')::interval
			ORDER BY time DESC
			OFFSET 1
		) sub
	`
	var high float64
	if err := t.db.QueryRowContext(ctx, query, ticker, days).Scan(&high); err != nil {
		timescaleErrors.WithLabelValues("recent_high").Inc()
		return 0, fmt.Errorf("failed to query recent high: %w", err)
	}
	return high, nil
}

// InsertAlert persists an alert with its full score breakdown as JSONB
func (t *TimescaleClient) InsertAlert(ctx context.Context, alert *models.Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	metadata, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal alert metadata: %w", err)
	}

	query := `
		INSERT INTO alerts (id, ticker, score, alert_type, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	start := time.Now()
	_, err = t.db.ExecContext(ctx, query,
		alert.ID,
		alert.Ticker,
		alert.Score,
		alert.AlertType,
		alert.Message,
		metadata,
		alert.CreatedAt,
	)
	timescaleQueryLatency.WithLabelValues("insert_alert").Observe(time.Since(start).Seconds())
	if err != nil {
		timescaleErrors.WithLabelValues("insert_alert").Inc()
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetRecentAlerts retrieves alerts created since a time, newest first
func (t *TimescaleClient) GetRecentAlerts(ctx context.Context, since time.Time, limit int) ([]*models.Alert, error) {
	query := `
		SELECT id, ticker, score, alert_type, message, metadata, created_at
		FROM alerts
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := t.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		timescaleErrors.WithLabelValues("get_recent_alerts").Inc()
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var alert models.Alert
		var metadata []byte
		if err := rows.Scan(
			&alert.ID,
			&alert.Ticker,
			&alert.Score,
			&alert.AlertType,
			&alert.Message,
			&metadata,
			&alert.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &alert.Metadata); err != nil {
				logger.Warn("Failed to unmarshal alert metadata",
					logger.ErrorField(err),
					logger.String("alert_id", alert.ID),
				)
			}
		}
		alerts = append(alerts, &alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return alerts, nil
}

// CountAlertsSince counts alerts for a ticker created since a time
func (t *TimescaleClient) CountAlertsSince(ctx context.Context, ticker string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM alerts WHERE ticker = $1 AND created_at >= $2`
	if err := t.db.QueryRowContext(ctx, query, ticker, since).Scan(&count); err != nil {
		timescaleErrors.WithLabelValues("count_alerts").Inc()
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// LastAlertTime returns the creation time of the most recent alert for a
// ticker, or nil when none exists
func (t *TimescaleClient) LastAlertTime(ctx context.Context, ticker string) (*time.Time, error) {
	var ts time.Time
	query := `SELECT created_at FROM alerts WHERE ticker = $1 ORDER BY created_at DESC LIMIT 1`
	err := t.db.QueryRowContext(ctx, query, ticker).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		timescaleErrors.WithLabelValues("last_alert_time").Inc()
		return nil, fmt.Errorf("failed to query last alert time: %w", err)
	}
	return &ts, nil
}

// Close closes the database connection
func (t *TimescaleClient) Close() error {
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func scanBars(rows *sql.Rows) ([]*models.Bar, error) {
	var bars []*models.Bar
	for rows.Next() {
		var bar models.Bar
		if err := rows.Scan(
			&bar.Ticker,
			&bar.Timestamp,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
			&bar.VWAP,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, &bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bars, nil
}
