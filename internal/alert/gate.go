package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Scorer computes a swing play score for a ticker
type Scorer interface {
	Score(ctx context.Context, ticker string, currentVolume int64) (*models.ScoreResult, error)
}

const hourBucketLayout = "2006-01-02-15"

// Gate decides whether a qualifying score becomes an alert. It suppresses
// duplicates within the dedup window and rate limits per ticker. Dedup
// uses an in-memory hour-bucket set backed by the durable alert store, so
// a restart only loses the cheap first-level check.
type Gate struct {
	cfg         config.AlertConfig
	store       storage.AlertStore
	scorer      Scorer
	broadcaster storage.Broadcaster

	mu          sync.Mutex
	recentKeys  map[string]struct{}
	tickerLocks map[string]*tickerLock
}

// tickerLock serializes gate checks for one ticker. lastUsed is written
// under the gate mutex and keeps the sweep from reaping a lock that a
// caller has fetched but not yet acquired.
type tickerLock struct {
	sync.Mutex
	lastUsed time.Time
}

// NewGate creates an alert gate. broadcaster may be nil; publishing is
// best effort either way.
func NewGate(cfg config.AlertConfig, store storage.AlertStore, scorer Scorer, broadcaster storage.Broadcaster) *Gate {
	return &Gate{
		cfg:         cfg,
		store:       store,
		scorer:      scorer,
		broadcaster: broadcaster,
		recentKeys:  make(map[string]struct{}),
		tickerLocks: make(map[string]*tickerLock),
	}
}

// CheckAndCreate scores a ticker and creates an alert when it qualifies.
// Returns ErrDuplicateAlert, ErrRateLimited or ErrNotQualified when
// suppressed; these are expected outcomes, not failures. Concurrent calls
// for the same ticker serialize so at most one alert is created.
func (g *Gate) CheckAndCreate(ctx context.Context, ticker string, currentVolume int64) (*models.Alert, error) {
	if err := models.ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = models.NormalizeTicker(ticker)

	lock := g.tickerLock(ticker)
	lock.Lock()
	defer lock.Unlock()

	if dup, err := g.isDuplicate(ctx, ticker); err != nil {
		return nil, err
	} else if dup {
		logger.Debug("Skipping duplicate alert", logger.String("ticker", ticker))
		logger.AlertsSuppressed.WithLabelValues("duplicate").Inc()
		return nil, models.ErrDuplicateAlert
	}

	if limited, err := g.isRateLimited(ctx, ticker); err != nil {
		return nil, err
	} else if limited {
		logger.Debug("Alert rate limited", logger.String("ticker", ticker))
		logger.AlertsSuppressed.WithLabelValues("rate_limited").Inc()
		return nil, models.ErrRateLimited
	}

	result, err := g.scorer.Score(ctx, ticker, currentVolume)
	if err != nil {
		return nil, err
	}
	if !result.Qualifies {
		logger.Debug("Ticker does not qualify",
			logger.String("ticker", ticker),
			logger.Float64("score", result.TotalScore),
		)
		logger.AlertsSuppressed.WithLabelValues("not_qualified").Inc()
		return nil, models.ErrNotQualified
	}

	return g.create(ctx, result)
}

// CreateFromScore creates an alert from an already computed score. The
// qualification gate still applies but dedup and rate limiting do not;
// this backs explicit on-demand checks.
func (g *Gate) CreateFromScore(ctx context.Context, result *models.ScoreResult) (*models.Alert, error) {
	if !result.Qualifies {
		return nil, models.ErrNotQualified
	}
	lock := g.tickerLock(result.Ticker)
	lock.Lock()
	defer lock.Unlock()

	return g.create(ctx, result)
}

func (g *Gate) create(ctx context.Context, result *models.ScoreResult) (*models.Alert, error) {
	alert := &models.Alert{
		ID:        uuid.NewString(),
		Ticker:    result.Ticker,
		Score:     result.TotalScore,
		AlertType: models.AlertTypeSwingPlay,
		Message:   formatMessage(result),
		Metadata:  *result,
		CreatedAt: time.Now().UTC(),
		TraceID:   logger.NewTraceID(),
	}

	if err := g.store.InsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}

	g.trackAlert(alert.Ticker, alert.CreatedAt)
	logger.AlertsCreated.Inc()
	logger.Info("Alert created",
		logger.String("ticker", alert.Ticker),
		logger.Float64("score", alert.Score),
		logger.String("alert_id", alert.ID),
	)

	if g.broadcaster != nil {
		if err := g.broadcaster.PublishAlert(ctx, alert); err != nil {
			logger.Warn("Failed to broadcast alert",
				logger.ErrorField(err),
				logger.String("ticker", alert.Ticker),
			)
		}
	}

	return alert, nil
}

// isDuplicate checks the hour-bucket set first, then the durable store
func (g *Gate) isDuplicate(ctx context.Context, ticker string) (bool, error) {
	key := bucketKey(ticker, time.Now().UTC())

	g.mu.Lock()
	_, seen := g.recentKeys[key]
	g.mu.Unlock()
	if seen {
		return true, nil
	}

	since := time.Now().UTC().Add(-g.cfg.DedupWindow)
	count, err := g.store.CountAlertsSince(ctx, ticker, since)
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

// isRateLimited enforces the hourly cap and the per-ticker cooldown
func (g *Gate) isRateLimited(ctx context.Context, ticker string) (bool, error) {
	now := time.Now().UTC()

	count, err := g.store.CountAlertsSince(ctx, ticker, now.Add(-time.Hour))
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	if count >= g.cfg.MaxAlertsPerHour {
		return true, nil
	}

	last, err := g.store.LastAlertTime(ctx, ticker)
	if err != nil {
		return false, fmt.Errorf("cooldown check failed: %w", err)
	}
	if last != nil && now.Sub(*last) < g.cfg.Cooldown {
		return true, nil
	}
	return false, nil
}

func (g *Gate) trackAlert(ticker string, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.recentKeys[bucketKey(ticker, at)] = struct{}{}

	if len(g.recentKeys) > g.cfg.MaxTrackedKeys {
		cutoff := at.Add(-g.cfg.DedupWindow).Format(hourBucketLayout)
		for key := range g.recentKeys {
			if idx := strings.LastIndexByte(key, ':'); idx >= 0 && key[idx+1:] <= cutoff {
				delete(g.recentKeys, key)
			}
		}
	}
}

func (g *Gate) tickerLock(ticker string) *tickerLock {
	now := time.Now().UTC()

	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.tickerLocks[ticker]
	if !ok {
		lock = &tickerLock{}
		g.tickerLocks[ticker] = lock
	}
	lock.lastUsed = now

	if len(g.tickerLocks) > g.cfg.MaxTrackedKeys {
		g.sweepTickerLocks(now)
	}
	return lock
}

// sweepTickerLocks drops locks idle for over an hour. Held locks fail
// TryLock and are kept; a lock fetched but not yet acquired has a fresh
// lastUsed and is never a candidate. Caller holds g.mu.
func (g *Gate) sweepTickerLocks(now time.Time) {
	cutoff := now.Add(-time.Hour)
	for ticker, lock := range g.tickerLocks {
		if lock.lastUsed.After(cutoff) {
			continue
		}
		if lock.TryLock() {
			delete(g.tickerLocks, ticker)
			lock.Unlock()
		}
	}
}

func bucketKey(ticker string, at time.Time) string {
	return ticker + ":" + at.Format(hourBucketLayout)
}
