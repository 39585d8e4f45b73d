package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// maxTrackedTickers bounds the cooldown map before expired entries are
// swept out.
const maxTrackedTickers = 10000

// AlertGate runs the full score-and-alert path for one ticker.
type AlertGate interface {
	CheckAndCreate(ctx context.Context, ticker string, currentVolume int64) (*models.Alert, error)
}

// Orchestrator admits (ticker, volume) observations from the stream and
// poller and drives them through scoring. A weighted semaphore bounds
// concurrent scoring because each call fans out to several external
// resources; admissions beyond the bound queue rather than drop. A
// per-ticker cooldown stops the same symbol from being rescored on every
// bar.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	gate     AlertGate
	wildcard bool

	sem *semaphore.Weighted

	mu          sync.Mutex
	lastChecked map[string]time.Time

	wg sync.WaitGroup

	now func() time.Time
}

// New creates an orchestrator. wildcard enables the minimum-volume
// admission filter used when the stream subscribes to every symbol.
func New(cfg config.OrchestratorConfig, gate AlertGate, wildcard bool) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		gate:        gate,
		wildcard:    wildcard,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		lastChecked: make(map[string]time.Time),
		now:         time.Now,
	}
}

// HandleBar adapts the stream callback to Submit.
func (o *Orchestrator) HandleBar(ctx context.Context) func(bar models.Bar) {
	return func(bar models.Bar) {
		o.Submit(ctx, bar.Ticker, bar.Volume)
	}
}

// Submit queues a ticker for scoring if it passes admission. The call
// returns immediately; scoring runs on its own goroutine behind the
// semaphore.
func (o *Orchestrator) Submit(ctx context.Context, ticker string, volume int64) {
	ticker = models.NormalizeTicker(ticker)
	if err := models.ValidateTicker(ticker); err != nil {
		return
	}

	if !o.admit(ticker, volume) {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.score(ctx, ticker, volume)
	}()
}

// admit applies the wildcard volume floor and the per-ticker cooldown.
// The last-checked timestamp is set at admission so queued work counts
// against the cooldown too.
func (o *Orchestrator) admit(ticker string, volume int64) bool {
	if o.wildcard && volume < o.cfg.MinVolumeToScore {
		return false
	}

	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()

	if last, ok := o.lastChecked[ticker]; ok && now.Sub(last) < o.cfg.TickerCooldown {
		return false
	}
	o.lastChecked[ticker] = now

	// In wildcard mode the map accrues one entry per symbol ever seen;
	// entries past the cooldown no longer suppress anything and can go.
	if len(o.lastChecked) > maxTrackedTickers {
		for t, last := range o.lastChecked {
			if now.Sub(last) >= o.cfg.TickerCooldown {
				delete(o.lastChecked, t)
			}
		}
	}
	return true
}

func (o *Orchestrator) score(ctx context.Context, ticker string, volume int64) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer o.sem.Release(1)

	// Once scoring starts it runs to completion; shutdown must not
	// abort a call that may be about to write an alert.
	scoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ScoreTimeout)
	defer cancel()

	alert, err := o.gate.CheckAndCreate(scoreCtx, ticker, volume)
	switch {
	case err == nil:
		logger.Info("Alert created",
			logger.String("ticker", ticker),
			logger.Float64("score", alert.Score),
			logger.String("alert_id", alert.ID),
		)
	case errors.Is(err, models.ErrDuplicateAlert),
		errors.Is(err, models.ErrRateLimited),
		errors.Is(err, models.ErrNotQualified):
		logger.Debug("Scoring finished without alert",
			logger.String("ticker", ticker),
			logger.ErrorField(err),
		)
	default:
		logger.Error("Scoring failed",
			logger.String("ticker", ticker),
			logger.ErrorField(err),
		)
	}
}

// Wait blocks until all queued and in-flight scoring has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
