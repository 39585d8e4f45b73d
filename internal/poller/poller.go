package poller

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Mover is one entry from the top gainers/losers snapshot.
type Mover struct {
	Ticker        string
	DayVolume     int64
	MinuteVolume  int64
	ChangePercent float64
}

// SnapshotProvider fetches the current top movers.
type SnapshotProvider interface {
	TopMovers(ctx context.Context, limit int) ([]Mover, error)
}

// Sink receives qualifying (ticker, volume) pairs for scoring.
type Sink interface {
	Submit(ctx context.Context, ticker string, volume int64)
}

// Poller periodically pulls the top-movers snapshot and feeds liquid
// tickers into the scoring pipeline. It supplements the stream during
// extended hours and covers tickers the stream subscription misses.
type Poller struct {
	cfg      config.PollerConfig
	provider SnapshotProvider
	sink     Sink
	limiter  *rate.Limiter

	now func() time.Time
}

// NewPoller creates a session poller.
func NewPoller(cfg config.PollerConfig, provider SnapshotProvider, sink Sink) *Poller {
	return &Poller{
		cfg:      cfg,
		provider: provider,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. The loop sleeps a fixed interval
// between cycles regardless of outcome so a failing snapshot endpoint
// cannot turn into a tight retry loop.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.Interval):
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	session := CurrentSession(p.now())
	if session == SessionClosed {
		logger.PollCycles.WithLabelValues(string(session), "skipped").Inc()
		return
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	movers, err := p.provider.TopMovers(ctx, p.cfg.SnapshotLimit)
	if err != nil {
		logger.Warn("Snapshot poll failed",
			logger.String("session", string(session)),
			logger.ErrorField(err),
		)
		logger.PollCycles.WithLabelValues(string(session), "error").Inc()
		return
	}

	minVolume := p.minVolumeFor(session)
	submitted := 0
	for _, m := range movers {
		volume := sessionVolume(session, m)
		if volume < minVolume {
			continue
		}
		p.sink.Submit(ctx, m.Ticker, volume)
		submitted++
	}

	logger.Debug("Snapshot poll complete",
		logger.String("session", string(session)),
		logger.Int("movers", len(movers)),
		logger.Int("submitted", submitted),
	)
	logger.PollCycles.WithLabelValues(string(session), "ok").Inc()
}

// minVolumeFor returns the session floor. Extended hours trade thin, so
// the pre and post floors sit well below the regular-session floor.
func (p *Poller) minVolumeFor(session Session) int64 {
	switch session {
	case SessionPreMarket:
		return p.cfg.MinVolumePre
	case SessionAfterHours:
		return p.cfg.MinVolumePost
	default:
		return p.cfg.MinVolumeMarket
	}
}

// sessionVolume picks the volume field that reflects current activity:
// the cumulative day volume during the regular session, the latest
// minute volume outside it.
func sessionVolume(session Session, m Mover) int64 {
	if session == SessionRegular {
		return m.DayVolume
	}
	return m.MinuteVolume
}
