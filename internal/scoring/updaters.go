package scoring

import (
	"context"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

const (
	fundamentalsRetryDelay = time.Hour
	newsRetryDelay         = time.Minute
	newsBatchSize          = 5
	newsBatchPause         = 2 * time.Second
)

// FundamentalsRefresher keeps fundamentals and short interest warm for
// the monitored universe with a daily refresh cycle. Batches are paced
// so the refresh never saturates the upstream rate limit.
type FundamentalsRefresher struct {
	cfg      config.AdapterConfig
	provider FundamentalsProvider
	tickers  []string
}

// NewFundamentalsRefresher creates a refresher for the given tickers.
func NewFundamentalsRefresher(cfg config.AdapterConfig, provider FundamentalsProvider, tickers []string) *FundamentalsRefresher {
	return &FundamentalsRefresher{cfg: cfg, provider: provider, tickers: tickers}
}

// Run refreshes on the configured interval until ctx is cancelled. After
// a failed cycle the next attempt waits an hour instead of a full day.
func (r *FundamentalsRefresher) Run(ctx context.Context) error {
	logger.Info("Starting fundamentals refresher",
		logger.Int("tickers", len(r.tickers)),
		logger.Duration("interval", r.cfg.FundamentalsRefresh),
	)

	for {
		delay := r.cfg.FundamentalsRefresh
		if err := r.refreshAll(ctx); err != nil {
			logger.Error("Fundamentals refresh cycle failed", logger.ErrorField(err))
			delay = fundamentalsRetryDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r *FundamentalsRefresher) refreshAll(ctx context.Context) error {
	batchSize := r.cfg.FundamentalsBatch
	if batchSize <= 0 {
		batchSize = 10
	}

	for i := 0; i < len(r.tickers); i += batchSize {
		end := i + batchSize
		if end > len(r.tickers) {
			end = len(r.tickers)
		}

		for _, ticker := range r.tickers[i:end] {
			r.refreshTicker(ctx, models.NormalizeTicker(ticker))
		}

		if end < len(r.tickers) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.FundamentalsPace):
			}
		}
	}
	return nil
}

// refreshTicker warms fundamentals and short interest. Individual
// failures are logged and skipped; one bad ticker must not stop the
// cycle.
func (r *FundamentalsRefresher) refreshTicker(ctx context.Context, ticker string) {
	if _, err := r.provider.GetFundamentals(ctx, ticker); err != nil {
		logger.Warn("Fundamentals refresh failed",
			logger.String("ticker", ticker),
			logger.ErrorField(err),
		)
	}
	if _, err := r.provider.GetShortInterest(ctx, ticker); err != nil {
		logger.Warn("Short interest refresh failed",
			logger.String("ticker", ticker),
			logger.ErrorField(err),
		)
	}
}

// NewsPoller polls recent news for the monitored universe so catalyst
// data is fresh when a score fires.
type NewsPoller struct {
	cfg      config.AdapterConfig
	provider NewsProvider
	tickers  []string
}

// NewNewsPoller creates a news poller for the given tickers.
func NewNewsPoller(cfg config.AdapterConfig, provider NewsProvider, tickers []string) *NewsPoller {
	return &NewsPoller{cfg: cfg, provider: provider, tickers: tickers}
}

// Run polls on the configured interval until ctx is cancelled.
func (p *NewsPoller) Run(ctx context.Context) error {
	logger.Info("Starting news poller",
		logger.Int("tickers", len(p.tickers)),
		logger.Duration("interval", p.cfg.NewsPollInterval),
	)

	for {
		delay := p.cfg.NewsPollInterval
		if err := p.pollAll(ctx); err != nil {
			logger.Error("News poll cycle failed", logger.ErrorField(err))
			delay = newsRetryDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *NewsPoller) pollAll(ctx context.Context) error {
	for i := 0; i < len(p.tickers); i += newsBatchSize {
		end := i + newsBatchSize
		if end > len(p.tickers) {
			end = len(p.tickers)
		}

		for _, ticker := range p.tickers[i:end] {
			ticker = models.NormalizeTicker(ticker)
			if _, err := p.provider.GetRecentNews(ctx, ticker, catalystNewsWindow); err != nil {
				logger.Warn("News poll failed",
					logger.String("ticker", ticker),
					logger.ErrorField(err),
				)
			}
		}

		if end < len(p.tickers) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(newsBatchPause):
			}
		}
	}
	return nil
}
