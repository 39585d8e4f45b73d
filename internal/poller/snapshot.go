package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// snapshotResponse mirrors the snapshot endpoint payload.
type snapshotResponse struct {
	Tickers []struct {
		Ticker            string  `json:"ticker"`
		TodaysChangePerc  float64 `json:"todaysChangePerc"`
		Day               struct {
			Volume float64 `json:"v"`
		} `json:"day"`
		Min struct {
			Volume float64 `json:"v"`
		} `json:"min"`
	} `json:"tickers"`
}

// HTTPSnapshotProvider pulls top movers from the market data REST API.
type HTTPSnapshotProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSnapshotProvider creates a snapshot provider backed by the
// market data REST API.
func NewHTTPSnapshotProvider(cfg config.MarketDataConfig) *HTTPSnapshotProvider {
	return &HTTPSnapshotProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// TopMovers fetches the gainers and losers snapshots and merges them,
// capped at limit entries per direction.
func (p *HTTPSnapshotProvider) TopMovers(ctx context.Context, limit int) ([]Mover, error) {
	var movers []Mover
	for _, direction := range []string{"gainers", "losers"} {
		batch, err := p.fetch(ctx, direction, limit)
		if err != nil {
			return nil, err
		}
		movers = append(movers, batch...)
	}
	return movers, nil
}

func (p *HTTPSnapshotProvider) fetch(ctx context.Context, direction string, limit int) ([]Mover, error) {
	url := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/%s", p.baseURL, direction)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %v", models.ErrUpstreamUnavailable, direction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot %s returned %d", models.ErrUpstreamUnavailable, direction, resp.StatusCode)
	}

	var payload snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot response: %w", err)
	}

	movers := make([]Mover, 0, len(payload.Tickers))
	for _, t := range payload.Tickers {
		if limit > 0 && len(movers) >= limit {
			break
		}
		if models.ValidateTicker(models.NormalizeTicker(t.Ticker)) != nil {
			continue
		}
		movers = append(movers, Mover{
			Ticker:        models.NormalizeTicker(t.Ticker),
			DayVolume:     int64(t.Day.Volume),
			MinuteVolume:  int64(t.Min.Volume),
			ChangePercent: t.TodaysChangePerc,
		})
	}
	return movers, nil
}
