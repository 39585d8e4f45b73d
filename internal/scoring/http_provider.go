package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// HTTPProvider implements FundamentalsProvider and NewsProvider against
// a JSON enrichment API. All requests go through a shared rate limiter
// and a circuit breaker so a degraded upstream sheds load instead of
// stalling every scoring call.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPProvider creates an enrichment API provider
func NewHTTPProvider(cfg config.AdapterConfig) *HTTPProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "enrichment-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: breaker,
	}
}

// GetShortInterest fetches short interest metrics for a ticker
func (p *HTTPProvider) GetShortInterest(ctx context.Context, ticker string) (*ShortInterest, error) {
	var out ShortInterest
	if err := p.getJSON(ctx, "/v1/short-interest/"+url.PathEscape(ticker), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFundamentals fetches fundamental metrics for a ticker
func (p *HTTPProvider) GetFundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	var out Fundamentals
	if err := p.getJSON(ctx, "/v1/fundamentals/"+url.PathEscape(ticker), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDilutionStatus fetches dilution and reverse split history
func (p *HTTPProvider) GetDilutionStatus(ctx context.Context, ticker string, days int) (*DilutionStatus, error) {
	var out DilutionStatus
	params := url.Values{"days": []string{strconv.Itoa(days)}}
	if err := p.getJSON(ctx, "/v1/dilution/"+url.PathEscape(ticker), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecentNews fetches classified news for a ticker within a window
func (p *HTTPProvider) GetRecentNews(ctx context.Context, ticker string, window time.Duration) ([]NewsArticle, error) {
	var out []NewsArticle
	params := url.Values{"hours": []string{strconv.Itoa(int(window.Hours()))}}
	if err := p.getJSON(ctx, "/v1/news/"+url.PathEscape(ticker), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := p.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var decoded json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrUpstreamUnavailable, path, err)
	}

	if err := json.Unmarshal(body.(json.RawMessage), dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", models.ErrUpstreamUnavailable, path, err)
	}
	return nil
}
