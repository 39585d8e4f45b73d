package scoring

import (
	"context"
	"time"
)

// ShortInterest holds short interest metrics for a ticker. Zero values
// mean the upstream had no figure for the field.
type ShortInterest struct {
	ShortPercentFloat float64 `json:"short_percent_float"`
	DaysToCover       float64 `json:"days_to_cover"`
	SharesShort       int64   `json:"shares_short"`
	SharesOutstanding int64   `json:"shares_outstanding"`
	AverageVolume     int64   `json:"average_volume"`
}

// Fundamentals holds fundamental financial metrics for a ticker.
type Fundamentals struct {
	MarketCap      float64  `json:"market_cap"`
	TotalCash      float64  `json:"total_cash"`
	RevenueGrowth  float64  `json:"revenue_growth"`
	DebtToEquity   float64  `json:"debt_to_equity"`
	CurrentPrice   float64  `json:"current_price"`
	FloatShares    int64    `json:"float_shares"`
	StabilityScore float64  `json:"stability_score"` // 0..1
	Strengths      []string `json:"strengths"`
	RiskFactors    []string `json:"risk_factors"`
}

// DilutionStatus holds dilution and reverse split history for a ticker.
type DilutionStatus struct {
	HasRecentDilution bool       `json:"has_recent_dilution"`
	DilutionRiskScore float64    `json:"dilution_risk_score"` // 0..1
	HasReverseSplit   bool       `json:"has_reverse_split"`
	ReverseSplitDate  *time.Time `json:"reverse_split_date,omitempty"`
}

// NewsArticle is one classified news item with its sentiment.
type NewsArticle struct {
	Title          string    `json:"title"`
	CatalystType   string    `json:"catalyst_type"`
	SentimentScore float64   `json:"sentiment_score"` // -1..1
	PublishedAt    time.Time `json:"published_at"`
}

// FundamentalsProvider supplies short interest, fundamental and dilution
// data from an external source. Implementations absorb transport details;
// failures surface as errors wrapping models.ErrUpstreamUnavailable.
type FundamentalsProvider interface {
	GetShortInterest(ctx context.Context, ticker string) (*ShortInterest, error)
	GetFundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
	GetDilutionStatus(ctx context.Context, ticker string, days int) (*DilutionStatus, error)
}

// NewsProvider supplies recent classified news for a ticker.
type NewsProvider interface {
	GetRecentNews(ctx context.Context, ticker string, window time.Duration) ([]NewsArticle, error)
}
