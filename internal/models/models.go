package models

import (
	"strings"
	"time"
)

// Bar represents a single aggregated OHLCV observation for a ticker.
// Bars are immutable once ingested; storage keys them by (ticker, timestamp)
// with upsert semantics so duplicate or late delivery is idempotent.
type Bar struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	VWAP      float64   `json:"vwap,omitempty"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Ticker == "" {
		return ErrInvalidTicker
	}
	if b.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// VolumeStats holds volume statistics over a lookback window.
// Derived, recomputed per query, never persisted.
type VolumeStats struct {
	Ticker       string  `json:"ticker"`
	LookbackDays int     `json:"lookback_days"`
	Average      float64 `json:"average_volume"`
	Median       float64 `json:"median_volume"`
	Max          int64   `json:"max_volume"`
	Min          int64   `json:"min_volume"`
	StdDev       float64 `json:"stddev_volume"`
}

// MACD holds the MACD line, signal line, histogram and crossover trend.
type MACD struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     string  `json:"trend"` // "bullish", "bearish", or "neutral"
}

// Signals holds the boolean signals derived from an IndicatorSnapshot.
type Signals struct {
	RSIOversold      bool `json:"rsi_oversold"`
	RSIOverbought    bool `json:"rsi_overbought"`
	BullishCrossover bool `json:"bullish_crossover"`
	MACDBullish      bool `json:"macd_bullish"`
	PriceAboveSMA    bool `json:"price_above_sma"`
}

// IndicatorSnapshot is the result of one indicator computation over a
// price series. Computed fresh per scoring call; never mutated after
// construction.
type IndicatorSnapshot struct {
	Ticker       string    `json:"ticker"`
	RSI          float64   `json:"rsi"`
	MACD         MACD      `json:"macd"`
	SMAShort     float64   `json:"sma_short"`
	SMALong      float64   `json:"sma_long"`
	CurrentPrice float64   `json:"current_price"`
	Signals      Signals   `json:"signals"`
	Timestamp    time.Time `json:"timestamp"`
}

// BreakoutResult is the result of a breakout check against the recent high.
type BreakoutResult struct {
	Ticker          string  `json:"ticker"`
	HasBreakout     bool    `json:"has_breakout"`
	CurrentPrice    float64 `json:"current_price"`
	Resistance      float64 `json:"resistance"`
	BreakoutPercent float64 `json:"breakout_percent"`
}

// SpikeResult is the result of a volume spike detection.
type SpikeResult struct {
	Ticker        string    `json:"ticker"`
	HasSpike      bool      `json:"has_spike"`
	CurrentVolume int64     `json:"current_volume"`
	AverageVolume float64   `json:"average_volume"`
	MedianVolume  float64   `json:"median_volume"`
	Multiplier    float64   `json:"multiplier"`
	IsSustained   bool      `json:"is_sustained"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// PatternResult classifies multi-day volume behavior for a ticker.
type PatternResult struct {
	Ticker        string  `json:"ticker"`
	Pattern       string  `json:"pattern"` // "spike_detected", "increasing_volume", "normal", "no_data"
	Trend         string  `json:"trend"`   // "increasing", "decreasing", "stable", or "unknown"
	AverageVolume float64 `json:"avg_volume"`
}

// VolumeScore is the volume/technical sub-score.
type VolumeScore struct {
	Score             float64  `json:"score"`
	Factors           []string `json:"factors"`
	ExceptionalVolume bool     `json:"exceptional_volume"`
}

// Catalyst is one classified news catalyst with its sentiment and weight.
type Catalyst struct {
	Type           string    `json:"catalyst_type"`
	Title          string    `json:"title"`
	SentimentScore float64   `json:"sentiment_score"`
	Weight         float64   `json:"weight"`
	Score          float64   `json:"score"`
	PublishedAt    time.Time `json:"published_at"`
}

// CatalystScore is the catalyst sub-score.
type CatalystScore struct {
	Score             float64    `json:"score"`
	Catalysts         []Catalyst `json:"catalysts"`
	StrongestCatalyst string     `json:"strongest_catalyst,omitempty"`
	StrongSentiment   bool       `json:"strong_sentiment"`
	Reasons           []string   `json:"reasons,omitempty"`
}

// SqueezeScore is the short squeeze sub-score.
type SqueezeScore struct {
	Score        float64  `json:"score"`
	HasPotential bool     `json:"has_potential"`
	Factors      []string `json:"factors"`
}

// FundamentalScore is the fundamental sub-score.
type FundamentalScore struct {
	Score         float64  `json:"score"`
	PassesFilters bool     `json:"passes_filters"`
	Factors       []string `json:"factors"`
	RiskFactors   []string `json:"risk_factors"`
}

// PumpScore is the pump potential sub-score.
type PumpScore struct {
	Score            float64  `json:"score"`
	HasPumpPotential bool     `json:"has_pump_potential"`
	Factors          []string `json:"factors"`
}

// DilutionRisk is the dilution risk gate assessment.
type DilutionRisk struct {
	HasDilutionRisk   bool     `json:"has_dilution_risk"`
	HasRecentDilution bool     `json:"has_recent_dilution"`
	HasReverseSplit   bool     `json:"has_reverse_split"`
	RiskScore         float64  `json:"risk_score"`
	RiskFactors       []string `json:"risk_factors"`
}

// Adjustments holds summed penalties or bonuses with their reasons.
type Adjustments struct {
	Total   float64  `json:"total"`
	Reasons []string `json:"reasons"`
}

// ScoreResult is an immutable snapshot of one scoring invocation.
// A new one is produced on every call; never updated in place.
type ScoreResult struct {
	Ticker          string           `json:"ticker"`
	TotalScore      float64          `json:"total_score"`
	Qualifies       bool             `json:"qualifies"`
	VolumeTechnical VolumeScore      `json:"volume_technical"`
	Catalyst        CatalystScore    `json:"catalyst"`
	ShortSqueeze    SqueezeScore     `json:"short_squeeze"`
	Fundamental     FundamentalScore `json:"fundamental"`
	PumpPotential   PumpScore        `json:"pump_potential"`
	DilutionRisk    DilutionRisk     `json:"dilution_risk"`
	Penalties       Adjustments      `json:"penalties"`
	Bonuses         Adjustments      `json:"bonuses"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Alert represents a generated alert. Created once by the alert gate and
// never mutated; handed to storage and broadcast collaborators by value.
type Alert struct {
	ID        string      `json:"id"`
	Ticker    string      `json:"ticker"`
	Score     float64     `json:"score"`
	AlertType string      `json:"alert_type"`
	Message   string      `json:"message"`
	Metadata  ScoreResult `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Validate validates an Alert
func (a *Alert) Validate() error {
	if a.ID == "" {
		return ErrInvalidAlertID
	}
	if a.Ticker == "" {
		return ErrInvalidTicker
	}
	if a.CreatedAt.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// AlertTypeSwingPlay is the alert type emitted by the scoring pipeline.
const AlertTypeSwingPlay = "swing_play_candidate"

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker rejects malformed ticker symbols before any I/O is done.
func ValidateTicker(ticker string) error {
	t := NormalizeTicker(ticker)
	if t == "" || len(t) > 10 {
		return ErrInvalidTicker
	}
	for _, r := range t {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return ErrInvalidTicker
		}
	}
	return nil
}
