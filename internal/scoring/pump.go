package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/indicator"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/internal/volume"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Pump potential thresholds. Tight floats and small caps move on far
// less volume than liquid names, which is what a pump needs.
const (
	maxFloatMillions    = 50.0
	maxCapMillions      = 500.0
	minPumpShortPct     = 15.0
	pumpFlagThreshold   = 55.0
	pumpSpikeStrongMult = 3.0
)

// PumpAnalyzer scores the conditions that typically precede a violent
// upside move: low float, small cap, crowded shorts, volume and momentum.
type PumpAnalyzer struct {
	provider FundamentalsProvider
	detector *volume.Detector
	engine   *indicator.Engine
	bars     storage.BarStore
	indCfg   config.IndicatorConfig
}

// NewPumpAnalyzer creates a pump potential analyzer
func NewPumpAnalyzer(
	provider FundamentalsProvider,
	detector *volume.Detector,
	engine *indicator.Engine,
	bars storage.BarStore,
	indCfg config.IndicatorConfig,
) *PumpAnalyzer {
	return &PumpAnalyzer{
		provider: provider,
		detector: detector,
		engine:   engine,
		bars:     bars,
		indCfg:   indCfg,
	}
}

// Analyze computes the pump potential sub-score for a ticker
func (a *PumpAnalyzer) Analyze(ctx context.Context, ticker string, currentVolume int64) (models.PumpScore, error) {
	si, err := a.provider.GetShortInterest(ctx, ticker)
	if err != nil {
		return models.PumpScore{Factors: []string{}}, err
	}
	fund, err := a.provider.GetFundamentals(ctx, ticker)
	if err != nil {
		return models.PumpScore{Factors: []string{}}, err
	}

	score := 0.0
	factors := []string{}

	floatShares := fund.FloatShares
	if floatShares == 0 {
		floatShares = si.SharesOutstanding
	}
	if floatShares > 0 {
		floatMillions := float64(floatShares) / 1e6
		if floatMillions <= maxFloatMillions*0.3 {
			score += 25
			factors = append(factors, fmt.Sprintf("Very low float: %.1fM shares", floatMillions))
		} else if floatMillions <= maxFloatMillions {
			score += 15
			factors = append(factors, fmt.Sprintf("Low float: %.1fM shares", floatMillions))
		}
	}

	if fund.MarketCap > 0 {
		capMillions := fund.MarketCap / 1e6
		if capMillions <= maxCapMillions*0.2 {
			score += 20
			factors = append(factors, fmt.Sprintf("Small cap: $%.0fM", capMillions))
		} else if capMillions <= maxCapMillions {
			score += 10
			factors = append(factors, fmt.Sprintf("Mid-small cap: $%.0fM", capMillions))
		}
	}

	if si.ShortPercentFloat >= minPumpShortPct*1.5 {
		score += 25
		factors = append(factors, fmt.Sprintf("High short interest: %.1f%% of float", si.ShortPercentFloat))
	} else if si.ShortPercentFloat >= minPumpShortPct {
		score += 15
		factors = append(factors, fmt.Sprintf("Elevated short interest: %.1f%%", si.ShortPercentFloat))
	}

	if si.DaysToCover >= minDaysToCover {
		score += 10
		factors = append(factors, fmt.Sprintf("Days to cover: %.1f", si.DaysToCover))
	}

	if currentVolume == 0 {
		currentVolume = si.AverageVolume
	}
	if currentVolume > 0 {
		spike, err := a.detector.Detect(ctx, ticker, currentVolume)
		if err != nil {
			logger.Warn("Volume check failed during pump analysis",
				logger.ErrorField(err),
				logger.String("ticker", ticker),
			)
		} else if spike.HasSpike {
			if spike.Multiplier >= pumpSpikeStrongMult {
				score += 20
				factors = append(factors, fmt.Sprintf("Volume spike: %.1fx average", spike.Multiplier))
			} else {
				score += 10
				factors = append(factors, fmt.Sprintf("Above-average volume: %.1fx", spike.Multiplier))
			}
		}
	}

	// Momentum boost. Missing history just skips the boost.
	closes, err := a.bars.GetCloses(ctx, ticker, a.indCfg.SMALong)
	if err == nil && len(closes) > 0 {
		if high, err := a.bars.GetRecentHigh(ctx, ticker, a.indCfg.BreakoutLookback); err == nil {
			breakout := a.engine.DetectBreakout(ticker, closes[len(closes)-1], high)
			if breakout.HasBreakout {
				score += 15
				factors = append(factors, "Price breakout detected")
			}
		}
		snap, err := a.engine.Compute(ticker, closes)
		if err != nil && !errors.Is(err, models.ErrInsufficientData) {
			logger.Warn("Indicator check failed during pump analysis",
				logger.ErrorField(err),
				logger.String("ticker", ticker),
			)
		}
		if err == nil && (snap.Signals.PriceAboveSMA || snap.Signals.MACDBullish) {
			score += 5
			factors = append(factors, "Bullish technicals")
		}
	}

	score = math.Min(score, 100)

	return models.PumpScore{
		Score:            score,
		HasPumpPotential: score >= pumpFlagThreshold,
		Factors:          factors,
	}, nil
}
