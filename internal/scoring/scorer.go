package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/indicator"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/internal/volume"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Scorer combines the volume/technical, catalyst, short squeeze and
// fundamental sub-scores into one weighted swing score. Each scoring
// call produces a fresh immutable ScoreResult. A failing sub-score
// adapter degrades that component to zero with a recorded reason; it
// never fails the whole call.
type Scorer struct {
	cfg    config.ScoringConfig
	volCfg config.VolumeConfig
	indCfg config.IndicatorConfig

	detector    *volume.Detector
	engine      *indicator.Engine
	bars        storage.BarStore
	squeeze     *SqueezeAnalyzer
	pump        *PumpAnalyzer
	fundamental *FundamentalAnalyzer
	dilution    *DilutionChecker
	catalyst    *CatalystAnalyzer
}

// NewScorer creates a swing play scorer
func NewScorer(
	cfg config.ScoringConfig,
	volCfg config.VolumeConfig,
	indCfg config.IndicatorConfig,
	adapterCfg config.AdapterConfig,
	detector *volume.Detector,
	engine *indicator.Engine,
	bars storage.BarStore,
	fundamentals FundamentalsProvider,
	news NewsProvider,
) *Scorer {
	return &Scorer{
		cfg:         cfg,
		volCfg:      volCfg,
		indCfg:      indCfg,
		detector:    detector,
		engine:      engine,
		bars:        bars,
		squeeze:     NewSqueezeAnalyzer(fundamentals, detector),
		pump:        NewPumpAnalyzer(fundamentals, detector, engine, bars, indCfg),
		fundamental: NewFundamentalAnalyzer(fundamentals, adapterCfg),
		dilution:    NewDilutionChecker(fundamentals),
		catalyst:    NewCatalystAnalyzer(news, cfg),
	}
}

// Score computes the full swing play score for a ticker. currentVolume
// of zero means unknown; the latest stored bar volume is used instead.
func (s *Scorer) Score(ctx context.Context, ticker string, currentVolume int64) (*models.ScoreResult, error) {
	if err := models.ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = models.NormalizeTicker(ticker)

	logger.Info("Calculating swing score", logger.String("ticker", ticker))
	logger.ScoringInFlight.Inc()
	defer logger.ScoringInFlight.Dec()

	if currentVolume == 0 {
		if bars, err := s.bars.GetLatestBars(ctx, ticker, 1); err == nil && len(bars) > 0 {
			currentVolume = bars[len(bars)-1].Volume
		}
	}

	result := &models.ScoreResult{
		Ticker:    ticker,
		Timestamp: time.Now().UTC(),
	}

	result.VolumeTechnical = s.volumeTechnicalScore(ctx, ticker, currentVolume)

	catalystScore, err := s.catalyst.Analyze(ctx, ticker)
	if err != nil {
		catalystScore.Reasons = append(catalystScore.Reasons, degradedReason("catalyst", err))
		logDegraded(ticker, "catalyst", err)
	}
	result.Catalyst = catalystScore

	squeezeScore, err := s.squeeze.Analyze(ctx, ticker, currentVolume)
	if err != nil {
		squeezeScore.Factors = append(squeezeScore.Factors, degradedReason("short squeeze", err))
		logDegraded(ticker, "short_squeeze", err)
	}
	result.ShortSqueeze = squeezeScore

	fundamentalScore, err := s.fundamental.Analyze(ctx, ticker)
	if err != nil {
		fundamentalScore.RiskFactors = append(fundamentalScore.RiskFactors, degradedReason("fundamental", err))
		logDegraded(ticker, "fundamental", err)
	}
	result.Fundamental = fundamentalScore

	pumpScore, err := s.pump.Analyze(ctx, ticker, currentVolume)
	if err != nil {
		pumpScore.Factors = append(pumpScore.Factors, degradedReason("pump potential", err))
		logDegraded(ticker, "pump_potential", err)
	}
	result.PumpPotential = pumpScore

	dilutionRisk, err := s.dilution.Check(ctx, ticker)
	if err != nil {
		dilutionRisk.RiskFactors = append(dilutionRisk.RiskFactors, degradedReason("dilution", err))
		logDegraded(ticker, "dilution", err)
	}
	result.DilutionRisk = dilutionRisk

	weighted := result.VolumeTechnical.Score*s.cfg.WeightVolumeTechnical +
		result.Catalyst.Score*s.cfg.WeightCatalyst +
		result.ShortSqueeze.Score*s.cfg.WeightShortSqueeze +
		result.Fundamental.Score*s.cfg.WeightFundamental

	result.Penalties = s.applyPenalties(result)
	result.Bonuses = s.applyBonuses(result)

	final := weighted - result.Penalties.Total + result.Bonuses.Total
	result.TotalScore = math.Max(0, math.Min(100, final))

	result.Qualifies = result.TotalScore >= s.cfg.MinTotalScore &&
		result.VolumeTechnical.Score >= s.cfg.MinVolumeTechnical &&
		result.Catalyst.Score >= s.cfg.MinCatalyst &&
		result.Fundamental.Score >= s.cfg.MinFundamental &&
		!result.DilutionRisk.HasDilutionRisk

	logger.ScoresComputed.Inc()
	if result.Qualifies {
		logger.ScoresQualified.Inc()
		logger.Info("Ticker qualifies for alert",
			logger.String("ticker", ticker),
			logger.Float64("score", result.TotalScore),
		)
	}

	return result, nil
}

// volumeTechnicalScore blends the volume spike strength with the bullish
// technical signals. All failures degrade to a partial or zero score.
func (s *Scorer) volumeTechnicalScore(ctx context.Context, ticker string, currentVolume int64) models.VolumeScore {
	score := 0.0
	factors := []string{}
	exceptional := false

	if currentVolume > 0 {
		spike, err := s.detector.Detect(ctx, ticker, currentVolume)
		if err != nil {
			factors = append(factors, degradedReason("volume", err))
			logDegraded(ticker, "volume", err)
		} else {
			if spike.HasSpike {
				score += math.Min(spike.Multiplier/s.volCfg.SpikeThreshold, 1.0) * 40
				factors = append(factors, fmt.Sprintf("Volume spike: %.2fx average", spike.Multiplier))
				if spike.Multiplier > s.volCfg.ExceptionalThreshold {
					exceptional = true
				}
			}
			if spike.IsSustained {
				score += 20
				factors = append(factors, "Sustained volume")
			}
		}
	}

	closes, err := s.bars.GetCloses(ctx, ticker, s.indCfg.SMALong)
	if err != nil {
		factors = append(factors, degradedReason("price history", err))
		logDegraded(ticker, "price_history", err)
		return models.VolumeScore{Score: math.Min(score, 100), Factors: factors, ExceptionalVolume: exceptional}
	}

	snap, err := s.engine.Compute(ticker, closes)
	if err != nil {
		if !errors.Is(err, models.ErrInsufficientData) {
			logDegraded(ticker, "indicators", err)
		}
		return models.VolumeScore{Score: math.Min(score, 100), Factors: factors, ExceptionalVolume: exceptional}
	}

	if snap.Signals.BullishCrossover {
		score += 15
		factors = append(factors, "Bullish SMA crossover")
	}
	if snap.Signals.MACDBullish {
		score += 10
		factors = append(factors, "MACD bullish")
	}
	if snap.Signals.PriceAboveSMA {
		score += 10
		factors = append(factors, "Price above SMA")
	}
	if snap.Signals.RSIOversold {
		score += 5
		factors = append(factors, "RSI oversold (potential bounce)")
	}

	if high, err := s.bars.GetRecentHigh(ctx, ticker, s.indCfg.BreakoutLookback); err == nil {
		breakout := s.engine.DetectBreakout(ticker, snap.CurrentPrice, high)
		if breakout.HasBreakout {
			score += 15
			factors = append(factors, "Price breakout detected")
		}
	}

	return models.VolumeScore{
		Score:             math.Min(score, 100),
		Factors:           factors,
		ExceptionalVolume: exceptional,
	}
}

// applyPenalties sums the risk penalties as positive magnitudes
func (s *Scorer) applyPenalties(result *models.ScoreResult) models.Adjustments {
	total := 0.0
	reasons := []string{}

	if result.DilutionRisk.HasRecentDilution {
		total += math.Abs(s.cfg.PenaltyRecentDilution)
		reasons = append(reasons, "Recent dilution")
	}
	if result.DilutionRisk.HasReverseSplit {
		total += math.Abs(s.cfg.PenaltyReverseSplit)
		reasons = append(reasons, "Reverse split detected")
	}
	if !result.Fundamental.PassesFilters {
		total += math.Abs(s.cfg.PenaltyFailedFilters)
		reasons = append(reasons, "Financial filters failed")
	}

	return models.Adjustments{Total: total, Reasons: reasons}
}

// applyBonuses sums the confirmation bonuses
func (s *Scorer) applyBonuses(result *models.ScoreResult) models.Adjustments {
	total := 0.0
	reasons := []string{}

	if result.VolumeTechnical.ExceptionalVolume {
		total += s.cfg.BonusExceptionalVolume
		reasons = append(reasons, "Exceptional volume spike")
	}
	if len(result.Catalyst.Catalysts) > 1 {
		total += s.cfg.BonusMultipleCatalysts
		reasons = append(reasons, "Multiple catalysts")
	}
	if result.Catalyst.StrongSentiment {
		total += s.cfg.BonusStrongSentiment
		reasons = append(reasons, "Strong sentiment")
	}
	if result.PumpPotential.HasPumpPotential {
		total += s.cfg.BonusPumpPotential
		reasons = append(reasons, "Pump potential")
	}

	return models.Adjustments{Total: total, Reasons: reasons}
}

func degradedReason(component string, err error) string {
	return fmt.Sprintf("%s data unavailable: %v", component, err)
}

func logDegraded(ticker, component string, err error) {
	logger.Warn("Sub-score degraded to zero",
		logger.String("ticker", ticker),
		logger.String("component", component),
		logger.ErrorField(err),
	)
}
