package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/indicator"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/internal/volume"
)

func scoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		WeightVolumeTechnical: 0.30,
		WeightCatalyst:        0.35,
		WeightShortSqueeze:    0.15,
		WeightFundamental:     0.20,

		MinTotalScore:      75,
		MinVolumeTechnical: 20,
		MinCatalyst:        25,
		MinFundamental:     12,

		PenaltyRecentDilution: 15,
		PenaltyReverseSplit:   20,
		PenaltyFailedFilters:  10,

		BonusExceptionalVolume: 5,
		BonusMultipleCatalysts: 3,
		BonusStrongSentiment:   3,
		BonusPumpPotential:     8,

		StrongSentimentThreshold: 0.7,
	}
}

func volumeConfig() config.VolumeConfig {
	return config.VolumeConfig{
		LookbackDays:         20,
		SpikeThreshold:       2.5,
		SustainedPeriods:     3,
		SustainedRatio:       0.7,
		ExceptionalThreshold: 5.0,
	}
}

func indicatorConfig() config.IndicatorConfig {
	return config.IndicatorConfig{
		RSIPeriod:         14,
		RSIOversold:       30,
		RSIOverbought:     70,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		SMAShort:          10,
		SMALong:           50,
		BreakoutLookback:  20,
		BreakoutThreshold: 1.02,
	}
}

func adapterConfig() config.AdapterConfig {
	return config.AdapterConfig{
		MinMarketCap:    50000000,
		MaxDebtToEquity: 2.0,
		MinPrice:        1.0,
	}
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price += 1
		closes[i] = price
	}
	return closes
}

func newScorer(bars *storage.MockBarStore, fund *MockFundamentalsProvider, news *MockNewsProvider) *Scorer {
	detector := volume.NewDetector(volumeConfig(), bars)
	engine := indicator.NewEngine(indicatorConfig())
	return NewScorer(scoringConfig(), volumeConfig(), indicatorConfig(), adapterConfig(), detector, engine, bars, fund, news)
}

// strongSetup returns mocks tuned so every component scores well
func strongSetup() (*storage.MockBarStore, *MockFundamentalsProvider, *MockNewsProvider) {
	bars := &storage.MockBarStore{
		Stats:   &models.VolumeStats{Ticker: "AAPL", Average: 100000, Median: 95000},
		Volumes: []int64{200000, 250000, 300000},
		Closes:  risingCloses(60),
		High:    140, // well below the latest close of 160
	}
	fund := &MockFundamentalsProvider{
		ShortInterestData: &ShortInterest{
			ShortPercentFloat: 25,
			DaysToCover:       6,
			SharesShort:       3000000,
			SharesOutstanding: 20000000,
			AverageVolume:     100000,
		},
		FundamentalsData: &Fundamentals{
			MarketCap:      80000000,
			TotalCash:      12000000,
			RevenueGrowth:  0.2,
			DebtToEquity:   0.5,
			CurrentPrice:   5.0,
			FloatShares:    10000000,
			StabilityScore: 0.8,
		},
		DilutionData: &DilutionStatus{},
	}
	news := &MockNewsProvider{
		Articles: []NewsArticle{
			{Title: "Phase 3 results positive", CatalystType: "biotech_phase3", SentimentScore: 0.9, PublishedAt: time.Now()},
			{Title: "Buyout interest reported", CatalystType: "buyout_merger", SentimentScore: 0.8, PublishedAt: time.Now()},
		},
	}
	return bars, fund, news
}

func TestScore_QualifiesOnStrongSetup(t *testing.T) {
	bars, fund, news := strongSetup()
	scorer := newScorer(bars, fund, news)

	result, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)

	assert.True(t, result.Qualifies, "total=%f vt=%f cat=%f fund=%f",
		result.TotalScore, result.VolumeTechnical.Score, result.Catalyst.Score, result.Fundamental.Score)
	assert.GreaterOrEqual(t, result.TotalScore, 75.0)
	assert.True(t, result.VolumeTechnical.ExceptionalVolume, "6x average is exceptional")
	assert.True(t, result.Catalyst.StrongSentiment)
	assert.Equal(t, "biotech_phase3", result.Catalyst.StrongestCatalyst)
	assert.Contains(t, result.Bonuses.Reasons, "Multiple catalysts")
	assert.Empty(t, result.Penalties.Reasons)
}

func TestScore_ExceptionalVolumeIsStrict(t *testing.T) {
	bars, fund, news := strongSetup()
	scorer := newScorer(bars, fund, news)

	// 500000 / 100000 = exactly 5.0, which is not above the threshold
	result, err := scorer.Score(context.Background(), "AAPL", 500000)
	require.NoError(t, err)
	assert.False(t, result.VolumeTechnical.ExceptionalVolume)

	result, err = scorer.Score(context.Background(), "AAPL", 501000)
	require.NoError(t, err)
	assert.True(t, result.VolumeTechnical.ExceptionalVolume)
}

func TestScore_VolumeFloorBlocksQualification(t *testing.T) {
	bars, fund, news := strongSetup()
	// No volume history and no price history: volume/technical is zero
	bars.Stats = &models.VolumeStats{Ticker: "AAPL", Average: 0}
	bars.Closes = nil
	bars.Volumes = nil
	scorer := newScorer(bars, fund, news)

	result, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)

	assert.Less(t, result.VolumeTechnical.Score, 20.0)
	assert.False(t, result.Qualifies, "volume/technical floor must block qualification")
}

func TestScore_DilutionRiskVetoes(t *testing.T) {
	bars, fund, news := strongSetup()
	fund.DilutionData = &DilutionStatus{
		HasRecentDilution: true,
		DilutionRiskScore: 0.5,
	}
	scorer := newScorer(bars, fund, news)

	result, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)

	assert.True(t, result.DilutionRisk.HasDilutionRisk)
	assert.False(t, result.Qualifies, "dilution risk is a hard veto")
	assert.Contains(t, result.Penalties.Reasons, "Recent dilution")
	assert.Equal(t, 15.0, result.Penalties.Total)
}

func TestScore_PenaltiesAreAbsolute(t *testing.T) {
	bars, fund, news := strongSetup()
	fund.DilutionData = &DilutionStatus{
		HasRecentDilution: true,
		HasReverseSplit:   true,
	}
	fund.FundamentalsData.MarketCap = 10000000 // fails market cap filter
	scorer := newScorer(bars, fund, news)

	result, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)

	// 15 + 20 + 10, summed as positive magnitudes
	assert.Equal(t, 45.0, result.Penalties.Total)
	assert.Len(t, result.Penalties.Reasons, 3)
}

func TestScore_AdapterFailureDegradesToZero(t *testing.T) {
	bars, _, news := strongSetup()
	fund := &MockFundamentalsProvider{
		ShortInterestErr: models.ErrUpstreamUnavailable,
		FundamentalsErr:  models.ErrUpstreamUnavailable,
		DilutionErr:      models.ErrUpstreamUnavailable,
	}
	scorer := newScorer(bars, fund, news)

	result, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err, "adapter failure must not fail the scoring call")

	assert.Equal(t, 0.0, result.ShortSqueeze.Score)
	assert.Equal(t, 0.0, result.Fundamental.Score)
	assert.NotEmpty(t, result.ShortSqueeze.Factors)
	assert.NotEmpty(t, result.Fundamental.RiskFactors)
	assert.False(t, result.Qualifies)
	// Volume/technical still scores from local data
	assert.Greater(t, result.VolumeTechnical.Score, 0.0)
}

func TestScore_InvalidTicker(t *testing.T) {
	bars, fund, news := strongSetup()
	scorer := newScorer(bars, fund, news)

	_, err := scorer.Score(context.Background(), "not a ticker!", 1000)
	assert.ErrorIs(t, err, models.ErrInvalidTicker)

	_, err = scorer.Score(context.Background(), "", 1000)
	assert.ErrorIs(t, err, models.ErrInvalidTicker)
}

func TestScore_Idempotent(t *testing.T) {
	bars, fund, news := strongSetup()
	scorer := newScorer(bars, fund, news)

	first, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)
	second, err := scorer.Score(context.Background(), "AAPL", 600000)
	require.NoError(t, err)

	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.Qualifies, second.Qualifies)
	assert.Equal(t, first.VolumeTechnical.Score, second.VolumeTechnical.Score)
}

func TestCatalystAnalyzer_Normalization(t *testing.T) {
	news := &MockNewsProvider{
		Articles: []NewsArticle{
			{Title: "FDA approval", CatalystType: "biotech_phase3", SentimentScore: 0.9},
		},
	}
	analyzer := NewCatalystAnalyzer(news, scoringConfig())

	score, err := analyzer.Analyze(context.Background(), "XBIO")
	require.NoError(t, err)

	// 1.0 * 0.9 / 4.80 * 100
	assert.InDelta(t, 18.75, score.Score, 0.01)
	assert.Equal(t, "biotech_phase3", score.StrongestCatalyst)
	assert.True(t, score.StrongSentiment)
	assert.Len(t, score.Catalysts, 1)
}

func TestCatalystAnalyzer_NegativeSentimentScoresButIsNotStrong(t *testing.T) {
	news := &MockNewsProvider{
		Articles: []NewsArticle{
			{Title: "Offering announced", CatalystType: "funding", SentimentScore: -0.9},
		},
	}
	analyzer := NewCatalystAnalyzer(news, scoringConfig())

	score, err := analyzer.Analyze(context.Background(), "XBIO")
	require.NoError(t, err)

	// Magnitude counts toward catalyst strength
	assert.Greater(t, score.Score, 0.0)
	// Signed average means negative news is never strong sentiment
	assert.False(t, score.StrongSentiment)
}

func TestSqueezeAnalyzer_Flag(t *testing.T) {
	bars := &storage.MockBarStore{
		Stats: &models.VolumeStats{Average: 100000},
	}
	detector := volume.NewDetector(volumeConfig(), bars)

	fund := &MockFundamentalsProvider{
		ShortInterestData: &ShortInterest{
			ShortPercentFloat: 25,
			DaysToCover:       6,
			SharesShort:       3000000,
			SharesOutstanding: 20000000,
			AverageVolume:     100000,
		},
	}
	analyzer := NewSqueezeAnalyzer(fund, detector)

	score, err := analyzer.Analyze(context.Background(), "GME", 500000)
	require.NoError(t, err)

	// 0.35 + 0.25 + 0.2 + 0.2 (spike) = 1.0 -> 100
	assert.Equal(t, 100.0, score.Score)
	assert.True(t, score.HasPotential)
}

func TestSqueezeAnalyzer_BelowThresholdsNoFlag(t *testing.T) {
	bars := &storage.MockBarStore{
		Stats: &models.VolumeStats{Average: 100000},
	}
	detector := volume.NewDetector(volumeConfig(), bars)

	fund := &MockFundamentalsProvider{
		ShortInterestData: &ShortInterest{
			ShortPercentFloat: 15, // moderate tier only
			DaysToCover:       4,  // moderate tier only
		},
	}
	analyzer := NewSqueezeAnalyzer(fund, detector)

	score, err := analyzer.Analyze(context.Background(), "GME", 100000)
	require.NoError(t, err)

	assert.False(t, score.HasPotential, "hard thresholds not met")
	assert.Equal(t, 35.0, score.Score) // 0.2 + 0.15
}

func TestFundamentalAnalyzer_PennyStockFailsFilters(t *testing.T) {
	fund := &MockFundamentalsProvider{
		FundamentalsData: &Fundamentals{
			MarketCap:    100000000,
			DebtToEquity: 0.5,
			CurrentPrice: 0.40,
		},
	}
	analyzer := NewFundamentalAnalyzer(fund, adapterConfig())

	score, err := analyzer.Analyze(context.Background(), "PNNY")
	require.NoError(t, err)
	assert.False(t, score.PassesFilters)
}

func TestDilutionChecker_ReverseSplitRecency(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -30)
	fund := &MockFundamentalsProvider{
		DilutionData: &DilutionStatus{
			HasReverseSplit:  true,
			ReverseSplitDate: &recent,
		},
	}
	checker := NewDilutionChecker(fund)

	risk, err := checker.Check(context.Background(), "RSPL")
	require.NoError(t, err)

	// 0.4 for the split plus 0.2 for recency
	assert.InDelta(t, 0.6, risk.RiskScore, 0.001)
	assert.True(t, risk.HasDilutionRisk)
	assert.True(t, risk.HasReverseSplit)
}

func TestPumpAnalyzer_LowFloatSmallCap(t *testing.T) {
	bars := &storage.MockBarStore{
		Stats:  &models.VolumeStats{Average: 100000},
		Closes: risingCloses(60),
		High:   140,
	}
	detector := volume.NewDetector(volumeConfig(), bars)
	engine := indicator.NewEngine(indicatorConfig())

	fund := &MockFundamentalsProvider{
		ShortInterestData: &ShortInterest{
			ShortPercentFloat: 24, // >= 15*1.5
			DaysToCover:       6,
		},
		FundamentalsData: &Fundamentals{
			FloatShares: 10000000, // 10M, very low
			MarketCap:   40000000, // $40M, small
		},
	}
	analyzer := NewPumpAnalyzer(fund, detector, engine, bars, indicatorConfig())

	score, err := analyzer.Analyze(context.Background(), "PUMP", 400000)
	require.NoError(t, err)

	// 25 float + 20 cap + 25 short + 10 dtc + 20 spike(4x) + 15 breakout + 5 technicals
	assert.True(t, score.HasPumpPotential)
	assert.GreaterOrEqual(t, score.Score, 55.0)
}
