package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/volume"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Squeeze detection thresholds. Partial credit is granted at 70% of the
// primary threshold.
const (
	minShortInterestPct = 20.0
	minDaysToCover      = 5.0
)

// SqueezeAnalyzer scores short squeeze potential from short interest
// metrics and live volume behavior.
type SqueezeAnalyzer struct {
	provider FundamentalsProvider
	detector *volume.Detector
}

// NewSqueezeAnalyzer creates a short squeeze analyzer
func NewSqueezeAnalyzer(provider FundamentalsProvider, detector *volume.Detector) *SqueezeAnalyzer {
	return &SqueezeAnalyzer{provider: provider, detector: detector}
}

// Analyze computes the short squeeze sub-score for a ticker. The flag
// requires both hard thresholds and at least half the maximum score.
func (a *SqueezeAnalyzer) Analyze(ctx context.Context, ticker string, currentVolume int64) (models.SqueezeScore, error) {
	si, err := a.provider.GetShortInterest(ctx, ticker)
	if err != nil {
		return models.SqueezeScore{Factors: []string{}}, err
	}

	score := 0.0
	factors := []string{}

	if si.ShortPercentFloat >= minShortInterestPct {
		score += 0.35
		factors = append(factors, fmt.Sprintf("High short interest: %.2f%%", si.ShortPercentFloat))
	} else if si.ShortPercentFloat >= minShortInterestPct*0.7 {
		score += 0.2
		factors = append(factors, fmt.Sprintf("Moderate short interest: %.2f%%", si.ShortPercentFloat))
	}

	if si.DaysToCover >= minDaysToCover {
		score += 0.25
		factors = append(factors, fmt.Sprintf("High days to cover: %.2f", si.DaysToCover))
	} else if si.DaysToCover >= minDaysToCover*0.7 {
		score += 0.15
		factors = append(factors, fmt.Sprintf("Moderate days to cover: %.2f", si.DaysToCover))
	}

	// Smaller float relative to shares sold short squeezes easier
	if si.SharesOutstanding > 0 && si.AverageVolume > 0 {
		floatRatio := float64(si.SharesShort) / float64(si.SharesOutstanding)
		if floatRatio < 0.5 {
			score += 0.2
			factors = append(factors, "Constrained float")
		}
	}

	// Volume spike often marks a squeeze starting
	spike, err := a.detector.Detect(ctx, ticker, currentVolume)
	if err != nil {
		logger.Warn("Volume check failed during squeeze analysis",
			logger.ErrorField(err),
			logger.String("ticker", ticker),
		)
	} else if spike.HasSpike {
		score += 0.2
		factors = append(factors, "Volume spike detected")
	}

	score = math.Min(score*100, 100)

	return models.SqueezeScore{
		Score: score,
		HasPotential: si.ShortPercentFloat >= minShortInterestPct &&
			si.DaysToCover >= minDaysToCover &&
			score >= 50,
		Factors: factors,
	}, nil
}
