package volume

import (
	"context"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// Detector detects volume spikes against a rolling historical baseline.
// A zero baseline (new listing, no history) degrades to a no-spike result
// with an explicit reason rather than an error.
type Detector struct {
	cfg   config.VolumeConfig
	store storage.BarStore
}

// NewDetector creates a volume spike detector
func NewDetector(cfg config.VolumeConfig, store storage.BarStore) *Detector {
	return &Detector{cfg: cfg, store: store}
}

// Detect checks whether the current volume is a spike relative to the
// average over the lookback window
func (d *Detector) Detect(ctx context.Context, ticker string, currentVolume int64) (*models.SpikeResult, error) {
	ticker = models.NormalizeTicker(ticker)

	stats, err := d.store.GetVolumeStats(ctx, ticker, d.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}

	result := &models.SpikeResult{
		Ticker:        ticker,
		CurrentVolume: currentVolume,
		AverageVolume: stats.Average,
		MedianVolume:  stats.Median,
		Timestamp:     time.Now().UTC(),
	}

	if stats.Average == 0 {
		result.Reason = "Insufficient historical data"
		return result, nil
	}

	result.Multiplier = float64(currentVolume) / stats.Average
	result.HasSpike = result.Multiplier >= d.cfg.SpikeThreshold
	result.IsSustained = d.checkSustained(ctx, ticker, stats.Average)

	if result.HasSpike {
		logger.Info("Volume spike detected",
			logger.String("ticker", ticker),
			logger.Float64("multiplier", result.Multiplier),
			logger.Int64("current_volume", currentVolume),
		)
	}

	return result, nil
}

// AnalyzePattern classifies volume behavior over the last few days. Trend
// compares the average of the most recent three bars against the first
// three with a 20% band. Missing history yields an unknown result rather
// than an error.
func (d *Detector) AnalyzePattern(ctx context.Context, ticker string, days int) (*models.PatternResult, error) {
	ticker = models.NormalizeTicker(ticker)

	end := time.Now().UTC()
	bars, err := d.store.GetBars(ctx, ticker, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}

	result := &models.PatternResult{Ticker: ticker, Pattern: "unknown", Trend: "unknown"}
	if len(bars) == 0 {
		result.Pattern = "no_data"
		return result, nil
	}

	var total float64
	var maxVolume int64
	for _, bar := range bars {
		total += float64(bar.Volume)
		if bar.Volume > maxVolume {
			maxVolume = bar.Volume
		}
	}
	result.AverageVolume = total / float64(len(bars))

	if len(bars) >= 3 {
		recent := avgVolumeOf(bars[len(bars)-3:])
		earlier := recent
		if len(bars) > 3 {
			earlier = avgVolumeOf(bars[:3])
		}
		switch {
		case recent > earlier*1.2:
			result.Trend = "increasing"
		case recent < earlier*0.8:
			result.Trend = "decreasing"
		default:
			result.Trend = "stable"
		}
	}

	switch {
	case result.AverageVolume == 0:
		result.Pattern = "no_data"
	case float64(maxVolume) > result.AverageVolume*d.cfg.SpikeThreshold:
		result.Pattern = "spike_detected"
	case result.Trend == "increasing":
		result.Pattern = "increasing_volume"
	default:
		result.Pattern = "normal"
	}
	return result, nil
}

func avgVolumeOf(bars []*models.Bar) float64 {
	var total float64
	for _, bar := range bars {
		total += float64(bar.Volume)
	}
	return total / float64(len(bars))
}

// checkSustained reports whether volume stayed elevated over the recent
// periods. Elevated means at least 70% of the spike threshold relative to
// the baseline; sustained means at least 70% of the periods were elevated.
// Errors degrade to false, never propagate.
func (d *Detector) checkSustained(ctx context.Context, ticker string, avgVolume float64) bool {
	volumes, err := d.store.GetRecentVolumes(ctx, ticker, d.cfg.SustainedPeriods)
	if err != nil {
		logger.Error("Failed to check sustained volume",
			logger.ErrorField(err),
			logger.String("ticker", ticker),
		)
		return false
	}
	if len(volumes) < d.cfg.SustainedPeriods || avgVolume == 0 {
		return false
	}

	elevatedThreshold := avgVolume * (d.cfg.SpikeThreshold * d.cfg.SustainedRatio)
	elevated := 0
	for _, v := range volumes {
		if float64(v) >= elevatedThreshold {
			elevated++
		}
	}
	return float64(elevated) >= float64(d.cfg.SustainedPeriods)*d.cfg.SustainedRatio
}
