package indicator

import (
	"math"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// Engine computes technical indicators over daily close series.
// All computations are pure functions of the input slice; the engine
// holds only configuration and is safe for concurrent use.
type Engine struct {
	cfg config.IndicatorConfig
}

// NewEngine creates an indicator engine
func NewEngine(cfg config.IndicatorConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Compute calculates RSI, MACD and the SMA pair over a close price series
// ordered oldest to newest, and derives the boolean signals from the
// latest values. Returns ErrInsufficientData when the series is shorter
// than the long SMA period.
func (e *Engine) Compute(ticker string, closes []float64) (*models.IndicatorSnapshot, error) {
	if len(closes) < e.cfg.SMALong {
		return nil, models.ErrInsufficientData
	}

	rsi := rsiSeries(closes, e.cfg.RSIPeriod)
	macd := e.computeMACD(closes)
	smaShort := smaSeries(closes, e.cfg.SMAShort)
	smaLong := smaSeries(closes, e.cfg.SMALong)

	snap := &models.IndicatorSnapshot{
		Ticker:       ticker,
		MACD:         macd,
		CurrentPrice: closes[len(closes)-1],
		Timestamp:    time.Now().UTC(),
	}
	if len(rsi) > 0 {
		snap.RSI = rsi[len(rsi)-1]
	}
	if len(smaShort) > 0 {
		snap.SMAShort = smaShort[len(smaShort)-1]
	}
	if len(smaLong) > 0 {
		snap.SMALong = smaLong[len(smaLong)-1]
	}

	snap.Signals = models.Signals{
		RSIOversold:   len(rsi) > 0 && snap.RSI < e.cfg.RSIOversold,
		RSIOverbought: len(rsi) > 0 && snap.RSI > e.cfg.RSIOverbought,
		BullishCrossover: len(smaShort) > 1 && len(smaLong) > 1 &&
			smaShort[len(smaShort)-1] > smaLong[len(smaLong)-1] &&
			smaShort[len(smaShort)-2] <= smaLong[len(smaLong)-2],
		MACDBullish:   macd.Trend == "bullish",
		PriceAboveSMA: len(smaShort) > 0 && snap.CurrentPrice > snap.SMAShort,
	}

	return snap, nil
}

// DetectBreakout checks whether the current price clears the recent high
// by the configured threshold. Resistance is the highest close over the
// breakout lookback window, excluding the current bar.
func (e *Engine) DetectBreakout(ticker string, currentPrice, resistance float64) models.BreakoutResult {
	res := models.BreakoutResult{
		Ticker:       ticker,
		CurrentPrice: currentPrice,
		Resistance:   resistance,
	}
	if resistance <= 0 {
		return res
	}
	res.HasBreakout = currentPrice > resistance*e.cfg.BreakoutThreshold
	res.BreakoutPercent = (currentPrice - resistance) / resistance * 100
	return res
}

// rsiSeries computes the RSI series using Wilder smoothing. The seed
// average gain/loss is the simple mean of the first period deltas; later
// values use avg = (avg_prev*(period-1) + delta) / period. A zero average
// loss yields RSI 100.
func rsiSeries(closes []float64, period int) []float64 {
	if len(closes) < period+1 {
		return nil
	}

	deltas := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		deltas[i-1] = closes[i] - closes[i-1]
	}

	gain := func(d float64) float64 {
		if d > 0 {
			return d
		}
		return 0
	}
	loss := func(d float64) float64 {
		if d < 0 {
			return -d
		}
		return 0
	}

	var sumGain, sumLoss float64
	for _, d := range deltas[:period] {
		sumGain += gain(d)
		sumLoss += loss(d)
	}
	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	for i := period; i < len(deltas); i++ {
		avgGain = (avgGain*float64(period-1) + gain(deltas[i])) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss(deltas[i])) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if math.IsNaN(rsi) || math.IsInf(rsi, 0) {
		return 50
	}
	return math.Max(0, math.Min(100, rsi))
}

// emaSeries computes an EMA series seeded with the SMA of the first
// period values. Output length is len(data)-period+1.
func emaSeries(data []float64, period int) []float64 {
	if len(data) < period {
		return nil
	}

	out := make([]float64, len(data)-period+1)
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for _, v := range data[:period] {
		sum += v
	}
	out[0] = sum / float64(period)

	for i := 1; i < len(out); i++ {
		out[i] = (data[period+i-1]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// smaSeries computes a rolling simple moving average. Output length is
// len(data)-period+1.
func smaSeries(data []float64, period int) []float64 {
	if len(data) < period {
		return nil
	}

	out := make([]float64, len(data)-period+1)
	var sum float64
	for _, v := range data[:period] {
		sum += v
	}
	out[0] = sum / float64(period)
	for i := 1; i < len(out); i++ {
		sum += data[period+i-1] - data[i-1]
		out[i] = sum / float64(period)
	}
	return out
}

// computeMACD derives the MACD line, signal line and crossover trend.
// The fast and slow EMA series are aligned by trimming the longer series
// from the front before subtracting.
func (e *Engine) computeMACD(closes []float64) models.MACD {
	if len(closes) < e.cfg.MACDSlow {
		return models.MACD{Trend: "neutral"}
	}

	emaFast := emaSeries(closes, e.cfg.MACDFast)
	emaSlow := emaSeries(closes, e.cfg.MACDSlow)

	if len(emaFast) > len(emaSlow) {
		emaFast = emaFast[len(emaFast)-len(emaSlow):]
	} else if len(emaSlow) > len(emaFast) {
		emaSlow = emaSlow[len(emaSlow)-len(emaFast):]
	}

	macdLine := make([]float64, len(emaFast))
	for i := range emaFast {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	var signalLine []float64
	if len(macdLine) >= e.cfg.MACDSignal {
		signalLine = emaSeries(macdLine, e.cfg.MACDSignal)
	}

	out := models.MACD{Trend: "neutral"}
	if len(signalLine) == 0 {
		if len(macdLine) > 0 {
			out.Line = macdLine[len(macdLine)-1]
		}
		return out
	}

	out.Line = macdLine[len(macdLine)-1]
	out.Signal = signalLine[len(signalLine)-1]
	out.Histogram = out.Line - out.Signal

	if len(macdLine) > 1 && len(signalLine) > 1 {
		prevMACD := macdLine[len(macdLine)-2]
		prevSignal := signalLine[len(signalLine)-2]
		switch {
		case prevMACD <= prevSignal && out.Line > out.Signal:
			out.Trend = "bullish"
		case prevMACD >= prevSignal && out.Line < out.Signal:
			out.Trend = "bearish"
		}
	}
	return out
}
