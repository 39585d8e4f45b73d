package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

func testConfig() config.IndicatorConfig {
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

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMASeries(t *testing.T) {
	closes := []float64{10, 10.5, 11, 10.8, 11.5, 12, 11.8, 12.5, 13, 12.7}
	sma := smaSeries(closes, 3)

	if len(sma) != 8 {
		t.Fatalf("Expected 8 SMA values, got %d", len(sma))
	}
	if !almostEqual(sma[0], 10.5) {
		t.Errorf("Expected first SMA 10.5, got %f", sma[0])
	}
	if !almostEqual(sma[2], 11.1) {
		t.Errorf("Expected third SMA 11.1, got %f", sma[2])
	}

	// Shorter than period
	if got := smaSeries([]float64{1, 2}, 3); got != nil {
		t.Errorf("Expected nil for short series, got %v", got)
	}
}

func TestEMASeries(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	ema := emaSeries(data, 3)

	if len(ema) != 4 {
		t.Fatalf("Expected 4 EMA values, got %d", len(ema))
	}
	// Seed is SMA of first 3 values
	if !almostEqual(ema[0], 2) {
		t.Errorf("Expected seed 2, got %f", ema[0])
	}
	// ema[1] = (4-2)*0.5 + 2 = 3
	if !almostEqual(ema[1], 3) {
		t.Errorf("Expected ema[1]=3, got %f", ema[1])
	}
	// Monotonically rising input keeps EMA below the latest value
	last := ema[len(ema)-1]
	if last >= data[len(data)-1] {
		t.Errorf("EMA %f should lag latest value %f", last, data[len(data)-1])
	}
}

func TestRSISeries_Range(t *testing.T) {
	closes := make([]float64, 60)
	price := 100.0
	for i := range closes {
		// Alternating up/down walk
		if i%2 == 0 {
			price += 1.5
		} else {
			price -= 1.0
		}
		closes[i] = price
	}

	rsi := rsiSeries(closes, 14)
	if len(rsi) != len(closes)-14 {
		t.Fatalf("Expected %d RSI values, got %d", len(closes)-14, len(rsi))
	}
	for i, v := range rsi {
		if v < 0 || v > 100 {
			t.Errorf("RSI[%d]=%f out of [0,100]", i, v)
		}
	}
	// Net positive drift should keep RSI above neutral
	if rsi[len(rsi)-1] <= 50 {
		t.Errorf("Expected RSI above 50 for rising series, got %f", rsi[len(rsi)-1])
	}
}

func TestRSISeries_AllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := rsiSeries(closes, 14)
	if len(rsi) == 0 {
		t.Fatal("Expected RSI values")
	}
	if rsi[len(rsi)-1] != 100 {
		t.Errorf("Expected RSI 100 with zero losses, got %f", rsi[len(rsi)-1])
	}
}

func TestRSISeries_Insufficient(t *testing.T) {
	if got := rsiSeries([]float64{1, 2, 3}, 14); got != nil {
		t.Errorf("Expected nil for short series, got %v", got)
	}
}

func TestCompute_InsufficientData(t *testing.T) {
	engine := NewEngine(testConfig())
	closes := make([]float64, 49)
	for i := range closes {
		closes[i] = 100
	}
	_, err := engine.Compute("AAPL", closes)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestCompute_Signals(t *testing.T) {
	engine := NewEngine(testConfig())

	// Flat base then a steady climb: short SMA above long SMA,
	// price above short SMA, MACD positive.
	closes := make([]float64, 80)
	price := 100.0
	for i := range closes {
		if i >= 50 {
			price += 2
		}
		closes[i] = price
	}

	snap, err := engine.Compute("AAPL", closes)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if snap.Ticker != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %s", snap.Ticker)
	}
	if snap.CurrentPrice != closes[len(closes)-1] {
		t.Errorf("Expected current price %f, got %f", closes[len(closes)-1], snap.CurrentPrice)
	}
	if snap.SMAShort <= snap.SMALong {
		t.Errorf("Expected short SMA %f above long SMA %f", snap.SMAShort, snap.SMALong)
	}
	if !snap.Signals.PriceAboveSMA {
		t.Error("Expected price_above_sma signal")
	}
	if snap.Signals.RSIOversold {
		t.Error("Rising series should not be oversold")
	}
	if snap.MACD.Line <= snap.MACD.Signal {
		t.Errorf("Expected MACD line %f above signal %f in uptrend", snap.MACD.Line, snap.MACD.Signal)
	}
}

func TestCompute_BullishCrossover(t *testing.T) {
	engine := NewEngine(testConfig())

	// Long decline followed by a sharp reversal forces the short SMA
	// to cross the long SMA from below.
	closes := make([]float64, 120)
	price := 200.0
	for i := range closes {
		if i < 100 {
			price -= 0.5
		} else {
			price += 6
		}
		closes[i] = price
	}

	// Find a crossover somewhere in the reversal by scanning prefixes.
	found := false
	for n := 101; n <= len(closes); n++ {
		snap, err := engine.Compute("TEST", closes[:n])
		if err != nil {
			t.Fatalf("Compute failed at n=%d: %v", n, err)
		}
		if snap.Signals.BullishCrossover {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected a bullish SMA crossover during reversal")
	}
}

func TestDetectBreakout(t *testing.T) {
	engine := NewEngine(testConfig())

	res := engine.DetectBreakout("AAPL", 103, 100)
	if !res.HasBreakout {
		t.Error("Expected breakout at 3% above resistance")
	}
	if !almostEqual(res.BreakoutPercent, 3) {
		t.Errorf("Expected breakout percent 3, got %f", res.BreakoutPercent)
	}

	res = engine.DetectBreakout("AAPL", 101, 100)
	if res.HasBreakout {
		t.Error("1% above resistance should not be a breakout")
	}

	// Exactly at the threshold is not a breakout
	res = engine.DetectBreakout("AAPL", 102, 100)
	if res.HasBreakout {
		t.Error("Price exactly at threshold should not be a breakout")
	}

	// No resistance data
	res = engine.DetectBreakout("AAPL", 100, 0)
	if res.HasBreakout {
		t.Error("Zero resistance should never be a breakout")
	}
}
