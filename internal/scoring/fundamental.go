package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// FundamentalAnalyzer scores financial health and applies the hard risk
// filters. The score rewards stability, cash and growth; the filters
// reject tiny caps, overleveraged names and penny stocks outright.
type FundamentalAnalyzer struct {
	provider        FundamentalsProvider
	minMarketCap    float64
	maxDebtToEquity float64
	minPrice        float64
}

// NewFundamentalAnalyzer creates a fundamental analyzer
func NewFundamentalAnalyzer(provider FundamentalsProvider, cfg config.AdapterConfig) *FundamentalAnalyzer {
	return &FundamentalAnalyzer{
		provider:        provider,
		minMarketCap:    cfg.MinMarketCap,
		maxDebtToEquity: cfg.MaxDebtToEquity,
		minPrice:        cfg.MinPrice,
	}
}

// Analyze computes the fundamental sub-score for a ticker
func (a *FundamentalAnalyzer) Analyze(ctx context.Context, ticker string) (models.FundamentalScore, error) {
	fund, err := a.provider.GetFundamentals(ctx, ticker)
	if err != nil {
		return models.FundamentalScore{Factors: []string{}, RiskFactors: []string{}}, err
	}

	score := 0.0
	factors := []string{}
	riskFactors := []string{}

	score += fund.StabilityScore * 0.35
	factors = append(factors, fund.Strengths...)
	riskFactors = append(riskFactors, fund.RiskFactors...)

	if fund.TotalCash > 0 && fund.MarketCap > 0 {
		cashRatio := fund.TotalCash / fund.MarketCap
		if cashRatio > 0.1 {
			score += 0.25
			factors = append(factors, "Strong cash position")
		} else if cashRatio < 0.05 {
			score -= 0.1
			riskFactors = append(riskFactors, "Low cash position")
		}
	}

	if fund.RevenueGrowth > 0.1 {
		score += 0.2
		factors = append(factors, fmt.Sprintf("Strong revenue growth: %.1f%%", fund.RevenueGrowth*100))
	} else if fund.RevenueGrowth < -0.1 {
		score -= 0.15
		riskFactors = append(riskFactors, fmt.Sprintf("Declining revenue: %.1f%%", fund.RevenueGrowth*100))
	}

	if fund.DebtToEquity > 0 {
		if fund.DebtToEquity > a.maxDebtToEquity {
			score -= 0.2
			riskFactors = append(riskFactors, fmt.Sprintf("High debt-to-equity: %.2f", fund.DebtToEquity))
		} else if fund.DebtToEquity < 1.0 {
			score += 0.2
			factors = append(factors, "Low debt-to-equity")
		}
	}

	if fund.MarketCap > 0 && fund.MarketCap < a.minMarketCap {
		score -= 0.3
		riskFactors = append(riskFactors, fmt.Sprintf("Market cap below minimum: $%.0f", fund.MarketCap))
	}

	score = math.Max(0, math.Min(1, score)) * 100

	// Missing data passes a filter; only a known-bad value fails it
	passesFilters := (fund.MarketCap == 0 || fund.MarketCap >= a.minMarketCap) &&
		(fund.DebtToEquity == 0 || fund.DebtToEquity <= a.maxDebtToEquity) &&
		(fund.CurrentPrice == 0 || fund.CurrentPrice >= a.minPrice)

	return models.FundamentalScore{
		Score:         score,
		PassesFilters: passesFilters,
		Factors:       factors,
		RiskFactors:   riskFactors,
	}, nil
}
