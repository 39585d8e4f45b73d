package scoring

import (
	"context"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// catalystWeights ranks catalyst types by how reliably they move small
// caps. Unknown types fall back to the "other" weight.
var catalystWeights = map[string]float64{
	"biotech_phase3": 1.0,
	"buyout_merger":  0.95,
	"partnership":    0.80,
	"funding":        0.70,
	"short_squeeze":  0.85,
	"other":          0.50,
}

const catalystNewsWindow = 24 * time.Hour

// CatalystAnalyzer scores news catalyst strength. Each article scores
// weight times absolute sentiment; the total is normalized against the
// sum of all weights so one strong catalyst of every type maps to 100.
type CatalystAnalyzer struct {
	provider                 NewsProvider
	strongSentimentThreshold float64
}

// NewCatalystAnalyzer creates a catalyst analyzer
func NewCatalystAnalyzer(provider NewsProvider, cfg config.ScoringConfig) *CatalystAnalyzer {
	return &CatalystAnalyzer{
		provider:                 provider,
		strongSentimentThreshold: cfg.StrongSentimentThreshold,
	}
}

// Analyze computes the catalyst sub-score for a ticker
func (a *CatalystAnalyzer) Analyze(ctx context.Context, ticker string) (models.CatalystScore, error) {
	articles, err := a.provider.GetRecentNews(ctx, ticker, catalystNewsWindow)
	if err != nil {
		return models.CatalystScore{Catalysts: []models.Catalyst{}}, err
	}

	catalysts := make([]models.Catalyst, 0, len(articles))
	totalScore := 0.0
	maxScore := 0.0
	strongest := ""

	for _, article := range articles {
		weight, ok := catalystWeights[article.CatalystType]
		if !ok {
			weight = catalystWeights["other"]
		}
		score := weight * abs(article.SentimentScore)

		catalysts = append(catalysts, models.Catalyst{
			Type:           article.CatalystType,
			Title:          article.Title,
			SentimentScore: article.SentimentScore,
			Weight:         weight,
			Score:          score,
			PublishedAt:    article.PublishedAt,
		})

		totalScore += score
		if score > maxScore {
			maxScore = score
			strongest = article.CatalystType
		}
	}

	var maxPossible float64
	for _, w := range catalystWeights {
		maxPossible += w
	}
	normalized := 0.0
	if maxPossible > 0 {
		normalized = totalScore / maxPossible * 100
	}

	strongSentiment := false
	if len(catalysts) > 0 {
		var sum float64
		for _, c := range catalysts {
			sum += c.SentimentScore
		}
		strongSentiment = sum/float64(len(catalysts)) > a.strongSentimentThreshold
	}

	return models.CatalystScore{
		Score:             normalized,
		Catalysts:         catalysts,
		StrongestCatalyst: strongest,
		StrongSentiment:   strongSentiment,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
