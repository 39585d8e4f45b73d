package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

const (
	dilutionLookbackDays = 90
	dilutionRiskCutoff   = 0.3
)

// DilutionChecker assesses dilution risk. The resulting flag is a hard
// veto in the qualification gate regardless of the total score.
type DilutionChecker struct {
	provider FundamentalsProvider
}

// NewDilutionChecker creates a dilution risk checker
func NewDilutionChecker(provider FundamentalsProvider) *DilutionChecker {
	return &DilutionChecker{provider: provider}
}

// Check computes the dilution risk assessment for a ticker
func (c *DilutionChecker) Check(ctx context.Context, ticker string) (models.DilutionRisk, error) {
	status, err := c.provider.GetDilutionStatus(ctx, ticker, dilutionLookbackDays)
	if err != nil {
		return models.DilutionRisk{RiskFactors: []string{}}, err
	}

	riskScore := 0.0
	riskFactors := []string{}

	if status.HasRecentDilution {
		riskScore += 0.5
		riskFactors = append(riskFactors, "Recent dilution detected")
	}
	if status.DilutionRiskScore > dilutionRiskCutoff {
		riskScore += 0.3
		riskFactors = append(riskFactors, fmt.Sprintf("High dilution risk score: %.2f", status.DilutionRiskScore))
	}
	if status.HasReverseSplit {
		riskScore += 0.4
		riskFactors = append(riskFactors, "Recent reverse split detected")

		if status.ReverseSplitDate != nil {
			daysSince := int(time.Since(*status.ReverseSplitDate).Hours() / 24)
			if daysSince < dilutionLookbackDays {
				riskScore += 0.2
				riskFactors = append(riskFactors, fmt.Sprintf("Reverse split within last %d days", daysSince))
			}
		}
	}

	return models.DilutionRisk{
		HasDilutionRisk:   riskScore > dilutionRiskCutoff,
		HasRecentDilution: status.HasRecentDilution,
		HasReverseSplit:   status.HasReverseSplit,
		RiskScore:         math.Min(riskScore, 1.0),
		RiskFactors:       riskFactors,
	}, nil
}
