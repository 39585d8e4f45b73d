package alert

import (
	"fmt"
	"strings"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// formatMessage renders the human-readable alert body
func formatMessage(result *models.ScoreResult) string {
	strongest := result.Catalyst.StrongestCatalyst
	if strongest == "" {
		strongest = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 Swing Play Alert: %s\n", result.Ticker)
	fmt.Fprintf(&b, "Score: %.1f/100\n\n", result.TotalScore)
	fmt.Fprintf(&b, "Strongest Catalyst: %s (%.1f)\n", strongest, result.Catalyst.Score)
	fmt.Fprintf(&b, "Volume/Technical: %.1f/100\n", result.VolumeTechnical.Score)
	fmt.Fprintf(&b, "Fundamental: %.1f/100\n", result.Fundamental.Score)

	if result.PumpPotential.HasPumpPotential {
		fmt.Fprintf(&b, "🔥 Pump potential: %.0f/100\n", result.PumpPotential.Score)
	}
	if len(result.Bonuses.Reasons) > 0 {
		fmt.Fprintf(&b, "Bonuses: %s\n", strings.Join(result.Bonuses.Reasons, ", "))
	}
	if len(result.Penalties.Reasons) > 0 {
		fmt.Fprintf(&b, "Penalties: %s\n", strings.Join(result.Penalties.Reasons, ", "))
	}

	return strings.TrimSpace(b.String())
}
