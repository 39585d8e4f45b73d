package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// event is a single message from the aggregate feed. Status messages and
// minute aggregates share the envelope; the "ev" field discriminates.
type event struct {
	Event   string  `json:"ev"`
	Status  string  `json:"status,omitempty"`
	Message string  `json:"message,omitempty"`
	Symbol  string  `json:"sym,omitempty"`
	Start   int64   `json:"s,omitempty"`
	Time    int64   `json:"t,omitempty"`
	Open    float64 `json:"o,omitempty"`
	High    float64 `json:"h,omitempty"`
	Low     float64 `json:"l,omitempty"`
	Close   float64 `json:"c,omitempty"`
	Volume  float64 `json:"v,omitempty"`
	VWAP    float64 `json:"vw,omitempty"`
}

const (
	eventAggregate = "A"
	eventStatus    = "status"

	statusAuthSuccess = "auth_success"
	statusAuthFailed  = "auth_failed"
)

// parseEvents decodes a frame that may hold a single event or an array of them.
func parseEvents(raw []byte) ([]event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var events []event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to decode event array: %w", err)
		}
		return events, nil
	}

	var ev event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return []event{ev}, nil
}

// toBar converts an aggregate event into a bar. The bar start timestamp is
// preferred; some feeds only carry the end timestamp.
func (e event) toBar() models.Bar {
	ms := e.Start
	if ms == 0 {
		ms = e.Time
	}

	ticker := strings.TrimPrefix(e.Symbol, "A.")

	return models.Bar{
		Ticker:    models.NormalizeTicker(ticker),
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      e.Open,
		High:      e.High,
		Low:       e.Low,
		Close:     e.Close,
		Volume:    int64(e.Volume),
		VWAP:      e.VWAP,
	}
}

// subscriptionParams builds the aggregate channel list for a set of symbols.
// An empty list or a lone "*" subscribes to every stock.
func subscriptionParams(symbols []string) string {
	if len(symbols) == 0 || (len(symbols) == 1 && models.NormalizeTicker(symbols[0]) == "*") {
		return "A.*"
	}

	channels := make([]string, 0, len(symbols))
	for _, s := range symbols {
		channels = append(channels, "A."+models.NormalizeTicker(s))
	}
	return strings.Join(channels, ",")
}

type controlMessage struct {
	Action string `json:"action"`
	Params string `json:"params,omitempty"`
}
