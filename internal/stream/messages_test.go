package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvents_Array(t *testing.T) {
	raw := []byte(`[{"ev":"A","sym":"AAPL","s":1700000000000,"o":10,"h":11,"l":9.5,"c":10.5,"v":125000,"vw":10.2},{"ev":"A","sym":"TSLA","s":1700000000000,"c":240}]`)

	events, err := parseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Event)
	assert.Equal(t, "AAPL", events[0].Symbol)
	assert.Equal(t, 10.5, events[0].Close)
}

func TestParseEvents_SingleObject(t *testing.T) {
	raw := []byte(`{"ev":"status","status":"auth_success","message":"authenticated"}`)

	events, err := parseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventStatus, events[0].Event)
	assert.Equal(t, statusAuthSuccess, events[0].Status)
}

func TestParseEvents_Empty(t *testing.T) {
	events, err := parseEvents([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEvents_Malformed(t *testing.T) {
	_, err := parseEvents([]byte(`{"ev":`))
	assert.Error(t, err)
}

func TestEventToBar(t *testing.T) {
	ev := event{
		Event:  "A",
		Symbol: "A.aapl",
		Start:  1700000000000,
		Open:   10,
		High:   11,
		Low:    9.5,
		Close:  10.5,
		Volume: 125000,
		VWAP:   10.2,
	}

	bar := ev.toBar()
	assert.Equal(t, "AAPL", bar.Ticker)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), bar.Timestamp)
	assert.Equal(t, int64(125000), bar.Volume)
	assert.Equal(t, 10.2, bar.VWAP)
	require.NoError(t, bar.Validate())
}

func TestEventToBar_FallsBackToEndTimestamp(t *testing.T) {
	ev := event{Event: "A", Symbol: "AAPL", Time: 1700000060000, Close: 10}

	bar := ev.toBar()
	assert.Equal(t, time.UnixMilli(1700000060000).UTC(), bar.Timestamp)
}

func TestSubscriptionParams(t *testing.T) {
	assert.Equal(t, "A.*", subscriptionParams(nil))
	assert.Equal(t, "A.*", subscriptionParams([]string{"*"}))
	assert.Equal(t, "A.AAPL", subscriptionParams([]string{"aapl"}))
	assert.Equal(t, "A.AAPL,A.TSLA", subscriptionParams([]string{"AAPL", "tsla"}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "unknown", State(99).String())
}
