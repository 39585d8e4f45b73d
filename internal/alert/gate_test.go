package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
)

type fakeScorer struct {
	result *models.ScoreResult
	err    error
	calls  int
	mu     sync.Mutex
}

func (f *fakeScorer) Score(ctx context.Context, ticker string, currentVolume int64) (*models.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.Ticker = models.NormalizeTicker(ticker)
	r.Timestamp = time.Now().UTC()
	return &r, nil
}

func gateConfig() config.AlertConfig {
	return config.AlertConfig{
		DedupWindow:      60 * time.Minute,
		MaxAlertsPerHour: 10,
		Cooldown:         30 * time.Minute,
		MaxTrackedKeys:   1000,
	}
}

func qualifyingResult() *models.ScoreResult {
	return &models.ScoreResult{
		Ticker:     "AAPL",
		TotalScore: 82.5,
		Qualifies:  true,
		VolumeTechnical: models.VolumeScore{
			Score:   85,
			Factors: []string{"Volume spike: 4.00x average"},
		},
		Catalyst: models.CatalystScore{
			Score:             35,
			StrongestCatalyst: "biotech_phase3",
			Catalysts:         []models.Catalyst{{Type: "biotech_phase3"}},
		},
		Fundamental: models.FundamentalScore{Score: 60, PassesFilters: true},
		Bonuses:     models.Adjustments{Total: 5, Reasons: []string{"Exceptional volume spike"}},
		Penalties:   models.Adjustments{Reasons: []string{}},
	}
}

func TestCheckAndCreate_CreatesAlert(t *testing.T) {
	store := &storage.MockAlertStore{}
	broadcaster := &storage.MockBroadcaster{}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(gateConfig(), store, scorer, broadcaster)

	alert, err := gate.CheckAndCreate(context.Background(), "aapl", 500000)
	if err != nil {
		t.Fatalf("CheckAndCreate failed: %v", err)
	}
	if alert == nil {
		t.Fatal("Expected an alert")
	}
	if alert.Ticker != "AAPL" {
		t.Errorf("Expected ticker AAPL, got %s", alert.Ticker)
	}
	if alert.AlertType != models.AlertTypeSwingPlay {
		t.Errorf("Expected alert type %s, got %s", models.AlertTypeSwingPlay, alert.AlertType)
	}
	if alert.ID == "" {
		t.Error("Alert should have an ID")
	}
	if len(store.Alerts) != 1 {
		t.Errorf("Expected 1 persisted alert, got %d", len(store.Alerts))
	}
	if broadcaster.PublishedCount() != 1 {
		t.Errorf("Expected 1 broadcast alert, got %d", broadcaster.PublishedCount())
	}
}

func TestCheckAndCreate_DuplicateSuppressed(t *testing.T) {
	store := &storage.MockAlertStore{}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(gateConfig(), store, scorer, nil)

	if _, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000); err != nil {
		t.Fatalf("First alert failed: %v", err)
	}

	_, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if !errors.Is(err, models.ErrDuplicateAlert) {
		t.Fatalf("Expected ErrDuplicateAlert, got %v", err)
	}
	if len(store.Alerts) != 1 {
		t.Errorf("Expected 1 alert, got %d", len(store.Alerts))
	}
	// Second call never reached the scorer
	if scorer.calls != 1 {
		t.Errorf("Expected 1 scorer call, got %d", scorer.calls)
	}
}

func TestCheckAndCreate_DuplicateFromStore(t *testing.T) {
	// Alert persisted by another process within the window; the in-memory
	// set is empty but the store check still catches it.
	store := &storage.MockAlertStore{
		Alerts: []*models.Alert{{
			ID:        "x",
			Ticker:    "AAPL",
			CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
		}},
	}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(gateConfig(), store, scorer, nil)

	_, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if !errors.Is(err, models.ErrDuplicateAlert) {
		t.Fatalf("Expected ErrDuplicateAlert, got %v", err)
	}
}

func TestCheckAndCreate_RateLimitedByHourlyCap(t *testing.T) {
	cfg := gateConfig()
	cfg.DedupWindow = 5 * time.Minute

	// Ten alerts 45 minutes ago: outside dedup window, inside the hour
	store := &storage.MockAlertStore{}
	for i := 0; i < 10; i++ {
		store.Alerts = append(store.Alerts, &models.Alert{
			ID:        "x",
			Ticker:    "AAPL",
			CreatedAt: time.Now().UTC().Add(-45 * time.Minute),
		})
	}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(cfg, store, scorer, nil)

	_, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
}

func TestTickerLocks_IdleLocksSwept(t *testing.T) {
	cfg := gateConfig()
	cfg.MaxTrackedKeys = 1
	gate := NewGate(cfg, &storage.MockAlertStore{}, &fakeScorer{result: qualifyingResult()}, nil)

	stale := &tickerLock{lastUsed: time.Now().UTC().Add(-2 * time.Hour)}
	held := &tickerLock{lastUsed: time.Now().UTC().Add(-2 * time.Hour)}
	held.Lock()
	defer held.Unlock()
	gate.tickerLocks["OLD"] = stale
	gate.tickerLocks["HELD"] = held

	gate.tickerLock("AAPL")

	gate.mu.Lock()
	defer gate.mu.Unlock()
	if _, ok := gate.tickerLocks["OLD"]; ok {
		t.Error("Idle lock should have been swept")
	}
	if _, ok := gate.tickerLocks["HELD"]; !ok {
		t.Error("Held lock must survive the sweep")
	}
	if _, ok := gate.tickerLocks["AAPL"]; !ok {
		t.Error("Freshly used lock must survive the sweep")
	}
}

func TestCheckAndCreate_AcceptsAfterRateWindowExpires(t *testing.T) {
	cfg := gateConfig()
	cfg.DedupWindow = 5 * time.Minute

	// A full hour's worth of alerts, all aged past the rate window, the
	// dedup window and the cooldown: the ticker is eligible again.
	store := &storage.MockAlertStore{}
	for i := 0; i < 10; i++ {
		store.Alerts = append(store.Alerts, &models.Alert{
			ID:        "x",
			Ticker:    "AAPL",
			CreatedAt: time.Now().UTC().Add(-90 * time.Minute),
		})
	}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(cfg, store, scorer, nil)

	alert, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if err != nil {
		t.Fatalf("Expected alert once the counted hour aged out, got %v", err)
	}
	if alert == nil {
		t.Fatal("Expected an alert")
	}
	if len(store.Alerts) != 11 {
		t.Errorf("Expected 11 persisted alerts, got %d", len(store.Alerts))
	}
}

func TestCheckAndCreate_Cooldown(t *testing.T) {
	cfg := gateConfig()
	cfg.DedupWindow = 5 * time.Minute

	// One alert 10 minutes ago: outside dedup window, inside cooldown
	store := &storage.MockAlertStore{
		Alerts: []*models.Alert{{
			ID:        "x",
			Ticker:    "AAPL",
			CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
		}},
	}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(cfg, store, scorer, nil)

	_, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
}

func TestCheckAndCreate_NotQualified(t *testing.T) {
	result := qualifyingResult()
	result.Qualifies = false
	result.TotalScore = 40

	store := &storage.MockAlertStore{}
	scorer := &fakeScorer{result: result}
	gate := NewGate(gateConfig(), store, scorer, nil)

	_, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000)
	if !errors.Is(err, models.ErrNotQualified) {
		t.Fatalf("Expected ErrNotQualified, got %v", err)
	}
	if len(store.Alerts) != 0 {
		t.Errorf("Expected no alerts, got %d", len(store.Alerts))
	}
}

func TestCheckAndCreate_InvalidTicker(t *testing.T) {
	gate := NewGate(gateConfig(), &storage.MockAlertStore{}, &fakeScorer{result: qualifyingResult()}, nil)

	_, err := gate.CheckAndCreate(context.Background(), "bad ticker", 0)
	if !errors.Is(err, models.ErrInvalidTicker) {
		t.Fatalf("Expected ErrInvalidTicker, got %v", err)
	}
}

func TestCreateFromScore_SkipsDedup(t *testing.T) {
	// A recent alert exists, but an explicit on-demand check still creates
	store := &storage.MockAlertStore{
		Alerts: []*models.Alert{{
			ID:        "x",
			Ticker:    "AAPL",
			CreatedAt: time.Now().UTC().Add(-5 * time.Minute),
		}},
	}
	gate := NewGate(gateConfig(), store, &fakeScorer{result: qualifyingResult()}, nil)

	alert, err := gate.CreateFromScore(context.Background(), qualifyingResult())
	if err != nil {
		t.Fatalf("CreateFromScore failed: %v", err)
	}
	if alert == nil {
		t.Fatal("Expected an alert")
	}
	if len(store.Alerts) != 2 {
		t.Errorf("Expected 2 alerts, got %d", len(store.Alerts))
	}
}

func TestCreateFromScore_NotQualified(t *testing.T) {
	result := qualifyingResult()
	result.Qualifies = false
	gate := NewGate(gateConfig(), &storage.MockAlertStore{}, &fakeScorer{}, nil)

	_, err := gate.CreateFromScore(context.Background(), result)
	if !errors.Is(err, models.ErrNotQualified) {
		t.Fatalf("Expected ErrNotQualified, got %v", err)
	}
}

func TestCheckAndCreate_ConcurrentSameTicker(t *testing.T) {
	store := &storage.MockAlertStore{}
	scorer := &fakeScorer{result: qualifyingResult()}
	gate := NewGate(gateConfig(), store, scorer, nil)

	const n = 8
	var wg sync.WaitGroup
	created := make(chan *models.Alert, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if alert, err := gate.CheckAndCreate(context.Background(), "AAPL", 500000); err == nil {
				created <- alert
			}
		}()
	}
	wg.Wait()
	close(created)

	count := 0
	for range created {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 alert from concurrent calls, got %d", count)
	}
	if len(store.Alerts) != 1 {
		t.Errorf("Expected 1 persisted alert, got %d", len(store.Alerts))
	}
}

func TestFormatMessage(t *testing.T) {
	result := qualifyingResult()
	result.PumpPotential = models.PumpScore{Score: 72, HasPumpPotential: true}
	result.Penalties = models.Adjustments{Total: 15, Reasons: []string{"Recent dilution"}}

	msg := formatMessage(result)

	for _, want := range []string{
		"🚀 Swing Play Alert: AAPL",
		"Score: 82.5/100",
		"Strongest Catalyst: biotech_phase3 (35.0)",
		"Volume/Technical: 85.0/100",
		"Fundamental: 60.0/100",
		"🔥 Pump potential: 72/100",
		"Bonuses: Exceptional volume spike",
		"Penalties: Recent dilution",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatMessage_NoCatalyst(t *testing.T) {
	result := qualifyingResult()
	result.Catalyst.StrongestCatalyst = ""
	result.Catalyst.Score = 0

	msg := formatMessage(result)
	if !strings.Contains(msg, "Strongest Catalyst: N/A (0.0)") {
		t.Errorf("Expected N/A catalyst line:\n%s", msg)
	}
}
