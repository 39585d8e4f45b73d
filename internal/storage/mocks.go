package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mohamedkhairy/swing-scanner/internal/models"
)

// MockBarStore is a mock implementation of BarStore for testing
type MockBarStore struct {
	mu        sync.Mutex
	Bars      []*models.Bar
	Closes    []float64
	Volumes   []int64
	High      float64
	Stats     *models.VolumeStats
	WriteErr  error
	QueryErr  error
}

func (m *MockBarStore) UpsertBar(ctx context.Context, bar *models.Bar) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.Bars {
		if b.Ticker == bar.Ticker && b.Timestamp.Equal(bar.Timestamp) {
			m.Bars[i] = bar
			return nil
		}
	}
	m.Bars = append(m.Bars, bar)
	return nil
}

func (m *MockBarStore) UpsertBars(ctx context.Context, bars []*models.Bar) error {
	for _, bar := range bars {
		if err := m.UpsertBar(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockBarStore) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]*models.Bar, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Bar
	for _, bar := range m.Bars {
		if bar.Ticker == ticker && !bar.Timestamp.Before(start) && !bar.Timestamp.After(end) {
			result = append(result, bar)
		}
	}
	return result, nil
}

func (m *MockBarStore) GetLatestBars(ctx context.Context, ticker string, limit int) ([]*models.Bar, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Bar
	for i := len(m.Bars) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Bars[i].Ticker == ticker {
			result = append(result, m.Bars[i])
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (m *MockBarStore) GetCloses(ctx context.Context, ticker string, days int) ([]float64, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.Closes, nil
}

func (m *MockBarStore) GetVolumeStats(ctx context.Context, ticker string, lookbackDays int) (*models.VolumeStats, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if m.Stats != nil {
		return m.Stats, nil
	}
	return &models.VolumeStats{Ticker: ticker, LookbackDays: lookbackDays}, nil
}

func (m *MockBarStore) GetRecentVolumes(ctx context.Context, ticker string, periods int) ([]int64, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Volumes) > periods {
		return m.Volumes[len(m.Volumes)-periods:], nil
	}
	return m.Volumes, nil
}

func (m *MockBarStore) GetRecentHigh(ctx context.Context, ticker string, days int) (float64, error) {
	if m.QueryErr != nil {
		return 0, m.QueryErr
	}
	return m.High, nil
}

func (m *MockBarStore) Close() error {
	return nil
}

// MockAlertStore is a mock implementation of AlertStore for testing.
// Safe for concurrent use so alert gate concurrency tests can share it.
type MockAlertStore struct {
	mu       sync.Mutex
	Alerts   []*models.Alert
	WriteErr error
	QueryErr error
}

func (m *MockAlertStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockAlertStore) GetRecentAlerts(ctx context.Context, since time.Time, limit int) ([]*models.Alert, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Alert
	for i := len(m.Alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if !m.Alerts[i].CreatedAt.Before(since) {
			result = append(result, m.Alerts[i])
		}
	}
	return result, nil
}

func (m *MockAlertStore) CountAlertsSince(ctx context.Context, ticker string, since time.Time) (int, error) {
	if m.QueryErr != nil {
		return 0, m.QueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.Alerts {
		if a.Ticker == ticker && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockAlertStore) LastAlertTime(ctx context.Context, ticker string) (*time.Time, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, a := range m.Alerts {
		if a.Ticker == ticker && (last == nil || a.CreatedAt.After(*last)) {
			t := a.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (m *MockAlertStore) Close() error {
	return nil
}

// MockBroadcaster is a mock implementation of Broadcaster for testing
type MockBroadcaster struct {
	mu         sync.Mutex
	Published  []*models.Alert
	PublishErr error
}

func (m *MockBroadcaster) PublishAlert(ctx context.Context, alert *models.Alert) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, alert)
	return nil
}

func (m *MockBroadcaster) PublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

func (m *MockBroadcaster) Close() error {
	return nil
}
