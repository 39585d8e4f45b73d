package scoring

import (
	"context"
	"time"
)

// MockFundamentalsProvider is a mock FundamentalsProvider for testing
type MockFundamentalsProvider struct {
	ShortInterestData *ShortInterest
	FundamentalsData  *Fundamentals
	DilutionData      *DilutionStatus
	ShortInterestErr  error
	FundamentalsErr   error
	DilutionErr       error
}

func (m *MockFundamentalsProvider) GetShortInterest(ctx context.Context, ticker string) (*ShortInterest, error) {
	if m.ShortInterestErr != nil {
		return nil, m.ShortInterestErr
	}
	if m.ShortInterestData != nil {
		return m.ShortInterestData, nil
	}
	return &ShortInterest{}, nil
}

func (m *MockFundamentalsProvider) GetFundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	if m.FundamentalsErr != nil {
		return nil, m.FundamentalsErr
	}
	if m.FundamentalsData != nil {
		return m.FundamentalsData, nil
	}
	return &Fundamentals{}, nil
}

func (m *MockFundamentalsProvider) GetDilutionStatus(ctx context.Context, ticker string, days int) (*DilutionStatus, error) {
	if m.DilutionErr != nil {
		return nil, m.DilutionErr
	}
	if m.DilutionData != nil {
		return m.DilutionData, nil
	}
	return &DilutionStatus{}, nil
}

// MockNewsProvider is a mock NewsProvider for testing
type MockNewsProvider struct {
	Articles []NewsArticle
	Err      error
}

func (m *MockNewsProvider) GetRecentNews(ctx context.Context, ticker string, window time.Duration) ([]NewsArticle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Articles, nil
}
