package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/declarab3/src/models"
)

// sessionStubStore serves one in-memory session and captures the saved run.
type sessionStubStore struct {
	stubStore
	session  *models.Session
	savedRun *models.ProcessingRun
}

func (s *sessionStubStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	if s.session == nil || s.session.ID != id {
		return nil, ErrSessionNotFound
	}
	return s.session, nil
}

func (s *sessionStubStore) SaveRun(_ context.Context, run *models.ProcessingRun) error {
	s.savedRun = run
	return nil
}

type stubTickerInfo struct{}

func (stubTickerInfo) Lookup(_ context.Context, ticker string) (*TickerInfo, error) {
	if ticker == "PETR4" {
		return &TickerInfo{Ticker: "PETR4", CompanyName: "PETROLEO BRASILEIRO S.A.", CNPJ: "33000167000101"}, nil
	}
	return nil, nil
}

func testSession() *models.Session {
	buy := models.Transaction{
		Date:          time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		Year:          2024,
		Month:         1,
		Direction:     models.DirectionBuy,
		MarketType:    models.MarketSpot,
		AssetCode:     "PETR4",
		AssetCategory: models.CategoryStock,
		Quantity:      100,
		UnitPrice:     30.00,
		TotalValue:    3000.00,
		NetValue:      3000.00,
	}
	sell := buy
	sell.Date = time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)
	sell.Month = 6
	sell.Direction = models.DirectionSell
	sell.UnitPrice = 35.00
	sell.TotalValue = 3500.00
	sell.NetValue = 3500.00

	return &models.Session{
		ID:   "sess-1",
		Name: "IRPF 2025",
		Year: 2024,
		Transactions: []models.Transaction{buy, sell},
		Events: []models.CorporateEvent{{
			Date:       time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC),
			Year:       2024,
			Month:      5,
			RawKind:    "Dividendo",
			AssetCode:  "PETR4",
			Quantity:   100,
			TotalValue: 150.00,
			NetValue:   150.00,
		}},
	}
}

func TestProcessFullPipeline(t *testing.T) {
	store := &sessionStubStore{session: testSession()}
	svc := NewProcessingService(store, NewStaticEventInfoService(), stubTickerInfo{})

	result, err := svc.Process(context.Background(), "sess-1", true)
	require.NoError(t, err)

	require.Len(t, result.Positions, 1)
	pos := result.Positions[0]
	assert.Equal(t, "PETR4", pos.AssetCode)
	assert.Zero(t, pos.Quantity)
	assert.Equal(t, "33000167000101", pos.CNPJ)

	require.Len(t, result.TradeResults, 1)
	assert.InDelta(t, 500.00, result.TradeResults[0].ProfitOrLoss, 1e-9)

	require.Len(t, result.MonthlyResults, 1)
	m := result.MonthlyResults[0]
	assert.Equal(t, 6, m.Month)
	// Sales under the monthly exemption ceiling.
	assert.Zero(t, m.TaxDue)
	assert.True(t, m.TradeResults[0].IsExempt)

	require.Len(t, result.IncomeRecords, 1)
	assert.Equal(t, models.IncomeDividend, result.IncomeRecords[0].IncomeKind)
	assert.InDelta(t, 150.00, result.IncomeRecords[0].GrossValue, 1e-9)

	assert.Empty(t, result.Inconsistencies)

	// The run is persisted with the same summary.
	require.NotNil(t, store.savedRun)
	assert.Equal(t, "sess-1", store.savedRun.SessionID)
	assert.Equal(t, 2024, store.savedRun.Year)
	assert.True(t, store.savedRun.IncludeInitialPosition)
	assert.Len(t, store.savedRun.Summary.MonthlyResults, 1)
}

func TestProcessSessionNotFound(t *testing.T) {
	svc := NewProcessingService(&sessionStubStore{}, NewStaticEventInfoService(), nil)
	_, err := svc.Process(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestValidateOnly(t *testing.T) {
	session := testSession()
	// Introduce a defect: a sale with no quantity.
	session.Transactions[1].Quantity = 0

	store := &sessionStubStore{session: session}
	svc := NewProcessingService(store, NewStaticEventInfoService(), nil)

	findings, err := svc.Validate(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	assert.Equal(t, models.SeverityError, findings[0].Severity)
	// Validation never persists a run.
	assert.Nil(t, store.savedRun)
}
