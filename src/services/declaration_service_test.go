package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/declarab3/src/models"
)

// stubStore serves a canned run; only LatestRun matters here.
type stubStore struct {
	run *models.ProcessingRun
	err error
}

func (s *stubStore) CreateSession(context.Context, string, int) (*models.Session, error) {
	return nil, nil
}
func (s *stubStore) GetSession(context.Context, string) (*models.Session, error) { return nil, nil }
func (s *stubStore) ListSessions(context.Context) ([]models.SessionInfo, error)  { return nil, nil }
func (s *stubStore) DeleteSession(context.Context, string) error                 { return nil }
func (s *stubStore) AppendRows(context.Context, string, []models.Transaction, []models.CorporateEvent) error {
	return nil
}
func (s *stubStore) SaveRun(context.Context, *models.ProcessingRun) error { return nil }
func (s *stubStore) LatestRun(context.Context, string) (*models.ProcessingRun, error) {
	return s.run, s.err
}

func TestGenerateDeclaration(t *testing.T) {
	run := &models.ProcessingRun{
		ID:        "run-1",
		SessionID: "sess-1",
		Year:      2024,
		Summary: models.ProcessedDataSummary{
			Positions: []models.Position{
				{
					AssetCode:            "VALE3",
					AssetName:            "VALE S.A.",
					AssetCategory:        models.CategoryStock,
					Quantity:             100,
					AveragePrice:         60.00,
					TotalCost:            6000.00,
					PreviousYearQuantity: 80,
				},
				{
					AssetCode:     "PETR4",
					AssetCategory: models.CategoryStock,
					Quantity:      50,
					AveragePrice:  25.00,
					TotalCost:     1250.00,
				},
				// Closed positions never become statement lines.
				{AssetCode: "ITSA4", Quantity: 0, TotalCost: 0},
			},
			MonthlyResults: []models.MonthlyResult{
				{Year: 2024, Month: 5, AssetCategory: models.CategoryStock, TaxDue: 0, RemainingLoss: 30},
				{Year: 2024, Month: 6, AssetCategory: models.CategoryStock, TaxDue: 10.50, TaxWithheld: 0.50, TaxToPay: 10.00, RemainingLoss: 0},
				{Year: 2024, Month: 6, AssetCategory: models.CategoryStock, DayTrade: true, TaxDue: 40.00, TaxToPay: 40.00, RemainingLoss: 200},
			},
			IncomeRecords: []models.IncomeRecord{
				{AssetCode: "MXRF11", GrossValue: 120.00, TaxWithheld: 0},
				{AssetCode: "ITSA4", GrossValue: 80.00, TaxWithheld: 12.00},
			},
		},
	}

	svc := NewDeclarationService(&stubStore{run: run})
	summary, err := svc.Generate(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", summary.SessionID)
	assert.Equal(t, 2024, summary.Year)
	assert.WithinDuration(t, time.Now().UTC(), summary.GeneratedAt, time.Minute)

	require.Len(t, summary.StatementLines, 2)
	// Sorted by ticker.
	assert.Equal(t, "PETR4", summary.StatementLines[0].Ticker)
	vale := summary.StatementLines[1]
	assert.Equal(t, "VALE3", vale.Ticker)
	assert.Equal(t, "VALE S.A.", vale.CompanyName)
	assert.InDelta(t, 100, vale.Quantity, 1e-9)
	assert.InDelta(t, 6000.00, vale.TotalCost, 1e-9)
	assert.InDelta(t, 80, vale.PreviousYearQuantity, 1e-9)
	assert.Equal(t, "100 VALE3 ao preço médio de R$ 60.00, custo total R$ 6000.00", vale.Description)

	assert.InDelta(t, 7250.00, summary.TotalAssetsValue, 1e-9)
	assert.InDelta(t, 50.50, summary.TotalTaxDue, 1e-9)
	assert.InDelta(t, 50.00, summary.TotalTaxToPay, 1e-9)
	// Withheld across monthly buckets and income records.
	assert.InDelta(t, 12.50, summary.TotalTaxWithheld, 1e-9)
	assert.InDelta(t, 200.00, summary.TotalIncome, 1e-9)

	// Last bucket of each compensation lane wins.
	assert.InDelta(t, 0, summary.RemainingLoss[string(models.CategoryStock)], 1e-9)
	assert.InDelta(t, 200, summary.RemainingLoss["DAY_TRADE"], 1e-9)
}

func TestGenerateDeclarationNoRun(t *testing.T) {
	svc := NewDeclarationService(&stubStore{err: ErrRunNotFound})
	_, err := svc.Generate(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
