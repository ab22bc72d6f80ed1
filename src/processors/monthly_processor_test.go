package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/declarab3/src/models"
)

func trade(code string, category models.AssetCategory, date time.Time, saleValue, profit float64) models.TradeResult {
	return models.TradeResult{
		AssetCode:     code,
		AssetCategory: category,
		MarketType:    models.MarketSpot,
		Date:          date,
		Month:         int(date.Month()),
		Year:          date.Year(),
		SaleValue:     saleValue,
		ProfitOrLoss:  profit,
	}
}

func TestMonthlyLossCompensation(t *testing.T) {
	trades := []models.TradeResult{
		// May: loss of 30 carried forward.
		trade("PETR4", models.CategoryStock, day(2024, time.May, 10), 25000, -30),
		// June: profit of 100, sales above the exemption ceiling.
		trade("PETR4", models.CategoryStock, day(2024, time.June, 12), 25000, 100),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 2)

	may := results[0]
	assert.Equal(t, 5, may.Month)
	assert.InDelta(t, -30, may.NetResult, 1e-9)
	assert.InDelta(t, 30, may.TotalLoss, 1e-9)
	assert.Zero(t, may.TaxDue)
	assert.InDelta(t, 30, may.RemainingLoss, 1e-9)

	june := results[1]
	assert.Equal(t, 6, june.Month)
	assert.InDelta(t, 100, june.NetResult, 1e-9)
	assert.InDelta(t, 30, june.CompensatedLoss, 1e-9)
	assert.InDelta(t, 70, june.TaxableProfit, 1e-9)
	assert.InDelta(t, 0.15, june.TaxRate, 1e-9)
	assert.InDelta(t, 10.50, june.TaxDue, 1e-9)
	assert.Zero(t, june.RemainingLoss)
}

func TestMonthlyStockExemptionUnderThreshold(t *testing.T) {
	trades := []models.TradeResult{
		trade("PETR4", models.CategoryStock, day(2024, time.June, 12), 15000, 500),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 500, r.TaxableProfit, 1e-9)
	assert.Zero(t, r.TaxDue)
	assert.Zero(t, r.TaxToPay)
	require.Len(t, r.TradeResults, 1)
	assert.True(t, r.TradeResults[0].IsExempt)
}

func TestMonthlyStockExemptionCountsAllStockSalesInMonth(t *testing.T) {
	// Two stock trades in the same month; combined sales exceed the ceiling,
	// so neither is exempt.
	trades := []models.TradeResult{
		trade("PETR4", models.CategoryStock, day(2024, time.June, 5), 12000, 200),
		trade("VALE3", models.CategoryStock, day(2024, time.June, 20), 12000, 300),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 24000, r.TotalSalesValue, 1e-9)
	assert.InDelta(t, 500*0.15, r.TaxDue, 1e-9)
	for _, tr := range r.TradeResults {
		assert.False(t, tr.IsExempt)
	}
}

func TestMonthlyFIIRateAndNoExemption(t *testing.T) {
	trades := []models.TradeResult{
		// FII gains have no sales-volume exemption and tax at 20%.
		trade("MXRF11", models.CategoryFII, day(2024, time.March, 8), 5000, 100),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 0.20, r.TaxRate, 1e-9)
	assert.InDelta(t, 20.00, r.TaxDue, 1e-9)
	assert.False(t, r.TradeResults[0].IsExempt)
}

func TestMonthlyDayTradeSeparateLane(t *testing.T) {
	dayTradeLoss := trade("PETR4", models.CategoryStock, day(2024, time.April, 3), 10000, -200)
	dayTradeLoss.MarketType = models.MarketDayTrade

	trades := []models.TradeResult{
		dayTradeLoss,
		// The common-operation profit must not be offset by the day-trade loss.
		trade("PETR4", models.CategoryStock, day(2024, time.May, 10), 25000, 100),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 2)

	april := results[0]
	assert.True(t, april.DayTrade)
	assert.InDelta(t, 0.20, april.TaxRate, 1e-9)
	assert.InDelta(t, 200, april.RemainingLoss, 1e-9)

	may := results[1]
	assert.False(t, may.DayTrade)
	assert.Zero(t, may.CompensatedLoss)
	assert.InDelta(t, 100*0.15, may.TaxDue, 1e-9)
}

func TestMonthlyTaxToPayNeverNegative(t *testing.T) {
	tr := trade("MXRF11", models.CategoryFII, day(2024, time.March, 8), 5000, 100)
	tr.Taxes = 50 // withheld at source above the tax due

	results := NewMonthlyProcessor().Process([]models.TradeResult{tr}, 2024)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 20.00, r.TaxDue, 1e-9)
	assert.InDelta(t, 50.00, r.TaxWithheld, 1e-9)
	assert.Zero(t, r.TaxToPay)
}

func TestMonthlyLossesDoNotCrossCategories(t *testing.T) {
	trades := []models.TradeResult{
		trade("MXRF11", models.CategoryFII, day(2024, time.February, 8), 5000, -100),
		trade("PETR4", models.CategoryStock, day(2024, time.March, 10), 25000, 100),
	}

	results := NewMonthlyProcessor().Process(trades, 2024)
	require.Len(t, results, 2)

	stock := results[1]
	assert.Equal(t, models.CategoryStock, stock.AssetCategory)
	assert.Zero(t, stock.CompensatedLoss)
	assert.InDelta(t, 15.00, stock.TaxDue, 1e-9)
}

func TestMonthlyIgnoresOtherYears(t *testing.T) {
	trades := []models.TradeResult{
		trade("PETR4", models.CategoryStock, day(2023, time.June, 12), 25000, 100),
	}
	assert.Empty(t, NewMonthlyProcessor().Process(trades, 2024))
}
