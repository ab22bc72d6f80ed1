package processors

import (
	"sort"

	"github.com/username/declarab3/src/models"
)

// Brazilian capital-gains parameters for listed assets.
const (
	// StockSalesExemptionThreshold is the monthly gross-sales ceiling (R$)
	// under which common-stock gains are exempt.
	StockSalesExemptionThreshold = 20000.0

	TaxRateCommon   = 0.15 // ações, ETFs, BDRs em operações comuns
	TaxRateFII      = 0.20 // fundos imobiliários
	TaxRateDayTrade = 0.20
)

// MonthlyProcessor groups trade results into (year, month, category) buckets
// and applies sequential loss compensation, the common-stock exemption rule
// and the category tax rates. Day-trade operations form their own buckets and
// their own carried-loss lane.
type MonthlyProcessor struct{}

func NewMonthlyProcessor() *MonthlyProcessor { return &MonthlyProcessor{} }

type bucketKey struct {
	year     int
	month    int
	category models.AssetCategory
	dayTrade bool
}

// compensationGroup identifies the carried-loss lane a bucket draws from.
// Losses never cross lanes: stock losses offset stock profits only, FII
// losses FII profits, day-trade losses day-trade profits.
func compensationGroup(category models.AssetCategory, dayTrade bool) string {
	if dayTrade {
		return "DAY_TRADE"
	}
	return string(category)
}

func taxRateFor(category models.AssetCategory, dayTrade bool) float64 {
	switch {
	case dayTrade:
		return TaxRateDayTrade
	case category == models.CategoryFII:
		return TaxRateFII
	default:
		return TaxRateCommon
	}
}

// Process aggregates the selected year's trade results into monthly buckets.
// Trades from other years are ignored; with no trades in the year the result
// is empty, so positions closed in previous years never leak into the
// declaration.
func (p *MonthlyProcessor) Process(tradeResults []models.TradeResult, selectedYear int) []models.MonthlyResult {
	buckets := make(map[bucketKey]*models.MonthlyResult)
	// Gross common-stock sales per (year, month), for the exemption test.
	stockSales := make(map[[2]int]float64)

	for _, trade := range tradeResults {
		if trade.Year != selectedYear {
			continue
		}
		dayTrade := trade.MarketType == models.MarketDayTrade
		key := bucketKey{trade.Year, trade.Month, trade.AssetCategory, dayTrade}

		if trade.AssetCategory == models.CategoryStock && !dayTrade {
			stockSales[[2]int{trade.Year, trade.Month}] += trade.SaleValue
		}

		bucket, ok := buckets[key]
		if !ok {
			bucket = &models.MonthlyResult{
				Year:          trade.Year,
				Month:         trade.Month,
				AssetCategory: trade.AssetCategory,
				DayTrade:      dayTrade,
				TaxRate:       taxRateFor(trade.AssetCategory, dayTrade),
			}
			buckets[key] = bucket
		}

		bucket.TradeResults = append(bucket.TradeResults, trade)
		bucket.TaxWithheld += trade.Taxes
		bucket.TotalSalesValue += trade.SaleValue
		if trade.ProfitOrLoss > 0 {
			bucket.TotalProfit += trade.ProfitOrLoss
		} else {
			bucket.TotalLoss += -trade.ProfitOrLoss
		}
	}

	if len(buckets) == 0 {
		return nil
	}

	results := make([]*models.MonthlyResult, 0, len(buckets))
	for _, b := range buckets {
		results = append(results, b)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.AssetCategory != b.AssetCategory {
			return a.AssetCategory < b.AssetCategory
		}
		return !a.DayTrade && b.DayTrade
	})

	// Sequential compensation: one running remaining-loss accumulator per
	// lane, carried across months in chronological order.
	carriedLoss := make(map[string]float64)

	out := make([]models.MonthlyResult, 0, len(results))
	for _, result := range results {
		lane := compensationGroup(result.AssetCategory, result.DayTrade)

		result.NetResult = result.TotalProfit - result.TotalLoss
		if result.NetResult > 0 && carriedLoss[lane] > 0 {
			compensated := result.NetResult
			if carriedLoss[lane] < compensated {
				compensated = carriedLoss[lane]
			}
			result.CompensatedLoss = compensated
			carriedLoss[lane] -= compensated
		} else if result.NetResult < 0 {
			carriedLoss[lane] += -result.NetResult
		}

		result.TaxableProfit = result.NetResult - result.CompensatedLoss
		if result.TaxableProfit < 0 {
			result.TaxableProfit = 0
		}
		result.RemainingLoss = carriedLoss[lane]

		exempt := result.AssetCategory == models.CategoryStock && !result.DayTrade &&
			stockSales[[2]int{result.Year, result.Month}] <= StockSalesExemptionThreshold

		if result.TaxableProfit > 0 && !exempt {
			result.TaxDue = result.TaxableProfit * result.TaxRate
		}
		result.TaxToPay = result.TaxDue - result.TaxWithheld
		if result.TaxToPay < 0 {
			result.TaxToPay = 0
		}

		if exempt {
			for i := range result.TradeResults {
				result.TradeResults[i].IsExempt = true
			}
		}

		out = append(out, *result)
	}
	return out
}
