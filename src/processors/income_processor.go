package processors

import (
	"fmt"
	"math"
	"sort"

	"github.com/username/declarab3/src/models"
)

// IncomeProcessor filters classified events down to cash distributions
// (dividends, interest on equity, fund income) and maps them to income
// records. Positions are never touched here.
type IncomeProcessor struct{}

func NewIncomeProcessor() *IncomeProcessor { return &IncomeProcessor{} }

func incomeKindFor(kind models.EventKind) models.IncomeKind {
	switch kind {
	case models.EventKindInterestOnEquity:
		return models.IncomeInterestOnEquity
	case models.EventKindFundIncome:
		return models.IncomeFundIncome
	default:
		return models.IncomeDividend
	}
}

// Process returns the income records for all distribution events, sorted by
// date. A NaN gross value (seen in malformed exports) is substituted by zero
// and reported instead of propagating through the declaration totals.
func (p *IncomeProcessor) Process(events []models.CorporateEvent, diags *Diagnostics) []models.IncomeRecord {
	var records []models.IncomeRecord
	for _, e := range events {
		if !e.Kind.IsIncome() {
			continue
		}

		gross := e.TotalValue
		net := e.NetValue
		if math.IsNaN(gross) {
			diags.Warn("Valor bruto inválido em evento de rendimento",
				fmt.Sprintf("Evento %q com valor bruto NaN; substituído por 0", e.RawKind),
				e.AssetCode, e.Date)
			gross = 0
			net = 0
		}

		records = append(records, models.IncomeRecord{
			AssetCode:     e.AssetCode,
			AssetName:     e.AssetName,
			AssetCategory: e.AssetCategory,
			IncomeKind:    incomeKindFor(e.Kind),
			Date:          e.Date,
			Month:         e.Month,
			Year:          e.Year,
			GrossValue:    gross,
			TaxWithheld:   e.Taxes,
			NetValue:      net,
			BrokerName:    e.BrokerName,
			BrokerCode:    e.BrokerCode,
		})
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records
}
