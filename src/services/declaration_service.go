package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/utils"
)

// StatementLine is one "Bens e Direitos" entry of the annual declaration:
// the year-end holding of one asset with its acquisition cost.
type StatementLine struct {
	Ticker               string               `json:"ticker"`
	CompanyName          string               `json:"company_name,omitempty"`
	CNPJ                 string               `json:"cnpj,omitempty"`
	AssetCategory        models.AssetCategory `json:"asset_category"`
	Quantity             float64              `json:"quantity"`
	AveragePrice         float64              `json:"average_price"`
	TotalCost            float64              `json:"total_cost"`
	PreviousYearQuantity float64              `json:"previous_year_quantity"`
	Description          string               `json:"description"`
}

// DeclarationSummary is the annual roll-up the declaration file would be
// generated from. It stays an in-memory structure; the fixed-width receita
// layout is produced elsewhere.
type DeclarationSummary struct {
	SessionID        string                 `json:"session_id"`
	Year             int                    `json:"year"`
	GeneratedAt      time.Time              `json:"generated_at"`
	StatementLines   []StatementLine        `json:"statement_lines"`
	MonthlyResults   []models.MonthlyResult `json:"monthly_results"`
	IncomeRecords    []models.IncomeRecord  `json:"income_records"`
	TotalTaxDue      float64                `json:"total_tax_due"`
	TotalTaxWithheld float64                `json:"total_tax_withheld"`
	TotalTaxToPay    float64                `json:"total_tax_to_pay"`
	RemainingLoss    map[string]float64     `json:"remaining_loss"` // per compensation lane, year end
	TotalAssetsValue float64                `json:"total_assets_value"`
	TotalIncome      float64                `json:"total_income"`
}

// DeclarationService builds the annual summary from a session's latest
// processing run.
type DeclarationService struct {
	store SessionStore
}

func NewDeclarationService(store SessionStore) *DeclarationService {
	return &DeclarationService{store: store}
}

func (s *DeclarationService) Generate(ctx context.Context, sessionID string) (*DeclarationSummary, error) {
	run, err := s.store.LatestRun(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &DeclarationSummary{
		SessionID:      sessionID,
		Year:           run.Year,
		GeneratedAt:    time.Now().UTC(),
		MonthlyResults: run.Summary.MonthlyResults,
		IncomeRecords:  run.Summary.IncomeRecords,
		RemainingLoss:  make(map[string]float64),
	}

	for _, pos := range run.Summary.Positions {
		if pos.Quantity <= utils.Epsilon {
			continue
		}
		line := StatementLine{
			Ticker:               pos.AssetCode,
			CompanyName:          pos.AssetName,
			CNPJ:                 pos.CNPJ,
			AssetCategory:        pos.AssetCategory,
			Quantity:             pos.Quantity,
			AveragePrice:         utils.RoundFloat(pos.AveragePrice, 2),
			TotalCost:            utils.RoundFloat(pos.TotalCost, 2),
			PreviousYearQuantity: pos.PreviousYearQuantity,
			Description: fmt.Sprintf("%.0f %s ao preço médio de R$ %.2f, custo total R$ %.2f",
				pos.Quantity, pos.AssetCode, pos.AveragePrice, pos.TotalCost),
		}
		summary.StatementLines = append(summary.StatementLines, line)
		summary.TotalAssetsValue += pos.TotalCost
	}
	sort.Slice(summary.StatementLines, func(i, j int) bool {
		return summary.StatementLines[i].Ticker < summary.StatementLines[j].Ticker
	})

	// Each compensation lane's remaining loss is whatever its last monthly
	// bucket carried out; buckets are already in chronological order.
	for _, m := range run.Summary.MonthlyResults {
		summary.TotalTaxDue += m.TaxDue
		summary.TotalTaxWithheld += m.TaxWithheld
		summary.TotalTaxToPay += m.TaxToPay
		lane := string(m.AssetCategory)
		if m.DayTrade {
			lane = "DAY_TRADE"
		}
		summary.RemainingLoss[lane] = m.RemainingLoss
	}

	for _, inc := range run.Summary.IncomeRecords {
		summary.TotalIncome += inc.GrossValue
		summary.TotalTaxWithheld += inc.TaxWithheld
	}

	summary.TotalTaxDue = utils.RoundFloat(summary.TotalTaxDue, 2)
	summary.TotalTaxWithheld = utils.RoundFloat(summary.TotalTaxWithheld, 2)
	summary.TotalTaxToPay = utils.RoundFloat(summary.TotalTaxToPay, 2)
	summary.TotalAssetsValue = utils.RoundFloat(summary.TotalAssetsValue, 2)
	summary.TotalIncome = utils.RoundFloat(summary.TotalIncome, 2)
	return summary, nil
}
