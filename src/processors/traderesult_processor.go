package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/utils"
)

// TradeResultProcessor walks each position's transaction history and matches
// sales against a FIFO queue of prior buy-lots, producing one TradeResult per
// sale dated within the target tax year.
type TradeResultProcessor struct{}

func NewTradeResultProcessor() *TradeResultProcessor { return &TradeResultProcessor{} }

// buyLot is an open purchase in the FIFO queue. unitCost is fixed at enqueue
// time from the lot's net value over its original quantity, so partial
// consumption never inflates the remaining cost.
type buyLot struct {
	remaining float64
	unitCost  float64
	date      time.Time
}

// Process computes realized gains for selectedYear. Positions with no sell
// activity in the year contribute nothing; if no position sold in the year at
// all, the calculator short-circuits and returns an empty set.
func (p *TradeResultProcessor) Process(
	positions []models.Position,
	selectedYear int,
	diags *Diagnostics,
) []models.TradeResult {
	if !hasSellActivity(positions, selectedYear) {
		return nil
	}

	var results []models.TradeResult
	for i := range positions {
		pos := &positions[i]
		if len(pos.History) == 0 {
			continue
		}
		results = append(results, p.processPosition(pos, selectedYear, diags)...)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Date.Before(results[j].Date) })
	return results
}

func hasSellActivity(positions []models.Position, selectedYear int) bool {
	for i := range positions {
		for _, lot := range positions[i].History {
			if lot.Direction == models.DirectionSell && lot.Date.Year() == selectedYear {
				return true
			}
		}
	}
	return false
}

func (p *TradeResultProcessor) processPosition(
	pos *models.Position,
	selectedYear int,
	diags *Diagnostics,
) []models.TradeResult {
	history := make([]models.LotRecord, len(pos.History))
	copy(history, pos.History)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

	var queue []buyLot
	var results []models.TradeResult

	for _, lot := range history {
		if lot.Direction == models.DirectionBuy {
			unitCost := 0.0
			if lot.Quantity > 0 {
				unitCost = lot.NetValue / lot.Quantity
			}
			queue = append(queue, buyLot{remaining: lot.Quantity, unitCost: unitCost, date: lot.Date})
			continue
		}

		// Sales outside the target year do not produce results and leave the
		// queue untouched, matching how declared histories are rebuilt
		// year by year.
		if lot.Date.Year() != selectedYear {
			continue
		}

		remaining := lot.Quantity
		costOfGoodsSold := 0.0

		for remaining > utils.Epsilon && len(queue) > 0 {
			head := &queue[0]
			matched := remaining
			if head.remaining < matched {
				matched = head.remaining
			}
			costOfGoodsSold += matched * head.unitCost
			head.remaining -= matched
			remaining -= matched
			if head.remaining <= utils.Epsilon {
				queue = queue[1:]
			}
		}

		if remaining > utils.Epsilon {
			// Data gap: the buy queue ran dry (e.g. missing initial
			// position). Cost the remainder at the position's final average
			// price as a best-effort fallback.
			diags.Warn("Venda sem lotes de compra correspondentes",
				fmt.Sprintf("Venda de %.4f em %s sem custo FIFO para %.4f; usando preço médio final %.4f",
					lot.Quantity, lot.Date.Format("02/01/2006"), remaining, pos.AveragePrice),
				pos.AssetCode, lot.Date)
			costOfGoodsSold += remaining * pos.AveragePrice
		}

		purchasePrice := 0.0
		if lot.Quantity > 0 {
			purchasePrice = costOfGoodsSold / lot.Quantity
		}

		results = append(results, models.TradeResult{
			AssetCode:     pos.AssetCode,
			AssetName:     pos.AssetName,
			AssetCategory: pos.AssetCategory,
			MarketType:    pos.MarketType,
			Date:          lot.Date,
			Month:         int(lot.Date.Month()),
			Year:          lot.Date.Year(),
			Quantity:      lot.Quantity,
			PurchasePrice: purchasePrice,
			PurchaseCost:  costOfGoodsSold,
			SalePrice:     lot.UnitPrice,
			SaleValue:     lot.TotalValue,
			Fees:          lot.Fees,
			Taxes:         lot.Taxes,
			ProfitOrLoss:  lot.NetValue - costOfGoodsSold,
		})
	}
	return results
}
