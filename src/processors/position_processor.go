package processors

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/utils"
)

// PositionProcessor folds transactions and classified corporate events into
// live per-asset positions. It owns the position map for the duration of one
// Process call and holds no cross-run state: every call starts from fresh
// accumulators.
//
// The timeline is strictly ordered (date ascending, transactions before
// events on equal dates) and items are applied one at a time, resolver calls
// included, because later events depend on the running average cost produced
// by earlier ones.
type PositionProcessor struct {
	resolver EventInfoResolver
}

func NewPositionProcessor(resolver EventInfoResolver) *PositionProcessor {
	return &PositionProcessor{resolver: resolver}
}

// timelineItem is either a transaction or an event; exactly one pointer is set.
type timelineItem struct {
	tx *models.Transaction
	ev *models.CorporateEvent
}

func (it timelineItem) date() time.Time {
	if it.tx != nil {
		return it.tx.Date
	}
	return it.ev.Date
}

func (it timelineItem) year() int {
	if it.tx != nil {
		return it.tx.Year
	}
	return it.ev.Year
}

func (it timelineItem) assetCode() string {
	if it.tx != nil {
		return it.tx.AssetCode
	}
	return it.ev.AssetCode
}

// Process replays the merged timeline up to the end of selectedYear and
// returns the resulting positions, sorted by asset code. When
// includeInitialPosition is false, history before selectedYear is excluded
// entirely instead of being folded into the running position.
//
// Malformed per-item data (missing factors, over-selling, missing reference
// prices) never fails the run; it degrades to a Diagnostics warning and a
// best-effort transition. The returned error is reserved for structural
// failures such as context cancellation.
func (p *PositionProcessor) Process(
	ctx context.Context,
	transactions []models.Transaction,
	events []models.CorporateEvent,
	selectedYear int,
	includeInitialPosition bool,
	diags *Diagnostics,
) ([]models.Position, error) {
	timeline := buildTimeline(transactions, events, selectedYear, includeInitialPosition)

	positions := make(map[string]*models.Position)
	previousYearQty := make(map[string]float64)

	for _, item := range timeline {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("position processing interrupted: %w", err)
		}

		key := utils.AssetKey(item.assetCode())
		if item.tx != nil {
			p.applyTransaction(item.tx, key, positions, diags)
		} else {
			if err := p.applyEvent(ctx, item.ev, key, positions, diags); err != nil {
				return nil, err
			}
		}

		// Snapshot the running quantity while still inside the prior year;
		// the last write before selectedYear wins.
		if item.year() <= selectedYear-1 {
			if pos, ok := positions[key]; ok {
				previousYearQty[key] = pos.Quantity
			}
		}
	}

	var result []models.Position
	for key, pos := range positions {
		pos.PreviousYearQuantity = previousYearQty[key]
		// Positions that never accumulated history and ended at zero carry no
		// information; closed positions with history are kept because they
		// still feed trade-result computation.
		if pos.Quantity > utils.Epsilon || len(pos.History) > 0 {
			result = append(result, *pos)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssetCode < result[j].AssetCode })
	return result, nil
}

// buildTimeline merges and orders the inputs. Transactions sort before events
// on equal dates: trades establish the cost basis that events then adjust.
func buildTimeline(
	transactions []models.Transaction,
	events []models.CorporateEvent,
	selectedYear int,
	includeInitialPosition bool,
) []timelineItem {
	var timeline []timelineItem
	for i := range transactions {
		t := &transactions[i]
		if t.Year > selectedYear {
			continue
		}
		if !includeInitialPosition && t.Year != selectedYear {
			continue
		}
		timeline = append(timeline, timelineItem{tx: t})
	}
	for i := range events {
		e := &events[i]
		if e.Year > selectedYear {
			continue
		}
		if !includeInitialPosition && e.Year != selectedYear {
			continue
		}
		timeline = append(timeline, timelineItem{ev: e})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		di, dj := timeline[i].date(), timeline[j].date()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return timeline[i].tx != nil && timeline[j].tx == nil
	})
	return timeline
}

func (p *PositionProcessor) applyTransaction(
	t *models.Transaction,
	key string,
	positions map[string]*models.Position,
	diags *Diagnostics,
) {
	pos, ok := positions[key]
	if !ok {
		pos = &models.Position{
			AssetCode:       t.AssetCode,
			AssetName:       t.AssetName,
			AssetCategory:   t.AssetCategory,
			MarketType:      t.MarketType,
			AcquisitionDate: t.Date,
			LastUpdateDate:  t.Date,
			BrokerName:      t.BrokerName,
			BrokerCode:      t.BrokerCode,
		}
		positions[key] = pos
	}

	pos.History = append(pos.History, models.LotRecord{
		Date:       t.Date,
		Direction:  t.Direction,
		Quantity:   t.Quantity,
		UnitPrice:  t.UnitPrice,
		TotalValue: t.TotalValue,
		Fees:       t.Fees,
		Taxes:      t.Taxes,
		NetValue:   t.NetValue,
	})

	if t.Direction == models.DirectionBuy {
		// Fees and taxes stay out of the cost basis.
		wasFlat := pos.Quantity < utils.Epsilon
		pos.Quantity += t.Quantity
		pos.TotalCost += t.Quantity * t.UnitPrice
		pos.AveragePrice = safeAverage(pos.TotalCost, pos.Quantity)
		if wasFlat {
			pos.AcquisitionDate = t.Date
		}
	} else {
		if t.Quantity > pos.Quantity+utils.Epsilon {
			diags.Warn("Venda acima do saldo disponível",
				fmt.Sprintf("Venda de %.4f quando apenas %.4f disponível; posição zerada", t.Quantity, pos.Quantity),
				t.AssetCode, t.Date)
			pos.Quantity = 0
			pos.TotalCost = 0
			pos.AveragePrice = 0
		} else {
			pos.Quantity -= t.Quantity
			if pos.Quantity > utils.Epsilon {
				// Average cost is the source of truth between sales: the
				// remaining cost is recomputed from it instead of being
				// decremented by a sold-cost amount. Known precision
				// trade-off, kept for compatibility with declared history.
				pos.TotalCost = pos.AveragePrice * pos.Quantity
			} else {
				pos.Quantity = 0
				pos.TotalCost = 0
				pos.AveragePrice = 0
			}
		}
	}
	pos.LastUpdateDate = t.Date
}

func (p *PositionProcessor) applyEvent(
	ctx context.Context,
	e *models.CorporateEvent,
	key string,
	positions map[string]*models.Position,
	diags *Diagnostics,
) error {
	pos, ok := positions[key]
	if !ok {
		diags.Warn("Evento para posição inexistente",
			fmt.Sprintf("Evento %q sem posição prévia; ignorado", e.RawKind),
			e.AssetCode, e.Date)
		return nil
	}

	switch e.Kind {
	case models.EventKindStockDividend:
		pos.Quantity += e.Quantity
		p.recomputeAverage(pos)

	case models.EventKindStockSplit:
		p.applySplit(ctx, e, pos, diags, false)

	case models.EventKindReverseSplit:
		p.applySplit(ctx, e, pos, diags, true)

	case models.EventKindOther:
		switch {
		case isAtualizacao(e.RawKind):
			p.applyAtualizacao(ctx, e, pos, diags)
		case isFracao(e.RawKind):
			p.applyFracao(e, pos, diags)
		default:
			logger.L.Info("Evento 'other' sem efeito em posição", "asset", e.AssetCode, "raw", e.RawKind)
		}

	case models.EventKindDividend, models.EventKindInterestOnEquity, models.EventKindFundIncome:
		// Cash income, handled exclusively by the income extractor.

	default:
		logger.L.Info("Evento sem tratamento de posição", "asset", e.AssetCode, "kind", e.Kind, "raw", e.RawKind)
	}

	pos.LastUpdateDate = e.Date
	return nil
}

// applySplit handles stock-split and reverse-split. A valid factor must be
// greater than 1; when the event carries none, the resolver is consulted.
// Resolver errors count as "not found" so a flaky lookup never aborts a run.
func (p *PositionProcessor) applySplit(
	ctx context.Context,
	e *models.CorporateEvent,
	pos *models.Position,
	diags *Diagnostics,
	reverse bool,
) {
	label := "Desdobramento"
	if reverse {
		label = "Grupamento"
	}

	if pos.Quantity < utils.Epsilon {
		diags.Warn(label+" sobre posição zerada",
			fmt.Sprintf("%s em %s com quantidade zero; ignorado", label, e.Date.Format("02/01/2006")),
			e.AssetCode, e.Date)
		return
	}

	factor := e.Factor
	if !(factor > 1) && p.resolver != nil {
		resolved, ok, err := p.resolver.GetFactor(ctx, utils.AssetKey(e.AssetCode), e.Kind, e.Date)
		if err != nil {
			diags.Warn("Falha ao consultar fator de evento",
				fmt.Sprintf("%s: consulta externa falhou (%v); tratado como não encontrado", label, err),
				e.AssetCode, e.Date)
		} else if ok {
			factor = resolved
		}
	}

	if !(factor > 1) {
		diags.Warn(label+" sem fator válido",
			fmt.Sprintf("%s sem fator > 1; posição inalterada", label),
			e.AssetCode, e.Date)
		return
	}

	if reverse {
		pos.Quantity /= factor
	} else {
		pos.Quantity *= factor
	}
	p.recomputeAverage(pos)
}

// applyAtualizacao credits quantity at an externally supplied reference
// price; with no price the credit behaves like bonus shares (cost unchanged).
func (p *PositionProcessor) applyAtualizacao(
	ctx context.Context,
	e *models.CorporateEvent,
	pos *models.Position,
	diags *Diagnostics,
) {
	var price float64
	if p.resolver != nil {
		resolved, ok, err := p.resolver.GetReferencePrice(ctx, utils.AssetKey(e.AssetCode), e.RawKind, e.Date)
		if err != nil {
			diags.Warn("Falha ao consultar preço de referência",
				fmt.Sprintf("Evento %q: consulta externa falhou (%v); preço assumido 0", e.RawKind, err),
				e.AssetCode, e.Date)
		} else if ok {
			price = resolved
		}
	}
	if price <= 0 {
		diags.Warn("Preço de referência não encontrado",
			fmt.Sprintf("Evento %q sem preço de referência; custo inalterado", e.RawKind),
			e.AssetCode, e.Date)
	}

	pos.Quantity += e.Quantity
	if price > 0 {
		pos.TotalCost += e.Quantity * price
	}
	p.recomputeAverage(pos)
}

// applyFracao removes fractional shares bought back by the company, costed at
// the position's average price before the event.
func (p *PositionProcessor) applyFracao(
	e *models.CorporateEvent,
	pos *models.Position,
	diags *Diagnostics,
) {
	if e.Quantity <= 0 {
		diags.Warn("Fração em Ativos com quantidade inválida",
			fmt.Sprintf("Quantidade %.4f; evento ignorado", e.Quantity),
			e.AssetCode, e.Date)
		return
	}

	if pos.Quantity < e.Quantity-utils.Epsilon {
		diags.Warn("Fração em Ativos acima do saldo disponível",
			fmt.Sprintf("Remoção de %.4f quando apenas %.4f disponível; posição zerada", e.Quantity, pos.Quantity),
			e.AssetCode, e.Date)
		pos.Quantity = 0
		pos.TotalCost = 0
		pos.AveragePrice = 0
		return
	}

	averageBefore := pos.AveragePrice
	pos.TotalCost -= e.Quantity * averageBefore
	pos.Quantity -= e.Quantity
	if pos.Quantity < utils.Epsilon {
		pos.Quantity = 0
		pos.TotalCost = 0
	}
	if pos.TotalCost < 0 {
		diags.Warn("Custo total negativo após Fração em Ativos",
			fmt.Sprintf("Custo %.4f ajustado para 0", pos.TotalCost),
			e.AssetCode, e.Date)
		pos.TotalCost = 0
	}
	pos.AveragePrice = safeAverage(pos.TotalCost, pos.Quantity)
}

func (p *PositionProcessor) recomputeAverage(pos *models.Position) {
	if pos.Quantity > utils.Epsilon {
		pos.AveragePrice = pos.TotalCost / pos.Quantity
	} else {
		pos.AveragePrice = 0
		pos.TotalCost = 0
	}
}

func safeAverage(totalCost, quantity float64) float64 {
	if quantity > utils.Epsilon {
		return totalCost / quantity
	}
	return 0
}
