package processors

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/utils"
)

// ConsistencyValidator scans raw transaction/event inputs for data-quality
// defects before processing. It is pure and read-only: it replays a
// simplified quantity timeline of its own and never touches engine state.
type ConsistencyValidator struct{}

func NewConsistencyValidator() *ConsistencyValidator { return &ConsistencyValidator{} }

// Validate runs every check and returns the findings. Events are expected to
// be classified already (Kind filled).
func (v *ConsistencyValidator) Validate(
	transactions []models.Transaction,
	events []models.CorporateEvent,
) []models.Inconsistency {
	var findings []models.Inconsistency
	findings = append(findings, v.checkDuplicateTransactions(transactions)...)
	findings = append(findings, v.checkInvalidQuantities(transactions, events)...)
	findings = append(findings, v.checkInvalidDates(transactions, events)...)
	findings = append(findings, v.checkMissingAssetCodes(transactions, events)...)
	findings = append(findings, v.checkNegativeBalances(transactions, events)...)
	return findings
}

func location(p models.Provenance) string {
	if p.FileName != "" && p.RowNumber > 0 {
		return fmt.Sprintf("%s:L%d", p.FileName, p.RowNumber)
	}
	return ""
}

// checkDuplicateTransactions flags clusters of rows identical in
// date+asset+direction+quantity+price+fees+taxes (within tolerances).
// Each cluster yields exactly one warning, not one per member.
func (v *ConsistencyValidator) checkDuplicateTransactions(transactions []models.Transaction) []models.Inconsistency {
	groups := make(map[string][]int)
	for i, t := range transactions {
		if t.Date.IsZero() || t.AssetCode == "" {
			continue
		}
		key := fmt.Sprintf("%s|%s|%s", t.Date.Format(time.RFC3339), utils.AssetKey(t.AssetCode), t.Direction)
		groups[key] = append(groups[key], i)
	}

	var findings []models.Inconsistency
	seen := make(map[int]bool)
	var keys []string
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		group := groups[k]
		if len(group) <= 1 {
			continue
		}
		for gi, i := range group {
			if seen[i] {
				continue
			}
			t1 := transactions[i]
			cluster := []int{i}
			for _, j := range group[gi+1:] {
				if seen[j] {
					continue
				}
				t2 := transactions[j]
				if t1.Quantity == t2.Quantity &&
					math.Abs(t1.UnitPrice-t2.UnitPrice) < utils.Epsilon &&
					math.Abs(t1.TotalValue-t2.TotalValue) < 0.01 &&
					math.Abs(t1.Fees-t2.Fees) < 0.01 &&
					math.Abs(t1.Taxes-t2.Taxes) < 0.01 {
					cluster = append(cluster, j)
					seen[j] = true
				}
			}
			if len(cluster) > 1 {
				seen[i] = true
				locs := ""
				for _, ci := range cluster {
					if l := location(transactions[ci].Provenance); l != "" {
						if locs != "" {
							locs += ", "
						}
						locs += l
					}
				}
				d := t1.Date
				findings = append(findings, models.Inconsistency{
					Severity: models.SeverityWarning,
					Message:  "Transação duplicada detectada",
					Details: fmt.Sprintf("Existem %d transações idênticas para %s em %s",
						len(cluster), t1.AssetCode, t1.Date.Format("02/01/2006")),
					AssetCode: t1.AssetCode,
					Date:      &d,
					Location:  locs,
				})
			}
		}
	}
	return findings
}

func (v *ConsistencyValidator) checkInvalidQuantities(
	transactions []models.Transaction,
	events []models.CorporateEvent,
) []models.Inconsistency {
	var findings []models.Inconsistency
	for _, t := range transactions {
		if t.Quantity <= 0 {
			d := t.Date
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityError,
				Message:   "Quantidade inválida na transação",
				Details:   fmt.Sprintf("Ativo %s, Qtd %.4f", t.AssetCode, t.Quantity),
				AssetCode: t.AssetCode,
				Date:      &d,
				Location:  location(t.Provenance),
			})
		}
	}
	for _, e := range events {
		if e.Quantity < 0 || (e.Quantity == 0 && !e.Kind.AllowsZeroQuantity()) {
			d := e.Date
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityError,
				Message:   "Quantidade inválida no evento",
				Details:   fmt.Sprintf("Ativo %s, Tipo %s, Qtd %.4f", e.AssetCode, e.RawKind, e.Quantity),
				AssetCode: e.AssetCode,
				Date:      &d,
				Location:  location(e.Provenance),
			})
		}
	}
	return findings
}

func (v *ConsistencyValidator) checkInvalidDates(
	transactions []models.Transaction,
	events []models.CorporateEvent,
) []models.Inconsistency {
	var findings []models.Inconsistency
	endOfToday := time.Now().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)

	for _, t := range transactions {
		if t.Date.IsZero() {
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityError,
				Message:   "Data inválida na transação",
				Details:   fmt.Sprintf("Ativo %s", t.AssetCode),
				AssetCode: t.AssetCode,
				Location:  location(t.Provenance),
			})
		} else if t.Date.After(endOfToday) {
			d := t.Date
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityWarning,
				Message:   "Data futura na transação",
				Details:   fmt.Sprintf("Ativo %s, Data %s", t.AssetCode, t.Date.Format("02/01/2006")),
				AssetCode: t.AssetCode,
				Date:      &d,
				Location:  location(t.Provenance),
			})
		}
	}
	for _, e := range events {
		if e.Date.IsZero() {
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityError,
				Message:   "Data inválida no evento",
				Details:   fmt.Sprintf("Ativo %s, Tipo %s", e.AssetCode, e.RawKind),
				AssetCode: e.AssetCode,
				Location:  location(e.Provenance),
			})
		} else if e.Date.After(endOfToday) {
			d := e.Date
			findings = append(findings, models.Inconsistency{
				Severity:  models.SeverityWarning,
				Message:   "Data futura no evento",
				Details:   fmt.Sprintf("Ativo %s, Tipo %s, Data %s", e.AssetCode, e.RawKind, e.Date.Format("02/01/2006")),
				AssetCode: e.AssetCode,
				Date:      &d,
				Location:  location(e.Provenance),
			})
		}
	}
	return findings
}

// checkMissingAssetCodes flags rows whose identifier is absent or normalizes
// to an empty key (the normalizer strips digits, so "1234" is as unusable as
// an empty string).
func (v *ConsistencyValidator) checkMissingAssetCodes(
	transactions []models.Transaction,
	events []models.CorporateEvent,
) []models.Inconsistency {
	var findings []models.Inconsistency
	for _, t := range transactions {
		if utils.AssetKey(t.AssetCode) == "" {
			d := t.Date
			findings = append(findings, models.Inconsistency{
				Severity: models.SeverityError,
				Message:  "Código do ativo ausente na transação",
				Details:  fmt.Sprintf("Data %s, Tipo %s", t.Date.Format("02/01/2006"), t.Direction),
				Date:     &d,
				Location: location(t.Provenance),
			})
		}
	}
	for _, e := range events {
		if utils.AssetKey(e.AssetCode) == "" {
			d := e.Date
			findings = append(findings, models.Inconsistency{
				Severity: models.SeverityError,
				Message:  "Código do ativo ausente no evento",
				Details:  fmt.Sprintf("Data %s, Tipo %s", e.Date.Format("02/01/2006"), e.RawKind),
				Date:     &d,
				Location: location(e.Provenance),
			})
		}
	}
	return findings
}

// balanceItem is one entry of the simplified per-asset quantity timeline.
type balanceItem struct {
	tx *models.Transaction
	ev *models.CorporateEvent
}

func (b balanceItem) date() time.Time {
	if b.tx != nil {
		return b.tx.Date
	}
	return b.ev.Date
}

// checkNegativeBalances replays buys, sells and quantity-affecting events per
// asset and flags any point where the running balance dips negative beyond
// tolerance. Factors come from the events themselves; no external lookups
// here, so the check stays pure.
func (v *ConsistencyValidator) checkNegativeBalances(
	transactions []models.Transaction,
	events []models.CorporateEvent,
) []models.Inconsistency {
	timelines := make(map[string][]balanceItem)
	for i := range transactions {
		t := &transactions[i]
		key := utils.AssetKey(t.AssetCode)
		if key == "" {
			continue
		}
		timelines[key] = append(timelines[key], balanceItem{tx: t})
	}
	for i := range events {
		e := &events[i]
		key := utils.AssetKey(e.AssetCode)
		if key == "" || !affectsQuantity(e) {
			continue
		}
		timelines[key] = append(timelines[key], balanceItem{ev: e})
	}

	var findings []models.Inconsistency
	var keys []string
	for k := range timelines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		timeline := timelines[key]
		sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].date().Before(timeline[j].date()) })

		quantity := 0.0
		for _, item := range timeline {
			before := quantity
			var assetCode, label string
			var itemQty float64
			var prov models.Provenance
			var date time.Time

			if item.tx != nil {
				t := item.tx
				assetCode, label, itemQty, prov, date = t.AssetCode, string(t.Direction), t.Quantity, t.Provenance, t.Date
				if t.Direction == models.DirectionBuy {
					quantity += t.Quantity
				} else {
					quantity -= t.Quantity
				}
			} else {
				e := item.ev
				assetCode, label, itemQty, prov, date = e.AssetCode, e.RawKind, e.Quantity, e.Provenance, e.Date
				switch {
				case e.Kind == models.EventKindStockDividend:
					quantity += e.Quantity
				case e.Kind == models.EventKindStockSplit:
					if e.Factor > 1 && before != 0 {
						quantity = before * e.Factor
					} else {
						logger.L.Warn("Desdobramento sem fator aplicável na validação de saldo",
							"asset", assetCode, "factor", e.Factor, "balance", before)
					}
				case e.Kind == models.EventKindReverseSplit:
					if e.Factor > 1 && before != 0 {
						quantity = before / e.Factor
					} else {
						logger.L.Warn("Grupamento sem fator aplicável na validação de saldo",
							"asset", assetCode, "factor", e.Factor, "balance", before)
					}
				case isAtualizacao(e.RawKind):
					quantity += e.Quantity
				case isFracao(e.RawKind):
					quantity -= e.Quantity
				}
				// Splits and reverse splits multiply/divide; round so float
				// residue does not masquerade as a negative balance.
				quantity = utils.RoundFloat(quantity, 4)
			}

			if quantity < -utils.Epsilon {
				d := date
				findings = append(findings, models.Inconsistency{
					Severity: models.SeverityWarning,
					Message:  "Saldo negativo detectado durante a validação",
					Details: fmt.Sprintf("Operação %q de %.4f %s em %s resultou em saldo %.4f. Verifique dados faltantes.",
						label, itemQty, assetCode, date.Format("02/01/2006"), quantity),
					AssetCode: assetCode,
					Date:      &d,
					Location:  location(prov),
				})
				// Balance is intentionally not reset: the size of the
				// discrepancy stays visible in subsequent findings.
			}
		}
	}
	return findings
}

func affectsQuantity(e *models.CorporateEvent) bool {
	switch e.Kind {
	case models.EventKindStockDividend, models.EventKindStockSplit, models.EventKindReverseSplit:
		return true
	case models.EventKindOther:
		return isAtualizacao(e.RawKind) || isFracao(e.RawKind)
	}
	return false
}
