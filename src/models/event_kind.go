package models

// EventKind is the closed classification of a B3 corporate-action description.
// Classification is total: every raw string maps to exactly one kind, with
// EventKindOther as the catch-all. Events classified as "other" keep the raw
// broker text on CorporateEvent.RawKind, because some behaviors (Atualização,
// Fração em Ativos) are distinguished only by that original string.
type EventKind string

const (
	EventKindStockDividend    EventKind = "stock-dividend"     // Bonificação em ações/ativos
	EventKindStockSplit       EventKind = "stock-split"        // Desdobramento / Desdobro
	EventKindReverseSplit     EventKind = "reverse-split"      // Grupamento
	EventKindDividend         EventKind = "dividend"           // Dividendos
	EventKindInterestOnEquity EventKind = "interest-on-equity" // Juros sobre Capital Próprio
	EventKindFundIncome       EventKind = "fund-income"        // Rendimento
	EventKindAmortization     EventKind = "amortization"       // Amortização
	EventKindAuction          EventKind = "auction"            // Leilão
	EventKindOther            EventKind = "other"              // Atualização, Fração em Ativos, unrecognized
)

// Raw B3 movement strings that still matter after an event lands in
// EventKindOther. Matching against them is done on the normalized
// (uppercased, accent-stripped) form of the original text.
const (
	RawKindAtualizacao  = "ATUALIZACAO"
	RawKindFracaoAtivos = "FRACAO EM ATIVOS"
)

// IsIncome reports whether the kind is one of the three cash-income kinds
// handled by the income extractor instead of the position engine.
func (k EventKind) IsIncome() bool {
	return k == EventKindDividend || k == EventKindInterestOnEquity || k == EventKindFundIncome
}

// AllowsZeroQuantity reports whether a zero event quantity is valid for the
// kind. Splits and cash-income events carry no share quantity of their own;
// quantity-bearing events (bonus shares, fractions) must be positive.
func (k EventKind) AllowsZeroQuantity() bool {
	switch k {
	case EventKindStockSplit, EventKindReverseSplit,
		EventKindDividend, EventKindInterestOnEquity, EventKindFundIncome:
		return true
	}
	return false
}
