package processors

import (
	"strings"
	"unicode"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EventClassifier maps the free-text movement descriptions of B3 exports
// (Portuguese, inconsistently capitalized and accented) onto the closed
// models.EventKind set. Classification is total: unrecognized strings land in
// EventKindOther and are logged, never rejected.
type EventClassifier struct{}

func NewEventClassifier() *EventClassifier { return &EventClassifier{} }

// NormalizeEventText uppercases, trims and strips diacritics from a raw
// movement description, so keyword matching is accent- and case-insensitive
// ("Bonificação em ações" -> "BONIFICACAO EM ACOES").
func NormalizeEventText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// Classify maps one raw description to its EventKind.
// Keyword order matters: "JUROS SOBRE CAPITAL" must win over the bare
// substring checks below it.
func (c *EventClassifier) Classify(raw string) models.EventKind {
	n := NormalizeEventText(raw)
	switch {
	case strings.Contains(n, "BONIFICAC"):
		return models.EventKindStockDividend
	case strings.Contains(n, "DESDOBR"):
		return models.EventKindStockSplit
	case strings.Contains(n, "GRUPAMENTO"):
		return models.EventKindReverseSplit
	case strings.Contains(n, "JUROS SOBRE CAPITAL"):
		return models.EventKindInterestOnEquity
	case strings.Contains(n, "DIVIDENDO"):
		return models.EventKindDividend
	case strings.Contains(n, "RENDIMENTO"):
		return models.EventKindFundIncome
	case strings.Contains(n, "AMORTIZAC"):
		return models.EventKindAmortization
	case strings.Contains(n, "LEILAO"):
		return models.EventKindAuction
	default:
		logger.L.Debug("Unrecognized event description classified as other", "raw", raw)
		return models.EventKindOther
	}
}

// ClassifyAll returns a copy of events with Kind filled from RawKind.
// Events that already carry a non-empty Kind are left untouched, so callers
// can re-run classification idempotently.
func (c *EventClassifier) ClassifyAll(events []models.CorporateEvent) []models.CorporateEvent {
	out := make([]models.CorporateEvent, len(events))
	copy(out, events)
	for i := range out {
		if out[i].Kind == "" {
			out[i].Kind = c.Classify(out[i].RawKind)
		}
	}
	return out
}

// isAtualizacao and isFracao detect the two "other"-kind movements that still
// mutate positions, by their original text.
func isAtualizacao(rawKind string) bool {
	return strings.Contains(NormalizeEventText(rawKind), models.RawKindAtualizacao)
}

func isFracao(rawKind string) bool {
	return strings.Contains(NormalizeEventText(rawKind), models.RawKindFracaoAtivos)
}
