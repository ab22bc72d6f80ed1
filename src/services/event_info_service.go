package services

import (
	"context"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
)

// eventInfoWindowDays is how far around the event date the static tables are
// searched. B3 exports and the registry sources the tables were built from
// frequently disagree on the effective date by a few days.
const eventInfoWindowDays = 20

// staticEventInfoService serves split factors and special-event reference
// prices from built-in tables. Data sourced from public corporate-action
// registries; it is static and needs manual updates.
type staticEventInfoService struct {
	factors map[string]float64
	prices  map[string]float64
}

func NewStaticEventInfoService() EventInfoService {
	s := &staticEventInfoService{
		factors: make(map[string]float64),
		prices:  make(map[string]float64),
	}

	addFactor := func(ticker, eventType string, y int, m time.Month, d int, factor float64) {
		s.factors[eventInfoKey(ticker, eventType, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))] = factor
	}
	addFactor("WEGE3", "Desdobro", 2021, time.April, 29, 2)    // 2 para 1
	addFactor("VINO11", "Desdobro", 2023, time.August, 8, 5)   // 5 para 1
	addFactor("GGRC11", "Desdobro", 2024, time.March, 7, 10)   // 10 para 1
	addFactor("BCFF11", "Desdobro", 2023, time.November, 30, 8) // 8 para 1
	addFactor("BBAS3", "Desdobro", 2024, time.April, 17, 2)    // 2 para 1

	addPrice := func(ticker, eventType string, y int, m time.Month, d int, price float64) {
		s.prices[eventInfoKey(ticker, eventType, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))] = price
	}
	// Atualização (zero quando o evento só renomeia o ativo)
	addPrice("BTHF11", "Atualização", 2024, time.December, 13, 10.75165746)
	addPrice("BCFF11", "Atualização", 2024, time.December, 13, 0) // mudou para BTHF
	addPrice("ISAE4", "Atualização", 2024, time.November, 19, 0)  // apenas renomeou de TRPL
	addPrice("TRBL11", "Atualização", 2023, time.July, 5, 0)      // apenas renomeou de SDIL

	// Direito de Subscrição
	addPrice("ITSA2", "Direito de Subscrição", 2023, time.August, 21, 6.70)
	addPrice("ITSA2", "Direito de Subscrição", 2025, time.February, 19, 6.70)

	// Cessão de Direitos - Solicitada
	addPrice("HFOF12", "Cessão de Direitos - Solicitada", 2025, time.January, 21, 70.13)
	addPrice("GGRC12", "Cessão de Direitos - Solicitada", 2024, time.October, 3, 11.31)
	addPrice("MXRF12", "Cessão de Direitos - Solicitada", 2024, time.June, 27, 10.07)
	addPrice("HSML12", "Cessão de Direitos - Solicitada", 2024, time.June, 4, 97.76)
	addPrice("GGRC12", "Cessão de Direitos - Solicitada", 2024, time.April, 25, 11.25)
	addPrice("HSML12", "Cessão de Direitos - Solicitada", 2024, time.January, 18, 94.34)
	addPrice("MXRF12", "Cessão de Direitos - Solicitada", 2023, time.December, 12, 10.29)
	addPrice("VISC12", "Cessão de Direitos - Solicitada", 2023, time.November, 29, 117.47)
	addPrice("TRBL12", "Cessão de Direitos - Solicitada", 2023, time.November, 24, 97.84)
	addPrice("GGRC12", "Cessão de Direitos - Solicitada", 2023, time.September, 1, 115.50)
	addPrice("HFOF12", "Cessão de Direitos - Solicitada", 2023, time.August, 31, 83.91)
	addPrice("MXRF12", "Cessão de Direitos - Solicitada", 2023, time.July, 11, 10.36)
	addPrice("HFOF12", "Cessão de Direitos - Solicitada", 2023, time.May, 8, 75.33)
	addPrice("GGRC12", "Cessão de Direitos - Solicitada", 2022, time.December, 1, 114.50)
	addPrice("HFOF12", "Cessão de Direitos - Solicitada", 2022, time.November, 1, 86.97)
	addPrice("VISC12", "Cessão de Direitos - Solicitada", 2022, time.October, 19, 115.76)
	addPrice("VINO12", "Cessão de Direitos - Solicitada", 2022, time.January, 14, 55.14)
	addPrice("GGRC12", "Cessão de Direitos - Solicitada", 2021, time.October, 28, 110.00)
	addPrice("BCFF12", "Cessão de Direitos - Solicitada", 2021, time.March, 31, 84.39)

	return s
}

func (s *staticEventInfoService) GetFactor(ctx context.Context, assetKey string, kind models.EventKind, date time.Time) (float64, bool, error) {
	eventType := factorEventType(kind)
	if eventType == "" {
		return 0, false, nil
	}
	factor, offset, ok := searchWindow(s.factors, assetKey, eventType, date)
	if !ok {
		logger.L.Warn("fator de evento não encontrado na tabela estática",
			"asset", assetKey, "kind", kind, "date", date.Format("2006-01-02"))
		return 0, false, nil
	}
	logger.L.Debug("fator de evento encontrado",
		"asset", assetKey, "kind", kind, "factor", factor, "dayOffset", offset)
	return factor, true, nil
}

func (s *staticEventInfoService) GetReferencePrice(ctx context.Context, assetKey string, rawKind string, date time.Time) (float64, bool, error) {
	price, offset, ok := searchWindow(s.prices, assetKey, rawKind, date)
	if !ok {
		logger.L.Warn("preço de referência não encontrado na tabela estática",
			"asset", assetKey, "kind", rawKind, "date", date.Format("2006-01-02"))
		return 0, false, nil
	}
	logger.L.Debug("preço de referência encontrado",
		"asset", assetKey, "kind", rawKind, "price", price, "dayOffset", offset)
	return price, true, nil
}

func factorEventType(kind models.EventKind) string {
	switch kind {
	case models.EventKindStockSplit:
		return "Desdobro"
	case models.EventKindReverseSplit:
		return "Grupamento"
	}
	return ""
}

// searchWindow tries the exact date first, then widens day by day up to
// eventInfoWindowDays, checking the future date before the past one at each
// offset. Returns the signed day offset of the hit.
func searchWindow(table map[string]float64, ticker, eventType string, date time.Time) (float64, int, bool) {
	if v, ok := table[eventInfoKey(ticker, eventType, date)]; ok {
		return v, 0, true
	}
	for offset := 1; offset <= eventInfoWindowDays; offset++ {
		if v, ok := table[eventInfoKey(ticker, eventType, date.AddDate(0, 0, offset))]; ok {
			return v, offset, true
		}
		if v, ok := table[eventInfoKey(ticker, eventType, date.AddDate(0, 0, -offset))]; ok {
			return v, -offset, true
		}
	}
	return 0, 0, false
}

// eventInfoKey builds "TICKER-eventtype-YYYYMMDD": ticker uppercased with
// digits removed, event type lowercased with accents stripped and spaces
// collapsed to hyphens.
func eventInfoKey(ticker, eventType string, date time.Time) string {
	var tb strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(ticker)) {
		if r < '0' || r > '9' {
			tb.WriteRune(r)
		}
	}

	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripAccents, eventType)
	if err != nil {
		stripped = eventType
	}
	kindToken := strings.Join(strings.Fields(strings.ToLower(stripped)), "-")

	return tb.String() + "-" + kindToken + "-" + date.Format("20060102")
}
