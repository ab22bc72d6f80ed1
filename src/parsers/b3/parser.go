package b3

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/utils"
)

// B3Parser reads the two CSV exports from the B3 investor portal: the
// negociação report (trades) and the movimentação report (corporate events
// and cash distributions). Columns are located by header name, so column
// order changes between portal versions do not break parsing.
type B3Parser struct{}

func NewParser() *B3Parser {
	return &B3Parser{}
}

// fee columns of the negociação export. I.R.R.F. is counted both as a fee
// and as withheld tax, matching how the portal reports it.
var feeColumns = []string{
	"Taxa de Liquidação",
	"Taxa de Registro",
	"Taxa de Termo/Opções",
	"Taxa A.N.A.",
	"Emolumentos",
	"Taxa Operacional",
	"Execução",
	"Taxa de Custódia",
	"Impostos",
	"I.R.R.F.",
	"Outros",
}

var taxColumns = []string{
	"I.R.R.F.",
	"Impostos",
}

// ParseTrades reads a negociação CSV into transactions. Rows missing the
// trade date or the ticker are skipped; they are subtotal or blank lines.
func (p *B3Parser) ParseTrades(file io.Reader, fileName string) ([]models.Transaction, error) {
	rows, header, err := readCSV(file)
	if err != nil {
		return nil, fmt.Errorf("b3 parser: %w", err)
	}

	var transactions []models.Transaction
	for i, row := range rows {
		get := func(col string) string { return cell(row, header, col) }
		// Row 1 is the header, so data rows start at 2.
		rowNumber := i + 2

		dateStr := get("Data do Negócio")
		codeRaw := get("Código de Negociação")
		if dateStr == "" || codeRaw == "" {
			continue
		}

		date, err := parseDate(dateStr)
		if err != nil {
			logger.L.Warn("linha de negociação ignorada por data inválida",
				"file", fileName, "row", rowNumber, "date", dateStr)
			continue
		}

		direction := parseDirection(firstNonEmpty(
			get("Compra/Venda"), get("Tipo de Movimentação"), get("Tipo")))
		marketType := parseMarketType(get("Mercado"))
		assetCode := normalizeTicker(codeRaw)
		quantity := parseNumber(get("Quantidade"))
		unitPrice := parseNumber(firstNonEmpty(get("Preço"), get("Preço (R$)")))
		totalValue := parseNumber(firstNonEmpty(get("Valor"), get("Valor Total (R$)")))

		var fees, taxes float64
		for _, col := range feeColumns {
			fees += parseNumber(get(col))
		}
		for _, col := range taxColumns {
			taxes += parseNumber(get(col))
		}

		netValue := totalValue - fees - taxes
		if direction == models.DirectionBuy {
			netValue = totalValue + fees + taxes
		}

		transactions = append(transactions, models.Transaction{
			Date:          date,
			Year:          date.Year(),
			Month:         int(date.Month()),
			Direction:     direction,
			MarketType:    marketType,
			AssetCode:     assetCode,
			AssetName:     firstNonEmpty(get("Especificação do Ativo"), assetCode),
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			TotalValue:    totalValue,
			Fees:          fees,
			Taxes:         taxes,
			NetValue:      netValue,
			AssetCategory: inferCategory(assetCode, marketType),
			BrokerName:    firstNonEmpty(get("Instituição"), "B3"),
			BrokerCode:    get("Código da Instituição"),
			Provenance:    models.Provenance{FileName: fileName, RowNumber: rowNumber},
		})
	}
	return transactions, nil
}

// ParseEvents reads a movimentação CSV into corporate events. Classification
// of the free-text kind happens downstream; RawKind keeps the portal text.
func (p *B3Parser) ParseEvents(file io.Reader, fileName string) ([]models.CorporateEvent, error) {
	rows, header, err := readCSV(file)
	if err != nil {
		return nil, fmt.Errorf("b3 parser: %w", err)
	}

	var events []models.CorporateEvent
	for i, row := range rows {
		get := func(col string) string { return cell(row, header, col) }
		rowNumber := i + 2

		dateStr := get("Data")
		product := get("Produto")
		if dateStr == "" || product == "" {
			continue
		}

		date, err := parseDate(dateStr)
		if err != nil {
			logger.L.Warn("linha de movimentação ignorada por data inválida",
				"file", fileName, "row", rowNumber, "date", dateStr)
			continue
		}

		assetCode := normalizeTicker(product)
		quantity := parseNumber(get("Quantidade"))
		unitPrice := parseNumber(firstNonEmpty(get("Preço unitário"), get("Preço Unitário")))
		totalValue := parseNumber(get("Valor da Operação"))
		fees := parseNumber(get("Taxa"))
		taxes := parseNumber(get("Imposto"))

		events = append(events, models.CorporateEvent{
			Date:          date,
			Year:          date.Year(),
			Month:         int(date.Month()),
			RawKind:       get("Movimentação"),
			AssetCode:     assetCode,
			AssetName:     firstNonEmpty(get("Descrição"), assetCode),
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			TotalValue:    totalValue,
			Fees:          fees,
			Taxes:         taxes,
			NetValue:      totalValue - fees - taxes,
			AssetCategory: inferCategory(assetCode, models.MarketSpot),
			BrokerName:    firstNonEmpty(get("Instituição"), "B3"),
			BrokerCode:    get("Código da Instituição"),
			Provenance:    models.Provenance{FileName: fileName, RowNumber: rowNumber},
		})
	}
	return events, nil
}

func readCSV(file io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header := make(map[string]int, len(headerRow))
	for idx, name := range headerRow {
		header[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = idx
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return rows, header, nil
}

func cell(row []string, header map[string]int, col string) string {
	idx, ok := header[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var dateLayouts = []string{utils.B3DateFormat, "02-01-2006", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("formato de data inválido: %s", s)
}

func parseDirection(s string) models.TradeDirection {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	switch normalized {
	case "C", "COMPRA", "B", "BUY":
		return models.DirectionBuy
	case "V", "VENDA", "S", "SELL":
		return models.DirectionSell
	}
	if strings.Contains(normalized, "COMPRA") {
		return models.DirectionBuy
	}
	if strings.Contains(normalized, "VENDA") {
		return models.DirectionSell
	}
	return models.DirectionBuy
}

func parseMarketType(s string) models.MarketType {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(normalized, "DAY TRADE") || strings.Contains(normalized, "DAY-TRADE"):
		return models.MarketDayTrade
	case strings.Contains(normalized, "VISTA"):
		return models.MarketSpot
	case strings.Contains(normalized, "OPÇÃO") || strings.Contains(normalized, "OPCAO") || strings.Contains(normalized, "OPTION"):
		return models.MarketOptions
	case strings.Contains(normalized, "TERMO") || strings.Contains(normalized, "TERM"):
		return models.MarketTerm
	case strings.Contains(normalized, "FUTURO") || strings.Contains(normalized, "FUTURE"):
		return models.MarketFutures
	case strings.Contains(normalized, "FRACIONÁRIO") || strings.Contains(normalized, "FRACIONARIO"):
		return models.MarketFractional
	}
	return models.MarketSpot
}

// normalizeTicker extracts the ticker from the portal's product column
// ("ITSA4F - ITAUSA S/A" becomes "ITSA4") and folds the fractional-market
// suffix so ITSA4 and ITSA4F accumulate on the same position.
func normalizeTicker(product string) string {
	ticker, _, _ := strings.Cut(product, " - ")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.HasSuffix(ticker, "F") {
		ticker = ticker[:len(ticker)-1]
	}
	return ticker
}

// parseNumber reads the portal's number formats: "1.234,56", "1234.56" and
// plain integers, with "R$" prefixes and stray text stripped.
func parseNumber(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return 0
	}

	commaIdx := strings.LastIndex(cleaned, ",")
	dotIdx := strings.LastIndex(cleaned, ".")
	if commaIdx > dotIdx {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

func inferCategory(assetCode string, marketType models.MarketType) models.AssetCategory {
	if assetCode == "" {
		return models.CategoryOther
	}
	switch {
	case marketType == models.MarketOptions:
		return models.CategoryOption
	case strings.HasSuffix(assetCode, "11") || strings.Contains(assetCode, "FII"):
		return models.CategoryFII
	case strings.HasSuffix(assetCode, "11B") || strings.Contains(assetCode, "ETF"):
		return models.CategoryETF
	case strings.HasSuffix(assetCode, "34"):
		return models.CategoryBDR
	case strings.Contains(assetCode, "DEB"):
		return models.CategoryDebenture
	}
	return models.CategoryStock
}
