package models

import "time"

// AssetCategory groups B3 instruments for tax purposes. Loss carryforward and
// tax rates are partitioned by category.
type AssetCategory string

const (
	CategoryStock     AssetCategory = "STOCK"     // Ações
	CategoryETF       AssetCategory = "ETF"       // ETFs
	CategoryFII       AssetCategory = "FII"       // Fundos Imobiliários
	CategoryBDR       AssetCategory = "BDR"       // BDRs
	CategoryOption    AssetCategory = "OPTION"    // Opções
	CategoryDebenture AssetCategory = "DEBENTURE" // Debêntures
	CategoryTreasury  AssetCategory = "TREASURY"  // Tesouro Direto
	CategoryOther     AssetCategory = "OTHER"
)

// MarketType is the B3 market a trade executed on.
type MarketType string

const (
	MarketSpot       MarketType = "SPOT"       // Mercado à vista
	MarketOptions    MarketType = "OPTIONS"    // Opções
	MarketTerm       MarketType = "TERM"       // Mercado a termo
	MarketFutures    MarketType = "FUTURES"    // Mercado futuro
	MarketFractional MarketType = "FRACTIONAL" // Mercado fracionário
	MarketDayTrade   MarketType = "DAY_TRADE"  // Day-trade (compensated and taxed separately)
	MarketOther      MarketType = "OTHER"
)

// TradeDirection is buy or sell.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// Provenance points back at the source file row a record came from, for
// diagnostics only. Zero value means unknown origin (e.g. manual entry).
type Provenance struct {
	FileName  string `json:"file_name,omitempty"`
	RowNumber int    `json:"row_number,omitempty"`
}

// Transaction is one buy or sell from a B3 negociação export.
// Immutable once parsed.
type Transaction struct {
	Date          time.Time      `json:"date"`
	Year          int            `json:"year"`
	Month         int            `json:"month"`
	Direction     TradeDirection `json:"direction"`
	MarketType    MarketType     `json:"market_type"`
	AssetCode     string         `json:"asset_code"`
	AssetName     string         `json:"asset_name"`
	Quantity      float64        `json:"quantity"`
	UnitPrice     float64        `json:"unit_price"`
	TotalValue    float64        `json:"total_value"`
	Fees          float64        `json:"fees"`
	Taxes         float64        `json:"taxes"` // IRRF withheld at source ("dedo-duro")
	NetValue      float64        `json:"net_value"`
	AssetCategory AssetCategory  `json:"asset_category"`
	BrokerName    string         `json:"broker_name"`
	BrokerCode    string         `json:"broker_code"`
	Provenance    Provenance     `json:"provenance,omitempty"`
}

// CorporateEvent is one row from a B3 movimentação export after
// classification. Kind is the closed classification; RawKind keeps the
// original broker text for the kinds that branch on it later.
type CorporateEvent struct {
	Date          time.Time     `json:"date"`
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	Kind          EventKind     `json:"kind"`
	RawKind       string        `json:"raw_kind"`
	AssetCode     string        `json:"asset_code"`
	AssetName     string        `json:"asset_name"`
	Quantity      float64       `json:"quantity"`
	UnitPrice     float64       `json:"unit_price"`
	TotalValue    float64       `json:"total_value"`
	Fees          float64       `json:"fees"`
	Taxes         float64       `json:"taxes"`
	NetValue      float64       `json:"net_value"`
	Factor        float64       `json:"factor,omitempty"` // split/reverse-split ratio when the export carries one
	AssetCategory AssetCategory `json:"asset_category"`
	BrokerName    string        `json:"broker_name"`
	BrokerCode    string        `json:"broker_code"`
	Provenance    Provenance    `json:"provenance,omitempty"`
}

// LotRecord is one buy/sell entry in a position's history, in timeline order.
type LotRecord struct {
	Date       time.Time      `json:"date"`
	Direction  TradeDirection `json:"direction"`
	Quantity   float64        `json:"quantity"`
	UnitPrice  float64        `json:"unit_price"`
	TotalValue float64        `json:"total_value"`
	Fees       float64        `json:"fees"`
	Taxes      float64        `json:"taxes"`
	NetValue   float64        `json:"net_value"`
}

// Position is the live per-asset aggregate owned by the position engine
// during a single run. TotalCost is kept as an independent running total
// rather than derived from AveragePrice on every step, to avoid compounding
// rounding drift.
type Position struct {
	AssetCode     string        `json:"asset_code"`
	AssetName     string        `json:"asset_name"`
	AssetCategory AssetCategory `json:"asset_category"`
	MarketType    MarketType    `json:"market_type"`
	Quantity      float64       `json:"quantity"`
	AveragePrice  float64       `json:"average_price"`
	TotalCost     float64       `json:"total_cost"`
	AcquisitionDate time.Time   `json:"acquisition_date"`
	LastUpdateDate  time.Time   `json:"last_update_date"`
	BrokerName    string        `json:"broker_name"`
	BrokerCode    string        `json:"broker_code"`
	CNPJ          string        `json:"cnpj,omitempty"`
	History       []LotRecord   `json:"history"`
	// PreviousYearQuantity is the quantity held at the end of the year before
	// the selected tax year, used by the declaration layer.
	PreviousYearQuantity float64 `json:"previous_year_quantity"`
}

// TradeResult is the realized outcome of one sale, FIFO-matched against
// prior buys. IsExempt is filled in by the monthly aggregator.
type TradeResult struct {
	AssetCode     string        `json:"asset_code"`
	AssetName     string        `json:"asset_name"`
	AssetCategory AssetCategory `json:"asset_category"`
	MarketType    MarketType    `json:"market_type"`
	Date          time.Time     `json:"date"`
	Month         int           `json:"month"`
	Year          int           `json:"year"`
	Quantity      float64       `json:"quantity"`
	PurchasePrice float64       `json:"purchase_price"` // effective FIFO unit cost
	PurchaseCost  float64       `json:"purchase_cost"`
	SalePrice     float64       `json:"sale_price"`
	SaleValue     float64       `json:"sale_value"` // gross
	Fees          float64       `json:"fees"`
	Taxes         float64       `json:"taxes"`
	ProfitOrLoss  float64       `json:"profit_or_loss"`
	IsExempt      bool          `json:"is_exempt"`
}

// MonthlyResult aggregates one (year, month, category) bucket after
// sequential loss compensation.
type MonthlyResult struct {
	Year            int           `json:"year"`
	Month           int           `json:"month"`
	AssetCategory   AssetCategory `json:"asset_category"`
	DayTrade        bool          `json:"day_trade"` // day-trade buckets compensate and tax separately
	TotalSalesValue float64       `json:"total_sales_value"`
	TotalProfit     float64       `json:"total_profit"`
	TotalLoss       float64       `json:"total_loss"` // absolute value
	NetResult       float64       `json:"net_result"`
	CompensatedLoss float64       `json:"compensated_loss"`
	TaxableProfit   float64       `json:"taxable_profit"`
	TaxRate         float64       `json:"tax_rate"`
	TaxDue          float64       `json:"tax_due"`
	TaxWithheld     float64       `json:"tax_withheld"`
	TaxToPay        float64       `json:"tax_to_pay"`
	RemainingLoss   float64       `json:"remaining_loss"`
	TradeResults    []TradeResult `json:"trade_results"`
}

// IncomeKind labels an IncomeRecord.
type IncomeKind string

const (
	IncomeDividend         IncomeKind = "Dividendos"
	IncomeInterestOnEquity IncomeKind = "Juros sobre Capital Próprio"
	IncomeFundIncome       IncomeKind = "Rendimentos"
)

// IncomeRecord is a cash distribution (dividend, JCP or fund income).
type IncomeRecord struct {
	AssetCode     string        `json:"asset_code"`
	AssetName     string        `json:"asset_name"`
	AssetCategory AssetCategory `json:"asset_category"`
	IncomeKind    IncomeKind    `json:"income_kind"`
	Date          time.Time     `json:"date"`
	Month         int           `json:"month"`
	Year          int           `json:"year"`
	GrossValue    float64       `json:"gross_value"`
	TaxWithheld   float64       `json:"tax_withheld"`
	NetValue      float64       `json:"net_value"`
	BrokerName    string        `json:"broker_name"`
	BrokerCode    string        `json:"broker_code"`
	CNPJ          string        `json:"cnpj,omitempty"`
}

// InconsistencySeverity distinguishes blocking data defects from warnings.
type InconsistencySeverity string

const (
	SeverityError   InconsistencySeverity = "error"
	SeverityWarning InconsistencySeverity = "warning"
)

// Inconsistency is a data-quality finding surfaced by the validator or
// collected as a diagnostic during a processing run. It never aborts a run;
// the caller decides whether error-severity findings block declaration
// generation.
type Inconsistency struct {
	Severity  InconsistencySeverity `json:"severity"`
	Message   string                `json:"message"`
	Details   string                `json:"details,omitempty"`
	AssetCode string                `json:"asset_code,omitempty"`
	Date      *time.Time            `json:"date,omitempty"`
	Location  string                `json:"location,omitempty"`
}

// ProcessedDataSummary is the bundle a processing run hands to the
// declaration/codec layer.
type ProcessedDataSummary struct {
	Positions      []Position      `json:"positions"`
	IncomeRecords  []IncomeRecord  `json:"income_records"`
	MonthlyResults []MonthlyResult `json:"monthly_results"`
}
