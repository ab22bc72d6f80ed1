package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/declarab3/src/models"
)

func findByMessage(findings []models.Inconsistency, message string) []models.Inconsistency {
	var out []models.Inconsistency
	for _, f := range findings {
		if f.Message == message {
			out = append(out, f)
		}
	}
	return out
}

func TestValidatorCleanInput(t *testing.T) {
	txs := []models.Transaction{
		buyTx("PETR4", day(2023, time.January, 15), 100, 25.50),
		sellTx("PETR4", day(2023, time.May, 5), 50, 30.00),
	}

	findings := NewConsistencyValidator().Validate(txs, nil)
	assert.Empty(t, findings)
}

func TestValidatorDuplicateTransactionsOneWarningPerCluster(t *testing.T) {
	t1 := buyTx("PETR4", day(2023, time.January, 15), 100, 25.50)
	t1.Provenance = models.Provenance{FileName: "negociacao-2023.csv", RowNumber: 4}
	t2 := t1
	t2.Provenance = models.Provenance{FileName: "negociacao-2023-reenvio.csv", RowNumber: 9}
	// Same day and asset but different quantity: not a duplicate.
	t3 := buyTx("PETR4", day(2023, time.January, 15), 200, 25.50)

	findings := NewConsistencyValidator().Validate([]models.Transaction{t1, t2, t3}, nil)

	dups := findByMessage(findings, "Transação duplicada detectada")
	require.Len(t, dups, 1)
	assert.Equal(t, models.SeverityWarning, dups[0].Severity)
	assert.Contains(t, dups[0].Location, "negociacao-2023.csv:L4")
	assert.Contains(t, dups[0].Location, "negociacao-2023-reenvio.csv:L9")
}

func TestValidatorInvalidQuantities(t *testing.T) {
	badTx := buyTx("PETR4", day(2023, time.January, 15), 0, 25.50)
	badEvent := models.CorporateEvent{
		Date:      day(2023, time.March, 1),
		Year:      2023,
		Kind:      models.EventKindStockDividend,
		RawKind:   "Bonificação em Ativos",
		AssetCode: "PETR4",
		Quantity:  0, // bonus shares must carry a quantity
	}
	// Splits legitimately carry no quantity.
	splitEvent := models.CorporateEvent{
		Date:      day(2023, time.April, 1),
		Year:      2023,
		Kind:      models.EventKindStockSplit,
		RawKind:   "Desdobro",
		AssetCode: "PETR4",
		Factor:    2,
	}

	findings := NewConsistencyValidator().Validate(
		[]models.Transaction{badTx},
		[]models.CorporateEvent{badEvent, splitEvent},
	)

	assert.Len(t, findByMessage(findings, "Quantidade inválida na transação"), 1)
	assert.Len(t, findByMessage(findings, "Quantidade inválida no evento"), 1)
}

func TestValidatorInvalidAndFutureDates(t *testing.T) {
	zeroDate := buyTx("PETR4", time.Time{}, 100, 25.50)
	future := buyTx("VALE3", time.Now().AddDate(1, 0, 0), 100, 60.00)
	future.Year = future.Date.Year()

	findings := NewConsistencyValidator().Validate([]models.Transaction{zeroDate, future}, nil)

	errors := findByMessage(findings, "Data inválida na transação")
	require.Len(t, errors, 1)
	assert.Equal(t, models.SeverityError, errors[0].Severity)

	warnings := findByMessage(findings, "Data futura na transação")
	require.Len(t, warnings, 1)
	assert.Equal(t, models.SeverityWarning, warnings[0].Severity)
}

func TestValidatorMissingAssetCodes(t *testing.T) {
	missing := buyTx("", day(2023, time.January, 15), 100, 25.50)
	// Digits-only codes normalize to an empty key and are equally unusable.
	digitsOnly := buyTx("1234", day(2023, time.January, 16), 100, 25.50)

	findings := NewConsistencyValidator().Validate([]models.Transaction{missing, digitsOnly}, nil)
	assert.Len(t, findByMessage(findings, "Código do ativo ausente na transação"), 2)
}

func TestValidatorNegativeBalance(t *testing.T) {
	txs := []models.Transaction{
		buyTx("PETR4", day(2023, time.January, 15), 100, 25.50),
		sellTx("PETR4", day(2023, time.May, 5), 150, 30.00),
	}

	findings := NewConsistencyValidator().Validate(txs, nil)

	warnings := findByMessage(findings, "Saldo negativo detectado durante a validação")
	require.Len(t, warnings, 1)
	assert.Equal(t, models.SeverityWarning, warnings[0].Severity)
	assert.Equal(t, "PETR4", warnings[0].AssetCode)
}

func TestValidatorNegativeBalanceConsidersEvents(t *testing.T) {
	txs := []models.Transaction{
		buyTx("WEGE3", day(2021, time.January, 4), 100, 35.00),
		// 200 shares only exist after the split doubles the balance.
		sellTx("WEGE3", day(2021, time.June, 1), 200, 20.00),
	}
	events := []models.CorporateEvent{{
		Date:      day(2021, time.April, 29),
		Year:      2021,
		Kind:      models.EventKindStockSplit,
		RawKind:   "Desdobro",
		AssetCode: "WEGE3",
		Factor:    2,
	}}

	findings := NewConsistencyValidator().Validate(txs, events)
	assert.Empty(t, findByMessage(findings, "Saldo negativo detectado durante a validação"))
}
