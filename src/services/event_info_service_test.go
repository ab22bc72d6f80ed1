package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestEventInfoKey(t *testing.T) {
	d := time.Date(2021, time.April, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "WEGE-desdobro-20210429", eventInfoKey("WEGE3", "Desdobro", d))
	assert.Equal(t, "WEGE-desdobro-20210429", eventInfoKey("wege3", "DESDOBRO", d))

	d2 := time.Date(2024, time.June, 27, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "MXRF-cessao-de-direitos---solicitada-20240627",
		eventInfoKey("MXRF12", "Cessão de Direitos - Solicitada", d2))
	assert.Equal(t, "BTHF-atualizacao-20241213",
		eventInfoKey("BTHF11", "Atualização", time.Date(2024, time.December, 13, 0, 0, 0, 0, time.UTC)))
}

func TestGetFactorExactDate(t *testing.T) {
	svc := NewStaticEventInfoService()

	factor, ok, err := svc.GetFactor(context.Background(), "WEGE",
		models.EventKindStockSplit, time.Date(2021, time.April, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2, factor, 1e-9)
}

func TestGetFactorWithinWindow(t *testing.T) {
	svc := NewStaticEventInfoService()

	// The export dates the split a week before the registry table does.
	factor, ok, err := svc.GetFactor(context.Background(), "GGRC",
		models.EventKindStockSplit, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10, factor, 1e-9)
}

func TestGetFactorOutsideWindow(t *testing.T) {
	svc := NewStaticEventInfoService()

	_, ok, err := svc.GetFactor(context.Background(), "WEGE",
		models.EventKindStockSplit, time.Date(2021, time.June, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetFactorNonSplitKind(t *testing.T) {
	svc := NewStaticEventInfoService()

	_, ok, err := svc.GetFactor(context.Background(), "WEGE",
		models.EventKindDividend, time.Date(2021, time.April, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetReferencePrice(t *testing.T) {
	svc := NewStaticEventInfoService()

	price, ok, err := svc.GetReferencePrice(context.Background(), "BTHF",
		"Atualização", time.Date(2024, time.December, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10.75165746, price, 1e-9)

	// Renames carry a zero reference price on purpose.
	price, ok, err = svc.GetReferencePrice(context.Background(), "ISAE",
		"Atualização", time.Date(2024, time.November, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, price)

	_, ok, err = svc.GetReferencePrice(context.Background(), "XPTO",
		"Atualização", time.Date(2024, time.December, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchWindowPrefersFutureOffset(t *testing.T) {
	table := map[string]float64{
		eventInfoKey("ABCD3", "Desdobro", time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC)): 2,
		eventInfoKey("ABCD3", "Desdobro", time.Date(2024, time.May, 8, 0, 0, 0, 0, time.UTC)):  3,
	}

	// Both entries sit 2 days away; the future one wins.
	v, offset, ok := searchWindow(table, "ABCD", "Desdobro",
		time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 2, offset)
	assert.InDelta(t, 2, v, 1e-9)
}
