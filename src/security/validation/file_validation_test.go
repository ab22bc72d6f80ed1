package validation

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/declarab3/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("text/csv"))
	assert.NoError(t, ValidateClientContentType("text/plain"))
	assert.NoError(t, ValidateClientContentType("application/vnd.ms-excel"))

	assert.Error(t, ValidateClientContentType("application/pdf"))
	assert.Error(t, ValidateClientContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.Error(t, ValidateClientContentType(""))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csv := strings.NewReader("Data do Negócio,Código de Negociação\n15/01/2023,PETR4\n")
	detected, err := ValidateFileContentByMagicBytes(csv)
	require.NoError(t, err)
	assert.Contains(t, []string{"text/plain", "text/csv"}, detected)

	// Read pointer must be back at the start for the parser.
	pos, err := csv.Seek(0, 1)
	require.NoError(t, err)
	assert.Zero(t, pos)

	_, err = ValidateFileContentByMagicBytes(strings.NewReader("PK\x03\x04\x00binario"))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.Error(t, err)
}

func TestValidateSessionName(t *testing.T) {
	assert.NoError(t, ValidateSessionName("IRPF 2025"))
	assert.ErrorIs(t, ValidateSessionName("   "), ErrValidationFailed)
	assert.ErrorIs(t, ValidateSessionName(strings.Repeat("a", MaxSessionNameLength+1)), ErrValidationFailed)
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "IRPF 2025", StripUnprintable("IRPF 2025\x00"))
	assert.Equal(t, "linha1\nlinha2", StripUnprintable("linha1\nlinha2"))
	assert.Equal(t, "declaração", StripUnprintable("declara\x07ção"))
}
