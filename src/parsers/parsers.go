package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/parsers/b3"
)

// Parser converts uploaded broker exports into domain rows. ParseTrades
// handles the negociação export, ParseEvents the movimentação export.
type Parser interface {
	ParseTrades(file io.Reader, fileName string) ([]models.Transaction, error)
	ParseEvents(file io.Reader, fileName string) ([]models.CorporateEvent, error)
}

// GetParser returns the parser registered for a source identifier.
func GetParser(source string) (Parser, error) {
	switch strings.ToLower(source) {
	case "b3", "":
		return b3.NewParser(), nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", source)
	}
}
