package processors

import (
	"time"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
)

// Diagnostics collects the data-quality findings a run produces while it
// degrades gracefully (clamped over-sells, missing factors, missing reference
// prices). Findings are mirrored to the structured log and returned alongside
// the primary result so behavior stays testable.
type Diagnostics struct {
	items []models.Inconsistency
}

func NewDiagnostics() *Diagnostics { return &Diagnostics{} }

func (d *Diagnostics) Warn(message, details, assetCode string, date time.Time) {
	d.add(models.SeverityWarning, message, details, assetCode, date)
	logger.L.Warn(message, "details", details, "asset", assetCode)
}

func (d *Diagnostics) Error(message, details, assetCode string, date time.Time) {
	d.add(models.SeverityError, message, details, assetCode, date)
	logger.L.Error(message, "details", details, "asset", assetCode)
}

func (d *Diagnostics) add(sev models.InconsistencySeverity, message, details, assetCode string, date time.Time) {
	inc := models.Inconsistency{
		Severity:  sev,
		Message:   message,
		Details:   details,
		AssetCode: assetCode,
	}
	if !date.IsZero() {
		t := date
		inc.Date = &t
	}
	d.items = append(d.items, inc)
}

// Items returns the collected findings in the order they were recorded.
func (d *Diagnostics) Items() []models.Inconsistency {
	return d.items
}
