package processors

import (
	"context"
	"time"

	"github.com/username/declarab3/src/models"
)

// EventInfoResolver supplies the corporate-action data the position engine
// cannot derive locally: split/reverse-split factors and per-event reference
// prices. Calls may block (the production implementation can go over HTTP)
// and are made synchronously inside the timeline loop; any error is treated
// by the engine as "not found", never as a fatal abort.
type EventInfoResolver interface {
	// GetFactor returns the multiplicative factor for a split or reverse
	// split of assetKey around date. ok is false when no factor is known.
	GetFactor(ctx context.Context, assetKey string, kind models.EventKind, date time.Time) (factor float64, ok bool, err error)

	// GetReferencePrice returns the reference average price for an event
	// identified by its original broker text (e.g. "Atualização").
	GetReferencePrice(ctx context.Context, assetKey string, rawKind string, date time.Time) (price float64, ok bool, err error)
}
