package models

import "time"

// Session is a named import workspace: the raw rows uploaded for one tax
// year, plus the latest processing run over them.
type Session struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Year         int              `json:"year"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Transactions []Transaction    `json:"transactions,omitempty"`
	Events       []CorporateEvent `json:"events,omitempty"`
}

// SessionInfo is the listing view of a session, without the row payloads.
type SessionInfo struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Year             int       `json:"year"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	TransactionCount int       `json:"transaction_count"`
	EventCount       int       `json:"event_count"`
}

// ProcessingRun is one persisted engine execution for a session.
type ProcessingRun struct {
	ID                     string               `json:"id"`
	SessionID              string               `json:"session_id"`
	Year                   int                  `json:"year"`
	IncludeInitialPosition bool                 `json:"include_initial_position"`
	CreatedAt              time.Time            `json:"created_at"`
	Summary                ProcessedDataSummary `json:"summary"`
	Inconsistencies        []Inconsistency      `json:"inconsistencies"`
}
