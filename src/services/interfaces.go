package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/declarab3/src/models"
)

// Common service errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRunNotFound     = errors.New("no processing run for session")
	ErrParsingFailed   = errors.New("csv parsing failed")
)

// ProcessingResult is what one engine run over a session produces.
type ProcessingResult struct {
	Positions       []models.Position       `json:"positions"`
	TradeResults    []models.TradeResult    `json:"trade_results"`
	MonthlyResults  []models.MonthlyResult  `json:"monthly_results"`
	IncomeRecords   []models.IncomeRecord   `json:"income_records"`
	Inconsistencies []models.Inconsistency  `json:"inconsistencies"`
}

// SessionStore persists sessions and their processing runs.
type SessionStore interface {
	CreateSession(ctx context.Context, name string, year int) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	AppendRows(ctx context.Context, id string, transactions []models.Transaction, events []models.CorporateEvent) error
	SaveRun(ctx context.Context, run *models.ProcessingRun) error
	LatestRun(ctx context.Context, sessionID string) (*models.ProcessingRun, error)
}

// EventInfoService resolves corporate-action details the broker exports
// omit: split/reverse-split factors and Atualização reference prices.
// The boolean reports whether a value was found; errors are reserved for
// lookup-mechanism failures, which callers treat as "not found".
type EventInfoService interface {
	GetFactor(ctx context.Context, assetKey string, kind models.EventKind, date time.Time) (float64, bool, error)
	GetReferencePrice(ctx context.Context, assetKey string, rawKind string, date time.Time) (float64, bool, error)
}

// TickerInfo labels a position for the declaration output.
type TickerInfo struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	CNPJ        string `json:"cnpj"`
}

// TickerInfoService resolves ticker to company name and CNPJ. A miss is
// (nil, nil): declaration lines simply stay unlabeled.
type TickerInfoService interface {
	Lookup(ctx context.Context, ticker string) (*TickerInfo, error)
}

// ProcessingService runs the full engine pipeline over a session.
type ProcessingService interface {
	Process(ctx context.Context, sessionID string, includeInitialPosition bool) (*ProcessingResult, error)
	Validate(ctx context.Context, sessionID string) ([]models.Inconsistency, error)
}
