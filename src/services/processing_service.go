package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/models"
	"github.com/username/declarab3/src/processors"
)

// processingService runs the full pipeline over a session: classify, validate,
// position engine, realized gains, monthly aggregation, income extraction.
// The run is persisted on the session before returning.
type processingService struct {
	store      SessionStore
	eventInfo  EventInfoService
	tickerInfo TickerInfoService
}

func NewProcessingService(store SessionStore, eventInfo EventInfoService, tickerInfo TickerInfoService) ProcessingService {
	return &processingService{
		store:      store,
		eventInfo:  eventInfo,
		tickerInfo: tickerInfo,
	}
}

func (s *processingService) Process(ctx context.Context, sessionID string, includeInitialPosition bool) (*ProcessingResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	started := time.Now()
	log.Info("iniciando processamento da sessão",
		"sessionID", session.ID, "year", session.Year,
		"transactions", len(session.Transactions), "events", len(session.Events))

	classifier := processors.NewEventClassifier()
	events := classifier.ClassifyAll(session.Events)

	diags := processors.NewDiagnostics()
	findings := processors.NewConsistencyValidator().Validate(session.Transactions, events)

	positionProcessor := processors.NewPositionProcessor(s.eventInfo)
	positions, err := positionProcessor.Process(ctx, session.Transactions, events, session.Year, includeInitialPosition, diags)
	if err != nil {
		return nil, fmt.Errorf("position engine: %w", err)
	}

	s.labelPositions(ctx, positions)

	tradeResults := processors.NewTradeResultProcessor().Process(positions, session.Year, diags)
	monthlyResults := processors.NewMonthlyProcessor().Process(tradeResults, session.Year)
	incomeRecords := processors.NewIncomeProcessor().Process(events, diags)

	result := &ProcessingResult{
		Positions:       positions,
		TradeResults:    tradeResults,
		MonthlyResults:  monthlyResults,
		IncomeRecords:   incomeRecords,
		Inconsistencies: append(findings, diags.Items()...),
	}

	run := &models.ProcessingRun{
		SessionID:              session.ID,
		Year:                   session.Year,
		IncludeInitialPosition: includeInitialPosition,
		Summary: models.ProcessedDataSummary{
			Positions:      positions,
			IncomeRecords:  incomeRecords,
			MonthlyResults: monthlyResults,
		},
		Inconsistencies: result.Inconsistencies,
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("persisting processing run: %w", err)
	}

	log.Info("processamento concluído",
		"sessionID", session.ID,
		"positions", len(positions),
		"tradeResults", len(tradeResults),
		"inconsistencies", len(result.Inconsistencies),
		"duration", time.Since(started))
	return result, nil
}

// Validate runs only the consistency checks, without touching the engine or
// persisting anything.
func (s *processingService) Validate(ctx context.Context, sessionID string) ([]models.Inconsistency, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events := processors.NewEventClassifier().ClassifyAll(session.Events)
	return processors.NewConsistencyValidator().Validate(session.Transactions, events), nil
}

// labelPositions fills company name and CNPJ where the registry knows the
// ticker. Lookup failures leave the position unlabeled.
func (s *processingService) labelPositions(ctx context.Context, positions []models.Position) {
	if s.tickerInfo == nil {
		return
	}
	for i := range positions {
		info, err := s.tickerInfo.Lookup(ctx, positions[i].AssetCode)
		if err != nil || info == nil {
			continue
		}
		positions[i].CNPJ = info.CNPJ
		if positions[i].AssetName == "" {
			positions[i].AssetName = info.CompanyName
		}
	}
}
