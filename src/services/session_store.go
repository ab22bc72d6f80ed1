package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/username/declarab3/src/models"
)

// sqliteSessionStore persists sessions and processing runs. Row payloads
// (transactions, events) and run outputs are stored as JSON columns; the
// engine always consumes a whole session at once, so there is nothing to
// gain from normalizing them into per-row tables.
type sqliteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(db *sql.DB) SessionStore {
	return &sqliteSessionStore{db: db}
}

func (s *sqliteSessionStore) CreateSession(ctx context.Context, name string, year int) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Year:      year,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, year, created_at, updated_at, transactions, events)
		 VALUES (?, ?, ?, ?, ?, '[]', '[]')`,
		session.ID, session.Name, session.Year, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return session, nil
}

func (s *sqliteSessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	var txJSON, evJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, year, created_at, updated_at, transactions, events
		 FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.Name, &session.Year, &session.CreatedAt, &session.UpdatedAt, &txJSON, &evJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(txJSON), &session.Transactions); err != nil {
		return nil, fmt.Errorf("decoding session transactions: %w", err)
	}
	if err := json.Unmarshal([]byte(evJSON), &session.Events); err != nil {
		return nil, fmt.Errorf("decoding session events: %w", err)
	}
	return &session, nil
}

func (s *sqliteSessionStore) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, year, created_at, updated_at,
		        json_array_length(transactions), json_array_length(events)
		 FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var infos []models.SessionInfo
	for rows.Next() {
		var info models.SessionInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Year, &info.CreatedAt, &info.UpdatedAt,
			&info.TransactionCount, &info.EventCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *sqliteSessionStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendRows adds parsed rows to a session inside one transaction, so two
// concurrent uploads cannot clobber each other's append.
func (s *sqliteSessionStore) AppendRows(ctx context.Context, id string, transactions []models.Transaction, events []models.CorporateEvent) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer dbTx.Rollback()

	var txJSON, evJSON string
	err = dbTx.QueryRowContext(ctx,
		`SELECT transactions, events FROM sessions WHERE id = ?`, id).Scan(&txJSON, &evJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("querying session %s: %w", id, err)
	}

	var existingTx []models.Transaction
	var existingEv []models.CorporateEvent
	if err := json.Unmarshal([]byte(txJSON), &existingTx); err != nil {
		return fmt.Errorf("decoding session transactions: %w", err)
	}
	if err := json.Unmarshal([]byte(evJSON), &existingEv); err != nil {
		return fmt.Errorf("decoding session events: %w", err)
	}

	newTx, err := json.Marshal(append(existingTx, transactions...))
	if err != nil {
		return fmt.Errorf("encoding transactions: %w", err)
	}
	newEv, err := json.Marshal(append(existingEv, events...))
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE sessions SET transactions = ?, events = ?, updated_at = ? WHERE id = ?`,
		string(newTx), string(newEv), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	return dbTx.Commit()
}

func (s *sqliteSessionStore) SaveRun(ctx context.Context, run *models.ProcessingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}
	inconsistenciesJSON, err := json.Marshal(run.Inconsistencies)
	if err != nil {
		return fmt.Errorf("encoding run inconsistencies: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO processing_runs (id, session_id, year, include_initial_position, created_at, summary, inconsistencies)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Year, run.IncludeInitialPosition, run.CreatedAt,
		string(summaryJSON), string(inconsistenciesJSON))
	if err != nil {
		return fmt.Errorf("inserting processing run: %w", err)
	}
	return nil
}

func (s *sqliteSessionStore) LatestRun(ctx context.Context, sessionID string) (*models.ProcessingRun, error) {
	var run models.ProcessingRun
	var summaryJSON, inconsistenciesJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, year, include_initial_position, created_at, summary, inconsistencies
		 FROM processing_runs WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT 1`, sessionID).
		Scan(&run.ID, &run.SessionID, &run.Year, &run.IncludeInitialPosition, &run.CreatedAt,
			&summaryJSON, &inconsistenciesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run for session %s: %w", sessionID, err)
	}

	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, fmt.Errorf("decoding run summary: %w", err)
	}
	if err := json.Unmarshal([]byte(inconsistenciesJSON), &run.Inconsistencies); err != nil {
		return nil, fmt.Errorf("decoding run inconsistencies: %w", err)
	}
	return &run, nil
}
