package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists the dispatch history.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Complete(ctx context.Context, rec *Record) error
	// Recent returns the newest records first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// ErrRecordNotFound is returned when completing a record that was never created.
var ErrRecordNotFound = errors.New("dispatch: record not found")

const (
	// timeLayout has fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000Z07:00"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// SQLiteRepository implements Repository using SQLite.
//
// Handles restart at 1 with every process, so each repository writes under
// its own run ID and Recent spans all runs.
type SQLiteRepository struct {
	db    *sql.DB
	runID string
}

// NewSQLiteRepository creates a repository writing under runID.
func NewSQLiteRepository(db *sql.DB, runID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, runID: runID}
}

// Create inserts a running dispatch.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	actuators, err := json.Marshal(rec.Actuators)
	if err != nil {
		return fmt.Errorf("marshalling actuators: %w", err)
	}

	query := `
		INSERT INTO dispatches (
			run_id, handle, request_id, mode, actuators, requested_ms,
			state, error, started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		r.runID,
		int64(rec.Handle), //nolint:gosec // G115: handles stay far below MaxInt64
		nullableString(rec.RequestID),
		string(rec.Mode),
		string(actuators),
		rec.RequestedMS,
		string(rec.State),
		nullableString(rec.Error),
		rec.StartedAt.UTC().Format(timeLayout),
		nullableTime(rec.CompletedAt),
		nullableInt(rec.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch: %w", err)
	}
	return nil
}

// Complete stores the final state of a dispatch.
func (r *SQLiteRepository) Complete(ctx context.Context, rec *Record) error {
	query := `
		UPDATE dispatches SET state = ?, error = ?, completed_at = ?, duration_ms = ?
		WHERE run_id = ? AND handle = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(rec.State),
		nullableString(rec.Error),
		nullableTime(rec.CompletedAt),
		nullableInt(rec.DurationMS),
		r.runID,
		int64(rec.Handle), //nolint:gosec // G115: see Create
	)
	if err != nil {
		return fmt.Errorf("updating dispatch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	query := `
		SELECT handle, request_id, mode, actuators, requested_ms,
			state, error, started_at, completed_at, duration_ms
		FROM dispatches
		ORDER BY started_at DESC, handle DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dispatches: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning dispatch: %w", scanErr)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatches: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var handle int64
	var mode, actuators, state, startedAt string
	var requestID, errMsg, completedAt sql.NullString
	var durationMS sql.NullInt64

	err := rows.Scan(
		&handle,
		&requestID,
		&mode,
		&actuators,
		&rec.RequestedMS,
		&state,
		&errMsg,
		&startedAt,
		&completedAt,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	rec.Handle = uint64(handle) //nolint:gosec // G115: stored from a uint64
	rec.RequestID = requestID.String
	rec.Mode = Mode(mode)
	rec.State = State(state)
	rec.Error = errMsg.String

	if t, parseErr := time.Parse(timeLayout, startedAt); parseErr == nil {
		rec.StartedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(timeLayout, completedAt.String); parseErr == nil {
			rec.CompletedAt = &t
		}
	}
	if durationMS.Valid {
		d := durationMS.Int64
		rec.DurationMS = &d
	}
	if err := json.Unmarshal([]byte(actuators), &rec.Actuators); err != nil {
		return nil, fmt.Errorf("unmarshalling actuators: %w", err)
	}
	return &rec, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func nullableInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
