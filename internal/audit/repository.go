// Package audit persists the command log: one row per command received
// by a processor, with the register writes it produced and its outcome.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-modbus/internal/command"
	"github.com/nerrad567/gray-logic-modbus/internal/register"
)

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a single command log row.
type Entry struct {
	ID          string           `json:"id"`
	ProcessorID string           `json:"processor_id"`
	Instance    int              `json:"instance"`
	Topic       string           `json:"topic"`
	Payload     string           `json:"payload"`
	Value       *float64         `json:"value,omitempty"`
	Status      command.Status   `json:"status"`
	Writes      []register.Write `json:"writes"`
	Completed   int              `json:"completed"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Filter controls which entries to return.
type Filter struct {
	ProcessorID string         // optional: filter by processor
	Status      command.Status // optional: filter by outcome
	Limit       int            // default 50, max 200
	Offset      int            // pagination offset
}

// ListResult contains the paginated command log results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for command log operations.
type Repository interface {
	RecordCommand(ctx context.Context, rec command.Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the command log in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new command log repository.
// The command_log table must exist (see the migrations package).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordCommand implements command.Recorder.
func (r *SQLiteRepository) RecordCommand(ctx context.Context, rec command.Record) error {
	createdAt := rec.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	writes := rec.Writes
	if writes == nil {
		writes = []register.Write{}
	}
	writesJSON, err := json.Marshal(writes)
	if err != nil {
		return fmt.Errorf("marshalling register writes: %w", err)
	}

	var value any
	if rec.Status != command.StatusInvalid {
		value = rec.Value
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO command_log (id, processor_id, instance, topic, payload, value, status, writes, completed, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"cmd-"+uuid.NewString(),
		rec.ProcessorID, rec.Instance, rec.Topic, rec.Payload,
		value, string(rec.Status), string(writesJSON), rec.Completed,
		nullableString(rec.Error),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.ProcessorID != "" {
		conditions = append(conditions, "processor_id = ?")
		args = append(args, filter.ProcessorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM command_log " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := "SELECT id, processor_id, instance, topic, payload, value, status, writes, completed, error, created_at " +
		"FROM command_log " + where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		value      sql.NullFloat64
		status     string
		writesJSON string
		errText    sql.NullString
		createdAt  string
	)
	if err := rows.Scan(&e.ID, &e.ProcessorID, &e.Instance, &e.Topic, &e.Payload,
		&value, &status, &writesJSON, &e.Completed, &errText, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning command log entry: %w", err)
	}

	e.Status = command.Status(status)
	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	if errText.Valid {
		e.Error = errText.String
	}
	if err := json.Unmarshal([]byte(writesJSON), &e.Writes); err != nil {
		return Entry{}, fmt.Errorf("decoding register writes of %s: %w", e.ID, err)
	}
	if e.Writes == nil {
		e.Writes = []register.Write{}
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing command log timestamp %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}
