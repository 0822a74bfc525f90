package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"callbook/internal/database"
	"callbook/internal/models"
)

// SQLQueue is the relational pending-queue backend, stored in the
// pending_reservations table. The draft is kept as an opaque JSON
// document so the queue schema never has to track field changes.
//
// PopOldest is fetch-oldest-then-delete-by-id. There is no row lock
// between the two steps: the single-consumer assumption holds here.
type SQLQueue struct {
	db     *database.DB
	gate   Gate
	logger zerolog.Logger
}

// NewSQL returns a queue backed by the pending_reservations table.
func NewSQL(db *database.DB, gate Gate, logger zerolog.Logger) *SQLQueue {
	return &SQLQueue{
		db:     db,
		gate:   gate,
		logger: logger.With().Str("component", "sql_queue").Logger(),
	}
}

func (q *SQLQueue) Enqueue(ctx context.Context, fields map[string]any) (bool, error) {
	if !q.gate.Valid(fields) {
		return false, nil
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("marshal draft: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO pending_reservations (data, created_at) VALUES (?, ?)`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("enqueue draft: %w", err)
	}
	return true, nil
}

func (q *SQLQueue) ListAll(ctx context.Context) ([]models.Record, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, data, created_at FROM pending_reservations ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (q *SQLQueue) PeekOldest(ctx context.Context) (*models.Record, error) {
	return q.fetchOldest(ctx)
}

func (q *SQLQueue) PopOldest(ctx context.Context) (*models.Record, error) {
	rec, err := q.fetchOldest(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := q.Delete(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (q *SQLQueue) Delete(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pending %s: %w", id, err)
	}
	return nil
}

func (q *SQLQueue) Clear(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_reservations`)
	if err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

func (q *SQLQueue) fetchOldest(ctx context.Context) (*models.Record, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, data, created_at FROM pending_reservations ORDER BY created_at ASC, id ASC LIMIT 1`)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanRecord(scan func(...any) error) (*models.Record, error) {
	var (
		id      int64
		data    string
		created time.Time
	)
	if err := scan(&id, &data, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan pending record: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal pending record %d: %w", id, err)
	}

	return &models.Record{
		ID:          strconv.FormatInt(id, 10),
		Fields:      fields,
		CreatedTime: created,
	}, nil
}
