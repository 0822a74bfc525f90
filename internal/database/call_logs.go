package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"callbook/internal/models"
)

// LogCall records the outcome of an inbound call. Best-effort: callers
// log the error and move on, a lost call log never blocks a reservation.
func (db *DB) LogCall(ctx context.Context, log *models.CallLog) error {
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var restaurantID any
	if log.RestaurantID != 0 {
		restaurantID = log.RestaurantID
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO call_logs (restaurant_id, call_uuid, intent, outcome, agent_summary, recording_url, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		restaurantID, log.CallUUID, log.Intent, log.Outcome, log.AgentSummary, log.RecordingURL, ts,
	)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// CallLogsByRestaurant returns all call logs for a restaurant, newest first.
func (db *DB) CallLogsByRestaurant(ctx context.Context, restaurantID int64) ([]models.CallLog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, COALESCE(restaurant_id, 0), call_uuid, intent, outcome, agent_summary, recording_url, timestamp
		 FROM call_logs WHERE restaurant_id = ? ORDER BY timestamp DESC`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	var out []models.CallLog
	for rows.Next() {
		var l models.CallLog
		if err := rows.Scan(&l.ID, &l.RestaurantID, &l.CallUUID, &l.Intent,
			&l.Outcome, &l.AgentSummary, &l.RecordingURL, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountCallLogs returns the total number of calls logged for a restaurant.
func (db *DB) CountCallLogs(ctx context.Context, restaurantID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM call_logs WHERE restaurant_id = ?`, restaurantID,
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return count, nil
}
