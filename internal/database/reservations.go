package database

import (
	"context"
	"fmt"

	"callbook/internal/models"
	"callbook/internal/normalize"
)

// CreateReservation inserts a confirmed reservation built from a
// normalized field map. Status is always Confirmed here; pending drafts
// never touch this table.
func (db *DB) CreateReservation(ctx context.Context, restaurantID string, fields map[string]any) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO reservations
			(restaurant_id, guest_name, guest_phone, date, time, guests, special_requests, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		restaurantID,
		normalize.CleanText(fields[models.FieldGuestName]),
		normalize.CleanText(fields[models.FieldGuestPhone]),
		normalize.CleanText(fields[models.FieldDate]),
		normalize.CleanText(fields[models.FieldTime]),
		normalize.CleanGuests(fields[models.FieldGuests]),
		normalize.CleanText(fields[models.FieldSpecialRequests]),
		models.StatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// ListReservations returns confirmed reservations for a restaurant,
// newest first. An empty restaurantID returns all.
func (db *DB) ListReservations(ctx context.Context, restaurantID string) ([]models.Reservation, error) {
	query := `SELECT id, restaurant_id, guest_name, guest_phone, date, time, guests, special_requests, status, created_at
		  FROM reservations`
	args := []any{}
	if restaurantID != "" {
		query += ` WHERE restaurant_id = ?`
		args = append(args, restaurantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.RestaurantID, &r.GuestName, &r.GuestPhone,
			&r.Date, &r.Time, &r.Guests, &r.SpecialRequests, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountReservations returns the number of confirmed reservations for a
// restaurant.
func (db *DB) CountReservations(ctx context.Context, restaurantID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE restaurant_id = ?`, restaurantID,
	).Scan(&count)
	return count, err
}
