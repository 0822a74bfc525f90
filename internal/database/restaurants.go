package database

import (
	"context"
	"database/sql"
	"fmt"

	"callbook/internal/models"
	"callbook/internal/normalize"
)

// GetRestaurantByPhone looks up a restaurant by its dialed number.
// The number is reduced to digits before matching, since platforms
// report it in varying formats ("+1 (912) 737-0374" vs "19127370374").
// Returns nil when no restaurant matches.
func (db *DB) GetRestaurantByPhone(ctx context.Context, phoneNumber string) (*models.Restaurant, error) {
	digits := normalize.CleanPhone(phoneNumber)
	if digits == "" {
		return nil, nil
	}

	var r models.Restaurant
	err := db.QueryRowContext(ctx,
		`SELECT id, name, phone_number, created_at FROM restaurants WHERE phone_number = ?`,
		digits,
	).Scan(&r.ID, &r.Name, &r.PhoneNumber, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("restaurant by phone: %w", err)
	}
	return &r, nil
}

// GetRestaurantByID returns a restaurant by primary key, or nil.
func (db *DB) GetRestaurantByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	var r models.Restaurant
	err := db.QueryRowContext(ctx,
		`SELECT id, name, phone_number, created_at FROM restaurants WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Name, &r.PhoneNumber, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("restaurant by id: %w", err)
	}
	return &r, nil
}

// CreateRestaurant inserts a restaurant, normalizing its phone number
// to digits so webhook lookups match.
func (db *DB) CreateRestaurant(ctx context.Context, name, phoneNumber string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO restaurants (name, phone_number) VALUES (?, ?)`,
		name, normalize.CleanPhone(phoneNumber),
	)
	if err != nil {
		return 0, fmt.Errorf("insert restaurant: %w", err)
	}
	return res.LastInsertId()
}
