package saver

import (
	"context"

	"github.com/rs/zerolog"

	"callbook/internal/database"
)

// SQLStore commits confirmed reservations to the sqlite reservations
// table.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore wraps the database as a ConfirmedStore.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Commit(ctx context.Context, restaurantID string, fields map[string]any) error {
	return s.db.CreateReservation(ctx, restaurantID, fields)
}

// FanOutStore writes to a primary store and mirrors to a secondary one
// best-effort. A mirror failure is logged but never fails the commit:
// the primary is the system of record, the mirror exists for people who
// live in spreadsheets.
type FanOutStore struct {
	primary ConfirmedStore
	mirror  ConfirmedStore
	logger  zerolog.Logger
}

// NewFanOutStore combines a primary store with a best-effort mirror.
func NewFanOutStore(primary, mirror ConfirmedStore, logger zerolog.Logger) *FanOutStore {
	return &FanOutStore{
		primary: primary,
		mirror:  mirror,
		logger:  logger.With().Str("component", "fanout_store").Logger(),
	}
}

func (s *FanOutStore) Commit(ctx context.Context, restaurantID string, fields map[string]any) error {
	if err := s.primary.Commit(ctx, restaurantID, fields); err != nil {
		return err
	}
	if err := s.mirror.Commit(ctx, restaurantID, fields); err != nil {
		s.logger.Error().Err(err).Msg("mirror write failed")
	}
	return nil
}
