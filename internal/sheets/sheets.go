// Package sheets mirrors confirmed reservations into a Google
// Spreadsheet, one appended row per reservation. The spreadsheet is a
// read-only convenience for restaurant staff; sqlite stays the system
// of record.
package sheets

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"callbook/internal/models"
	"callbook/internal/normalize"
)

// appendRange targets the reservations sheet; Append finds the first
// empty row itself.
const appendRange = "Reservations!A:H"

// Service appends reservation rows to a spreadsheet. Writes go through
// a rate limiter to stay under the Sheets API per-minute quota.
type Service struct {
	svc           *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	logger        zerolog.Logger
}

// NewService builds a Sheets client from a service-account credentials
// file. ratePerSecond bounds append calls; 1/s is plenty for a queue
// drained one draft at a time.
func NewService(ctx context.Context, credentialsFile, spreadsheetID string, ratePerSecond float64, logger zerolog.Logger) (*Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}

	return &Service{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// Commit appends one confirmed reservation row.
func (s *Service) Commit(ctx context.Context, restaurantID string, fields map[string]any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	vr := &sheets.ValueRange{
		Values: [][]interface{}{reservationRowValues(restaurantID, fields)},
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, appendRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append reservation row: %w", err)
	}

	s.logger.Debug().Str("restaurant_id", restaurantID).Msg("reservation mirrored to sheet")
	return nil
}

// reservationRowValues maps a reservation field map onto the fixed
// column order of the spreadsheet.
func reservationRowValues(restaurantID string, fields map[string]any) []interface{} {
	status := normalize.CleanText(fields["status"])
	if status == "" {
		status = models.StatusConfirmed
	}

	return []interface{}{
		restaurantID,
		normalize.CleanText(fields[models.FieldGuestName]),
		normalize.CleanText(fields[models.FieldGuestPhone]),
		normalize.CleanText(fields[models.FieldDate]),
		normalize.CleanText(fields[models.FieldTime]),
		normalize.CleanGuests(fields[models.FieldGuests]),
		normalize.CleanText(fields[models.FieldSpecialRequests]),
		status,
	}
}
