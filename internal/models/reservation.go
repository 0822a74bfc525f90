package models

import "time"

// Reservation statuses as stored in the confirmed table.
const (
	StatusPending   = "pending"
	StatusConfirmed = "Confirmed"
)

// Field keys shared by the extractor, normalizer and queue payloads.
// The "modern" tool-call schema uses these; the legacy schema
// (name/phone/special) is reconciled by the normalizer.
const (
	FieldRestaurantID    = "restaurant_id"
	FieldGuestName       = "guest_name"
	FieldGuestPhone      = "guest_phone"
	FieldDate            = "date"
	FieldTime            = "time"
	FieldGuests          = "guests"
	FieldSpecialRequests = "special_requests"
)

// ReservationDraft is an extracted-but-not-yet-committed reservation.
// Empty strings mean "not found"; Guests defaults to 2.
type ReservationDraft struct {
	RestaurantID    string `json:"restaurant_id,omitempty"`
	GuestName       string `json:"guest_name"`
	GuestPhone      string `json:"guest_phone"`
	Date            string `json:"date"` // YYYY-MM-DD or ""
	Time            string `json:"time"` // HH:MM (24h) or ""
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

// Fields returns the draft as the flat field map used by the pending
// queue and the confirmed store. restaurant_id is included only when
// set, matching the tool-call payloads where it is optional.
func (d ReservationDraft) Fields() map[string]any {
	fields := map[string]any{
		FieldGuestName:       d.GuestName,
		FieldGuestPhone:      d.GuestPhone,
		FieldDate:            d.Date,
		FieldTime:            d.Time,
		FieldGuests:          d.Guests,
		FieldSpecialRequests: d.SpecialRequests,
	}
	if d.RestaurantID != "" {
		fields[FieldRestaurantID] = d.RestaurantID
	}
	return fields
}

// Record is a queued draft as stored by a pending-queue backend.
// The {id, fields, createdTime} shape is read directly by the
// dashboard, so it must not change at the boundary.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime time.Time      `json:"createdTime"`
}

// Reservation is a committed row in the confirmed store.
type Reservation struct {
	ID              int64     `json:"id"`
	RestaurantID    string    `json:"restaurant_id,omitempty"`
	GuestName       string    `json:"guest_name"`
	GuestPhone      string    `json:"guest_phone"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Guests          int       `json:"guests"`
	SpecialRequests string    `json:"special_requests"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Restaurant is a business reachable through the call platform.
type Restaurant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"` // digits only
	CreatedAt   time.Time `json:"created_at"`
}

// CallLog records the outcome of a single inbound call.
type CallLog struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id,omitempty"`
	CallUUID     string    `json:"call_id"`
	Intent       string    `json:"intent"`
	Outcome      string    `json:"outcome"`
	AgentSummary string    `json:"agent_summary"`
	RecordingURL string    `json:"recording_url"`
	Timestamp    time.Time `json:"timestamp"`
}
