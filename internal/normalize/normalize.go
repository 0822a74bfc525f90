// Package normalize canonicalizes raw reservation fields captured during a
// call into the fixed formats the stores expect. Every function is pure,
// total and idempotent: normalizing an already-normalized value returns it
// unchanged, and malformed input degrades instead of failing.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"callbook/internal/models"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	isoDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe    = regexp.MustCompile(`^(\d{1,2})(:?(\d{2}))?(am|pm)?$`)
)

// dateLayouts are tried in order for non-ISO date strings.
// Day-first, matching how callers phrase dates on the phone.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02 01 2006",
	"02 Jan 2006",
	"02 January 2006",
}

// CleanText returns the trimmed string form of v, or "" for nil.
func CleanText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// CleanPhone strips a phone number down to digits only.
// No length filtering happens here: length validation belongs to
// extraction, and normalization must accept already-validated or
// externally-supplied numbers without re-rejecting them.
func CleanPhone(v any) string {
	s := CleanText(v)
	if s == "" {
		return ""
	}
	return nonDigitRe.ReplaceAllString(s, "")
}

// CleanDate normalizes a date string into YYYY-MM-DD. Already-ISO input
// passes through. Unparseable input is returned unchanged: by the time a
// value reaches the normalizer it was supplied by a human or a tool call,
// so the normalizer has no license to discard it.
func CleanDate(v any) string {
	s := CleanText(v)
	if s == "" {
		return ""
	}
	if isoDateRe.MatchString(s) {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// CleanTime normalizes a time string into 24-hour HH:MM.
// Handles "7pm", "7:30pm", "19:00" and bare hours; 12am maps to 00:00
// and 12pm stays 12:00. Unrecognized input is returned as-is (minus
// spaces and dots).
func CleanTime(v any) string {
	s := CleanText(v)
	if s == "" {
		return ""
	}
	t := strings.ToLower(s)
	t = strings.ReplaceAll(t, " ", "")
	t = strings.ReplaceAll(t, ".", "")

	m := clockRe.FindStringSubmatch(t)
	if m == nil {
		return t
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	switch m[4] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// CleanGuests coerces a guest count to an integer of at least 1.
// Absent or non-coercible input defaults to 2, the most common
// party size on the platform.
func CleanGuests(v any) int {
	switch g := v.(type) {
	case nil:
		return 2
	case int:
		return atLeastOne(g)
	case int64:
		return atLeastOne(int(g))
	case float64:
		return atLeastOne(int(g))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(g))
		if err != nil {
			return 2
		}
		return atLeastOne(n)
	default:
		return 2
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// pick returns the first key of keys whose value in raw is present and
// non-empty. The modern tool-call schema (guest_name, guest_phone,
// special_requests) is listed before the legacy one (name, phone,
// special), so modern keys win when both are sent.
func pick(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// Draft cleans and normalizes raw reservation data captured during the
// call into a store-ready draft. Accepts both the modern and the legacy
// field naming and never panics on malformed values.
func Draft(raw map[string]any) models.ReservationDraft {
	return models.ReservationDraft{
		RestaurantID:    CleanText(pick(raw, models.FieldRestaurantID)),
		GuestName:       CleanText(pick(raw, models.FieldGuestName, "name")),
		GuestPhone:      CleanPhone(pick(raw, models.FieldGuestPhone, "phone")),
		Date:            CleanDate(pick(raw, models.FieldDate)),
		Time:            CleanTime(pick(raw, models.FieldTime)),
		Guests:          CleanGuests(raw[models.FieldGuests]),
		SpecialRequests: CleanText(pick(raw, models.FieldSpecialRequests, "special")),
	}
}
