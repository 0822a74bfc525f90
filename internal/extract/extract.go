// Package extract pulls reservation fields out of free-text call
// transcripts. It is a bounded heuristic matcher, not an NLU engine:
// every field extractor is deliberately conservative and degrades to an
// empty or default value when the phrasing is not recognized, because a
// wrong guess is worse than a missing value a human can fill in later.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"callbook/internal/models"
	"callbook/internal/normalize"
)

var (
	nameRe  = regexp.MustCompile(`(?i)(my name is|this is|i am)\s+([a-zA-Z ]+)`)
	phoneRe = regexp.MustCompile(`\+?\d[\d \-]{6,}`)

	// Only a fixed phrase grammar is accepted for dates. Anything else
	// is dropped rather than guessed.
	dateRe = regexp.MustCompile(`today|tomorrow|day after tomorrow|in \d+ days|after \d+ days|\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{1,2}\s+[a-zA-Z]+(\s+\d{4})?`)

	// Requires :MM or am/pm so that "20" in "the 20th" cannot match as 8pm.
	timeRe = regexp.MustCompile(`\b(\d{1,2}:\d{2}\s*(am|pm)?|\d{1,2}\s*(am|pm))\b`)

	// Guest counts need an adjacent keyword; a bare number in the text
	// is never treated as a party size.
	guestsRe  = regexp.MustCompile(`\b(\d{1,2})\s*(people|guests|persons|pax)\b`)
	partyOfRe = regexp.MustCompile(`\bparty of\s*(\d{1,2})\b`)

	relativeDaysRe = regexp.MustCompile(`(in|after)\s+(\d+)\s+days?`)

	specialRe = regexp.MustCompile(`birthday|anniversary|vegan|allergic|gluten|nothing special|no special requests`)
)

// dateLayouts are the absolute formats the date grammar accepts,
// day-first as spoken by callers.
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02 Jan 2006",
	"02 January 2006",
}

// Extractor runs the per-field heuristics over a transcript. The clock
// is injectable so relative date phrases are testable.
type Extractor struct {
	now    func() time.Time
	logger zerolog.Logger
}

// New returns an Extractor using the wall clock.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{
		now:    time.Now,
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// WithClock overrides the clock used to resolve relative date phrases.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Reservation extracts a reservation draft from a raw transcript.
// Never fails: fields whose phrasing is not recognized keep their
// defaults (empty string, guests=2).
func (e *Extractor) Reservation(transcript, restaurantID string) models.ReservationDraft {
	draft := models.ReservationDraft{
		RestaurantID: restaurantID,
		Guests:       2,
	}

	// The name keeps the caller's capitalization, so it matches against
	// the raw transcript; everything else works on the lowercased copy.
	e.name(transcript, &draft)

	text := strings.ToLower(transcript)
	for _, step := range []func(string, *models.ReservationDraft){
		e.phone,
		e.date,
		e.clockTime,
		e.guests,
		e.special,
	} {
		step(text, &draft)
	}

	return draft
}

func (e *Extractor) name(text string, d *models.ReservationDraft) {
	m := nameRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	d.GuestName = strings.TrimSpace(m[2])
}

func (e *Extractor) phone(text string, d *models.ReservationDraft) {
	m := phoneRe.FindString(text)
	if m == "" {
		return
	}
	digits := normalize.CleanPhone(m)
	// Unlike normalization, extraction enforces a plausible length:
	// a transcript digit run can be anything.
	if len(digits) < 7 || len(digits) > 15 {
		return
	}
	d.GuestPhone = digits
}

func (e *Extractor) date(text string, d *models.ReservationDraft) {
	phrase := dateRe.FindString(text)
	if phrase == "" {
		return
	}
	d.Date = e.resolveDate(phrase)
}

// resolveDate converts a matched date phrase to YYYY-MM-DD, relative to
// the extraction instant. Phrases outside the supported grammar are
// logged and dropped; silently guessing a date is worse than omitting it.
func (e *Extractor) resolveDate(phrase string) string {
	phrase = strings.TrimSpace(strings.ToLower(phrase))
	today := e.now()

	switch {
	case phrase == "today":
		return today.Format("2006-01-02")
	case phrase == "tomorrow":
		return today.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(phrase, "day after tomorrow"):
		return today.AddDate(0, 0, 2).Format("2006-01-02")
	}

	if m := relativeDaysRe.FindStringSubmatch(phrase); m != nil {
		days, _ := strconv.Atoi(m[2])
		return today.AddDate(0, 0, days).Format("2006-01-02")
	}

	// Month names arrive lowercased with the rest of the transcript,
	// but Go layouts want "Dec", not "dec".
	candidate := titleWords(phrase)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.Format("2006-01-02")
		}
	}

	e.logger.Warn().Str("phrase", phrase).Msg("invalid date phrase ignored")
	return ""
}

func (e *Extractor) clockTime(text string, d *models.ReservationDraft) {
	m := timeRe.FindString(text)
	if m == "" {
		return
	}
	d.Time = normalize.CleanTime(m)
}

func (e *Extractor) guests(text string, d *models.ReservationDraft) {
	m := guestsRe.FindStringSubmatch(text)
	if m == nil {
		m = partyOfRe.FindStringSubmatch(text)
	}
	if m == nil {
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return
	}
	d.Guests = n
}

func (e *Extractor) special(text string, d *models.ReservationDraft) {
	m := specialRe.FindString(text)
	if m == "" {
		return
	}
	// Negations ("no special requests", "nothing special") force empty.
	if strings.Contains(m, "no") {
		return
	}
	d.SpecialRequests = m
}

// titleWords capitalizes each alphabetic word ("25 dec 2025" -> "25 Dec 2025").
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		c := w[0]
		if c >= 'a' && c <= 'z' {
			words[i] = string(c-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}
