package queue

import "github.com/rs/zerolog"

// DefaultRequired is the standard required-field set for a draft.
// Presence is what matters, not non-emptiness: an empty string is a
// legitimate "not found" value, a missing key is a malformed payload.
var DefaultRequired = []string{
	"guest_name",
	"guest_phone",
	"date",
	"time",
	"guests",
	"special_requests",
}

// Gate rejects drafts that are missing required fields before they can
// be queued. The required set is a parameter because some call sites
// historically validated without special_requests.
type Gate struct {
	Required []string
	Logger   zerolog.Logger
}

// NewGate returns a gate over the given required keys,
// or DefaultRequired when none are given.
func NewGate(logger zerolog.Logger, required ...string) Gate {
	if len(required) == 0 {
		required = DefaultRequired
	}
	return Gate{Required: required, Logger: logger}
}

// Valid reports whether every required key is present in fields.
func (g Gate) Valid(fields map[string]any) bool {
	for _, k := range g.Required {
		if _, ok := fields[k]; !ok {
			g.Logger.Warn().Str("field", k).Msg("missing required field")
			return false
		}
	}
	return true
}
