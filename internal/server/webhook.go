package server

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"callbook/internal/metrics"
	"callbook/internal/models"
	"callbook/internal/normalize"
)

// webhookPayload is the envelope the call platform posts to /inbound.
// Only the parts the pipeline consumes are modeled; everything else is
// ignored.
type webhookPayload struct {
	Message webhookMessage `json:"message"`
}

type webhookMessage struct {
	Type               string          `json:"type"`
	Transcript         string          `json:"transcript"`
	RecordingURL       string          `json:"recordingUrl"`
	StereoRecordingURL string          `json:"stereoRecordingUrl"`
	Analysis           struct {
		Summary string `json:"summary"`
	} `json:"analysis"`
	Call        webhookCall     `json:"call"`
	PhoneNumber json.RawMessage `json:"phoneNumber"`
	Response    struct {
		Output []struct {
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"output"`
	} `json:"response"`
}

type webhookCall struct {
	ID          string          `json:"id"`
	PhoneNumber json.RawMessage `json:"phoneNumber"`
	To          json.RawMessage `json:"to"`
}

type toolCall struct {
	ID        string          `json:"id"`
	Arguments json.RawMessage `json:"arguments"`
}

// dialedNumber digs the number the caller dialed out of the message.
// Platforms report it in several places and as either a bare string or
// a {number: ...} object, so every known location is tried in order.
func (m *webhookMessage) dialedNumber() string {
	for _, raw := range []json.RawMessage{m.Call.PhoneNumber, m.Call.To, m.PhoneNumber} {
		if n := numberFrom(raw); n != "" {
			return n
		}
	}
	return ""
}

func numberFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Number
	}
	return ""
}

// arguments decodes tool-call arguments, which arrive either as a JSON
// object or as a JSON-encoded string of one.
func (t *toolCall) arguments() map[string]any {
	raw := t.Arguments
	if len(raw) == 0 {
		return map[string]any{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// handleEndOfCall runs the transcript through the extraction pipeline
// and queues the result. Best-effort throughout: the call platform
// never sees a hard failure for extraction problems.
func (s *Server) handleEndOfCall(ctx context.Context, msg *webhookMessage) {
	if msg.Transcript == "" {
		s.logger.Warn().Msg("no transcript in end-of-call-report")
		return
	}

	restaurantID := s.resolveRestaurantID(ctx, msg)

	extracted := s.extractor.Reservation(msg.Transcript, restaurantID)
	metrics.IncExtracted()

	// Re-normalize before the gate; extraction output is already
	// canonical, so this is a no-op unless the extractor changes.
	draft := normalize.Draft(extracted.Fields())

	queued, err := s.queue.Enqueue(ctx, draft.Fields())
	if err != nil {
		s.logger.Error().Err(err).Msg("enqueue extracted reservation")
	}
	if queued {
		metrics.IncEnqueued("queued")
		s.logger.Info().
			Str("guest_name", draft.GuestName).
			Str("date", draft.Date).
			Str("time", draft.Time).
			Msg("reservation queued from transcript")
	} else if err == nil {
		metrics.IncEnqueued("rejected")
	}

	s.logCall(ctx, msg, extracted)
	s.updateQueueDepth(ctx)
}

// handleToolCalls queues reservations supplied directly by the agent's
// create_reservation tool. Same schema as extraction, no transcript.
func (s *Server) handleToolCalls(ctx context.Context, msg *webhookMessage) []map[string]any {
	var calls []toolCall
	for _, chunk := range msg.Response.Output {
		calls = append(calls, chunk.ToolCalls...)
	}
	if len(calls) == 0 {
		return []map[string]any{}
	}

	restaurantID := s.resolveRestaurantID(ctx, msg)

	results := make([]map[string]any, 0, len(calls))
	for _, tc := range calls {
		args := tc.arguments()
		if restaurantID != "" {
			args[models.FieldRestaurantID] = restaurantID
		}

		draft := normalize.Draft(args)
		queued, err := s.queue.Enqueue(ctx, draft.Fields())
		if err != nil {
			s.logger.Error().Err(err).Str("tool_call_id", tc.ID).Msg("enqueue tool-call reservation")
		}

		result := "Reservation queued successfully"
		if !queued {
			metrics.IncEnqueued("rejected")
			result = "Reservation could not be queued"
		} else {
			metrics.IncEnqueued("queued")
		}

		results = append(results, map[string]any{
			"toolCallId": tc.ID,
			"result":     result,
		})
	}

	s.updateQueueDepth(ctx)
	return results
}

func (s *Server) resolveRestaurantID(ctx context.Context, msg *webhookMessage) string {
	dialed := msg.dialedNumber()
	if dialed == "" {
		return ""
	}
	restaurant, err := s.resolver.ByDialedNumber(ctx, dialed)
	if err != nil {
		s.logger.Error().Err(err).Msg("restaurant lookup failed")
		return ""
	}
	if restaurant == nil {
		return ""
	}
	return strconv.FormatInt(restaurant.ID, 10)
}

// logCall records the call with a coarse intent classification.
func (s *Server) logCall(ctx context.Context, msg *webhookMessage, extracted models.ReservationDraft) {
	if extracted.RestaurantID == "" {
		return
	}
	restaurantID, err := strconv.ParseInt(extracted.RestaurantID, 10, 64)
	if err != nil {
		return
	}

	recording := msg.RecordingURL
	if recording == "" {
		recording = msg.StereoRecordingURL
	}
	summary := msg.Analysis.Summary
	if summary == "" {
		summary = "No summary available."
	}

	callUUID := msg.Call.ID
	if callUUID == "" {
		callUUID = "unknown"
	}

	log := &models.CallLog{
		RestaurantID: restaurantID,
		CallUUID:     callUUID,
		Intent:       classifyIntent(msg.Transcript, extracted),
		Outcome:      "completed",
		AgentSummary: summary,
		RecordingURL: recording,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.db.LogCall(ctx, log); err != nil {
		s.logger.Error().Err(err).Msg("save call log")
	}
}

func classifyIntent(transcript string, extracted models.ReservationDraft) string {
	lower := strings.ToLower(transcript)
	switch {
	case extracted.GuestName != "":
		return "New Reservation"
	case strings.Contains(lower, "cancel"):
		return "Cancellation"
	case strings.Contains(lower, "change"), strings.Contains(lower, "reschedule"):
		return "Modification"
	case strings.Contains(lower, "menu"), strings.Contains(lower, "food"):
		return "Menu Inquiry"
	case strings.Contains(lower, "hours"), strings.Contains(lower, "open"):
		return "Hours Inquiry"
	default:
		return "General Inquiry"
	}
}

func (s *Server) updateQueueDepth(ctx context.Context) {
	records, err := s.queue.ListAll(ctx)
	if err != nil {
		return
	}
	metrics.SetQueueDepth(len(records))
}
