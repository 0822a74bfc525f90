package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callbook/internal/database"
	"callbook/internal/extract"
	"callbook/internal/queue"
)

var testNow = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db     *database.DB
	queue  queue.Queue
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q := queue.NewFile(filepath.Join(t.TempDir(), "pending.json"), queue.NewGate(logger), logger)
	extractor := extract.New(logger).WithClock(func() time.Time { return testNow })
	resolver := NewResolver(db, logger)

	return &testEnv{
		db:     db,
		queue:  q,
		server: New(db, q, extractor, resolver, logger),
	}
}

func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	e.server.Routes().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/", "/inbound"} {
		rec := env.get(t, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "healthy")
	}
}

func TestInbound_EndOfCallReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	restaurantID, err := env.db.CreateRestaurant(ctx, "Trattoria", "+1 (912) 737-0374")
	require.NoError(t, err)

	payload := map[string]any{
		"message": map[string]any{
			"type": "end-of-call-report",
			"transcript": "Hi, my name is Alex. I want to book a table for tomorrow at 7pm. " +
				"We are 4 people. My phone number is 91234 56789. No special requests.",
			"call": map[string]any{
				"id":          "call-42",
				"phoneNumber": map[string]any{"number": "19127370374"},
			},
			"analysis":     map[string]any{"summary": "Caller booked a table."},
			"recordingUrl": "https://example.com/rec.mp3",
		},
	}

	rec := env.post(t, "/inbound", payload)
	assert.Equal(t, http.StatusOK, rec.Code)

	records, err := env.queue.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	fields := records[0].Fields
	assert.Equal(t, "Alex", fields["guest_name"])
	assert.Equal(t, "9123456789", fields["guest_phone"])
	assert.Equal(t, "2025-11-21", fields["date"])
	assert.Equal(t, "19:00", fields["time"])
	assert.EqualValues(t, 4, fields["guests"])
	assert.Equal(t, "", fields["special_requests"])
	assert.Equal(t, fmt.Sprint(restaurantID), fields["restaurant_id"])

	logs, err := env.db.CallLogsByRestaurant(ctx, restaurantID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "call-42", logs[0].CallUUID)
	assert.Equal(t, "New Reservation", logs[0].Intent)
	assert.Equal(t, "completed", logs[0].Outcome)
}

func TestInbound_EndOfCallWithoutTranscript(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/inbound", map[string]any{
		"message": map[string]any{"type": "end-of-call-report"},
	})

	// Best-effort acknowledgment, nothing queued.
	assert.Equal(t, http.StatusOK, rec.Code)
	records, err := env.queue.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInbound_ToolCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := map[string]any{
		"message": map[string]any{
			"type": "response.function_call_arguments",
			"response": map[string]any{
				"output": []map[string]any{
					{
						"tool_calls": []map[string]any{
							{
								"id": "tc-1",
								"arguments": map[string]any{
									"guest_name":       "Sid",
									"guest_phone":      "777 77 777",
									"date":             "2 Dec 2025",
									"time":             "7pm",
									"guests":           4,
									"special_requests": "birthday",
								},
							},
						},
					},
				},
			},
		},
	}

	rec := env.post(t, "/inbound", payload)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "tc-1", resp.Results[0]["toolCallId"])
	assert.Equal(t, "Reservation queued successfully", resp.Results[0]["result"])

	records, err := env.queue.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Tool arguments are normalized before queueing.
	fields := records[0].Fields
	assert.Equal(t, "77777777", fields["guest_phone"])
	assert.Equal(t, "2025-12-02", fields["date"])
	assert.Equal(t, "19:00", fields["time"])
}

func TestInbound_ToolCallStringArguments(t *testing.T) {
	env := newTestEnv(t)

	args, err := json.Marshal(map[string]any{
		"guest_name":       "Bob",
		"guest_phone":      "9123456789",
		"date":             "2025-12-02",
		"time":             "19:00",
		"guests":           2,
		"special_requests": "",
	})
	require.NoError(t, err)

	payload := map[string]any{
		"message": map[string]any{
			"type": "tool-calls",
			"response": map[string]any{
				"output": []map[string]any{
					{"tool_calls": []map[string]any{{"id": "tc-2", "arguments": string(args)}}},
				},
			},
		},
	}

	rec := env.post(t, "/inbound", payload)
	assert.Equal(t, http.StatusOK, rec.Code)

	records, err := env.queue.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bob", records[0].Fields["guest_name"])
}

func TestInbound_UnknownTypeIgnored(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/inbound", map[string]any{
		"message": map[string]any{"type": "status-update"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestDashboard_Pending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ok, err := env.queue.Enqueue(ctx, map[string]any{
		"guest_name":       "Alex",
		"guest_phone":      "9123456789",
		"date":             "2025-12-02",
		"time":             "19:00",
		"guests":           4,
		"special_requests": "",
	})
	require.NoError(t, err)
	require.True(t, ok)

	rec := env.get(t, "/dashboard/pending")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int `json:"count"`
		Records []struct {
			ID          string         `json:"id"`
			Fields      map[string]any `json:"fields"`
			CreatedTime time.Time      `json:"createdTime"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.NotEmpty(t, resp.Records[0].ID)
	assert.Equal(t, "Alex", resp.Records[0].Fields["guest_name"])
	assert.False(t, resp.Records[0].CreatedTime.IsZero())
}

func TestDashboard_StatsAndCallLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	restaurantID, err := env.db.CreateRestaurant(ctx, "Bistro", "19127370374")
	require.NoError(t, err)

	rec := env.get(t, fmt.Sprintf("/dashboard/call-logs/%d", restaurantID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.get(t, fmt.Sprintf("/dashboard/stats/%d", restaurantID))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		TotalCalls int `json:"total_calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalCalls)
}

func TestDashboard_UnknownRestaurant(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/dashboard/stats/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.get(t, "/dashboard/call-logs/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
