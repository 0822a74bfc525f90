package saver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"callbook/internal/models"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, fields map[string]any) (bool, error) {
	args := m.Called(ctx, fields)
	return args.Bool(0), args.Error(1)
}

func (m *mockQueue) ListAll(ctx context.Context) ([]models.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Record), args.Error(1)
}

func (m *mockQueue) PeekOldest(ctx context.Context) (*models.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *mockQueue) PopOldest(ctx context.Context) (*models.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *mockQueue) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockQueue) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Commit(ctx context.Context, restaurantID string, fields map[string]any) error {
	args := m.Called(ctx, restaurantID, fields)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, draft models.ReservationDraft) {
	m.Called(ctx, draft)
}

func testRecord(name string) *models.Record {
	return &models.Record{
		ID: "rec1",
		Fields: map[string]any{
			"restaurant_id":    "7",
			"guest_name":       name,
			"guest_phone":      "91234 56789",
			"date":             "2 Dec 2025",
			"time":             "7pm",
			"guests":           float64(4),
			"special_requests": "birthday",
		},
		CreatedTime: time.Now().UTC(),
	}
}

func fastConfig() Config {
	return Config{IdleInterval: 5 * time.Millisecond, BetweenJobs: time.Millisecond}
}

func TestCoordinator_CommitsPoppedDraft(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)
	notifier := new(mockNotifier)
	logger := zerolog.New(io.Discard)

	committed := make(chan struct{})

	q.On("PopOldest", mock.Anything).Return(testRecord("Alex"), nil).Once()
	q.On("PopOldest", mock.Anything).Return(nil, nil)

	store.On("Commit", mock.Anything, "7", mock.MatchedBy(func(fields map[string]any) bool {
		// The coordinator re-normalizes defensively before the commit.
		return fields["guest_phone"] == "9123456789" &&
			fields["date"] == "2025-12-02" &&
			fields["time"] == "19:00" &&
			fields["guests"] == 4 &&
			fields["status"] == models.StatusConfirmed
	})).Run(func(mock.Arguments) {
		close(committed)
	}).Return(nil).Once()

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(d models.ReservationDraft) bool {
		return d.GuestName == "Alex" && d.Time == "19:00"
	})).Return().Once()

	c := New(fastConfig(), q, store, notifier, logger)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case <-committed:
	case <-time.After(time.Second):
		t.Fatal("draft was not committed")
	}

	c.Stop()
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCoordinator_CommitFailureDropsDraft(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)

	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	failed := make(chan struct{})

	q.On("PopOldest", mock.Anything).Return(testRecord("Lost"), nil).Once()
	q.On("PopOldest", mock.Anything).Return(nil, nil)

	store.On("Commit", mock.Anything, "7", mock.Anything).
		Run(func(mock.Arguments) { close(failed) }).
		Return(errors.New("store unavailable")).Once()

	c := New(fastConfig(), q, store, nil, logger)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("commit was never attempted")
	}

	c.Stop()

	// The draft is gone from the queue and is not re-queued or
	// retried anywhere: at-most-once, failure logged.
	q.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	store.AssertNumberOfCalls(t, "Commit", 1)
	assert.Contains(t, logBuf.String(), "confirmed-store write failed")
}

func TestCoordinator_IdlesOnEmptyQueue(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)
	logger := zerolog.New(io.Discard)

	q.On("PopOldest", mock.Anything).Return(nil, nil)

	c := New(fastConfig(), q, store, nil, logger)
	c.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	c.Stop()

	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_KeepsGoingAfterPopError(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)
	logger := zerolog.New(io.Discard)

	committed := make(chan struct{})

	q.On("PopOldest", mock.Anything).Return(nil, errors.New("backend down")).Once()
	q.On("PopOldest", mock.Anything).Return(testRecord("Back"), nil).Once()
	q.On("PopOldest", mock.Anything).Return(nil, nil)

	store.On("Commit", mock.Anything, "7", mock.Anything).
		Run(func(mock.Arguments) { close(committed) }).
		Return(nil).Once()

	c := New(fastConfig(), q, store, nil, logger)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case <-committed:
	case <-time.After(time.Second):
		t.Fatal("coordinator did not recover after a pop error")
	}
}

func TestCoordinator_StartIsIdempotentAndStopWaits(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)
	logger := zerolog.New(io.Discard)

	q.On("PopOldest", mock.Anything).Return(nil, nil)

	c := New(fastConfig(), q, store, nil, logger)
	c.Start(context.Background())
	c.Start(context.Background()) // no second loop
	c.Stop()
	c.Stop() // no panic on double stop
}

func TestProcessJob_NormalizesBeforeCommit(t *testing.T) {
	q := new(mockQueue)
	store := new(mockStore)
	logger := zerolog.New(io.Discard)

	var got map[string]any
	store.On("Commit", mock.Anything, "7", mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(2).(map[string]any)
		}).Return(nil).Once()

	c := New(fastConfig(), q, store, nil, logger)
	c.processJob(context.Background(), testRecord("Sid"))

	require.NotNil(t, got)
	assert.Equal(t, "9123456789", got["guest_phone"])
	assert.Equal(t, "2025-12-02", got["date"])
	assert.Equal(t, "19:00", got["time"])
	assert.Equal(t, 4, got["guests"])
	assert.Equal(t, "birthday", got["special_requests"])
}
