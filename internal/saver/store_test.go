package saver

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestFanOutStore_MirrorFailureDoesNotFailCommit(t *testing.T) {
	primary := new(mockStore)
	mirror := new(mockStore)
	logger := zerolog.New(io.Discard)

	fields := map[string]any{"guest_name": "Alex"}

	primary.On("Commit", mock.Anything, "7", fields).Return(nil).Once()
	mirror.On("Commit", mock.Anything, "7", fields).Return(errors.New("quota exceeded")).Once()

	s := NewFanOutStore(primary, mirror, logger)
	err := s.Commit(context.Background(), "7", fields)

	assert.NoError(t, err)
	primary.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestFanOutStore_PrimaryFailureSkipsMirror(t *testing.T) {
	primary := new(mockStore)
	mirror := new(mockStore)
	logger := zerolog.New(io.Discard)

	fields := map[string]any{"guest_name": "Alex"}

	primary.On("Commit", mock.Anything, "7", fields).Return(errors.New("db locked")).Once()

	s := NewFanOutStore(primary, mirror, logger)
	err := s.Commit(context.Background(), "7", fields)

	assert.Error(t, err)
	mirror.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
}
