package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/infrastructure/broadcast"
)

func TestAgentVersionCurrentCaches(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAgentVersionRepository)
	repo.On("Latest", mock.Anything).Return("2.4.1", nil).Once()

	svc := NewAgentVersionService(repo, newTestCache(), broadcast.NewHub(nil), nil)

	got, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.4.1", got)

	got, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.4.1", got)
	repo.AssertExpectations(t)
}

func TestAgentVersionCurrentEmptyNotCached(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAgentVersionRepository)
	repo.On("Latest", mock.Anything).Return("", nil).Twice()

	svc := NewAgentVersionService(repo, newTestCache(), broadcast.NewHub(nil), nil)
	for i := 0; i < 2; i++ {
		got, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	repo.AssertExpectations(t)
}

func TestAgentVersionPublishAnnouncesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAgentVersionRepository)
	cache := newTestCache()
	hub := broadcast.NewHub(nil)

	repo.On("Latest", mock.Anything).Return("2.4.1", nil).Once()
	repo.On("Insert", mock.Anything, "2.5.0").Return(nil)

	sink := broadcast.NewChannelSink(4)
	hub.Subscribe(event.KeyAll, sink)

	svc := NewAgentVersionService(repo, cache, hub, nil)
	_, err := svc.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Publish(ctx, "2.5.0"))

	select {
	case frame := <-sink.Frames():
		ev := parseFrame(t, frame)
		assert.Equal(t, event.TypeAgentVersionReleased, ev.Type)
		assert.Equal(t, "2.5.0", ev.Version)
	default:
		t.Fatal("expected a release announcement on the global key")
	}

	_, ok := cache.Get(ctx, "agent:version")
	assert.False(t, ok, "publishing must drop the cached version")
	repo.AssertExpectations(t)
}

func TestAgentVersionPublishRejectsEmpty(t *testing.T) {
	repo := new(mockAgentVersionRepository)
	svc := NewAgentVersionService(repo, newTestCache(), broadcast.NewHub(nil), nil)
	err := svc.Publish(context.Background(), "")
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}
