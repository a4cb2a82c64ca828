package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/domain/presence"
	"github.com/trackex/realtime-status/internal/infrastructure/broadcast"
)

func TestRecordPingInvalidatesLiveViewsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPresenceRepository)
	cache := newTestCache()
	hub := broadcast.NewHub(nil)

	repo.On("RecordPing", mock.Anything, mock.Anything).Return(nil)

	// Every cached live view goes stale on a ping; other keys are untouched.
	cache.Set(ctx, "live:all", []byte("view"))
	cache.Set(ctx, "live:emp-1", []byte("view"))
	cache.Set(ctx, "license:emp-1", []byte("check"))

	allSink := broadcast.NewChannelSink(4)
	hub.Subscribe(event.KeyAll, allSink)

	svc := NewPresenceService(repo, cache, hub, nil)
	err := svc.RecordPing(ctx, &presence.Ping{EmployeeID: "emp-1", ActiveSeconds: 55, IdleSeconds: 5})
	require.NoError(t, err)

	_, ok := cache.Get(ctx, "live:all")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "live:emp-1")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "license:emp-1")
	assert.True(t, ok)

	select {
	case frame := <-allSink.Frames():
		ev := parseFrame(t, frame)
		assert.Equal(t, event.TypeLiveUpdate, ev.Type)
		assert.Equal(t, "emp-1", ev.EmployeeID)
		require.NotNil(t, ev.Online)
		assert.True(t, *ev.Online)
		assert.Equal(t, int64(55), ev.TotalActiveTime)
	default:
		t.Fatal("expected a live_update broadcast on the global key")
	}

	repo.AssertExpectations(t)
}

func TestRecordPingRepoFailureDoesNotBroadcast(t *testing.T) {
	repo := new(mockPresenceRepository)
	hub := broadcast.NewHub(nil)
	repo.On("RecordPing", mock.Anything, mock.Anything).Return(assert.AnError)

	sink := broadcast.NewChannelSink(4)
	hub.Subscribe(event.KeyAll, sink)

	svc := NewPresenceService(repo, newTestCache(), hub, nil)
	err := svc.RecordPing(context.Background(), &presence.Ping{EmployeeID: "emp-1"})
	require.Error(t, err)

	select {
	case <-sink.Frames():
		t.Fatal("a failed write must not be announced")
	default:
	}
}

func TestLiveViewCachesComputedView(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPresenceRepository)
	cache := newTestCache()

	view := &presence.LiveView{
		Scope:  "all",
		Online: 2,
		Employees: []presence.EmployeeStatus{
			{EmployeeID: "emp-1", Online: true},
			{EmployeeID: "emp-2", Online: true},
		},
		ComputedAt: time.Now(),
	}
	repo.On("LiveView", mock.Anything, "all").Return(view, nil).Once()

	svc := NewPresenceService(repo, cache, broadcast.NewHub(nil), nil)

	got, err := svc.LiveView(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Online)

	// Second read is a cache hit; the repo expectation is Once.
	got, err = svc.LiveView(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Online)
	assert.Len(t, got.Employees, 2)

	repo.AssertExpectations(t)
}

func TestLiveViewDefaultsScopeToAll(t *testing.T) {
	repo := new(mockPresenceRepository)
	repo.On("LiveView", mock.Anything, "all").Return(&presence.LiveView{Scope: "all"}, nil).Once()

	svc := NewPresenceService(repo, newTestCache(), broadcast.NewHub(nil), nil)
	_, err := svc.LiveView(context.Background(), "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLiveViewRepoError(t *testing.T) {
	repo := new(mockPresenceRepository)
	repo.On("LiveView", mock.Anything, "all").Return(nil, assert.AnError)

	svc := NewPresenceService(repo, newTestCache(), broadcast.NewHub(nil), nil)
	_, err := svc.LiveView(context.Background(), "all")
	assert.Error(t, err)
}
