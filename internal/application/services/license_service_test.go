package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/infrastructure/broadcast"
	"github.com/trackex/realtime-status/internal/utils"
)

func activeLicense(employeeID string) *license.License {
	expires := time.Now().AddDate(0, 1, 0)
	return &license.License{
		EmployeeID: employeeID,
		Status:     license.StatusActive,
		Tier:       "standard",
		AdminEmail: "admin@example.com",
		ExpiresAt:  &expires,
	}
}

func parseFrame(t *testing.T, frame []byte) event.Event {
	t.Helper()
	ev, err := event.Parse(frame[len("data: ") : len(frame)-2])
	require.NoError(t, err)
	return ev
}

func TestCheckCachesResult(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)
	cache := newTestCache()
	hub := broadcast.NewHub(nil)

	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(activeLicense("emp-1"), nil).Once()

	svc := NewLicenseService(repo, cache, hub, nil, nil)

	res, err := svc.Check(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, license.StatusActive, res.Status)

	// Second check is served from the cache; the repo expectation is Once.
	res, err = svc.Check(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	repo.AssertExpectations(t)
	assert.Equal(t, uint64(1), cache.Stats().Tier1Hits)
}

func TestCheckPropagatesNotFound(t *testing.T) {
	repo := new(mockLicenseRepository)
	repo.On("GetByEmployee", mock.Anything, "ghost").Return(nil, assert.AnError)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	_, err := svc.Check(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestCheckRecoversFromCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)
	cache := newTestCache()
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(activeLicense("emp-1"), nil).Once()

	cache.Set(ctx, "license:emp-1", []byte("{corrupt"))

	svc := NewLicenseService(repo, cache, broadcast.NewHub(nil), nil, nil)
	res, err := svc.Check(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	repo.AssertExpectations(t)
}

func TestApplyRevokeBroadcastsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)
	cache := newTestCache()
	hub := broadcast.NewHub(nil)
	email := new(mockEmailService)

	l := activeLicense("emp-1")
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(l, nil)
	repo.On("Update", mock.Anything, l).Return(nil)
	email.On("SendLicenseAlert", mock.Anything, l, "license_revoked").Return(nil)

	empSink := broadcast.NewChannelSink(4)
	allSink := broadcast.NewChannelSink(4)
	hub.Subscribe(event.EmployeeKey("emp-1"), empSink)
	hub.Subscribe(event.KeyAll, allSink)

	// Warm the cache so the invalidation is observable.
	svc := NewLicenseService(repo, cache, hub, email, nil)
	_, err := svc.Check(ctx, "emp-1")
	require.NoError(t, err)

	updated, err := svc.Apply(ctx, "emp-1", &license.UpdateLicenseRequest{Action: "revoke"})
	require.NoError(t, err)
	assert.Equal(t, license.StatusRevoked, updated.Status)

	for _, sink := range []*broadcast.ChannelSink{empSink, allSink} {
		select {
		case frame := <-sink.Frames():
			ev := parseFrame(t, frame)
			assert.Equal(t, event.TypeLicenseRevoked, ev.Type)
			assert.Equal(t, "emp-1", ev.EmployeeID)
			require.NotNil(t, ev.Valid)
			assert.False(t, *ev.Valid)
		default:
			t.Fatal("expected a broadcast frame")
		}
	}

	// The cached snapshot is gone; the next check goes back to the repo.
	_, ok := cache.Get(ctx, "license:emp-1")
	assert.False(t, ok)

	repo.AssertExpectations(t)
	email.AssertExpectations(t)
}

func TestApplyRenewDefaultsExpiry(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)

	l := activeLicense("emp-1")
	l.Status = license.StatusExpired
	l.ExpiresAt = nil
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(l, nil)
	repo.On("Update", mock.Anything, l).Return(nil)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	updated, err := svc.Apply(ctx, "emp-1", &license.UpdateLicenseRequest{Action: "renew"})
	require.NoError(t, err)

	assert.Equal(t, license.StatusActive, updated.Status)
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, updated.ExpiresAt.After(time.Now().AddDate(0, 11, 0)), "renewal without an explicit date extends roughly a year")
}

func TestApplyUnknownAction(t *testing.T) {
	repo := new(mockLicenseRepository)
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(activeLicense("emp-1"), nil)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	_, err := svc.Apply(context.Background(), "emp-1", &license.UpdateLicenseRequest{Action: "explode"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown license action")
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestVerifyDeviceTokenUpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)

	l := activeLicense("emp-1")
	l.DeviceTokenHash = legacySHA256("secret-token")
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(l, nil)
	repo.On("UpdateDeviceTokenHash", mock.Anything, "emp-1", mock.MatchedBy(func(hash string) bool {
		return strings.HasPrefix(hash, "$2")
	})).Return(nil)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	got, err := svc.VerifyDeviceToken(ctx, "emp-1", "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", got.EmployeeID)
	repo.AssertExpectations(t)
}

func TestVerifyDeviceTokenCurrentHashNoUpgrade(t *testing.T) {
	ctx := context.Background()
	repo := new(mockLicenseRepository)

	hash, err := utils.HashDeviceToken("secret-token")
	require.NoError(t, err)
	l := activeLicense("emp-1")
	l.DeviceTokenHash = hash
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(l, nil)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	_, err = svc.VerifyDeviceToken(ctx, "emp-1", "secret-token")
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateDeviceTokenHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyDeviceTokenMismatch(t *testing.T) {
	repo := new(mockLicenseRepository)
	l := activeLicense("emp-1")
	l.DeviceTokenHash = legacySHA256("secret-token")
	repo.On("GetByEmployee", mock.Anything, "emp-1").Return(l, nil)

	svc := NewLicenseService(repo, newTestCache(), broadcast.NewHub(nil), nil, nil)
	_, err := svc.VerifyDeviceToken(context.Background(), "emp-1", "wrong-token")
	assert.ErrorIs(t, err, utils.ErrTokenMismatch)
	repo.AssertNotCalled(t, "UpdateDeviceTokenHash", mock.Anything, mock.Anything, mock.Anything)
}
