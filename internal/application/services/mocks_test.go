package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/core/domain/presence"
	infracache "github.com/trackex/realtime-status/internal/infrastructure/cache"
)

type mockLicenseRepository struct {
	mock.Mock
}

func (m *mockLicenseRepository) GetByEmployee(ctx context.Context, employeeID string) (*license.License, error) {
	args := m.Called(ctx, employeeID)
	if l, ok := args.Get(0).(*license.License); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLicenseRepository) Update(ctx context.Context, l *license.License) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *mockLicenseRepository) UpdateDeviceTokenHash(ctx context.Context, employeeID, hash string) error {
	args := m.Called(ctx, employeeID, hash)
	return args.Error(0)
}

type mockPresenceRepository struct {
	mock.Mock
}

func (m *mockPresenceRepository) RecordPing(ctx context.Context, p *presence.Ping) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPresenceRepository) LiveView(ctx context.Context, scope string) (*presence.LiveView, error) {
	args := m.Called(ctx, scope)
	if v, ok := args.Get(0).(*presence.LiveView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) SendLicenseAlert(ctx context.Context, l *license.License, reason string) error {
	args := m.Called(ctx, l, reason)
	return args.Error(0)
}

type mockAgentVersionRepository struct {
	mock.Mock
}

func (m *mockAgentVersionRepository) Latest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockAgentVersionRepository) Insert(ctx context.Context, version string) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

type mockRateLimitRepository struct {
	mock.Mock
}

func (m *mockRateLimitRepository) IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	args := m.Called(ctx, subject, window, keyPrefix, ttl)
	return args.Int(0), args.Get(1).(time.Time), args.Error(2)
}

// legacySHA256 reproduces the old stored credential format.
func legacySHA256(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// newTestCache builds a local-tier-only engine with TTLs long enough that
// nothing expires mid-test.
func newTestCache() *infracache.TieredCache {
	return infracache.NewTieredCache(infracache.Config{
		LocalTTL:   time.Minute,
		RemoteTTL:  time.Minute,
		MaxEntries: 100,
	}, nil, nil)
}
