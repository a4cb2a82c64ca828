package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowUnderLimit(t *testing.T) {
	repo := new(mockRateLimitRepository)
	windowStart := time.Now().Truncate(time.Minute)
	repo.On("IncrementWindow", mock.Anything, "emp-1", time.Minute, "ratelimit:agent", 2*time.Minute).
		Return(1, windowStart, nil)

	svc := NewRateLimiterService(repo, &RateLimiterConfig{DefaultRequestsPerMinute: 10, BurstMultiplier: 2.0, Window: time.Minute}, nil)

	allowed, remaining, limit, reset, err := svc.Allow(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 19, remaining)
	assert.Equal(t, 10, limit)
	assert.Equal(t, windowStart.Add(time.Minute), reset)
}

func TestRateLimiterBlocksOverBurst(t *testing.T) {
	repo := new(mockRateLimitRepository)
	repo.On("IncrementWindow", mock.Anything, "emp-1", mock.Anything, mock.Anything, mock.Anything).
		Return(21, time.Now(), nil)

	svc := NewRateLimiterService(repo, &RateLimiterConfig{DefaultRequestsPerMinute: 10, BurstMultiplier: 2.0, Window: time.Minute}, nil)

	allowed, remaining, _, _, err := svc.Allow(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	repo := new(mockRateLimitRepository)
	repo.On("IncrementWindow", mock.Anything, "emp-1", mock.Anything, mock.Anything, mock.Anything).
		Return(0, time.Time{}, assert.AnError)

	svc := NewRateLimiterService(repo, nil, nil)

	allowed, _, _, _, err := svc.Allow(context.Background(), "emp-1")
	assert.Error(t, err)
	assert.True(t, allowed, "storage trouble must not block agent traffic")
}
