package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groombook-api/core/config"
)

func newRetryServiceForTest(repo *fakeRetryRepo) *RetryService {
	config.SetForTesting(&config.Config{})
	svc := NewRetryService(repo)
	svc.withJitter = false
	return svc
}

func TestComputeBackoffDoubles(t *testing.T) {
	svc := newRetryServiceForTest(newFakeRetryRepo())

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{5, 480 * time.Second},
		{8, time.Hour},
		{20, time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, svc.ComputeBackoff(tt.retryCount), "retry %d", tt.retryCount)
	}
}

func TestComputeBackoffJitterOnlyAdds(t *testing.T) {
	svc := newRetryServiceForTest(newFakeRetryRepo())
	svc.withJitter = true

	base := 30 * time.Second
	for i := 0; i < 100; i++ {
		delay := svc.ComputeBackoff(1)
		assert.GreaterOrEqual(t, delay, base)
		assert.LessOrEqual(t, delay, base+base/5)
	}
}

func TestComputeBackoffRespectsConfig(t *testing.T) {
	config.SetForTesting(&config.Config{Sync: config.SyncConfig{
		RetryBaseDelay: 10 * time.Second,
		RetryMaxDelay:  25 * time.Second,
	}})
	svc := NewRetryService(newFakeRetryRepo())
	svc.withJitter = false

	assert.Equal(t, 10*time.Second, svc.ComputeBackoff(1))
	assert.Equal(t, 20*time.Second, svc.ComputeBackoff(2))
	assert.Equal(t, 25*time.Second, svc.ComputeBackoff(3))
}

func TestScheduleAdvancesUntilExhausted(t *testing.T) {
	repo := newFakeRetryRepo()
	svc := newRetryServiceForTest(repo)
	ctx := context.Background()
	apptID := uuid.New()

	for want := 1; want <= 5; want++ {
		entry, err := svc.Schedule(ctx, apptID, "create", "network", "connection reset")
		require.NoError(t, err)
		assert.Equal(t, want, entry.RetryCount)
		assert.False(t, entry.Exhausted)
		assert.WithinDuration(t,
			time.Now().Add(svc.ComputeBackoff(want)), entry.NextRetryAt, 2*time.Second)
	}

	// The sixth failure freezes the entry instead of advancing the count.
	entry, err := svc.Schedule(ctx, apptID, "create", "network", "connection reset")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.RetryCount)
	assert.True(t, entry.Exhausted)

	// Exhausted entries stay visible for manual intervention.
	stored, err := repo.GetByAppointment(ctx, apptID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Exhausted)
}

func TestScheduleDelaysAreMonotonic(t *testing.T) {
	repo := newFakeRetryRepo()
	svc := newRetryServiceForTest(repo)
	svc.withJitter = true
	ctx := context.Background()
	apptID := uuid.New()

	var prev time.Duration
	for i := 1; i <= 5; i++ {
		entry, err := svc.Schedule(ctx, apptID, "update", "rate_limit", "quota exceeded")
		require.NoError(t, err)

		delay := time.Until(entry.NextRetryAt)
		assert.Greater(t, delay, prev, "attempt %d", i)
		prev = delay
	}
}

func TestClearRemovesEntry(t *testing.T) {
	repo := newFakeRetryRepo()
	svc := newRetryServiceForTest(repo)
	ctx := context.Background()
	apptID := uuid.New()

	_, err := svc.Schedule(ctx, apptID, "create", "network", "timeout")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, apptID))

	stored, err := repo.GetByAppointment(ctx, apptID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
