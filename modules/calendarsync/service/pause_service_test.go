package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groombook-api/core/config"
	"groombook-api/core/errors"
	"groombook-api/modules/calendarsync/entity"
)

func seedConnection(t *testing.T, conns *fakeConnRepo, ownerID uuid.UUID) *entity.CalendarConnection {
	t.Helper()
	conn, err := conns.Create(context.Background(), &entity.CalendarConnection{
		OwnerAdminID:     ownerID,
		AccessTokenEnc:   "enc:access-token",
		RefreshTokenEnc:  "enc:refresh-token",
		TokenExpiresAt:   time.Now().Add(time.Hour),
		GoogleCalendarID: "primary-cal",
	})
	require.NoError(t, err)
	return conn
}

func TestRecordRateLimitPausesAfterStreak(t *testing.T) {
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	conn := seedConnection(t, conns, uuid.New())
	svc := NewPauseService(conns, newFakeCache())
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		triggered, err := svc.RecordRateLimit(ctx, conn.ID)
		require.NoError(t, err)
		assert.False(t, triggered, "streak %d", i)
	}

	triggered, err := svc.RecordRateLimit(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, triggered)

	stored, _ := conns.GetByID(ctx, conn.ID)
	assert.True(t, stored.AutoSyncPaused)
	require.NotNil(t, stored.PauseReason)
	assert.Equal(t, entity.PauseReasonRateLimited, *stored.PauseReason)
}

func TestClearRateLimitStreakResets(t *testing.T) {
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	conn := seedConnection(t, conns, uuid.New())
	svc := NewPauseService(conns, newFakeCache())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.RecordRateLimit(ctx, conn.ID)
		require.NoError(t, err)
	}
	svc.ClearRateLimitStreak(ctx, conn.ID)

	// Streak starts over; two more hits must not pause.
	for i := 0; i < 2; i++ {
		triggered, err := svc.RecordRateLimit(ctx, conn.ID)
		require.NoError(t, err)
		assert.False(t, triggered)
	}
}

func TestResumeOwnerOnly(t *testing.T) {
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	ownerID := uuid.New()
	conn := seedConnection(t, conns, ownerID)
	svc := NewPauseService(conns, newFakeCache())
	ctx := context.Background()

	require.NoError(t, svc.PauseManual(ctx, conn.ID))
	conn, _ = conns.GetByID(ctx, conn.ID)

	appErr := svc.Resume(ctx, conn, uuid.New(), "staff")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)

	// A site admin may resume on the owner's behalf.
	appErr = svc.Resume(ctx, conn, uuid.New(), "admin")
	assert.Nil(t, appErr)

	stored, _ := conns.GetByID(ctx, conn.ID)
	assert.False(t, stored.AutoSyncPaused)
	assert.Nil(t, stored.PauseReason)
}

func TestResumeBlockedForReconnectRequired(t *testing.T) {
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	ownerID := uuid.New()
	conn := seedConnection(t, conns, ownerID)
	svc := NewPauseService(conns, newFakeCache())
	ctx := context.Background()

	require.NoError(t, svc.PauseForReconnect(ctx, conn))
	conn, _ = conns.GetByID(ctx, conn.ID)

	appErr := svc.Resume(ctx, conn, ownerID, "admin")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrReconnectRequired, appErr.Code)

	stored, _ := conns.GetByID(ctx, conn.ID)
	assert.True(t, stored.AutoSyncPaused)
}

func TestMaybeAutoResumeLiftsOnlyQuotaPauses(t *testing.T) {
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	conn := seedConnection(t, conns, uuid.New())
	svc := NewPauseService(conns, newFakeCache())
	ctx := context.Background()

	require.NoError(t, svc.PauseForQuota(ctx, conn.ID))
	conn, _ = conns.GetByID(ctx, conn.ID)

	// Still near the limit: the pause holds.
	resumed, err := svc.MaybeAutoResume(ctx, conn, true)
	require.NoError(t, err)
	assert.False(t, resumed)

	// Window lapsed: the pause lifts on its own.
	resumed, err = svc.MaybeAutoResume(ctx, conn, false)
	require.NoError(t, err)
	assert.True(t, resumed)

	stored, _ := conns.GetByID(ctx, conn.ID)
	assert.False(t, stored.AutoSyncPaused)

	// Manual pauses never auto-resume.
	require.NoError(t, svc.PauseManual(ctx, conn.ID))
	conn, _ = conns.GetByID(ctx, conn.ID)
	resumed, err = svc.MaybeAutoResume(ctx, conn, false)
	require.NoError(t, err)
	assert.False(t, resumed)
}
