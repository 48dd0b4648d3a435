package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groombook-api/core/config"
	"groombook-api/core/errors"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/provider"
)

type tokenFixture struct {
	conns  *fakeConnRepo
	google *fakeGoogle
	svc    *TokenService
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	config.SetForTesting(&config.Config{})
	conns := &fakeConnRepo{}
	google := newFakeGoogle()
	pause := NewPauseService(conns, newFakeCache())
	return &tokenFixture{
		conns:  conns,
		google: google,
		svc:    NewTokenService(conns, google, fakeEncryptor{}, pause),
	}
}

func TestGetValidAccessTokenSkipsRefreshWhenFresh(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())

	token, err := f.svc.GetValidAccessToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "access-token", token)
	assert.Equal(t, 0, f.google.refreshCalls)
}

func TestGetValidAccessTokenRefreshesNearExpiry(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())
	conn.TokenExpiresAt = time.Now().Add(time.Minute)
	f.conns.conn.TokenExpiresAt = conn.TokenExpiresAt

	token, err := f.svc.GetValidAccessToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token)
	assert.Equal(t, 1, f.google.refreshCalls)

	// New access token persisted; the stored refresh token is kept because
	// the provider omitted one from the refresh response.
	stored, _ := f.conns.GetByID(context.Background(), conn.ID)
	assert.Equal(t, "enc:refreshed", stored.AccessTokenEnc)
	assert.Equal(t, "enc:refresh-token", stored.RefreshTokenEnc)
	assert.Greater(t, time.Until(stored.TokenExpiresAt), 30*time.Minute)
}

func TestGetValidAccessTokenRotatesRefreshTokenWhenProvided(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())
	conn.TokenExpiresAt = time.Now().Add(-time.Minute)
	f.conns.conn.TokenExpiresAt = conn.TokenExpiresAt
	f.google.refreshed = &provider.Token{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	token, err := f.svc.GetValidAccessToken(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)

	stored, _ := f.conns.GetByID(context.Background(), conn.ID)
	assert.Equal(t, "enc:new-refresh", stored.RefreshTokenEnc)
}

func TestGetValidAccessTokenSingleFlight(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())
	conn.TokenExpiresAt = time.Now().Add(-time.Minute)
	f.conns.conn.TokenExpiresAt = conn.TokenExpiresAt

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.svc.GetValidAccessToken(context.Background(), conn)
			assert.NoError(t, err)
			assert.Equal(t, "refreshed", token)
		}()
	}
	wg.Wait()

	// Concurrent callers share one provider round-trip.
	assert.Equal(t, 1, f.google.refreshCalls)
}

func TestGetValidAccessTokenInvalidGrantPausesConnection(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())
	conn.TokenExpiresAt = time.Now().Add(-time.Minute)
	f.conns.conn.TokenExpiresAt = conn.TokenExpiresAt
	f.google.refreshErr = &provider.Error{
		Type:    provider.ErrorTypeAuth,
		Reason:  "invalid_grant",
		Message: "token has been revoked",
	}

	_, err := f.svc.GetValidAccessToken(context.Background(), conn)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrReconnectRequired, appErr.Code)

	stored, _ := f.conns.GetByID(context.Background(), conn.ID)
	assert.True(t, stored.AutoSyncPaused)
	require.NotNil(t, stored.PauseReason)
	assert.Equal(t, entity.PauseReasonReconnectRequired, *stored.PauseReason)
}

func TestGetValidAccessTokenTransientRefreshFailure(t *testing.T) {
	f := newTokenFixture(t)
	conn := seedConnection(t, f.conns, uuid.New())
	conn.TokenExpiresAt = time.Now().Add(-time.Minute)
	f.conns.conn.TokenExpiresAt = conn.TokenExpiresAt
	f.google.refreshErr = &provider.Error{
		Type:    provider.ErrorTypeNetwork,
		Reason:  "timeout",
		Message: "request timed out",
	}

	_, err := f.svc.GetValidAccessToken(context.Background(), conn)
	require.Error(t, err)

	// Transient failures must not condemn the connection to reconnect.
	stored, _ := f.conns.GetByID(context.Background(), conn.ID)
	assert.False(t, stored.AutoSyncPaused)
}
