package service

import (
	"context"
	"strings"
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

type connectionFixture struct {
	conns    *fakeConnRepo
	states   *fakeStateRepo
	mappings *fakeMappingRepo
	logs     *fakeLogRepo
	retries  *fakeRetryRepo
	google   *fakeGoogle
	admins   *fakeAdmins
	svc      *ConnectionService
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()
	config.SetForTesting(&config.Config{})

	f := &connectionFixture{
		conns:    &fakeConnRepo{},
		states:   newFakeStateRepo(),
		mappings: newFakeMappingRepo(),
		logs:     &fakeLogRepo{},
		retries:  newFakeRetryRepo(),
		google:   newFakeGoogle(),
		admins:   &fakeAdmins{email: "owner@example.com", role: "admin"},
	}

	googleCfg := provider.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:7070/api/v1/calendar/callback",
	}

	f.svc = NewConnectionService(
		f.conns, f.states, f.mappings, f.logs, f.retries,
		f.google, googleCfg, fakeEncryptor{}, NewQuotaService(newFakeCache()), f.admins,
	)
	return f
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	i := strings.Index(authURL, "state=")
	require.GreaterOrEqual(t, i, 0)
	return authURL[i+len("state="):]
}

func TestStartConnectGeneratesState(t *testing.T) {
	f := newConnectionFixture(t)
	adminID := uuid.New()

	resp, appErr := f.svc.StartConnect(context.Background(), adminID)
	require.Nil(t, appErr)

	state := stateFromAuthURL(t, resp.AuthURL)
	assert.Len(t, state, oauthStateLength)

	stored := f.states.states[state]
	require.NotNil(t, stored)
	assert.Equal(t, adminID, stored.AdminID)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), stored.ExpiresAt, 5*time.Second)
}

func TestStartConnectRequiresProviderConfig(t *testing.T) {
	f := newConnectionFixture(t)
	f.svc.googleCfg = provider.GoogleConfig{}

	_, appErr := f.svc.StartConnect(context.Background(), uuid.New())
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrProviderNotConfigured, appErr.Code)
}

func TestStartConnectRejectsSecondConnection(t *testing.T) {
	f := newConnectionFixture(t)
	seedConnection(t, f.conns, uuid.New())

	_, appErr := f.svc.StartConnect(context.Background(), uuid.New())
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAlreadyExists, appErr.Code)
}

func TestHandleCallbackCreatesConnection(t *testing.T) {
	f := newConnectionFixture(t)
	adminID := uuid.New()
	ctx := context.Background()

	resp, appErr := f.svc.StartConnect(ctx, adminID)
	require.Nil(t, appErr)
	state := stateFromAuthURL(t, resp.AuthURL)

	conn, appErr := f.svc.HandleCallback(ctx, "auth-code", state)
	require.Nil(t, appErr)

	assert.Equal(t, adminID, conn.OwnerAdminID)
	assert.True(t, conn.IsActive)
	// Tokens land encrypted; metadata comes from the provider account.
	assert.Equal(t, "enc:access", conn.AccessTokenEnc)
	assert.Equal(t, "enc:refresh", conn.RefreshTokenEnc)
	assert.Equal(t, "owner@example.com", conn.GoogleAccountEmail)
	assert.Equal(t, "primary-cal", conn.GoogleCalendarID)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, entity.LogOpConnect, f.logs.entries[0].Operation)
}

func TestHandleCallbackRejectsUnknownState(t *testing.T) {
	f := newConnectionFixture(t)

	_, appErr := f.svc.HandleCallback(context.Background(), "auth-code", "never-issued")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestHandleCallbackStateIsSingleUse(t *testing.T) {
	f := newConnectionFixture(t)
	ctx := context.Background()

	resp, appErr := f.svc.StartConnect(ctx, uuid.New())
	require.Nil(t, appErr)
	state := stateFromAuthURL(t, resp.AuthURL)

	_, appErr = f.svc.HandleCallback(ctx, "auth-code", state)
	require.Nil(t, appErr)

	// Replaying the redirect must not mint a second connection.
	_, appErr = f.svc.HandleCallback(ctx, "auth-code", state)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestHandleCallbackRejectsExpiredState(t *testing.T) {
	f := newConnectionFixture(t)
	ctx := context.Background()
	adminID := uuid.New()

	require.NoError(t, f.states.Save(ctx, "stale-state", adminID, time.Now().Add(-time.Minute)))

	_, appErr := f.svc.HandleCallback(ctx, "auth-code", "stale-state")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestHandleCallbackRequiresAdminRole(t *testing.T) {
	f := newConnectionFixture(t)
	f.admins.role = "staff"
	ctx := context.Background()

	resp, appErr := f.svc.StartConnect(ctx, uuid.New())
	require.Nil(t, appErr)
	state := stateFromAuthURL(t, resp.AuthURL)

	_, appErr = f.svc.HandleCallback(ctx, "auth-code", state)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestDisconnectClearsState(t *testing.T) {
	f := newConnectionFixture(t)
	ownerID := uuid.New()
	conn := seedConnection(t, f.conns, ownerID)
	ctx := context.Background()

	_, err := f.mappings.Upsert(ctx, &entity.EventMapping{
		AppointmentID: uuid.New(),
		ConnectionID:  conn.ID,
		GoogleEventID: "evt-1",
	})
	require.NoError(t, err)

	appErr := f.svc.Disconnect(ctx, ownerID, "admin")
	require.Nil(t, appErr)

	active, _ := f.conns.GetActive(ctx)
	assert.Nil(t, active)

	count, _ := f.mappings.CountByConnection(ctx, conn.ID)
	assert.Equal(t, 0, count)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, entity.LogOpDisconnect, f.logs.entries[0].Operation)
}

func TestDisconnectOwnerOnly(t *testing.T) {
	f := newConnectionFixture(t)
	seedConnection(t, f.conns, uuid.New())

	appErr := f.svc.Disconnect(context.Background(), uuid.New(), "staff")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestDisconnectWithoutConnection(t *testing.T) {
	f := newConnectionFixture(t)

	appErr := f.svc.Disconnect(context.Background(), uuid.New(), "admin")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestStatusReflectsConnection(t *testing.T) {
	f := newConnectionFixture(t)
	ctx := context.Background()

	resp, appErr := f.svc.Status(ctx)
	require.Nil(t, appErr)
	assert.False(t, resp.Connected)

	conn := seedConnection(t, f.conns, uuid.New())
	conn.GoogleAccountEmail = "owner@example.com"

	_, err := f.mappings.Upsert(ctx, &entity.EventMapping{
		AppointmentID: uuid.New(),
		ConnectionID:  conn.ID,
		GoogleEventID: "evt-1",
	})
	require.NoError(t, err)

	resp, appErr = f.svc.Status(ctx)
	require.Nil(t, appErr)
	assert.True(t, resp.Connected)
	assert.Equal(t, "owner@example.com", resp.GoogleAccountEmail)
	assert.Equal(t, 1, resp.MappedAppointments)
}
