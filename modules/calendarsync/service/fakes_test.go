package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/dto"
	"groombook-api/core/params"
	apptentity "groombook-api/modules/appointment/entity"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/provider"
)

// fakeCache is an in-memory cache.Cache with manual TTL control.
type fakeCache struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) IncrWithWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	if c.counts[key] == 1 {
		c.ttls[key] = window
	}
	return c.counts[key], nil
}

func (c *fakeCache) GetCount(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], nil
}

func (c *fakeCache) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key], nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	delete(c.ttls, key)
	return nil
}

func (c *fakeCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) AddToTokenBlacklist(context.Context, string) error { return nil }
func (c *fakeCache) IsTokenBlacklisted(context.Context, string) (bool, error) {
	return false, nil
}

// fakeConnRepo holds a single connection.
type fakeConnRepo struct {
	mu   sync.Mutex
	conn *entity.CalendarConnection
}

func (r *fakeConnRepo) Create(_ context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn.ID = uuid.New()
	conn.IsActive = true
	r.conn = conn
	return conn, nil
}

func (r *fakeConnRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.ID != id {
		return nil, nil
	}
	clone := *r.conn
	return &clone, nil
}

func (r *fakeConnRepo) GetActive(context.Context) (*entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || !r.conn.IsActive {
		return nil, nil
	}
	clone := *r.conn
	return &clone, nil
}

func (r *fakeConnRepo) GetActiveByAdmin(_ context.Context, adminID uuid.UUID) (*entity.CalendarConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || !r.conn.IsActive || r.conn.OwnerAdminID != adminID {
		return nil, nil
	}
	clone := *r.conn
	return &clone, nil
}

func (r *fakeConnRepo) UpdateTokens(_ context.Context, id uuid.UUID, access, refresh string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && r.conn.ID == id {
		r.conn.AccessTokenEnc = access
		r.conn.RefreshTokenEnc = refresh
		r.conn.TokenExpiresAt = expiresAt
	}
	return nil
}

func (r *fakeConnRepo) SetPaused(_ context.Context, id uuid.UUID, paused bool, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && r.conn.ID == id {
		r.conn.AutoSyncPaused = paused
		r.conn.PauseReason = reason
	}
	return nil
}

func (r *fakeConnRepo) UpdateLastSync(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && r.conn.ID == id {
		r.conn.LastSyncAt = &at
	}
	return nil
}

func (r *fakeConnRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && r.conn.ID == id {
		r.conn.IsActive = false
	}
	return nil
}

// fakeMappingRepo stores mappings keyed by appointment id.
type fakeMappingRepo struct {
	mu       sync.Mutex
	mappings map[uuid.UUID]*entity.EventMapping
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: map[uuid.UUID]*entity.EventMapping{}}
}

func (r *fakeMappingRepo) GetByAppointment(_ context.Context, _, appointmentID uuid.UUID) (*entity.EventMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[appointmentID]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMappingRepo) GetByAppointments(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]entity.EventMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.EventMapping
	for _, id := range ids {
		if m, ok := r.mappings[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) Upsert(_ context.Context, mapping *entity.EventMapping) (*entity.EventMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.mappings[mapping.AppointmentID]; ok {
		mapping.ID = existing.ID
	} else {
		mapping.ID = uuid.New()
	}
	clone := *mapping
	r.mappings[mapping.AppointmentID] = &clone
	return mapping, nil
}

func (r *fakeMappingRepo) Delete(_ context.Context, _, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, appointmentID)
	return nil
}

func (r *fakeMappingRepo) DeleteByConnection(context.Context, uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = map[uuid.UUID]*entity.EventMapping{}
	return nil
}

func (r *fakeMappingRepo) CountByConnection(context.Context, uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mappings), nil
}

// fakeLogRepo appends entries in memory.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []entity.SyncLogEntry
}

func (r *fakeLogRepo) Create(_ context.Context, entry *entity.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]entity.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.SyncLogEntry
	for _, e := range r.entries {
		if e.AppointmentID != nil && *e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ListRecent(_ context.Context, qp *params.QueryParams) (*dto.Pagination[entity.SyncLogEntry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dto.NewPagination(r.entries, len(r.entries), qp.PageNumber, qp.PageSize), nil
}

func (r *fakeLogRepo) CountByStatusSince(_ context.Context, _ uuid.UUID, status string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.entries {
		if e.Status == status && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// fakeRetryRepo stores one entry per appointment like the real table.
type fakeRetryRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entity.RetryQueueEntry
}

func newFakeRetryRepo() *fakeRetryRepo {
	return &fakeRetryRepo{entries: map[uuid.UUID]*entity.RetryQueueEntry{}}
}

func (r *fakeRetryRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*entity.RetryQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[appointmentID]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (r *fakeRetryRepo) Upsert(_ context.Context, entry *entity.RetryQueueEntry) (*entity.RetryQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[entry.AppointmentID]; ok {
		entry.ID = existing.ID
	} else {
		entry.ID = uuid.New()
	}
	entry.ClaimedUntil = nil
	clone := *entry
	r.entries[entry.AppointmentID] = &clone
	return entry, nil
}

func (r *fakeRetryRepo) Delete(_ context.Context, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, appointmentID)
	return nil
}

func (r *fakeRetryRepo) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]entity.RetryQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []entity.RetryQueueEntry
	for _, e := range r.entries {
		if e.Exhausted || e.NextRetryAt.After(now) {
			continue
		}
		if e.ClaimedUntil != nil && e.ClaimedUntil.After(now) {
			continue
		}
		until := now.Add(lease)
		e.ClaimedUntil = &until
		claimed = append(claimed, *e)
		if len(claimed) == limit {
			break
		}
	}
	return claimed, nil
}

func (r *fakeRetryRepo) List(_ context.Context, qp *params.QueryParams, includeExhausted bool) (*dto.Pagination[entity.RetryQueueEntry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.RetryQueueEntry
	for _, e := range r.entries {
		if e.Exhausted && !includeExhausted {
			continue
		}
		out = append(out, *e)
	}
	return dto.NewPagination(out, len(out), qp.PageNumber, qp.PageSize), nil
}

func (r *fakeRetryRepo) CountPending(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.entries {
		if !e.Exhausted {
			count++
		}
	}
	return count, nil
}

// fakeSettingsRepo returns configurable settings.
type fakeSettingsRepo struct {
	settings *entity.SyncSettings
}

func (r *fakeSettingsRepo) Get(context.Context) (*entity.SyncSettings, error) {
	if r.settings == nil {
		return entity.DefaultSyncSettings(), nil
	}
	return r.settings, nil
}

func (r *fakeSettingsRepo) Update(_ context.Context, s *entity.SyncSettings) (*entity.SyncSettings, error) {
	r.settings = s
	return s, nil
}

// fakeStateRepo stores OAuth states in memory.
type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*entity.OAuthState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]*entity.OAuthState{}}
}

func (r *fakeStateRepo) Save(_ context.Context, state string, adminID uuid.UUID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state] = &entity.OAuthState{State: state, AdminID: adminID, ExpiresAt: expiresAt}
	return nil
}

func (r *fakeStateRepo) Consume(_ context.Context, state string) (*entity.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[state]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	delete(r.states, state)
	return s, nil
}

func (r *fakeStateRepo) CleanupExpired(context.Context) error { return nil }

// fakeGoogle scripts provider behavior per call kind.
type fakeGoogle struct {
	mu sync.Mutex

	createErr  error
	updateErr  error
	deleteErr  error
	refreshed  *provider.Token
	refreshErr error

	createCalls  int
	updateCalls  int
	deleteCalls  int
	refreshCalls int
	nextEventID  int

	createdEvents []string
	deletedEvents []string
}

func newFakeGoogle() *fakeGoogle {
	return &fakeGoogle{}
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (g *fakeGoogle) ExchangeCode(context.Context, string) (*provider.Token, error) {
	return &provider.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (g *fakeGoogle) RefreshToken(context.Context, string) (*provider.Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshCalls++
	if g.refreshErr != nil {
		return nil, g.refreshErr
	}
	if g.refreshed != nil {
		return g.refreshed, nil
	}
	return &provider.Token{AccessToken: "refreshed", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (g *fakeGoogle) RevokeToken(context.Context, string) error { return nil }

func (g *fakeGoogle) UserInfo(context.Context, string) (*provider.UserInfo, error) {
	return &provider.UserInfo{Email: "owner@example.com"}, nil
}

func (g *fakeGoogle) ListCalendars(context.Context, string) ([]provider.CalendarInfo, error) {
	return []provider.CalendarInfo{{ID: "primary-cal", Summary: "Main", Primary: true, AccessRole: "owner"}}, nil
}

func (g *fakeGoogle) CreateEvent(_ context.Context, _, _ string, _ *provider.EventPayload) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return "", g.createErr
	}
	g.nextEventID++
	id := fmt.Sprintf("evt-%d", g.nextEventID)
	g.createdEvents = append(g.createdEvents, id)
	return id, nil
}

func (g *fakeGoogle) UpdateEvent(_ context.Context, _, _, _ string, _ *provider.EventPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	return g.updateErr
}

func (g *fakeGoogle) DeleteEvent(_ context.Context, _, _, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deletedEvents = append(g.deletedEvents, eventID)
	return nil
}

// fakeAppointments serves canned appointments.
type fakeAppointments struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*apptentity.AppointmentForSync
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{appts: map[uuid.UUID]*apptentity.AppointmentForSync{}}
}

func (f *fakeAppointments) put(a *apptentity.AppointmentForSync) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appts[a.ID] = a
}

func (f *fakeAppointments) GetForSync(_ context.Context, id uuid.UUID) (*apptentity.AppointmentForSync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAppointments) ListForSyncByIDs(_ context.Context, ids []uuid.UUID) ([]apptentity.AppointmentForSync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apptentity.AppointmentForSync
	for _, id := range ids {
		if a, ok := f.appts[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu         sync.Mutex
	failures   int
	reconnects int
}

func (n *fakeNotifier) NotifySyncFailure(_ context.Context, _ uuid.UUID, _ uuid.UUID, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures++
}

func (n *fakeNotifier) NotifyReconnectRequired(context.Context, uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reconnects++
}

// fakeAdmins resolves a fixed admin.
type fakeAdmins struct {
	email string
	role  string
}

func (f *fakeAdmins) GetAdminEmail(context.Context, uuid.UUID) (string, error) {
	return f.email, nil
}

func (f *fakeAdmins) GetAdminRole(context.Context, uuid.UUID) (string, error) {
	if f.role == "" {
		return "admin", nil
	}
	return f.role, nil
}

// fakeEncryptor is a reversible no-crypto encryptor for tests.
type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	if len(ciphertext) > 4 && ciphertext[:4] == "enc:" {
		return ciphertext[4:], nil
	}
	return ciphertext, nil
}
