package identity

// Package identity contains simple hand-written test doubles for the
// account-link ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"sync"
	"time"

	domainidentity "github.com/ubc/wiki-cwl-link/internal/domain/identity"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.LinkRepository  = (*MemoryLinkRepo)(nil)
	_ ports.UserDirectory   = (*MemoryUserDirectory)(nil)
	_ ports.PendingStore    = (*MemoryPendingStore)(nil)
	_ ports.AccountBlocker  = (*RecordingBlocker)(nil)
	_ ports.AddressThrottle = (*RecordingThrottle)(nil)
)

// MemoryLinkRepo is an in-memory LinkRepository keyed both ways.
type MemoryLinkRepo struct {
	mu        sync.Mutex
	byLogin   map[string]*domainidentity.LinkRecord
	usernames map[int64]string // local user id → host username

	// CreateErr and UpdateErr force the corresponding call to fail.
	CreateErr error
	UpdateErr error
	// UpdateCalls counts Update invocations, for no-op detection tests.
	UpdateCalls int
}

// NewMemoryLinkRepo creates an empty in-memory link repository.
func NewMemoryLinkRepo() *MemoryLinkRepo {
	return &MemoryLinkRepo{
		byLogin:   make(map[string]*domainidentity.LinkRecord),
		usernames: make(map[int64]string),
	}
}

// SetUsername registers the host username behind a local user id, standing
// in for the wiki user table the production repo joins against.
func (m *MemoryLinkRepo) SetUsername(localUserID int64, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[localUserID] = username
}

// Seed inserts a link row directly, bypassing Create bookkeeping.
func (m *MemoryLinkRepo) Seed(rec domainidentity.LinkRecord, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byLogin[rec.ExternalLoginName] = &rec
	m.usernames[rec.LocalUserID] = username
}

func (m *MemoryLinkRepo) GetByExternalLogin(_ context.Context, loginName string) (*domainidentity.LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byLogin[loginName]
	if !ok {
		return nil, ports.ErrLinkNotFound
	}
	cp := *rec
	return &domainidentity.LinkedAccount{Link: cp, LocalUsername: m.usernames[rec.LocalUserID]}, nil
}

func (m *MemoryLinkRepo) GetByLocalUser(_ context.Context, localUserID int64) (*domainidentity.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byLogin {
		if rec.LocalUserID == localUserID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ports.ErrLinkNotFound
}

func (m *MemoryLinkRepo) Create(_ context.Context, req domainidentity.CreateLinkRequest) (*domainidentity.LinkRecord, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	serialized := req.Affiliations.Serialize()
	rec := &domainidentity.LinkRecord{
		LocalUserID:            req.LocalUserID,
		ExternalLoginName:      req.ExternalLoginName,
		PersonID:               req.PersonID,
		CurrentAffiliations:    serialized,
		HistoricalAffiliations: serialized,
		DisplayName:            req.DisplayName,
		CreatedAt:              time.Now().UTC(),
		UpdatedAt:              time.Now().UTC(),
	}
	m.byLogin[req.ExternalLoginName] = rec
	cp := *rec
	return &cp, nil
}

func (m *MemoryLinkRepo) Update(_ context.Context, localUserID int64, req domainidentity.UpdateLinkRequest) (*domainidentity.LinkRecord, error) {
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byLogin {
		if rec.LocalUserID == localUserID {
			rec.PersonID = req.PersonID
			rec.CurrentAffiliations = req.CurrentAffiliations.Serialize()
			rec.HistoricalAffiliations = req.HistoricalAffiliations.Serialize()
			rec.DisplayName = req.DisplayName
			rec.UpdatedAt = time.Now().UTC()
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ports.ErrLinkNotFound
}

// MemoryUserDirectory is a UserDirectory backed by a set of taken usernames.
type MemoryUserDirectory struct {
	mu    sync.Mutex
	taken map[string]struct{}

	// ExistsFunc overrides the probe entirely when set.
	ExistsFunc func(ctx context.Context, username string) (bool, error)
	// Probes records every username probed, in order.
	Probes []string
}

// NewMemoryUserDirectory creates a directory where the given usernames exist.
func NewMemoryUserDirectory(taken ...string) *MemoryUserDirectory {
	m := &MemoryUserDirectory{taken: make(map[string]struct{}, len(taken))}
	for _, u := range taken {
		m.taken[u] = struct{}{}
	}
	return m
}

// Add marks a username as existing.
func (m *MemoryUserDirectory) Add(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taken[username] = struct{}{}
}

func (m *MemoryUserDirectory) Exists(ctx context.Context, username string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Probes = append(m.Probes, username)
	_, ok := m.taken[username]
	return ok, nil
}

// MemoryPendingStore is an in-memory single-use PendingStore.
type MemoryPendingStore struct {
	mu      sync.Mutex
	staged  map[string]domainidentity.PendingIdentity
	PutErr  error
	TakeErr error
}

// NewMemoryPendingStore creates an empty pending store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{staged: make(map[string]domainidentity.PendingIdentity)}
}

func (m *MemoryPendingStore) Put(_ context.Context, attemptID string, p domainidentity.PendingIdentity) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged[attemptID] = p
	return nil
}

func (m *MemoryPendingStore) Take(_ context.Context, attemptID string) (domainidentity.PendingIdentity, bool, error) {
	if m.TakeErr != nil {
		return domainidentity.PendingIdentity{}, false, m.TakeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.staged[attemptID]
	if ok {
		delete(m.staged, attemptID)
	}
	return p, ok, nil
}

// Staged reports whether anything is staged under the attempt.
func (m *MemoryPendingStore) Staged(attemptID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.staged[attemptID]
	return ok
}

// RecordingBlocker records block requests.
type RecordingBlocker struct {
	mu       sync.Mutex
	BlockErr error
	Requests []ports.BlockRequest
}

func (b *RecordingBlocker) Block(_ context.Context, req ports.BlockRequest) error {
	if b.BlockErr != nil {
		return b.BlockErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Requests = append(b.Requests, req)
	return nil
}

// Blocked reports whether the given account was blocked.
func (b *RecordingBlocker) Blocked(localUserID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, req := range b.Requests {
		if req.LocalUserID == localUserID {
			return true
		}
	}
	return false
}

// RecordingThrottle records throttled addresses.
type RecordingThrottle struct {
	mu        sync.Mutex
	Addresses []string
	Windows   []time.Duration
}

func (t *RecordingThrottle) Throttle(_ context.Context, addr string, window time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Addresses = append(t.Addresses, addr)
	t.Windows = append(t.Windows, window)
	return nil
}
