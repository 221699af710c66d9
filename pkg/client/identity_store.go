package client

// Package client implements the browser-side identity store contract for
// portal frontends and API tooling. Two stores mirror the browser's storage
// duality: a GlobalStore shared by every tab of the origin, and a TabStore
// scoped to a single tab. A tab copies the global identity exactly once via
// Snapshot and prefers its own copy afterwards, so two tabs logged in as
// different users never cross-contaminate each other's in-flight requests.

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

// StoredUser is the last-known identity a store holds alongside its tokens.
type StoredUser struct {
	UserID int64               `json:"user_id"`
	Email  string              `json:"email"`
	Role   domainauth.Role     `json:"role"`
	Tokens domainauth.TokenSet `json:"-"`
}

// Expired reports whether the stored token bundle is past its expiry.
func (u StoredUser) Expired(now time.Time) bool {
	return !u.Tokens.ExpiresAt.IsZero() && now.After(u.Tokens.ExpiresAt)
}

// GlobalStore holds the most recently logged-in identity shared across tabs.
// Safe for concurrent use.
type GlobalStore struct {
	mu      sync.RWMutex
	current *StoredUser
}

// NewGlobalStore creates an empty GlobalStore.
func NewGlobalStore() *GlobalStore {
	return &GlobalStore{}
}

// SetCurrent records a login as the most recent global identity.
func (s *GlobalStore) SetCurrent(user StoredUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &user
}

// Current returns the most recent global identity, if any.
func (s *GlobalStore) Current() (StoredUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return StoredUser{}, false
	}
	return *s.current, true
}

// Clear removes the global identity. Tab-local copies are unaffected.
func (s *GlobalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// TabStore is the tab-scoped identity cache. Its local copy, once set, wins
// over the global store; the only global read paths are the initial Snapshot
// and the documented fallback in Get when the tab has no local copy yet.
type TabStore struct {
	global *GlobalStore

	mu    sync.RWMutex
	local *StoredUser
}

// NewTabStore creates a TabStore over a global store and performs the
// one-time snapshot a freshly opened tab does.
func NewTabStore(global *GlobalStore) *TabStore {
	t := &TabStore{global: global}
	t.Snapshot()
	return t
}

// Snapshot copies the current global identity into tab-local storage. Called
// once on tab open; calling it again is an explicit re-adoption of whatever
// identity is globally current, and the only way another tab's later login
// can become visible here.
func (t *TabStore) Snapshot() {
	user, ok := t.global.Current()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !ok {
		t.local = nil
		return
	}
	t.local = &user
}

// SetCurrent records a login performed in this tab: the identity becomes both
// the tab's copy and the new global identity for future tabs.
func (t *TabStore) SetCurrent(user StoredUser) {
	t.mu.Lock()
	t.local = &user
	t.mu.Unlock()
	t.global.SetCurrent(user)
}

// Get returns the tab's identity. The tab-local copy is preferred; the
// global store is consulted only when this tab has never seen an identity.
func (t *TabStore) Get() (StoredUser, bool) {
	t.mu.RLock()
	local := t.local
	t.mu.RUnlock()
	if local != nil {
		return *local, true
	}
	return t.global.Current()
}

// Clear drops the tab-local identity, as on logout or verification failure.
// The global store is left alone; other tabs own their copies.
func (t *TabStore) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = nil
}

// userContext is the serialized identity attached as a secondary signal. The
// backend must never trust it without revalidating against its own records.
type userContext struct {
	UserID int64           `json:"user_id"`
	Email  string          `json:"email"`
	Role   domainauth.Role `json:"role"`
}

// AuthHeaders returns the headers to attach to an API request: the bearer
// token when present, and always the serialized identity context.
func (t *TabStore) AuthHeaders() map[string]string {
	user, ok := t.Get()
	if !ok {
		return map[string]string{}
	}

	headers := make(map[string]string, 2)
	if user.Tokens.AccessToken != "" {
		headers["Authorization"] = "Bearer " + user.Tokens.AccessToken
	}
	ctx, err := json.Marshal(userContext{UserID: user.UserID, Email: user.Email, Role: user.Role})
	if err == nil {
		headers["X-User-Context"] = string(ctx)
	}
	return headers
}

// Apply sets this tab's auth headers on an outbound request.
func (t *TabStore) Apply(req *http.Request) {
	for k, v := range t.AuthHeaders() {
		req.Header.Set(k, v)
	}
}
