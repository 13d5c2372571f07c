package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/storage"
)

// Keys owned by the manager, removed on logout
var sessionKeys = []string{
	storage.KeyToken,
	storage.KeyRole,
	storage.KeyUsername,
	storage.KeyUser,
	storage.KeyUniversityID,
	storage.KeySelectedUniversity,
	storage.LegacyKeyToken,
	storage.LegacyKeyRole,
}

type Options struct {
	// CheckTokenExpiry treats a stored JWT whose exp claim has passed as
	// logged out. Off by default: an expired token is then only noticed when
	// the backend rejects it.
	CheckTokenExpiry bool

	Now func() time.Time
}

// Manager holds one visitor's Session and mirrors every change into a Store.
// It is the only writer of the session keys.
type Manager struct {
	mu      sync.RWMutex
	store   storage.Store
	session Session
	opts    Options
}

func NewManager(store storage.Store, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{store: store, opts: opts}
}

// Hydrate loads the session from the store without contacting the backend.
// A half written session (token without role or the reverse) is discarded.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = Session{}

	if err := m.migrateLegacyKeys(ctx); err != nil {
		return err
	}

	token, hasToken, err := storage.Lookup(ctx, m.store, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("read %s: %w", storage.KeyToken, err)
	}
	roleName, hasRole, err := storage.Lookup(ctx, m.store, storage.KeyRole)
	if err != nil {
		return fmt.Errorf("read %s: %w", storage.KeyRole, err)
	}

	if !hasToken && !hasRole {
		return nil
	}
	if !hasToken || !hasRole || token == "" {
		return m.removeSessionKeys(ctx)
	}

	r, err := role.Parse(roleName)
	if err != nil {
		return m.removeSessionKeys(ctx)
	}

	if m.opts.CheckTokenExpiry && m.tokenExpired(token) {
		return m.removeSessionKeys(ctx)
	}

	user, err := m.loadUser(ctx)
	if err != nil {
		return err
	}

	m.session = Session{Token: token, Role: r, User: user}
	return nil
}

func (m *Manager) migrateLegacyKeys(ctx context.Context) error {
	token, hasToken, err := storage.Lookup(ctx, m.store, storage.LegacyKeyToken)
	if err != nil {
		return err
	}
	roleName, hasRole, err := storage.Lookup(ctx, m.store, storage.LegacyKeyRole)
	if err != nil {
		return err
	}
	if !hasToken && !hasRole {
		return nil
	}

	if hasToken && hasRole {
		_, canonical, err := storage.Lookup(ctx, m.store, storage.KeyToken)
		if err != nil {
			return err
		}
		if !canonical {
			if err := m.store.Set(ctx, storage.KeyToken, token); err != nil {
				return err
			}
			if err := m.store.Set(ctx, storage.KeyRole, roleName); err != nil {
				return err
			}
		}
	}

	if err := m.store.Remove(ctx, storage.LegacyKeyToken); err != nil {
		return err
	}
	return m.store.Remove(ctx, storage.LegacyKeyRole)
}

func (m *Manager) loadUser(ctx context.Context) (*UserProfile, error) {
	blob, ok, err := storage.Lookup(ctx, m.store, storage.KeyUser)
	if err != nil {
		return nil, err
	}
	if ok {
		user := new(UserProfile)
		if json.Unmarshal([]byte(blob), user) == nil {
			return user, nil
		}
	}

	// Sessions written before the profile blob existed only kept these two
	username, _, err := storage.Lookup(ctx, m.store, storage.KeyUsername)
	if err != nil {
		return nil, err
	}
	universityID, _, err := storage.Lookup(ctx, m.store, storage.KeyUniversityID)
	if err != nil {
		return nil, err
	}
	if username == "" && universityID == "" {
		return nil, nil
	}
	return &UserProfile{Username: username, UniversityID: universityID}, nil
}

func (m *Manager) tokenExpired(token string) bool {
	claims := new(jwt.RegisteredClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque token, nothing to go on
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(m.opts.Now())
}

// Login authenticates against the backend and, only on success, stores the
// new session. A failed login leaves both memory and the store untouched.
func (m *Manager) Login(ctx context.Context, authn Authenticator, creds Credentials) (Session, error) {
	grant, err := authn.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	if grant == nil {
		return Session{}, ErrIncompleteSession
	}
	if err := m.SetAuth(ctx, grant.Token, grant.Role, grant.User); err != nil {
		return Session{}, err
	}
	return m.Session(), nil
}

// SetAuth replaces the session, writing it through to the store first
func (m *Manager) SetAuth(ctx context.Context, token string, r role.Role, user *UserProfile) error {
	if token == "" || r == role.None {
		return ErrIncompleteSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeSession(ctx, token, r, user); err != nil {
		// Leave nothing half written behind
		_ = m.removeSessionKeys(ctx)
		m.session = Session{}
		return fmt.Errorf("store session: %w", err)
	}

	var profile *UserProfile
	if user != nil {
		copied := *user
		profile = &copied
	}
	m.session = Session{Token: token, Role: r, User: profile}
	return nil
}

func (m *Manager) writeSession(ctx context.Context, token string, r role.Role, user *UserProfile) error {
	if err := m.store.Set(ctx, storage.KeyToken, token); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyRole, r.String()); err != nil {
		return err
	}

	if user == nil {
		for _, key := range []string{storage.KeyUsername, storage.KeyUser, storage.KeyUniversityID} {
			if err := m.store.Remove(ctx, key); err != nil {
				return err
			}
		}
		return nil
	}

	blob, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyUser, string(blob)); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyUsername, user.Username); err != nil {
		return err
	}
	if user.UniversityID == "" {
		return m.store.Remove(ctx, storage.KeyUniversityID)
	}
	return m.store.Set(ctx, storage.KeyUniversityID, user.UniversityID)
}

// Logout drops the session from memory and the store. Calling it on a logged
// out manager is fine.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = Session{}
	return m.removeSessionKeys(ctx)
}

// removeSessionKeys keeps going past failures so as much as possible is gone
func (m *Manager) removeSessionKeys(ctx context.Context) error {
	var errs []error
	for _, key := range sessionKeys {
		if err := m.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.session
	if s.User != nil {
		copied := *s.User
		s.User = &copied
	}
	return s
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session.Authenticated() {
		return Authenticated
	}
	return Unauthenticated
}

// Token makes the manager an oauth2.TokenSource for the API client
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.session.Authenticated() {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: m.session.Token, TokenType: "Bearer"}, nil
}

// Store exposes the backing namespace for keys the manager does not own
func (m *Manager) Store() storage.Store {
	return m.store
}

var _ oauth2.TokenSource = (*Manager)(nil)
