package app

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gopher-auth/internal/config"
	"gopher-auth/internal/model"
	"gopher-auth/internal/repository"
	"gopher-auth/internal/validation"
)

const testSecret = "test-secret"

type memoryUserStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	// createErr, when set, is returned by Create instead of storing.
	createErr error
	queryErr  error
	deleted   []string
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*model.User)}
}

func (m *memoryUserStore) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.nextID++
	user.ID = "user-" + strconv.Itoa(m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	u, err := m.find(func(u *model.User) bool { return u.Username == username })
	return u != nil, err
}

func (m *memoryUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	u, err := m.find(func(u *model.User) bool { return u.Email == email })
	return u != nil, err
}

func (m *memoryUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *memoryUserStore) GetProfileByID(_ context.Context, id string) (*model.User, error) {
	u, err := m.find(func(u *model.User) bool { return u.ID == id })
	if u != nil {
		u.PasswordHash = ""
	}
	return u, err
}

func (m *memoryUserStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return m.queryErr
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryUserStore) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type memoryProfileCache struct {
	profiles map[string]model.User
	getErr   error
	sets     int
	deletes  []string
}

func newMemoryProfileCache() *memoryProfileCache {
	return &memoryProfileCache{profiles: make(map[string]model.User)}
}

func (c *memoryProfileCache) Get(_ context.Context, userID string) (*model.User, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	u, ok := c.profiles[userID]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (c *memoryProfileCache) Set(_ context.Context, user *model.User) error {
	c.sets++
	c.profiles[user.ID] = *user
	return nil
}

func (c *memoryProfileCache) Delete(_ context.Context, userID string) error {
	c.deletes = append(c.deletes, userID)
	delete(c.profiles, userID)
	return nil
}

type recordingRevoker struct {
	revoked map[string]time.Time
}

func newRecordingRevoker() *recordingRevoker {
	return &recordingRevoker{revoked: make(map[string]time.Time)}
}

func (r *recordingRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *recordingRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked[tokenID]
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.AccountEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errStoreDown = errors.New("store down")

type serviceFixture struct {
	svc       *AuthService
	store     *memoryUserStore
	cache     *memoryProfileCache
	revoker   *recordingRevoker
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	policy, err := validation.NewPolicy(config.PolicyConfig{
		FullNameMaxLength:      128,
		UsernameMinLength:      3,
		UsernameMaxLength:      30,
		UsernamePattern:        `^[a-zA-Z0-9_.]+$`,
		PasswordMinLength:      8,
		PasswordMaxLength:      72,
		PasswordRequireUpper:   true,
		PasswordRequireLower:   true,
		PasswordRequireDigit:   true,
		PasswordRequireSpecial: true,
		EmailMaxLength:         254,
	})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	f := &serviceFixture{
		store:     newMemoryUserStore(),
		cache:     newMemoryProfileCache(),
		revoker:   newRecordingRevoker(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewAuthService(
		f.store,
		policy,
		f.cache,
		f.revoker,
		f.publisher,
		AuthServiceConfig{
			JWTSecret:     testSecret,
			JWTExpiration: time.Hour,
			BcryptCost:    bcrypt.MinCost,
		},
		zerolog.New(io.Discard),
	)
	return f
}
