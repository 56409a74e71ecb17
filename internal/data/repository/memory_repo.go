package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shop-account/internal/data/entity"
	"shop-account/pkg/apperr"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.User
}

// NewMemoryUserRepository builds an in-memory user store for testing.
// It enforces email/username uniqueness the way the database constraint
// does, so the check-then-insert race maps to DuplicateIdentity here too.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[uuid.UUID]entity.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return apperr.DuplicateIdentity(apperr.FieldEmail)
		}
		if existing.Username == user.Username {
			return apperr.DuplicateIdentity(apperr.FieldUsername)
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindByEmailOrUsername(_ context.Context, email, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email || user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindByEmailAndDigest(_ context.Context, email, digest string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email && user.PasswordDigest == digest {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindAll(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []*entity.User
	i := 0
	for _, user := range r.users {
		if i >= offset && len(users) < limit {
			u := user
			users = append(users, &u)
		}
		i++
	}
	return users, nil
}

func (r *memoryUserRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *memoryUserRepository) UpdatePasswordDigest(_ context.Context, id uuid.UUID, digest string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return 0, nil
	}
	user.PasswordDigest = digest
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return 1, nil
}

func (r *memoryUserRepository) UpdatePasswordDigestByEmail(_ context.Context, email, digest string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if user.Email == email {
			user.PasswordDigest = digest
			user.UpdatedAt = time.Now()
			r.users[id] = user
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memoryUserRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	user.IsActive = false
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]entity.Session
	now      func() time.Time
}

// NewMemorySessionRepository builds an in-memory session store for testing.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string]entity.Session),
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Token.String()] = *session
	return nil
}

func (r *memorySessionRepository) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[token]
	if !ok || session.RevokedAt != nil || !session.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	s := session
	return &s, nil
}

func (r *memorySessionRepository) Revoke(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok || session.RevokedAt != nil {
		return 0, nil
	}
	now := r.now()
	session.RevokedAt = &now
	r.sessions[token] = session
	return 1, nil
}

func (r *memorySessionRepository) RevokeAllUserSessions(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for token, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &now
			r.sessions[token] = session
		}
	}
	return nil
}

func (r *memorySessionRepository) CleanExpiredSessions(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, session := range r.sessions {
		if session.ExpiresAt.Before(r.now().Add(-7 * 24 * time.Hour)) {
			delete(r.sessions, token)
		}
	}
	return nil
}
