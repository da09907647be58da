package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/session"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	s *Store
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) usernameTaken(username string, except uuid.UUID) bool {
	for _, u := range r.s.users {
		if u.Username == username && u.UserID != except {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.usernameTaken(u.Username, uuid.Nil) {
		return user.ErrUsernameTaken
	}
	cp := *u
	r.s.users[u.UserID] = &cp
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.UserID]; !ok {
		return nil
	}
	if r.usernameTaken(u.Username, u.UserID) {
		return user.ErrUsernameTaken
	}
	cp := *u
	r.s.users[u.UserID] = &cp
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	r.s.mu.RLock()
	out := make([]*user.User, 0)
	for _, u := range r.s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Type != nil && u.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Username != nil && u.Username != *filter.Username {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// SessionRepository implements session.Repository.
type SessionRepository struct {
	s *Store
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sess
	r.s.sessions[sess.SessionID] = &cp
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, sessionID)
	return nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[sessionID]; ok {
		now := time.Now().UTC()
		sess.LastSeenAt = &now
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for id, sess := range r.s.sessions {
		if sess.IsExpired(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
