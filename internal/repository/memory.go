package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/junnyjoe/home-services/internal/models"
)

// MemoryUsers backs the development API when no database is configured.
type MemoryUsers struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	now      func() time.Time
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{accounts: make(map[string]models.Account), now: time.Now}
}

func (r *MemoryUsers) Create(_ context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return ErrEmailTaken
		}
	}
	now := r.now()
	account.CreatedAt, account.UpdatedAt = now, now
	r.accounts[account.ID] = account
	return nil
}

func (r *MemoryUsers) FindByEmail(_ context.Context, email string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, ErrUserNotFound
}

func (r *MemoryUsers) GetByID(_ context.Context, id string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return models.Account{}, ErrUserNotFound
	}
	return account, nil
}

func (r *MemoryUsers) UpdateProfile(_ context.Context, id string, profile models.ProfileInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return ErrUserNotFound
	}
	for otherID, other := range r.accounts {
		if otherID != id && other.Email == profile.Email {
			return ErrEmailTaken
		}
	}
	account.FirstName = profile.FirstName
	account.LastName = profile.LastName
	account.Email = profile.Email
	account.Phone = profile.Phone
	account.UpdatedAt = r.now()
	r.accounts[id] = account
	return nil
}

type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]models.Session), now: time.Now}
}

func (r *MemorySessions) Create(_ context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	session.CreatedAt = now
	for id, existing := range r.sessions {
		if existing.UserID == session.UserID && existing.DeviceID == session.DeviceID {
			session.CreatedAt = existing.CreatedAt
			delete(r.sessions, id)
		}
	}
	session.LastSeenAt = now
	r.sessions[session.ID] = session
	return nil
}

func (r *MemorySessions) GetByID(_ context.Context, id string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (r *MemorySessions) FindByRefreshHash(_ context.Context, refreshHash []byte) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if bytes.Equal(session.RefreshTokenHash, refreshHash) {
			return session, nil
		}
	}
	return models.Session{}, ErrSessionNotFound
}

func (r *MemorySessions) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemorySessions) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []models.Session
	for _, session := range r.sessions {
		if session.UserID == userID {
			owned = append(owned, session)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].LastSeenAt.After(owned[j].LastSeenAt)
	})
	for i := keepLatest; i < len(owned); i++ {
		delete(r.sessions, owned[i].ID)
	}
	return nil
}

func (r *MemorySessions) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, session := range r.sessions {
		if !session.ExpiresAt.After(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemorySessions) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		session.LastSeenAt = r.now()
		r.sessions[id] = session
	}
	return nil
}
