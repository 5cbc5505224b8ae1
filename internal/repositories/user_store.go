package repositories

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tillworks/tillguard/internal/models"
)

// UserStore is an in-memory mirror of the accounts held by the hosted
// backend. It exists so the login flow around the security core can run
// self-contained; production deployments resolve users remotely.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]*models.User)}
}

// Create adds a user. Email is the unique key.
func (s *UserStore) Create(user *models.User) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, models.ErrConflict
	}

	stored := *user
	stored.Email = email
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now()
	s.byEmail[email] = &stored

	copied := stored
	return &copied, nil
}

// GetByEmail looks a user up by normalized email.
func (s *UserStore) GetByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.byEmail[email]
	if !exists {
		return nil, models.ErrNotFound
	}

	copied := *user
	return &copied, nil
}

// UpdatePasswordHash replaces a user's stored credential.
func (s *UserStore) UpdatePasswordHash(email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byEmail[email]
	if !exists {
		return models.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}
