package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	// TokenByteLength is the entropy drawn per token; hex-encoding yields
	// TokenStringLength characters.
	TokenByteLength   = 32
	TokenStringLength = 64
)

// GenerateToken returns 32 bytes of cryptographically secure randomness as
// a 64-character lowercase hex string. If the entropy source fails the
// error propagates; there is deliberately no weaker fallback.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read secure random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateCSRFToken reports whether candidate matches expected. Both must
// be exactly 64 characters. The comparison is constant-time so the check
// leaks no information about how much of a guessed token was correct.
func ValidateCSRFToken(candidate, expected string) bool {
	if len(candidate) != TokenStringLength || len(expected) != TokenStringLength {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}

// csrfTokenEntry stores token metadata
type csrfTokenEntry struct {
	userID string
	expiry time.Time
}

// CSRFTokenManager issues per-user CSRF tokens and validates them on
// state-changing requests. Expired tokens are swept by a background ticker.
type CSRFTokenManager struct {
	mu          sync.RWMutex
	validTokens map[string]*csrfTokenEntry
	tokenTTL    time.Duration
	stopCleanup chan struct{}
}

// NewCSRFTokenManager creates a new CSRF token manager
func NewCSRFTokenManager() *CSRFTokenManager {
	m := &CSRFTokenManager{
		validTokens: make(map[string]*csrfTokenEntry),
		tokenTTL:    15 * time.Minute,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupExpiredTokens()
	return m
}

// IssueToken creates and registers a new CSRF token for a user.
func (m *CSRFTokenManager) IssueToken(userID string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.validTokens[token] = &csrfTokenEntry{
		userID: userID,
		expiry: time.Now().Add(m.tokenTTL),
	}
	m.mu.Unlock()

	return token, nil
}

// ValidateToken checks that the token was issued to this user and has not
// expired. Expired tokens are removed as a side effect.
func (m *CSRFTokenManager) ValidateToken(token, userID string) bool {
	m.mu.RLock()
	entry, exists := m.validTokens[token]
	m.mu.RUnlock()

	if !exists || entry.userID != userID {
		return false
	}

	if time.Now().After(entry.expiry) {
		m.mu.Lock()
		delete(m.validTokens, token)
		m.mu.Unlock()
		return false
	}

	return true
}

// RevokeToken invalidates a token after a state-changing request consumed it.
func (m *CSRFTokenManager) RevokeToken(token string) {
	m.mu.Lock()
	delete(m.validTokens, token)
	m.mu.Unlock()
}

// Stop terminates the cleanup goroutine.
func (m *CSRFTokenManager) Stop() {
	close(m.stopCleanup)
}

func (m *CSRFTokenManager) cleanupExpiredTokens() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for token, entry := range m.validTokens {
				if now.After(entry.expiry) {
					delete(m.validTokens, token)
				}
			}
			m.mu.Unlock()
		case <-m.stopCleanup:
			return
		}
	}
}
