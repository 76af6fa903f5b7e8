package cache

import (
	"sync"
	"time"

	"wasteboard/models"
)

// UserSessionCache stores sessions by token.
type UserSessionCache struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewUserSessionCache() *UserSessionCache {
	return &UserSessionCache{sessions: make(map[string]models.Session)}
}

func (c *UserSessionCache) AddSession(s models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
}

func (c *UserSessionCache) FindSessionBySessionToken(token string) (models.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[token]
	return s, ok
}

func (c *UserSessionCache) DeleteSessionBySessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
}

// DeleteSessionsByUserID drops every cached session of userID, e.g. after deactivation.
func (c *UserSessionCache) DeleteSessionsByUserID(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for token, s := range c.sessions {
		if s.UserID == userID {
			delete(c.sessions, token)
			removed++
		}
	}
	return removed
}

// UpdateUser refreshes the embedded user of every cached session of user.ID.
func (c *UserSessionCache) UpdateUser(user models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, s := range c.sessions {
		if s.UserID == user.ID {
			s.User = user
			s.UserRoles = []string{user.Role}
			s.ScreenPermissions = nil
			c.sessions[token] = s
		}
	}
}

// Sweep removes sessions expired at now and returns how many were dropped.
func (c *UserSessionCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for token, s := range c.sessions {
		if now.After(s.ExpiresAt) {
			delete(c.sessions, token)
			removed++
		}
	}
	return removed
}

func (c *UserSessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
