package cache

import (
	"strings"
	"sync"

	"wasteboard/models"
)

// UserCache caches users by lowercase username and by id.
type UserCache struct {
	mu     sync.RWMutex
	byName map[string]models.User
	byID   map[int64]models.User
}

func NewUserCache() *UserCache {
	return &UserCache{
		byName: make(map[string]models.User),
		byID:   make(map[int64]models.User),
	}
}

func (c *UserCache) Add(user models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byID[user.ID]; ok {
		delete(c.byName, strings.ToLower(prev.Username))
	}
	c.byName[strings.ToLower(user.Username)] = user
	c.byID[user.ID] = user
}

func (c *UserCache) Get(username string) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.byName[strings.ToLower(username)]
	return u, ok
}

func (c *UserCache) GetByID(id int64) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.byID[id]
	return u, ok
}

func (c *UserCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byID[id]; ok {
		delete(c.byName, strings.ToLower(prev.Username))
		delete(c.byID, id)
	}
}
