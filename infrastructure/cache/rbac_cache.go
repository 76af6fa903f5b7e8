package cache

import (
	"sort"
	"sync"
)

// Resource is one route a role may call, named by its screen code.
type Resource struct {
	UserResourceCode string
	Path             string
	Method           string
	Role             string
}

func (r Resource) key() string { return r.Method + " " + r.Path }

// RbacRolesCache is the route grant table built while routes are registered.
type RbacRolesCache struct {
	mu     sync.RWMutex
	grants map[string]map[string]Resource
	codes  map[string]map[string]struct{}
}

func NewRbacRolesCache() *RbacRolesCache {
	return &RbacRolesCache{
		grants: make(map[string]map[string]Resource),
		codes:  make(map[string]map[string]struct{}),
	}
}

// Add grants r to role. Re-adding the same method and path is a no-op.
func (c *RbacRolesCache) Add(role string, r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grants[role] == nil {
		c.grants[role] = make(map[string]Resource)
		c.codes[role] = make(map[string]struct{})
	}
	if _, ok := c.grants[role][r.key()]; ok {
		return
	}
	c.grants[role][r.key()] = r
	c.codes[role][r.UserResourceCode] = struct{}{}
}

func (c *RbacRolesCache) GetRolesAndResources(roles []string) []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Resource, 0)
	for _, role := range roles {
		for _, r := range c.grants[role] {
			out = append(out, r)
		}
	}
	return out
}

// ScreenCodes returns the screen codes granted to roles, as used by nav rendering.
func (c *RbacRolesCache) ScreenCodes(roles []string) map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int)
	for _, role := range roles {
		for code := range c.codes[role] {
			out[code] = 1
		}
	}
	return out
}

// GetAllRouteNames returns every registered screen code.
func (c *RbacRolesCache) GetAllRouteNames() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int)
	for _, codes := range c.codes {
		for code := range codes {
			out[code] = 1
		}
	}
	return out
}

func (c *RbacRolesCache) RouteNamesSorted() []string {
	all := c.GetAllRouteNames()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
