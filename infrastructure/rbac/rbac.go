package rbac

import (
	"strings"

	"wasteboard/infrastructure/cache"
)

const (
	RoleAdmin            = "admin"
	RoleWastebankCentral = "wastebank_central"
	RoleWastebankUnit    = "wastebank_unit"
	RoleCollectorCentral = "collector_central"
	RoleCollectorUnit    = "collector_unit"
	RoleCustomer         = "customer"
)

// Unit kinds a user of each role must belong to. Roles absent from the map carry no unit.
var roleUnitKinds = map[string]string{
	RoleWastebankCentral: "wastebank_central",
	RoleWastebankUnit:    "wastebank_unit",
	RoleCollectorUnit:    "collector_unit",
}

var roleSlugs = map[string]string{
	RoleAdmin:            "admin",
	RoleWastebankCentral: "wastebank-central",
	RoleWastebankUnit:    "wastebank-unit",
	RoleCollectorCentral: "collector-central",
	RoleCollectorUnit:    "collector-unit",
	RoleCustomer:         "customer",
}

var roleLabels = map[string]string{
	RoleAdmin:            "Administrator",
	RoleWastebankCentral: "Central Waste Bank",
	RoleWastebankUnit:    "Waste Bank Unit",
	RoleCollectorCentral: "Collector Central",
	RoleCollectorUnit:    "Collector",
	RoleCustomer:         "Customer",
}

// Roles lists every role in display order.
func Roles() []string {
	return []string{RoleAdmin, RoleWastebankCentral, RoleWastebankUnit, RoleCollectorCentral, RoleCollectorUnit, RoleCustomer}
}

func IsValidRole(role string) bool {
	_, ok := roleSlugs[role]
	return ok
}

// RequiredUnitKind returns the unit kind a role must be attached to, if any.
func RequiredUnitKind(role string) (string, bool) {
	kind, ok := roleUnitKinds[role]
	return kind, ok
}

func Slug(role string) string {
	return roleSlugs[role]
}

func Label(role string) string {
	if l, ok := roleLabels[role]; ok {
		return l
	}
	return role
}

// HomePath is where a role lands after login.
func HomePath(role string) string {
	switch role {
	case RoleAdmin:
		return "/dashboard/admin/users"
	case "":
		return "/login"
	}
	if slug, ok := roleSlugs[role]; ok {
		return "/dashboard/" + slug
	}
	return "/login"
}

// IsStaff reports whether role operates on behalf of the business rather than as a customer.
func IsStaff(role string) bool {
	return role != RoleCustomer && IsValidRole(role)
}

// Rbac stores route resources in cache.
type Rbac struct {
	cache *cache.RbacRolesCache
}

func New(c *cache.RbacRolesCache) *Rbac {
	return &Rbac{cache: c}
}

func (r *Rbac) Add(role, code, method, path string) {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.Add(role, cache.Resource{
		Role:             role,
		UserResourceCode: code,
		Method:           strings.ToUpper(method),
		Path:             path,
	})
}

// Grant registers the same resource for several roles.
func (r *Rbac) Grant(roles []string, code, method, path string) {
	for _, role := range roles {
		r.Add(role, code, method, path)
	}
}

// Allowed checks roles against the registered resources.
func (r *Rbac) Allowed(roles []string, urlPath, method string) bool {
	if r == nil || r.cache == nil || len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if role == RoleAdmin {
			return true
		}
	}
	return ValidateResourceAccess(r.cache.GetRolesAndResources(roles), urlPath, method)
}

func ValidateResourceAccess(resources []cache.Resource, urlPath, method string) bool {
	method = strings.ToUpper(method)
	for _, res := range resources {
		if res.Method != method {
			continue
		}
		if matchPath(res.Path, urlPath) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	patternSeg := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSeg := strings.Split(strings.Trim(path, "/"), "/")

	// Segment wildcard matching: /a/*/c and /a/*/*/d.
	if len(patternSeg) == len(pathSeg) {
		for i := range patternSeg {
			if patternSeg[i] == "*" {
				continue
			}
			if patternSeg[i] != pathSeg[i] {
				return false
			}
		}
		return true
	}

	// Trailing ** matches any deeper suffix.
	if n := len(patternSeg); n > 0 && patternSeg[n-1] == "**" {
		if len(pathSeg) < n-1 {
			return false
		}
		for i := 0; i < n-1; i++ {
			if patternSeg[i] != "*" && patternSeg[i] != pathSeg[i] {
				return false
			}
		}
		return true
	}

	return false
}
