package authz

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache store labels used for metrics.
const (
	cacheStoreAdmin       = "admin"
	cacheStorePermissions = "permissions"
	cacheStoreDecisions   = "decisions"
)

// subjectKey identifies a (tenant, user) pair. A comparable struct key
// avoids the collision pitfalls of concatenated strings and makes
// targeted invalidation cheap.
type subjectKey struct {
	TenantID string
	UserID   int64
}

// decisionKey identifies one evaluated (actor, resource, permission)
// tuple.
type decisionKey struct {
	subject        subjectKey
	ResourceKey    string
	PermissionCode string
}

// CacheConfig bounds the three decision cache stores.
type CacheConfig struct {
	AdminSize       int
	AdminTTL        time.Duration
	PermissionsSize int
	PermissionsTTL  time.Duration
	DecisionsSize   int
	DecisionsTTL    time.Duration
}

// DefaultCacheConfig returns the production defaults. The short decision
// TTL bounds staleness from grant mutations that bypass the
// invalidation signal.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		AdminSize:       4096,
		AdminTTL:        time.Minute,
		PermissionsSize: 4096,
		PermissionsTTL:  time.Minute,
		DecisionsSize:   16384,
		DecisionsTTL:    30 * time.Second,
	}
}

// CacheRecorder receives hit/miss signals per store. Implementations
// must be safe for concurrent use.
type CacheRecorder interface {
	CacheHit(store string)
	CacheMiss(store string)
}

// DecisionCache memoizes evaluator outputs per (tenant, user). The three
// stores are independent: the administrative bypass flag, the
// materialized ALLOW permission list, and raw per-tuple decisions.
//
// There is no single-flight de-duplication: concurrent misses for the
// same key recompute redundantly, so compute callbacks must be pure and
// side-effect free. Last writer wins per key.
type DecisionCache struct {
	admin       *lru.LRU[subjectKey, bool]
	permissions *lru.LRU[subjectKey, []string]
	decisions   *lru.LRU[decisionKey, Decision]
	recorder    CacheRecorder
}

// NewDecisionCache constructs the cache with the given bounds.
func NewDecisionCache(cfg CacheConfig) *DecisionCache {
	if cfg.AdminSize <= 0 || cfg.PermissionsSize <= 0 || cfg.DecisionsSize <= 0 {
		cfg = DefaultCacheConfig()
	}
	return &DecisionCache{
		admin:       lru.NewLRU[subjectKey, bool](cfg.AdminSize, nil, cfg.AdminTTL),
		permissions: lru.NewLRU[subjectKey, []string](cfg.PermissionsSize, nil, cfg.PermissionsTTL),
		decisions:   lru.NewLRU[decisionKey, Decision](cfg.DecisionsSize, nil, cfg.DecisionsTTL),
	}
}

// SetRecorder installs a hit/miss recorder. Call before the cache is
// shared between goroutines.
func (c *DecisionCache) SetRecorder(r CacheRecorder) {
	c.recorder = r
}

func (c *DecisionCache) hit(store string) {
	if c.recorder != nil {
		c.recorder.CacheHit(store)
	}
}

func (c *DecisionCache) miss(store string) {
	if c.recorder != nil {
		c.recorder.CacheMiss(store)
	}
}

// AdminFlag returns the cached administrative bypass flag, computing and
// storing it on miss.
func (c *DecisionCache) AdminFlag(tenantID string, userID int64, compute func() (bool, error)) (bool, error) {
	key := subjectKey{TenantID: tenantID, UserID: userID}
	if v, ok := c.admin.Get(key); ok {
		c.hit(cacheStoreAdmin)
		return v, nil
	}
	c.miss(cacheStoreAdmin)
	v, err := compute()
	if err != nil {
		return false, err
	}
	c.admin.Add(key, v)
	return v, nil
}

// PermissionList returns the cached materialized ALLOW list, computing
// and storing it on miss.
func (c *DecisionCache) PermissionList(tenantID string, userID int64, compute func() ([]string, error)) ([]string, error) {
	key := subjectKey{TenantID: tenantID, UserID: userID}
	if v, ok := c.permissions.Get(key); ok {
		c.hit(cacheStorePermissions)
		return v, nil
	}
	c.miss(cacheStorePermissions)
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.permissions.Add(key, v)
	return v, nil
}

// Decision returns the cached decision for one tuple, computing and
// storing it on miss.
func (c *DecisionCache) Decision(actor Actor, resourceKey, permissionCode string, compute func() (Decision, error)) (Decision, error) {
	key := decisionKey{
		subject:        subjectKey{TenantID: actor.TenantID, UserID: actor.UserID},
		ResourceKey:    resourceKey,
		PermissionCode: permissionCode,
	}
	if v, ok := c.decisions.Get(key); ok {
		c.hit(cacheStoreDecisions)
		return v, nil
	}
	c.miss(cacheStoreDecisions)
	v, err := compute()
	if err != nil {
		return Decision{}, err
	}
	c.decisions.Add(key, v)
	return v, nil
}

// Invalidate clears all three stores for the (tenant, user) pair. The
// clear is atomic with respect to subsequent reads; in-flight
// computations may still store a value computed from the old data, which
// the TTL bounds.
func (c *DecisionCache) Invalidate(tenantID string, userID int64) {
	key := subjectKey{TenantID: tenantID, UserID: userID}
	c.admin.Remove(key)
	c.permissions.Remove(key)
	for _, dk := range c.decisions.Keys() {
		if dk.subject == key {
			c.decisions.Remove(dk)
		}
	}
}

// Purge empties every store. Used when the policy data is reloaded
// wholesale.
func (c *DecisionCache) Purge() {
	c.admin.Purge()
	c.permissions.Purge()
	c.decisions.Purge()
}
