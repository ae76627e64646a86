package authz

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode controls what happens when no endpoint policy matches a request.
type Mode int32

const (
	// ModeRelax requires the administrative bypass role for unmatched
	// endpoints.
	ModeRelax Mode = iota
	// ModeStrict denies unmatched endpoints unconditionally.
	ModeStrict
)

// String returns the configuration label for the mode.
func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "relax"
}

// ParseMode maps a configuration label onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relax":
		return ModeRelax, nil
	case "strict":
		return ModeStrict, nil
	default:
		return ModeRelax, fmt.Errorf("authz: unknown mode %q", s)
	}
}

// Requirement names one (resource, permission) pair an endpoint demands.
type Requirement struct {
	ResourceKey    string
	PermissionCode string
}

type endpointPolicy struct {
	pattern     *regexp.Regexp
	requirement Requirement
}

// Registry maps (method, path pattern) onto required permissions.
// Patterns are fully anchored regular expressions evaluated in
// registration order; duplicates are allowed and all matches are
// returned. Lookups and registrations may interleave at runtime.
type Registry struct {
	mu       sync.RWMutex
	byMethod map[string][]endpointPolicy
	mode     atomic.Int32
}

// NewRegistry returns an empty registry in the given fallback mode.
func NewRegistry(mode Mode) *Registry {
	r := &Registry{byMethod: make(map[string][]endpointPolicy)}
	r.mode.Store(int32(mode))
	return r
}

// Register compiles pathPattern as a whole-path match and appends it to
// the method's ordered policy list.
func (r *Registry) Register(method, pathPattern, resourceKey, permissionCode string) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return errors.New("authz: registry: method required")
	}
	if resourceKey == "" || permissionCode == "" {
		return errors.New("authz: registry: resource key and permission code required")
	}
	pattern, err := regexp.Compile(`\A(?:` + pathPattern + `)\z`)
	if err != nil {
		return fmt.Errorf("authz: registry: compile %q: %w", pathPattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMethod[method] = append(r.byMethod[method], endpointPolicy{
		pattern:     pattern,
		requirement: Requirement{ResourceKey: resourceKey, PermissionCode: permissionCode},
	})
	return nil
}

// FindPolicies returns every requirement whose method and pattern match,
// in registration order. An empty result is a valid outcome; the
// enforcement gateway applies the fallback mode.
func (r *Registry) FindPolicies(method, path string) []Requirement {
	method = strings.ToUpper(method)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Requirement
	for _, p := range r.byMethod[method] {
		if p.pattern.MatchString(path) {
			out = append(out, p.requirement)
		}
	}
	return out
}

// Mode returns the current fallback mode.
func (r *Registry) Mode() Mode {
	return Mode(r.mode.Load())
}

// SetMode switches the fallback mode at runtime. The new mode applies to
// subsequent lookups.
func (r *Registry) SetMode(mode Mode) {
	r.mode.Store(int32(mode))
}

// Len returns the number of registered policies across all methods.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, policies := range r.byMethod {
		n += len(policies)
	}
	return n
}
