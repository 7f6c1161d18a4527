// ABOUTME: Declarative route authorization policy evaluated longest-prefix-first
// ABOUTME: Maps path prefixes to required role sets and rejects before handlers run

package auth

import (
	"net/http"
	"sort"
	"strings"

	"github.com/shieldsync/shieldsync/internal/store"
)

// Rule grants access to a path prefix. An empty Roles set means public; a
// nil-less populated set means the principal's role must be in it.
type Rule struct {
	Prefix string
	Public bool
	Roles  []string
}

// Policy is a static table of path-prefix rules. Evaluation picks the
// longest matching prefix; a path matching no rule requires authentication
// with any role.
type Policy struct {
	rules []Rule
}

// DefaultPolicy returns the route policy for the shieldsync HTTP surface.
func DefaultPolicy() *Policy {
	anyRole := []string{store.RoleUser, store.RoleAdmin, store.RoleFederated}
	return NewPolicy([]Rule{
		{Prefix: "/", Public: true},
		{Prefix: "/index.html", Public: true},
		{Prefix: "/error", Public: true},
		{Prefix: "/hello", Public: true},
		{Prefix: "/healthz", Public: true},
		{Prefix: "/auth/", Public: true},
		{Prefix: "/users/register", Public: true},
		{Prefix: "/users/login", Public: true},
		{Prefix: "/oauth2/", Public: true},
		{Prefix: "/login/oauth2/", Public: true},
		{Prefix: "/admin/", Roles: []string{store.RoleAdmin}},
		{Prefix: "/users", Roles: []string{store.RoleAdmin}},
		{Prefix: "/users/profile", Roles: anyRole},
		{Prefix: "/user/", Roles: anyRole},
		{Prefix: "/notes", Roles: anyRole},
		{Prefix: "/api/stats", Roles: anyRole},
	})
}

// NewPolicy builds a policy from rules. Rules are sorted so that longer
// prefixes are consulted first.
func NewPolicy(rules []Rule) *Policy {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Policy{rules: sorted}
}

// match returns the longest-prefix rule for path, or nil. A prefix ending in
// "/" matches the whole subtree; any other prefix matches the path itself and
// its descendants. The bare "/" rule matches only the root path, so unlisted
// routes fall through to the authenticated-any-role default.
func (p *Policy) match(path string) *Rule {
	for i := range p.rules {
		r := &p.rules[i]
		switch {
		case r.Prefix == "/":
			if path == "/" {
				return r
			}
		case strings.HasSuffix(r.Prefix, "/"):
			if path == r.Prefix || strings.HasPrefix(path, r.Prefix) {
				return r
			}
		default:
			if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
				return r
			}
		}
	}
	return nil
}

// Check evaluates the policy for a path and principal. It returns the HTTP
// status to reject with (401 or 403), or 0 when the request may proceed.
func (p *Policy) Check(path string, principal *Principal) int {
	rule := p.match(path)
	if rule != nil && rule.Public {
		return 0
	}

	if principal == nil || !principal.Authenticated {
		return http.StatusUnauthorized
	}

	// Default for unmatched paths: authenticated, any role
	if rule == nil || len(rule.Roles) == 0 {
		return 0
	}

	for _, role := range rule.Roles {
		if principal.Role == role {
			return 0
		}
	}
	return http.StatusForbidden
}

// Middleware enforces the policy before the request reaches its handler.
// Must run after the authentication gateway.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch p.Check(r.URL.Path, PrincipalFromContext(r.Context())) {
		case http.StatusUnauthorized:
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
		case http.StatusForbidden:
			http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
