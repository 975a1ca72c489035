package authserver

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Scopes understood by the gateway.
const (
	ScopeRead  = "mcp:read"
	ScopeWrite = "mcp:write"
	ScopeAdmin = "mcp:admin"
)

// DefaultScopes is the supported scope set when configuration names none.
var DefaultScopes = NewScopes(ScopeRead, ScopeWrite, ScopeAdmin)

// Scopes is a sorted set of scope names.
type Scopes []string

// NewScopes builds a normalized set from the given names.
func NewScopes(items ...string) Scopes {
	items = lo.Filter(items, func(item string, _ int) bool {
		return strings.TrimSpace(item) != ""
	})
	set := lo.Uniq(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
	sort.Strings(set)
	return Scopes(set)
}

// ParseScopes parses a space-delimited scope parameter (RFC 6749 section 3.3).
func ParseScopes(raw string) Scopes {
	return NewScopes(strings.Fields(raw)...)
}

// String renders the set as a scope parameter.
func (s Scopes) String() string {
	return strings.Join(s, " ")
}

// Contains reports whether scope is in the set.
func (s Scopes) Contains(scope string) bool {
	return lo.Contains(s, scope)
}

// Intersect returns the scopes present in both sets.
func (s Scopes) Intersect(other Scopes) Scopes {
	return NewScopes(lo.Intersect(s, other)...)
}

// SubsetOf reports whether every scope of s is in other.
func (s Scopes) SubsetOf(other Scopes) bool {
	return lo.Every(other, s)
}

// Empty reports whether the set has no scopes.
func (s Scopes) Empty() bool {
	return len(s) == 0
}
