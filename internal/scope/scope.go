// Package scope holds the static catalog of grantable permission strings and
// the set operations the authorization server performs on them.
package scope

import (
	"regexp"
	"strings"
)

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-].
// - Length 1..64.
//
// Examples valid: read:profile, write:follows, a, a_b-c.d:scope2
// Examples invalid: ;hack, BAD, bad space, :leader, trailer:, "", 65+ chars.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidName returns true if the scope name matches the allowed pattern.
func ValidName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// DefaultCatalog lists every permission the platform can delegate to a
// third-party application. Operators narrow this per application via
// ApprovedScopes; nothing outside this catalog is ever grantable.
var DefaultCatalog = []string{
	"read:profile",
	"write:profile",
	"read:follows",
	"write:follows",
	"read:likes",
	"write:likes",
	"read:notifications",
	"read:presence",
}

// Registry validates requested scopes against the known catalog.
type Registry struct {
	known map[string]struct{}
	names []string
}

// NewRegistry builds a registry from the given catalog. Names that don't pass
// ValidName are dropped (a malformed catalog entry must never become grantable).
func NewRegistry(catalog []string) *Registry {
	r := &Registry{known: make(map[string]struct{}, len(catalog))}
	for _, name := range catalog {
		if !ValidName(name) {
			continue
		}
		if _, dup := r.known[name]; dup {
			continue
		}
		r.known[name] = struct{}{}
		r.names = append(r.names, name)
	}
	return r
}

// Default returns a registry over DefaultCatalog.
func Default() *Registry {
	return NewRegistry(DefaultCatalog)
}

// Names returns the catalog in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Known reports whether name is in the catalog.
func (r *Registry) Known(name string) bool {
	_, ok := r.known[name]
	return ok
}

// ValidateList partitions requested scope strings into known and unknown.
// Unknown strings are reported back, never silently dropped. Order is
// preserved and duplicates collapsed.
func (r *Registry) ValidateList(requested []string) (valid, invalid []string) {
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if r.Known(s) {
			valid = append(valid, s)
		} else {
			invalid = append(invalid, s)
		}
	}
	return valid, invalid
}

// Intersect returns the subset of valid that the application is approved to
// request, preserving the order of valid. Callers must treat a non-empty
// request with an empty intersection as invalid_scope.
func Intersect(valid, approved []string) []string {
	if len(valid) == 0 || len(approved) == 0 {
		return nil
	}
	ok := make(map[string]struct{}, len(approved))
	for _, s := range approved {
		ok[s] = struct{}{}
	}
	var out []string
	for _, s := range valid {
		if _, has := ok[s]; has {
			out = append(out, s)
		}
	}
	return out
}

// Split parses a space-delimited OAuth2 scope parameter into its parts.
func Split(s string) []string {
	return strings.Fields(s)
}

// Join renders a scope set as the space-delimited wire form.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}
