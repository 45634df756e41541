// Package identity holds the account-name verification policy. The policy
// sits behind Matcher so a stricter comparison can replace it without
// touching the saga.
package identity

import "strings"

// Matcher decides whether a claimed vendor name matches the account name
// the provider resolved.
type Matcher interface {
	Match(claimedName, resolvedName string) bool
}

// TokenMatcher is the production policy: case-insensitive, every
// whitespace-separated token of the claimed name must occur as a substring
// of the resolved name. Deliberately permissive: "Nnamdi Aneke" matches
// "NNAMDI GOODNESS ANEKE". Short or common tokens can false-positive;
// kept for compatibility with the resolution data vendors register under.
type TokenMatcher struct{}

func (TokenMatcher) Match(claimedName, resolvedName string) bool {
	resolved := strings.ToLower(resolvedName)
	if resolved == "" && strings.TrimSpace(claimedName) != "" {
		return false
	}
	// No tokens to check matches vacuously. Callers validate that vendor
	// names are non-empty before the saga runs.
	for _, token := range strings.Fields(strings.ToLower(claimedName)) {
		if !strings.Contains(resolved, token) {
			return false
		}
	}
	return true
}
