package browser

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Allowlist restricts navigate_to to matching hosts. Patterns are globs
// over host names with '.' as separator, so "*.example.com" matches one
// subdomain level and "**.example.com" any depth. An empty allowlist
// permits every host.
type Allowlist struct {
	patterns []string
	globs    []glob.Glob
}

// NewAllowlist compiles host patterns.
func NewAllowlist(patterns []string) (*Allowlist, error) {
	a := &Allowlist{}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern %q: %w", pattern, err)
		}
		a.patterns = append(a.patterns, pattern)
		a.globs = append(a.globs, g)
	}
	return a, nil
}

// Allows reports whether host may be opened.
func (a *Allowlist) Allows(host string) bool {
	if a == nil || len(a.globs) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, g := range a.globs {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Patterns returns the compiled patterns.
func (a *Allowlist) Patterns() []string {
	if a == nil {
		return nil
	}
	return a.patterns
}
