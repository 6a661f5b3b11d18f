// Package security guards navigation targets against a per-flow domain
// allowlist. A blocked navigation is a hard stop: it is never retried and
// never silently bypassed.
package security

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ViolationError reports a navigation target outside the flow's allowlist.
type ViolationError struct {
	Flow      string
	URL       string
	Allowlist []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("security violation in flow %q: navigation to %s is not in the allowed domains %v",
		e.Flow, e.URL, e.Allowlist)
}

// AssertAllowed checks that rawURL's hostname is permitted by the allowlist.
// An empty allowlist permits every URL. Entries match the hostname exactly
// (case-insensitive), or as a wildcard of the form "*.domain" which matches
// the bare domain itself and any subdomain.
func AssertAllowed(rawURL string, allowlist []string, flowName string) error {
	if len(allowlist) == 0 {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return &ViolationError{Flow: flowName, URL: rawURL, Allowlist: allowlist}
	}
	host := strings.ToLower(parsed.Hostname())

	for _, entry := range allowlist {
		if hostMatches(host, strings.ToLower(strings.TrimSpace(entry))) {
			return nil
		}
	}

	return &ViolationError{Flow: flowName, URL: rawURL, Allowlist: allowlist}
}

// hostMatches reports whether host satisfies a single allowlist entry.
func hostMatches(host, entry string) bool {
	if entry == "" {
		return false
	}
	if host == entry {
		return true
	}
	if bare, ok := strings.CutPrefix(entry, "*."); ok {
		if host == bare {
			return true
		}
		g, err := glob.Compile(entry)
		if err != nil {
			return false
		}
		return g.Match(host)
	}
	return false
}
