package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrURLBlocked is returned when a URL is denied by the filter.
var ErrURLBlocked = errors.New("URL blocked by filter")

// URLFilterConfig configures the filter the network tools apply before any
// outbound request.
type URLFilterConfig struct {
	// AllowDomains restricts fetches to these domains and their
	// subdomains. Empty allows any public host.
	AllowDomains []string `yaml:"allow_domains"`

	// DenyDomains always wins over AllowDomains.
	DenyDomains []string `yaml:"deny_domains"`

	// AllowPrivate permits loopback, private and link-local addresses.
	AllowPrivate bool `yaml:"allow_private"`
}

// URLFilter checks URLs against scheme, address and domain rules.
type URLFilter struct {
	allow        []string
	deny         []string
	allowPrivate bool
}

// NewURLFilter creates a URL filter from cfg.
func NewURLFilter(cfg URLFilterConfig) *URLFilter {
	return &URLFilter{
		allow:        normalizeDomains(cfg.AllowDomains),
		deny:         normalizeDomains(cfg.DenyDomains),
		allowPrivate: cfg.AllowPrivate,
	}
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Check returns nil when rawURL may be fetched, or an error wrapping
// ErrURLBlocked.
func (f *URLFilter) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", ErrURLBlocked, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrURLBlocked, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty hostname", ErrURLBlocked)
	}

	if !f.allowPrivate && isPrivateHost(host) {
		return fmt.Errorf("%w: %s (private address)", ErrURLBlocked, host)
	}

	for _, d := range f.deny {
		if matchDomain(host, d) {
			return fmt.Errorf("%w: %s (denied)", ErrURLBlocked, host)
		}
	}

	if len(f.allow) == 0 {
		return nil
	}
	for _, a := range f.allow {
		if matchDomain(host, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (not in allow list)", ErrURLBlocked, host)
}

// isPrivateHost only inspects literal addresses and "localhost"; names are
// not resolved.
func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// matchDomain reports whether host is domain or one of its subdomains.
func matchDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
