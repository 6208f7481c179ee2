package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Pattern is a secret format. Repl is the replacement template; when empty
// the whole match becomes RedactPlaceholder.
type Pattern struct {
	Re   *regexp.Regexp
	Repl string
}

// Redactor replaces provider keys and other known secrets in strings.
// It matches both regex patterns (key formats) and literal values
// registered at runtime, such as credentials unsealed by the keyring.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []Pattern
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a pattern whose whole match is redacted.
func (r *Redactor) AddPattern(re *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, Pattern{Re: re})
}

// AddLiteral registers a secret value to redact on sight. Empty strings and
// duplicates are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.literals {
		if l == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact replaces every known secret in s with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" || r == nil {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a registered key must vanish even when it also
	// partially matches a pattern.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, p := range patterns {
		repl := p.Repl
		if repl == "" {
			repl = RedactPlaceholder
		}
		s = p.Re.ReplaceAllString(s, repl)
	}
	return s
}

// DefaultPatterns returns the provider key formats the platform handles.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Anthropic API keys and OAuth tokens.
		{Re: regexp.MustCompile(`sk-ant-[a-zA-Z0-9_\-]{20,}`)},
		// OpenAI, including project keys.
		{Re: regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_\-]{20,}`)},
		// Google API keys.
		{Re: regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)},
		// Bearer authorization values.
		{Re: regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._\-]{16,}`), Repl: "${1}" + RedactPlaceholder},
		// Keys passed in a URL query, as the Gemini API does.
		{Re: regexp.MustCompile(`([?&]key=)[^&\s"]+`), Repl: "${1}" + RedactPlaceholder},
	}
}
