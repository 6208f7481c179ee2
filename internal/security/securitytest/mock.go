// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/crew/internal/security"
)

// NewTestRedactor returns a Redactor with no patterns, so test fixtures
// that look like keys are left intact.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// NewTestKeyring returns a keyring with a fixed all-zero key.
func NewTestKeyring() *security.Keyring {
	k, err := security.NewKeyring(make([]byte, 32))
	if err != nil {
		panic(err)
	}
	return k
}

// NewTestAuditLogger returns an AuditLogger that records events in memory
// and a function returning a snapshot of them.
func NewTestAuditLogger() (*security.AuditLogger, func() []security.AuditEvent) {
	var (
		mu     sync.Mutex
		events []security.AuditEvent
	)
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	return logger, func() []security.AuditEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]security.AuditEvent(nil), events...)
	}
}
