package features

import (
	"sync"

	"reefops/internal/models"
)

// Flags controls optional subsystems at runtime.
type Flags struct {
	mu sync.RWMutex

	emailNotifications bool
	messageSearch      bool
}

// FromConfig builds the flag set from configuration.
func FromConfig(cfg models.FeatureConfig) *Flags {
	return &Flags{
		emailNotifications: cfg.EmailNotifications,
		messageSearch:      cfg.MessageSearch,
	}
}

// EmailNotifications reports whether the SendGrid mailer is active.
func (f *Flags) EmailNotifications() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.emailNotifications
}

// MessageSearch reports whether the search endpoint is served.
func (f *Flags) MessageSearch() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.messageSearch
}

// SetEmailNotifications toggles the mailer, used when the circuit breaker
// trips permanently or an operator disables email at runtime.
func (f *Flags) SetEmailNotifications(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailNotifications = on
}
