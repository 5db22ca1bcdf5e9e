package risk

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PauseScope bounds what a pause blocks: every operation, only new entries,
// or only exits.
type PauseScope string

const (
	PauseScopeAll   PauseScope = "ALL"
	PauseScopeEntry PauseScope = "ENTRY"
	PauseScopeExit  PauseScope = "EXIT"
)

// PauseController tracks operator- or kill-switch-initiated pauses,
// independent of the CircuitBreaker's automatic risk-driven trips.
type PauseController struct {
	mu       sync.RWMutex
	adminKey string

	paused bool
	scope  PauseScope
	reason string
	since  time.Time
}

// NewPauseController builds a controller gated by adminKey for admin-only
// actions. An empty adminKey disables AdminPause/AdminResume entirely.
func NewPauseController(adminKey string) *PauseController {
	return &PauseController{adminKey: adminKey}
}

// Pause halts operations within scope until Resume is called. Internal
// callers (the bot's own kill-switch wiring) use this directly; external
// callers go through AdminPause.
func (p *PauseController) Pause(scope PauseScope, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.scope = scope
	p.reason = reason
	p.since = time.Now()

	log.Warn().Str("scope", string(scope)).Str("reason", reason).Msg("⏸️ trading paused")
}

// Resume clears any active pause.
func (p *PauseController) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasReason := p.reason
	p.paused = false
	p.reason = ""

	log.Info().Str("previous_reason", wasReason).Msg("▶️ trading resumed")
}

// AdminPause is the admin-API-gated entry point: providedKey must match the
// configured admin key via constant-time comparison.
func (p *PauseController) AdminPause(providedKey string, scope PauseScope, reason string) error {
	if err := p.checkAdminKey(providedKey); err != nil {
		return err
	}
	p.Pause(scope, reason)
	return nil
}

// AdminResume is the admin-API-gated counterpart to AdminPause.
func (p *PauseController) AdminResume(providedKey string) error {
	if err := p.checkAdminKey(providedKey); err != nil {
		return err
	}
	p.Resume()
	return nil
}

func (p *PauseController) checkAdminKey(providedKey string) error {
	if p.adminKey == "" {
		return fmt.Errorf("admin actions disabled: no admin API key configured")
	}
	if subtle.ConstantTimeCompare([]byte(providedKey), []byte(p.adminKey)) != 1 {
		return fmt.Errorf("invalid admin API key")
	}
	return nil
}

// CheckPaused reports whether op ("entry", "exit", or any operation name) is
// currently blocked and, if so, why.
func (p *PauseController) CheckPaused(op string) (bool, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.paused {
		return false, ""
	}
	if p.scope == PauseScopeAll {
		return true, p.reason
	}
	if strings.EqualFold(string(p.scope), op) {
		return true, p.reason
	}
	return false, ""
}
