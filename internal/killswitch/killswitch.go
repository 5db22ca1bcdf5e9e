// Package killswitch polls a sentinel file on disk; when present, it pauses
// all new entries (but does not itself close open positions) and invokes a
// callback with the operator-supplied reason.
package killswitch

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultReason = "kill switch file detected"

// Monitor polls Path every PollInterval; when the file exists it reads the
// reason text, deletes the file, marks itself active, and fires the
// callback. Polling continues after a trip until Stop is called, so a new
// sentinel file trips it again.
type Monitor struct {
	Path         string
	PollInterval time.Duration

	active atomic.Bool
	mu     sync.Mutex
	reason string
	onTrip func(reason string)
	stopCh chan struct{}
}

// NewMonitor constructs a monitor against the given sentinel path.
func NewMonitor(path string, pollInterval time.Duration, onTrip func(reason string)) *Monitor {
	return &Monitor{Path: path, PollInterval: pollInterval, onTrip: onTrip}
}

// Start launches the polling loop in a goroutine; it runs until Stop is
// called or the process exits.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stopCh != nil {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	ticker := time.NewTicker(m.PollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkOnce()
			case <-stopCh:
				return
			}
		}
	}()

	log.Info().Str("path", m.Path).Dur("poll_interval", m.PollInterval).Msg("🔑 kill switch monitor started")
}

// Stop halts the polling loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

func (m *Monitor) checkOnce() {
	data, err := os.ReadFile(m.Path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("path", m.Path).Msg("failed to read kill switch file")
		return
	}

	reason := strings.TrimSpace(string(data))
	if reason == "" {
		reason = defaultReason
	}

	if err := os.Remove(m.Path); err != nil {
		log.Warn().Err(err).Str("path", m.Path).Msg("failed to remove kill switch file after trigger")
	}

	m.mu.Lock()
	m.reason = reason
	m.mu.Unlock()
	m.active.Store(true)

	log.Error().Str("reason", reason).Msg("🚨🚨🚨 KILL SWITCH TRIGGERED 🚨🚨🚨")

	if m.onTrip != nil {
		m.onTrip(reason)
	}
}

// Active reports whether the kill switch is currently tripped.
func (m *Monitor) Active() bool {
	return m.active.Load()
}

// Reason returns the last trigger's reason text.
func (m *Monitor) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Clear resets the tripped state after an operator has resumed trading.
func (m *Monitor) Clear() {
	m.active.Store(false)
	m.mu.Lock()
	m.reason = ""
	m.mu.Unlock()
}

// Trigger writes the sentinel file with the given reason, for use by an
// operator CLI or emergency-stop endpoint.
func Trigger(path, reason string) error {
	if reason == "" {
		reason = defaultReason
	}
	content := fmt.Sprintf("%s\ntriggered_at=%s\n", reason, time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(path, []byte(content), 0o644)
}

// Status reports whether the sentinel file currently exists and, if so,
// its reason text, without consuming it.
func Status(path string) (active bool, reason string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, ""
	}
	return true, strings.TrimSpace(string(data))
}

// ClearFile removes the sentinel file without invoking any callback, for
// an operator cancelling a trigger before the monitor has polled it.
func ClearFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
