package voicesession

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// The sweep scheduler is created lazily with the first session and stopped
// when the registry empties, so an idle process keeps no timer alive.

func (m *Manager) startSweepLocked() {
	if m.sweep != nil {
		return
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", m.sweepInterval)
	if _, err := c.AddFunc(spec, func() {
		m.SweepIdleSessions(context.Background())
	}); err != nil {
		log.Error().Err(err).Str("spec", spec).Msg("Failed to schedule idle sweep")
		return
	}
	c.Start()
	m.sweep = c

	log.Debug().Dur("interval", m.sweepInterval).Msg("Idle sweep started")
}

func (m *Manager) stopSweepLocked() {
	if m.sweep == nil {
		return
	}
	m.sweep.Stop()
	m.sweep = nil

	log.Debug().Msg("Idle sweep stopped")
}

// SweepIdleSessions force-ends every session older than the idle timeout
// with reason timeout, and returns how many it ended. The scheduler calls
// this periodically; it is exported so operators and tests can trigger it
// directly.
func (m *Manager) SweepIdleSessions(ctx context.Context) int {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []string
	for sessionID, s := range m.sessions {
		if now.Sub(s.startedAt) >= m.idleTimeout {
			expired = append(expired, sessionID)
		}
	}

	for _, sessionID := range expired {
		log.Warn().
			Str("session_id", sessionID).
			Dur("idle_timeout", m.idleTimeout).
			Msg("Force-ending idle session")
		m.endLocked(ctx, sessionID, EndTimeout)
	}

	return len(expired)
}
