package voicesession

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/voxtel/voxtel/internal/metrics"
	"github.com/voxtel/voxtel/pkg/pricing"
	"github.com/voxtel/voxtel/pkg/tracesink"
)

const (
	// DefaultIdleTimeout force-ends sessions whose client disconnected
	// without an explicit end event.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultSweepInterval is how often the idle sweep runs while at
	// least one session is active.
	DefaultSweepInterval = 5 * time.Minute
)

// Config configures a Manager. Sink is required for trace creation; the
// rest default sensibly when zero.
type Config struct {
	Sink          tracesink.Sink
	Pricing       *pricing.Table
	Metrics       *metrics.Metrics
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	DefaultModel  string
}

// CreateOptions carries the optional fields of session creation.
type CreateOptions struct {
	UserID string
	Model  string
}

// Created identifies a newly created (or already existing) session.
type Created struct {
	SessionID string `json:"sessionId"`
	TraceID   string `json:"traceId"`
}

// CostSummary is the billing view of an ended session.
type CostSummary struct {
	Model        string  `json:"model"`
	AudioMinutes float64 `json:"audioMinutes"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	EstimatedUSD float64 `json:"estimatedUsd"`
}

// Summary is the end-of-session report handed back to the caller.
type Summary struct {
	TotalTurns     int          `json:"totalTurns"`
	TotalToolCalls int          `json:"totalToolCalls"`
	DurationMs     int64        `json:"durationMs"`
	Cost           *CostSummary `json:"cost,omitempty"`
}

// Ended pairs a session's trace id with its final summary.
type Ended struct {
	TraceID string  `json:"traceId"`
	Summary Summary `json:"summary"`
}

// CostDelta is an additive update to a session's cost accumulators.
// Negative fields are ignored.
type CostDelta struct {
	AudioMinutes float64 `json:"audioMinutes,omitempty"`
	InputTokens  int64   `json:"inputTokens,omitempty"`
	OutputTokens int64   `json:"outputTokens,omitempty"`
}

type costTracking struct {
	model        string
	audioMinutes float64
	inputTokens  int64
	outputTokens int64
}

type session struct {
	id            string
	userID        string
	startedAt     time.Time
	currentTurn   int
	toolCallCount int
	cost          costTracking
	trace         tracesink.Trace
}

// Manager is the in-memory session registry and lifecycle manager. One
// instance per process; all methods are safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*session
	turnStart map[string]time.Time

	sink    tracesink.Sink
	pricing *pricing.Table
	metrics *metrics.Metrics

	idleTimeout   time.Duration
	sweepInterval time.Duration
	defaultModel  string

	sweep *cron.Cron

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Manager. A nil Sink is tolerated: CreateSession degrades to
// returning nil and no session state is kept.
func New(cfg Config) *Manager {
	if cfg.Pricing == nil {
		cfg.Pricing = pricing.NewTable()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = pricing.DefaultAudioModel
	}

	return &Manager{
		sessions:      make(map[string]*session),
		turnStart:     make(map[string]time.Time),
		sink:          cfg.Sink,
		pricing:       cfg.Pricing,
		metrics:       cfg.Metrics,
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		defaultModel:  cfg.DefaultModel,
		now:           time.Now,
	}
}

// CreateSession registers a session and opens its trace. Returns nil when
// no sink is configured or the trace could not be opened (telemetry is
// best-effort and must never block the voice session itself). Creating an
// id that already exists returns the existing identifiers.
func (m *Manager) CreateSession(ctx context.Context, sessionID string, opts CreateOptions) *Created {
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		log.Warn().Msg("Ignoring session create with empty id")
		return nil
	}
	if m.sink == nil {
		log.Debug().Str("session_id", sessionID).Msg("No trace sink configured, skipping session")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		log.Warn().Str("session_id", sessionID).Msg("Session already exists, returning existing trace")
		return &Created{SessionID: sessionID, TraceID: existing.trace.ID()}
	}

	model := opts.Model
	if model == "" {
		model = m.defaultModel
	}

	params := tracesink.TraceParams{
		ID:     sessionID,
		Name:   "voice-session",
		UserID: opts.UserID,
		Metadata: map[string]any{
			"model": model,
		},
		Tags: []string{"voice", "realtime"},
	}

	trace, err := m.sink.StartTrace(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to start trace")
		m.sinkError()
		return nil
	}

	s := &session{
		id:        sessionID,
		userID:    opts.UserID,
		startedAt: m.now(),
		cost:      costTracking{model: model},
		trace:     trace,
	}
	m.sessions[sessionID] = s

	if m.metrics != nil {
		m.metrics.SessionsActive.Inc()
		m.metrics.SessionsStartedTotal.Inc()
	}

	m.startSweepLocked()

	log.Info().
		Str("session_id", sessionID).
		Str("user_id", opts.UserID).
		Str("model", model).
		Msg("Voice session created")

	return &Created{SessionID: sessionID, TraceID: trace.ID()}
}

// EndSession ends a session, computes its summary and cost, notifies the
// sink, and removes the record. Returns nil for unknown ids; never returns
// an error.
func (m *Manager) EndSession(ctx context.Context, sessionID string, reason EndReason) *Ended {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked(ctx, sessionID, reason)
}

func (m *Manager) endLocked(ctx context.Context, sessionID string, reason EndReason) *Ended {
	s, ok := m.sessions[sessionID]
	if !ok {
		log.Debug().Str("session_id", sessionID).Msg("End requested for unknown session")
		return nil
	}

	now := m.now()
	durationMs := now.Sub(s.startedAt).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}

	// Sessions that never reported audio deltas are billed on wall-clock
	// duration. Text-only turns inflate this; kept for compatibility with
	// the upstream cost model.
	audioMinutes := s.cost.audioMinutes
	if audioMinutes <= 0 {
		audioMinutes = float64(durationMs) / 60_000
	}

	costUSD := m.pricing.CalculateAudioCost(s.cost.model, audioMinutes, s.cost.inputTokens, s.cost.outputTokens)

	summary := Summary{
		TotalTurns:     s.currentTurn,
		TotalToolCalls: s.toolCallCount,
		DurationMs:     durationMs,
		Cost: &CostSummary{
			Model:        s.cost.model,
			AudioMinutes: audioMinutes,
			InputTokens:  s.cost.inputTokens,
			OutputTokens: s.cost.outputTokens,
			EstimatedUSD: costUSD,
		},
	}

	traceID := sessionID
	if s.trace != nil {
		traceID = s.trace.ID()
		outcome := tracesink.Outcome{
			Output: map[string]any{
				"totalTurns":     summary.TotalTurns,
				"totalToolCalls": summary.TotalToolCalls,
				"durationMs":     summary.DurationMs,
				"estimatedUsd":   costUSD,
			},
			Metadata: map[string]any{
				"reason": string(reason),
			},
			Completed: reason.completed(),
		}
		if err := s.trace.End(ctx, outcome); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to end trace")
			m.sinkError()
		}
	}

	delete(m.sessions, sessionID)
	m.dropTurnTimingsLocked(sessionID)

	if m.metrics != nil {
		m.metrics.SessionsActive.Dec()
		m.metrics.SessionsEndedTotal.WithLabelValues(string(reason)).Inc()
		m.metrics.SessionDurationSeconds.Observe(float64(durationMs) / 1000)
		m.metrics.SessionCostUSD.Observe(costUSD)
	}

	if len(m.sessions) == 0 {
		m.stopSweepLocked()
	}

	log.Info().
		Str("session_id", sessionID).
		Str("reason", string(reason)).
		Int("turns", summary.TotalTurns).
		Int("tool_calls", summary.TotalToolCalls).
		Int64("duration_ms", durationMs).
		Float64("cost_usd", costUSD).
		Msg("Voice session ended")

	return &Ended{TraceID: traceID, Summary: summary}
}

// UpdateSessionCost additively accumulates cost quantities for a session.
// Unknown sessions and negative deltas are logged and skipped.
func (m *Manager) UpdateSessionCost(sessionID string, delta CostDelta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		log.Debug().Str("session_id", sessionID).Msg("Cost update for unknown session")
		return
	}

	if delta.AudioMinutes < 0 || delta.InputTokens < 0 || delta.OutputTokens < 0 {
		log.Warn().Str("session_id", sessionID).Msg("Ignoring negative cost delta")
		return
	}

	s.cost.audioMinutes += delta.AudioMinutes
	s.cost.inputTokens += delta.InputTokens
	s.cost.outputTokens += delta.OutputTokens
}

// HasSession reports whether a session is currently active.
func (m *Manager) HasSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// ActiveSessionCount returns the number of active sessions.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops the sweep and force-ends every remaining session with
// reason timeout. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopSweepLocked()

	for sessionID := range m.sessions {
		m.endLocked(ctx, sessionID, EndTimeout)
	}

	log.Info().Msg("Voice session manager shut down")
}

func (m *Manager) dropTurnTimingsLocked(sessionID string) {
	prefix := sessionID + "#"
	for key := range m.turnStart {
		if strings.HasPrefix(key, prefix) {
			delete(m.turnStart, key)
		}
	}
}

func (m *Manager) sinkError() {
	if m.metrics != nil {
		m.metrics.SinkErrorsTotal.Inc()
	}
}

func turnKey(sessionID string, turnNumber int) string {
	return fmt.Sprintf("%s#%d", sessionID, turnNumber)
}
