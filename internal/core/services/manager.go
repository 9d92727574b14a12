package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/metrics"
	"github.com/google/uuid"
)

type CheckoutSettings struct {
	MaxPerPerson    int
	Fees            domain.FeeSchedule
	SessionTTL      time.Duration
	CleanupInterval time.Duration

	// PendingPaymentTTL is how long a session waiting on a payment
	// confirmation is kept before it is evicted anyway.
	PendingPaymentTTL time.Duration
}

// CheckoutManager owns the live checkout sessions. Nothing here reserves
// inventory, so dropping a session releases nothing.
type CheckoutManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*CheckoutSession

	deps       *sessionDeps
	ttl        time.Duration
	pendingTTL time.Duration
	interval   time.Duration
}

func NewCheckoutManager(
	catalog ports.TierCatalog,
	payments ports.PaymentProvider,
	reservations *ReservationService,
	settings CheckoutSettings,
	m *metrics.Metrics,
	log *slog.Logger,
) *CheckoutManager {
	if log == nil {
		log = slog.Default()
	}

	if settings.SessionTTL <= 0 {
		settings.SessionTTL = 30 * time.Minute
	}

	if settings.PendingPaymentTTL <= 0 {
		settings.PendingPaymentTTL = 24 * time.Hour
	}

	if settings.PendingPaymentTTL < settings.SessionTTL {
		settings.PendingPaymentTTL = settings.SessionTTL
	}

	if settings.CleanupInterval <= 0 {
		settings.CleanupInterval = time.Minute
	}

	if settings.MaxPerPerson <= 0 {
		settings.MaxPerPerson = domain.DefaultMaxPerPerson
	}

	return &CheckoutManager{
		sessions: make(map[uuid.UUID]*CheckoutSession),
		deps: &sessionDeps{
			catalog:      catalog,
			payments:     payments,
			reservations: reservations,
			fees:         settings.Fees,
			maxPerPerson: settings.MaxPerPerson,
			metrics:      m,
			log:          log,
			now:          time.Now,
		},
		ttl:        settings.SessionTTL,
		pendingTTL: settings.PendingPaymentTTL,
		interval:   settings.CleanupInterval,
	}
}

// SetClock replaces the time source. Tests use it to age sessions.
func (m *CheckoutManager) SetClock(now func() time.Time) {
	m.deps.now = now
}

// Tiers returns the catalog snapshot for an event. An event without tiers is
// reported as not found.
func (m *CheckoutManager) Tiers(ctx context.Context, eventID string) ([]domain.TicketTier, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domain.ErrEventNotFound
	}

	tiers, err := m.deps.catalog.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tiers for event %s: %w", eventID, err)
	}

	if len(tiers) == 0 {
		return nil, domain.ErrEventNotFound
	}

	return tiers, nil
}

func (m *CheckoutManager) Start(ctx context.Context, eventID string) (*CheckoutSession, error) {
	tiers, err := m.Tiers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s := newCheckoutSession(m.deps, strings.TrimSpace(eventID), tiers)

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.deps.metrics.SetActiveSessions(n)
	m.deps.log.InfoContext(ctx, "checkout session started",
		"session_id", s.ID(),
		"event_id", s.eventID,
		"tiers", len(tiers),
	)

	return s, nil
}

func (m *CheckoutManager) Get(id string) (*CheckoutSession, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sid]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return s, nil
}

func (m *CheckoutManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

func (m *CheckoutManager) RunBackgroundCleanup(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.deps.log.Info("session cleanup worker started",
		"interval", m.interval.String(),
		"session_ttl", m.ttl.String(),
		"pending_payment_ttl", m.pendingTTL.String(),
	)

	for {
		select {
		case <-ctx.Done():
			m.deps.log.Info("session cleanup worker stopped")
			return
		case <-ticker.C:
			m.EvictIdle(ctx)
		}
	}
}

// EvictIdle drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions in the middle of a payment are left alone, and a
// session waiting on a payment confirmation gets the longer pending TTL.
// Dropping a session that holds money raises an alert.
func (m *CheckoutManager) EvictIdle(ctx context.Context) int {
	now := m.deps.now()
	cutoff := now.Add(-m.ttl)
	pendingCutoff := now.Add(-m.pendingTTL)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		st := s.idleState()
		if st.busy {
			continue
		}

		limit := cutoff
		if st.awaiting != "" {
			limit = pendingCutoff
		}
		if !st.lastActive.Before(limit) {
			continue
		}

		switch {
		case st.captured != "":
			m.deps.log.ErrorContext(ctx, "evicting session with captured unbooked payment",
				"alert", true,
				"session_id", id.String(),
				"event_id", s.eventID,
				"payment_token", st.captured,
			)
		case st.awaiting != "":
			m.deps.log.ErrorContext(ctx, "evicting session still waiting on payment confirmation",
				"alert", true,
				"session_id", id.String(),
				"event_id", s.eventID,
				"payment_token", st.awaiting,
			)
		}

		delete(m.sessions, id)
		removed++
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.deps.log.InfoContext(ctx, "idle checkout sessions evicted", "count", removed)
	}
	m.deps.metrics.SetActiveSessions(n)

	return removed
}
