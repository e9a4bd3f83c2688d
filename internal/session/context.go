package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// Context is one session's panel: the completion ledger, the published
// contract slots and the legacy progress shim, owned explicitly by the
// caller rather than living in process globals. All mutation happens through
// sequential user-triggered events; the lock is a safety net for the
// coordinator surfaces (HTTP, websocket, MCP) that may read concurrently.
// Semantics at the storage boundary stay last-write-wins.
type Context struct {
	mu sync.RWMutex

	sessionID string
	createdAt time.Time

	normalizer *Normalizer
	ledger     *Ledger
	resolver   *PhaseResolver
	phase      domain.JourneyPhase

	recommendations map[string]*domain.CareRecommendation
	financial       *domain.FinancialProfile
	appointment     *domain.Appointment
	legacyProgress  map[string]float64
	legacyScheduled bool

	listeners []func(domain.PanelEvent)
	logger    *logrus.Logger
	now       func() time.Time
}

// NewContext creates an empty panel for a session. The ledger starts empty
// and the phase at discovery.
func NewContext(sessionID string, normalizer *Normalizer, resolver *PhaseResolver, logger *logrus.Logger) *Context {
	return &Context{
		sessionID:       sessionID,
		createdAt:       time.Now().UTC(),
		normalizer:      normalizer,
		ledger:          NewLedger(normalizer, logger),
		resolver:        resolver,
		phase:           domain.DISCOVERY,
		recommendations: make(map[string]*domain.CareRecommendation),
		legacyProgress:  make(map[string]float64),
		logger:          logger,
		now:             time.Now,
	}
}

// SessionID returns the session identifier.
func (c *Context) SessionID() string {
	return c.sessionID
}

// CreatedAt returns when the panel was created.
func (c *Context) CreatedAt() time.Time {
	return c.createdAt
}

// AddListener subscribes to panel change events. Listeners receive events
// after the triggering mutation commits; they observe state, they cannot
// mutate it.
func (c *Context) AddListener(listener func(domain.PanelEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// MarkComplete records the product as complete. Idempotent: re-marking a
// complete product changes nothing and emits nothing.
func (c *Context) MarkComplete(rawKey string) bool {
	c.mu.Lock()
	changed := c.ledger.MarkComplete(rawKey)
	var events []domain.PanelEvent
	if changed {
		events = append(events, c.panelEvent(domain.COMPLETION_EVENT, c.normalizer.Normalize(rawKey)))
		events = append(events, c.advancePhase()...)
	}
	c.mu.Unlock()

	c.emit(events)
	return changed
}

// IsComplete reports whether the product has been completed.
func (c *Context) IsComplete(rawKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.IsComplete(rawKey)
}

// IsUnlocked reports whether the product is available to the user.
func (c *Context) IsUnlocked(rawKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.IsUnlocked(rawKey)
}

// SetUnlocked records a product's unlock state.
func (c *Context) SetUnlocked(rawKey string, unlocked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.SetUnlocked(rawKey, unlocked)
}

// SetLegacyProgress records a legacy numeric progress value for a product.
// The modern ledger tracks completion only; this shim carries the partial
// progress some historical consumers still report.
func (c *Context) SetLegacyProgress(rawKey string, percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.legacyProgress[c.normalizer.Normalize(rawKey)] = percent
}

// LegacyProgress returns the legacy progress value for a product, if any
// was ever reported.
func (c *Context) LegacyProgress(rawKey string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.legacyProgress[c.normalizer.Normalize(rawKey)]
	return value, ok
}

// SetLegacyScheduled records the historical "appointment on the books" flag
// some older surfaces still report instead of publishing an appointment
// contract.
func (c *Context) SetLegacyScheduled(scheduled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.legacyScheduled = scheduled
}

// LegacyScheduled returns the historical scheduled flag.
func (c *Context) LegacyScheduled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.legacyScheduled
}

// Phase returns the session's current journey phase.
func (c *Context) Phase() domain.JourneyPhase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// PublishRecommendation stores a new care recommendation contract and marks
// its product complete in the same step. Re-publishing replaces the slot
// with the newer contract; the old one is never edited.
func (c *Context) PublishRecommendation(rec *domain.CareRecommendation) error {
	if rec == nil {
		return domain.NewValidationError("recommendation", "recommendation is required", nil)
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	key := c.normalizer.Normalize(rec.ModuleID)

	c.mu.Lock()
	c.recommendations[key] = rec.Clone()
	events := []domain.PanelEvent{c.panelEvent(domain.CONTRACT_EVENT, key)}
	if c.ledger.MarkComplete(key) {
		events = append(events, c.panelEvent(domain.COMPLETION_EVENT, key))
		events = append(events, c.advancePhase()...)
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields(rec.LogFields())).WithField("session_id", c.sessionID).Info("Published care recommendation")
	c.emit(events)
	return nil
}

// Recommendation returns the published recommendation for a product key,
// as a copy the caller may not use to mutate panel state.
func (c *Context) Recommendation(rawKey string) (*domain.CareRecommendation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.recommendations[c.normalizer.Normalize(rawKey)]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// PublishFinancialProfile stores the cost-planning contract and marks the
// cost product complete.
func (c *Context) PublishFinancialProfile(profile *domain.FinancialProfile) error {
	if profile == nil {
		return domain.NewValidationError("financial_profile", "financial profile is required", nil)
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.financial = profile.Clone()
	events := []domain.PanelEvent{c.panelEvent(domain.CONTRACT_EVENT, COST_KEY)}
	if c.ledger.MarkComplete(COST_KEY) {
		events = append(events, c.panelEvent(domain.COMPLETION_EVENT, COST_KEY))
		events = append(events, c.advancePhase()...)
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"session_id": c.sessionID,
		"profile_id": profile.ID,
	}).Info("Published financial profile")
	c.emit(events)
	return nil
}

// FinancialProfile returns the published financial profile, if any.
func (c *Context) FinancialProfile() (*domain.FinancialProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.financial == nil {
		return nil, false
	}
	return c.financial.Clone(), true
}

// PublishAppointment stores the advisor booking contract and marks the
// advisor product complete.
func (c *Context) PublishAppointment(appt *domain.Appointment) error {
	if appt == nil {
		return domain.NewValidationError("appointment", "appointment is required", nil)
	}
	if err := appt.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.appointment = appt.Clone()
	events := []domain.PanelEvent{c.panelEvent(domain.CONTRACT_EVENT, ADVISOR_KEY)}
	if c.ledger.MarkComplete(ADVISOR_KEY) {
		events = append(events, c.panelEvent(domain.COMPLETION_EVENT, ADVISOR_KEY))
		events = append(events, c.advancePhase()...)
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"session_id":     c.sessionID,
		"appointment_id": appt.ID,
		"status":         appt.Status.String(),
	}).Info("Published appointment")
	c.emit(events)
	return nil
}

// Appointment returns the published appointment, if any.
func (c *Context) Appointment() (*domain.Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.appointment == nil {
		return nil, false
	}
	return c.appointment.Clone(), true
}

// Reset drops every ledger entry, contract and legacy value and returns the
// phase to discovery. This is the only operation that moves state backward.
func (c *Context) Reset() {
	c.mu.Lock()
	c.ledger.Reset()
	c.recommendations = make(map[string]*domain.CareRecommendation)
	c.financial = nil
	c.appointment = nil
	c.legacyProgress = make(map[string]float64)
	c.legacyScheduled = false
	c.phase = domain.DISCOVERY
	event := c.panelEvent(domain.RESET_EVENT, "")
	c.mu.Unlock()

	c.logger.WithField("session_id", c.sessionID).Info("Reset session panel")
	c.emit([]domain.PanelEvent{event})
}

// Snapshot captures the panel for persistence at a save point.
func (c *Context) Snapshot() *domain.SessionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := make(map[string]*domain.CareRecommendation, len(c.recommendations))
	for key, rec := range c.recommendations {
		recs[key] = rec.Clone()
	}
	progress := make(map[string]float64, len(c.legacyProgress))
	for key, value := range c.legacyProgress {
		progress[key] = value
	}

	snapshot := &domain.SessionSnapshot{
		SessionID:       c.sessionID,
		Ledger:          c.ledger.Snapshot(),
		LegacyProgress:  progress,
		LegacyScheduled: c.legacyScheduled,
		Phase:           c.phase,
		Recommendations: recs,
		SavedAt:         c.now().UTC(),
	}
	if c.financial != nil {
		snapshot.FinancialProfile = c.financial.Clone()
	}
	if c.appointment != nil {
		snapshot.Appointment = c.appointment.Clone()
	}
	return snapshot
}

// RestoreSnapshot replaces the panel state from a persisted snapshot. The
// restored phase never lands below what the restored ledger supports. No
// events fire: restoration is not a state change, it is state arriving.
func (c *Context) RestoreSnapshot(snapshot *domain.SessionSnapshot) {
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ledger.Restore(snapshot.Ledger)

	c.recommendations = make(map[string]*domain.CareRecommendation, len(snapshot.Recommendations))
	for key, rec := range snapshot.Recommendations {
		c.recommendations[c.normalizer.Normalize(key)] = rec.Clone()
	}
	c.financial = nil
	if snapshot.FinancialProfile != nil {
		c.financial = snapshot.FinancialProfile.Clone()
	}
	c.appointment = nil
	if snapshot.Appointment != nil {
		c.appointment = snapshot.Appointment.Clone()
	}

	c.legacyProgress = make(map[string]float64, len(snapshot.LegacyProgress))
	for key, value := range snapshot.LegacyProgress {
		c.legacyProgress[c.normalizer.Normalize(key)] = value
	}
	c.legacyScheduled = snapshot.LegacyScheduled

	c.phase = snapshot.Phase
	if resolved := c.resolver.Resolve(c.ledger); resolved.Rank() > c.phase.Rank() {
		c.phase = resolved
	}
	if !c.phase.IsValid() {
		c.phase = domain.DISCOVERY
	}
}

// advancePhase re-resolves the phase after a ledger change. Phases only move
// forward; a resolver output below the current phase is ignored.
func (c *Context) advancePhase() []domain.PanelEvent {
	resolved := c.resolver.Resolve(c.ledger)
	if resolved.Rank() <= c.phase.Rank() {
		return nil
	}
	c.phase = resolved

	c.logger.WithFields(logrus.Fields(resolved.LogFields())).WithField("session_id", c.sessionID).Info("Journey phase advanced")
	return []domain.PanelEvent{c.panelEvent(domain.PHASE_EVENT, "")}
}

func (c *Context) panelEvent(eventType domain.PanelEventType, key string) domain.PanelEvent {
	return domain.PanelEvent{
		SessionID: c.sessionID,
		Type:      eventType,
		Key:       key,
		Phase:     c.phase,
		At:        c.now().UTC(),
	}
}

func (c *Context) emit(events []domain.PanelEvent) {
	if len(events) == 0 {
		return
	}
	c.mu.RLock()
	listeners := append([]func(domain.PanelEvent){}, c.listeners...)
	c.mu.RUnlock()

	for _, event := range events {
		for _, listener := range listeners {
			listener(event)
		}
	}
}
