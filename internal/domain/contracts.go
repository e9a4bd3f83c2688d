package domain

import (
	"fmt"
	"time"
)

// Flag is a named risk indicator derived from a flag rule. Output always
// carries every declared rule with an explicit Active marker; absence of a
// flag is never a signal.
type Flag struct {
	ID       string       `json:"id"`
	Label    string       `json:"label,omitempty"`
	Active   bool         `json:"active"`
	Severity FlagSeverity `json:"severity,omitempty"`
}

// TierScore pairs a tier with the representative value of its threshold
// range under the configured band policy, for what-if comparisons against
// the achieved score.
type TierScore struct {
	Tier  CareTier `json:"tier"`
	Score int      `json:"score"`
}

// CareRecommendation is the immutable contract published once per completed
// assessment. A re-run of the same module produces a brand-new contract that
// replaces the old one in the session's slot; published contracts are never
// edited in place.
type CareRecommendation struct {
	ID               string      `json:"id"`
	ModuleID         string      `json:"module_id"`
	Tier             CareTier    `json:"tier" validate:"required"`
	TierScore        int         `json:"tier_score"`
	TierRankings     []TierScore `json:"tier_rankings"`
	Confidence       float64     `json:"confidence"`
	Flags            []Flag      `json:"flags"`
	Rationale        []string    `json:"rationale"`
	GeneratedAt      time.Time   `json:"generated_at"`
	RuleVersion      string      `json:"rule_version"`
	InputFingerprint string      `json:"input_fingerprint"`
}

// Validate ensures a recommendation is complete enough to publish.
func (cr *CareRecommendation) Validate() error {
	if cr.ID == "" {
		return NewValidationError("id", "recommendation id is required", cr.ID)
	}
	if cr.ModuleID == "" {
		return NewValidationError("module_id", "module id is required", cr.ModuleID)
	}
	if cr.Tier == "" {
		return NewValidationError("tier", "tier is required", cr.Tier)
	}
	if cr.Confidence < 0.5 || cr.Confidence > 1.0 {
		return NewValidationError("confidence", "confidence must be within [0.5, 1.0]", cr.Confidence)
	}
	if cr.RuleVersion == "" {
		return NewValidationError("rule_version", "rule version is required", cr.RuleVersion)
	}
	if cr.InputFingerprint == "" {
		return NewValidationError("input_fingerprint", "input fingerprint is required", cr.InputFingerprint)
	}
	return nil
}

// ActiveFlags returns only the flags that fired.
func (cr *CareRecommendation) ActiveFlags() []Flag {
	var active []Flag
	for _, f := range cr.Flags {
		if f.Active {
			active = append(active, f)
		}
	}
	return active
}

// Clone returns a deep copy so consumers can never mutate a published
// recommendation through shared slices.
func (cr *CareRecommendation) Clone() *CareRecommendation {
	out := *cr
	out.TierRankings = append([]TierScore(nil), cr.TierRankings...)
	out.Flags = append([]Flag(nil), cr.Flags...)
	out.Rationale = append([]string(nil), cr.Rationale...)
	return &out
}

// LogFields returns structured logging fields for publication audit trails.
func (cr *CareRecommendation) LogFields() map[string]any {
	return map[string]any{
		"recommendation_id": cr.ID,
		"module_id":         cr.ModuleID,
		"tier":              cr.Tier.String(),
		"tier_score":        cr.TierScore,
		"confidence":        cr.Confidence,
		"active_flags":      len(cr.ActiveFlags()),
		"rule_version":      cr.RuleVersion,
		"fingerprint":       cr.InputFingerprint,
	}
}

// Band is an inclusive numeric range, used for monthly cost estimates. A nil
// Upper marks an open-ended band.
type Band struct {
	Lower float64  `json:"lower"`
	Upper *float64 `json:"upper,omitempty"`
}

// Representative collapses the band to its single representative value under
// the given policy. This is the only band-to-number conversion in the
// system; consumers must not compute their own.
func (b Band) Representative(policy BandPolicy) float64 {
	if b.Upper == nil {
		return b.Lower
	}
	return bandRepresentative(b.Lower, *b.Upper, policy)
}

// bandRepresentative is the single conversion from a bounded range to its
// representative value. Both score bands and cost bands route through here.
func bandRepresentative(lower, upper float64, policy BandPolicy) float64 {
	switch policy {
	case UPPER:
		return upper
	case MIDPOINT:
		return (lower + upper) / 2
	default:
		return (lower + upper) / 2
	}
}

// FinancialProfile is the immutable cost-planning contract produced by the
// cost planner product. The coordinator stores and serves it unchanged.
type FinancialProfile struct {
	ID              string    `json:"id"`
	SchemaVersion   string    `json:"schema_version"`
	MonthlyCostBand Band      `json:"monthly_cost_band"`
	FundingSources  []string  `json:"funding_sources,omitempty"`
	RunwayMonths    int       `json:"runway_months,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// MonthlyCost returns the representative monthly cost under the configured
// band policy.
func (fp *FinancialProfile) MonthlyCost(policy BandPolicy) float64 {
	return fp.MonthlyCostBand.Representative(policy)
}

// Clone returns a deep copy for read-only consumers.
func (fp *FinancialProfile) Clone() *FinancialProfile {
	out := *fp
	out.FundingSources = append([]string(nil), fp.FundingSources...)
	return &out
}

// Validate ensures the profile is complete enough to publish.
func (fp *FinancialProfile) Validate() error {
	if fp.ID == "" {
		return NewValidationError("id", "profile id is required", fp.ID)
	}
	if fp.SchemaVersion == "" {
		return NewValidationError("schema_version", "schema version is required", fp.SchemaVersion)
	}
	if fp.MonthlyCostBand.Lower < 0 {
		return NewValidationError("monthly_cost_band", "cost band lower bound must be non-negative", fp.MonthlyCostBand.Lower)
	}
	if fp.MonthlyCostBand.Upper != nil && *fp.MonthlyCostBand.Upper < fp.MonthlyCostBand.Lower {
		return NewValidationError("monthly_cost_band", "cost band is inverted", *fp.MonthlyCostBand.Upper)
	}
	return nil
}

// Appointment is the immutable advisor-booking contract. The coordinator
// stores and serves it unchanged; the scheduling client produces it.
type Appointment struct {
	ID            string            `json:"id"`
	SchemaVersion string            `json:"schema_version"`
	AdvisorID     string            `json:"advisor_id,omitempty"`
	Channel       string            `json:"channel,omitempty"`
	ScheduledFor  time.Time         `json:"scheduled_for"`
	Status        AppointmentStatus `json:"status"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// IsScheduled reports whether the appointment is confirmed on the calendar.
func (a *Appointment) IsScheduled() bool {
	return a.Status == SCHEDULED
}

// Clone returns a copy for read-only consumers.
func (a *Appointment) Clone() *Appointment {
	out := *a
	return &out
}

// Validate ensures the appointment is complete enough to publish.
func (a *Appointment) Validate() error {
	if a.ID == "" {
		return NewValidationError("id", "appointment id is required", a.ID)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("appointment validation: %w", ErrInvalidStatus)
	}
	if a.Status == SCHEDULED && a.ScheduledFor.IsZero() {
		return NewValidationError("scheduled_for", "scheduled appointments need a time", a.ScheduledFor)
	}
	return nil
}
