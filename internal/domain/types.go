// Package domain contains core business entities and types for guided senior
// care navigation: versioned assessment rule sets, frozen answer sets, tiered
// care recommendations, and the cross-product journey model that every
// consumer surface reads through published contracts.
package domain

import (
	"errors"
	"fmt"
)

// CareTier represents the discrete care recommendation level an assessment
// score maps to. Tier names are data-driven (each rule set declares its own
// threshold table); the constants below are the canonical tiers of the
// built-in guided care plan module.
type CareTier string

const (
	INDEPENDENT     CareTier = "independent"
	IN_HOME         CareTier = "in_home"
	ASSISTED_LIVING CareTier = "assisted_living"
	MEMORY_CARE     CareTier = "memory_care"
)

// JourneyPhase represents the coarse position of a session in the care
// journey. Phases are strictly ordered and never move backward.
type JourneyPhase string

const (
	DISCOVERY  JourneyPhase = "discovery"
	PLANNING   JourneyPhase = "planning"
	ENGAGEMENT JourneyPhase = "engagement"
)

// FlagSeverity represents how urgently a risk flag should be surfaced to
// an advisor.
type FlagSeverity string

const (
	INFO     FlagSeverity = "info"
	CAUTION  FlagSeverity = "caution"
	CRITICAL FlagSeverity = "critical"
)

// FlagCombinator represents how a flag rule combines its criteria.
type FlagCombinator string

const (
	AND_COMBINATOR FlagCombinator = "and"
	OR_COMBINATOR  FlagCombinator = "or"
)

// BandPolicy selects the single representative numeric value of a score or
// cost band. Exactly one policy is configured per process; consumers never
// pick their own conversion.
type BandPolicy string

const (
	MIDPOINT BandPolicy = "midpoint"
	UPPER    BandPolicy = "upper"
)

// AppointmentStatus represents the lifecycle state of an advisor booking.
type AppointmentStatus string

const (
	REQUESTED AppointmentStatus = "requested"
	SCHEDULED AppointmentStatus = "scheduled"
	CANCELED  AppointmentStatus = "canceled"
)

// Validation errors for navigation data integrity
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTier       = errors.New("invalid care tier")
	ErrInvalidPhase      = errors.New("invalid journey phase")
	ErrInvalidSeverity   = errors.New("invalid flag severity")
	ErrInvalidBandPolicy = errors.New("invalid band policy")
	ErrInvalidStatus     = errors.New("invalid appointment status")
	ErrAnswerSetFrozen   = errors.New("answer set is frozen")

	// ErrSchedulingUnavailable marks a booking attempt with no scheduling
	// service configured or reachable.
	ErrSchedulingUnavailable = errors.New("advisor scheduling unavailable")
)

// IsValid reports whether the tier is one of the canonical guided care plan
// tiers. Rule sets may declare additional tier names; those are validated
// against the rule set itself, not this list.
func (t CareTier) IsValid() bool {
	switch t {
	case INDEPENDENT, IN_HOME, ASSISTED_LIVING, MEMORY_CARE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the care tier.
func (t CareTier) String() string {
	return string(t)
}

// LogFields returns structured logging fields for recommendation audit
// trails. Returns strongly-typed fields so every tier decision is traceable.
func (t CareTier) LogFields() map[string]any {
	return map[string]any{
		"tier":                   string(t),
		"care_setting":           t.CareSetting(),
		"is_valid":               t.IsValid(),
		"acuity_level":           t.acuityLevel(),
		"needs_advisor_followup": t.NeedsAdvisorFollowup(),
	}
}

// CareSetting returns a human-readable description of the tier for family
// reports and advisor handoffs.
func (t CareTier) CareSetting() string {
	switch t {
	case INDEPENDENT:
		return "Independent - No regular support needed"
	case IN_HOME:
		return "In-Home Care - Support delivered at home"
	case ASSISTED_LIVING:
		return "Assisted Living - Residential community with daily support"
	case MEMORY_CARE:
		return "Memory Care - Secured residential care for cognitive decline"
	default:
		return "Unknown care tier"
	}
}

// acuityLevel returns the severity bucket for audit logging.
func (t CareTier) acuityLevel() string {
	switch t {
	case INDEPENDENT:
		return "low"
	case IN_HOME:
		return "moderate"
	case ASSISTED_LIVING, MEMORY_CARE:
		return "high"
	default:
		return "unknown"
	}
}

// NeedsAdvisorFollowup determines if the tier should route the family to a
// live advisor rather than self-serve planning.
func (t CareTier) NeedsAdvisorFollowup() bool {
	switch t {
	case ASSISTED_LIVING, MEMORY_CARE:
		return true
	case INDEPENDENT, IN_HOME:
		return false
	default:
		return true // Conservative routing for unknown tiers
	}
}

// IsValid validates the journey phase.
func (p JourneyPhase) IsValid() bool {
	switch p {
	case DISCOVERY, PLANNING, ENGAGEMENT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the journey phase.
func (p JourneyPhase) String() string {
	return string(p)
}

// Rank returns the phase's position in the forward-only ordering.
// Unknown phases rank below discovery so they can never win a comparison.
func (p JourneyPhase) Rank() int {
	switch p {
	case DISCOVERY:
		return 0
	case PLANNING:
		return 1
	case ENGAGEMENT:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether the phase is the same as or later than other.
func (p JourneyPhase) AtLeast(other JourneyPhase) bool {
	return p.Rank() >= other.Rank()
}

// LogFields returns structured logging fields for journey transitions.
func (p JourneyPhase) LogFields() map[string]any {
	return map[string]any{
		"phase":      string(p),
		"phase_rank": p.Rank(),
		"is_valid":   p.IsValid(),
	}
}

// IsValid validates the flag severity.
func (s FlagSeverity) IsValid() bool {
	switch s {
	case INFO, CAUTION, CRITICAL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s FlagSeverity) String() string {
	return string(s)
}

// IsValid validates the flag rule combinator.
func (c FlagCombinator) IsValid() bool {
	switch c {
	case AND_COMBINATOR, OR_COMBINATOR:
		return true
	default:
		return false
	}
}

// IsValid validates the band policy.
func (bp BandPolicy) IsValid() bool {
	switch bp {
	case MIDPOINT, UPPER:
		return true
	default:
		return false
	}
}

// String returns the string representation of the band policy.
func (bp BandPolicy) String() string {
	return string(bp)
}

// IsValid validates the appointment status.
func (as AppointmentStatus) IsValid() bool {
	switch as {
	case REQUESTED, SCHEDULED, CANCELED:
		return true
	default:
		return false
	}
}

// String returns the string representation of the appointment status.
func (as AppointmentStatus) String() string {
	return string(as)
}

// ParseBandPolicy converts a configuration string into a BandPolicy.
func ParseBandPolicy(raw string) (BandPolicy, error) {
	bp := BandPolicy(raw)
	if !bp.IsValid() {
		return "", fmt.Errorf("parse band policy %q: %w", raw, ErrInvalidBandPolicy)
	}
	return bp, nil
}
