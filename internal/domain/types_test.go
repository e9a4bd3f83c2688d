package domain

import (
	"testing"
)

func TestCareTierIsValid(t *testing.T) {
	valid := []CareTier{INDEPENDENT, IN_HOME, ASSISTED_LIVING, MEMORY_CARE}
	for _, tier := range valid {
		if !tier.IsValid() {
			t.Errorf("Expected tier %s to be valid", tier)
		}
	}

	invalid := []CareTier{"", "nursing_home", "IN_HOME", "Independent"}
	for _, tier := range invalid {
		if tier.IsValid() {
			t.Errorf("Expected tier %q to be invalid", tier)
		}
	}
}

func TestCareTierLogFields(t *testing.T) {
	fields := MEMORY_CARE.LogFields()

	if fields["tier"] != "memory_care" {
		t.Errorf("Expected tier field memory_care, got %v", fields["tier"])
	}
	if fields["acuity_level"] != "high" {
		t.Errorf("Expected acuity_level high, got %v", fields["acuity_level"])
	}
	if fields["needs_advisor_followup"] != true {
		t.Errorf("Expected memory_care to need advisor followup")
	}

	if INDEPENDENT.NeedsAdvisorFollowup() {
		t.Errorf("Expected independent tier to not need advisor followup")
	}
	if !CareTier("unknown").NeedsAdvisorFollowup() {
		t.Errorf("Expected unknown tier to route conservatively to an advisor")
	}
}

func TestJourneyPhaseOrdering(t *testing.T) {
	if DISCOVERY.Rank() >= PLANNING.Rank() || PLANNING.Rank() >= ENGAGEMENT.Rank() {
		t.Errorf("Expected discovery < planning < engagement, got %d %d %d",
			DISCOVERY.Rank(), PLANNING.Rank(), ENGAGEMENT.Rank())
	}

	if !ENGAGEMENT.AtLeast(PLANNING) {
		t.Errorf("Expected engagement to be at least planning")
	}
	if DISCOVERY.AtLeast(PLANNING) {
		t.Errorf("Expected discovery to not be at least planning")
	}

	if JourneyPhase("onboarding").Rank() != -1 {
		t.Errorf("Expected unknown phase to rank below discovery")
	}
	if JourneyPhase("onboarding").IsValid() {
		t.Errorf("Expected unknown phase to be invalid")
	}
}

func TestParseBandPolicy(t *testing.T) {
	tests := []struct {
		raw     string
		want    BandPolicy
		wantErr bool
	}{
		{raw: "midpoint", want: MIDPOINT},
		{raw: "upper", want: UPPER},
		{raw: "", wantErr: true},
		{raw: "lower", wantErr: true},
		{raw: "Midpoint", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBandPolicy(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBandPolicy(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBandPolicy(%q): unexpected error %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseBandPolicy(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestAppointmentStatus(t *testing.T) {
	for _, status := range []AppointmentStatus{REQUESTED, SCHEDULED, CANCELED} {
		if !status.IsValid() {
			t.Errorf("Expected status %s to be valid", status)
		}
	}
	if AppointmentStatus("booked").IsValid() {
		t.Errorf("Expected status booked to be invalid")
	}

	appt := Appointment{Status: SCHEDULED}
	if !appt.IsScheduled() {
		t.Errorf("Expected scheduled appointment to report scheduled")
	}
	appt.Status = REQUESTED
	if appt.IsScheduled() {
		t.Errorf("Expected requested appointment to not report scheduled")
	}
}
