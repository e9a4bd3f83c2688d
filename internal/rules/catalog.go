// Package rules loads and caches versioned assessment rule sets: the
// built-in guided care plan catalog plus JSON rule documents from a
// configurable directory. Every rule set is validated at load time; nothing
// structurally invalid ever reaches the scoring engine.
package rules

import (
	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// GuidedCarePlanModuleID is the module id of the built-in assessment.
const GuidedCarePlanModuleID = "gcp"

func intPtr(v int) *int { return &v }

// guidedCarePlan is the built-in guided care plan rule set. Ten required
// questions across four sections, scored 0-3 each, with the canonical tier
// table: 0-8 independent, 9-16 in-home, 17-24 assisted living, 25+ memory
// care.
func guidedCarePlan() *domain.RuleSet {
	return &domain.RuleSet{
		ModuleID: GuidedCarePlanModuleID,
		Version:  "2026-02-01",
		Sections: []domain.Section{
			{
				ID:    "daily_living",
				Title: "Daily Living",
				Questions: []domain.Question{
					{
						ID:       "adl_bathing",
						Label:    "Help needed with bathing and dressing",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "independent", Label: "Fully independent", Score: 0},
							{Value: "reminders", Label: "Needs reminders", Score: 1},
							{Value: "some_help", Label: "Needs hands-on help", Score: 2},
							{Value: "full_support", Label: "Needs full support", Score: 3},
						},
					},
					{
						ID:       "adl_meals",
						Label:    "Help needed with meals and nutrition",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "independent", Label: "Cooks independently", Score: 0},
							{Value: "reminders", Label: "Needs reminders to eat", Score: 1},
							{Value: "some_help", Label: "Needs meals prepared", Score: 2},
							{Value: "full_support", Label: "Needs feeding assistance", Score: 3},
						},
					},
					{
						ID:       "adl_medication",
						Label:    "Help needed managing medications",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "independent", Label: "Manages own medications", Score: 0},
							{Value: "reminders", Label: "Needs reminders", Score: 1},
							{Value: "some_help", Label: "Needs dispensing help", Score: 2},
							{Value: "full_support", Label: "Cannot manage medications", Score: 3},
						},
					},
				},
			},
			{
				ID:    "cognition_memory",
				Title: "Cognition & Memory",
				Questions: []domain.Question{
					{
						ID:       "memory_changes",
						Label:    "Memory changes observed",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Label: "No changes", Score: 0},
							{Value: "mild", Label: "Occasional forgetfulness", Score: 1},
							{Value: "moderate", Label: "Regularly misses appointments or bills", Score: 2},
							{Value: "severe", Label: "Diagnosed or suspected dementia", Score: 3},
						},
					},
					{
						ID:       "wandering",
						Label:    "Wandering or getting lost",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "never", Label: "Never", Score: 0},
							{Value: "rarely", Label: "Once or twice ever", Score: 1},
							{Value: "sometimes", Label: "A few times a month", Score: 2},
							{Value: "often", Label: "Weekly or more", Score: 3},
						},
					},
					{
						ID:       "judgment",
						Label:    "Decision-making and judgment concerns",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Label: "Sound judgment", Score: 0},
							{Value: "mild", Label: "Occasional poor choices", Score: 1},
							{Value: "moderate", Label: "Frequent unsafe choices", Score: 2},
							{Value: "severe", Label: "Cannot be left to decide alone", Score: 3},
						},
					},
				},
			},
			{
				ID:    "safety",
				Title: "Safety",
				Questions: []domain.Question{
					{
						ID:       "falls",
						Label:    "Falls in the last six months",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Label: "No falls", Score: 0},
							{Value: "one", Label: "One fall, no injury", Score: 1},
							{Value: "multiple", Label: "Multiple falls", Score: 2},
							{Value: "injury", Label: "Fall with injury", Score: 3},
						},
					},
					{
						ID:       "home_safety",
						Label:    "Safety concerns at home",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Label: "Home is safe", Score: 0},
							{Value: "minor", Label: "Minor hazards", Score: 1},
							{Value: "moderate", Label: "Stairs or bathroom are risky", Score: 2},
							{Value: "serious", Label: "Stove, locks or smoking incidents", Score: 3},
						},
					},
				},
			},
			{
				ID:    "health_mobility",
				Title: "Health & Mobility",
				Questions: []domain.Question{
					{
						ID:       "mobility",
						Label:    "Mobility around the home",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "independent", Label: "Moves freely", Score: 0},
							{Value: "cane", Label: "Uses a cane or walker", Score: 1},
							{Value: "limited", Label: "Limited to parts of the home", Score: 2},
							{Value: "immobile", Label: "Wheelchair or bed-bound", Score: 3},
						},
					},
					{
						ID:       "chronic_conditions",
						Label:    "Chronic conditions requiring management",
						Required: true,
						Options: []domain.AnswerOption{
							{Value: "none", Label: "None", Score: 0},
							{Value: "one_stable", Label: "One, well managed", Score: 1},
							{Value: "several", Label: "Several, mostly managed", Score: 2},
							{Value: "unstable", Label: "Unstable or recently hospitalized", Score: 3},
						},
					},
					{
						ID:       "caregiver_support",
						Label:    "Current caregiver support",
						Required: false,
						Options: []domain.AnswerOption{
							{Value: "strong", Label: "Strong support network", Score: 0},
							{Value: "some", Label: "Some help available", Score: 1},
							{Value: "stretched", Label: "Caregiver is stretched thin", Score: 2},
							{Value: "none", Label: "No caregiver available", Score: 3},
						},
					},
					{
						ID:       "social_isolation",
						Label:    "Social connection",
						Required: false,
						Options: []domain.AnswerOption{
							{Value: "active", Label: "Active social life", Score: 0},
							{Value: "occasional", Label: "Occasional visits", Score: 1},
							{Value: "rare", Label: "Rarely sees anyone", Score: 2},
							{Value: "isolated", Label: "Fully isolated", Score: 3},
						},
					},
				},
			},
		},
		TierThresholds: []domain.TierThreshold{
			{Tier: domain.INDEPENDENT, Min: 0, Max: intPtr(8)},
			{Tier: domain.IN_HOME, Min: 9, Max: intPtr(16)},
			{Tier: domain.ASSISTED_LIVING, Min: 17, Max: intPtr(24)},
			{Tier: domain.MEMORY_CARE, Min: 25},
		},
		FlagRules: []domain.FlagRule{
			{
				ID:         "falls_risk",
				Label:      "Falls risk",
				Severity:   domain.CAUTION,
				Combinator: domain.OR_COMBINATOR,
				Criteria: []domain.FlagCriterion{
					{QuestionID: "falls", ExpectedValue: "multiple"},
					{QuestionID: "falls", ExpectedValue: "injury"},
				},
			},
			{
				ID:         "wandering_risk",
				Label:      "Wandering risk",
				Severity:   domain.CRITICAL,
				Combinator: domain.AND_COMBINATOR,
				Criteria: []domain.FlagCriterion{
					{QuestionID: "memory_changes", ExpectedValue: "severe"},
					{QuestionID: "wandering", ExpectedValue: "often"},
				},
			},
			{
				ID:         "medication_risk",
				Label:      "Medication management risk",
				Severity:   domain.CAUTION,
				Combinator: domain.AND_COMBINATOR,
				Criteria: []domain.FlagCriterion{
					{QuestionID: "adl_medication", ExpectedValue: "full_support"},
				},
			},
			{
				ID:         "caregiver_burnout",
				Label:      "Caregiver burnout",
				Severity:   domain.INFO,
				Combinator: domain.OR_COMBINATOR,
				Criteria: []domain.FlagCriterion{
					{QuestionID: "caregiver_support", ExpectedValue: "stretched"},
					{QuestionID: "caregiver_support", ExpectedValue: "none"},
				},
			},
		},
	}
}

// builtinRuleSets returns the shipped catalog keyed by module id.
func builtinRuleSets() map[string]*domain.RuleSet {
	return map[string]*domain.RuleSet{
		GuidedCarePlanModuleID: guidedCarePlan(),
	}
}
