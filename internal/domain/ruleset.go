package domain

import (
	"fmt"
)

// RuleSet is the versioned rule definition for one assessment module:
// sections of scored questions, an ordered tier threshold table, and named
// flag rules. Rule sets are immutable once loaded; all structural problems
// surface through Validate at load time, never during scoring.
type RuleSet struct {
	ModuleID       string          `json:"module_id" validate:"required"`
	Version        string          `json:"version" validate:"required"`
	Sections       []Section       `json:"sections" validate:"required"`
	TierThresholds []TierThreshold `json:"tier_thresholds" validate:"required"`
	FlagRules      []FlagRule      `json:"flag_rules,omitempty"`
}

// Section groups related questions for presentation and reporting.
type Section struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Question is a single scored assessment item. Optional questions are
// excluded from completeness; their scores still count toward the total.
type Question struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Required bool           `json:"required"`
	Options  []AnswerOption `json:"options"`
}

// AnswerOption is one selectable value with its score contribution.
type AnswerOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
	Score int    `json:"score"`
}

// TierThreshold maps an inclusive score range to a care tier. A nil Max
// marks the open-ended top range; only the last declared threshold may be
// open-ended. Scores above every declared range clamp into the last tier.
type TierThreshold struct {
	Tier CareTier `json:"tier"`
	Min  int      `json:"min"`
	Max  *int     `json:"max,omitempty"`
}

// FlagRule derives a named risk flag from answer criteria joined by a
// combinator. Every declared rule appears in scoring output with an explicit
// active marker.
type FlagRule struct {
	ID         string          `json:"id"`
	Label      string          `json:"label,omitempty"`
	Severity   FlagSeverity    `json:"severity,omitempty"`
	Combinator FlagCombinator  `json:"combinator"`
	Criteria   []FlagCriterion `json:"criteria"`
}

// FlagCriterion matches one question's answer against an expected value.
type FlagCriterion struct {
	QuestionID    string `json:"question_id"`
	ExpectedValue string `json:"expected_value"`
}

// Contains reports whether score falls inside the threshold's range.
func (tt TierThreshold) Contains(score int) bool {
	if score < tt.Min {
		return false
	}
	return tt.Max == nil || score <= *tt.Max
}

// Representative returns the single numeric value that stands in for this
// threshold's range under the given band policy. Open-ended ranges collapse
// to their lower bound under every policy.
func (tt TierThreshold) Representative(policy BandPolicy) int {
	if tt.Max == nil {
		return tt.Min
	}
	return int(bandRepresentative(float64(tt.Min), float64(*tt.Max), policy))
}

// Questions returns every question of the rule set in declaration order.
func (rs *RuleSet) Questions() []Question {
	var out []Question
	for _, section := range rs.Sections {
		out = append(out, section.Questions...)
	}
	return out
}

// QuestionByID returns the declared question with the given ID.
func (rs *RuleSet) QuestionByID(id string) (*Question, bool) {
	for i := range rs.Sections {
		for j := range rs.Sections[i].Questions {
			if rs.Sections[i].Questions[j].ID == id {
				return &rs.Sections[i].Questions[j], true
			}
		}
	}
	return nil, false
}

// OptionByValue returns the declared option matching the given value.
func (q *Question) OptionByValue(value string) (*AnswerOption, bool) {
	for i := range q.Options {
		if q.Options[i].Value == value {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// MaxScore returns the largest score any single option of the question
// contributes.
func (q *Question) MaxScore() int {
	max := 0
	for _, opt := range q.Options {
		if opt.Score > max {
			max = opt.Score
		}
	}
	return max
}

// MaxPossibleScore returns the highest total score any answer set can reach
// against this rule set.
func (rs *RuleSet) MaxPossibleScore() int {
	total := 0
	for _, q := range rs.Questions() {
		total += q.MaxScore()
	}
	return total
}

// RequiredQuestionCount returns how many questions count toward answer
// completeness.
func (rs *RuleSet) RequiredQuestionCount() int {
	count := 0
	for _, q := range rs.Questions() {
		if q.Required {
			count++
		}
	}
	return count
}

// ThresholdFor returns the declared threshold containing score. Scores above
// every declared range clamp into the last threshold. The second return is
// false only when the rule set declares no thresholds at all.
func (rs *RuleSet) ThresholdFor(score int) (TierThreshold, bool) {
	if len(rs.TierThresholds) == 0 {
		return TierThreshold{}, false
	}
	for _, tt := range rs.TierThresholds {
		if tt.Contains(score) {
			return tt, true
		}
	}
	return rs.TierThresholds[len(rs.TierThresholds)-1], true
}

// Validate ensures the rule set is structurally sound before any scoring is
// attempted. Violations are load-time failures; a rule set that fails
// validation must never reach the scoring engine.
func (rs *RuleSet) Validate() error {
	if rs.ModuleID == "" {
		return NewRuleSetError(rs.ModuleID, rs.Version, "module_id is required")
	}
	if rs.Version == "" {
		return NewRuleSetError(rs.ModuleID, rs.Version, "version is required")
	}
	if len(rs.Sections) == 0 {
		return NewRuleSetError(rs.ModuleID, rs.Version, "at least one section is required")
	}

	questionIDs := make(map[string]*Question)
	for _, section := range rs.Sections {
		if section.ID == "" {
			return NewRuleSetError(rs.ModuleID, rs.Version, "section id is required")
		}
		if len(section.Questions) == 0 {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("section %s declares no questions", section.ID))
		}
		for i := range section.Questions {
			q := &section.Questions[i]
			if q.ID == "" {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("section %s contains a question without an id", section.ID))
			}
			if _, dup := questionIDs[q.ID]; dup {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("duplicate question id %s", q.ID))
			}
			questionIDs[q.ID] = q
			if err := rs.validateQuestion(q); err != nil {
				return err
			}
		}
	}

	if err := rs.validateThresholds(); err != nil {
		return err
	}
	return rs.validateFlagRules(questionIDs)
}

func (rs *RuleSet) validateQuestion(q *Question) error {
	if len(q.Options) == 0 {
		return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("question %s declares no options", q.ID))
	}
	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if opt.Value == "" {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("question %s has an option without a value", q.ID))
		}
		if seen[opt.Value] {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("question %s declares option value %q twice", q.ID, opt.Value))
		}
		seen[opt.Value] = true
		if opt.Score < 0 {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("question %s option %q has a negative score", q.ID, opt.Value))
		}
	}
	return nil
}

func (rs *RuleSet) validateThresholds() error {
	if len(rs.TierThresholds) == 0 {
		return NewRuleSetError(rs.ModuleID, rs.Version, "tier thresholds are required")
	}
	seen := make(map[CareTier]bool, len(rs.TierThresholds))
	for i, tt := range rs.TierThresholds {
		if tt.Tier == "" {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("threshold %d has no tier name", i))
		}
		if seen[tt.Tier] {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("tier %s declared twice", tt.Tier))
		}
		seen[tt.Tier] = true

		if tt.Max == nil {
			if i != len(rs.TierThresholds)-1 {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("tier %s is open-ended but not the last threshold", tt.Tier))
			}
		} else if *tt.Max < tt.Min {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("tier %s range [%d,%d] is inverted", tt.Tier, tt.Min, *tt.Max))
		}

		if i == 0 {
			if tt.Min != 0 {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("first tier %s must start at 0, starts at %d", tt.Tier, tt.Min))
			}
			continue
		}
		prev := rs.TierThresholds[i-1]
		if prev.Max == nil {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("tier %s follows an open-ended range", tt.Tier))
		}
		if tt.Min != *prev.Max+1 {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("tier %s starts at %d, expected %d (ranges must be contiguous and non-overlapping)", tt.Tier, tt.Min, *prev.Max+1))
		}
	}
	return nil
}

func (rs *RuleSet) validateFlagRules(questions map[string]*Question) error {
	seen := make(map[string]bool, len(rs.FlagRules))
	for _, rule := range rs.FlagRules {
		if rule.ID == "" {
			return NewRuleSetError(rs.ModuleID, rs.Version, "flag rule without an id")
		}
		if seen[rule.ID] {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s declared twice", rule.ID))
		}
		seen[rule.ID] = true

		if !rule.Combinator.IsValid() {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s has unknown combinator %q", rule.ID, rule.Combinator))
		}
		if rule.Severity != "" && !rule.Severity.IsValid() {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s has unknown severity %q", rule.ID, rule.Severity))
		}
		if len(rule.Criteria) == 0 {
			return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s declares no criteria", rule.ID))
		}
		for _, crit := range rule.Criteria {
			q, ok := questions[crit.QuestionID]
			if !ok {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s references undefined question %s", rule.ID, crit.QuestionID))
			}
			if _, ok := q.OptionByValue(crit.ExpectedValue); !ok {
				return NewRuleSetError(rs.ModuleID, rs.Version, fmt.Sprintf("flag rule %s expects value %q that question %s never declares", rule.ID, crit.ExpectedValue, crit.QuestionID))
			}
		}
	}
	return nil
}
