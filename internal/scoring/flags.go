package scoring

import (
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// EvaluateFlags evaluates every declared flag rule against the answer set.
// The result always contains exactly one entry per declared rule with an
// explicit Active marker; consumers must check Active, never presence.
// A criterion whose question is unanswered is not satisfied; it never
// fails the evaluation.
func (e *Engine) EvaluateFlags(answers *domain.AnswerSet) []domain.Flag {
	flags := make([]domain.Flag, 0, len(e.ruleSet.FlagRules))
	activeCount := 0

	for _, rule := range e.ruleSet.FlagRules {
		active := e.evaluateRule(rule, answers)
		if active {
			activeCount++
		}
		flags = append(flags, domain.Flag{
			ID:       rule.ID,
			Label:    rule.Label,
			Active:   active,
			Severity: rule.Severity,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"module_id":    e.ruleSet.ModuleID,
		"total_rules":  len(flags),
		"active_flags": activeCount,
	}).Debug("Evaluated flag rules")

	return flags
}

// evaluateRule applies the rule's combinator short-circuit over its
// criteria.
func (e *Engine) evaluateRule(rule domain.FlagRule, answers *domain.AnswerSet) bool {
	switch rule.Combinator {
	case domain.AND_COMBINATOR:
		for _, crit := range rule.Criteria {
			if !criterionSatisfied(crit, answers) {
				return false
			}
		}
		return true
	case domain.OR_COMBINATOR:
		for _, crit := range rule.Criteria {
			if criterionSatisfied(crit, answers) {
				return true
			}
		}
		return false
	default:
		// Unreachable for validated rule sets.
		e.logger.WithFields(logrus.Fields{
			"module_id":  e.ruleSet.ModuleID,
			"flag_rule":  rule.ID,
			"combinator": string(rule.Combinator),
		}).Warn("Unknown flag combinator, treating rule as inactive")
		return false
	}
}

func criterionSatisfied(crit domain.FlagCriterion, answers *domain.AnswerSet) bool {
	value, answered := answers.Answer(crit.QuestionID)
	return answered && value == crit.ExpectedValue
}
