package scoring

import (
	"fmt"
	"sort"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

type ratedAnswer struct {
	label string
	score int
	order int
}

// Rationale returns up to topN human-readable labels for the answered
// questions that contributed the most score, highest first, ties broken by
// declaration order. Labels come from the rule definition; nothing is
// generated here. Zero-score answers justify nothing and are skipped.
func (e *Engine) Rationale(answers *domain.AnswerSet, topN int) []string {
	if topN <= 0 {
		topN = e.rationaleLimit
	}

	var rated []ratedAnswer
	for i, q := range e.ruleSet.Questions() {
		value, ok := answers.Answer(q.ID)
		if !ok {
			continue
		}
		option, ok := q.OptionByValue(value)
		if !ok || option.Score == 0 {
			continue
		}
		rated = append(rated, ratedAnswer{
			label: rationaleLabel(q, *option),
			score: option.Score,
			order: i,
		})
	}

	sort.SliceStable(rated, func(a, b int) bool {
		if rated[a].score != rated[b].score {
			return rated[a].score > rated[b].score
		}
		return rated[a].order < rated[b].order
	})

	if len(rated) > topN {
		rated = rated[:topN]
	}
	out := make([]string, 0, len(rated))
	for _, r := range rated {
		out = append(out, r.label)
	}
	return out
}

// rationaleLabel prefers the option's own label, then falls back to the
// question label with the chosen value.
func rationaleLabel(q domain.Question, option domain.AnswerOption) string {
	if option.Label != "" {
		return option.Label
	}
	if q.Label != "" {
		return fmt.Sprintf("%s: %s", q.Label, option.Value)
	}
	return fmt.Sprintf("%s: %s", q.ID, option.Value)
}
