package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// AnswerSet holds the selected value per answered question. Unanswered
// questions are simply absent, never present with an empty value. The set is
// mutable while answers are collected and frozen before scoring; a frozen
// set rejects further writes so every contract built from it is reproducible.
type AnswerSet struct {
	values map[string]string
	frozen bool
}

// NewAnswerSet creates an empty, unfrozen answer set.
func NewAnswerSet() *AnswerSet {
	return &AnswerSet{values: make(map[string]string)}
}

// NewAnswerSetFrom creates an answer set pre-populated from a raw map.
// Empty values are skipped, matching the absent-not-null rule.
func NewAnswerSetFrom(raw map[string]string) *AnswerSet {
	as := NewAnswerSet()
	for id, value := range raw {
		if value == "" {
			continue
		}
		as.values[id] = value
	}
	return as
}

// Set records the selected value for a question. Setting an empty value
// removes the answer. Returns ErrAnswerSetFrozen once the set is frozen.
func (as *AnswerSet) Set(questionID, value string) error {
	if as.frozen {
		return fmt.Errorf("set answer %s: %w", questionID, ErrAnswerSetFrozen)
	}
	if questionID == "" {
		return NewValidationError("question_id", "question id is required", questionID)
	}
	if value == "" {
		delete(as.values, questionID)
		return nil
	}
	as.values[questionID] = value
	return nil
}

// Answer returns the selected value for a question and whether it was
// answered at all.
func (as *AnswerSet) Answer(questionID string) (string, bool) {
	value, ok := as.values[questionID]
	return value, ok
}

// Len returns the number of answered questions.
func (as *AnswerSet) Len() int {
	return len(as.values)
}

// Freeze locks the answer set against further mutation. Freezing twice is a
// no-op.
func (as *AnswerSet) Freeze() {
	as.frozen = true
}

// Frozen reports whether the set accepts further writes.
func (as *AnswerSet) Frozen() bool {
	return as.frozen
}

// Values returns a copy of the answered question/value pairs. The copy keeps
// callers from mutating a frozen set through the map.
func (as *AnswerSet) Values() map[string]string {
	out := make(map[string]string, len(as.values))
	for id, value := range as.values {
		out[id] = value
	}
	return out
}

// QuestionIDs returns the answered question IDs in sorted order.
func (as *AnswerSet) QuestionIDs() []string {
	ids := make([]string, 0, len(as.values))
	for id := range as.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fingerprint returns a stable content hash of the answer set, independent
// of answer insertion order. Identical answers always produce an identical
// fingerprint, which is what idempotence checks on published contracts key
// on.
func (as *AnswerSet) Fingerprint() string {
	ids := as.QuestionIDs()
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('=')
		b.WriteString(as.values[id])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "sha256:" + hex.EncodeToString(sum[:])
}
