// Package repository persists published contracts in PostgreSQL. History is
// append-only: a re-published recommendation becomes a new row, and reads
// resolve the newest row per (session, module) slot.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// ContractRepository handles care recommendation persistence
type ContractRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *pgxpool.Pool, logger *logrus.Logger) *ContractRepository {
	return &ContractRepository{
		db:  db,
		log: logger,
	}
}

// SaveRecommendation appends a published recommendation to the session's
// contract history. Rows are never updated in place.
func (r *ContractRepository) SaveRecommendation(ctx context.Context, sessionID string, rec *domain.CareRecommendation) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("saving recommendation: %w", err)
	}

	rankingsJSON, err := json.Marshal(rec.TierRankings)
	if err != nil {
		return fmt.Errorf("marshaling tier rankings: %w", err)
	}
	flagsJSON, err := json.Marshal(rec.Flags)
	if err != nil {
		return fmt.Errorf("marshaling flags: %w", err)
	}
	rationaleJSON, err := json.Marshal(rec.Rationale)
	if err != nil {
		return fmt.Errorf("marshaling rationale: %w", err)
	}

	query := `
		INSERT INTO care_recommendations (
			id, session_id, module_id, tier, tier_score, tier_rankings,
			confidence, flags, rationale, rule_version, input_fingerprint, generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		rec.ID,
		sessionID,
		rec.ModuleID,
		rec.Tier.String(),
		rec.TierScore,
		rankingsJSON,
		rec.Confidence,
		flagsJSON,
		rationaleJSON,
		rec.RuleVersion,
		rec.InputFingerprint,
		rec.GeneratedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"recommendation_id": rec.ID,
			"session_id":        sessionID,
			"module_id":         rec.ModuleID,
			"error":             err,
		}).Error("Failed to save recommendation")
		return fmt.Errorf("saving recommendation: %w", err)
	}

	r.log.WithFields(logrus.Fields(rec.LogFields())).Info("Recommendation saved")

	return nil
}

const recommendationColumns = `
	id, module_id, tier, tier_score, tier_rankings,
	confidence, flags, rationale, rule_version, input_fingerprint, generated_at`

// LatestRecommendation retrieves the newest recommendation for a session's
// module slot.
func (r *ContractRepository) LatestRecommendation(ctx context.Context, sessionID, moduleID string) (*domain.CareRecommendation, error) {
	query := `
		SELECT` + recommendationColumns + `
		FROM care_recommendations
		WHERE session_id = $1 AND module_id = $2
		ORDER BY generated_at DESC, created_at DESC
		LIMIT 1`

	rec, err := r.scanRecommendation(r.db.QueryRow(ctx, query, sessionID, moduleID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("recommendation for session %s module %s: %w", sessionID, moduleID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"module_id":  moduleID,
			"error":      err,
		}).Error("Failed to get latest recommendation")
		return nil, fmt.Errorf("getting latest recommendation: %w", err)
	}

	return rec, nil
}

// RecommendationHistory retrieves every published recommendation for a
// session's module slot, newest first.
func (r *ContractRepository) RecommendationHistory(ctx context.Context, sessionID, moduleID string) ([]*domain.CareRecommendation, error) {
	query := `
		SELECT` + recommendationColumns + `
		FROM care_recommendations
		WHERE session_id = $1 AND module_id = $2
		ORDER BY generated_at DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, sessionID, moduleID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"module_id":  moduleID,
			"error":      err,
		}).Error("Failed to get recommendation history")
		return nil, fmt.Errorf("getting recommendation history: %w", err)
	}
	defer rows.Close()

	var history []*domain.CareRecommendation
	for rows.Next() {
		rec, err := r.scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation row: %w", err)
		}
		history = append(history, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendation rows: %w", err)
	}

	return history, nil
}

// scanRecommendation reads one row and unpacks the JSONB columns.
func (r *ContractRepository) scanRecommendation(row pgx.Row) (*domain.CareRecommendation, error) {
	var rec domain.CareRecommendation
	var tier string
	var rankingsJSON, flagsJSON, rationaleJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.ModuleID,
		&tier,
		&rec.TierScore,
		&rankingsJSON,
		&rec.Confidence,
		&flagsJSON,
		&rationaleJSON,
		&rec.RuleVersion,
		&rec.InputFingerprint,
		&rec.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Tier = domain.CareTier(tier)
	if err := json.Unmarshal(rankingsJSON, &rec.TierRankings); err != nil {
		return nil, fmt.Errorf("unmarshaling tier rankings: %w", err)
	}
	if err := json.Unmarshal(flagsJSON, &rec.Flags); err != nil {
		return nil, fmt.Errorf("unmarshaling flags: %w", err)
	}
	if err := json.Unmarshal(rationaleJSON, &rec.Rationale); err != nil {
		return nil, fmt.Errorf("unmarshaling rationale: %w", err)
	}

	return &rec, nil
}
