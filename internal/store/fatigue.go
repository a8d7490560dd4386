package store

import (
	"context"
	"database/sql"

	"github.com/burncare/apiserver/types"
)

// FatigueRepository handles persistence for fatigue results.
// Results are keyed by the identity-provider subject of the submitter.
type FatigueRepository struct {
	db *sql.DB
}

func NewFatigueRepository(db *sql.DB) *FatigueRepository {
	return &FatigueRepository{db: db}
}

func (r *FatigueRepository) Create(ctx context.Context, result types.FatigueResult) (types.FatigueResult, error) {
	const query = `
		INSERT INTO fatigue_results (owner_id, score, risk_label, risk_title, message, confidence, recommendations_json, recommendation_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	var confidence sql.NullFloat64
	if result.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *result.Confidence, Valid: true}
	}
	if err := r.db.QueryRowContext(
		ctx,
		query,
		result.OwnerID,
		result.Score,
		result.RiskLabel,
		result.RiskTitle,
		result.Message,
		confidence,
		result.RecommendationsJSON,
		result.RecommendationText,
		result.CreatedAt,
	).Scan(&result.ID); err != nil {
		return types.FatigueResult{}, err
	}
	return result, nil
}

// ListByOwner returns the owner's results, most recent first.
func (r *FatigueRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.FatigueResult, error) {
	const query = `
		SELECT id, owner_id, score, risk_label, risk_title, message, confidence, recommendations_json, recommendation_text, created_at
		FROM fatigue_results
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]types.FatigueResult, 0)
	for rows.Next() {
		var result types.FatigueResult
		var confidence sql.NullFloat64
		if err := rows.Scan(
			&result.ID,
			&result.OwnerID,
			&result.Score,
			&result.RiskLabel,
			&result.RiskTitle,
			&result.Message,
			&confidence,
			&result.RecommendationsJSON,
			&result.RecommendationText,
			&result.CreatedAt,
		); err != nil {
			return nil, err
		}
		if confidence.Valid {
			value := confidence.Float64
			result.Confidence = &value
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// DeleteByOwner removes every result of the owner and reports how many were removed.
func (r *FatigueRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	const query = `DELETE FROM fatigue_results WHERE owner_id = $1`
	result, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *FatigueRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM fatigue_results`)
}

func (r *FatigueRepository) CountByRiskLabel(ctx context.Context, label string) (int64, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM fatigue_results WHERE risk_label = $1`, label)
}

func (r *FatigueRepository) AverageScore(ctx context.Context) (float64, error) {
	return average(ctx, r.db, `SELECT COALESCE(AVG(score), 0) FROM fatigue_results`)
}
