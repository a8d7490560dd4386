package store

import (
	"context"
	"database/sql"

	"github.com/burncare/apiserver/types"
)

// BurnoutRepository handles persistence for burnout results.
// Results are keyed by the local account id.
type BurnoutRepository struct {
	db *sql.DB
}

func NewBurnoutRepository(db *sql.DB) *BurnoutRepository {
	return &BurnoutRepository{db: db}
}

func (r *BurnoutRepository) Create(ctx context.Context, result types.BurnoutResult) (types.BurnoutResult, error) {
	const query = `
		INSERT INTO burnout_results (account_id, score, risk_label, risk_title, message, recommendation, answers_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		result.AccountID,
		result.Score,
		result.RiskLabel,
		result.RiskTitle,
		result.Message,
		result.Recommendation,
		result.AnswersJSON,
		result.CreatedAt,
	).Scan(&result.ID); err != nil {
		return types.BurnoutResult{}, err
	}
	return result, nil
}

// ListByAccount returns the account's results, most recent first.
func (r *BurnoutRepository) ListByAccount(ctx context.Context, accountID int64) ([]types.BurnoutResult, error) {
	const query = `
		SELECT id, account_id, score, risk_label, risk_title, message, recommendation, answers_json, created_at
		FROM burnout_results
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]types.BurnoutResult, 0)
	for rows.Next() {
		var result types.BurnoutResult
		if err := rows.Scan(
			&result.ID,
			&result.AccountID,
			&result.Score,
			&result.RiskLabel,
			&result.RiskTitle,
			&result.Message,
			&result.Recommendation,
			&result.AnswersJSON,
			&result.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// DeleteByAccount removes every result of the account and reports how many were removed.
func (r *BurnoutRepository) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	const query = `DELETE FROM burnout_results WHERE account_id = $1`
	result, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *BurnoutRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM burnout_results`)
}

func (r *BurnoutRepository) CountByRiskLabel(ctx context.Context, label string) (int64, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM burnout_results WHERE risk_label = $1`, label)
}

func (r *BurnoutRepository) AverageScore(ctx context.Context) (float64, error) {
	return average(ctx, r.db, `SELECT COALESCE(AVG(score), 0) FROM burnout_results`)
}

func countRows(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	var count int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func average(ctx context.Context, db *sql.DB, query string) (float64, error) {
	var avg sql.NullFloat64
	if err := db.QueryRowContext(ctx, query).Scan(&avg); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
