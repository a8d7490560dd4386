package types

import "time"

// Risk labels shared by both assessment kinds.
const (
	RiskLow    = "Faible"
	RiskMedium = "Moyen"
	RiskHigh   = "Élevé"
)

// BurnoutResult is an immutable burnout questionnaire outcome.
// It is owned by a local account.
type BurnoutResult struct {
	// ID is the unique identifier of the result.
	ID int64 `json:"id" db:"id"`

	// AccountID references the owning local account.
	AccountID int64 `json:"-" db:"account_id"`

	// Score is the burnout score, from 0 to 100.
	Score int `json:"burnoutScore" db:"score"`

	// RiskLabel is one of RiskLow, RiskMedium, RiskHigh.
	RiskLabel string `json:"riskLabel" db:"risk_label"`

	// RiskTitle is the human-readable risk heading.
	RiskTitle string `json:"riskTitle" db:"risk_title"`

	Message        string `json:"message,omitempty" db:"message"`
	Recommendation string `json:"recommendation,omitempty" db:"recommendation"`

	// AnswersJSON holds the raw questionnaire answers serialized as JSON.
	AnswersJSON string `json:"-" db:"answers_json"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// FatigueResult is an immutable fatigue detection outcome.
// It is owned by an identity-provider subject rather than a local account.
type FatigueResult struct {
	// ID is the unique identifier of the result.
	ID int64 `json:"id" db:"id"`

	// OwnerID is the identity-provider subject of the submitter.
	OwnerID string `json:"-" db:"owner_id"`

	// Score is the fatigue score, from 0 to 100.
	Score int `json:"fatigueScore" db:"score"`

	RiskLabel string `json:"riskLabel" db:"risk_label"`
	RiskTitle string `json:"riskTitle" db:"risk_title"`
	Message   string `json:"message,omitempty" db:"message"`

	// Confidence is the detector confidence in [0, 1], when reported.
	Confidence *float64 `json:"confidence,omitempty" db:"confidence"`

	// RecommendationsJSON holds the structured recommendations as JSON text.
	RecommendationsJSON string `json:"recommendationsJson" db:"recommendations_json"`

	RecommendationText string `json:"recommendationText,omitempty" db:"recommendation_text"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
