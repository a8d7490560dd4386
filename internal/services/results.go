package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/types"
	"go.uber.org/zap"
)

const emptyPayload = "[]"

// BurnoutRepository defines persistence operations for burnout results.
type BurnoutRepository interface {
	Create(ctx context.Context, result types.BurnoutResult) (types.BurnoutResult, error)
	ListByAccount(ctx context.Context, accountID int64) ([]types.BurnoutResult, error)
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
}

// FatigueRepository defines persistence operations for fatigue results.
type FatigueRepository interface {
	Create(ctx context.Context, result types.FatigueResult) (types.FatigueResult, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.FatigueResult, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// BurnoutRequest is a submitted burnout questionnaire outcome.
type BurnoutRequest struct {
	BurnoutScore   *int   `json:"burnoutScore"`
	RiskLabel      string `json:"riskLabel"`
	RiskTitle      string `json:"riskTitle"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
	Answers        []int  `json:"answers"`
}

func (r BurnoutRequest) validate() error {
	var v validator
	v.intRange("burnoutScore", r.BurnoutScore, 0, 100)
	v.required("riskLabel", r.RiskLabel)
	v.maxLength("message", r.Message, maxTextLength)
	v.maxLength("recommendation", r.Recommendation, maxTextLength)
	return v.err()
}

// FatigueRequest is a submitted fatigue detection outcome. Recommendations
// is stored verbatim as JSON.
type FatigueRequest struct {
	FatigueScore       *int     `json:"fatigueScore"`
	RiskLabel          string   `json:"riskLabel"`
	RiskTitle          string   `json:"riskTitle"`
	Message            string   `json:"message"`
	Confidence         *float64 `json:"confidence"`
	Recommendations    any      `json:"recommendations"`
	RecommendationText string   `json:"recommendationText"`
}

func (r FatigueRequest) validate() error {
	var v validator
	v.intRange("fatigueScore", r.FatigueScore, 0, 100)
	v.required("riskLabel", r.RiskLabel)
	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
		v.add("confidence", "is out of range")
	}
	return v.err()
}

// ResultService stores and lists assessment results for the token subject.
// Burnout results are keyed by the local account, fatigue results by the
// subject itself.
type ResultService struct {
	accounts AccountRepository
	burnout  BurnoutRepository
	fatigue  FatigueRepository
	stats    StatsInvalidator
	log      *zap.Logger

	encode func(any) ([]byte, error)
	now    func() time.Time
}

func NewResultService(accounts AccountRepository, burnout BurnoutRepository, fatigue FatigueRepository, log *zap.Logger) *ResultService {
	return &ResultService{
		accounts: accounts,
		burnout:  burnout,
		fatigue:  fatigue,
		log:      logger.OrNop(log),
		encode:   json.Marshal,
		now:      time.Now,
	}
}

// WithStatsInvalidator makes result submissions drop cached statistics.
func (s *ResultService) WithStatsInvalidator(stats StatsInvalidator) *ResultService {
	s.stats = stats
	return s
}

func (s *ResultService) SubmitBurnout(ctx context.Context, subject string, req BurnoutRequest) (types.BurnoutResult, error) {
	if err := req.validate(); err != nil {
		return types.BurnoutResult{}, err
	}
	account, err := s.accounts.GetByExternalID(ctx, subject)
	if err != nil {
		return types.BurnoutResult{}, err
	}

	var answers any
	if req.Answers != nil {
		answers = req.Answers
	}
	result, err := s.burnout.Create(ctx, types.BurnoutResult{
		AccountID:      account.ID,
		Score:          *req.BurnoutScore,
		RiskLabel:      req.RiskLabel,
		RiskTitle:      req.RiskTitle,
		Message:        req.Message,
		Recommendation: req.Recommendation,
		AnswersJSON:    s.serialize(answers, "answers"),
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return types.BurnoutResult{}, err
	}
	s.invalidateStats(ctx)
	return result, nil
}

func (s *ResultService) ListBurnout(ctx context.Context, subject string) ([]types.BurnoutResult, error) {
	account, err := s.accounts.GetByExternalID(ctx, subject)
	if err != nil {
		return nil, err
	}
	results, err := s.burnout.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []types.BurnoutResult{}
	}
	return results, nil
}

func (s *ResultService) SubmitFatigue(ctx context.Context, subject string, req FatigueRequest) (types.FatigueResult, error) {
	if err := req.validate(); err != nil {
		return types.FatigueResult{}, err
	}
	result, err := s.fatigue.Create(ctx, types.FatigueResult{
		OwnerID:             subject,
		Score:               *req.FatigueScore,
		RiskLabel:           req.RiskLabel,
		RiskTitle:           req.RiskTitle,
		Message:             req.Message,
		Confidence:          req.Confidence,
		RecommendationsJSON: s.serialize(req.Recommendations, "recommendations"),
		RecommendationText:  req.RecommendationText,
		CreatedAt:           s.now().UTC(),
	})
	if err != nil {
		return types.FatigueResult{}, err
	}
	s.invalidateStats(ctx)
	return result, nil
}

func (s *ResultService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func (s *ResultService) ListFatigue(ctx context.Context, subject string) ([]types.FatigueResult, error) {
	results, err := s.fatigue.ListByOwner(ctx, subject)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []types.FatigueResult{}
	}
	return results, nil
}

// serialize encodes a structured payload. A missing payload or an encoding
// failure yields an empty JSON array so the result is still saved.
func (s *ResultService) serialize(payload any, field string) string {
	if payload == nil {
		return emptyPayload
	}
	data, err := s.encode(payload)
	if err != nil {
		s.log.Warn("failed to serialize result payload", zap.String("field", field), zap.Error(err))
		return emptyPayload
	}
	return string(data)
}
