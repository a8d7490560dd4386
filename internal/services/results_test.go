package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/burncare/apiserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResultFixture(t *testing.T) (*ResultService, *fakeAccounts, *fakeBurnout, *fakeFatigue) {
	t.Helper()
	accounts := newFakeAccounts()
	burnout := &fakeBurnout{}
	fatigue := &fakeFatigue{}
	return NewResultService(accounts, burnout, fatigue, nil), accounts, burnout, fatigue
}

func TestSubmitBurnout(t *testing.T) {
	svc, accounts, burnout, _ := newResultFixture(t)
	acc := seedAccount(t, accounts, "a@x.com", true)

	res, err := svc.SubmitBurnout(context.Background(), acc.ExternalID, BurnoutRequest{
		BurnoutScore: ptr(42),
		RiskLabel:    "Moyen",
		RiskTitle:    "Risque modéré",
		Answers:      []int{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, res.AccountID)
	assert.Equal(t, "[1,2,3]", res.AnswersJSON)
	assert.False(t, res.CreatedAt.IsZero())
	assert.Len(t, burnout.rows, 1)
}

func TestSubmitBurnout_UnknownSubject(t *testing.T) {
	svc, _, _, _ := newResultFixture(t)
	_, err := svc.SubmitBurnout(context.Background(), "nobody", BurnoutRequest{BurnoutScore: ptr(10), RiskLabel: "Faible"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitResults_Validation(t *testing.T) {
	svc, accounts, _, _ := newResultFixture(t)
	acc := seedAccount(t, accounts, "a@x.com", true)
	var verr *ValidationError

	_, err := svc.SubmitBurnout(context.Background(), acc.ExternalID, BurnoutRequest{BurnoutScore: ptr(101), RiskLabel: "Élevé"})
	assert.True(t, errors.As(err, &verr))

	_, err = svc.SubmitFatigue(context.Background(), acc.ExternalID, FatigueRequest{RiskLabel: "Faible"})
	assert.True(t, errors.As(err, &verr))

	_, err = svc.SubmitFatigue(context.Background(), acc.ExternalID, FatigueRequest{FatigueScore: ptr(5), RiskLabel: "Faible", Confidence: ptr(1.5)})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "confidence", verr.Violations[0].Field)
}

func TestSubmitBurnout_TextLimits(t *testing.T) {
	svc, accounts, burnout, _ := newResultFixture(t)
	acc := seedAccount(t, accounts, "a@x.com", true)
	ctx := context.Background()

	_, err := svc.SubmitBurnout(ctx, acc.ExternalID, BurnoutRequest{
		BurnoutScore:   ptr(30),
		RiskLabel:      "Faible",
		Message:        strings.Repeat("a", 2001),
		Recommendation: strings.Repeat("b", 2001),
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 2)
	assert.Equal(t, "message", verr.Violations[0].Field)
	assert.Equal(t, "recommendation", verr.Violations[1].Field)
	assert.Empty(t, burnout.rows)

	_, err = svc.SubmitBurnout(ctx, acc.ExternalID, BurnoutRequest{
		BurnoutScore: ptr(30),
		RiskLabel:    "Faible",
		Message:      strings.Repeat("é", 2000),
	})
	require.NoError(t, err)
	assert.Len(t, burnout.rows, 1)
}

func TestSubmitFatigue_SerializationFallback(t *testing.T) {
	svc, _, _, fatigue := newResultFixture(t)
	svc.encode = func(any) ([]byte, error) { return nil, errors.New("unsupported value") }

	res, err := svc.SubmitFatigue(context.Background(), "sub-1", FatigueRequest{
		FatigueScore:    ptr(75),
		RiskLabel:       "Élevé",
		Recommendations: map[string]any{"sleep": "8h"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", res.RecommendationsJSON)
	require.Len(t, fatigue.rows, 1)
	assert.Equal(t, "sub-1", fatigue.rows[0].OwnerID)
}

func TestSubmitFatigue_StoresRecommendations(t *testing.T) {
	svc, _, _, _ := newResultFixture(t)
	res, err := svc.SubmitFatigue(context.Background(), "sub-1", FatigueRequest{
		FatigueScore:    ptr(30),
		RiskLabel:       "Faible",
		Confidence:      ptr(0.9),
		Recommendations: []any{"hydrate", "pause"},
	})
	require.NoError(t, err)
	assert.Equal(t, `["hydrate","pause"]`, res.RecommendationsJSON)
	assert.InDelta(t, 0.9, *res.Confidence, 1e-9)

	res, err = svc.SubmitFatigue(context.Background(), "sub-1", FatigueRequest{FatigueScore: ptr(30), RiskLabel: "Faible"})
	require.NoError(t, err)
	assert.Equal(t, "[]", res.RecommendationsJSON)
}

func TestListResults_NewestFirstAndEmpty(t *testing.T) {
	svc, accounts, _, _ := newResultFixture(t)
	acc := seedAccount(t, accounts, "a@x.com", true)
	ctx := context.Background()

	burnout, err := svc.ListBurnout(ctx, acc.ExternalID)
	require.NoError(t, err)
	assert.NotNil(t, burnout)
	assert.Empty(t, burnout)

	fatigue, err := svc.ListFatigue(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, fatigue)
	assert.Empty(t, fatigue)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []int{10, 20, 30} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.SubmitFatigue(ctx, acc.ExternalID, FatigueRequest{FatigueScore: ptr(score), RiskLabel: "Faible"})
		require.NoError(t, err)
	}

	fatigue, err = svc.ListFatigue(ctx, acc.ExternalID)
	require.NoError(t, err)
	require.Len(t, fatigue, 3)
	assert.Equal(t, 30, fatigue[0].Score)
	assert.Equal(t, 10, fatigue[2].Score)
}

func TestSubmitResults_InvalidateStats(t *testing.T) {
	svc, accounts, _, _ := newResultFixture(t)
	inv := &countingInvalidator{}
	svc.WithStatsInvalidator(inv)
	acc := seedAccount(t, accounts, "a@x.com", true)
	ctx := context.Background()

	_, err := svc.SubmitBurnout(ctx, acc.ExternalID, BurnoutRequest{BurnoutScore: ptr(10), RiskLabel: "Faible"})
	require.NoError(t, err)
	_, err = svc.SubmitFatigue(ctx, acc.ExternalID, FatigueRequest{FatigueScore: ptr(10), RiskLabel: "Faible"})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)

	_, err = svc.SubmitBurnout(ctx, acc.ExternalID, BurnoutRequest{BurnoutScore: ptr(101), RiskLabel: "Faible"})
	require.Error(t, err)
	_, err = svc.SubmitBurnout(ctx, "nobody", BurnoutRequest{BurnoutScore: ptr(10), RiskLabel: "Faible"})
	require.Error(t, err)
	assert.Equal(t, 2, inv.calls)
}
