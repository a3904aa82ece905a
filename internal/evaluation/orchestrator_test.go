package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghtao/companion-camp-backend/internal/ai"
	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/data/social/synthetic"
	"github.com/sghtao/companion-camp-backend/internal/models"
	"github.com/sghtao/companion-camp-backend/internal/reward"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSocial struct {
	stats    *models.AccountStats
	posts    []models.Post
	statsErr error
	postsErr error

	gotLimit int
}

func (f *fakeSocial) Name() string { return "fake" }

func (f *fakeSocial) GetAccountStats(ctx context.Context, handle string) (*models.AccountStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeSocial) GetRecentPosts(ctx context.Context, handle string, limit int) ([]models.Post, error) {
	f.gotLimit = limit
	return f.posts, f.postsErr
}

// snapshotSocial also serves stats and posts in one call.
type snapshotSocial struct {
	fakeSocial
	snapshots   int
	singleCalls int
}

func (f *snapshotSocial) GetAccountStats(ctx context.Context, handle string) (*models.AccountStats, error) {
	f.singleCalls++
	return f.fakeSocial.GetAccountStats(ctx, handle)
}

func (f *snapshotSocial) GetRecentPosts(ctx context.Context, handle string, limit int) ([]models.Post, error) {
	f.singleCalls++
	return f.fakeSocial.GetRecentPosts(ctx, handle, limit)
}

func (f *snapshotSocial) GetAccountSnapshot(ctx context.Context, handle string, limit int) (*models.AccountStats, []models.Post, error) {
	f.snapshots++
	f.gotLimit = limit
	if f.statsErr != nil {
		return nil, nil, f.statsErr
	}
	return f.stats, f.posts, nil
}

type fakeQualitative struct {
	outcome ai.Outcome
	called  bool
}

func (f *fakeQualitative) Evaluate(ctx context.Context, handle string, stats *models.AccountStats, posts []models.Post) ai.Outcome {
	f.called = true
	return f.outcome
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(ctx context.Context, wallet string, score int) (*reward.Receipt, error) {
	return nil, fmt.Errorf("%w: ledger offline", reward.ErrRewardDispatch)
}

type fakeRecorder struct {
	stages         []string
	rewardFailures int
}

func (r *fakeRecorder) EvaluationCompleted(stage string) { r.stages = append(r.stages, stage) }
func (r *fakeRecorder) RewardDispatchFailed()            { r.rewardFailures++ }

func demoSocial() *fakeSocial {
	posts := make([]models.Post, 0, 5)
	for i := 0; i < 5; i++ {
		posts = append(posts, models.Post{ID: fmt.Sprintf("p%d", i), Text: fmt.Sprintf("walk day %d #ad", i)})
	}
	return &fakeSocial{
		stats: &models.AccountStats{
			Handle:         "demo_pet",
			FollowerCount:  15200,
			EngagementRate: 4.5,
			ReachScore:     8.5,
		},
		posts: posts,
	}
}

func newDispatcher(t *testing.T) *reward.SimulatedDispatcher {
	d, err := reward.NewSimulatedDispatcher(reward.DefaultPolicy(), testLogger(),
		reward.WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	return d
}

func TestOrchestrator_Evaluate_DemoPet(t *testing.T) {
	tests := []struct {
		name        string
		qualitative ai.QualitativeResult
		degraded    bool
	}{
		{
			name:        "ai result",
			qualitative: ai.QualitativeResult{QualityScore: 72, IdentityScore: 30, FandomScore: 20, SafetyScore: 22, Summary: "cozy persona"},
		},
		{
			name:        "fallback result",
			qualitative: ai.FallbackResult(),
			degraded:    true,
		},
		{
			name:        "zero quality",
			qualitative: ai.QualitativeResult{QualityScore: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fakeRecorder{}
			qual := &fakeQualitative{outcome: ai.Outcome{Result: tt.qualitative, Degraded: tt.degraded}}
			o := NewOrchestrator(demoSocial(), qual, newDispatcher(t), testLogger(), WithRecorder(recorder))

			res, err := o.Evaluate(context.Background(), Request{Handle: "@demo_pet", WalletAddress: "0xwallet"})
			require.NoError(t, err)

			wantFinal := int(math.Floor(85*0.4 + float64(tt.qualitative.QualityScore)*0.6))
			wantAmount := wantFinal * 10
			if wantAmount < 100 {
				wantAmount = 100
			}

			assert.Equal(t, "demo_pet", res.Username)
			assert.True(t, res.Verification.IsVerified)
			assert.True(t, res.Verification.KeywordMatched)
			assert.InDelta(t, 85.0, res.Scores.SocialScore, 1e-9)
			assert.Equal(t, tt.qualitative.QualityScore, res.Scores.AIScore)
			assert.Equal(t, wantFinal, res.Scores.FinalScore)
			assert.Equal(t, ScoreDetails{
				Identity: tt.qualitative.IdentityScore,
				Fandom:   tt.qualitative.FandomScore,
				Safety:   tt.qualitative.SafetyScore,
			}, res.Scores.Details)
			assert.Equal(t, tt.qualitative.Summary, res.AnalysisSummary)
			assert.Equal(t, wantAmount, res.Reward.Amount)
			assert.Equal(t, "0xwallet", res.Reward.WalletAddress)
			assert.Len(t, res.Reward.TxHash, 66)
			assert.Equal(t, tt.degraded, res.AIDegraded)
			assert.Equal(t, StageDone, res.Stage)
			assert.Equal(t, []string{string(StageDone)}, recorder.stages)
		})
	}
}

func TestOrchestrator_Evaluate_SyntheticEndToEnd(t *testing.T) {
	social := synthetic.NewDemoAdapter(testLogger())
	qual := ai.NewQualitativeScorer(nil, testLogger())
	o := NewOrchestrator(social, qual, newDispatcher(t), testLogger())

	res, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})
	require.NoError(t, err)

	assert.InDelta(t, 85.0, res.Scores.SocialScore, 1e-9)
	assert.Equal(t, 85, res.Scores.AIScore)
	assert.Equal(t, 85, res.Scores.FinalScore)
	assert.Equal(t, 850, res.Reward.Amount)
	assert.True(t, res.AIDegraded)
	assert.Equal(t, ai.NoAnalysisSummary, res.AnalysisSummary)
}

func TestOrchestrator_Evaluate_NoPosts(t *testing.T) {
	social := demoSocial()
	social.posts = nil
	qual := &fakeQualitative{}
	recorder := &fakeRecorder{}
	o := NewOrchestrator(social, qual, newDispatcher(t), testLogger(), WithRecorder(recorder))

	res, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoPosts)
	assert.False(t, qual.called)
	assert.Equal(t, []string{string(StageNoPostsAvailable)}, recorder.stages)
}

func TestOrchestrator_Evaluate_CollectionErrors(t *testing.T) {
	tests := []struct {
		name     string
		statsErr error
		postsErr error
		handle   string
		wantErr  error
	}{
		{
			name:     "account not found",
			statsErr: fmt.Errorf("x lookup: %w", data.ErrAccountNotFound),
			handle:   "ghost",
			wantErr:  data.ErrAccountNotFound,
		},
		{
			name:     "provider unavailable on stats",
			statsErr: fmt.Errorf("status 503: %w", data.ErrProviderUnavailable),
			handle:   "demo_pet",
			wantErr:  data.ErrProviderUnavailable,
		},
		{
			name:     "provider unavailable on posts",
			postsErr: fmt.Errorf("rate limited: %w", data.ErrProviderUnavailable),
			handle:   "demo_pet",
			wantErr:  data.ErrProviderUnavailable,
		},
		{
			name:    "empty handle",
			handle:  "@@",
			wantErr: data.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			social := demoSocial()
			social.statsErr = tt.statsErr
			social.postsErr = tt.postsErr
			qual := &fakeQualitative{}
			recorder := &fakeRecorder{}
			o := NewOrchestrator(social, qual, newDispatcher(t), testLogger(), WithRecorder(recorder))

			res, err := o.Evaluate(context.Background(), Request{Handle: tt.handle, WalletAddress: "0xabc"})

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, errors.Is(err, ErrNoPosts))
			assert.False(t, qual.called)
			assert.Equal(t, []string{string(StageHardError)}, recorder.stages)
		})
	}
}

func TestOrchestrator_Evaluate_RewardFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	qual := &fakeQualitative{outcome: ai.Outcome{Result: ai.QualitativeResult{QualityScore: 90}}}
	o := NewOrchestrator(demoSocial(), qual, failingDispatcher{}, testLogger(), WithRecorder(recorder))

	res, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})
	require.NoError(t, err)

	assert.Equal(t, 88, res.Scores.FinalScore) // 34 + 54
	assert.Equal(t, reward.ZeroReceipt("0xabc"), res.Reward)
	assert.Equal(t, 1, recorder.rewardFailures)
	assert.Equal(t, []string{string(StageDone)}, recorder.stages)
}

func TestOrchestrator_Evaluate_RequiredKeyword(t *testing.T) {
	qual := &fakeQualitative{outcome: ai.Degraded(ai.ReasonTimeout)}
	o := NewOrchestrator(demoSocial(), qual, newDispatcher(t), testLogger())

	res, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc", RequiredKeyword: "collab"})
	require.NoError(t, err)

	// banner stub keeps the account verified even without a keyword hit
	assert.False(t, res.Verification.KeywordMatched)
	assert.True(t, res.Verification.IsVerified)
}

func TestOrchestrator_PostLimit(t *testing.T) {
	social := demoSocial()
	o := NewOrchestrator(social, &fakeQualitative{}, newDispatcher(t), testLogger(), WithPostLimit(500))

	_, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, data.MaxPostLimit, social.gotLimit)

	o = NewOrchestrator(social, &fakeQualitative{}, newDispatcher(t), testLogger())
	_, err = o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, data.DefaultPostLimit, social.gotLimit)
}

func TestResult_JSONShape(t *testing.T) {
	qual := &fakeQualitative{outcome: ai.Outcome{Result: ai.QualitativeResult{QualityScore: 70, IdentityScore: 30, FandomScore: 20, SafetyScore: 20, Summary: "s"}}}
	o := NewOrchestrator(demoSocial(), qual, newDispatcher(t), testLogger())

	res, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "0xabc"})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	assert.ElementsMatch(t,
		[]string{"username", "verification", "scores", "analysis_summary", "reward"},
		keys(payload))
	assert.ElementsMatch(t, []string{"is_ad_verified", "has_banner"}, keys(payload["verification"].(map[string]interface{})))
	scores := payload["scores"].(map[string]interface{})
	assert.ElementsMatch(t, []string{"social_score", "ai_score", "final_score", "details"}, keys(scores))
	assert.ElementsMatch(t, []string{"identity", "fandom", "safety"}, keys(scores["details"].(map[string]interface{})))
	assert.ElementsMatch(t, []string{"tx_hash", "amount", "wallet_address"}, keys(payload["reward"].(map[string]interface{})))
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestOrchestrator_Evaluate_PrefersSnapshot(t *testing.T) {
	demo := synthetic.NewDemoAdapter(testLogger())
	stats, err := demo.GetAccountStats(context.Background(), "demo_pet")
	require.NoError(t, err)
	posts, err := demo.GetRecentPosts(context.Background(), "demo_pet", 20)
	require.NoError(t, err)

	social := &snapshotSocial{fakeSocial: fakeSocial{stats: stats, posts: posts}}
	o := NewOrchestrator(social, &fakeQualitative{outcome: ai.Outcome{Result: ai.FallbackResult()}}, newDispatcher(t), testLogger(),
		WithPostLimit(30))

	result, err := o.Evaluate(context.Background(), Request{Handle: "demo_pet", WalletAddress: "w"})
	require.NoError(t, err)

	assert.Equal(t, 1, social.snapshots)
	assert.Equal(t, 0, social.singleCalls)
	assert.Equal(t, 30, social.gotLimit)
	assert.Equal(t, 85.0, result.Scores.SocialScore)
}

func TestOrchestrator_Evaluate_SnapshotNotFound(t *testing.T) {
	social := &snapshotSocial{fakeSocial: fakeSocial{statsErr: data.ErrAccountNotFound}}
	recorder := &fakeRecorder{}
	o := NewOrchestrator(social, &fakeQualitative{}, newDispatcher(t), testLogger(), WithRecorder(recorder))

	result, err := o.Evaluate(context.Background(), Request{Handle: "ghost", WalletAddress: "w"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, data.ErrAccountNotFound)
	assert.Equal(t, []string{string(StageHardError)}, recorder.stages)
}
