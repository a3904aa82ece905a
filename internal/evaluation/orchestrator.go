package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sghtao/companion-camp-backend/internal/ai"
	"github.com/sghtao/companion-camp-backend/internal/compliance"
	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
	"github.com/sghtao/companion-camp-backend/internal/reward"
	"github.com/sghtao/companion-camp-backend/internal/scoring"
)

// Orchestrator sequences data collection, compliance, scoring and reward
// dispatch. Only data collection failures abort an evaluation.
type Orchestrator struct {
	social      data.SocialDataSource
	qualitative ai.QualitativeEvaluator
	dispatcher  reward.Dispatcher
	postLimit   int
	recorder    Recorder
	logger      *slog.Logger
}

type Option func(*Orchestrator)

func WithPostLimit(limit int) Option {
	return func(o *Orchestrator) {
		o.postLimit = data.ClampPostLimit(limit)
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

func NewOrchestrator(
	social data.SocialDataSource,
	qualitative ai.QualitativeEvaluator,
	dispatcher reward.Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		social:      social,
		qualitative: qualitative,
		dispatcher:  dispatcher,
		postLimit:   data.DefaultPostLimit,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Evaluate implements Evaluator
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	handle := data.NormalizeHandle(req.Handle)
	logger := o.logger.With("handle", handle)

	// 1. 收集数据
	o.enter(logger, StageCollectingData)
	if handle == "" {
		o.finish(StageHardError)
		return nil, fmt.Errorf("failed to collect account data: %w", data.ErrAccountNotFound)
	}

	stats, posts, err := o.collect(ctx, handle)
	if err != nil {
		return nil, o.collectFailed(logger, err)
	}
	if len(posts) == 0 {
		logger.Info("no posts available, skipping evaluation")
		o.finish(StageNoPostsAvailable)
		return nil, ErrNoPosts
	}

	// 2. 广告合规
	o.enter(logger, StageVerifyingCompliance)
	verification := compliance.Verify(posts, req.RequiredKeyword)

	// 3. 定量评分
	o.enter(logger, StageScoringQuantitative)
	quantitative := scoring.Normalize(stats.ReachScore)

	// 4. AI 定性评分
	o.enter(logger, StageScoringQualitative)
	outcome := o.qualitative.Evaluate(ctx, handle, stats, posts)
	if outcome.Degraded {
		logger.Warn("qualitative score degraded to fallback", "reason", outcome.Reason)
	}

	// 5. 融合
	o.enter(logger, StageFusingScore)
	final := scoring.Fuse(quantitative, outcome.Result.QualityScore)

	// 6. 发放奖励
	o.enter(logger, StageDispatchingReward)
	receipt, err := o.dispatcher.Dispatch(ctx, req.WalletAddress, final)
	if err != nil {
		logger.Error("reward dispatch failed, returning zero receipt", "err", err)
		if o.recorder != nil {
			o.recorder.RewardDispatchFailed()
		}
		receipt = reward.ZeroReceipt(req.WalletAddress)
	}

	o.enter(logger, StageDone)
	o.finish(StageDone)
	logger.Info("evaluation completed",
		"quantitative", quantitative,
		"qualitative", outcome.Result.QualityScore,
		"final", final,
		"ai_degraded", outcome.Degraded,
		"verified", verification.IsVerified)

	return &Result{
		Username:     handle,
		Verification: verification,
		Scores: Scores{
			SocialScore: quantitative,
			AIScore:     outcome.Result.QualityScore,
			FinalScore:  final,
			Details: ScoreDetails{
				Identity: outcome.Result.IdentityScore,
				Fandom:   outcome.Result.FandomScore,
				Safety:   outcome.Result.SafetyScore,
			},
		},
		AnalysisSummary: outcome.Result.Summary,
		Reward:          receipt,
		AIDegraded:      outcome.Degraded,
		Stage:           StageDone,
	}, nil
}

func (o *Orchestrator) collect(ctx context.Context, handle string) (*models.AccountStats, []models.Post, error) {
	if src, ok := o.social.(data.SnapshotSource); ok {
		return src.GetAccountSnapshot(ctx, handle, o.postLimit)
	}

	stats, err := o.social.GetAccountStats(ctx, handle)
	if err != nil {
		return nil, nil, err
	}
	posts, err := o.social.GetRecentPosts(ctx, handle, o.postLimit)
	if err != nil {
		return nil, nil, err
	}
	return stats, posts, nil
}

func (o *Orchestrator) collectFailed(logger *slog.Logger, err error) error {
	if errors.Is(err, data.ErrAccountNotFound) {
		logger.Info("account not found", "source", o.social.Name())
	} else {
		logger.Error("failed to collect account data", "source", o.social.Name(), "err", err)
	}
	o.finish(StageHardError)
	return fmt.Errorf("failed to collect account data: %w", err)
}

func (o *Orchestrator) enter(logger *slog.Logger, stage Stage) {
	logger.Debug("evaluation stage", "stage", stage)
}

func (o *Orchestrator) finish(stage Stage) {
	if o.recorder != nil {
		o.recorder.EvaluationCompleted(string(stage))
	}
}
