package evaluation

import (
	"context"
	"errors"

	"github.com/sghtao/companion-camp-backend/internal/compliance"
	"github.com/sghtao/companion-camp-backend/internal/reward"
)

// Stage 评估流水线阶段
type Stage string

const (
	StageCollectingData      Stage = "collecting_data"
	StageVerifyingCompliance Stage = "verifying_compliance"
	StageScoringQuantitative Stage = "scoring_quantitative"
	StageScoringQualitative  Stage = "scoring_qualitative"
	StageFusingScore         Stage = "fusing_score"
	StageDispatchingReward   Stage = "dispatching_reward"
	StageDone                Stage = "done"

	// terminal failures
	StageNoPostsAvailable Stage = "no_posts_available"
	StageHardError        Stage = "hard_error"
)

var ErrNoPosts = errors.New("no recent posts to analyze")

// Evaluator runs the full evaluation pipeline for one account
type Evaluator interface {
	// Evaluate returns ErrNoPosts when there is nothing to analyze, and a
	// wrapped data error when account data cannot be collected.
	Evaluate(ctx context.Context, req Request) (*Result, error)
}

// Recorder receives pipeline outcomes, typically for metrics.
type Recorder interface {
	EvaluationCompleted(stage string)
	RewardDispatchFailed()
}

type Request struct {
	Handle          string
	WalletAddress   string
	RequiredKeyword string
}

// ScoreDetails AI 子评分
type ScoreDetails struct {
	Identity int `json:"identity"`
	Fandom   int `json:"fandom"`
	Safety   int `json:"safety"`
}

type Scores struct {
	SocialScore float64      `json:"social_score"`
	AIScore     int          `json:"ai_score"`
	FinalScore  int          `json:"final_score"`
	Details     ScoreDetails `json:"details"`
}

// Result is the evaluation payload returned to callers.
type Result struct {
	Username        string            `json:"username"`
	Verification    compliance.Result `json:"verification"`
	Scores          Scores            `json:"scores"`
	AnalysisSummary string            `json:"analysis_summary"`
	Reward          *reward.Receipt   `json:"reward"`

	// AIDegraded is set when the qualitative score is the fallback value.
	AIDegraded bool  `json:"-"`
	Stage      Stage `json:"-"`
}
