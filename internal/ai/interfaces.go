package ai

import (
	"context"
	"errors"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

var ErrRateLimited = errors.New("ai provider rate limited")

// Generator sends a prompt to a generative text model
type Generator interface {
	// Name identifies the provider in logs
	Name() string

	// Generate returns the raw model text for the given instructions
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// QualitativeEvaluator scores an account's content quality
type QualitativeEvaluator interface {
	// Evaluate never fails; provider or parse problems yield a degraded outcome
	Evaluate(ctx context.Context, handle string, stats *models.AccountStats, posts []models.Post) Outcome
}

// QualitativeResult AI 内容质量评分
type QualitativeResult struct {
	QualityScore  int    `json:"quality_score"`
	IdentityScore int    `json:"identity_score"`
	FandomScore   int    `json:"fandom_score"`
	SafetyScore   int    `json:"safety_score"`
	Summary       string `json:"analysis_summary"`
}

// DegradeReason explains why a fallback result was used
type DegradeReason string

const (
	ReasonNone              DegradeReason = ""
	ReasonMalformedResponse DegradeReason = "malformed_response"
	ReasonRateLimited       DegradeReason = "rate_limited"
	ReasonTimeout           DegradeReason = "timeout"
	ReasonCircuitOpen       DegradeReason = "circuit_open"
	ReasonProviderError     DegradeReason = "provider_error"
)

// Outcome is either a genuine model result or a degraded fallback.
type Outcome struct {
	Result   QualitativeResult
	Degraded bool
	Reason   DegradeReason
}

const NoAnalysisSummary = "no analysis available"

// FallbackResult is the fixed safe score used whenever the model cannot be
// used.
func FallbackResult() QualitativeResult {
	return QualitativeResult{
		QualityScore:  85,
		IdentityScore: 35,
		FandomScore:   25,
		SafetyScore:   25,
		Summary:       NoAnalysisSummary,
	}
}

func Degraded(reason DegradeReason) Outcome {
	return Outcome{
		Result:   FallbackResult(),
		Degraded: true,
		Reason:   reason,
	}
}
