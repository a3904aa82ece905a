package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	promptPostCount  = 5
	promptTextLimit  = 2000
	maxSummaryLength = 300

	maxQuality  = 100
	maxIdentity = 40
	maxFandom   = 30
	maxSafety   = 30
)

const systemInstruction = "You are the Chief IP Valuator of Companion Camp. " +
	"You judge pet social accounts as long-lived digital IP. Always answer with a single JSON object and nothing else."

const promptTemplate = `Evaluate how valuable this pet account is as a sustainable digital IP. Be strict.

[Account data]
- Account: @%s
- Reach: %d followers, engagement rate %.2f%%
- Recent posts:
%s

[Companion IP Index]
1. Identity (max 40): persona consistency (15), storytelling that makes fans expect the next post (15), signature potential for goods or meme coins (10).
2. Fandom (max 30): how strongly the text invites conversation (15), loyalty signals beyond likes (15).
3. Safety (max 30): brand ad fit for food or apparel sponsors (15), free of hate, controversy and spam (15).

[Output]
Respond with JSON only:
{
  "identity_score": 0,
  "fandom_score": 0,
  "safety_score": 0,
  "quality_score": 0,
  "analysis_summary": "strengths and weaknesses of this IP in under 150 characters"
}
quality_score is the sum of the three scores (0-100).`

// QualitativeScorer asks a Generator for a content quality assessment and
// falls back to a fixed result on any provider or parse failure.
type QualitativeScorer struct {
	generator Generator
	breaker   circuitbreaker.CircuitBreaker[string]
	timeout   time.Duration
	logger    *slog.Logger

	onDegraded func(DegradeReason)
}

type ScorerOption func(*QualitativeScorer)

func WithTimeout(d time.Duration) ScorerOption {
	return func(s *QualitativeScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithBreaker(cb circuitbreaker.CircuitBreaker[string]) ScorerOption {
	return func(s *QualitativeScorer) {
		s.breaker = cb
	}
}

// WithDegradedHook registers a callback invoked for every fallback result.
func WithDegradedHook(fn func(DegradeReason)) ScorerOption {
	return func(s *QualitativeScorer) {
		s.onDegraded = fn
	}
}

// NewBreaker opens after 5 failures out of the last 10 calls and lets one
// call through again after 30 seconds. Cancelled calls are not counted.
func NewBreaker() circuitbreaker.CircuitBreaker[string] {
	return circuitbreaker.NewBuilder[string]().
		HandleIf(countsAsFailure).
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		Build()
}

// countsAsFailure excludes callers that went away mid-request.
func countsAsFailure(_ string, err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// NewQualitativeScorer creates a scorer. A nil generator always degrades.
func NewQualitativeScorer(generator Generator, logger *slog.Logger, opts ...ScorerOption) *QualitativeScorer {
	s := &QualitativeScorer{
		generator: generator,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = NewBreaker()
	}
	return s
}

// Evaluate implements QualitativeEvaluator
func (s *QualitativeScorer) Evaluate(ctx context.Context, handle string, stats *models.AccountStats, posts []models.Post) Outcome {
	if s.generator == nil {
		s.logger.Warn("no ai generator configured, using fallback", "handle", handle)
		return s.degrade(ReasonProviderError)
	}

	prompt := BuildPrompt(handle, stats, posts)

	raw, err := failsafe.With(s.breaker).WithContext(ctx).Get(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		out, err := s.generator.Generate(callCtx, systemInstruction, prompt)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return out, err
	})
	if err != nil {
		reason := classifyError(err)
		if reason == ReasonProviderError {
			s.logger.Error("ai evaluation failed, using fallback",
				"handle", handle, "provider", s.generator.Name(), "err", err)
		} else {
			s.logger.Warn("ai provider limited, using fallback",
				"handle", handle, "provider", s.generator.Name(), "reason", reason, "err", err)
		}
		return s.degrade(reason)
	}

	result, err := ParseResult(raw)
	if err != nil {
		s.logger.Error("malformed ai response, using fallback",
			"handle", handle, "provider", s.generator.Name(), "err", err, "response", raw)
		return s.degrade(ReasonMalformedResponse)
	}

	return Outcome{Result: *result}
}

func (s *QualitativeScorer) degrade(reason DegradeReason) Outcome {
	if s.onDegraded != nil {
		s.onDegraded(reason)
	}
	return Degraded(reason)
}

func classifyError(err error) DegradeReason {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return ReasonCircuitOpen
	case errors.Is(err, ErrRateLimited),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource_exhausted"):
		return ReasonRateLimited
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "timeout"):
		return ReasonTimeout
	default:
		return ReasonProviderError
	}
}

// BuildPrompt renders the assessment prompt from the account stats and the
// most recent posts.
func BuildPrompt(handle string, stats *models.AccountStats, posts []models.Post) string {
	var followers int
	var engagement float64
	if stats != nil {
		followers = stats.FollowerCount
		engagement = stats.EngagementRate
	}

	if len(posts) > promptPostCount {
		posts = posts[:promptPostCount]
	}
	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		texts = append(texts, p.Text)
	}

	return fmt.Sprintf(promptTemplate, handle, followers, engagement,
		truncateRunes(strings.Join(texts, "\n"), promptTextLimit))
}

// score accepts JSON numbers and numeric strings, truncating fractions.
type score struct {
	value int
	set   bool
}

func (s *score) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	// out-of-range float to int conversion is implementation defined
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	s.value = int(f)
	s.set = true
	return nil
}

type assessment struct {
	Quality  score   `json:"quality_score"`
	Identity score   `json:"identity_score"`
	Fandom   score   `json:"fandom_score"`
	Safety   score   `json:"safety_score"`
	Summary  *string `json:"analysis_summary"`
}

// ParseResult decodes a model response, tolerating markdown code fences.
// Scores are clamped into their ranges.
func ParseResult(raw string) (*QualitativeResult, error) {
	var a assessment
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &a); err != nil {
		return nil, fmt.Errorf("failed to parse ai response: %w", err)
	}
	if !a.Quality.set && !a.Identity.set && !a.Fandom.set && !a.Safety.set {
		return nil, errors.New("ai response has no score fields")
	}

	identity := clamp(a.Identity.value, 0, maxIdentity)
	fandom := clamp(a.Fandom.value, 0, maxFandom)
	safety := clamp(a.Safety.value, 0, maxSafety)

	quality := a.Quality.value
	if !a.Quality.set {
		quality = identity + fandom + safety
	}

	summary := NoAnalysisSummary
	if a.Summary != nil && strings.TrimSpace(*a.Summary) != "" {
		summary = truncateRunes(strings.TrimSpace(*a.Summary), maxSummaryLength)
	}

	return &QualitativeResult{
		QualityScore:  clamp(quality, 0, maxQuality),
		IdentityScore: identity,
		FandomScore:   fandom,
		SafetyScore:   safety,
		Summary:       summary,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	for _, fence := range []string{"```json", "```"} {
		i := strings.Index(s, fence)
		if i < 0 {
			continue
		}
		s = s[i+len(fence):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	return s
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
