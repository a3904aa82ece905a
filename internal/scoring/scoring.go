package scoring

import "math"

// 融合权重，固定策略，不可配置
const (
	QuantitativeWeight = 0.4
	QualitativeWeight  = 0.6

	MaxReachScore = 10.0
	MaxScore      = 100
)

// Normalize maps a 0-10 reach score onto 0-100.
func Normalize(reachScore float64) float64 {
	if reachScore <= 0 || math.IsNaN(reachScore) {
		return 0
	}
	return clampFloat(reachScore/MaxReachScore*100, 0, MaxScore)
}

// Fuse blends the quantitative and qualitative scores 40/60 and truncates
// the result toward zero.
func Fuse(quantitative float64, qualitative int) int {
	if math.IsNaN(quantitative) {
		quantitative = 0
	}
	final := int(math.Floor(quantitative*QuantitativeWeight + float64(qualitative)*QualitativeWeight))
	return ClampScore(final)
}

// ClampScore keeps a score inside [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
