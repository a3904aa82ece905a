package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		reach float64
		want  float64
	}{
		{name: "zero", reach: 0, want: 0},
		{name: "negative", reach: -3, want: 0},
		{name: "demo account", reach: 8.5, want: 85},
		{name: "max", reach: 10, want: 100},
		{name: "out of range clamps", reach: 12.5, want: 100},
		{name: "nan", reach: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.reach), 1e-9)
		})
	}
}

func TestNormalize_Range(t *testing.T) {
	for r := 0.0; r <= 10.0; r += 0.25 {
		got := Normalize(r)
		assert.InDelta(t, r/10*100, got, 1e-9)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestFuse(t *testing.T) {
	tests := []struct {
		name         string
		quantitative float64
		qualitative  int
		want         int
	}{
		{name: "all max", quantitative: 100, qualitative: 100, want: 100},
		{name: "all zero", quantitative: 0, qualitative: 0, want: 0},
		{name: "demo with fallback", quantitative: 85, qualitative: 85, want: 85},
		{name: "truncates 77.2 not rounds", quantitative: 85, qualitative: 72, want: 77},
		{name: "truncates 39.9", quantitative: 99.75, qualitative: 0, want: 39},
		{name: "upper clamp", quantitative: 150, qualitative: 100, want: 100},
		{name: "lower clamp", quantitative: -50, qualitative: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fuse(tt.quantitative, tt.qualitative))
		})
	}
}

func TestFuse_Range(t *testing.T) {
	for q := 0.0; q <= 100; q += 12.5 {
		for ql := 0; ql <= 100; ql += 7 {
			got := Fuse(q, ql)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
			assert.Equal(t, int(math.Floor(q*0.4+float64(ql)*0.6)), got)
		}
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-1))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(101))
}
