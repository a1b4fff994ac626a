package segmenter

import (
	"fmt"
	"math"
	"sort"

	"topicseg/internal/domain"
)

// ThresholdPolicy derives a decision threshold from a similarity profile.
type ThresholdPolicy interface {
	Threshold(profile []float64) float64
	Name() domain.ThresholdPolicy
}

// FixedThreshold ignores the profile and returns a caller-supplied constant.
type FixedThreshold struct {
	Value float64
}

func (p FixedThreshold) Threshold(profile []float64) float64 { return p.Value }

func (p FixedThreshold) Name() domain.ThresholdPolicy { return domain.PolicyFixed }

// StatisticalThreshold is mean(profile) - K*std(profile), using the population std.
type StatisticalThreshold struct {
	K float64
}

func (p StatisticalThreshold) Threshold(profile []float64) float64 {
	// Flat profile: the mean can drift an ulp above the shared value.
	if constant(profile) {
		return profile[0]
	}
	mean, std := meanStd(profile)
	return mean - p.K*std
}

func (p StatisticalThreshold) Name() domain.ThresholdPolicy { return domain.PolicyStatistical }

// PercentileThreshold is the P-th percentile of the profile, linearly
// interpolated between the closest ranks.
type PercentileThreshold struct {
	P float64
}

func (p PercentileThreshold) Threshold(profile []float64) float64 {
	return percentile(profile, p.P)
}

func (p PercentileThreshold) Name() domain.ThresholdPolicy { return domain.PolicyPercentile }

// NewThresholdPolicy selects the policy named in cfg.
func NewThresholdPolicy(cfg Config) (ThresholdPolicy, error) {
	switch cfg.Policy {
	case domain.PolicyFixed:
		return FixedThreshold{Value: cfg.Threshold}, nil
	case domain.PolicyStatistical:
		return StatisticalThreshold{K: cfg.K}, nil
	case domain.PolicyPercentile:
		return PercentileThreshold{P: cfg.Percentile}, nil
	default:
		return nil, fmt.Errorf("%w: unknown threshold policy %q", ErrInvalidConfig, cfg.Policy)
	}
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func constant(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
