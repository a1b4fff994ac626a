package segmenter

import (
	"errors"
	"fmt"

	"topicseg/internal/domain"
)

var (
	// ErrInvalidConfig is returned for segmentation settings that cannot be applied.
	ErrInvalidConfig = errors.New("invalid segmentation config")

	// ErrInvalidBoundaries is returned when boundaries are unsorted or out of range.
	ErrInvalidBoundaries = errors.New("invalid boundaries")
)

// Config holds every tunable of the boundary detector and segment builder.
type Config struct {
	Policy          domain.ThresholdPolicy
	Threshold       float64 // fixed policy cut-off
	K               float64 // statistical policy: mean - K*std
	Percentile      float64 // percentile policy, 0..100
	MinUnits        int     // min-run-length at detection time
	MinSegmentUnits int     // merge pass minimum
	WindowSize      int     // trailing window for the similarity profile, 1 = adjacent pairs
}

// DefaultConfig returns the windowed statistical configuration.
func DefaultConfig() Config {
	return Config{
		Policy:          domain.PolicyStatistical,
		Threshold:       0.5,
		K:               1.0,
		Percentile:      10,
		MinUnits:        3,
		MinSegmentUnits: 3,
		WindowSize:      3,
	}
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	switch c.Policy {
	case domain.PolicyFixed:
		if c.Threshold < -1 || c.Threshold > 1 {
			return fmt.Errorf("%w: fixed threshold must be in [-1, 1], got %f", ErrInvalidConfig, c.Threshold)
		}
	case domain.PolicyStatistical:
		if c.K < 0 {
			return fmt.Errorf("%w: k must be non-negative, got %f", ErrInvalidConfig, c.K)
		}
	case domain.PolicyPercentile:
		if c.Percentile < 0 || c.Percentile > 100 {
			return fmt.Errorf("%w: percentile must be in [0, 100], got %f", ErrInvalidConfig, c.Percentile)
		}
	default:
		return fmt.Errorf("%w: unknown threshold policy %q", ErrInvalidConfig, c.Policy)
	}

	if c.MinUnits < 0 {
		return fmt.Errorf("%w: min_units must be non-negative, got %d", ErrInvalidConfig, c.MinUnits)
	}
	if c.MinSegmentUnits < 0 {
		return fmt.Errorf("%w: min_segment_units must be non-negative, got %d", ErrInvalidConfig, c.MinSegmentUnits)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: window_size must be at least 1, got %d", ErrInvalidConfig, c.WindowSize)
	}
	return nil
}
