package segmenter

// Detector finds topic boundaries from embedding similarity drift.
type Detector struct {
	policy     ThresholdPolicy
	minUnits   int
	windowSize int
}

// NewDetector creates a detector from a validated configuration.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := NewThresholdPolicy(cfg)
	if err != nil {
		return nil, err
	}
	return &Detector{
		policy:     policy,
		minUnits:   cfg.MinUnits,
		windowSize: cfg.WindowSize,
	}, nil
}

// Detection is the outcome of one detector run.
type Detection struct {
	Boundaries []int
	Profile    []float64
	Threshold  float64
}

// Detect returns ascending boundary indices in (0, N) for N vectors.
// Zero or one vector yields no boundaries.
func (d *Detector) Detect(vectors [][]float32) Detection {
	profile := Profile(vectors, d.windowSize)
	if len(profile) == 0 {
		return Detection{Boundaries: []int{}}
	}

	threshold := d.policy.Threshold(profile)
	return Detection{
		Boundaries: d.boundaries(profile, threshold),
		Profile:    profile,
		Threshold:  threshold,
	}
}

// DetectProfile applies thresholding and min-run-length to a precomputed profile.
func (d *Detector) DetectProfile(profile []float64) []int {
	if len(profile) == 0 {
		return []int{}
	}
	return d.boundaries(profile, d.policy.Threshold(profile))
}

// boundaries accepts a candidate b = i+1 when profile[i] < threshold and the
// run since the last accepted boundary has at least minUnits units. Taking the
// earliest feasible candidate maximises the number of accepted boundaries, so a
// stricter threshold (a subset of candidates) never yields more.
func (d *Detector) boundaries(profile []float64, threshold float64) []int {
	out := []int{}
	last := 0
	for i, score := range profile {
		if score >= threshold {
			continue
		}
		b := i + 1
		if b-last < d.minUnits {
			continue
		}
		out = append(out, b)
		last = b
	}
	return out
}
