package segmenter

import (
	"errors"
	"math"
	"testing"

	"topicseg/internal/domain"
)

// clusteredVectors returns 4 identical vectors per topic, topics orthogonal.
func clusteredVectors() [][]float32 {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{0, 0, 1}
	return [][]float32{a, a, a, a, b, b, b, b, c, c, c, c}
}

func TestProfileLength(t *testing.T) {
	for n := 0; n < 6; n++ {
		vectors := make([][]float32, n)
		for i := range vectors {
			vectors[i] = []float32{1, float32(i)}
		}
		want := n - 1
		if want < 0 {
			want = 0
		}
		if got := len(Profile(vectors, 1)); got != want {
			t.Errorf("n=%d: expected profile length %d, got %d", n, want, got)
		}
		if got := len(Profile(vectors, 3)); got != want {
			t.Errorf("n=%d window=3: expected profile length %d, got %d", n, want, got)
		}
	}
}

func TestProfileWindowed(t *testing.T) {
	profile := Profile(clusteredVectors(), 3)

	if profile[3] != 0 {
		t.Errorf("expected 0 at the A/B transition, got %f", profile[3])
	}
	// mean(A,A,B) against B
	if want := 1 / math.Sqrt(5); math.Abs(profile[4]-want) > 1e-6 {
		t.Errorf("expected %f at position 4, got %f", want, profile[4])
	}
	if profile[0] != 1 {
		t.Errorf("expected 1 inside a topic, got %f", profile[0])
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestDetectThreeTopics(t *testing.T) {
	for _, window := range []int{1, 3} {
		cfg := Config{
			Policy:          domain.PolicyStatistical,
			K:               1.0,
			MinUnits:        3,
			MinSegmentUnits: 3,
			WindowSize:      window,
		}
		det, err := NewDetector(cfg)
		if err != nil {
			t.Fatal(err)
		}

		got := det.Detect(clusteredVectors()).Boundaries
		if len(got) != 2 || got[0] != 4 || got[1] != 8 {
			t.Errorf("window=%d: expected boundaries [4 8], got %v", window, got)
		}
	}
}

func TestDetectDegenerate(t *testing.T) {
	det, err := NewDetector(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if got := det.Detect(nil).Boundaries; len(got) != 0 {
		t.Errorf("expected no boundaries for empty input, got %v", got)
	}
	if got := det.Detect([][]float32{{1, 0}}).Boundaries; len(got) != 0 {
		t.Errorf("expected no boundaries for one unit, got %v", got)
	}

	same := make([][]float32, 10)
	for i := range same {
		same[i] = []float32{0.1, 0.7, 0.3}
	}
	if got := det.Detect(same).Boundaries; len(got) != 0 {
		t.Errorf("expected no boundaries for identical units, got %v", got)
	}
}

func TestDetectMinRunLength(t *testing.T) {
	det, err := NewDetector(Config{
		Policy:     domain.PolicyFixed,
		Threshold:  0.5,
		MinUnits:   3,
		WindowSize: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	// candidates at boundaries 2, 4 and 7
	profile := []float64{0.9, 0.1, 0.9, 0.1, 0.9, 0.9, 0.1, 0.9, 0.9}
	got := det.DetectProfile(profile)
	want := []int{4, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestDetectStrictlyBelowThreshold(t *testing.T) {
	det, err := NewDetector(Config{Policy: domain.PolicyFixed, Threshold: 0.5, WindowSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := det.DetectProfile([]float64{0.5, 0.5, 0.49}); len(got) != 1 || got[0] != 3 {
		t.Errorf("expected [3], got %v", got)
	}
}

func TestStatisticalThresholdMonotonic(t *testing.T) {
	profile := make([]float64, 60)
	for i := range profile {
		profile[i] = 0.6 + 0.3*math.Sin(float64(i)*1.7) + 0.1*math.Cos(float64(i)*0.3)
	}

	prev := math.MaxInt
	for k := 0.0; k <= 3.0; k += 0.25 {
		det, err := NewDetector(Config{Policy: domain.PolicyStatistical, K: k, MinUnits: 2, WindowSize: 1})
		if err != nil {
			t.Fatal(err)
		}
		n := len(det.DetectProfile(profile))
		if n > prev {
			t.Errorf("k=%.2f: boundary count grew from %d to %d", k, prev, n)
		}
		prev = n
	}
}

func TestThresholdPolicies(t *testing.T) {
	profile := []float64{0.2, 0.4, 0.6, 0.8, 1.0}

	if got := (FixedThreshold{Value: 0.3}).Threshold(profile); got != 0.3 {
		t.Errorf("fixed: expected 0.3, got %f", got)
	}

	mean, std := 0.6, math.Sqrt(0.08)
	if got := (StatisticalThreshold{K: 1}).Threshold(profile); math.Abs(got-(mean-std)) > 1e-9 {
		t.Errorf("statistical: expected %f, got %f", mean-std, got)
	}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 0.2},
		{10, 0.28},
		{50, 0.6},
		{100, 1.0},
	}
	for _, tt := range tests {
		if got := (PercentileThreshold{P: tt.p}).Threshold(profile); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("percentile %.0f: expected %f, got %f", tt.p, tt.want, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown policy", func(c *Config) { c.Policy = "median" }, true},
		{"negative k", func(c *Config) { c.K = -1 }, true},
		{"percentile out of range", func(c *Config) { c.Policy = domain.PolicyPercentile; c.Percentile = 120 }, true},
		{"negative min segment units", func(c *Config) { c.MinSegmentUnits = -1 }, true},
		{"negative min units", func(c *Config) { c.MinUnits = -2 }, true},
		{"zero window", func(c *Config) { c.WindowSize = 0 }, true},
		{"fixed out of range", func(c *Config) { c.Policy = domain.PolicyFixed; c.Threshold = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
