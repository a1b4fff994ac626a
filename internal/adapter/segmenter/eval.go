package segmenter

import "math"

// Scores compares hypothesised boundaries against a reference segmentation.
type Scores struct {
	Pk         float64 `json:"pk"`
	WindowDiff float64 `json:"window_diff"`
	K          int     `json:"k"`
	Reference  int     `json:"reference_boundaries"`
	Hypothesis int     `json:"hypothesis_boundaries"`
}

// Evaluate computes Pk and WindowDiff over n units. Lower is better for both.
// The probe width k is half the mean reference segment length.
func Evaluate(n int, reference, hypothesis []int) Scores {
	scores := Scores{Reference: len(reference), Hypothesis: len(hypothesis)}
	if n < 2 {
		return scores
	}

	k := int(math.Round(float64(n) / float64(len(reference)+1) / 2))
	if k < 1 {
		k = 1
	}
	if k >= n {
		k = n - 1
	}
	scores.K = k

	refMarks := marks(n, reference)
	hypMarks := marks(n, hypothesis)

	var pkErr, wdErr int
	probes := n - k
	for i := 0; i < probes; i++ {
		r := countIn(refMarks, i, i+k)
		h := countIn(hypMarks, i, i+k)
		if (r == 0) != (h == 0) {
			pkErr++
		}
		if r != h {
			wdErr++
		}
	}

	scores.Pk = float64(pkErr) / float64(probes)
	scores.WindowDiff = float64(wdErr) / float64(probes)
	return scores
}

// marks[b] is true when a segment starts at unit b.
func marks(n int, boundaries []int) []bool {
	m := make([]bool, n+1)
	for _, b := range boundaries {
		if b > 0 && b <= n {
			m[b] = true
		}
	}
	return m
}

// countIn counts boundaries b with i < b <= j.
func countIn(m []bool, i, j int) int {
	c := 0
	for b := i + 1; b <= j && b < len(m); b++ {
		if m[b] {
			c++
		}
	}
	return c
}
