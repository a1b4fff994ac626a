package segmenter

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Profile computes the similarity profile of an embedding sequence.
//
// Entry i scores the transition between unit i and unit i+1. With window 1
// that is the plain adjacent cosine; with a larger window the left side is the
// mean of units max(0, i-window+1)..i, which damps single-sentence noise.
// The profile always has len(vectors)-1 entries.
func Profile(vectors [][]float32, window int) []float64 {
	n := len(vectors)
	if n < 2 {
		return nil
	}
	if window < 1 {
		window = 1
	}

	profile := make([]float64, n-1)
	if window == 1 {
		for i := 0; i < n-1; i++ {
			profile[i] = CosineSimilarity(vectors[i], vectors[i+1])
		}
		return profile
	}

	for i := 0; i < n-1; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		profile[i] = CosineSimilarity(MeanVector(vectors[lo:i+1]), vectors[i+1])
	}
	return profile
}

// MeanVector returns the element-wise mean of vectors, or nil if there are none.
func MeanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		for j := 0; j < dim && j < len(v); j++ {
			sums[j] += float64(v[j])
		}
	}

	mean := make([]float32, dim)
	for j, s := range sums {
		mean[j] = float32(s / float64(len(vectors)))
	}
	return mean
}
