package face

import "math"

// EuclideanDistance returns the L2 distance between two embeddings.
func EuclideanDistance(a, b Embedding) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Average computes the component-wise arithmetic mean of the samples.
// This is how repeated enrollment captures collapse into one template.
func Average(samples []Embedding) (Embedding, error) {
	var avg Embedding
	if len(samples) == 0 {
		return avg, ErrNoSamples
	}

	for _, s := range samples {
		for i, v := range s {
			avg[i] += v
		}
	}

	n := float32(len(samples))
	for i := range avg {
		avg[i] /= n
	}
	return avg, nil
}

// FromSlice converts a raw vector into an Embedding, rejecting any
// vector whose length is not EmbeddingDim. Stored templates pass
// through here before they are ever compared.
func FromSlice(v []float32) (Embedding, error) {
	var e Embedding
	if len(v) != EmbeddingDim {
		return e, ErrDimensionMismatch
	}
	copy(e[:], v)
	return e, nil
}
