package ai

import "github.com/tmc/langchaingo/textsplitter"

// SplitText splits text into overlapping windows of at most chunkSize
// characters with the given overlap. Text at or below chunkSize is
// returned as a single chunk.
func SplitText(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if len(text) <= chunkSize {
		return []string{text}, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	return splitter.SplitText(text)
}

// MeanVector returns the element-wise mean of the given vectors. All
// vectors must share one dimensionality; mixing dimensionalities is a
// caller bug and yields a nil result. An empty input yields nil.
//
// Averaging chunk vectors trades per-chunk precision for a single
// comparably-sized vector per entity, so one similarity index per entity
// type suffices instead of chunk-level fan-out.
func MeanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
	}

	mean := make([]float32, dim)
	n := float32(len(vectors))
	for _, v := range vectors {
		for i, val := range v {
			mean[i] += val / n
		}
	}
	return mean
}
