// Package embedder defines how the memory store turns text into comparable vectors.
package embedder

import "context"

// Provider maps text to fixed-length vectors and scores pairs of them.
//
// The memory store persists whatever Embed returns and ranks search candidates
// with Similarity, so both must come from the same Provider.
type Provider interface {
	// Embed returns the vector of text. Its length is always Dimensions().
	Embed(ctx context.Context, text string) ([]float64, error)

	// Similarity scores two vectors produced by Embed, higher meaning closer.
	// It returns 0 when either vector carries no signal.
	Similarity(a, b []float64) float64

	// Dimensions returns the vector length.
	Dimensions() int
}
