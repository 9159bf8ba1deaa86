// Package bow implements a deterministic bag-of-words pseudo-embedding.
//
// The vector of a text is built from its word histogram: the most frequent words
// (up to the dimension) are kept in frequency order, their counts are divided by
// the largest count, and the result is padded with zeros to the fixed dimension.
// It carries no semantics beyond word-frequency shape and exists so the memory
// store can rank records without a hosted embedding model.
package bow

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultDimensions is the embedding length used when none is configured.
const DefaultDimensions = 100

// Embedder produces bag-of-words vectors.
type Embedder struct {
	dimensions int
}

// New creates an Embedder producing vectors of the given length.
// A non-positive dimension selects DefaultDimensions.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed implements embedder.Provider. It never fails.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.Vector(text), nil
}

// Similarity implements embedder.Provider with CosineSimilarity.
func (e *Embedder) Similarity(a, b []float64) float64 {
	return CosineSimilarity(a, b)
}

// EmbedBatch embeds texts in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.Vector(text)
	}
	return out, nil
}

// Dimensions implements embedder.Provider.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Vector returns the embedding of text. Its length is always Dimensions() and
// every value lies in [0, 1].
func (e *Embedder) Vector(text string) []float64 {
	words := Tokenize(text)

	counts := make(map[string]int, len(words))
	order := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}

	// Most frequent first; ties keep first-occurrence order.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > e.dimensions {
		order = order[:e.dimensions]
	}

	maxCount := 0
	for _, w := range order {
		if counts[w] > maxCount {
			maxCount = counts[w]
		}
	}

	vec := make([]float64, e.dimensions)
	if maxCount == 0 {
		return vec
	}
	for i, w := range order {
		vec[i] = float64(counts[w]) / float64(maxCount)
	}
	return vec
}

// Tokenize lowercases text and splits it into words of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}

// CosineSimilarity computes cosine similarity over the shorter of the two lengths.
// It returns 0 if either vector has zero magnitude over that range.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
