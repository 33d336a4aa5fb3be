package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// MockClient produces deterministic unit vectors derived from the text
// content. Identical texts embed identically, so similarity behaves
// sensibly in tests and offline development.
type MockClient struct {
	dimension int
}

// NewMockClient creates a mock embedder.
func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 1024
	}
	return &MockClient{dimension: dimension}
}

// Embed returns one deterministic normalized vector per text.
func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockClient) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	v := make([]float32, m.dimension)
	var norm float64
	for i := range v {
		v[i] = float32(rng.NormFloat64())
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Dimension returns the configured dimension.
func (m *MockClient) Dimension() int { return m.dimension }

// Model identifies the mock provider.
func (m *MockClient) Model() string { return "mock" }
