package embedding

import "context"

// MockEncoder returns constant unit vectors, for tests that do not
// care about semantic content.
type MockEncoder struct {
	dim int
}

func NewMockEncoder(dim int) *MockEncoder {
	if dim <= 0 {
		dim = 8
	}
	return &MockEncoder{dim: dim}
}

func (e *MockEncoder) Mode() string  { return ProviderMock }
func (e *MockEncoder) Model() string { return "" }
func (e *MockEncoder) Dim() int      { return e.dim }

func (e *MockEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	rows := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, e.dim)
		vec[0] = 1
		rows[i] = vec
	}
	return rows, nil
}
