package embedding

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"

	"github.com/edulab-ai/progresscluster/internal/textnorm"
)

// DefaultHashDim is the hashed bag-of-tokens vector width.
const DefaultHashDim = 2048

// HashEncoder is the deterministic fallback backend: word tokens,
// identifier-split tokens, and character 3-grams hashed into a
// fixed-width L2-normalized count vector. Degraded semantic quality,
// zero external dependencies, bit-stable across processes.
type HashEncoder struct {
	dim int
}

func NewHashEncoder(dim int) *HashEncoder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEncoder{dim: dim}
}

func (e *HashEncoder) Mode() string  { return ProviderHash }
func (e *HashEncoder) Model() string { return "" }
func (e *HashEncoder) Dim() int      { return e.dim }

func (e *HashEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	rows := make([][]float64, len(texts))
	for i, s := range texts {
		vec := make([]float64, e.dim)
		for _, t := range textnorm.WordTokens(s) {
			vec[e.bucket(t)]++
		}
		for _, t := range textnorm.CodeishTokens(s) {
			vec[e.bucket(t)]++
		}
		for _, t := range textnorm.CharNGrams(s, 3) {
			vec[e.bucket(t)]++
		}
		rows[i] = l2Normalize(vec)
	}
	return rows, nil
}

func (e *HashEncoder) bucket(token string) int {
	sum := md5.Sum([]byte(token))
	// md5 is already uniform; the top 8 bytes are enough to index.
	h := binary.BigEndian.Uint64(sum[:8])
	return int(h % uint64(e.dim))
}

func l2Normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm < 1e-12 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
