// Package window slices ordered message lists into fixed-size,
// overlapping windows, the unit of feature extraction and clustering.
package window

import (
	"fmt"
	"strings"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

// Window sizing defaults.
const (
	DefaultBatchSize = 12
	DefaultOverlap   = 4
)

// Make builds windows over n messages. Windows start at multiples of
// the stride (batchSize - overlap); a final tail window covering
// [n-batchSize, n-1] is appended when the stride sequence would leave
// the tail uncovered, so every message belongs to at least one window
// when n >= batchSize. For n < batchSize a single window covering all
// indices is returned rather than failing.
func Make(n, batchSize, overlap int) ([]domain.Window, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", batchSize)
	}
	if overlap < 0 || overlap >= batchSize {
		return nil, fmt.Errorf("overlap must be in [0, batch_size), got overlap=%d batch_size=%d", overlap, batchSize)
	}
	if n <= 0 {
		return nil, nil
	}
	if n < batchSize {
		return []domain.Window{span(0, n)}, nil
	}

	stride := batchSize - overlap
	var windows []domain.Window
	for start := 0; start+batchSize <= n; start += stride {
		windows = append(windows, span(start, start+batchSize))
	}
	last := windows[len(windows)-1]
	if last.EndIdx < n-1 {
		tail := span(n-batchSize, n)
		windows = append(windows, tail)
	}
	return windows, nil
}

func span(start, end int) domain.Window {
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return domain.Window{Indices: idx, StartIdx: start, EndIdx: end - 1}
}

// Text joins the first maxLines messages of a window with a separator
// line, producing the text the semantic encoder and the structural
// extractor both operate on.
func Text(texts []string, w domain.Window, maxLines int) string {
	limit := len(w.Indices)
	if maxLines > 0 && maxLines < limit {
		limit = maxLines
	}
	parts := make([]string, 0, limit)
	for _, i := range w.Indices[:limit] {
		parts = append(parts, texts[i])
	}
	return strings.Join(parts, "\n---\n")
}
