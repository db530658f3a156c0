package embedding

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/edulab-ai/progresscluster/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("embeddings")

// CachedEncoder wraps an encoder with an on-disk bbolt cache keyed by
// backend identity and text content. Used by the offline trainer so
// repeated runs over the same corpus do not re-embed unchanged
// windows. Not intended for the serving path.
type CachedEncoder struct {
	inner domain.SemanticEncoder
	db    *bolt.DB
}

// NewCachedEncoder opens (or creates) the cache file at path.
func NewCachedEncoder(inner domain.SemanticEncoder, path string) (*CachedEncoder, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedEncoder{inner: inner, db: db}, nil
}

func (c *CachedEncoder) Close() error { return c.db.Close() }

func (c *CachedEncoder) Mode() string  { return c.inner.Mode() }
func (c *CachedEncoder) Model() string { return c.inner.Model() }
func (c *CachedEncoder) Dim() int      { return c.inner.Dim() }

// Encode serves cached rows where possible and delegates the misses to
// the inner backend in one batch, writing new rows back.
func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	rows := make([][]float64, len(texts))
	keys := make([][]byte, len(texts))
	var missIdx []int

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cacheBucket)
		for i, s := range texts {
			keys[i] = c.key(s)
			if raw := b.Get(keys[i]); raw != nil {
				rows[i] = decodeVector(raw)
			} else {
				missIdx = append(missIdx, i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	if len(missIdx) == 0 {
		return rows, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cacheBucket)
		for j, i := range missIdx {
			rows[i] = fresh[j]
			if err := b.Put(keys[i], encodeVector(fresh[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write embedding cache: %w", err)
	}
	return rows, nil
}

func (c *CachedEncoder) key(text string) []byte {
	sum := md5.Sum([]byte(c.inner.Mode() + "|" + c.inner.Model() + "|" + text))
	return sum[:]
}

func encodeVector(vec []float64) []byte {
	out := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func decodeVector(raw []byte) []float64 {
	vec := make([]float64, len(raw)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return vec
}
