package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// ErrDimensionMismatch is returned when a record's vector length differs from the store dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one chunk embedding plus the payload needed to render it as context.
type Record struct {
	ChunkID    string
	DocumentID string
	Source     string
	Text       string
	Country    string
	Vector     []float32
}

// Result is a search hit. Distance is Euclidean; lower is closer.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

type Store interface {
	Upsert(ctx context.Context, records []Record) error
	// Search returns min(k, n) results ordered by ascending distance, ties broken by chunk id.
	// k<=0 yields no results.
	Search(ctx context.Context, q []float32, k int) ([]Result, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Dimension() int
}

// NormalizeK applies the default for k<=0 and the MaxTopK cap. Stores honour k as given;
// request edges (HTTP, CLI) normalise before calling in.
func NormalizeK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func SortResults(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Distance == rs[j].Distance {
			return rs[i].ChunkID < rs[j].ChunkID
		}
		return rs[i].Distance < rs[j].Distance
	})
}

// CheckDimension validates every record against dim.
func CheckDimension(dim int, records []Record) error {
	for _, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("record missing chunk id")
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: chunk %s expected=%d got=%d", ErrDimensionMismatch, r.ChunkID, dim, len(r.Vector))
		}
	}
	return nil
}
