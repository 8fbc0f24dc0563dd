package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// DefaultLexicalWorkers is the worker pool size for fragment queries.
const DefaultLexicalWorkers = 8

// LexicalSearchEngine runs normalised queries against the full-text index
// and returns per-chunk scores scaled to [0,1].
type LexicalSearchEngine struct {
	index driven.LexicalIndex
	pool  *ants.Pool
	log   logger.Scope
}

// NewLexicalSearchEngine creates a lexical engine backed by index.
// Fragment queries from SearchMultiple run on a pool of the given size.
func NewLexicalSearchEngine(index driven.LexicalIndex, workers int) (*LexicalSearchEngine, error) {
	if workers <= 0 {
		workers = DefaultLexicalWorkers
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create lexical worker pool: %w", err)
	}
	return &LexicalSearchEngine{
		index: index,
		pool:  pool,
		log:   logger.For("lexical"),
	}, nil
}

// Close releases the worker pool.
func (e *LexicalSearchEngine) Close() {
	e.pool.Release()
}

// Search runs one query. An empty built query returns an empty map without
// touching the index. Hits with a native rank of exactly zero are dropped.
func (e *LexicalSearchEngine) Search(
	ctx context.Context,
	text string,
	modalities []domain.Modality,
	filters domain.SearchFilters,
	access *domain.AccessFilter,
	limit int,
) (map[string]float64, error) {
	query := BuildQuery(text)
	if query == "" || limit <= 0 {
		return map[string]float64{}, nil
	}
	if e.index == nil {
		return nil, domain.ErrSearchUnavailable
	}

	hits, err := e.index.Search(ctx, driven.LexicalQuery{
		Query:      query,
		Modalities: modalities,
		Filters:    filters,
		Access:     access,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search %q: %w", query, err)
	}

	e.log.Debug("query=%q hits=%d", query, len(hits))
	return normalizeRanks(hits), nil
}

// SearchMultiple runs one Search per fragment concurrently. Each fragment's
// parts are joined with a single space. A fragment that fails or exceeds
// timeout contributes nothing. Results are merged by maximum score per chunk.
func (e *LexicalSearchEngine) SearchMultiple(
	ctx context.Context,
	fragments [][]string,
	modalities []domain.Modality,
	filters domain.SearchFilters,
	access *domain.AccessFilter,
	limit int,
	timeout time.Duration,
) map[string]float64 {
	merged := make(map[string]float64)
	if len(fragments) == 0 {
		return merged
	}

	results := make(chan map[string]float64, len(fragments))

	for i, parts := range fragments {
		text := strings.Join(parts, " ")
		task := func() {
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			scores, err := e.Search(fctx, text, modalities, filters, access, limit)
			if err != nil {
				e.log.Warn("fragment %d failed: %v", i, err)
				scores = nil
			}
			results <- scores
		}
		if err := e.pool.Submit(task); err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				e.log.Warn("fragment %d not scheduled: %v", i, err)
				results <- nil
				continue
			}
			go task()
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for received := 0; received < len(fragments); received++ {
		select {
		case scores := <-results:
			mergeMax(merged, scores)
		case <-deadline.C:
			e.log.Warn("%d of %d fragments timed out", len(fragments)-received, len(fragments))
			return merged
		case <-ctx.Done():
			e.log.Warn("cancelled with %d of %d fragments pending", len(fragments)-received, len(fragments))
			return merged
		}
	}
	return merged
}

// normalizeRanks min-max scales native ranks into [0,1].
// If every rank is equal each hit scores 0.5.
func normalizeRanks(hits []driven.LexicalHit) map[string]float64 {
	ranks := make(map[string]float64, len(hits))
	for _, h := range hits {
		if h.Rank == 0 {
			continue
		}
		if prev, ok := ranks[h.ChunkID]; !ok || h.Rank > prev {
			ranks[h.ChunkID] = h.Rank
		}
	}
	if len(ranks) == 0 {
		return map[string]float64{}
	}

	first := true
	var lo, hi float64
	for _, r := range ranks {
		if first {
			lo, hi = r, r
			first = false
			continue
		}
		lo = min(lo, r)
		hi = max(hi, r)
	}

	scores := make(map[string]float64, len(ranks))
	for id, r := range ranks {
		if hi == lo {
			scores[id] = 0.5
			continue
		}
		scores[id] = (r - lo) / (hi - lo)
	}
	return scores
}

// mergeMax folds src into dst keeping the larger score per key.
func mergeMax(dst, src map[string]float64) {
	for id, score := range src {
		if prev, ok := dst[id]; !ok || score > prev {
			dst[id] = score
		}
	}
}
