package services

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Boost weights.
const (
	TermPresenceBoost  = 0.005
	TitleTermBoost     = 0.01
	HydeTitleBoost     = 0.05
	PopularityFactor   = 0.02
	RecencyBoost       = 0.005
	RecencyHalfLifeDay = 90.0
)

// BoostQuery is the per-request context boosters score against.
type BoostQuery struct {
	// Terms are the normalised query terms, without prefix markers.
	Terms []string

	// Expansion is the HyDE passage, empty if none.
	Expansion string

	// Now anchors recency decay.
	Now time.Time

	expansion []string
}

// Booster adjusts a chunk's fused score.
type Booster interface {
	Name() string
	Boost(score float64, chunk *domain.Chunk, q *BoostQuery) float64
}

// DefaultBoosters returns the standard boost pipeline in application order.
func DefaultBoosters() []Booster {
	return []Booster{
		termPresence{weight: TermPresenceBoost},
		titleTerm{weight: TitleTermBoost},
		hydeTitle{weight: HydeTitleBoost},
		popularity{factor: PopularityFactor},
		recency{weight: RecencyBoost, halfLifeDays: RecencyHalfLifeDay},
	}
}

// expansionTokens tokenises Expansion once per query.
func (q *BoostQuery) expansionTokens() []string {
	if q.expansion == nil {
		q.expansion = tokens(q.Expansion)
	}
	return q.expansion
}

// NewTermPresenceBooster adds weight when any query term is a word of the chunk text.
func NewTermPresenceBooster(weight float64) Booster { return termPresence{weight: weight} }

// NewTitleTermBooster adds weight when any query term is a word of the item title.
func NewTitleTermBooster(weight float64) Booster { return titleTerm{weight: weight} }

// NewHydeTitleBooster adds weight when the item title's words appear
// consecutively in the HyDE passage.
func NewHydeTitleBooster(weight float64) Booster { return hydeTitle{weight: weight} }

// NewPopularityBooster scales by (1 + factor*(popularity-1)).
func NewPopularityBooster(factor float64) Booster { return popularity{factor: factor} }

// NewRecencyBooster adds weight * 0.5^(age/halfLife).
func NewRecencyBooster(weight, halfLifeDays float64) Booster {
	return recency{weight: weight, halfLifeDays: halfLifeDays}
}

type termPresence struct{ weight float64 }

func (termPresence) Name() string { return "term_presence" }

func (b termPresence) Boost(score float64, c *domain.Chunk, q *BoostQuery) float64 {
	if containsAnyTerm(c.Content, q.Terms) {
		return score + b.weight
	}
	return score
}

type titleTerm struct{ weight float64 }

func (titleTerm) Name() string { return "title_term" }

func (b titleTerm) Boost(score float64, c *domain.Chunk, q *BoostQuery) float64 {
	if containsAnyTerm(c.Title, q.Terms) {
		return score + b.weight
	}
	return score
}

type hydeTitle struct{ weight float64 }

func (hydeTitle) Name() string { return "hyde_title" }

func (b hydeTitle) Boost(score float64, c *domain.Chunk, q *BoostQuery) float64 {
	if q.Expansion != "" && containsRun(q.expansionTokens(), tokens(c.Title)) {
		return score + b.weight
	}
	return score
}

type popularity struct{ factor float64 }

func (popularity) Name() string { return "popularity" }

// Unset popularity (<= 0) is treated as neutral.
func (b popularity) Boost(score float64, c *domain.Chunk, _ *BoostQuery) float64 {
	if c.Popularity <= 0 {
		return score
	}
	return score * (1 + b.factor*(c.Popularity-1))
}

type recency struct{ weight, halfLifeDays float64 }

func (recency) Name() string { return "recency" }

func (b recency) Boost(score float64, c *domain.Chunk, q *BoostQuery) float64 {
	if c.CreatedAt.IsZero() || b.halfLifeDays <= 0 {
		return score
	}
	ageDays := max(q.Now.Sub(c.CreatedAt).Hours()/24, 0)
	return score + b.weight*math.Pow(0.5, ageDays/b.halfLifeDays)
}

// containsAnyTerm reports whether any term equals a word of text.
func containsAnyTerm(text string, terms []string) bool {
	if text == "" || len(terms) == 0 {
		return false
	}
	for _, w := range tokens(text) {
		if slices.Contains(terms, w) {
			return true
		}
	}
	return false
}

// FusionInput is everything one fusion pass needs.
type FusionInput struct {
	// Lexical maps chunk ID to normalised lexical score.
	Lexical map[string]float64

	// Vector hits, in any order. Duplicates keep the highest similarity.
	Vector []driven.VectorHit

	// Candidates carries chunk metadata keyed by chunk ID.
	Candidates map[string]domain.Chunk

	Query         string
	ExpandedQuery string
	Modalities    []domain.Modality
	Access        *domain.AccessFilter
	Filters       domain.SearchFilters

	// Limit caps the number of items. Zero or less returns every item.
	Limit int

	// K overrides the engine's damping constant when positive.
	K int
}

// FusedItem is one ranked item after fusion.
type FusedItem struct {
	ItemID string

	// Score is the boosted score of the best chunk.
	Score float64

	// RRFScore is the pre-boost score of the best chunk.
	RRFScore float64

	// Chunks are the contributing chunk IDs, best first.
	Chunks []string

	// Best is the highest scoring chunk.
	Best domain.Chunk
}

// FusionOption configures a RankFusionEngine.
type FusionOption func(*RankFusionEngine)

// WithRRFK sets the RRF damping constant.
func WithRRFK(k int) FusionOption {
	return func(e *RankFusionEngine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithBoosters replaces the boost pipeline.
func WithBoosters(boosters ...Booster) FusionOption {
	return func(e *RankFusionEngine) { e.boosters = boosters }
}

// WithClock sets the time source for recency decay.
func WithClock(now func() time.Time) FusionOption {
	return func(e *RankFusionEngine) { e.now = now }
}

// RankFusionEngine merges lexical and vector rankings with reciprocal rank
// fusion, applies boosts, re-checks access and groups chunks by item.
type RankFusionEngine struct {
	k        int
	boosters []Booster
	now      func() time.Time
	log      logger.Scope
}

// NewRankFusionEngine creates a fusion engine with K=60 and the default boosts.
func NewRankFusionEngine(opts ...FusionOption) *RankFusionEngine {
	e := &RankFusionEngine{
		k:        domain.DefaultRRFK,
		boosters: DefaultBoosters(),
		now:      time.Now,
		log:      logger.For("fusion"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fusedChunk struct {
	chunk   domain.Chunk
	rrf     float64
	boosted float64
}

// Fuse ranks the union of both result sets.
func (e *RankFusionEngine) Fuse(in FusionInput) []FusedItem {
	k := e.k
	if in.K > 0 {
		k = in.K
	}
	lexRanks := rankLexical(in.Lexical)
	vecRanks, vecMeta := rankVector(in.Vector)

	ids := make(map[string]struct{}, len(lexRanks)+len(vecRanks))
	for id := range lexRanks {
		ids[id] = struct{}{}
	}
	for id := range vecRanks {
		ids[id] = struct{}{}
	}

	q := &BoostQuery{
		Terms:     QueryTerms(in.Query),
		Expansion: in.ExpandedQuery,
		Now:       e.now(),
	}

	var dropped int
	byItem := make(map[string][]fusedChunk)
	for id := range ids {
		chunk, ok := in.Candidates[id]
		if !ok {
			chunk, ok = vecMeta[id]
		}
		if !ok {
			dropped++
			continue
		}
		if !in.Access.Permits(&chunk) || !in.Filters.Matches(&chunk) {
			dropped++
			continue
		}
		if len(in.Modalities) > 0 && !slices.Contains(in.Modalities, chunk.Modality) {
			dropped++
			continue
		}

		var rrf float64
		if r, ok := lexRanks[id]; ok {
			rrf += 1.0 / float64(k+r)
		}
		if r, ok := vecRanks[id]; ok {
			rrf += 1.0 / float64(k+r)
		}

		boosted := rrf
		for _, b := range e.boosters {
			boosted = b.Boost(boosted, &chunk, q)
		}

		byItem[chunk.ItemID] = append(byItem[chunk.ItemID], fusedChunk{chunk: chunk, rrf: rrf, boosted: boosted})
	}
	if dropped > 0 {
		e.log.Debug("dropped %d candidates failing metadata, access or filter checks", dropped)
	}

	items := make([]FusedItem, 0, len(byItem))
	for itemID, chunks := range byItem {
		slices.SortFunc(chunks, compareFused)
		chunkIDs := make([]string, len(chunks))
		for i, c := range chunks {
			chunkIDs[i] = c.chunk.ID
		}
		items = append(items, FusedItem{
			ItemID:   itemID,
			Score:    chunks[0].boosted,
			RRFScore: chunks[0].rrf,
			Chunks:   chunkIDs,
			Best:     chunks[0].chunk,
		})
	}

	slices.SortFunc(items, func(a, b FusedItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RRFScore, a.RRFScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})

	if in.Limit > 0 && len(items) > in.Limit {
		items = items[:in.Limit]
	}
	return items
}

func compareFused(a, b fusedChunk) int {
	if c := cmp.Compare(b.boosted, a.boosted); c != 0 {
		return c
	}
	if c := cmp.Compare(b.rrf, a.rrf); c != 0 {
		return c
	}
	return cmp.Compare(a.chunk.ID, b.chunk.ID)
}

// rankLexical orders chunk IDs by score descending, ties by ID, and returns
// 1-based ranks.
func rankLexical(scores map[string]float64) map[string]int {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

// rankVector dedupes hits by max similarity and returns 1-based ranks plus
// the metadata carried on each hit.
func rankVector(hits []driven.VectorHit) (map[string]int, map[string]domain.Chunk) {
	best := make(map[string]driven.VectorHit, len(hits))
	for _, h := range hits {
		if prev, ok := best[h.ChunkID]; !ok || h.Similarity > prev.Similarity {
			best[h.ChunkID] = h
		}
	}
	ordered := make([]driven.VectorHit, 0, len(best))
	meta := make(map[string]domain.Chunk, len(best))
	for id, h := range best {
		ordered = append(ordered, h)
		if h.Chunk.ID != "" {
			meta[id] = h.Chunk
		}
	}
	slices.SortFunc(ordered, func(a, b driven.VectorHit) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
	ranks := make(map[string]int, len(ordered))
	for i, h := range ordered {
		ranks[h.ChunkID] = i + 1
	}
	return ranks, meta
}
