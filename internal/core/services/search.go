package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// previewLength bounds the text echoed back in results.
const previewLength = 200

// SearchService composes access derivation, query expansion, lexical and
// vector retrieval, fusion and reranking for one request.
type SearchService struct {
	chunks   driven.ChunkStore
	lexical  *LexicalSearchEngine
	access   *AccessControlEngine
	expander *QueryExpander
	fusion   *RankFusionEngine

	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	reranker         driven.Reranker

	settings atomic.Pointer[domain.SearchSettings]
}

// NewSearchService creates a search service. The expander may be nil, in
// which case queries are never expanded.
func NewSearchService(
	chunks driven.ChunkStore,
	lexical *LexicalSearchEngine,
	access *AccessControlEngine,
	expander *QueryExpander,
	fusion *RankFusionEngine,
	settings domain.SearchSettings,
) *SearchService {
	if fusion == nil {
		fusion = NewRankFusionEngine()
	}
	if access == nil {
		access = NewAccessControlEngine(nil)
	}
	s := &SearchService{
		chunks:   chunks,
		lexical:  lexical,
		access:   access,
		expander: expander,
		fusion:   fusion,
	}
	s.UpdateSettings(settings)
	return s
}

// SetVectorSearch enables the vector path. Both arguments are required.
func (s *SearchService) SetVectorSearch(index driven.VectorIndex, embedding driven.EmbeddingService) {
	s.vectorIndex = index
	s.embeddingService = embedding
}

// SetReranker sets the optional final ordering stage.
func (s *SearchService) SetReranker(r driven.Reranker) {
	s.reranker = r
}

// UpdateSettings swaps the tuning used by subsequent requests. Unset values
// fall back to defaults. Requests already in flight keep their snapshot.
func (s *SearchService) UpdateSettings(settings domain.SearchSettings) {
	d := domain.DefaultSearchSettings()
	if !settings.Mode.IsValid() {
		settings.Mode = d.Mode
	}
	if settings.Limit <= 0 {
		settings.Limit = d.Limit
	}
	if settings.RRFK <= 0 {
		settings.RRFK = d.RRFK
	}
	if settings.CandidateMultiplier <= 0 {
		settings.CandidateMultiplier = d.CandidateMultiplier
	}
	if settings.RerankMultiplier <= 0 {
		settings.RerankMultiplier = d.RerankMultiplier
	}
	if settings.LexicalTimeout <= 0 {
		settings.LexicalTimeout = d.LexicalTimeout
	}
	if settings.VectorTimeout <= 0 {
		settings.VectorTimeout = d.VectorTimeout
	}
	if settings.HydeTimeout <= 0 {
		settings.HydeTimeout = d.HydeTimeout
	}
	if settings.RerankTimeout <= 0 {
		settings.RerankTimeout = d.RerankTimeout
	}
	s.settings.Store(&settings)
}

// Settings returns the current tuning snapshot.
func (s *SearchService) Settings() domain.SearchSettings {
	return *s.settings.Load()
}

// Search returns the items subject may see, best first. Retrieval failures
// degrade to fewer results; only caller cancellation is returned as an error.
func (s *SearchService) Search(
	ctx context.Context, subject domain.Subject, req domain.SearchRequest,
) ([]domain.SearchResult, error) {
	requestID := uuid.NewString()
	log := logger.For("search " + requestID[:8])
	logger.Section("Search Execution")

	query := strings.TrimSpace(req.Query)
	if query == "" {
		log.Debug("empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	cfg := s.Settings()
	limit := req.Filters.Limit
	if limit <= 0 {
		limit = cfg.Limit
	}
	candidateLimit := limit * cfg.CandidateMultiplier
	log.Debug("query=%q mode=%s limit=%d candidates=%d", query, cfg.Mode, limit, candidateLimit)

	filter := s.access.FilterFor(ctx, subject)
	if filter.Unrestricted() {
		log.Debug("unrestricted access")
	} else {
		log.Debug("access conditions=%d person=%q", len(filter.Conditions), filter.PersonID)
	}

	fragments := []string{query}
	if cfg.UsesHyde() && s.expander != nil && s.expander.Enabled() {
		model := req.Config.Model
		if model == "" {
			model = cfg.HydeModel
		}
		fragments = s.expander.BuildHydeChunks(ctx, query, model, cfg.HydeTimeout)
	}
	var expansion string
	if len(fragments) > 1 {
		expansion = fragments[1]
	}
	log.Debug("fragments=%d", len(fragments))

	var (
		lexical map[string]float64
		vector  []driven.VectorHit
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.lexical != nil {
		g.Go(func() error {
			parts := make([][]string, len(fragments))
			for i, f := range fragments {
				parts[i] = []string{f}
			}
			lexical = s.lexical.SearchMultiple(
				gctx, parts, req.Modalities, req.Filters, filter, candidateLimit, cfg.LexicalTimeout,
			)
			return nil
		})
	}
	if cfg.UsesVector() && s.vectorIndex != nil && s.embeddingService != nil {
		g.Go(func() error {
			vector = s.vectorSearch(gctx, log, fragments, req.Modalities, filter, candidateLimit, cfg.VectorTimeout)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debug("lexical=%d vector=%d", len(lexical), len(vector))

	candidates := s.hydrate(ctx, log, lexical, vector)
	vector = storedOnly(vector, candidates)

	rerank := req.Config.UseScores && s.reranker != nil
	fuseLimit := limit
	if rerank {
		fuseLimit = limit * cfg.RerankMultiplier
	}

	fused := s.fusion.Fuse(FusionInput{
		Lexical:       lexical,
		Vector:        vector,
		Candidates:    candidates,
		Query:         query,
		ExpandedQuery: expansion,
		Modalities:    req.Modalities,
		Access:        filter,
		Filters:       req.Filters,
		Limit:         fuseLimit,
		K:             cfg.RRFK,
	})

	if rerank && len(fused) > 1 {
		fused = s.rerank(ctx, log, query, fused, cfg.RerankTimeout)
	}
	if len(fused) > limit {
		fused = fused[:limit]
	}

	results := make([]domain.SearchResult, len(fused))
	for i, item := range fused {
		results[i] = domain.SearchResult{
			ItemID:        item.ItemID,
			Score:         item.Score,
			MatchedChunks: item.Chunks,
			Metadata: domain.ResultMetadata{
				Title:       item.Best.Title,
				Modality:    item.Best.Modality,
				Tags:        item.Best.Tags,
				ProjectID:   item.Best.ProjectID,
				Sensitivity: item.Best.Sensitivity,
				Popularity:  item.Best.Popularity,
				CreatedAt:   item.Best.CreatedAt,
			},
		}
		if req.Config.Previews {
			results[i].Preview = buildPreview(item.Best.Content, query)
		}
	}
	log.Info("results=%d", len(results))
	return results, nil
}

// vectorSearch embeds every fragment and queries the index once per
// embedding. Hits are concatenated; fusion dedupes them by max similarity.
func (s *SearchService) vectorSearch(
	ctx context.Context,
	log logger.Scope,
	fragments []string,
	modalities []domain.Modality,
	filter *domain.AccessFilter,
	topK int,
	timeout time.Duration,
) []driven.VectorHit {
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	embeddings, err := s.embeddingService.EmbedBatch(vctx, fragments)
	if err != nil {
		log.Warn("embedding failed, skipping vector search: %v", err)
		return nil
	}

	var (
		mu   sync.Mutex
		hits []driven.VectorHit
	)
	g, gctx := errgroup.WithContext(vctx)
	for i, emb := range embeddings {
		g.Go(func() error {
			found, err := s.vectorIndex.Search(gctx, driven.VectorQuery{
				Embedding:  emb,
				Modalities: modalities,
				Access:     filter,
				TopK:       topK,
			})
			if err != nil {
				log.Warn("vector query %d failed: %v", i, err)
				return nil
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return hits
}

// hydrate loads metadata for every candidate chunk. On store failure the
// metadata carried on vector hits is all that remains.
func (s *SearchService) hydrate(
	ctx context.Context, log logger.Scope, lexical map[string]float64, vector []driven.VectorHit,
) map[string]domain.Chunk {
	if s.chunks == nil {
		return map[string]domain.Chunk{}
	}
	ids := make([]string, 0, len(lexical)+len(vector))
	seen := make(map[string]bool, cap(ids))
	for id := range lexical {
		seen[id] = true
		ids = append(ids, id)
	}
	for _, h := range vector {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			ids = append(ids, h.ChunkID)
		}
	}
	if len(ids) == 0 {
		return map[string]domain.Chunk{}
	}
	chunks, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		log.Warn("hydrate %d chunks: %v", len(ids), err)
		return map[string]domain.Chunk{}
	}
	return chunks
}

// storedOnly drops vector hits whose item is not STORED.
func storedOnly(hits []driven.VectorHit, candidates map[string]domain.Chunk) []driven.VectorHit {
	kept := hits[:0:0]
	for _, h := range hits {
		status := h.Chunk.IndexingStatus
		if c, ok := candidates[h.ChunkID]; ok {
			status = c.IndexingStatus
		}
		if status == domain.StatusStored {
			kept = append(kept, h)
		}
	}
	return kept
}

// rerank reorders fused items. On failure the fused order stands. Items the
// reranker omits follow the reranked ones in fused order.
func (s *SearchService) rerank(
	ctx context.Context, log logger.Scope, query string, fused []FusedItem, timeout time.Duration,
) []FusedItem {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates := make([]driven.RerankCandidate, len(fused))
	for i, item := range fused {
		candidates[i] = driven.RerankCandidate{
			ItemID:  item.ItemID,
			Title:   item.Best.Title,
			Snippet: truncateRunes(item.Best.Content, previewLength),
		}
	}

	order, err := s.reranker.Rerank(rctx, query, candidates)
	if err != nil {
		log.Warn("rerank failed, keeping fused order: %v", err)
		return fused
	}
	return applyOrder(fused, order)
}

// applyOrder places items in the given ID order, ignoring unknown and
// repeated IDs, then appends the rest in their original order.
func applyOrder(items []FusedItem, order []string) []FusedItem {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ItemID] = i
	}
	placed := make([]bool, len(items))
	out := make([]FusedItem, 0, len(items))
	for _, id := range order {
		i, ok := index[id]
		if !ok || placed[i] {
			continue
		}
		placed[i] = true
		out = append(out, items[i])
	}
	for i, item := range items {
		if !placed[i] {
			out = append(out, item)
		}
	}
	return out
}

// buildPreview returns the first sentence mentioning a query term, or the
// start of the content, bounded to previewLength characters.
func buildPreview(content, query string) string {
	terms := QueryTerms(query)
	for _, sentence := range splitSentences(content) {
		if containsAnyTerm(sentence, terms) {
			return truncateRunes(sentence, previewLength)
		}
	}
	return truncateRunes(strings.TrimSpace(content), previewLength)
}

// splitSentences splits content on sentence terminators and newlines.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// truncateRunes bounds s to n runes, ellipsis included.
func truncateRunes(s string, n int) string {
	const ellipsis = "..."
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string(r[:n])
	}
	return string(r[:n-len(ellipsis)]) + ellipsis
}
