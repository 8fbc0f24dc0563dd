package driven

import "context"

// Reranker re-orders fused candidates. It is an optional final stage.
type Reranker interface {
	// Rerank returns candidate item IDs in their new order. IDs not in the
	// input are ignored by the caller; omitted candidates keep their fused order
	// after the reranked ones.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]string, error)
}

// RerankCandidate is the view of a fused item handed to a reranker.
type RerankCandidate struct {
	ItemID  string
	Title   string
	Snippet string
}
