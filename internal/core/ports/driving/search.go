package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs hybrid retrieval for the subject. A nil subject is treated
	// as an anonymous caller and sees only public content. Backend failures
	// degrade to fewer results, never to an error.
	Search(ctx context.Context, subject domain.Subject, req domain.SearchRequest) ([]domain.SearchResult, error)
}
