package mcp

import (
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ports aggregates the driving ports and the identity the server acts as.
type Ports struct {
	// Search runs retrieval requests.
	Search driving.SearchService

	// Items serves item resources. Optional.
	Items driving.ItemService

	// Subject is the configured identity. Nil restricts results to public content.
	Subject domain.Subject
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
