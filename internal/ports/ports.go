package ports

import (
	"context"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
)

// Catalog is the remote document service seen by the source agent.
// Pagination state (page counter, running total) belongs to the
// caller, not the catalog.
type Catalog interface {
	// Search returns one page of text ids matching the query, plus the
	// server-reported total result count.
	Search(ctx context.Context, query domain.SearchQuery, page int) (ids []string, total int, err error)
	// Consult fetches one text. A structurally incomplete upstream
	// payload is not an error: it yields Text.HasContent == false.
	Consult(ctx context.Context, id string) (domain.Text, error)
}

// Repository is the persistent store seen by the store agent. It owns
// the only database connection in the system.
type Repository interface {
	// ExistsBatch reports which of the given ids are already stored.
	ExistsBatch(ctx context.Context, ids []string) (map[string]bool, error)
	// SaveBatch writes failures, accepted texts and their records as
	// one committed transaction. An error means nothing of the batch
	// was persisted.
	SaveBatch(ctx context.Context, batch domain.PersistBatch) error
	// InitSchema creates the storage schema. Idempotent.
	InitSchema(ctx context.Context) error
}

// ExtractFunc turns raw text content into records for a job kind.
// The boolean is false when no pattern matched; a true result with
// zero records means every candidate entry was filtered as ignorable.
type ExtractFunc func(content string, kind domain.Kind) ([]domain.Record, bool)
