package material

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups when no record matches the
// requested business key.
var ErrNotFound = errors.New("material not found")

// SortKeys lists the columns a listing may be ordered by. Anything else
// falls back to material_id.
var SortKeys = []string{"material_id", "material_name", "unit_price", "manufacturer"}

// PerPageChoices are the accepted page sizes for listings.
var PerPageChoices = []int{25, 50, 100, 200}

// DefaultPerPage is used when the caller requests an unknown page size.
const DefaultPerPage = 50

// ListOptions control search, filtering, ordering and pagination of a
// materials listing.
type ListOptions struct {
	// Search matches case-insensitively against material_id,
	// material_name, manufacturer and supplier.
	Search string

	// Category filters on exact material_category when non-empty.
	Category string

	// IncludeInactive includes records with is_active = false.
	IncludeInactive bool

	// SortKey must be one of SortKeys; Descending flips the order.
	SortKey    string
	Descending bool

	Page    int
	PerPage int
}

// ListResult is one page of a materials listing plus its paging envelope.
type ListResult struct {
	Materials  []*Material `json:"materials"`
	TotalCount int64       `json:"total_count"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

// Stats summarizes the store for the dashboard.
type Stats struct {
	Total      int64            `json:"total"`
	Active     int64            `json:"active"`
	Categories map[string]int64 `json:"categories"`
}

// Store is the keyed record store the import pipeline reconciles against.
// Implementations: store.Postgres (pgx) and store.Memory (tests, demos).
type Store interface {
	// Get returns the record for a business key, or ErrNotFound.
	Get(ctx context.Context, materialID string) (*Material, error)

	// Insert creates a new record. The store sets CreatedAt/UpdatedAt.
	Insert(ctx context.Context, m *Material) error

	// Update overwrites the mutable fields of an existing record,
	// matched by business key. Returns ErrNotFound if absent.
	Update(ctx context.Context, m *Material) error

	// Delete removes the record for a business key. Deleting an absent
	// key is not an error.
	Delete(ctx context.Context, materialID string) error

	// List returns one page of materials per the options.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Stats returns dashboard counts.
	Stats(ctx context.Context) (*Stats, error)

	// SetActive flips is_active for the given business keys and returns
	// the number of records touched.
	SetActive(ctx context.Context, materialIDs []string, active bool) (int64, error)

	// ActivateAll marks every record active. This is a deliberate
	// administrative operation, never invoked by the import pipeline.
	ActivateAll(ctx context.Context) (int64, error)

	// WithTx runs fn against a transaction-bound view of the store.
	// If fn returns an error the transaction is rolled back and the
	// error returned; otherwise it commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
