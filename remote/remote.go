package remote

import "context"

// Record is the opaque item shape the remote returns. The query layer
// never interprets fields; typed extraction belongs to callers.
type Record map[string]any

// ID returns the record's "id" field when present.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// QueryParams describes one page request against a dataset.
type QueryParams struct {
	// Dataset identifies the remote collection to query.
	Dataset string

	// Filter is an opaque predicate description forwarded to the remote.
	Filter map[string]any

	// Sorts is an ordered list of opaque sort descriptions.
	Sorts []map[string]any

	// Cursor is the continuation token from the previous page, empty for
	// the first page.
	Cursor string
}

// Page is one page of query results plus its continuation state.
type Page struct {
	Records    []Record
	HasMore    bool
	NextCursor string
}

// Service is the paginated remote collaborator boundary. Every method
// fails with a *Error carrying one of the three kinds; implementations
// must not return partial results alongside an error.
type Service interface {
	// Query fetches a single page of records.
	Query(ctx context.Context, params QueryParams) (Page, error)

	// Get fetches one record by id.
	Get(ctx context.Context, id string) (Record, error)

	// Update applies changes to one record and returns the updated record.
	Update(ctx context.Context, id string, changes map[string]any) (Record, error)

	// Create inserts a record under the given parent dataset.
	Create(ctx context.Context, dataset string, changes map[string]any) (Record, error)

	// Describe returns the dataset's property schema as an opaque map.
	Describe(ctx context.Context, dataset string) (map[string]any, error)
}
