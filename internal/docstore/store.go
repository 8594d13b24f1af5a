package docstore

import "context"

// BulkItem is one document in a bulk write.
type BulkItem struct {
	Index string
	Kind  string
	ID    string
	Body  []byte
}

// ItemFailure reports one document a bulk write could not apply.
type ItemFailure struct {
	ID     string
	Kind   string
	Reason string
}

// Store is the narrow contract this core needs from the document store.
// Index and Bulk have upsert-by-id semantics; Refresh makes every prior
// write to the index visible to subsequent reads.
type Store interface {
	Index(ctx context.Context, index, kind, id string, body []byte) error
	Bulk(ctx context.Context, items []BulkItem) ([]ItemFailure, error)
	Refresh(ctx context.Context, index string) error
}
