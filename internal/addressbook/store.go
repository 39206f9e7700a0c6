package addressbook

import (
	"context"

	"adresboek/internal/domain"
)

// Store is the Address-Book Container: an ordered collection of committed
// records, unique by identifier. It is interface-driven so the in-memory
// implementation can be swapped without rewiring business code.
//
// Error contract:
// - Add never fails on duplicates; a duplicate identifier is a silent no-op
//   so the operation stays idempotent. The bool reports whether the record
//   was appended.
// - Remove is a no-op when the identifier is absent; its bool reports
//   whether a record was actually deleted.
type Store interface {
	Add(ctx context.Context, record domain.Record) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	ReplaceAll(ctx context.Context, records []domain.Record) error
	List(ctx context.Context) ([]domain.Record, error)
}

// Observer receives the full record list after every mutation. The slice is a
// copy; observers may retain it.
type Observer func(records []domain.Record)
