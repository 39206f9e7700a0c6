// Package lookup talks to the external address lookup service. The gateway is
// kept as a small interface so the workflow controller can be tested with
// stubs and so transports can be swapped.
package lookup

import (
	"context"

	"adresboek/internal/domain"
)

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks Gateway

// Gateway queries the address lookup service. May be slow and network-bound;
// implementations must honor ctx cancellation. A zero-candidate result is not
// an error.
type Gateway interface {
	Search(ctx context.Context, postcode, houseNumber string) ([]domain.Candidate, error)
}

// Error is a business error reported by the lookup service itself (status
// "error" in the response envelope). Its message is surfaced to the user
// verbatim. Transport and parse failures are returned as ordinary wrapped
// errors instead.
type Error struct {
	Message string
}

func (e Error) Error() string { return e.Message }
