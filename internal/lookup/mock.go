package lookup

import (
	"context"
	"time"

	"adresboek/internal/domain"
)

// MockGateway serves deterministic candidates with a configurable latency to
// mimic real-world calls. Used in development when no lookup service is
// configured.
type MockGateway struct {
	Latency time.Duration
}

func (g MockGateway) Search(ctx context.Context, postcode, houseNumber string) ([]domain.Candidate, error) {
	select {
	case <-time.After(g.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return []domain.Candidate{
		{
			ID:           "mock-" + postcode + "-1",
			Street:       "Teststraat",
			City:         "Amsterdam",
			Postcode:     postcode,
			Municipality: "Amsterdam",
			Province:     "Noord-Holland",
		},
		{
			ID:           "mock-" + postcode + "-2",
			Street:       "Voorbeeldlaan",
			City:         "Amsterdam",
			Postcode:     postcode,
			Municipality: "Amsterdam",
			Province:     "Noord-Holland",
		},
	}, nil
}
