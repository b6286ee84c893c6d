package departures

import (
	"context"

	"departures.opentransit.org/gtfsdb"
)

// Reader is the read-only view of the schedule a resolution runs against.
// Implementations are used by one resolution at a time.
type Reader interface {
	ListStops(ctx context.Context) ([]gtfsdb.Stop, error)
	GetUpcomingDepartures(ctx context.Context, arg gtfsdb.GetUpcomingDeparturesParams) ([]gtfsdb.UpcomingDeparture, error)
	GetTripPath(ctx context.Context, tripID string) ([]gtfsdb.TripPathStop, error)
	Close() error
}

// Gateway hands out a Reader per resolution. The resolver closes every
// Reader it acquires.
type Gateway interface {
	Acquire(ctx context.Context) (Reader, error)
}

type clientGateway struct {
	client *gtfsdb.Client
}

// FromClient exposes a gtfsdb client as a Gateway, one pooled connection per
// resolution.
func FromClient(client *gtfsdb.Client) Gateway {
	return clientGateway{client: client}
}

func (g clientGateway) Acquire(ctx context.Context) (Reader, error) {
	session, err := g.client.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}
