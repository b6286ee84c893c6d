package departures

import "departures.opentransit.org/internal/models"

// Policy holds the tunable parts of a resolution.
type Policy struct {
	// RadiusMeters bounds how far from the start a boarding stop may be.
	RadiusMeters float64
	// PerStopLimit is the number of upcoming departures read per boarding stop.
	PerStopLimit int
	// MaxDestinationDistanceMeters, when positive, drops trips whose closest
	// stop to the destination is farther than this. Zero disables the check.
	MaxDestinationDistanceMeters float64
}

func DefaultPolicy() Policy {
	return Policy{
		RadiusMeters: models.DefaultSearchRadiusInMeters,
		PerStopLimit: models.DefaultDeparturesPerStop,
	}
}

// withDefaults fills unset fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.RadiusMeters <= 0 {
		p.RadiusMeters = d.RadiusMeters
	}
	if p.PerStopLimit <= 0 {
		p.PerStopLimit = d.PerStopLimit
	}
	if p.MaxDestinationDistanceMeters < 0 {
		p.MaxDestinationDistanceMeters = 0
	}
	return p
}
