package models

const (
	// DefaultDepartureLimit is used when a query does not ask for a positive limit.
	DefaultDepartureLimit = 5
	// MaxDepartureLimit caps the limit accepted over HTTP.
	MaxDepartureLimit = 50

	DefaultSearchRadiusInMeters = 1000.0
	DefaultDeparturesPerStop    = 3

	// TimestampLayout is the wire format of departure times and start_time.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// Cache-Control max-age values, in seconds.
const (
	CacheDurationNone  = 0
	CacheDurationShort = 30
	CacheDurationLong  = 300
)
