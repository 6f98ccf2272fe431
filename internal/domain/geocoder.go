package domain

import "context"

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	// Resolve returns the coordinate for address and true on success.
	// An address that cannot be resolved yields ok == false; backend
	// failures are logged by the implementation and never surfaced as
	// errors, so callers treat false as "coordinate unknown".
	Resolve(ctx context.Context, address string) (Coordinate, bool)
}
