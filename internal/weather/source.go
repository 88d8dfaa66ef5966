package weather

import "context"

// RegionalSource abstracts the national feed adapter.
type RegionalSource interface {
	Name() string
	Fetch(ctx context.Context, coord Coordinate) (*RegionalResult, error)
}

// GlobalSource abstracts the numerical-forecast API adapter.
type GlobalSource interface {
	Name() string
	Fetch(ctx context.Context, coord Coordinate) (*GlobalResult, error)
}
