package weather

import "errors"

var (
	// ErrInvalidCoordinate is a caller error; never retried.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUpstreamUnavailable covers transport failures, timeouts and
	// non-success statuses from one source. The other source may still succeed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDataNotFound means the source was reachable but the expected
	// structure or entry was missing. Treated the same as that source failing.
	ErrDataNotFound = errors.New("expected data not found in upstream response")

	// ErrAllSourcesFailed is the only hard error out of a merge: both
	// sources failed or neither was invoked.
	ErrAllSourcesFailed = errors.New("all weather sources failed")
)
