package pipeline

import (
	"context"
	"time"
)

// Fetcher retrieves a single document. Implementations perform exactly one
// attempt per call; retry policy lives with the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a raw document into the selected output format.
// An empty result with a nil error means the document held no extractable
// content; a non-nil error is an extraction fault.
type Extractor interface {
	Extract(ctx context.Context, document []byte, url string, opts Options) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
