package crawler

import (
	"context"
	"time"
)

// Fetcher performs one GET and returns the body plus metadata. Any completed
// response is returned without error regardless of status; errors are
// reserved for transport failures.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// TitleRenderer resolves a page title by rendering it in a browser.
type TitleRenderer interface {
	Title(ctx context.Context, url string) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// ReportStore persists a finished run.
type ReportStore interface {
	SaveReport(ctx context.Context, report Report) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
