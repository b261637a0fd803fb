package ports

import (
	"context"
	"time"

	"NewsWatch/internal/domain"
)

// FetchResult carries the payload of one transport fetch.
type FetchResult struct {
	StatusCode  int
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetcher is the anonymized-transport contract. Retry, backoff and proxy
// routing policy live behind this interface, not in the pipeline.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Catalog indexes completed runs for read-only consumers.
type Catalog interface {
	Record(ctx context.Context, summary domain.RunSummary) error
	Recent(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Scheduler controls when pipeline executions happen.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
