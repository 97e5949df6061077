package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Ledger records answered queries. Entries are grouped by run so a
// result is only ever reused within the run that produced it.
type Ledger interface {
	Close() error

	Record(ctx context.Context, e Entry) error
	Lookup(ctx context.Context, runID, key string) (Entry, bool, error)
	Entries(ctx context.Context, runID string) ([]Entry, error)
}

// Entry is one answered query
type Entry struct {
	ID          string
	RunID       string
	Key         string // canonical query text
	Algorithm   int
	Probability float64
	Sums        int
	Multiplies  int
	CreatedAt   time.Time
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID. IDs generated by one process sort in
// creation order.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
