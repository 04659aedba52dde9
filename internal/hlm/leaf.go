package hlm

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	hlmerrors "github.com/23skdu/hlm/internal/errors"
	"github.com/23skdu/hlm/internal/metrics"
)

// leafSlot is one striped page lock. n counts reentrant acquisitions beyond
// the first and is only touched by the current owner.
type leafSlot struct {
	mu    sync.Mutex
	owner atomic.Pointer[Session]
	n     int
}

// leafCache approximates one lock per page with a fixed table of reentrant
// mutexes. Page ids sharing a bucket serialize against each other.
type leafCache struct {
	slots  []leafSlot
	logger zerolog.Logger
}

func newLeafCache(buckets int, logger zerolog.Logger) *leafCache {
	return &leafCache{
		slots:  make([]leafSlot, buckets),
		logger: logger,
	}
}

func (c *leafCache) bucket(id PageId) int {
	return int(uint64(id) % uint64(len(c.slots)))
}

func (c *leafCache) lock(s *Session, id PageId) {
	k := &c.slots[c.bucket(id)]
	if k.owner.Load() == s {
		k.n++
		metrics.LeafReentrantTotal.Inc()
		return
	}
	timedAcquire("page", Exclusive, k.mu.TryLock, k.mu.Lock)
	k.owner.Store(s)
}

func (c *leafCache) unlock(s *Session, id PageId) {
	k := &c.slots[c.bucket(id)]
	if k.owner.Load() != s {
		violate(c.logger, hlmerrors.NewOwnershipError("leaf.unlock", "page bucket not owned by session").
			WithContext("page", uint64(id)).
			WithContext("bucket", c.bucket(id)))
	}
	if k.n > 0 {
		k.n--
		return
	}
	k.owner.Store(nil)
	k.mu.Unlock()
}

// depth reports whether s owns the bucket of id and how many times it holds it.
func (c *leafCache) depth(s *Session, id PageId) int {
	k := &c.slots[c.bucket(id)]
	if k.owner.Load() != s {
		return 0
	}
	return k.n + 1
}
