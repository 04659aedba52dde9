package hlm

import (
	"sync"
	"sync/atomic"

	"github.com/23skdu/hlm/internal/metrics"
)

type midShard struct {
	lock  spinLock
	locks map[MidId]*sync.RWMutex
}

// midRegistry maps mid-level ids to their read-write locks. Entries are
// created on first use and never removed: the id space is one per resource
// group, so the table stays small.
type midRegistry struct {
	shards []midShard
	size   atomic.Int64
}

func newMidRegistry(numShards int) *midRegistry {
	r := &midRegistry{shards: make([]midShard, numShards)}
	for i := range r.shards {
		r.shards[i].locks = make(map[MidId]*sync.RWMutex)
	}
	return r
}

func (r *midRegistry) getOrCreate(id MidId) *sync.RWMutex {
	sh := &r.shards[int(id%MidId(len(r.shards)))]
	sh.lock.Lock()
	defer sh.lock.Unlock()

	l, ok := sh.locks[id]
	if !ok {
		l = &sync.RWMutex{}
		sh.locks[id] = l
		r.size.Add(1)
		metrics.MidRegistrySize.Inc()
	}
	return l
}

func (r *midRegistry) len() int {
	return int(r.size.Load())
}
