// Package workload drives the lock manager with concurrent transactions that
// follow the tag-and-release protocol and checks that no update is lost.
package workload

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/hlm/internal/hlm"
)

// Config validation errors
var (
	ErrInvalidWorkers      = errors.New("workers must be positive")
	ErrInvalidTransactions = errors.New("transactions must not be negative")
	ErrInvalidDatabases    = errors.New("databases must be positive")
	ErrInvalidPages        = errors.New("pages_per_db must be positive")
	ErrInvalidReadSet      = errors.New("read_set must be between 1 and pages_per_db")
	ErrInvalidWriteSet     = errors.New("write_set must be between 0 and read_set")
)

// ErrLostUpdates is returned when the counters do not add up to the committed writes.
var ErrLostUpdates = errors.New("lost updates detected")

// Config sizes a run.
type Config struct {
	Workers         int    `envconfig:"WORKERS" default:"8"`
	Transactions    int    `envconfig:"TRANSACTIONS" default:"1000"` // per worker
	Databases       int    `envconfig:"DATABASES" default:"4"`
	PagesPerDB      int    `envconfig:"PAGES_PER_DB" default:"256"`
	ReadSet         int    `envconfig:"READ_SET" default:"8"`
	WriteSet        int    `envconfig:"WRITE_SET" default:"2"`
	CheckpointEvery int    `envconfig:"CHECKPOINT_EVERY" default:"100"` // 0 disables LockAll checkpoints
	Seed            uint64 `envconfig:"SEED" default:"1"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		Transactions:    1000,
		Databases:       4,
		PagesPerDB:      256,
		ReadSet:         8,
		WriteSet:        2,
		CheckpointEvery: 100,
		Seed:            1,
	}
}

// Validate returns an error if the config cannot drive a run
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return ErrInvalidWorkers
	case c.Transactions < 0:
		return ErrInvalidTransactions
	case c.Databases <= 0:
		return ErrInvalidDatabases
	case c.PagesPerDB <= 0:
		return ErrInvalidPages
	case c.ReadSet <= 0 || c.ReadSet > c.PagesPerDB:
		return ErrInvalidReadSet
	case c.WriteSet < 0 || c.WriteSet > c.ReadSet:
		return ErrInvalidWriteSet
	}
	return nil
}

// Result summarizes a run.
type Result struct {
	Transactions int
	Writes       int64
	Checkpoints  int
	Sum          int64
	Elapsed      time.Duration
}

// Runner owns the shared counters. Every counter is only touched while its
// page lock, or the top lock exclusively, is held.
type Runner struct {
	m        *hlm.Manager
	cfg      Config
	logger   zerolog.Logger
	counters [][]int64
}

// NewRunner creates a Runner over m.
//
//nolint:gocritic // Logger passed by value for constructor simplicity
func NewRunner(m *hlm.Manager, cfg Config, logger zerolog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	counters := make([][]int64, cfg.Databases)
	for i := range counters {
		counters[i] = make([]int64, cfg.PagesPerDB)
	}
	return &Runner{
		m:        m,
		cfg:      cfg,
		logger:   logger.With().Str("component", "workload").Logger(),
		counters: counters,
	}, nil
}

type workerStats struct {
	transactions int
	writes       int64
	checkpoints  int
}

// Run executes every worker to completion or until ctx is cancelled, then
// verifies the counters under an exclusive top lock.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	stats := make([]workerStats, r.cfg.Workers)

	g, gCtx := errgroup.WithContext(ctx)
	for i := range stats {
		idx := i
		g.Go(func() error {
			return r.worker(gCtx, idx, &stats[idx])
		})
	}
	err := g.Wait()

	res := Result{Elapsed: time.Since(start)}
	for _, st := range stats {
		res.Transactions += st.transactions
		res.Writes += st.writes
		res.Checkpoints += st.checkpoints
	}

	s := r.m.NewSession()
	res.Sum = r.checkpoint(s)
	s.Close()

	r.logger.Info().
		Int("transactions", res.Transactions).
		Int64("writes", res.Writes).
		Int("checkpoints", res.Checkpoints).
		Int64("sum", res.Sum).
		Dur("elapsed", res.Elapsed).
		Msg("workload finished")

	if err != nil {
		return res, err
	}
	if res.Sum != res.Writes {
		return res, fmt.Errorf("%w: counters sum to %d, committed %d writes", ErrLostUpdates, res.Sum, res.Writes)
	}
	return res, nil
}

func (r *Runner) worker(ctx context.Context, idx int, st *workerStats) error {
	s := r.m.NewSession()
	defer s.Close()
	rng := rand.New(rand.NewPCG(r.cfg.Seed, uint64(idx)))

	var lastSum int64
	for tx := 0; tx < r.cfg.Transactions; tx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if every := r.cfg.CheckpointEvery; every > 0 && tx%every == every-1 {
			sum := r.checkpoint(s)
			if sum < lastSum {
				return fmt.Errorf("%w: checkpoint sum went from %d to %d", ErrLostUpdates, lastSum, sum)
			}
			lastSum = sum
			st.checkpoints++
		}
		st.writes += r.transaction(s, rng)
		st.transactions++
	}
	return nil
}

func pageID(db hlm.MidId, page int) hlm.PageId {
	return hlm.PageId(uint64(db)<<32 | uint64(page))
}

func pageIndex(id hlm.PageId) int {
	return int(uint64(id) & 0xffffffff)
}

// transaction reads a random set of pages, writes a subset and returns the
// number of writes. Pages are locked in leaf bucket order, so two
// transactions never wait on each other's buckets in a cycle.
func (r *Runner) transaction(s *hlm.Session, rng *rand.Rand) int64 {
	db := hlm.MidId(rng.IntN(r.cfg.Databases))
	g := s.Granular(db)
	defer g.Release()

	ids := make([]hlm.PageId, 0, r.cfg.ReadSet)
	for _, p := range rng.Perm(r.cfg.PagesPerDB)[:r.cfg.ReadSet] {
		ids = append(ids, pageID(db, p))
	}
	buckets := uint64(r.m.Config().LeafBuckets)
	slices.SortFunc(ids, func(a, b hlm.PageId) int {
		if c := cmp.Compare(uint64(a)%buckets, uint64(b)%buckets); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	for _, id := range ids {
		s.LockPage(db, id)
	}

	writes := make([]hlm.PageId, 0, r.cfg.WriteSet)
	for _, i := range rng.Perm(len(ids))[:r.cfg.WriteSet] {
		writes = append(writes, ids[i])
		s.Tag(ids[i], hlm.TagKeep)
	}
	s.UnlockAllExcept(hlm.TagKeep)

	for _, id := range writes {
		s.AssertTagged(id)
		r.counters[db][pageIndex(id)]++
	}
	return int64(len(writes))
}

// checkpoint sums every counter under an exclusive top lock.
func (r *Runner) checkpoint(s *hlm.Session) int64 {
	all := s.LockAll()
	defer all.Release()

	var sum int64
	for _, db := range r.counters {
		for _, n := range db {
			sum += n
		}
	}
	return sum
}
