package hlm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/23skdu/hlm/internal/logging"
)

// TestPageMgrProperties validates tag bookkeeping using property-based testing.
func TestPageMgrProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	cfg := DefaultConfig()
	cfg.LeafBuckets = 13 // small table so collisions are common
	m, err := New(cfg, logging.DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Property: UnlockAllExcept keeps exactly the pages whose tag matches
	properties.Property("UnlockAllExcept keeps matching tags", prop.ForAll(
		func(ids []uint64, tags []int, keep int) bool {
			s := m.NewSession()
			g := s.Granular(1)
			want := map[PageId]bool{}
			for i, id := range ids {
				s.LockPage(1, PageId(id))
				tag := tags[i%len(tags)]
				s.Tag(PageId(id), tag)
			}
			for _, p := range s.Pages() {
				if p.Tag == keep {
					want[p.ID] = true
				}
			}
			s.UnlockAllExcept(keep)

			got := s.Pages()
			ok := len(got) == len(want)
			for _, p := range got {
				ok = ok && want[p.ID] && p.Tag == keep
			}
			g.Release()
			return ok && !s.SomethingIsLocked()
		},
		gen.SliceOf(gen.UInt64Range(0, 200)),
		gen.SliceOfN(4, gen.IntRange(0, 3)),
		gen.IntRange(0, 3),
	))

	// Property: leaf depth per bucket equals the number of tracked pages in it
	properties.Property("leaf depth matches tracked pages", prop.ForAll(
		func(ids []uint64) bool {
			s := m.NewSession()
			g := s.Granular(1)
			for _, id := range ids {
				s.LockPage(1, PageId(id))
			}
			perBucket := map[int]int{}
			for _, p := range s.Pages() {
				perBucket[m.leaves.bucket(p.ID)]++
			}
			ok := true
			for _, p := range s.Pages() {
				ok = ok && m.leaves.depth(s, p.ID) == perBucket[m.leaves.bucket(p.ID)]
			}
			g.Release()
			for _, id := range ids {
				ok = ok && m.leaves.depth(s, PageId(id)) == 0
			}
			return ok
		},
		gen.SliceOf(gen.UInt64Range(0, 100)),
	))

	// Property: Pages stays sorted and duplicate-free
	properties.Property("pages are ordered and unique", prop.ForAll(
		func(ids []uint64) bool {
			s := m.NewSession()
			g := s.Granular(1)
			for _, id := range ids {
				s.LockPage(1, PageId(id))
			}
			pages := s.Pages()
			ok := true
			for i := 1; i < len(pages); i++ {
				ok = ok && pages[i-1].ID < pages[i].ID
			}
			g.Release()
			return ok
		},
		gen.SliceOf(gen.UInt64Range(0, 50)),
	))

	properties.TestingRun(t)
}
