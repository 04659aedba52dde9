package hlm

import (
	"sync"

	hlmerrors "github.com/23skdu/hlm/internal/errors"
	"github.com/23skdu/hlm/internal/metrics"
)

// guard tracks the single allowed release of a scoped acquisition.
type guard struct {
	released bool
}

func (g *guard) release(s *Session, op string) {
	if g.released {
		violate(s.m.logger, hlmerrors.NewNestingError(op, "guard released twice"))
	}
	g.released = true
}

// AllGuard holds the top lock exclusively.
type AllGuard struct {
	guard
	s       *Session
	already bool
}

// LockAll takes the top lock exclusively, excluding every other session at
// every level. Reentrant: a session that already holds it gets a no-op guard.
// Holding the top lock shared (any mid or page lock) and asking for LockAll
// is an escalation and panics.
func (s *Session) LockAll() *AllGuard {
	if s.top == Shared {
		violate(s.m.logger, hlmerrors.NewLockOrderError("LockAll", "cannot escalate a shared top lock to exclusive").
			WithContext("mids", len(s.mids)))
	}
	g := &AllGuard{s: s, already: s.top == Exclusive}
	if !g.already {
		s.m.logger.Debug().Msg("lock all")
		s.top = Exclusive
		s.m.lockTop(Exclusive)
	}
	return g
}

// Already reports whether the guard found the top lock already held.
func (g *AllGuard) Already() bool {
	return g.already
}

// Release unlocks the top lock if this guard took it.
func (g *AllGuard) Release() {
	g.release(g.s, "LockAll.Release")
	if g.already {
		return
	}
	if g.s.top != Exclusive {
		violate(g.s.m.logger, hlmerrors.NewNestingError("LockAll.Release", "top lock not held exclusively").
			WithContext("top", g.s.top.String()))
	}
	g.s.top = None
	g.s.m.unlockTop(Exclusive)
}

// MidGuard holds a mid-level lock and, when needed, the implicit shared top lock.
type MidGuard struct {
	guard
	s          *Session
	id         MidId
	mode       Mode
	topAlready bool
	// middle is set only when this guard locked the mid-level lock.
	middle *sync.RWMutex
}

// LockMid locks mid-level id a shared or exclusive. The top lock is taken
// shared first unless the session already holds it. Under an exclusive top
// lock nothing is acquired. Re-entering an id the session already holds is a
// no-op, except asking for exclusive on a shared hold, which panics.
func (s *Session) LockMid(a MidId, exclusive bool) *MidGuard {
	g := &MidGuard{s: s, id: a, mode: modeOf(exclusive)}
	if s.top == Exclusive {
		g.topAlready = true
		return g
	}
	held := s.mids[a]
	if held == Shared && g.mode == Exclusive {
		violate(s.m.logger, hlmerrors.NewLockOrderError("LockMid", "cannot escalate a shared mid lock to exclusive").
			WithContext("mid", uint32(a)))
	}
	g.topAlready = s.top != None
	if !g.topAlready {
		s.top = Shared
		s.m.lockTop(Shared)
	}
	if held == None {
		s.m.logger.Debug().Uint32("mid", uint32(a)).Stringer("mode", g.mode).Msg("lock mid")
		s.mids[a] = g.mode
		g.middle = s.m.mids.getOrCreate(a)
		lockMid(g.middle, g.mode)
	}
	return g
}

// ID returns the mid-level id the guard was taken for.
func (g *MidGuard) ID() MidId {
	return g.id
}

// LockedMiddle reports whether this guard acquired the mid-level lock itself.
func (g *MidGuard) LockedMiddle() bool {
	return g.middle != nil
}

// Release unlocks whatever this guard acquired, mid lock first.
func (g *MidGuard) Release() {
	s := g.s
	g.release(s, "LockMid.Release")
	if g.middle != nil {
		if s.mids[g.id] != g.mode {
			violate(s.m.logger, hlmerrors.NewNestingError("LockMid.Release", "mid lock mode changed under guard").
				WithContext("mid", uint32(g.id)).
				WithContext("mode", s.mids[g.id].String()))
		}
		unlockMid(g.middle, g.mode)
		delete(s.mids, g.id)
	}
	if g.topAlready {
		return
	}
	if s.top != Shared {
		violate(s.m.logger, hlmerrors.NewNestingError("LockMid.Release", "implicit top lock not held shared").
			WithContext("top", s.top.String()))
	}
	if len(s.mids) > 0 {
		violate(s.m.logger, hlmerrors.NewNestingError("LockMid.Release", "outer mid guard released before inner guards").
			WithContext("mid", uint32(g.id)).
			WithContext("held", len(s.mids)))
	}
	s.top = None
	s.m.unlockTop(Shared)
}

// PageGuard holds page b under mid-level id a.
type PageGuard struct {
	guard
	mid     *MidGuard
	page    PageId
	tracked bool
}

// Lock takes mid id a shared and then page b through the page manager.
// Outside a granular scope only the mid lock is taken. Locking a page the
// session already tracks is a no-op for the page.
func (s *Session) Lock(a MidId, b PageId) *PageGuard {
	mid := s.LockMid(a, false)
	return &PageGuard{mid: mid, page: b, tracked: s.lockPage(a, b)}
}

// Page returns the guarded page id.
func (g *PageGuard) Page() PageId {
	return g.page
}

// Release drops the page unless it was tagged, then the mid lock.
func (g *PageGuard) Release() {
	s := g.mid.s
	g.release(s, "Lock.Release")
	if g.tracked {
		s.UnlockIfUntagged(g.mid.id, g.page)
	}
	g.mid.Release()
}

// GranularGuard is a scope in which pages are tracked and taggable.
type GranularGuard struct {
	guard
	mid *MidGuard
	old bool
}

// Granular takes mid id a shared and turns on page tracking when this scope
// acquired the mid lock. An enclosing granular scope stays in effect. Under
// an exclusive mid or top lock pages need no locking, so tracking stays off.
func (s *Session) Granular(a MidId) *GranularGuard {
	mid := s.LockMid(a, false)
	g := &GranularGuard{mid: mid, old: s.granular}
	s.granular = g.old || mid.LockedMiddle()
	if !g.old && s.granular {
		metrics.GranularScopesActive.Inc()
	}
	s.m.logger.Debug().Uint32("mid", uint32(a)).Bool("granular", s.granular).Msg("granular")
	return g
}

// Release restores the previous tracking state. The outermost scope releases
// every page still tracked, tagged or not.
func (g *GranularGuard) Release() {
	s := g.mid.s
	g.release(s, "Granular.Release")
	wasGranular := s.granular
	s.granular = g.old
	if !g.old {
		if s.pages.len() > 0 {
			s.m.logger.Debug().Int("pages", s.pages.len()).Msg("granular release: unlocking all")
			s.UnlockAll()
		}
		if wasGranular {
			metrics.GranularScopesActive.Dec()
		}
	}
	g.mid.Release()
}
