package hlm

import (
	hlmerrors "github.com/23skdu/hlm/internal/errors"
	"github.com/23skdu/hlm/internal/metrics"
)

// LockPage locks page b under mid id a and tracks it with tag 0. It only acts
// inside a granular scope; elsewhere the mid and top locks already cover the
// page. The caller must hold mid id a. Locking a tracked page is a no-op.
func (s *Session) LockPage(a MidId, b PageId) {
	s.lockPage(a, b)
}

// lockPage reports whether b became tracked by this call.
func (s *Session) lockPage(a MidId, b PageId) bool {
	if !s.granular {
		return false
	}
	if s.m.cfg.StrictMidCheck && !s.HoldsMid(a) {
		violate(s.m.logger, hlmerrors.NewLockOrderError("LockPage", "page locked without holding its mid lock").
			WithContext("mid", uint32(a)).
			WithContext("page", uint64(b)))
	}
	i, found := s.pages.find(b)
	if found {
		return false
	}
	s.m.logger.Debug().Uint32("mid", uint32(a)).Uint64("page", uint64(b)).Msg("lock page")
	s.pages.insertAt(i, b)
	s.m.leaves.lock(s, b)
	return true
}

// Tag sets the tag of the nearest tracked page at or below b. A record that
// spans past the start of its page is tagged through any address inside it.
func (s *Session) Tag(b PageId, x int) {
	if !s.granular {
		return
	}
	i, ok := s.pages.floor(b)
	if !ok {
		violate(s.m.logger, hlmerrors.NewTagError("Tag", "no tracked page at or below id").
			WithContext("page", uint64(b)))
	}
	s.pages.entries[i].Tag = x
}

// AssertTagged panics unless the nearest tracked page at or below b carries TagKeep.
func (s *Session) AssertTagged(b PageId) {
	if !s.granular {
		return
	}
	i, ok := s.pages.floor(b)
	if !ok {
		violate(s.m.logger, hlmerrors.NewTagError("AssertTagged", "no tracked page at or below id").
			WithContext("page", uint64(b)))
	}
	if e := s.pages.entries[i]; e.Tag != TagKeep {
		violate(s.m.logger, hlmerrors.NewTagError("AssertTagged", "page is not tagged").
			WithContext("page", uint64(e.ID)).
			WithContext("tag", e.Tag))
	}
}

// UnlockIfUntagged releases tracked page b when its tag is 0. Tagged pages
// stay locked until a bulk release.
func (s *Session) UnlockIfUntagged(a MidId, b PageId) {
	if !s.granular {
		return
	}
	i, found := s.pages.find(b)
	if !found {
		violate(s.m.logger, hlmerrors.NewOwnershipError("UnlockIfUntagged", "page is not tracked by session").
			WithContext("mid", uint32(a)).
			WithContext("page", uint64(b)))
	}
	if s.pages.entries[i].Tag != TagNone {
		metrics.PagesRetainedTotal.Inc()
		return
	}
	s.pages.removeAt(i)
	s.m.leaves.unlock(s, b)
	metrics.PagesReleasedTotal.WithLabelValues("untagged").Inc()
}

// UnlockAllExcept releases every tracked page whose tag differs from keep.
func (s *Session) UnlockAllExcept(keep int) {
	kept := make([]TaggedPage, 0, s.pages.len())
	released := 0
	for _, e := range s.pages.entries {
		if e.Tag == keep {
			kept = append(kept, e)
			continue
		}
		s.m.leaves.unlock(s, e.ID)
		released++
	}
	s.pages.entries = kept
	s.m.logger.Debug().Int("released", released).Int("kept", len(kept)).Msg("unlock all except")
	metrics.PagesReleasedTotal.WithLabelValues("except").Add(float64(released))
	metrics.PagesRetainedTotal.Add(float64(len(kept)))
}

// UnlockAll releases every tracked page.
func (s *Session) UnlockAll() {
	for _, e := range s.pages.entries {
		s.m.leaves.unlock(s, e.ID)
	}
	metrics.PagesReleasedTotal.WithLabelValues("all").Add(float64(s.pages.len()))
	s.pages.entries = nil
}

// Pages returns the tracked pages in id order.
func (s *Session) Pages() []TaggedPage {
	out := make([]TaggedPage, s.pages.len())
	copy(out, s.pages.entries)
	return out
}

// TagOf returns the tag of tracked page b.
func (s *Session) TagOf(b PageId) (int, bool) {
	i, found := s.pages.find(b)
	if !found {
		return 0, false
	}
	return s.pages.entries[i].Tag, true
}
