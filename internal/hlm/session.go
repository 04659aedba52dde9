package hlm

import (
	"slices"

	hlmerrors "github.com/23skdu/hlm/internal/errors"
)

// TaggedPage is a tracked page and its tag.
type TaggedPage struct {
	ID  PageId
	Tag int
}

// pageSet is the ordered set of pages a session tracks. Ordering lets Tag
// find the nearest tracked page at or below an id.
type pageSet struct {
	entries []TaggedPage
}

func cmpPage(e TaggedPage, id PageId) int {
	switch {
	case e.ID < id:
		return -1
	case e.ID > id:
		return 1
	default:
		return 0
	}
}

func (p *pageSet) find(id PageId) (int, bool) {
	return slices.BinarySearchFunc(p.entries, id, cmpPage)
}

// floor returns the index of the largest tracked id <= id.
func (p *pageSet) floor(id PageId) (int, bool) {
	i, found := p.find(id)
	if found {
		return i, true
	}
	return i - 1, i > 0
}

func (p *pageSet) insertAt(i int, id PageId) {
	p.entries = slices.Insert(p.entries, i, TaggedPage{ID: id, Tag: TagNone})
}

func (p *pageSet) removeAt(i int) {
	p.entries = slices.Delete(p.entries, i, i+1)
}

func (p *pageSet) len() int {
	return len(p.entries)
}

// Session is the lock state of one goroutine: its top mode, the mid-level
// ids it holds, and the pages it tracks inside a granular scope. A Session
// is also the owner identity of the page locks it takes, which is what makes
// acquisitions reentrant.
type Session struct {
	m *Manager

	top      Mode
	mids     map[MidId]Mode
	granular bool
	pages    pageSet
}

// Manager returns the manager the session locks against.
func (s *Session) Manager() *Manager {
	return s.m
}

// HoldsAll reports whether the session holds the top lock exclusively.
func (s *Session) HoldsAll() bool {
	return s.top == Exclusive
}

// HoldsMid reports whether the session holds mid id a, directly or through
// an exclusive top lock.
func (s *Session) HoldsMid(a MidId) bool {
	return s.top == Exclusive || s.mids[a] != None
}

// Top returns the session's current top mode.
func (s *Session) Top() Mode {
	return s.top
}

// MidMode returns the mode the session holds mid id a in.
func (s *Session) MidMode(a MidId) Mode {
	return s.mids[a]
}

// IsGranular reports whether page tracking is active.
func (s *Session) IsGranular() bool {
	return s.granular
}

// SomethingIsLocked reports whether the session holds anything at any level.
func (s *Session) SomethingIsLocked() bool {
	return s.top != None || len(s.mids) > 0 || s.pages.len() > 0
}

// Close ends the session. Holding anything at that point is a nesting bug.
func (s *Session) Close() {
	if s.SomethingIsLocked() {
		violate(s.m.logger, hlmerrors.NewNestingError("Session.Close", "session closed while holding locks").
			WithContext("top", s.top.String()).
			WithContext("mids", len(s.mids)).
			WithContext("pages", s.pages.len()))
	}
}
