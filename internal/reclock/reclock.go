// Package reclock maps storage engine addresses and namespaces onto the
// identifiers of the hierarchical lock manager.
package reclock

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/23skdu/hlm/internal/hlm"
)

// Quantum is the address range covered by one page lock. It is large enough
// that a btree bucket never straddles two page locks.
const Quantum = 8192

// Quantize returns the page covering addr. The address is divided rather
// than masked so the leaf cache hashes well-spread ids.
func Quantize(addr uintptr) hlm.PageId {
	return hlm.PageId(addr / Quantum)
}

// DatabaseOf returns the database part of a "db.collection" namespace.
func DatabaseOf(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[:i]
	}
	return ns
}

// NamespaceID returns the mid-level id of the database owning ns. All
// collections of one database share an id.
func NamespaceID(ns string) hlm.MidId {
	h := xxhash.Sum64String(DatabaseOf(ns))
	return hlm.MidId(h ^ h>>32)
}

// Locker locks records by address for one session.
type Locker struct {
	s *hlm.Session
}

// New returns a Locker acting on s.
func New(s *hlm.Session) *Locker {
	return &Locker{s: s}
}

// Lock tracks the page holding addr under the database of ns. The session
// must be inside a granular scope for that database.
func (l *Locker) Lock(ns string, addr uintptr) {
	l.s.LockPage(NamespaceID(ns), Quantize(addr))
}

// Tag marks the record at addr as written so it survives UnlockNonTagged.
func (l *Locker) Tag(addr uintptr) {
	l.s.Tag(Quantize(addr), hlm.TagKeep)
}

// AssertTagged panics unless the record at addr was tagged.
func (l *Locker) AssertTagged(addr uintptr) {
	l.s.AssertTagged(Quantize(addr))
}

// UnlockNonTagged releases every page not tagged as written.
func (l *Locker) UnlockNonTagged() {
	l.s.UnlockAllExcept(hlm.TagKeep)
}

// Scoped locks the page holding addr until the guard is released.
func (l *Locker) Scoped(ns string, addr uintptr) *hlm.PageGuard {
	return l.s.Lock(NamespaceID(ns), Quantize(addr))
}

// GranularForDB opens a granular scope for the database of ns.
func (l *Locker) GranularForDB(ns string) *hlm.GranularGuard {
	return l.s.Granular(NamespaceID(ns))
}
