/*
Package hlm implements a hierarchical, multi-granularity lock manager for a
storage engine.

# Levels

Locks are taken at three nested levels: a global top lock, mid-level locks
identified by a MidId (one per resource group, e.g. a database), and page
locks identified by a PageId. Deadlock is prevented by acquisition order:
top, then mid, then page. Breaking the order is a programming error and
panics with a *errors.StructuredError.

# Sessions

Go has no thread-local storage, so the per-thread lock state lives in a
Session. Every goroutine that takes locks creates its own Session with
Manager.NewSession and never shares it. Acquisitions through the same Session
are reentrant: only the outermost guard blocks and only the outermost release
unlocks.

# Guards

LockAll, LockMid, Lock and Granular return guards. A guard is released exactly
once, normally with defer:

	g := s.Granular(db)
	defer g.Release()

# Tagging

Inside a granular scope every page touched with LockPage or Lock is tracked
with an integer tag. Tag marks the pages a caller mutated, and UnlockAllExcept
releases the rest in bulk, so speculative read locks are dropped early while
written pages stay locked until the scope ends.

Page locks are hash-striped: PageIds sharing a bucket of the leaf cache
serialize against each other. This costs concurrency, never correctness.
*/
package hlm
