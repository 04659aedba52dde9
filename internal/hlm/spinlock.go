package hlm

import (
	"runtime"
	"sync/atomic"
)

// spinLock guards short critical sections that never block.
type spinLock struct {
	state atomic.Int32
}

func (l *spinLock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *spinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

func (l *spinLock) Unlock() {
	if l.state.Swap(0) == 0 {
		panic("hlm: unlock of unlocked spinlock")
	}
}
