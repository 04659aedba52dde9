package hlm

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	hlmerrors "github.com/23skdu/hlm/internal/errors"
	"github.com/23skdu/hlm/internal/metrics"
)

// Manager owns the shared lock tables: the top lock, the mid-level registry
// and the leaf cache. Per-goroutine state lives in Sessions.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	top    sync.RWMutex
	mids   *midRegistry
	leaves *leafCache
}

// New builds a Manager. The tables are sized once and live as long as the Manager.
func New(cfg Config, logger zerolog.Logger) (*Manager, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, hlmerrors.WrapConfigurationError(err, "hlm.New", "invalid lock manager config")
	}
	logger = logger.With().Str("component", "hlm").Logger()
	return &Manager{
		cfg:    cfg,
		logger: logger,
		mids:   newMidRegistry(cfg.MidShards),
		leaves: newLeafCache(cfg.LeafBuckets, logger),
	}, nil
}

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the process-wide Manager, built on first use from the
// HLM_* environment. An invalid environment falls back to DefaultConfig.
func Default() *Manager {
	defaultOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			log.Warn().Err(err).Msg("hlm: invalid environment config, using defaults")
			cfg = DefaultConfig()
		}
		m, err := New(cfg, log.Logger)
		if err != nil {
			panic(err)
		}
		defaultManager = m
	})
	return defaultManager
}

// NewSession returns lock state for one goroutine. The session must not be
// shared between goroutines.
func (m *Manager) NewSession() *Session {
	return &Session{
		m:    m,
		mids: make(map[MidId]Mode),
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// MidCount returns the number of mid-level locks created so far.
func (m *Manager) MidCount() int {
	return m.mids.len()
}

func (m *Manager) lockTop(mode Mode) {
	if mode == Exclusive {
		timedAcquire("top", mode, m.top.TryLock, m.top.Lock)
		return
	}
	timedAcquire("top", mode, m.top.TryRLock, m.top.RLock)
}

func (m *Manager) unlockTop(mode Mode) {
	if mode == Exclusive {
		m.top.Unlock()
		return
	}
	m.top.RUnlock()
}

func lockMid(l *sync.RWMutex, mode Mode) {
	if mode == Exclusive {
		timedAcquire("mid", mode, l.TryLock, l.Lock)
		return
	}
	timedAcquire("mid", mode, l.TryRLock, l.RLock)
}

func unlockMid(l *sync.RWMutex, mode Mode) {
	if mode == Exclusive {
		l.Unlock()
		return
	}
	l.RUnlock()
}

// timedAcquire takes a lock, recording the wait only when it was contended.
func timedAcquire(level string, mode Mode, tryLock func() bool, lock func()) {
	metrics.LockAcquisitionsTotal.WithLabelValues(level, mode.String()).Inc()
	if tryLock() {
		return
	}
	start := time.Now()
	lock()
	metrics.LockWaitDuration.WithLabelValues(level, mode.String()).Observe(time.Since(start).Seconds())
}
