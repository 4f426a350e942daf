// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager hands out one mutex per draft and tracks which drafts have a
// generation in flight.
type LockManager struct {
	draftLocks map[string]*LockInfo
	inFlight   map[string]time.Time
	globalLock sync.Mutex
	lockTTL    time.Duration
	maxLocks   int
}

// LockInfo wraps a draft mutex with usage bookkeeping.
type LockInfo struct {
	Mutex    *sync.Mutex
	LastUsed time.Time
	refs     int
}

// NewLockManager creates an empty manager.
func NewLockManager() *LockManager {
	return &LockManager{
		draftLocks: make(map[string]*LockInfo),
		inFlight:   make(map[string]time.Time),
		lockTTL:    30 * time.Minute,
		maxLocks:   200,
	}
}

func (lm *LockManager) acquire(draftID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, ok := lm.draftLocks[draftID]
	if !ok {
		info = &LockInfo{Mutex: &sync.Mutex{}}
		lm.draftLocks[draftID] = info
		lm.cleanupUnusedLocks()
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.refs--
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
}

// ExecuteWithDraftLock runs fn while holding the draft's mutex.
func (lm *LockManager) ExecuteWithDraftLock(draftID string, fn func() error) error {
	info := lm.acquire(draftID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// TryAcquire marks a generation as in flight for draftID. It returns false
// when one is already running.
func (lm *LockManager) TryAcquire(draftID string) bool {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if _, busy := lm.inFlight[draftID]; busy {
		return false
	}
	lm.inFlight[draftID] = time.Now()
	return true
}

// Release ends the in-flight generation for draftID.
func (lm *LockManager) Release(draftID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	delete(lm.inFlight, draftID)
}

// InFlight reports whether draftID has a generation running.
func (lm *LockManager) InFlight(draftID string) bool {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	_, busy := lm.inFlight[draftID]
	return busy
}

// cleanupUnusedLocks drops idle unreferenced locks once the table grows past
// maxLocks. Callers hold globalLock.
func (lm *LockManager) cleanupUnusedLocks() {
	if len(lm.draftLocks) <= lm.maxLocks {
		return
	}
	now := time.Now()
	for id, info := range lm.draftLocks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.draftLocks, id)
		}
	}
}
