// internal/services/progress_service.go
package services

import (
	"sync"
	"time"
)

// Progress statuses published to subscribers.
const (
	ProgressIdle      = "idle"
	ProgressRunning   = "running"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// ProgressUpdate is one status message for a draft's generation.
type ProgressUpdate struct {
	DraftID  string `json:"draft_id"`
	Progress int    `json:"progress"` // 0-100
	Message  string `json:"message"`
	Status   string `json:"status"`
}

// ProgressTracker follows the generation of one draft. It survives across
// generations so a page can subscribe before pressing Generate.
type ProgressTracker struct {
	DraftID    string
	Progress   int
	Message    string
	Status     string
	StartTime  time.Time
	UpdateTime time.Time

	subscribers map[chan ProgressUpdate]struct{}
	mutex       sync.Mutex
}

// ProgressService owns the trackers.
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// Tracker returns the draft's tracker, creating an idle one when needed.
func (s *ProgressService) Tracker(draftID string) *ProgressTracker {
	s.mutex.RLock()
	tracker, ok := s.trackers[draftID]
	s.mutex.RUnlock()
	if ok {
		return tracker
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if tracker, ok := s.trackers[draftID]; ok {
		return tracker
	}
	now := time.Now()
	tracker = &ProgressTracker{
		DraftID:     draftID,
		Status:      ProgressIdle,
		StartTime:   now,
		UpdateTime:  now,
		subscribers: make(map[chan ProgressUpdate]struct{}),
	}
	s.trackers[draftID] = tracker
	return tracker
}

// Start resets the tracker for a new generation and notifies subscribers.
func (t *ProgressTracker) Start(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Progress = 0
	t.Message = message
	t.Status = ProgressRunning
	t.StartTime = time.Now()
	t.UpdateTime = t.StartTime
	t.broadcast()
}

// UpdateProgress raises the percentage; it never moves backwards.
func (t *ProgressTracker) UpdateProgress(progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if progress > t.Progress {
		t.Progress = progress
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()
	t.broadcast()
}

func (t *ProgressTracker) Complete(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Progress = 100
	t.Message = message
	t.Status = ProgressCompleted
	t.UpdateTime = time.Now()
	t.broadcast()
}

func (t *ProgressTracker) Fail(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Message = message
	t.Status = ProgressFailed
	t.UpdateTime = time.Now()
	t.broadcast()
}

// Snapshot returns the current state.
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.update()
}

func (t *ProgressTracker) update() ProgressUpdate {
	return ProgressUpdate{
		DraftID:  t.DraftID,
		Progress: t.Progress,
		Message:  t.Message,
		Status:   t.Status,
	}
}

// broadcast sends without blocking; slow subscribers miss intermediate updates.
func (t *ProgressTracker) broadcast() {
	u := t.update()
	for ch := range t.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribe returns a channel that first receives the current state.
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	ch := make(chan ProgressUpdate, 10)
	t.subscribers[ch] = struct{}{}
	ch <- t.update()
	return ch
}

// Unsubscribe removes and closes ch.
func (t *ProgressTracker) Unsubscribe(ch chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.subscribers[ch]; ok {
		delete(t.subscribers, ch)
		close(ch)
	}
}

// CleanupFinished drops finished trackers without subscribers older than maxAge.
func (s *ProgressService) CleanupFinished(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	now := time.Now()
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		finished := tracker.Status != ProgressRunning
		idle := len(tracker.subscribers) == 0 && now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()
		if finished && idle {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}
