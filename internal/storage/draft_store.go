// internal/storage/draft_store.go
package storage

import (
	"errors"
	"strings"
	"sync"

	"github.com/Corphon/DLLArchitect/internal/models"
)

const draftsDir = "drafts"

// ErrDraftNotFound is returned for unknown draft IDs.
var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps drafts in memory and mirrors them to drafts/<id>.json.
// A nil FileStorage makes it memory-only.
type DraftStore struct {
	files *FileStorage

	mu     sync.RWMutex
	drafts map[string]*models.Draft
}

// NewDraftStore loads persisted drafts from files.
func NewDraftStore(files *FileStorage) (*DraftStore, error) {
	s := &DraftStore{
		files:  files,
		drafts: make(map[string]*models.Draft),
	}
	if files == nil {
		return s, nil
	}

	names, err := files.ListFiles(draftsDir, ".json")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		var d models.Draft
		if err := files.LoadJSONFile(draftsDir, name, &d); err != nil {
			return nil, err
		}
		// an interrupted generation cannot resume after a restart
		if d.Status == models.DraftGenerating {
			d.Status = models.DraftEditing
		}
		s.drafts[d.ID] = &d
	}
	return s, nil
}

// Get returns a copy of the draft.
func (s *DraftStore) Get(id string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	cp := *d
	return &cp, nil
}

// Save stores a copy of d and writes it through to disk.
func (s *DraftStore) Save(d *models.Draft) error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("draft id is empty")
	}
	cp := *d

	s.mu.Lock()
	s.drafts[d.ID] = &cp
	s.mu.Unlock()

	if s.files == nil {
		return nil
	}
	return s.files.SaveJSONFile(draftsDir, d.ID+".json", &cp)
}

// Delete removes a draft.
func (s *DraftStore) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.drafts[id]
	delete(s.drafts, id)
	s.mu.Unlock()
	if !ok {
		return ErrDraftNotFound
	}
	if s.files == nil {
		return nil
	}
	return s.files.DeleteFile(draftsDir, id+".json")
}

// Count returns the number of drafts held.
func (s *DraftStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
