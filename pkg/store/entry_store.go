package store

import (
	"sort"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// Entry is one pending desktop notification
type Entry struct {
	Identifier string
	AlarmID    string
	Title      string
	Body       string
	FireAt     time.Time

	// Weekly entries fire every week on Weekday at Hour:Minute
	Weekly  bool
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// EntryStore holds pending notification entries
type EntryStore struct {
	mu sync.RWMutex

	// Map of timestamp (minute precision) to identifiers firing in that minute
	// Key format: Unix timestamp rounded to minute
	byTime map[int64][]string

	// Map of identifier to entry for quick lookup
	byID map[string]*Entry
}

// NewEntryStore creates a new EntryStore instance
func NewEntryStore() *EntryStore {
	return &EntryStore{
		byTime: make(map[int64][]string),
		byID:   make(map[string]*Entry),
	}
}

func timeKey(t time.Time) int64 {
	return models.RoundToMinute(t).Unix()
}

// Put adds an entry, replacing any entry with the same identifier
func (s *EntryStore) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(e.Identifier)
	stored := e
	s.byID[e.Identifier] = &stored
	key := timeKey(e.FireAt)
	s.byTime[key] = append(s.byTime[key], e.Identifier)
}

// Update replaces an entry only if its identifier is still stored. Returns
// false, storing nothing, when it was removed in the meantime.
func (s *EntryStore) Update(e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remove(e.Identifier) {
		return false
	}
	stored := e
	s.byID[e.Identifier] = &stored
	key := timeKey(e.FireAt)
	s.byTime[key] = append(s.byTime[key], e.Identifier)
	return true
}

// Remove deletes an entry. Returns false if it was not there.
func (s *EntryStore) Remove(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(identifier)
}

func (s *EntryStore) remove(identifier string) bool {
	e, ok := s.byID[identifier]
	if !ok {
		return false
	}
	delete(s.byID, identifier)

	key := timeKey(e.FireAt)
	ids := s.byTime[key]
	for i, id := range ids {
		if id == identifier {
			s.byTime[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byTime[key]) == 0 {
		delete(s.byTime, key)
	}
	return true
}

// RemoveAll drops every entry
func (s *EntryStore) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTime = make(map[int64][]string)
	s.byID = make(map[string]*Entry)
}

// Get returns an entry by identifier
func (s *EntryStore) Get(identifier string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[identifier]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// DueBefore returns the entries whose fire minute is at or before t's minute,
// oldest first
func (s *EntryStore) DueBefore(t time.Time) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := timeKey(t)
	result := make([]Entry, 0)
	for key, ids := range s.byTime {
		if key > limit {
			continue
		}
		for _, id := range ids {
			result = append(result, *s.byID[id])
		}
	}
	sortEntries(result)
	return result
}

// All returns every entry sorted by fire time
func (s *EntryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, 0, len(s.byID))
	for _, e := range s.byID {
		result = append(result, *e)
	}
	sortEntries(result)
	return result
}

// Len returns the number of entries
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].FireAt.Equal(entries[j].FireAt) {
			return entries[i].FireAt.Before(entries[j].FireAt)
		}
		return entries[i].Identifier < entries[j].Identifier
	})
}
