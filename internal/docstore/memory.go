package docstore

import (
	"context"
	"sync"
)

// Doc is a stored document as the memory store keeps it.
type Doc struct {
	Kind string
	Body []byte
}

// MemoryStore is a map-backed Store for tests and local runs. It records
// call counts and can be told to fail specific documents or operations so
// callers' error paths can be exercised.
type MemoryStore struct {
	mu sync.Mutex

	docs      map[string]map[string]Doc
	refreshes map[string]int

	IndexCalls int
	BulkCalls  int

	// FailIDs maps document ids to a failure reason; bulk writes report
	// them as item failures and Index returns an error for them.
	FailIDs    map[string]string
	RefreshErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      map[string]map[string]Doc{},
		refreshes: map[string]int{},
	}
}

func (s *MemoryStore) Index(ctx context.Context, index, kind, id string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IndexCalls++
	if reason, ok := s.FailIDs[id]; ok {
		return errFailed(reason)
	}
	s.put(index, kind, id, body)
	return nil
}

func (s *MemoryStore) Bulk(ctx context.Context, items []BulkItem) ([]ItemFailure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BulkCalls++
	var failures []ItemFailure
	for _, item := range items {
		if reason, ok := s.FailIDs[item.ID]; ok {
			failures = append(failures, ItemFailure{ID: item.ID, Kind: item.Kind, Reason: reason})
			continue
		}
		s.put(item.Index, item.Kind, item.ID, item.Body)
	}
	return failures, nil
}

func (s *MemoryStore) Refresh(ctx context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RefreshErr != nil {
		return s.RefreshErr
	}
	s.refreshes[index]++
	return nil
}

func (s *MemoryStore) put(index, kind, id string, body []byte) {
	byID, ok := s.docs[index]
	if !ok {
		byID = map[string]Doc{}
		s.docs[index] = byID
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	byID[id] = Doc{Kind: kind, Body: cp}
}

// Get returns a stored document by index and id.
func (s *MemoryStore) Get(index, id string) (Doc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[index][id]
	return doc, ok
}

// Count returns the number of documents in an index.
func (s *MemoryStore) Count(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[index])
}

// Refreshes returns how many times an index has been refreshed.
func (s *MemoryStore) Refreshes(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes[index]
}

// IDs returns the document ids present in an index.
func (s *MemoryStore) IDs(index string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs[index]))
	for id := range s.docs[index] {
		out = append(out, id)
	}
	return out
}

type errFailed string

func (e errFailed) Error() string { return string(e) }
