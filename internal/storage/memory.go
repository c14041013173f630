package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/funnyzak/reqloop/pkg/request"
)

// MemoryStore keeps recent runs in-memory using a ring buffer.
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	items   []*request.RunRecord
	outputs []*request.SavedOutput
}

// NewMemoryStore creates a MemoryStore holding at most max runs.
func NewMemoryStore(max int) *MemoryStore {
	if max < 1 {
		max = 1
	}

	return &MemoryStore{
		max:   max,
		items: make([]*request.RunRecord, 0, max),
	}
}

// RecordRun stores a run and returns it.
func (s *MemoryStore) RecordRun(data *request.RunRecord) (*request.RunRecord, error) {
	if data == nil {
		return nil, errNilRecord
	}
	if strings.TrimSpace(data.ID) == "" {
		data.ID = uuid.NewString()
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) >= s.max {
		// Drop oldest
		s.items = append(s.items[1:], data)
	} else {
		s.items = append(s.items, data)
	}

	return data, nil
}

// ListRuns returns filtered runs (newest first) along with the total count.
func (s *MemoryStore) ListRuns(opts ListOptions) ([]*request.RunRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := s.filter(opts)
	total := len(filtered)

	limit := opts.Limit
	if limit <= 0 || limit > total {
		limit = total
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return filtered[offset:end], total, nil
}

// IterateRuns walks filtered runs newest first until fn returns false.
func (s *MemoryStore) IterateRuns(opts ListOptions, fn func(*request.RunRecord) bool) error {
	s.mu.RLock()
	filtered := s.filter(opts)
	s.mu.RUnlock()

	for _, item := range filtered {
		if !fn(item) {
			break
		}
	}
	return nil
}

// GetRun locates a run by id, returning nil when absent.
func (s *MemoryStore) GetRun(id string) (*request.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].ID == id {
			return s.items[i], nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) RecordOutput(data *request.SavedOutput) error {
	if data == nil {
		return errNilRecord
	}
	if strings.TrimSpace(data.ID) == "" {
		data.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outputs) >= s.max {
		s.outputs = append(s.outputs[1:], data)
	} else {
		s.outputs = append(s.outputs, data)
	}
	return nil
}

func (s *MemoryStore) ListOutputs(sessionID string) ([]*request.SavedOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*request.SavedOutput
	for i := len(s.outputs) - 1; i >= 0; i-- {
		if s.outputs[i].SessionID == sessionID {
			result = append(result, s.outputs[i])
		}
	}
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) filter(opts ListOptions) []*request.RunRecord {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	label := strings.ToLower(strings.TrimSpace(opts.Label))
	session := strings.TrimSpace(opts.Session)
	loopID := strings.TrimSpace(opts.LoopID)

	filtered := make([]*request.RunRecord, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		item := s.items[i]

		if session != "" && item.SessionID != session {
			continue
		}
		if loopID != "" && item.LoopID != loopID {
			continue
		}
		if label != "" && strings.ToLower(item.Label) != label {
			continue
		}
		if method != "" && strings.ToUpper(item.Method) != method {
			continue
		}
		if search != "" && !matchesSearch(item, search) {
			continue
		}

		filtered = append(filtered, item)
	}
	return filtered
}

func matchesSearch(item *request.RunRecord, term string) bool {
	target := strings.ToLower(
		item.Command + " " +
			item.URL + " " +
			item.Overrides + " " +
			item.Output,
	)
	return strings.Contains(target, term)
}
