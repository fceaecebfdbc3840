package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/pkg/metrics"
)

const (
	backendMemory                = "memory"
	defaultMetricsUpdateInterval = 5 * time.Second
)

// MemoryStore is a mutex-guarded, in-memory Store. Entries are deep-copied
// on the way in and out so callers never share pointer fields with it.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.MonthlyEntry
	slots   map[string]string // employee/client/month -> entry id
	clients map[string]model.Client

	metricsUpdateInterval time.Duration
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
}

// NewMemoryStore creates an empty store and starts its gauge updater.
// The updater stops when ctx is cancelled or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries:               make(map[string]model.MonthlyEntry),
		slots:                 make(map[string]string),
		clients:               make(map[string]model.Client),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, _ := s.CountEntries(ctx)
			metrics.UpdateRepositoryEntries(n)
		}
	}
}

// Close stops the background updater.
func (s *MemoryStore) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func observe(backend, op string, start time.Time) {
	metrics.RecordRepositoryLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}

// CreateEntry implements EntryRepository.
func (s *MemoryStore) CreateEntry(_ context.Context, e model.MonthlyEntry) error {
	defer observe(backendMemory, "create_entry", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.slots[e.Key()]; taken {
		return ErrDuplicateEntry
	}
	if _, taken := s.entries[e.ID]; taken {
		return ErrDuplicateEntry
	}
	s.entries[e.ID] = e.Clone()
	s.slots[e.Key()] = e.ID
	return nil
}

// GetEntry implements EntryRepository.
func (s *MemoryStore) GetEntry(_ context.Context, id string) (model.MonthlyEntry, error) {
	defer observe(backendMemory, "get_entry", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.MonthlyEntry{}, ErrNotFound
	}
	return e.Clone(), nil
}

// ListEntries implements EntryRepository.
func (s *MemoryStore) ListEntries(_ context.Context, f EntryFilter) ([]model.MonthlyEntry, error) {
	defer observe(backendMemory, "list_entries", time.Now())
	if f.Limit < 0 || f.Offset < 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]model.MonthlyEntry, 0)
	for _, e := range s.entries {
		if matches(e, f) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sortEntries(out)
	if f.Offset >= len(out) {
		return []model.MonthlyEntry{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(e model.MonthlyEntry, f EntryFilter) bool {
	switch {
	case f.EmployeeID != "" && e.EmployeeID != f.EmployeeID:
		return false
	case f.ClientID != "" && e.ClientID != f.ClientID:
		return false
	case f.Month != "" && e.Month != f.Month:
		return false
	case f.FromMonth != "" && e.Month < f.FromMonth:
		return false
	case f.ToMonth != "" && e.Month > f.ToMonth:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	}
	return true
}

// sortEntries orders by month desc, then created_at desc, then id asc.
func sortEntries(entries []model.MonthlyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// FindPriorEntries implements EntryRepository.
func (s *MemoryStore) FindPriorEntries(_ context.Context, employeeID, clientID, beforeMonth string, limit int) ([]model.MonthlyEntry, error) {
	defer observe(backendMemory, "find_prior_entries", time.Now())
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	var out []model.MonthlyEntry
	for _, e := range s.entries {
		if e.EmployeeID == employeeID && e.ClientID == clientID && e.Month < beforeMonth {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sortEntries(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateEntry implements EntryRepository. The status comparison and the
// write happen under one lock.
func (s *MemoryStore) UpdateEntry(_ context.Context, e model.MonthlyEntry, expected model.Status) error {
	defer observe(backendMemory, "update_entry", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expected {
		metrics.RecordErrorByComponent("repository", "status_conflict")
		return ErrStatusConflict
	}
	// identity is immutable; the mentor score is owned by SetMentorScore
	e.EmployeeID, e.ClientID, e.Month, e.CreatedAt = cur.EmployeeID, cur.ClientID, cur.Month, cur.CreatedAt
	e.MentorScore = cur.MentorScore
	s.entries[e.ID] = e.Clone()
	return nil
}

// SetMentorScore implements EntryRepository.
func (s *MemoryStore) SetMentorScore(_ context.Context, id string, score float64, at time.Time) (model.MonthlyEntry, error) {
	defer observe(backendMemory, "set_mentor_score", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return model.MonthlyEntry{}, ErrNotFound
	}
	e.MentorScore = model.Float(score)
	e.UpdatedAt = at
	s.entries[id] = e
	return e.Clone(), nil
}

// CountEntries implements EntryRepository.
func (s *MemoryStore) CountEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// CreateClient implements ClientRepository.
func (s *MemoryStore) CreateClient(_ context.Context, c model.Client) error {
	defer observe(backendMemory, "create_client", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.clients[c.ID]; taken {
		return ErrDuplicateClient
	}
	s.clients[c.ID] = c
	return nil
}

// GetClient implements ClientRepository.
func (s *MemoryStore) GetClient(_ context.Context, id string) (model.Client, error) {
	defer observe(backendMemory, "get_client", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return model.Client{}, ErrNotFound
	}
	return c, nil
}

// ListClients implements ClientRepository.
func (s *MemoryStore) ListClients(_ context.Context) ([]model.Client, error) {
	s.mu.RLock()
	out := make([]model.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
