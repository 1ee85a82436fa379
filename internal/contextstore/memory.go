package contextstore

import (
	"context"
	"sync"
	"time"

	"lakefence/internal/domain"
)

// MemoryStore is a mutex-guarded in-process map from session key to tenant.
// It is the fallback broker for execution paths without engine-native
// session storage, and the workhorse for unit-testing the executor's
// clear/set/clear discipline. It cannot back a DuckDB view (no
// ViewPredicate), so the server never selects it for the SQL path.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.SessionKey]domain.TenantRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.SessionKey]domain.TenantRecord)}
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Lister = (*MemoryStore)(nil)
	_ Purger = (*MemoryStore)(nil)
)

// Set installs the tenant record, overwriting any existing record for the key.
func (s *MemoryStore) Set(_ context.Context, sess Session, tenant domain.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sess.Key()] = domain.TenantRecord{
		SessionKey: sess.Key(),
		TenantID:   tenant,
		CreatedAt:  time.Now(),
	}
	return nil
}

// Lookup returns the tenant installed for the session, if any.
func (s *MemoryStore) Lookup(_ context.Context, sess Session) (domain.TenantID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sess.Key()]
	if !ok {
		return "", false, nil
	}
	return rec.TenantID, true, nil
}

// Clear removes the session's record; absent keys are a no-op.
func (s *MemoryStore) Clear(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sess.Key())
	return nil
}

// Active lists all current tenant records.
func (s *MemoryStore) Active(_ context.Context) ([]domain.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.TenantRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	return records, nil
}

// PurgeOlderThan removes records older than age.
func (s *MemoryStore) PurgeOlderThan(_ context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}
