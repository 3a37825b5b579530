// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
)

// MockIdentityStore is an in-memory implementation of database.IdentityWriter
// and database.IdentitySearcher. Insert is atomic under the store mutex.
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity
	nextID     int64

	// Dim, when non-zero, rejects descriptors of another length
	Dim int
	// HNSWEnabled toggles IsHNSWEnabled
	HNSWEnabled bool

	// Error injection
	FindError   error
	ListError   error
	CountError  error
	InsertError error
	DeleteError error
	SearchError error

	// Call counters
	FindCalls   int
	ListCalls   int
	InsertCalls int
	SearchCalls int
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.StoredIdentity),
	}
}

// AddIdentity adds an identity directly, bypassing duplicate checks
func (m *MockIdentityStore) AddIdentity(identity database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if identity.ID == 0 {
		identity.ID = m.nextID
	}
	m.identities[identity.Key] = &identity
}

// FindByKey retrieves an identity by key
func (m *MockIdentityStore) FindByKey(ctx context.Context, key string) (*database.StoredIdentity, error) {
	m.mu.Lock()
	m.FindCalls++
	m.mu.Unlock()
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[key]
	if !ok {
		return nil, nil
	}
	out := *identity
	return &out, nil
}

// ListAll returns a copy of all identities ordered by key
func (m *MockIdentityStore) ListAll(ctx context.Context) ([]database.StoredIdentity, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(), nil
}

func (m *MockIdentityStore) snapshot() []database.StoredIdentity {
	out := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		out = append(out, *identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Count returns the number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Insert stores a new identity, failing with database.ErrDuplicateKey on conflict
func (m *MockIdentityStore) Insert(ctx context.Context, identity database.StoredIdentity) (*database.StoredIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return nil, m.InsertError
	}
	if m.Dim > 0 && len(identity.Descriptor) != m.Dim {
		return nil, database.ErrDimensionMismatch
	}
	if _, exists := m.identities[identity.Key]; exists {
		return nil, database.ErrDuplicateKey
	}
	m.nextID++
	identity.ID = m.nextID
	identity.Descriptor = slices.Clone(identity.Descriptor)
	if identity.EnrolledAt.IsZero() {
		identity.EnrolledAt = time.Now()
	}
	m.identities[identity.Key] = &identity
	out := identity
	return &out, nil
}

// Delete removes an identity by key
func (m *MockIdentityStore) Delete(ctx context.Context, key string) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.identities[key]
	delete(m.identities, key)
	return ok, nil
}

// SearchNearest returns the k closest identities by exact distance
func (m *MockIdentityStore) SearchNearest(ctx context.Context, descriptor []float32, k int) ([]database.StoredIdentity, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.mu.Unlock()
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	all := m.snapshot()
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return database.EuclideanDistance(descriptor, all[i].Descriptor) <
			database.EuclideanDistance(descriptor, all[j].Descriptor)
	})
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// IsHNSWEnabled returns the HNSWEnabled field
func (m *MockIdentityStore) IsHNSWEnabled() bool {
	return m.HNSWEnabled
}

// Keys returns all stored keys in order
func (m *MockIdentityStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.identities))
	for k := range m.identities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasKey reports whether a key is stored, ignoring case
func (m *MockIdentityStore) HasKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k := range m.identities {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
