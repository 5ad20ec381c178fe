package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu        sync.RWMutex
	suppliers map[string]Supplier
	snaps     map[string]PriceSnapshot
	settings  map[string]string
	jobs      map[string]ScheduledJob
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		suppliers: make(map[string]Supplier),
		snaps:     make(map[string]PriceSnapshot),
		settings:  make(map[string]string),
		jobs:      make(map[string]ScheduledJob),
	}
}

// NewMemoryWithSuppliers returns a MemoryStorage preloaded with list.
func NewMemoryWithSuppliers(list []Supplier) *MemoryStorage {
	m := NewMemory()
	for _, s := range list {
		m.suppliers[s.Key] = s
	}
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStorage) UpsertSupplier(ctx context.Context, s Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[s.Key] = s
	return nil
}

func (m *MemoryStorage) GetPriceSnapshot(ctx context.Context, supplier string) (*PriceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[supplier]
	if !ok {
		return nil, nil
	}
	s.Payload = append([]byte(nil), s.Payload...)
	return &s, nil
}

func (m *MemoryStorage) SavePriceSnapshot(ctx context.Context, snap PriceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	m.snaps[snap.Supplier] = snap
	return nil
}

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = newScheduledJob(name, started, dur, success, errMsg)
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func newScheduledJob(name string, started time.Time, dur time.Duration, success bool, errMsg string) ScheduledJob {
	status := 0
	if success {
		status = 1
	}
	return ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
}
