// Package kvtest provides an in-memory kv.Repository with fault injection
// for tests.
package kvtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/fieldreport/internal/common"
)

// Memory is a map-backed kv.Repository. It does not implement kv.Transactor,
// so callers exercise their non-transactional write order against it.
//
// FailGet/FailSet/FailDelete, when set, are consulted before every call; a
// non-nil result is returned wrapped in common.ErrPersistence.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	FailGet    func(key string) error
	FailSet    func(key string) error
	FailDelete func(key string) error

	Deletes map[string]int
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}, Deletes: map[string]int{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		if err := m.FailGet(key); err != nil {
			return nil, fmt.Errorf("get %s: %w: %w", key, common.ErrPersistence, err)
		}
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		if err := m.FailSet(key); err != nil {
			return fmt.Errorf("set %s: %w: %w", key, common.ErrPersistence, err)
		}
	}
	m.data[key] = append([]byte{}, value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		if err := m.FailDelete(key); err != nil {
			return fmt.Errorf("delete %s: %w: %w", key, common.ErrPersistence, err)
		}
	}
	m.Deletes[key]++
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Raw returns the stored bytes without fault injection.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores bytes without fault injection.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte{}, value...)
}
