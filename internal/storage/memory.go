package storage

import (
	"context"
	"sync"
)

// MemoryProvider keeps every namespace in process memory. Suitable for a
// single console instance; visitors are logged out when it restarts.
//
// A namespace only exists while it holds at least one key, so visitors
// that never sign in cost nothing.
type MemoryProvider struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{namespaces: make(map[string]map[string]string)}
}

func (p *MemoryProvider) Scope(id string) Store {
	return &memoryScope{provider: p, id: id}
}

// Len reports how many namespaces currently hold data
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.namespaces)
}

func (p *MemoryProvider) Close() error {
	return nil
}

// NewMemoryStore returns a standalone namespace, mostly useful in tests.
func NewMemoryStore() Store {
	return NewMemoryProvider().Scope("")
}

type memoryScope struct {
	provider *MemoryProvider
	id       string
}

func (m *memoryScope) Get(_ context.Context, key string) (string, error) {
	p := m.provider
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, ok := p.namespaces[m.id][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryScope) Set(_ context.Context, key, value string) error {
	p := m.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	ns, ok := p.namespaces[m.id]
	if !ok {
		ns = make(map[string]string)
		p.namespaces[m.id] = ns
	}
	ns[key] = value
	return nil
}

func (m *memoryScope) Remove(_ context.Context, key string) error {
	p := m.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	ns, ok := p.namespaces[m.id]
	if !ok {
		return nil
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(p.namespaces, m.id)
	}
	return nil
}

func (m *memoryScope) Clear(_ context.Context) error {
	p := m.provider
	p.mu.Lock()
	delete(p.namespaces, m.id)
	p.mu.Unlock()
	return nil
}
