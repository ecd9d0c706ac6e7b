package envstore

import "sync"

// Memory is an in-memory Store for tests. Individual operations can be
// made to fail by seeding FailSet and FailDelete, which lets activation
// tests exercise rollback paths without a real platform store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// Broadcasts counts Broadcast calls.
	Broadcasts int

	// FailSet maps variable names to errors returned from Set.
	FailSet map[string]error

	// FailDelete maps variable names to errors returned from Delete.
	FailDelete map[string]error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[name]
	return v, ok, nil
}

func (m *Memory) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailSet[name]; err != nil {
		return err
	}
	m.values[name] = value
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailDelete[name]; err != nil {
		return err
	}
	delete(m.values, name)
	return nil
}

func (m *Memory) Broadcast() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Broadcasts++
	return nil
}

// Len returns the number of stored variables.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
