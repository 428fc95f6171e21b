package connman

import (
	"fmt"
	"sync"
)

// FakeManager is an in-memory Manager for tests. It records zone
// assignments so tests can assert what the fast path did.
type FakeManager struct {
	mu sync.Mutex

	available   bool
	connections map[string]string // interface -> connection name

	// Zones holds connection -> zone. ConnectionZone reads it and
	// SetConnectionZone writes it, so tests can seed a starting zone.
	Zones map[string]string
	// SetCalls counts SetConnectionZone invocations.
	SetCalls int

	// FailLookup, FailZone and FailSet inject faults.
	FailLookup bool
	FailZone   bool
	FailSet    bool
}

// NewFakeManager creates an available fake with the given
// interface -> connection mapping.
func NewFakeManager(connections map[string]string) *FakeManager {
	if connections == nil {
		connections = make(map[string]string)
	}
	return &FakeManager{
		available:   true,
		connections: connections,
		Zones:       make(map[string]string),
	}
}

// SetAvailable toggles subsystem availability.
func (m *FakeManager) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

func (m *FakeManager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *FakeManager) ConnectionOfInterface(iface string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLookup {
		return "", &Fault{Op: "connection lookup", Iface: iface, Err: fmt.Errorf("injected")}
	}
	conn, ok := m.connections[iface]
	if !ok {
		return "", &Fault{Op: "connection lookup", Iface: iface, Err: fmt.Errorf("no active connection")}
	}
	return conn, nil
}

func (m *FakeManager) ConnectionZone(conn string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailZone {
		return "", &Fault{Op: "zone lookup", Iface: conn, Err: fmt.Errorf("injected")}
	}
	return m.Zones[conn], nil
}

func (m *FakeManager) SetConnectionZone(conn, zone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet {
		return &Fault{Op: "set zone", Iface: conn, Err: fmt.Errorf("injected")}
	}
	m.SetCalls++
	m.Zones[conn] = zone
	return nil
}

var _ Manager = (*FakeManager)(nil)
