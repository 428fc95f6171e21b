package firewalld

import (
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests. It tracks runtime and
// permanent state per zone and records every mutating call, so tests can
// assert exactly which daemon operations a reconciliation pass performed.
type FakeClient struct {
	mu sync.Mutex

	connected      bool
	defaultZone    string
	runtimeZones   []string
	permanentZones []string

	runtime    map[string]*zoneRuntime
	ifaceZones map[string]string
	permanent  map[string]*ZoneSettings

	// Ops records mutating runtime calls in order.
	Ops []string
	// Commits records zones committed, in order.
	Commits []string
	// SettingsFetches records zones whose permanent settings were fetched.
	SettingsFetches []string

	// Fail injects a DaemonFault for the named op ("commit:public",
	// "add-service", ...).
	Fail map[string]error
}

type zoneRuntime struct {
	services []string
	ports    []PortProto
	forwards []Forward
}

// NewFakeClient creates a connected fake with the given zones present in
// both layers. The first zone is the default zone.
func NewFakeClient(zones ...string) *FakeClient {
	f := &FakeClient{
		connected:      true,
		runtimeZones:   append([]string(nil), zones...),
		permanentZones: append([]string(nil), zones...),
		runtime:        make(map[string]*zoneRuntime),
		ifaceZones:     make(map[string]string),
		permanent:      make(map[string]*ZoneSettings),
		Fail:           make(map[string]error),
	}
	if len(zones) > 0 {
		f.defaultZone = zones[0]
	}
	for _, z := range zones {
		f.runtime[z] = &zoneRuntime{}
		f.permanent[z] = NewZoneSettings()
	}
	return f
}

// SetZones overrides the per-layer zone enumerations, used to simulate a
// zone existing transiently in one layer only.
func (f *FakeClient) SetZones(runtime, permanent []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runtimeZones = append([]string(nil), runtime...)
	f.permanentZones = append([]string(nil), permanent...)
}

// SetDisconnected marks the fake daemon unreachable.
func (f *FakeClient) SetDisconnected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// SetInterfaceZone seeds the runtime interface ownership map.
func (f *FakeClient) SetInterfaceZone(iface, zone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ifaceZones[iface] = zone
}

// Permanent returns the permanent settings stored for a zone, for test
// assertions. It is the live object, not a copy.
func (f *FakeClient) Permanent(zone string) *ZoneSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permanent[zone]
}

// Runtime helpers for seeding and asserting runtime state.

func (f *FakeClient) SeedRuntimeService(zone, service string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt := f.runtime[zone]
	rt.services = append(rt.services, service)
}

func (f *FakeClient) record(op string) {
	f.Ops = append(f.Ops, op)
}

func (f *FakeClient) failure(op string) error {
	if err, ok := f.Fail[op]; ok {
		return &DaemonFault{Op: op, Err: err}
	}
	return nil
}

func (f *FakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeClient) DefaultZone() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("default-zone"); err != nil {
		return "", err
	}
	return f.defaultZone, nil
}

func (f *FakeClient) Zones() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runtimeZones...), nil
}

func (f *FakeClient) PermanentZoneNames() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.permanentZones...), nil
}

func (f *FakeClient) ZoneOfInterface(iface string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ifaceZones[iface], nil
}

func (f *FakeClient) ChangeZoneOfInterface(zone, iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("change-interface"); err != nil {
		return err
	}
	f.record(fmt.Sprintf("change-interface %s %s", zone, iface))
	f.ifaceZones[iface] = zone
	return nil
}

func (f *FakeClient) QueryService(zone, service string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return contains(f.runtime[zone].services, service), nil
}

func (f *FakeClient) AddService(zone, service string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("add-service"); err != nil {
		return err
	}
	f.record(fmt.Sprintf("add-service %s %s", zone, service))
	rt := f.runtime[zone]
	rt.services = append(rt.services, service)
	return nil
}

func (f *FakeClient) RemoveService(zone, service string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove-service %s %s", zone, service))
	rt := f.runtime[zone]
	rt.services = remove(rt.services, service)
	return nil
}

func (f *FakeClient) QueryPort(zone, port, protocol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.runtime[zone].ports {
		if p.Port == port && p.Protocol == protocol {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeClient) AddPort(zone, port, protocol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("add-port %s %s/%s", zone, port, protocol))
	rt := f.runtime[zone]
	rt.ports = append(rt.ports, PortProto{Port: port, Protocol: protocol})
	return nil
}

func (f *FakeClient) RemovePort(zone, port, protocol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove-port %s %s/%s", zone, port, protocol))
	rt := f.runtime[zone]
	for i, p := range rt.ports {
		if p.Port == port && p.Protocol == protocol {
			rt.ports = append(rt.ports[:i], rt.ports[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeClient) QueryInterface(zone, iface string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ifaceZones[iface] == zone, nil
}

func (f *FakeClient) RemoveInterface(zone, iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove-interface %s %s", zone, iface))
	if f.ifaceZones[iface] == zone {
		delete(f.ifaceZones, iface)
	}
	return nil
}

func (f *FakeClient) QueryForwardPort(zone, port, protocol, toPort, toAddr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fw := range f.runtime[zone].forwards {
		if fw.Port == port && fw.Protocol == protocol && fw.ToPort == toPort && fw.ToAddr == toAddr {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeClient) AddForwardPort(zone, port, protocol, toPort, toAddr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("add-forward-port %s %s/%s->%s:%s", zone, port, protocol, toPort, toAddr))
	rt := f.runtime[zone]
	rt.forwards = append(rt.forwards, Forward{Port: port, Protocol: protocol, ToPort: toPort, ToAddr: toAddr})
	return nil
}

func (f *FakeClient) RemoveForwardPort(zone, port, protocol, toPort, toAddr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("remove-forward-port %s %s/%s->%s:%s", zone, port, protocol, toPort, toAddr))
	rt := f.runtime[zone]
	for i, fw := range rt.forwards {
		if fw.Port == port && fw.Protocol == protocol && fw.ToPort == toPort && fw.ToAddr == toAddr {
			rt.forwards = append(rt.forwards[:i], rt.forwards[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeClient) PermanentSettings(zone string) (*ZoneSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("settings"); err != nil {
		return nil, err
	}
	f.SettingsFetches = append(f.SettingsFetches, zone)
	s, ok := f.permanent[zone]
	if !ok {
		return nil, &DaemonFault{Op: "settings", Zone: zone, Err: fmt.Errorf("no such zone")}
	}
	return s.Clone(), nil
}

func (f *FakeClient) CommitSettings(zone string, settings *ZoneSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.Fail["commit:"+zone]; ok {
		return &DaemonFault{Op: "commit", Zone: zone, Err: err}
	}
	f.Commits = append(f.Commits, zone)
	f.permanent[zone] = settings.Clone()
	return nil
}

var _ Client = (*FakeClient)(nil)
