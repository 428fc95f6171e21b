package firewalld

import (
	"fmt"
	"sort"
	"strings"
)

// PortProto identifies a port rule.
type PortProto struct {
	Port     string
	Protocol string
}

// Forward identifies a forward-port rule. ToPort and ToAddr may be empty,
// meaning unset; unset and present-but-empty are distinct to the daemon,
// so the zero value here always means unset.
type Forward struct {
	Port     string
	Protocol string
	ToPort   string
	ToAddr   string
}

// ZoneSettings is the permanent-layer projection of one zone: a plain
// in-memory settings object, fetched as a whole, mutated in memory and
// committed back as a whole. It performs no I/O itself.
type ZoneSettings struct {
	services   []string
	ports      []PortProto
	interfaces []string
	masquerade bool
	forwards   []Forward
}

// NewZoneSettings returns an empty settings object.
func NewZoneSettings() *ZoneSettings {
	return &ZoneSettings{}
}

func (s *ZoneSettings) QueryService(name string) bool {
	return contains(s.services, name)
}

func (s *ZoneSettings) AddService(name string) {
	if !contains(s.services, name) {
		s.services = append(s.services, name)
	}
}

func (s *ZoneSettings) RemoveService(name string) {
	s.services = remove(s.services, name)
}

func (s *ZoneSettings) QueryPort(port, protocol string) bool {
	for _, p := range s.ports {
		if p.Port == port && p.Protocol == protocol {
			return true
		}
	}
	return false
}

func (s *ZoneSettings) AddPort(port, protocol string) {
	if !s.QueryPort(port, protocol) {
		s.ports = append(s.ports, PortProto{Port: port, Protocol: protocol})
	}
}

func (s *ZoneSettings) RemovePort(port, protocol string) {
	for i, p := range s.ports {
		if p.Port == port && p.Protocol == protocol {
			s.ports = append(s.ports[:i], s.ports[i+1:]...)
			return
		}
	}
}

func (s *ZoneSettings) QueryInterface(iface string) bool {
	return contains(s.interfaces, iface)
}

func (s *ZoneSettings) AddInterface(iface string) {
	if !contains(s.interfaces, iface) {
		s.interfaces = append(s.interfaces, iface)
	}
}

func (s *ZoneSettings) RemoveInterface(iface string) {
	s.interfaces = remove(s.interfaces, iface)
}

func (s *ZoneSettings) QueryMasquerade() bool {
	return s.masquerade
}

func (s *ZoneSettings) AddMasquerade() {
	s.masquerade = true
}

func (s *ZoneSettings) RemoveMasquerade() {
	s.masquerade = false
}

func (s *ZoneSettings) QueryForwardPort(port, protocol, toPort, toAddr string) bool {
	for _, f := range s.forwards {
		if f.Port == port && f.Protocol == protocol && f.ToPort == toPort && f.ToAddr == toAddr {
			return true
		}
	}
	return false
}

func (s *ZoneSettings) AddForwardPort(port, protocol, toPort, toAddr string) {
	if !s.QueryForwardPort(port, protocol, toPort, toAddr) {
		s.forwards = append(s.forwards, Forward{
			Port: port, Protocol: protocol, ToPort: toPort, ToAddr: toAddr,
		})
	}
}

func (s *ZoneSettings) RemoveForwardPort(port, protocol, toPort, toAddr string) {
	for i, f := range s.forwards {
		if f.Port == port && f.Protocol == protocol && f.ToPort == toPort && f.ToAddr == toAddr {
			s.forwards = append(s.forwards[:i], s.forwards[i+1:]...)
			return
		}
	}
}

// Services returns a copy of the service list.
func (s *ZoneSettings) Services() []string {
	return append([]string(nil), s.services...)
}

// Ports returns a copy of the port list.
func (s *ZoneSettings) Ports() []PortProto {
	return append([]PortProto(nil), s.ports...)
}

// Interfaces returns a copy of the interface list.
func (s *ZoneSettings) Interfaces() []string {
	return append([]string(nil), s.interfaces...)
}

// ForwardPorts returns a copy of the forward-port list.
func (s *ZoneSettings) ForwardPorts() []Forward {
	return append([]Forward(nil), s.forwards...)
}

// Clone returns a deep copy, used to keep a baseline for diffing and
// delta commits.
func (s *ZoneSettings) Clone() *ZoneSettings {
	return &ZoneSettings{
		services:   append([]string(nil), s.services...),
		ports:      append([]PortProto(nil), s.ports...),
		interfaces: append([]string(nil), s.interfaces...),
		masquerade: s.masquerade,
		forwards:   append([]Forward(nil), s.forwards...),
	}
}

// Render returns a stable textual listing of the settings, one entry per
// line, suitable for unified diffs in check mode.
func (s *ZoneSettings) Render() string {
	var lines []string
	for _, svc := range s.services {
		lines = append(lines, "service "+svc)
	}
	for _, p := range s.ports {
		lines = append(lines, fmt.Sprintf("port %s/%s", p.Port, p.Protocol))
	}
	for _, iface := range s.interfaces {
		lines = append(lines, "interface "+iface)
	}
	if s.masquerade {
		lines = append(lines, "masquerade yes")
	}
	for _, f := range s.forwards {
		line := fmt.Sprintf("forward-port %s/%s", f.Port, f.Protocol)
		if f.ToPort != "" {
			line += " to-port " + f.ToPort
		}
		if f.ToAddr != "" {
			line += " to-addr " + f.ToAddr
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	for i, item := range list {
		if item == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
