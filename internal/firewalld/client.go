// Package firewalld defines the capability interface the reconciliation
// engine uses to talk to the firewall control daemon, plus the in-memory
// permanent settings projection it edits and commits.
//
// The daemon exposes two parallel layers: the runtime layer (rules active
// in the kernel right now, mutated by immediate add/remove calls) and the
// permanent layer (persisted rules, edited by fetching a zone's settings
// object, mutating it in memory and committing it back as a whole).
package firewalld

import "fmt"

// Client is the daemon capability consumed by the engine. Implementations
// must translate every daemon-side fault into a *DaemonFault.
type Client interface {
	// Connected reports whether the daemon is reachable.
	Connected() bool

	// DefaultZone returns the daemon's configured default zone.
	DefaultZone() (string, error)

	// Zones enumerates zone names known to the runtime layer.
	Zones() ([]string, error)

	// PermanentZoneNames enumerates zone names known to the permanent layer.
	// A zone can exist transiently in one layer without the other.
	PermanentZoneNames() ([]string, error)

	// ZoneOfInterface returns the runtime zone owning an interface, or ""
	// if the interface is unowned.
	ZoneOfInterface(iface string) (string, error)

	// ChangeZoneOfInterface moves an interface into a zone in the runtime
	// layer. An interface has exactly one runtime zone membership, so this
	// substitutes for add.
	ChangeZoneOfInterface(zone, iface string) error

	// Runtime-layer query/add/remove per rule kind.
	QueryService(zone, service string) (bool, error)
	AddService(zone, service string) error
	RemoveService(zone, service string) error

	QueryPort(zone, port, protocol string) (bool, error)
	AddPort(zone, port, protocol string) error
	RemovePort(zone, port, protocol string) error

	QueryInterface(zone, iface string) (bool, error)
	RemoveInterface(zone, iface string) error

	QueryForwardPort(zone, port, protocol, toPort, toAddr string) (bool, error)
	AddForwardPort(zone, port, protocol, toPort, toAddr string) error
	RemoveForwardPort(zone, port, protocol, toPort, toAddr string) error

	// PermanentSettings fetches a zone's permanent settings object.
	PermanentSettings(zone string) (*ZoneSettings, error)

	// CommitSettings persists a mutated settings object back to the daemon.
	CommitSettings(zone string, settings *ZoneSettings) error
}

// DaemonFault wraps any failure reported by the daemon. It is always
// fatal to the reconciliation pass.
type DaemonFault struct {
	Op   string
	Zone string
	Err  error
}

func (e *DaemonFault) Error() string {
	if e.Zone != "" {
		return fmt.Sprintf("firewalld %s failed for zone %q: %v", e.Op, e.Zone, e.Err)
	}
	return fmt.Sprintf("firewalld %s failed: %v", e.Op, e.Err)
}

func (e *DaemonFault) Unwrap() error { return e.Err }

// CommandRunner abstracts shell command execution for the firewall-cmd
// backed client.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}
