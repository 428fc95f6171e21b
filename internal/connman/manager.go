// Package connman integrates with the host's network connection manager
// so an interface's zone can be reassigned through the connection that
// owns it, bypassing the firewall daemon's own interface tracking.
//
// The integration is strictly best-effort: every failure is reported as
// "not applicable" by the caller, never as a fatal error.
package connman

import "fmt"

// Manager is the connection-manager capability. A nil Manager means the
// subsystem is absent and the fast path is always skipped.
type Manager interface {
	// Available reports whether the connection manager is installed and
	// running.
	Available() bool

	// ConnectionOfInterface returns the identifier of the active
	// connection owning the interface, or an error if none does.
	ConnectionOfInterface(iface string) (string, error)

	// ConnectionZone returns the firewall zone attribute of a connection.
	// Empty means the connection uses the default zone.
	ConnectionZone(conn string) (string, error)

	// SetConnectionZone sets the firewall zone attribute of a connection.
	// An empty zone reverts the connection to the default zone. The
	// connection manager owns persistence of this attribute.
	SetConnectionZone(conn, zone string) error
}

// Fault reports a lookup or set failure. Callers swallow it and fall back
// to the daemon path.
type Fault struct {
	Op    string
	Iface string
	Err   error
}

func (e *Fault) Error() string {
	return fmt.Sprintf("connection manager %s failed for %q: %v", e.Op, e.Iface, e.Err)
}

func (e *Fault) Unwrap() error { return e.Err }

// CommandRunner abstracts nmcli execution.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}
