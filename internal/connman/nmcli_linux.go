//go:build linux
// +build linux

package connman

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/vishvananda/netlink"
)

// NMCLIManager drives NetworkManager through nmcli.
type NMCLIManager struct {
	runner CommandRunner
}

// NewNMCLIManager creates a NetworkManager integration, or nil if nmcli
// is not installed, which degrades the caller to always-skip.
func NewNMCLIManager(runner CommandRunner) *NMCLIManager {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil
	}
	if runner == nil {
		runner = &execRunner{}
	}
	return &NMCLIManager{runner: runner}
}

func (m *NMCLIManager) Available() bool {
	out, err := m.runner.Output("nmcli", "-t", "-f", "RUNNING", "general")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "running"
}

// ConnectionOfInterface resolves the active connection owning iface. The
// link is checked via netlink first so a typoed interface name fails the
// lookup instead of producing a confusing nmcli error.
func (m *NMCLIManager) ConnectionOfInterface(iface string) (string, error) {
	if _, err := netlink.LinkByName(iface); err != nil {
		return "", &Fault{Op: "link lookup", Iface: iface, Err: err}
	}

	out, err := m.runner.Output("nmcli", "-t", "-f", "NAME,DEVICE", "connection", "show", "--active")
	if err != nil {
		return "", &Fault{Op: "connection lookup", Iface: iface, Err: err}
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		name, device, found := strings.Cut(line, ":")
		if found && device == iface && name != "" {
			return name, nil
		}
	}
	return "", &Fault{Op: "connection lookup", Iface: iface, Err: fmt.Errorf("no active connection")}
}

// ConnectionZone reads the connection's firewall zone attribute. nmcli
// prints "--" for an unset attribute, which normalizes to empty.
func (m *NMCLIManager) ConnectionZone(conn string) (string, error) {
	out, err := m.runner.Output("nmcli", "-g", "connection.zone", "connection", "show", conn)
	if err != nil {
		return "", &Fault{Op: "zone lookup", Iface: conn, Err: err}
	}
	zone := strings.TrimSpace(string(out))
	if zone == "--" {
		zone = ""
	}
	return zone, nil
}

func (m *NMCLIManager) SetConnectionZone(conn, zone string) error {
	if err := m.runner.Run("nmcli", "connection", "modify", conn, "connection.zone", zone); err != nil {
		return &Fault{Op: "set zone", Iface: conn, Err: err}
	}
	// Re-activate so the zone change takes effect on the live connection.
	if err := m.runner.Run("nmcli", "connection", "up", conn); err != nil {
		return &Fault{Op: "activate", Iface: conn, Err: err}
	}
	return nil
}

type execRunner struct{}

func (r *execRunner) Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %s failed: %w: %s", name, err, string(out))
	}
	return nil
}

func (r *execRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}
