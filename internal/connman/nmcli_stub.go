//go:build !linux
// +build !linux

package connman

import "errors"

var errUnsupported = errors.New("network manager integration requires linux")

// NMCLIManager is only functional on Linux.
type NMCLIManager struct{}

// NewNMCLIManager returns nil on non-Linux systems, degrading the caller
// to always-skip.
func NewNMCLIManager(runner CommandRunner) *NMCLIManager {
	return nil
}

func (m *NMCLIManager) Available() bool { return false }

func (m *NMCLIManager) ConnectionOfInterface(iface string) (string, error) {
	return "", &Fault{Op: "connection lookup", Iface: iface, Err: errUnsupported}
}

func (m *NMCLIManager) ConnectionZone(conn string) (string, error) {
	return "", &Fault{Op: "zone lookup", Iface: conn, Err: errUnsupported}
}

func (m *NMCLIManager) SetConnectionZone(conn, zone string) error {
	return &Fault{Op: "set zone", Iface: conn, Err: errUnsupported}
}
