package firewalld

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// RealCommandRunner executes actual shell commands.
type RealCommandRunner struct{}

// Run executes a command without capturing output.
func (r *RealCommandRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %s failed: %w: %s", name, err, string(out))
	}
	return nil
}

// Output executes a command and returns its output.
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// DefaultCommandRunner is the default command runner.
var DefaultCommandRunner CommandRunner = &RealCommandRunner{}

// CmdClient talks to firewalld through the firewall-cmd binary. The
// reconciliation engine only sees the Client interface, so the transport
// can be swapped without touching it.
type CmdClient struct {
	runner CommandRunner
}

// NewCmdClient creates a firewall-cmd backed client.
func NewCmdClient(runner CommandRunner) *CmdClient {
	if runner == nil {
		runner = DefaultCommandRunner
	}
	return &CmdClient{runner: runner}
}

const firewallCmd = "firewall-cmd"

func (c *CmdClient) Connected() bool {
	return c.runner.Run(firewallCmd, "--state") == nil
}

func (c *CmdClient) DefaultZone() (string, error) {
	out, err := c.runner.Output(firewallCmd, "--get-default-zone")
	if err != nil {
		return "", &DaemonFault{Op: "get-default-zone", Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CmdClient) Zones() ([]string, error) {
	out, err := c.runner.Output(firewallCmd, "--get-zones")
	if err != nil {
		return nil, &DaemonFault{Op: "get-zones", Err: err}
	}
	return strings.Fields(string(out)), nil
}

func (c *CmdClient) PermanentZoneNames() ([]string, error) {
	out, err := c.runner.Output(firewallCmd, "--permanent", "--get-zones")
	if err != nil {
		return nil, &DaemonFault{Op: "permanent get-zones", Err: err}
	}
	return strings.Fields(string(out)), nil
}

func (c *CmdClient) ZoneOfInterface(iface string) (string, error) {
	out, err := c.runner.Output(firewallCmd, "--get-zone-of-interface="+iface)
	if err != nil {
		// firewall-cmd reports an unowned interface with a non-zero exit,
		// which is not a fault of the pass.
		if exitCode(err) == 2 {
			return "", nil
		}
		return "", &DaemonFault{Op: "get-zone-of-interface", Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CmdClient) ChangeZoneOfInterface(zone, iface string) error {
	return c.mutate("change-interface", zone, "--zone="+zone, "--change-interface="+iface)
}

func (c *CmdClient) QueryService(zone, service string) (bool, error) {
	return c.query("query-service", zone, "--zone="+zone, "--query-service="+service)
}

func (c *CmdClient) AddService(zone, service string) error {
	return c.mutate("add-service", zone, "--zone="+zone, "--add-service="+service)
}

func (c *CmdClient) RemoveService(zone, service string) error {
	return c.mutate("remove-service", zone, "--zone="+zone, "--remove-service="+service)
}

func (c *CmdClient) QueryPort(zone, port, protocol string) (bool, error) {
	return c.query("query-port", zone, "--zone="+zone, "--query-port="+port+"/"+protocol)
}

func (c *CmdClient) AddPort(zone, port, protocol string) error {
	return c.mutate("add-port", zone, "--zone="+zone, "--add-port="+port+"/"+protocol)
}

func (c *CmdClient) RemovePort(zone, port, protocol string) error {
	return c.mutate("remove-port", zone, "--zone="+zone, "--remove-port="+port+"/"+protocol)
}

func (c *CmdClient) QueryInterface(zone, iface string) (bool, error) {
	return c.query("query-interface", zone, "--zone="+zone, "--query-interface="+iface)
}

func (c *CmdClient) RemoveInterface(zone, iface string) error {
	return c.mutate("remove-interface", zone, "--zone="+zone, "--remove-interface="+iface)
}

func (c *CmdClient) QueryForwardPort(zone, port, protocol, toPort, toAddr string) (bool, error) {
	arg := forwardPortArg(port, protocol, toPort, toAddr)
	return c.query("query-forward-port", zone, "--zone="+zone, "--query-forward-port="+arg)
}

func (c *CmdClient) AddForwardPort(zone, port, protocol, toPort, toAddr string) error {
	arg := forwardPortArg(port, protocol, toPort, toAddr)
	return c.mutate("add-forward-port", zone, "--zone="+zone, "--add-forward-port="+arg)
}

func (c *CmdClient) RemoveForwardPort(zone, port, protocol, toPort, toAddr string) error {
	arg := forwardPortArg(port, protocol, toPort, toAddr)
	return c.mutate("remove-forward-port", zone, "--zone="+zone, "--remove-forward-port="+arg)
}

// PermanentSettings assembles the zone's permanent projection from the
// daemon's permanent-layer listings.
func (c *CmdClient) PermanentSettings(zone string) (*ZoneSettings, error) {
	s := NewZoneSettings()

	out, err := c.runner.Output(firewallCmd, "--permanent", "--zone="+zone, "--list-services")
	if err != nil {
		return nil, &DaemonFault{Op: "list-services", Zone: zone, Err: err}
	}
	for _, svc := range strings.Fields(string(out)) {
		s.AddService(svc)
	}

	out, err = c.runner.Output(firewallCmd, "--permanent", "--zone="+zone, "--list-ports")
	if err != nil {
		return nil, &DaemonFault{Op: "list-ports", Zone: zone, Err: err}
	}
	for _, pp := range strings.Fields(string(out)) {
		if port, proto, found := strings.Cut(pp, "/"); found {
			s.AddPort(port, proto)
		}
	}

	out, err = c.runner.Output(firewallCmd, "--permanent", "--zone="+zone, "--list-interfaces")
	if err != nil {
		return nil, &DaemonFault{Op: "list-interfaces", Zone: zone, Err: err}
	}
	for _, iface := range strings.Fields(string(out)) {
		s.AddInterface(iface)
	}

	masq, err := c.query("permanent query-masquerade", zone, "--permanent", "--zone="+zone, "--query-masquerade")
	if err != nil {
		return nil, err
	}
	if masq {
		s.AddMasquerade()
	}

	out, err = c.runner.Output(firewallCmd, "--permanent", "--zone="+zone, "--list-forward-ports")
	if err != nil {
		return nil, &DaemonFault{Op: "list-forward-ports", Zone: zone, Err: err}
	}
	for _, line := range strings.Fields(string(out)) {
		if f, ok := parseForwardPortSpec(line); ok {
			s.AddForwardPort(f.Port, f.Protocol, f.ToPort, f.ToAddr)
		}
	}

	return s, nil
}

// CommitSettings persists a mutated settings object by diffing it against
// the daemon's current permanent state and issuing the delta.
func (c *CmdClient) CommitSettings(zone string, settings *ZoneSettings) error {
	current, err := c.PermanentSettings(zone)
	if err != nil {
		return err
	}

	for _, svc := range current.Services() {
		if !settings.QueryService(svc) {
			if err := c.mutate("permanent remove-service", zone, "--permanent", "--zone="+zone, "--remove-service="+svc); err != nil {
				return err
			}
		}
	}
	for _, svc := range settings.Services() {
		if !current.QueryService(svc) {
			if err := c.mutate("permanent add-service", zone, "--permanent", "--zone="+zone, "--add-service="+svc); err != nil {
				return err
			}
		}
	}

	for _, p := range current.Ports() {
		if !settings.QueryPort(p.Port, p.Protocol) {
			if err := c.mutate("permanent remove-port", zone, "--permanent", "--zone="+zone, "--remove-port="+p.Port+"/"+p.Protocol); err != nil {
				return err
			}
		}
	}
	for _, p := range settings.Ports() {
		if !current.QueryPort(p.Port, p.Protocol) {
			if err := c.mutate("permanent add-port", zone, "--permanent", "--zone="+zone, "--add-port="+p.Port+"/"+p.Protocol); err != nil {
				return err
			}
		}
	}

	for _, iface := range current.Interfaces() {
		if !settings.QueryInterface(iface) {
			if err := c.mutate("permanent remove-interface", zone, "--permanent", "--zone="+zone, "--remove-interface="+iface); err != nil {
				return err
			}
		}
	}
	for _, iface := range settings.Interfaces() {
		if !current.QueryInterface(iface) {
			if err := c.mutate("permanent add-interface", zone, "--permanent", "--zone="+zone, "--add-interface="+iface); err != nil {
				return err
			}
		}
	}

	if current.QueryMasquerade() != settings.QueryMasquerade() {
		op, flag := "permanent remove-masquerade", "--remove-masquerade"
		if settings.QueryMasquerade() {
			op, flag = "permanent add-masquerade", "--add-masquerade"
		}
		if err := c.mutate(op, zone, "--permanent", "--zone="+zone, flag); err != nil {
			return err
		}
	}

	for _, f := range current.ForwardPorts() {
		if !settings.QueryForwardPort(f.Port, f.Protocol, f.ToPort, f.ToAddr) {
			arg := forwardPortArg(f.Port, f.Protocol, f.ToPort, f.ToAddr)
			if err := c.mutate("permanent remove-forward-port", zone, "--permanent", "--zone="+zone, "--remove-forward-port="+arg); err != nil {
				return err
			}
		}
	}
	for _, f := range settings.ForwardPorts() {
		if !current.QueryForwardPort(f.Port, f.Protocol, f.ToPort, f.ToAddr) {
			arg := forwardPortArg(f.Port, f.Protocol, f.ToPort, f.ToAddr)
			if err := c.mutate("permanent add-forward-port", zone, "--permanent", "--zone="+zone, "--add-forward-port="+arg); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *CmdClient) mutate(op, zone string, args ...string) error {
	if err := c.runner.Run(firewallCmd, args...); err != nil {
		return &DaemonFault{Op: op, Zone: zone, Err: err}
	}
	return nil
}

// query runs a --query-* call. firewall-cmd answers "no" with exit code 1,
// which is a result, not a fault.
func (c *CmdClient) query(op, zone string, args ...string) (bool, error) {
	err := c.runner.Run(firewallCmd, args...)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, &DaemonFault{Op: op, Zone: zone, Err: err}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// forwardPortArg renders the firewall-cmd forward-port spec, omitting
// unset target fields entirely.
func forwardPortArg(port, protocol, toPort, toAddr string) string {
	arg := "port=" + port + ":proto=" + protocol
	if toPort != "" {
		arg += ":toport=" + toPort
	}
	if toAddr != "" {
		arg += ":toaddr=" + toAddr
	}
	return arg
}

// parseForwardPortSpec parses "port=8080:proto=tcp:toport=9090:toaddr=..."
// listings back into a Forward.
func parseForwardPortSpec(s string) (Forward, bool) {
	var f Forward
	for _, field := range strings.Split(s, ":") {
		key, val, found := strings.Cut(field, "=")
		if !found {
			return Forward{}, false
		}
		switch key {
		case "port":
			f.Port = val
		case "proto":
			f.Protocol = val
		case "toport":
			f.ToPort = val
		case "toaddr":
			f.ToAddr = val
		}
	}
	if f.Port == "" || f.Protocol == "" {
		return Forward{}, false
	}
	return f, true
}
