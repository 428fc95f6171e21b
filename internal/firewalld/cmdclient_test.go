package firewalld

import (
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers firewall-cmd invocations from a canned table and
// records every command line it sees.
type scriptedRunner struct {
	outputs  map[string]string
	failWith map[string]error
	commands []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		outputs:  make(map[string]string),
		failWith: make(map[string]error),
	}
}

func (r *scriptedRunner) key(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

func (r *scriptedRunner) Run(name string, args ...string) error {
	k := r.key(name, args)
	r.commands = append(r.commands, k)
	if err, ok := r.failWith[k]; ok {
		return err
	}
	return nil
}

func (r *scriptedRunner) Output(name string, args ...string) ([]byte, error) {
	k := r.key(name, args)
	r.commands = append(r.commands, k)
	if err, ok := r.failWith[k]; ok {
		return nil, err
	}
	return []byte(r.outputs[k]), nil
}

// realExitError produces a genuine *exec.ExitError with the given code.
func realExitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	require.Error(t, err)
	return fmt.Errorf("command firewall-cmd failed: %w", err)
}

func TestQueryExitCodes(t *testing.T) {
	r := newScriptedRunner()
	c := NewCmdClient(r)

	present, err := c.QueryService("public", "https")
	require.NoError(t, err)
	assert.True(t, present)

	r.failWith["firewall-cmd --zone=public --query-service=https"] = realExitError(t, 1)
	present, err = c.QueryService("public", "https")
	require.NoError(t, err)
	assert.False(t, present)

	r.failWith["firewall-cmd --zone=public --query-service=https"] = realExitError(t, 252)
	_, err = c.QueryService("public", "https")
	var fault *DaemonFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "public", fault.Zone)
}

func TestZoneOfInterfaceUnowned(t *testing.T) {
	r := newScriptedRunner()
	c := NewCmdClient(r)

	r.outputs["firewall-cmd --get-zone-of-interface=eth0"] = "public\n"
	zone, err := c.ZoneOfInterface("eth0")
	require.NoError(t, err)
	assert.Equal(t, "public", zone)

	r.failWith["firewall-cmd --get-zone-of-interface=eth1"] = realExitError(t, 2)
	zone, err = c.ZoneOfInterface("eth1")
	require.NoError(t, err)
	assert.Empty(t, zone)
}

func TestForwardPortArg(t *testing.T) {
	assert.Equal(t, "port=8080:proto=tcp:toport=9090:toaddr=10.0.0.5",
		forwardPortArg("8080", "tcp", "9090", "10.0.0.5"))

	// Unset targets are omitted, not rendered empty
	assert.Equal(t, "port=8080:proto=tcp", forwardPortArg("8080", "tcp", "", ""))
	assert.Equal(t, "port=8080:proto=tcp:toport=9090", forwardPortArg("8080", "tcp", "9090", ""))
}

func TestParseForwardPortSpec(t *testing.T) {
	f, ok := parseForwardPortSpec("port=8080:proto=tcp:toport=9090:toaddr=10.0.0.5")
	require.True(t, ok)
	assert.Equal(t, Forward{Port: "8080", Protocol: "tcp", ToPort: "9090", ToAddr: "10.0.0.5"}, f)

	f, ok = parseForwardPortSpec("port=53:proto=udp")
	require.True(t, ok)
	assert.Equal(t, Forward{Port: "53", Protocol: "udp"}, f)

	_, ok = parseForwardPortSpec("garbage")
	assert.False(t, ok)
}

func TestPermanentSettings(t *testing.T) {
	r := newScriptedRunner()
	c := NewCmdClient(r)

	r.outputs["firewall-cmd --permanent --zone=public --list-services"] = "https dns\n"
	r.outputs["firewall-cmd --permanent --zone=public --list-ports"] = "8081/tcp 161-162/udp\n"
	r.outputs["firewall-cmd --permanent --zone=public --list-interfaces"] = "eth0\n"
	r.outputs["firewall-cmd --permanent --zone=public --list-forward-ports"] = "port=8080:proto=tcp:toport=9090\n"

	s, err := c.PermanentSettings("public")
	require.NoError(t, err)
	assert.True(t, s.QueryService("https"))
	assert.True(t, s.QueryService("dns"))
	assert.True(t, s.QueryPort("161-162", "udp"))
	assert.True(t, s.QueryInterface("eth0"))
	assert.True(t, s.QueryMasquerade()) // query ran with exit 0
	assert.True(t, s.QueryForwardPort("8080", "tcp", "9090", ""))
}

func TestCommitSettingsIssuesDelta(t *testing.T) {
	r := newScriptedRunner()
	c := NewCmdClient(r)

	// Current permanent state: https enabled, masquerade off (exit 1).
	r.outputs["firewall-cmd --permanent --zone=public --list-services"] = "https\n"
	r.failWith["firewall-cmd --permanent --zone=public --query-masquerade"] = realExitError(t, 1)

	desired := NewZoneSettings()
	desired.AddService("dns")
	desired.AddPort("8081", "tcp")
	desired.AddMasquerade()

	require.NoError(t, c.CommitSettings("public", desired))

	joined := strings.Join(r.commands, "\n")
	assert.Contains(t, joined, "--permanent --zone=public --remove-service=https")
	assert.Contains(t, joined, "--permanent --zone=public --add-service=dns")
	assert.Contains(t, joined, "--permanent --zone=public --add-port=8081/tcp")
	assert.Contains(t, joined, "--permanent --zone=public --add-masquerade")
}

func TestConnected(t *testing.T) {
	r := newScriptedRunner()
	c := NewCmdClient(r)
	assert.True(t, c.Connected())

	r.failWith["firewall-cmd --state"] = realExitError(t, 252)
	assert.False(t, c.Connected())
}

func TestDaemonFaultMessage(t *testing.T) {
	err := &DaemonFault{Op: "add-service", Zone: "public", Err: fmt.Errorf("boom")}
	assert.Contains(t, err.Error(), "add-service")
	assert.Contains(t, err.Error(), `"public"`)

	err = &DaemonFault{Op: "get-zones", Err: fmt.Errorf("boom")}
	assert.NotContains(t, err.Error(), "for zone")
}
