package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/floe/internal/rules"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadHCLFile(t *testing.T) {
	path := writeTemp(t, "floe.hcl", `
zone  = "public"
state = "enabled"

service      = ["https", "dns"]
port         = ["8081/tcp"]
trust        = ["eth1"]
masquerade   = ["eth2"]
forward_port = ["eth0;8080/tcp;9090;10.0.0.5"]
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Zone)
	assert.Equal(t, []string{"https", "dns"}, cfg.Services)

	ds, err := cfg.DesiredState()
	require.NoError(t, err)
	assert.Equal(t, rules.Enabled, ds.State)
	assert.Len(t, ds.Services, 2)
	require.Len(t, ds.ForwardPorts, 1)
	assert.Equal(t, "eth0", ds.ForwardPorts[0].Interface)
	assert.Equal(t, "9090", ds.ForwardPorts[0].ToPort)
}

func TestLoadJSONFile(t *testing.T) {
	path := writeTemp(t, "floe.json", `{
  "zone": "dmz",
  "state": "disabled",
  "port": ["443/tcp"]
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	ds, err := cfg.DesiredState()
	require.NoError(t, err)
	assert.Equal(t, "dmz", ds.Zone)
	assert.Equal(t, rules.Disabled, ds.State)
	require.Len(t, ds.Ports, 1)
	assert.Equal(t, "443", ds.Ports[0].Port)
	assert.Equal(t, "tcp", ds.Ports[0].Protocol)
}

func TestUnknownExtensionFallsBackToJSON(t *testing.T) {
	path := writeTemp(t, "floe.conf", `{"zone": "home"}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Zone)
}

func TestStateDefaultsToEnabled(t *testing.T) {
	cfg, err := LoadJSON([]byte(`{"service": ["ssh"]}`))
	require.NoError(t, err)

	ds, err := cfg.DesiredState()
	require.NoError(t, err)
	assert.Equal(t, rules.Enabled, ds.State)
}

func TestMalformedRulePropagates(t *testing.T) {
	cfg, err := LoadJSON([]byte(`{"port": ["80"]}`))
	require.NoError(t, err, "decoding succeeds; normalization catches it")

	_, err = cfg.DesiredState()
	var malformed *rules.MalformedRuleError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "80", malformed.Input)
}

func TestInvalidState(t *testing.T) {
	cfg, err := LoadJSON([]byte(`{"state": "maybe"}`))
	require.NoError(t, err)

	_, err = cfg.DesiredState()
	assert.Error(t, err)
}

func TestHCLParseError(t *testing.T) {
	_, err := LoadHCL([]byte(`zone = `), "broken.hcl")
	assert.Error(t, err)
}

func TestGenerateHCLRoundTrip(t *testing.T) {
	cfg := &Config{
		Zone:     "public",
		State:    "enabled",
		Services: []string{"https"},
		Ports:    []string{"8081/tcp"},
	}

	out := GenerateHCL(cfg)
	assert.Contains(t, string(out), `zone = "public"`)

	back, err := LoadHCL(out, "generated.hcl")
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestGenerateHCLOmitsUnset(t *testing.T) {
	out := string(GenerateHCL(&Config{Zone: "public"}))
	assert.NotContains(t, out, "service")
	assert.NotContains(t, out, "state")
}
