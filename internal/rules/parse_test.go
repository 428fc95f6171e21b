package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		port    string
		proto   string
		wantErr bool
	}{
		{"80/tcp", "80", "tcp", false},
		{"161-162/udp", "161-162", "udp", false},
		{"80", "", "", true},       // no protocol
		{"80/", "", "", true},      // empty protocol
		{"/tcp", "", "", true},     // empty port
		{"80/tcp/x", "", "", true}, // too many fields
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := ParsePort(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var merr *MalformedRuleError
				require.ErrorAs(t, err, &merr)
				assert.Equal(t, CategoryPort, merr.Category)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, CategoryPort, spec.Category)
			assert.Equal(t, tt.port, spec.Port)
			assert.Equal(t, tt.proto, spec.Protocol)
		})
	}
}

func TestParseForwardPort(t *testing.T) {
	t.Run("explicit interface", func(t *testing.T) {
		spec, err := ParseForwardPort("eth0;8080/tcp;9090;10.0.0.5")
		require.NoError(t, err)
		assert.Equal(t, "eth0", spec.Interface)
		assert.Equal(t, "8080", spec.Port)
		assert.Equal(t, "tcp", spec.Protocol)
		assert.Equal(t, "9090", spec.ToPort)
		assert.Equal(t, "10.0.0.5", spec.ToAddr)
	})

	t.Run("ambient zone, unset targets", func(t *testing.T) {
		spec, err := ParseForwardPort("8080/tcp;;")
		require.NoError(t, err)
		assert.Empty(t, spec.Interface)
		assert.Equal(t, "8080", spec.Port)
		assert.Equal(t, "tcp", spec.Protocol)
		assert.Empty(t, spec.ToPort)
		assert.Empty(t, spec.ToAddr)
	})

	t.Run("port range", func(t *testing.T) {
		spec, err := ParseForwardPort("7000-7010/udp;8000;")
		require.NoError(t, err)
		assert.Equal(t, "7000-7010", spec.Port)
		assert.Equal(t, "8000", spec.ToPort)
		assert.Empty(t, spec.ToAddr)
	})

	t.Run("bad field counts", func(t *testing.T) {
		for _, input := range []string{"8080/tcp", "8080/tcp;9090", "a;b;c;d;e"} {
			_, err := ParseForwardPort(input)
			var merr *MalformedRuleError
			require.ErrorAs(t, err, &merr, "input %q", input)
			assert.Equal(t, CategoryForwardPort, merr.Category)
			assert.Equal(t, input, merr.Input)
		}
	})

	t.Run("missing protocol", func(t *testing.T) {
		_, err := ParseForwardPort("eth0;8080;9090;10.0.0.5")
		var merr *MalformedRuleError
		require.ErrorAs(t, err, &merr)
		assert.Contains(t, merr.Error(), "missing protocol")
	})
}

func TestParseRuleSet(t *testing.T) {
	ds, err := ParseRuleSet(
		[]string{"https"},
		[]string{"8081/tcp"},
		[]string{"eth1"},
		[]string{"eth2"},
		[]string{"8080/tcp;;"},
		"public", Enabled,
	)
	require.NoError(t, err)

	assert.Len(t, ds.Services, 1)
	assert.Equal(t, "https", ds.Services[0].Service)
	assert.Len(t, ds.Ports, 1)
	assert.Len(t, ds.Trust, 1)
	assert.Equal(t, CategoryTrust, ds.Trust[0].Category)
	assert.Len(t, ds.Masquerade, 1)
	assert.Len(t, ds.ForwardPorts, 1)
	assert.Equal(t, "public", ds.Zone)
	assert.Equal(t, Enabled, ds.State)
	assert.False(t, ds.Empty())
}

func TestParseRuleSetFailsFast(t *testing.T) {
	_, err := ParseRuleSet(nil, []string{"80"}, nil, nil, nil, "", Enabled)
	require.Error(t, err)

	_, err = ParseRuleSet(nil, nil, []string{""}, nil, nil, "", Disabled)
	require.Error(t, err)
}

func TestParseIntent(t *testing.T) {
	got, err := ParseIntent("enabled")
	require.NoError(t, err)
	assert.Equal(t, Enabled, got)

	_, err = ParseIntent("present")
	require.Error(t, err)
}

func TestEmptyDesiredState(t *testing.T) {
	ds, err := ParseRuleSet(nil, nil, nil, nil, nil, "", Enabled)
	require.NoError(t, err)
	assert.True(t, ds.Empty())
}
