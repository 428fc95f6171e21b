package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/floe/internal/rules"
)

func TestBuildDesiredStateFlagsOnly(t *testing.T) {
	ds, err := buildDesiredState("", "public", "enabled",
		[]string{"https"}, []string{"8081/tcp"}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "public", ds.Zone)
	assert.Equal(t, rules.Enabled, ds.State)
	assert.Len(t, ds.Services, 1)
	assert.Len(t, ds.Ports, 1)
}

func TestBuildDesiredStateFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
zone    = "dmz"
state   = "enabled"
service = ["dns"]
`), 0644))

	ds, err := buildDesiredState(path, "public", "disabled",
		[]string{"https"}, nil, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "public", ds.Zone, "zone flag overrides the file")
	assert.Equal(t, rules.Disabled, ds.State, "state flag overrides the file")
	assert.Len(t, ds.Services, 2, "flag rules append to file rules")
}

func TestBuildDesiredStateMalformedFlag(t *testing.T) {
	_, err := buildDesiredState("", "", "", nil, []string{"80"}, nil, nil, nil)
	var malformed *rules.MalformedRuleError
	require.ErrorAs(t, err, &malformed)
}

func TestStringListAccumulates(t *testing.T) {
	var l stringList
	require.NoError(t, l.Set("a"))
	require.NoError(t, l.Set("b"))
	assert.Equal(t, stringList{"a", "b"}, l)
	assert.Equal(t, "a,b", l.String())
}
