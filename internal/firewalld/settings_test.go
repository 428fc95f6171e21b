package firewalld

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneSettingsServices(t *testing.T) {
	s := NewZoneSettings()
	assert.False(t, s.QueryService("https"))

	s.AddService("https")
	assert.True(t, s.QueryService("https"))

	// Adding twice must not duplicate
	s.AddService("https")
	assert.Len(t, s.Services(), 1)

	s.RemoveService("https")
	assert.False(t, s.QueryService("https"))
	assert.Empty(t, s.Services())

	// Removing an absent entry is a no-op
	s.RemoveService("https")
	assert.Empty(t, s.Services())
}

func TestZoneSettingsPorts(t *testing.T) {
	s := NewZoneSettings()
	s.AddPort("80", "tcp")
	s.AddPort("80", "udp")

	assert.True(t, s.QueryPort("80", "tcp"))
	assert.True(t, s.QueryPort("80", "udp"))
	assert.False(t, s.QueryPort("81", "tcp"))

	s.RemovePort("80", "tcp")
	assert.False(t, s.QueryPort("80", "tcp"))
	assert.True(t, s.QueryPort("80", "udp"))
}

func TestZoneSettingsMasquerade(t *testing.T) {
	s := NewZoneSettings()
	assert.False(t, s.QueryMasquerade())
	s.AddMasquerade()
	assert.True(t, s.QueryMasquerade())
	s.RemoveMasquerade()
	assert.False(t, s.QueryMasquerade())
}

func TestZoneSettingsForwardPorts(t *testing.T) {
	s := NewZoneSettings()
	s.AddForwardPort("8080", "tcp", "9090", "10.0.0.5")
	s.AddForwardPort("8080", "tcp", "", "")

	// Unset targets are a distinct rule from set ones
	assert.True(t, s.QueryForwardPort("8080", "tcp", "9090", "10.0.0.5"))
	assert.True(t, s.QueryForwardPort("8080", "tcp", "", ""))
	assert.Len(t, s.ForwardPorts(), 2)

	s.RemoveForwardPort("8080", "tcp", "", "")
	assert.False(t, s.QueryForwardPort("8080", "tcp", "", ""))
	assert.True(t, s.QueryForwardPort("8080", "tcp", "9090", "10.0.0.5"))
}

func TestZoneSettingsClone(t *testing.T) {
	s := NewZoneSettings()
	s.AddService("https")
	s.AddInterface("eth0")
	s.AddMasquerade()

	c := s.Clone()
	c.RemoveService("https")
	c.AddService("dns")

	assert.True(t, s.QueryService("https"))
	assert.False(t, s.QueryService("dns"))
	assert.True(t, c.QueryInterface("eth0"))
}

func TestZoneSettingsRender(t *testing.T) {
	s := NewZoneSettings()
	assert.Equal(t, "", s.Render())

	s.AddPort("80", "tcp")
	s.AddService("https")
	s.AddForwardPort("8080", "tcp", "9090", "")

	want := "forward-port 8080/tcp to-port 9090\nport 80/tcp\nservice https\n"
	assert.Equal(t, want, s.Render())
}
