// Package config loads desired-state files describing the firewall rules
// a host should converge to. Files are HCL or JSON; both decode into the
// same flat shape and normalize through the rules package, so a malformed
// rule fails the load rather than a later daemon call.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"grimm.is/floe/internal/rules"
)

// Config is the decoded desired-state file. Rule lists hold raw strings
// in the same syntax the CLI flags accept; DesiredState normalizes them.
type Config struct {
	Zone  string `hcl:"zone,optional" json:"zone,omitempty"`
	State string `hcl:"state,optional" json:"state,omitempty"`

	Services     []string `hcl:"service,optional" json:"service,omitempty"`
	Ports        []string `hcl:"port,optional" json:"port,omitempty"`
	Trust        []string `hcl:"trust,optional" json:"trust,omitempty"`
	Masquerade   []string `hcl:"masquerade,optional" json:"masquerade,omitempty"`
	ForwardPorts []string `hcl:"forward_port,optional" json:"forward_port,omitempty"`
}

// LoadFile loads a desired-state file, choosing the decoder by extension.
// Unknown extensions try HCL first and fall back to JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".hcl":
		return LoadHCL(data, path)
	case ".json":
		return LoadJSON(data)
	default:
		cfg, err := LoadHCL(data, path)
		if err != nil {
			return LoadJSON(data)
		}
		return cfg, nil
	}
}

// LoadHCL decodes a desired-state file from HCL bytes.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	return &cfg, nil
}

// LoadJSON decodes a desired-state file from JSON bytes.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return &cfg, nil
}

// DesiredState normalizes the raw rule strings. The state defaults to
// enabled when unset.
func (c *Config) DesiredState() (*rules.DesiredState, error) {
	state := rules.Enabled
	if c.State != "" {
		var err error
		state, err = rules.ParseIntent(c.State)
		if err != nil {
			return nil, err
		}
	}
	return rules.ParseRuleSet(c.Services, c.Ports, c.Trust, c.Masquerade, c.ForwardPorts, c.Zone, state)
}

// GenerateHCL renders the config as formatted HCL, omitting unset fields.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	if cfg.Zone != "" {
		body.SetAttributeValue("zone", cty.StringVal(cfg.Zone))
	}
	if cfg.State != "" {
		body.SetAttributeValue("state", cty.StringVal(cfg.State))
	}
	setStringList(body, "service", cfg.Services)
	setStringList(body, "port", cfg.Ports)
	setStringList(body, "trust", cfg.Trust)
	setStringList(body, "masquerade", cfg.Masquerade)
	setStringList(body, "forward_port", cfg.ForwardPorts)

	return f.Bytes()
}

func setStringList(body *hclwrite.Body, name string, values []string) {
	if len(values) == 0 {
		return
	}
	vals := make([]cty.Value, len(values))
	for i, s := range values {
		vals[i] = cty.StringVal(s)
	}
	body.SetAttributeValue(name, cty.ListVal(vals))
}
