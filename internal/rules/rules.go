// Package rules defines the desired-state rule model and the parsers for
// the compact textual rule encodings accepted on the command line and in
// desired-state files.
package rules

import "fmt"

// Category identifies the kind of firewall rule a Spec describes.
type Category string

const (
	CategoryService     Category = "service"
	CategoryPort        Category = "port"
	CategoryTrust       Category = "trust"
	CategoryMasquerade  Category = "masquerade"
	CategoryForwardPort Category = "forward_port"
)

// Intent is the desired presence of a rule.
type Intent string

const (
	Enabled  Intent = "enabled"
	Disabled Intent = "disabled"
)

// ParseIntent validates a state string from user input.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case Enabled, Disabled:
		return Intent(s), nil
	}
	return "", fmt.Errorf("invalid state %q: must be %q or %q", s, Enabled, Disabled)
}

// Spec is one structured rule. Only the fields relevant to its Category
// are populated.
type Spec struct {
	Category Category

	// Service name (CategoryService).
	Service string

	// Port or port range and protocol (CategoryPort, CategoryForwardPort).
	Port     string
	Protocol string

	// Interface name (CategoryTrust, CategoryMasquerade) or the optional
	// source interface of a forward-port rule. Empty means "use the
	// ambient zone" for forward-port rules.
	Interface string

	// Forwarding target (CategoryForwardPort). Empty means unset; the
	// daemon distinguishes "no forwarding target" from an empty one, so
	// these must never be passed through as empty strings blindly.
	ToPort string
	ToAddr string
}

// DesiredState is one reconciliation request: the full rule set, the
// nominal zone (empty means the daemon's default zone) and the intent.
// It is constructed once per invocation and read-only afterwards.
type DesiredState struct {
	Services     []Spec
	Ports        []Spec
	Trust        []Spec
	Masquerade   []Spec
	ForwardPorts []Spec

	Zone  string
	State Intent
}

// Empty reports whether the desired state carries no rules at all.
func (d *DesiredState) Empty() bool {
	return len(d.Services) == 0 && len(d.Ports) == 0 && len(d.Trust) == 0 &&
		len(d.Masquerade) == 0 && len(d.ForwardPorts) == 0
}

// MalformedRuleError reports a rule string that failed to parse.
type MalformedRuleError struct {
	Category Category
	Input    string
	Reason   string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("improper %s format %q: %s", e.Category, e.Input, e.Reason)
}
