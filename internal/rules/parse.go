package rules

import "strings"

// ParsePort parses "80/tcp" or "161-162/udp" into a port Spec. The
// protocol part is mandatory.
func ParsePort(s string) (Spec, error) {
	port, proto, ok := splitPortProto(s)
	if !ok {
		return Spec{}, &MalformedRuleError{
			Category: CategoryPort,
			Input:    s,
			Reason:   "expected <port>[-<port>]/<protocol>",
		}
	}
	return Spec{Category: CategoryPort, Port: port, Protocol: proto}, nil
}

// ParseForwardPort parses a semicolon-delimited forward-port rule.
// Four fields carry an explicit source interface:
//
//	<interface>;<port>[-<port>]/<protocol>;[<to-port>];[<to-addr>]
//
// Three fields leave the interface empty, implying the ambient zone:
//
//	<port>[-<port>]/<protocol>;[<to-port>];[<to-addr>]
//
// Empty to-port and to-addr fields are normalized to unset.
func ParseForwardPort(s string) (Spec, error) {
	fields := strings.Split(s, ";")

	var iface, portProto, toPort, toAddr string
	switch len(fields) {
	case 4:
		iface, portProto, toPort, toAddr = fields[0], fields[1], fields[2], fields[3]
	case 3:
		portProto, toPort, toAddr = fields[0], fields[1], fields[2]
	default:
		return Spec{}, &MalformedRuleError{
			Category: CategoryForwardPort,
			Input:    s,
			Reason:   "expected [<interface>;]<port>/<protocol>;[<to-port>];[<to-addr>]",
		}
	}

	port, proto, ok := splitPortProto(portProto)
	if !ok {
		return Spec{}, &MalformedRuleError{
			Category: CategoryForwardPort,
			Input:    s,
			Reason:   "missing protocol",
		}
	}

	return Spec{
		Category:  CategoryForwardPort,
		Interface: iface,
		Port:      port,
		Protocol:  proto,
		ToPort:    toPort,
		ToAddr:    toAddr,
	}, nil
}

// ParseRuleSet builds a DesiredState from per-category raw rule strings.
// It fails on the first malformed rule; nothing is sent to the daemon on
// a parse failure.
func ParseRuleSet(services, ports, trust, masq, forwardPorts []string, zone string, state Intent) (*DesiredState, error) {
	ds := &DesiredState{Zone: zone, State: state}

	for _, name := range services {
		if name == "" {
			return nil, &MalformedRuleError{
				Category: CategoryService,
				Input:    name,
				Reason:   "service name must not be empty",
			}
		}
		ds.Services = append(ds.Services, Spec{Category: CategoryService, Service: name})
	}

	for _, s := range ports {
		spec, err := ParsePort(s)
		if err != nil {
			return nil, err
		}
		ds.Ports = append(ds.Ports, spec)
	}

	for _, iface := range trust {
		if iface == "" {
			return nil, &MalformedRuleError{
				Category: CategoryTrust,
				Input:    iface,
				Reason:   "interface name must not be empty",
			}
		}
		ds.Trust = append(ds.Trust, Spec{Category: CategoryTrust, Interface: iface})
	}

	for _, iface := range masq {
		if iface == "" {
			return nil, &MalformedRuleError{
				Category: CategoryMasquerade,
				Input:    iface,
				Reason:   "interface name must not be empty",
			}
		}
		ds.Masquerade = append(ds.Masquerade, Spec{Category: CategoryMasquerade, Interface: iface})
	}

	for _, s := range forwardPorts {
		spec, err := ParseForwardPort(s)
		if err != nil {
			return nil, err
		}
		ds.ForwardPorts = append(ds.ForwardPorts, spec)
	}

	return ds, nil
}

// splitPortProto splits "80/tcp" into its two halves. Both must be
// non-empty and exactly one slash must be present.
func splitPortProto(s string) (port, proto string, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
