package engine

import (
	"fmt"

	"grimm.is/floe/internal/rules"
)

// Fixed, well-known zone names used as implicit targets.
const (
	// ZoneTrusted receives interfaces from trust rules.
	ZoneTrusted = "trusted"
	// ZoneExternal receives interfaces from masquerade rules.
	ZoneExternal = "external"
)

// UnknownZoneError reports a zone absent from one of the daemon's two
// configuration layers. A zone can exist transiently in one layer without
// the other, e.g. mid-configuration, so both are checked.
type UnknownZoneError struct {
	Zone  string
	Layer string
}

func (e *UnknownZoneError) Error() string {
	return fmt.Sprintf("%s zone %q does not exist", e.Layer, e.Zone)
}

// zoneView carries the per-pass zone enumerations of both layers.
type zoneView struct {
	runtime   map[string]bool
	permanent map[string]bool
}

func (v *zoneView) verify(zone string) error {
	if !v.runtime[zone] {
		return &UnknownZoneError{Zone: zone, Layer: "runtime"}
	}
	if !v.permanent[zone] {
		return &UnknownZoneError{Zone: zone, Layer: "permanent"}
	}
	return nil
}

// resolveZone determines the zone a rule actually targets, in order of
// precedence: trust rules go to the trusted zone, masquerade rules to the
// external zone, forward-port rules with an explicit interface to the
// zone owning that interface (falling back to the nominal zone when the
// interface is unowned), and everything else to the nominal zone.
func (e *Engine) resolveZone(spec rules.Spec, nominal string, view *zoneView) (string, error) {
	zone := nominal

	switch spec.Category {
	case rules.CategoryTrust:
		zone = ZoneTrusted
	case rules.CategoryMasquerade:
		zone = ZoneExternal
	case rules.CategoryForwardPort:
		if spec.Interface != "" {
			owner, err := e.client.ZoneOfInterface(spec.Interface)
			if err != nil {
				return "", err
			}
			if owner != "" {
				zone = owner
			}
		}
	}

	if zone == nominal {
		// The nominal zone was validated once at the start of the pass.
		return zone, nil
	}
	if err := view.verify(zone); err != nil {
		return "", err
	}
	return zone, nil
}
