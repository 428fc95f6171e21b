// Package engine reconciles a declarative set of firewall rules against
// the state held by the firewall control daemon, in both its runtime and
// permanent configuration layers.
//
// One pass normalizes nothing itself (the rules package does); it
// resolves the target zone per rule, diffs desired against current state
// independently in each layer, batches all permanent-layer mutations per
// zone, and commits each mutated zone exactly once at the end. The single
// aggregate result is whether anything changed.
package engine

import (
	"fmt"

	"grimm.is/floe/internal/connman"
	"grimm.is/floe/internal/firewalld"
	"grimm.is/floe/internal/logging"
	"grimm.is/floe/internal/metrics"
	"grimm.is/floe/internal/rules"
)

// Options controls a reconciliation pass.
type Options struct {
	// Check computes the full diff and reports changed without invoking
	// any mutating daemon call, fast-path set call or commit.
	Check bool

	// AtomicCommit re-verifies every mutated zone against the permanent
	// layer before the first commit, so a pass either commits all zones
	// or none. The default is best-effort: zones committed before a
	// failure stay committed, since the daemon offers no multi-zone
	// transaction primitive.
	AtomicCommit bool
}

// Engine performs reconciliation passes. It is single-threaded: no two
// passes may run concurrently against the same daemon connection.
type Engine struct {
	client  firewalld.Client
	connman connman.Manager
	log     *logging.Logger
	opts    Options
	metrics *metrics.Registry
}

// New creates an engine. The connection manager may be nil, which
// disables the interface fast path.
func New(client firewalld.Client, cm connman.Manager, log *logging.Logger, opts Options) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		client:  client,
		connman: cm,
		log:     log.WithComponent("engine"),
		opts:    opts,
		metrics: metrics.Get(),
	}
}

// ZoneDiff is the before/after rendering of one zone's permanent settings.
type ZoneDiff struct {
	Before string
	After  string
}

// Report is the outcome of one pass.
type Report struct {
	Changed   bool
	ZoneDiffs map[string]ZoneDiff
}

// Run performs one reconciliation pass and reports whether any layer
// changed (or would change, in check mode).
func (e *Engine) Run(ds *rules.DesiredState) (bool, error) {
	rep, err := e.RunReport(ds)
	if err != nil {
		return false, err
	}
	return rep.Changed, nil
}

// RunReport performs one pass and additionally reports the per-zone
// permanent settings diff, for check-mode output.
func (e *Engine) RunReport(ds *rules.DesiredState) (*Report, error) {
	rep, err := e.runReport(ds)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.Passes.WithLabelValues(outcome).Inc()
	return rep, err
}

func (e *Engine) runReport(ds *rules.DesiredState) (*Report, error) {
	if !e.client.Connected() {
		return nil, &firewalld.DaemonFault{Op: "connect", Err: fmt.Errorf("firewalld service must be running")}
	}

	view, err := e.loadZoneView()
	if err != nil {
		return nil, err
	}

	// The nominal zone is consulted by every rule, so it is validated
	// once per pass, not once per rule.
	nominal := ds.Zone
	if nominal == "" {
		nominal, err = e.client.DefaultZone()
		if err != nil {
			return nil, err
		}
	}
	if err := view.verify(nominal); err != nil {
		return nil, err
	}

	cs := newChangeSet(e.client)
	changed := false

	// Categories run in a fixed sequence; within a category, rules run in
	// caller order.
	for _, spec := range ds.Services {
		c, err := e.reconcileService(cs, nominal, spec, ds.State)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	for _, spec := range ds.Ports {
		c, err := e.reconcilePort(cs, nominal, spec, ds.State)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	for _, spec := range ds.Trust {
		c, err := e.reconcileInterface(cs, spec, ds.State, view)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	for _, spec := range ds.Masquerade {
		c, err := e.reconcileInterface(cs, spec, ds.State, view)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	for _, spec := range ds.ForwardPorts {
		c, err := e.reconcileForwardPort(cs, nominal, spec, ds.State, view)
		if err != nil {
			return nil, err
		}
		changed = changed || c
	}

	rep := &Report{Changed: changed, ZoneDiffs: e.renderDiffs(cs)}

	if err := e.commit(cs); err != nil {
		return nil, err
	}

	if changed {
		e.log.Info("reconciliation pass applied changes",
			"zones_committed", len(cs.mutatedZones()), "check", e.opts.Check)
	} else {
		e.log.Debug("reconciliation pass made no changes")
	}

	return rep, nil
}

func (e *Engine) loadZoneView() (*zoneView, error) {
	runtime, err := e.client.Zones()
	if err != nil {
		return nil, err
	}
	permanent, err := e.client.PermanentZoneNames()
	if err != nil {
		return nil, err
	}

	view := &zoneView{
		runtime:   make(map[string]bool, len(runtime)),
		permanent: make(map[string]bool, len(permanent)),
	}
	for _, z := range runtime {
		view.runtime[z] = true
	}
	for _, z := range permanent {
		view.permanent[z] = true
	}
	return view, nil
}

// runtimeOps and permanentOps adapt one rule kind onto the shared
// dual-layer diff. Every category reconciles the same way: query
// existence per layer, add when enabled and absent, remove when disabled
// and present. The two layers are diffed independently against the
// desired rule, never against each other.
type runtimeOps struct {
	query  func() (bool, error)
	add    func() error
	remove func() error
}

type permanentOps struct {
	query  func(*firewalld.ZoneSettings) bool
	add    func(*firewalld.ZoneSettings)
	remove func(*firewalld.ZoneSettings)
}

func (e *Engine) reconcileRuntime(rt runtimeOps, intent rules.Intent, category rules.Category) (bool, error) {
	present, err := rt.query()
	if err != nil {
		return false, err
	}

	switch intent {
	case rules.Enabled:
		if present {
			return false, nil
		}
		if !e.opts.Check {
			if err := rt.add(); err != nil {
				return false, err
			}
		}
	case rules.Disabled:
		if !present {
			return false, nil
		}
		if !e.opts.Check {
			if err := rt.remove(); err != nil {
				return false, err
			}
		}
	}

	e.metrics.RulesReconciled.WithLabelValues(string(category), "runtime").Inc()
	return true, nil
}

func (e *Engine) reconcilePermanent(cs *changeSet, zone string, pm permanentOps, intent rules.Intent, category rules.Category) (bool, error) {
	s, err := cs.settingsFor(zone)
	if err != nil {
		return false, err
	}

	present := pm.query(s)
	switch intent {
	case rules.Enabled:
		if present {
			return false, nil
		}
		pm.add(s)
	case rules.Disabled:
		if !present {
			return false, nil
		}
		pm.remove(s)
	}

	cs.markMutated(zone)
	e.metrics.RulesReconciled.WithLabelValues(string(category), "permanent").Inc()
	return true, nil
}

func (e *Engine) reconcileBoth(cs *changeSet, zone string, rt runtimeOps, pm permanentOps, intent rules.Intent, category rules.Category) (bool, error) {
	runtimeChanged, err := e.reconcileRuntime(rt, intent, category)
	if err != nil {
		return false, err
	}
	permanentChanged, err := e.reconcilePermanent(cs, zone, pm, intent, category)
	if err != nil {
		return false, err
	}
	if runtimeChanged || permanentChanged {
		e.log.Debug("rule reconciled", "category", string(category), "zone", zone,
			"runtime", runtimeChanged, "permanent", permanentChanged)
	}
	return runtimeChanged || permanentChanged, nil
}

func (e *Engine) reconcileService(cs *changeSet, zone string, spec rules.Spec, intent rules.Intent) (bool, error) {
	rt := runtimeOps{
		query:  func() (bool, error) { return e.client.QueryService(zone, spec.Service) },
		add:    func() error { return e.client.AddService(zone, spec.Service) },
		remove: func() error { return e.client.RemoveService(zone, spec.Service) },
	}
	pm := permanentOps{
		query:  func(s *firewalld.ZoneSettings) bool { return s.QueryService(spec.Service) },
		add:    func(s *firewalld.ZoneSettings) { s.AddService(spec.Service) },
		remove: func(s *firewalld.ZoneSettings) { s.RemoveService(spec.Service) },
	}
	return e.reconcileBoth(cs, zone, rt, pm, intent, rules.CategoryService)
}

func (e *Engine) reconcilePort(cs *changeSet, zone string, spec rules.Spec, intent rules.Intent) (bool, error) {
	rt := runtimeOps{
		query:  func() (bool, error) { return e.client.QueryPort(zone, spec.Port, spec.Protocol) },
		add:    func() error { return e.client.AddPort(zone, spec.Port, spec.Protocol) },
		remove: func() error { return e.client.RemovePort(zone, spec.Port, spec.Protocol) },
	}
	pm := permanentOps{
		query:  func(s *firewalld.ZoneSettings) bool { return s.QueryPort(spec.Port, spec.Protocol) },
		add:    func(s *firewalld.ZoneSettings) { s.AddPort(spec.Port, spec.Protocol) },
		remove: func(s *firewalld.ZoneSettings) { s.RemovePort(spec.Port, spec.Protocol) },
	}
	return e.reconcileBoth(cs, zone, rt, pm, intent, rules.CategoryPort)
}

// reconcileInterface handles trust and masquerade rules: interface
// membership in the fixed trusted or external zone. The runtime "add" is
// the daemon's change-zone-of-interface call, since an interface has
// exactly one runtime zone membership rather than a presence flag.
func (e *Engine) reconcileInterface(cs *changeSet, spec rules.Spec, intent rules.Intent, view *zoneView) (bool, error) {
	zone, err := e.resolveZone(spec, "", view)
	if err != nil {
		return false, err
	}

	switch intent {
	case rules.Enabled:
		switch e.tryReassign(zone, spec.Interface) {
		case fastPathApplied:
			// The side channel moved the interface, but the permanent
			// layer may still track it explicitly; the two are not
			// mutually exclusive.
			if _, err := e.reconcilePermanent(cs, zone, interfaceOps(spec.Interface), intent, spec.Category); err != nil {
				return false, err
			}
			return true, nil
		case fastPathClean:
			// Connection already in the zone; only the explicit
			// permanent list can still need work.
			return e.reconcilePermanent(cs, zone, interfaceOps(spec.Interface), intent, spec.Category)
		}
	case rules.Disabled:
		// Reverting the connection to the default zone supersedes both
		// daemon layers: the connection manager owns persistence of the
		// interface's zone membership on this host.
		switch e.tryReassign("", spec.Interface) {
		case fastPathApplied:
			return true, nil
		case fastPathClean:
			return false, nil
		}
	}

	rt := runtimeOps{
		query:  func() (bool, error) { return e.client.QueryInterface(zone, spec.Interface) },
		add:    func() error { return e.client.ChangeZoneOfInterface(zone, spec.Interface) },
		remove: func() error { return e.client.RemoveInterface(zone, spec.Interface) },
	}
	return e.reconcileBoth(cs, zone, rt, interfaceOps(spec.Interface), intent, spec.Category)
}

func interfaceOps(iface string) permanentOps {
	return permanentOps{
		query:  func(s *firewalld.ZoneSettings) bool { return s.QueryInterface(iface) },
		add:    func(s *firewalld.ZoneSettings) { s.AddInterface(iface) },
		remove: func(s *firewalld.ZoneSettings) { s.RemoveInterface(iface) },
	}
}

func (e *Engine) reconcileForwardPort(cs *changeSet, nominal string, spec rules.Spec, intent rules.Intent, view *zoneView) (bool, error) {
	zone, err := e.resolveZone(spec, nominal, view)
	if err != nil {
		return false, err
	}

	rt := runtimeOps{
		query: func() (bool, error) {
			return e.client.QueryForwardPort(zone, spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
		add: func() error {
			return e.client.AddForwardPort(zone, spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
		remove: func() error {
			return e.client.RemoveForwardPort(zone, spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
	}
	pm := permanentOps{
		query: func(s *firewalld.ZoneSettings) bool {
			return s.QueryForwardPort(spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
		add: func(s *firewalld.ZoneSettings) {
			s.AddForwardPort(spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
		remove: func(s *firewalld.ZoneSettings) {
			s.RemoveForwardPort(spec.Port, spec.Protocol, spec.ToPort, spec.ToAddr)
		},
	}
	return e.reconcileBoth(cs, zone, rt, pm, intent, rules.CategoryForwardPort)
}

// fastPathResult is the outcome of a connection-manager fast-path attempt.
type fastPathResult int

const (
	// fastPathSkipped means the fast path could not run; the caller falls
	// back to the daemon path.
	fastPathSkipped fastPathResult = iota
	// fastPathApplied means the connection's zone was changed (or would
	// be, in check mode).
	fastPathApplied
	// fastPathClean means the connection is already in the desired zone.
	fastPathClean
)

// tryReassign attempts the connection-manager fast path. Any failure is
// swallowed and reported as skipped; this is a best-effort optimization,
// never a correctness requirement. The connection's current zone is
// compared first so an already-converged rule reports no change. In check
// mode only the lookups run, never the set.
func (e *Engine) tryReassign(zone, iface string) fastPathResult {
	if e.connman == nil || !e.connman.Available() {
		return fastPathSkipped
	}

	conn, err := e.connman.ConnectionOfInterface(iface)
	if err != nil {
		e.log.Debug("fast path not applicable", "interface", iface, "error", err)
		e.metrics.RecordFastPath(false)
		return fastPathSkipped
	}

	current, err := e.connman.ConnectionZone(conn)
	if err != nil {
		e.log.Debug("fast path zone lookup failed, falling back", "interface", iface, "error", err)
		e.metrics.RecordFastPath(false)
		return fastPathSkipped
	}
	if current == zone {
		return fastPathClean
	}

	if !e.opts.Check {
		if err := e.connman.SetConnectionZone(conn, zone); err != nil {
			e.log.Debug("fast path set failed, falling back", "interface", iface, "error", err)
			e.metrics.RecordFastPath(false)
			return fastPathSkipped
		}
	}

	e.log.Debug("interface zone reassigned via connection manager",
		"interface", iface, "connection", conn, "zone", zone)
	e.metrics.RecordFastPath(true)
	return fastPathApplied
}

// commit flushes every mutated zone's permanent settings exactly once.
// A failure aborts further commits; zones already committed stay
// committed unless AtomicCommit pre-flighted the pass.
func (e *Engine) commit(cs *changeSet) error {
	zones := cs.mutatedZones()
	if e.opts.Check || len(zones) == 0 {
		return nil
	}

	if e.opts.AtomicCommit {
		permanent, err := e.client.PermanentZoneNames()
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(permanent))
		for _, z := range permanent {
			known[z] = true
		}
		for _, zone := range zones {
			if !known[zone] {
				return &UnknownZoneError{Zone: zone, Layer: "permanent"}
			}
		}
	}

	for _, zone := range zones {
		s, _ := cs.settingsFor(zone)
		err := e.client.CommitSettings(zone, s)
		e.metrics.RecordCommit(err)
		if err != nil {
			return fmt.Errorf("committing permanent settings for zone %q: %w", zone, err)
		}
		e.log.Debug("permanent settings committed", "zone", zone)
	}
	return nil
}

// renderDiffs captures the before/after permanent settings of every
// mutated zone for check-mode reporting.
func (e *Engine) renderDiffs(cs *changeSet) map[string]ZoneDiff {
	diffs := make(map[string]ZoneDiff)
	for _, zone := range cs.mutatedZones() {
		s := cs.settings[zone]
		diffs[zone] = ZoneDiff{
			Before: cs.baseline(zone).Render(),
			After:  s.Render(),
		}
	}
	return diffs
}
