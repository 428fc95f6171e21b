package engine

import "grimm.is/floe/internal/firewalld"

// changeSet accumulates the permanent-layer mutations of one
// reconciliation pass. Each zone's settings object is fetched at most
// once and, if mutated, committed at most once; later rules targeting the
// same zone reuse the already-mutated object so earlier in-memory edits
// are never discarded by a re-fetch.
type changeSet struct {
	client    firewalld.Client
	settings  map[string]*firewalld.ZoneSettings
	baselines map[string]*firewalld.ZoneSettings
	mutated   map[string]bool
	order     []string // zones in first-mutation order, for deterministic commits
}

func newChangeSet(client firewalld.Client) *changeSet {
	return &changeSet{
		client:    client,
		settings:  make(map[string]*firewalld.ZoneSettings),
		baselines: make(map[string]*firewalld.ZoneSettings),
		mutated:   make(map[string]bool),
	}
}

// settingsFor returns the zone's permanent projection, fetching it from
// the daemon on first use and memoizing it for the rest of the pass.
func (cs *changeSet) settingsFor(zone string) (*firewalld.ZoneSettings, error) {
	if s, ok := cs.settings[zone]; ok {
		return s, nil
	}
	s, err := cs.client.PermanentSettings(zone)
	if err != nil {
		return nil, err
	}
	cs.settings[zone] = s
	cs.baselines[zone] = s.Clone()
	return s, nil
}

// markMutated registers a zone for commit. Registering twice is a no-op.
func (cs *changeSet) markMutated(zone string) {
	if !cs.mutated[zone] {
		cs.mutated[zone] = true
		cs.order = append(cs.order, zone)
	}
}

// mutatedZones returns the zones needing a commit, in first-mutation order.
func (cs *changeSet) mutatedZones() []string {
	return cs.order
}

// baseline returns the settings as they were when first fetched.
func (cs *changeSet) baseline(zone string) *firewalld.ZoneSettings {
	return cs.baselines[zone]
}
