package cmd

import (
	"flag"
	"fmt"
	"strings"

	"grimm.is/floe/internal/config"
	"grimm.is/floe/internal/connman"
	"grimm.is/floe/internal/engine"
	"grimm.is/floe/internal/firewalld"
	"grimm.is/floe/internal/logging"
	"grimm.is/floe/internal/metrics"
	"grimm.is/floe/internal/rules"
)

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// RunApply runs one reconciliation pass from CLI flags, optionally merged
// over a desired-state file. Prints changed=true|false.
func RunApply(args []string) error {
	flags := flag.NewFlagSet("apply", flag.ExitOnError)

	configFile := flags.String("config", "", "Desired-state file (HCL or JSON)")
	flags.StringVar(configFile, "c", "", "Desired-state file (short)")

	zone := flags.String("zone", "", "Nominal zone (default: daemon's default zone)")
	state := flags.String("state", "", "enabled or disabled (default enabled)")

	check := flags.Bool("check", false, "Compute changes without applying anything")
	flags.BoolVar(check, "n", false, "Check mode (short)")

	atomic := flags.Bool("atomic", false, "Verify all zones before the first commit")
	debug := flags.Bool("debug", false, "Enable debug logging")
	metricsFile := flags.String("metrics-file", "", "Write pass metrics to this file (Prometheus text format)")

	var services, ports, trust, masq, forwardPorts stringList
	flags.Var(&services, "service", "Service rule (repeatable)")
	flags.Var(&ports, "port", "Port rule, <port>/<protocol> (repeatable)")
	flags.Var(&trust, "trust", "Trusted interface (repeatable)")
	flags.Var(&masq, "masq", "Masqueraded interface (repeatable)")
	flags.Var(&forwardPorts, "forward-port", "Forward-port rule (repeatable)")

	flags.Parse(args)

	log := newLogger(*debug)

	ds, err := buildDesiredState(*configFile, *zone, *state, services, ports, trust, masq, forwardPorts)
	if err != nil {
		return err
	}
	if ds.Empty() {
		return fmt.Errorf("no rules given: pass -config or at least one rule flag")
	}

	e := engine.New(firewalld.NewCmdClient(nil), newConnectionManager(), log,
		engine.Options{Check: *check, AtomicCommit: *atomic})

	changed, err := e.Run(ds)
	if *metricsFile != "" {
		// The pass counters carry the error outcome too, so dump even on
		// failure.
		if werr := metrics.WriteFile(*metricsFile); werr != nil {
			log.Warn("failed to write metrics file", "path", *metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("changed=%t\n", changed)
	return nil
}

// buildDesiredState merges CLI rule flags over an optional desired-state
// file. Flag lists append to the file's lists; zone and state flags
// override the file's values.
func buildDesiredState(configFile, zone, state string, services, ports, trust, masq, forwardPorts []string) (*rules.DesiredState, error) {
	cfg := &config.Config{}
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if zone != "" {
		cfg.Zone = zone
	}
	if state != "" {
		cfg.State = state
	}
	cfg.Services = append(cfg.Services, services...)
	cfg.Ports = append(cfg.Ports, ports...)
	cfg.Trust = append(cfg.Trust, trust...)
	cfg.Masquerade = append(cfg.Masquerade, masq...)
	cfg.ForwardPorts = append(cfg.ForwardPorts, forwardPorts...)

	return cfg.DesiredState()
}

func newLogger(debug bool) *logging.Logger {
	cfg := logging.DefaultConfig()
	if debug {
		cfg.Level = logging.LevelDebug
	}
	log := logging.New(cfg)
	logging.SetDefault(log)
	return log
}

// newConnectionManager probes for NetworkManager. The constructor returns
// a nil pointer when nmcli is absent; returning that through the
// interface would defeat the engine's nil check, so convert it here.
func newConnectionManager() connman.Manager {
	if m := connman.NewNMCLIManager(nil); m != nil {
		return m
	}
	return nil
}
