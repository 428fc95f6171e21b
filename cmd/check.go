package cmd

import (
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/floe/internal/config"
	"grimm.is/floe/internal/engine"
	"grimm.is/floe/internal/firewalld"
	"grimm.is/floe/internal/logging"
)

// RunCheck validates a desired-state file, dry-runs a reconciliation pass
// against the live daemon, and prints a unified diff of each zone's
// permanent settings. Nothing is mutated.
func RunCheck(configFile string, verbose bool) error {
	if configFile == "" {
		return fmt.Errorf("usage: check -config <file>")
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	ds, err := cfg.DesiredState()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if verbose {
		fmt.Println("Effective desired state:")
		fmt.Print(string(config.GenerateHCL(cfg)))
		fmt.Println()
	}

	e := engine.New(firewalld.NewCmdClient(nil), newConnectionManager(),
		logging.Default(), engine.Options{Check: true})

	rep, err := e.RunReport(ds)
	if err != nil {
		return err
	}

	if !rep.Changed {
		fmt.Println("No changes detected.")
		fmt.Println("changed=false")
		return nil
	}

	zones := make([]string, 0, len(rep.ZoneDiffs))
	for zone := range rep.ZoneDiffs {
		zones = append(zones, zone)
	}
	sort.Strings(zones)

	for _, zone := range zones {
		d := rep.ZoneDiffs[zone]
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(d.Before),
			B:        difflib.SplitLines(d.After),
			FromFile: zone + " (current)",
			ToFile:   zone + " (desired)",
			Context:  3,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		fmt.Print(text)
	}

	fmt.Println("changed=true")
	return nil
}
