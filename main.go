package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/floe/cmd"
	"grimm.is/floe/internal/brand"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "apply":
		if err := cmd.RunApply(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		configFile := checkFlags.String("config", brand.DefaultConfigPath(), "Desired-state file")
		checkFlags.StringVar(configFile, "c", brand.DefaultConfigPath(), "Desired-state file (short)")

		verbose := checkFlags.Bool("verbose", false, "Print the effective desired state")
		checkFlags.BoolVar(verbose, "v", false, "Verbose output (short)")

		checkFlags.Parse(os.Args[2:])

		if len(checkFlags.Args()) > 0 {
			*configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(*configFile, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Printf("%s version %s\n", brand.Name, brand.Version)
		fmt.Printf("Build: %s\n", brand.BuildTime)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  apply     Reconcile firewall rules against the daemon
            Options: --config (-c) <file>, --zone <z>, --state enabled|disabled,
                     --check (-n), --atomic, --debug, --metrics-file <path>,
                     --service, --port, --trust, --masq, --forward-port (repeatable)
  check     Dry-run a desired-state file and show the settings diff
            Options: --config (-c) <file>, --verbose (-v)
  version   Print version info

Examples:
  %s apply --zone public --service https --port 8081/tcp
  %s apply --config /etc/%s/%s --check
  %s check -v --config rules.hcl
`,
		brand.Name, brand.Description,
		brand.LowerName,
		brand.LowerName, brand.LowerName, brand.LowerName, brand.ConfigFileName,
		brand.LowerName)
}
