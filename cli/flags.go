package cli

import (
	"fmt"

	"pg_exporter/collector"

	"github.com/spf13/pflag"
)

// AddCollectorFlags synthesizes the per-collector flag surface from the
// manifest: --collector.<name> defaulting to the collector's
// EnabledByDefault, and --no-collector.<name> which overrides it. Flags are
// added in manifest order so help output is deterministic across runs.
func AddCollectorFlags(flags *pflag.FlagSet) error {
	factories, err := collector.Factories()
	if err != nil {
		return err
	}

	for _, name := range collector.Names() {
		defaultEnabled := factories[name]().EnabledByDefault()

		state := "disabled"
		if defaultEnabled {
			state = "enabled"
		}
		flags.Bool(enableFlag(name), defaultEnabled,
			fmt.Sprintf("Enable the %s collector [default: %s]", name, state))
		flags.Bool(disableFlag(name), false,
			fmt.Sprintf("Disable the %s collector", name))
	}
	return nil
}

// EnabledCollectors resolves the final enabled set from the parsed flags.
// Explicit disable beats explicit enable beats the collector default;
// --collector.<name>=false counts as an explicit disable.
func EnabledCollectors(flags *pflag.FlagSet) []string {
	e := collector.Enablement{
		Enabled:  make(map[string]bool),
		Disabled: make(map[string]bool),
	}

	for _, name := range collector.Names() {
		if flags.Changed(enableFlag(name)) {
			if v, _ := flags.GetBool(enableFlag(name)); v {
				e.Enabled[name] = true
			} else {
				e.Disabled[name] = true
			}
		}
		if v, _ := flags.GetBool(disableFlag(name)); v {
			e.Disabled[name] = true
		}
	}

	return collector.Resolve(e)
}

func enableFlag(name string) string  { return "collector." + name }
func disableFlag(name string) string { return "no-collector." + name }
