package collector

// Enablement carries the per-collector signals gathered from the CLI.
// Explicit signals are only set for flags the operator actually passed;
// everything else falls back to the collector's default.
type Enablement struct {
	Enabled  map[string]bool // --collector.<name> was passed
	Disabled map[string]bool // --no-collector.<name> was passed
}

// Resolve computes the final enabled set. Precedence, highest first:
// explicit disable, explicit enable, EnabledByDefault. Disable wins even when
// both explicit flags are passed for the same collector, giving operators a
// forceful override. Flags naming unknown collectors contribute nothing.
// Output preserves manifest order.
func Resolve(e Enablement) []string {
	enabled := make([]string, 0, len(manifest))
	for _, entry := range manifest {
		if e.Disabled[entry.name] {
			continue
		}
		if e.Enabled[entry.name] || entry.factory().EnabledByDefault() {
			enabled = append(enabled, entry.name)
		}
	}
	return enabled
}

// Config is the set of collectors resolved enabled for this process run.
// It is built once after resolution and never mutated afterward.
type Config struct {
	names []string
	set   map[string]struct{}
}

// NewConfig builds a Config from resolved names. Names not present in the
// manifest are dropped silently; they are a fail-safe no-op, not an error.
func NewConfig(names []string) Config {
	known := make(map[string]struct{}, len(manifest))
	for _, e := range manifest {
		known[e.name] = struct{}{}
	}

	cfg := Config{set: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if _, ok := known[name]; !ok {
			continue
		}
		if _, dup := cfg.set[name]; dup {
			continue
		}
		cfg.set[name] = struct{}{}
		cfg.names = append(cfg.names, name)
	}
	return cfg
}

// Names returns the enabled collector names in resolution order.
func (c Config) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// IsEnabled reports whether the named collector is active this run.
func (c Config) IsEnabled(name string) bool {
	_, ok := c.set[name]
	return ok
}
