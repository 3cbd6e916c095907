package collector

import "fmt"

type manifestEntry struct {
	name    string
	factory Factory
}

// manifest is the single ordered table of every installed collector.
// Adding a collector means adding one line here; flag generation, the
// `--collector.<name>` surface and lookup all derive from this table.
var manifest = []manifestEntry{
	{"default", newDefaultCollector},
	{"activity", newActivityCollector},
	{"vacuum", newVacuumCollector},
	{"locks", newLocksCollector},
	{"database", newDatabaseCollector},
	{"stat", newStatCollector},
	{"replication", newReplicationCollector},
	{"index", newIndexCollector},
	{"statements", newStatementsCollector},
}

// Names returns the collector names in manifest declaration order.
func Names() []string {
	names := make([]string, 0, len(manifest))
	for _, e := range manifest {
		names = append(names, e.name)
	}
	return names
}

// Factories builds the name to factory lookup table. A duplicate name in the
// manifest is a startup error, never a scrape-time failure.
func Factories() (map[string]Factory, error) {
	factories := make(map[string]Factory, len(manifest))
	for _, e := range manifest {
		if _, ok := factories[e.name]; ok {
			return nil, fmt.Errorf("duplicate collector name in manifest: name=%s", e.name)
		}
		factories[e.name] = e.factory
	}
	return factories, nil
}
