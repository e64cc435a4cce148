package dialect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	byName     = make(map[string]*Dialect)
	aliases    = map[string]string{
		"mariadb":    "mysql",
		"postgresql": "postgres",
		"pgx":        "postgres",
		"sqlite3":    "sqlite",
	}
)

// Register adds d under its name. Registering a name twice is an error.
func Register(d *Dialect) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("dialect must have a name")
	}
	name := strings.ToLower(d.Name)

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := byName[name]; dup {
		return fmt.Errorf("dialect %q already registered", name)
	}
	byName[name] = d
	return nil
}

// Get returns the dialect registered under name. Common driver aliases such
// as "mariadb" or "sqlite3" resolve to their canonical dialect.
func Get(name string) (*Dialect, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := byName[name]
	return d, ok
}

// List returns the canonical names of all registered dialects, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustRegister(ds ...*Dialect) {
	for _, d := range ds {
		if err := Register(d); err != nil {
			panic(err)
		}
	}
}
