package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Role is the gateway slot an engine can fill.
type Role int

const (
	// RolePrimary engines are networked and shared between processes.
	RolePrimary Role = iota + 1
	// RoleFallback engines are embedded and file backed.
	RoleFallback
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

type registration struct {
	role    Role
	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// Register adds an engine under name for the given role.
// Called by adapter implementations in their init() functions.
func Register(name string, role Role, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = registration{role: role, factory: factory}
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	reg, ok := lookup(name)
	return reg.factory, ok
}

// RoleOf reports which slot the named engine fills.
func RoleOf(name string) (Role, bool) {
	reg, ok := lookup(name)
	return reg.role, ok
}

func lookup(name string) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[strings.ToLower(name)]
	return reg, ok
}

// NewAdapter creates an unconnected adapter for cfg.Type.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	reg, ok := lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return reg.factory(logger), nil
}

// NewAdapterFor is NewAdapter restricted to engines registered for role.
func NewAdapterFor(role Role, cfg Config, logger *slog.Logger) (Adapter, error) {
	if r, ok := RoleOf(cfg.Type); ok && r != role {
		return nil, fmt.Errorf("%s engine cannot serve as %s\nHint: Use one of: %s",
			cfg.Type, role, strings.Join(ListByRole(role), ", "))
	}
	return NewAdapter(cfg, logger)
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	return list(func(registration) bool { return true })
}

// ListByRole returns the sorted names of engines registered for role.
func ListByRole(role Role) []string {
	return list(func(reg registration) bool { return reg.role == role })
}

func list(keep func(registration) bool) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name, reg := range registry {
		if keep(reg) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := lookup(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check primary.driver in sqlgate.yaml", e.Type, e.Available)
}
