// Package search picks which host search tool, if any, augments generation.
package search

import (
	"log/slog"
	"slices"
	"sync"
)

// LegacyToolName is tried when no configured candidate is available.
const LegacyToolName = "search_online"

// Config lists candidate tool names in priority order.
type Config struct {
	ToolNames []string
}

// Resolve returns the first configured candidate present in available, then
// the legacy fallback, or ok=false when search augmentation should be skipped.
func Resolve(available []string, cfg Config) (name string, ok bool) {
	if len(available) == 0 {
		return "", false
	}

	set := make(map[string]struct{}, len(available))
	for _, n := range available {
		set[n] = struct{}{}
	}

	for _, candidate := range cfg.ToolNames {
		if _, found := set[candidate]; found {
			return candidate, true
		}
	}

	if _, found := set[LegacyToolName]; found {
		return LegacyToolName, true
	}
	return "", false
}

// Registry is the set of tool names the host currently exposes.
type Registry struct {
	mu    sync.RWMutex
	names map[string]struct{}
	log   *slog.Logger
}

// NewRegistry creates a registry pre-populated with names.
func NewRegistry(logger *slog.Logger, names ...string) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		names: make(map[string]struct{}, len(names)),
		log:   logger.With("component", "tool_registry"),
	}
	for _, n := range names {
		r.Register(n)
	}
	return r
}

// Register adds a tool name. Blank names are ignored.
func (r *Registry) Register(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[name]; exists {
		return
	}
	r.names[name] = struct{}{}
	r.log.Debug("Tool registered", "tool", name)
}

// Unregister removes a tool name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, name)
}

// AvailableTools returns a sorted snapshot of registered tool names.
func (r *Registry) AvailableTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
