package core

import (
	"fmt"
	"sort"

	"ontosim/pkg/domain"
)

// Plugin contributes submission criteria and action implementations.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules   []domain.Rule
	actions map[string]domain.ActionImplementation
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{actions: make(map[string]domain.ActionImplementation)}
}

// RegisterRule adds a submission criterion contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule domain.Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// RegisterAction binds an implementation to an action type.
func (r *PluginRegistry) RegisterAction(action string, impl domain.ActionImplementation) error {
	if action == "" || impl == nil {
		return fmt.Errorf("action name and implementation required")
	}
	if _, exists := r.actions[action]; exists {
		return fmt.Errorf("action %s already registered", action)
	}
	r.actions[action] = impl
	return nil
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []domain.Rule {
	out := make([]domain.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Actions lists action names with contributed implementations.
func (r *PluginRegistry) Actions() []string {
	out := make([]string, 0, len(r.actions))
	for name := range r.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name    string
	Version string
	Rules   []string
	Actions []string
}
