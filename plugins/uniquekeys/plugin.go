// Package uniquekeys provides a plugin that rejects create-style actions
// whose primary key parameter names an object that already exists. Without
// it the collision only surfaces as a conflict error from the edit batch.
package uniquekeys

import (
	"context"
	"fmt"

	"ontosim/internal/core"
	"ontosim/pkg/domain"
)

// RuleName identifies the contributed submission criterion.
const RuleName = "primary_key_available"

// Plugin contributes the primary key availability rule.
type Plugin struct {
	ontology domain.Ontology
	actions  map[string]struct{}
}

// New constructs the plugin. When actions is empty the rule applies to every
// action type.
func New(ontology domain.Ontology, actions ...string) Plugin {
	p := Plugin{ontology: ontology, actions: make(map[string]struct{}, len(actions))}
	for _, a := range actions {
		p.actions[a] = struct{}{}
	}
	return p
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "uniquekeys" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the rule into the registry.
func (p Plugin) Register(registry *core.PluginRegistry) error {
	if p.ontology == nil {
		return fmt.Errorf("uniquekeys: ontology required")
	}
	registry.RegisterRule(availabilityRule{ontology: p.ontology, actions: p.actions})
	return nil
}

type availabilityRule struct {
	ontology domain.Ontology
	actions  map[string]struct{}
}

func (availabilityRule) Name() string { return RuleName }

func (r availabilityRule) Evaluate(_ context.Context, view domain.RuleView, def domain.ActionTypeDefinition, params map[string]any) (domain.Result, error) {
	var result domain.Result
	if len(r.actions) > 0 {
		if _, ok := r.actions[def.APIName]; !ok {
			return result, nil
		}
	}
	for _, objectType := range def.ModifiedEntities {
		ot, err := r.ontology.ObjectType(objectType)
		if err != nil {
			return domain.Result{}, fmt.Errorf("%s: %w", RuleName, err)
		}
		param, declared := def.Parameter(ot.PrimaryKey)
		if !declared || param.Type == domain.ParamObject {
			continue
		}
		value, ok := params[param.APIName]
		if !ok {
			continue
		}
		if _, exists := view.GetObject(objectType, value); !exists {
			continue
		}
		result.Violations = append(result.Violations, domain.Violation{
			Rule:      RuleName,
			Severity:  domain.SeverityBlock,
			Message:   fmt.Sprintf("%s with primary key %v already exists", objectType, value),
			Parameter: param.APIName,
		})
	}
	return result, nil
}
