package core

import (
	"context"
	"fmt"

	"ontosim/pkg/domain"
)

// NewObjectParameterRule returns the built-in rule requiring object
// parameters to reference registered objects of the declared type.
func NewObjectParameterRule() domain.Rule {
	return objectParameterRule{}
}

type objectParameterRule struct{}

func (objectParameterRule) Name() string { return "object_parameter_exists" }

func (r objectParameterRule) Evaluate(_ context.Context, view domain.RuleView, def domain.ActionTypeDefinition, params map[string]any) (domain.Result, error) {
	res := domain.Result{}
	for _, param := range def.Parameters {
		value, ok := params[param.APIName]
		if !ok {
			continue
		}
		var keys []any
		switch {
		case param.Type == domain.ParamObject:
			keys = []any{value}
		case param.Type == domain.ParamArray && param.ItemType == domain.ParamObject:
			items, _ := value.([]any)
			keys = items
		default:
			continue
		}
		for _, pk := range keys {
			if _, found := view.GetObject(param.ObjectType, pk); found {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      r.Name(),
				Severity:  domain.SeverityBlock,
				Message:   fmt.Sprintf("%s with primary key %v does not exist", param.ObjectType, pk),
				Parameter: param.APIName,
			})
		}
	}
	return res, nil
}
