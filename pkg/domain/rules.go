package domain

import (
	"context"
	"sort"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether an action may proceed.
const (
	// SeverityBlock fails validation.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not fail validation.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed parameter check or submission criterion.
type Violation struct {
	Rule      string   `json:"rule"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Parameter string   `json:"parameter,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// ValidationOutcome is the overall verdict of action validation.
type ValidationOutcome string

// Validation verdicts.
const (
	ValidationValid   ValidationOutcome = "VALID"
	ValidationInvalid ValidationOutcome = "INVALID"
)

// ParameterEvaluation is the per-parameter part of a validation result.
type ParameterEvaluation struct {
	Result   ValidationOutcome `json:"result"`
	Required bool              `json:"required"`
	Messages []string          `json:"messages,omitempty"`
}

// ValidationResult is the inspectable outcome of validating an action
// request. An invalid result is an ordinary value, not an error.
type ValidationResult struct {
	Result             ValidationOutcome              `json:"result"`
	Parameters         map[string]ParameterEvaluation `json:"parameters"`
	SubmissionCriteria []Violation                    `json:"submissionCriteria"`
}

// Valid reports whether the request passed validation.
func (v ValidationResult) Valid() bool { return v.Result == ValidationValid }

// NewValidationResult folds parameter violations and rule output into a
// validation result.
func NewValidationResult(def ActionTypeDefinition, violations []Violation) ValidationResult {
	out := ValidationResult{
		Result:             ValidationValid,
		Parameters:         make(map[string]ParameterEvaluation, len(def.Parameters)),
		SubmissionCriteria: []Violation{},
	}
	for _, p := range def.Parameters {
		out.Parameters[p.APIName] = ParameterEvaluation{Result: ValidationValid, Required: p.Required}
	}
	for _, v := range violations {
		if v.Severity == SeverityBlock {
			out.Result = ValidationInvalid
		}
		if v.Parameter == "" {
			out.SubmissionCriteria = append(out.SubmissionCriteria, v)
			continue
		}
		eval := out.Parameters[v.Parameter]
		if v.Severity == SeverityBlock {
			eval.Result = ValidationInvalid
		}
		eval.Messages = append(eval.Messages, v.Message)
		out.Parameters[v.Parameter] = eval
	}
	return out
}

// RuleView provides read-only access to the object graph for rule
// evaluation.
type RuleView interface {
	GetObject(objectType string, primaryKey any) (Object, bool)
	ObjectsOfType(objectType string) []Object
}

// Rule is a submission criterion evaluated before an action is applied.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, def ActionTypeDefinition, params map[string]any) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	if rule == nil {
		return
	}
	e.rules = append(e.rules, rule)
}

// Names lists registered rule names in registration order.
func (e *RulesEngine) Names() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, def ActionTypeDefinition, params map[string]any) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, def, params)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	sort.SliceStable(combined.Violations, func(i, j int) bool {
		return combined.Violations[i].Parameter < combined.Violations[j].Parameter
	})
	return combined, nil
}
