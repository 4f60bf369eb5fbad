package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"ontosim/pkg/domain"
)

const ruleParameterShape = "parameter_shape"

const dateLayout = "2006-01-02"

// validateAction checks parameter shape and evaluates submission criteria.
// The coerced parameters are returned for the implementation.
func (s *Store) validateAction(ctx context.Context, view domain.RuleView, def domain.ActionTypeDefinition, supplied map[string]any) (domain.ValidationResult, map[string]any, error) {
	cleaned, violations := validateParameters(def, supplied)
	res, err := s.opts.rules.Evaluate(ctx, view, def, cleaned)
	if err != nil {
		return domain.ValidationResult{}, nil, fmt.Errorf("evaluate rules for %s: %w", def.APIName, err)
	}
	violations = append(violations, res.Violations...)
	return domain.NewValidationResult(def, violations), cleaned, nil
}

func validateParameters(def domain.ActionTypeDefinition, supplied map[string]any) (map[string]any, []domain.Violation) {
	cleaned := make(map[string]any, len(supplied))
	var violations []domain.Violation
	provided := make(map[string]struct{}, len(supplied))
	for k := range supplied {
		provided[k] = struct{}{}
	}
	for _, param := range def.Parameters {
		raw, ok := supplied[param.APIName]
		delete(provided, param.APIName)
		if !ok || raw == nil {
			if param.Required {
				violations = append(violations, shapeViolation(param.APIName, "required parameter missing"))
			}
			continue
		}
		coerced, err := coerceParameter(param, raw)
		if err != nil {
			violations = append(violations, shapeViolation(param.APIName, err.Error()))
			continue
		}
		cleaned[param.APIName] = coerced
	}
	leftovers := make([]string, 0, len(provided))
	for name := range provided {
		leftovers = append(leftovers, name)
	}
	sort.Strings(leftovers)
	for _, name := range leftovers {
		violations = append(violations, domain.Violation{
			Rule:     ruleParameterShape,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("parameter %s not declared", name),
		})
	}
	sort.SliceStable(violations, func(i, j int) bool { return violations[i].Parameter < violations[j].Parameter })
	return cleaned, violations
}

func shapeViolation(param, msg string) domain.Violation {
	return domain.Violation{Rule: ruleParameterShape, Severity: domain.SeverityBlock, Message: msg, Parameter: param}
}

func coerceParameter(param domain.ActionParameter, raw any) (any, error) {
	v, err := coerceValue(param, param.Type, raw)
	if err != nil {
		return nil, err
	}
	if len(param.OneOf) > 0 {
		if !containsString(param.OneOf, fmt.Sprint(v)) {
			return nil, fmt.Errorf("value must be one of: %s", strings.Join(param.OneOf, ", "))
		}
	}
	return v, nil
}

func coerceValue(param domain.ActionParameter, typ domain.ParameterType, raw any) (any, error) {
	switch typ {
	case domain.ParamString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		default:
			return nil, fmt.Errorf("expects string")
		}
	case domain.ParamInteger, domain.ParamLong:
		n, ok := integerValue(raw)
		if !ok {
			return nil, fmt.Errorf("expects %s", typ)
		}
		if typ == domain.ParamInteger {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("integer out of range")
			}
			return int(n), nil
		}
		return n, nil
	case domain.ParamDouble:
		switch v := raw.(type) {
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("expects double")
			}
			return f, nil
		case bool:
			return nil, fmt.Errorf("expects double")
		}
		f, ok := floatValue(raw)
		if !ok {
			return nil, fmt.Errorf("expects double")
		}
		return f, nil
	case domain.ParamBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expects boolean")
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expects boolean")
		}
	case domain.ParamTimestamp:
		switch v := raw.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("expects RFC3339 timestamp")
			}
			return t.UTC(), nil
		default:
			return nil, fmt.Errorf("expects timestamp")
		}
	case domain.ParamDate:
		switch v := raw.(type) {
		case time.Time:
			return v.Format(dateLayout), nil
		case string:
			if _, err := time.Parse(dateLayout, v); err != nil {
				return nil, fmt.Errorf("expects date formatted as %s", dateLayout)
			}
			return v, nil
		default:
			return nil, fmt.Errorf("expects date")
		}
	case domain.ParamObject:
		pk, err := objectReference(param.ObjectType, raw)
		if err != nil {
			return nil, err
		}
		return pk, nil
	case domain.ParamAttachment:
		rid, ok := raw.(string)
		if !ok || strings.TrimSpace(rid) == "" {
			return nil, fmt.Errorf("expects attachment rid")
		}
		return rid, nil
	case domain.ParamArray:
		items, ok := arrayItems(raw)
		if !ok {
			return nil, fmt.Errorf("expects array")
		}
		if param.ItemType == "" {
			return items, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceValue(param, param.ItemType, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", typ)
	}
}

// objectReference reduces an object parameter to its primary key. Objects,
// locators and bare primary keys are accepted.
func objectReference(objectType string, raw any) (any, error) {
	switch v := raw.(type) {
	case domain.Object:
		if objectType != "" && v.ObjectType != objectType {
			return nil, fmt.Errorf("expects %s object, got %s", objectType, v.ObjectType)
		}
		if v.PrimaryKey == nil {
			return nil, fmt.Errorf("object reference has no primary key")
		}
		return v.PrimaryKey, nil
	case *domain.Object:
		if v == nil {
			return nil, fmt.Errorf("object reference is nil")
		}
		return objectReference(objectType, *v)
	case domain.Locator:
		if objectType != "" && v.ObjectType != objectType {
			return nil, fmt.Errorf("expects %s object, got %s", objectType, v.ObjectType)
		}
		return v.PrimaryKeyValue(), nil
	case map[string]any:
		pk, ok := v["$primaryKey"]
		if !ok {
			return nil, fmt.Errorf("object reference requires $primaryKey")
		}
		return objectReference(objectType, pk)
	}
	if _, err := domain.EncodePrimaryKey(raw); err != nil {
		return nil, fmt.Errorf("expects object reference: %w", err)
	}
	return raw, nil
}

func integerValue(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	f, ok := floatValue(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func floatValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func arrayItems(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return append([]any(nil), v...), true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func containsString(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}
