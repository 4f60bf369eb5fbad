// Package domain defines the objects, schema definitions, collaborator
// interfaces, edit reports, and rule evaluation primitives used by ontosim.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Object is a typed, primary-keyed record. Values handed out by the store are
// deep copies; mutate a copy and replace the whole object to change state.
type Object struct {
	ObjectType string         `json:"$objectType" yaml:"objectType"`
	PrimaryKey any            `json:"$primaryKey" yaml:"primaryKey"`
	RID        string         `json:"$rid,omitempty" yaml:"rid,omitempty"`
	Title      string         `json:"$title,omitempty" yaml:"title,omitempty"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

// Locator returns the value identity of the object.
func (o Object) Locator() (Locator, error) {
	return NewLocator(o.ObjectType, o.PrimaryKey)
}

// Property returns the named property value and whether it was present.
func (o Object) Property(name string) (any, bool) {
	v, ok := o.Properties[name]
	return v, ok
}

// With returns a copy of the object with the named property set. A nil value
// clears the property.
func (o Object) With(name string, value any) Object {
	cp := o.Clone()
	if value == nil {
		delete(cp.Properties, name)
		return cp
	}
	cp.Properties[name] = cloneValue(value)
	return cp
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	cp := o
	cp.Properties = make(map[string]any, len(o.Properties))
	for k, v := range o.Properties {
		cp.Properties[k] = cloneValue(v)
	}
	return cp
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// Locator is the (object type, primary key) identity of an object. It is a
// comparable value used as a map key; it never points into the object store.
type Locator struct {
	ObjectType string `json:"objectType" yaml:"objectType"`
	Key        string `json:"key" yaml:"key"`
}

// NewLocator builds a locator from an object type and raw primary key value.
func NewLocator(objectType string, primaryKey any) (Locator, error) {
	key, err := EncodePrimaryKey(primaryKey)
	if err != nil {
		return Locator{}, fmt.Errorf("locator for %s: %w", objectType, err)
	}
	return Locator{ObjectType: objectType, Key: key}, nil
}

func (l Locator) String() string {
	return l.ObjectType + ":" + l.Key
}

// PrimaryKeyValue decodes the locator key back into a primary key value.
// Numeric keys decode to float64.
func (l Locator) PrimaryKeyValue() any {
	v, err := DecodePrimaryKey(l.Key)
	if err != nil {
		return l.Key
	}
	return v
}

// EncodePrimaryKey renders a primary key as a canonical string. All numeric
// kinds share one encoding so 1, int64(1) and 1.0 address the same object.
func EncodePrimaryKey(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return "s:" + t, nil
	case bool:
		return "b:" + strconv.FormatBool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return "", fmt.Errorf("primary key %q is not numeric: %w", t, err)
		}
		return encodeNumber(f)
	case nil:
		return "", fmt.Errorf("primary key is null")
	}
	if f, ok := toFloat(v); ok {
		return encodeNumber(f)
	}
	return "", fmt.Errorf("unsupported primary key type %T", v)
}

// DecodePrimaryKey reverses EncodePrimaryKey.
func DecodePrimaryKey(key string) (any, error) {
	if len(key) < 2 || key[1] != ':' {
		return nil, fmt.Errorf("malformed primary key %q", key)
	}
	body := key[2:]
	switch key[0] {
	case 's':
		return body, nil
	case 'b':
		return strconv.ParseBool(body)
	case 'n':
		return strconv.ParseFloat(body, 64)
	default:
		return nil, fmt.Errorf("malformed primary key %q", key)
	}
}

func encodeNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("primary key %v is not finite", f)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// CompareValues orders two property values. Nil sorts after everything else;
// values of different kinds compare by their formatted representation.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// ValuesEqual reports whether two primary-key-like values are the same under
// primary key encoding, falling back to formatted comparison.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ea, errA := EncodePrimaryKey(a)
	eb, errB := EncodePrimaryKey(b)
	if errA == nil && errB == nil {
		return ea == eb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
