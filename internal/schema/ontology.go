// Package schema provides a static, in-process implementation of the
// domain.Ontology collaborator, built programmatically or loaded from YAML.
package schema

import (
	"fmt"
	"sort"

	"ontosim/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.Ontology = (*StaticOntology)(nil)

// LinkSide declares one end of a link type.
type LinkSide struct {
	ObjectType  string             `yaml:"objectType"`
	APIName     string             `yaml:"apiName"`
	Cardinality domain.Cardinality `yaml:"cardinality"`
	ForeignKey  string             `yaml:"foreignKey,omitempty"`
}

// LinkType declares both sides of a logical link.
type LinkType struct {
	RID string   `yaml:"rid"`
	A   LinkSide `yaml:"a"`
	B   LinkSide `yaml:"b"`
}

// StaticOntology is a mutable, in-memory schema. Build it fully before
// handing it to a store.
type StaticOntology struct {
	objectTypes map[string]domain.ObjectTypeDefinition
	actionTypes map[string]domain.ActionTypeDefinition
	impls       map[string]domain.ActionImplementation
}

// New returns an empty ontology.
func New() *StaticOntology {
	return &StaticOntology{
		objectTypes: make(map[string]domain.ObjectTypeDefinition),
		actionTypes: make(map[string]domain.ActionTypeDefinition),
		impls:       make(map[string]domain.ActionImplementation),
	}
}

// AddObjectType declares an object type. The primary key property must be
// declared among the properties.
func (o *StaticOntology) AddObjectType(def domain.ObjectTypeDefinition) error {
	if def.APIName == "" {
		return fmt.Errorf("object type api name required")
	}
	if _, exists := o.objectTypes[def.APIName]; exists {
		return fmt.Errorf("object type %s already declared", def.APIName)
	}
	if _, ok := def.Properties[def.PrimaryKey]; !ok {
		return fmt.Errorf("object type %s: primary key %q is not a declared property", def.APIName, def.PrimaryKey)
	}
	if def.TitleProperty != "" {
		if _, ok := def.Properties[def.TitleProperty]; !ok {
			return fmt.Errorf("object type %s: title property %q is not declared", def.APIName, def.TitleProperty)
		}
	}
	cp := def
	cp.Properties = make(map[string]domain.PropertyDefinition, len(def.Properties))
	for name, p := range def.Properties {
		p.APIName = name
		cp.Properties[name] = p
	}
	cp.Links = make(map[string]domain.LinkDefinition)
	if cp.RID == "" {
		cp.RID = "ri.ontology.main.object-type." + def.APIName
	}
	o.objectTypes[def.APIName] = cp
	return nil
}

// AddLinkType declares both sides of a link. Foreign keys are only allowed on
// ONE sides and must name a declared property of the owning type.
func (o *StaticOntology) AddLinkType(lt LinkType) error {
	if lt.RID == "" {
		lt.RID = fmt.Sprintf("ri.ontology.main.link-type.%s.%s.%s.%s", lt.A.ObjectType, lt.A.APIName, lt.B.ObjectType, lt.B.APIName)
	}
	for _, side := range []LinkSide{lt.A, lt.B} {
		def, ok := o.objectTypes[side.ObjectType]
		if !ok {
			return fmt.Errorf("link %s: unknown object type %s", lt.RID, side.ObjectType)
		}
		if side.APIName == "" {
			return fmt.Errorf("link %s: side on %s has no api name", lt.RID, side.ObjectType)
		}
		if _, dup := def.Links[side.APIName]; dup {
			return fmt.Errorf("link %s: %s.%s already declared", lt.RID, side.ObjectType, side.APIName)
		}
		switch side.Cardinality {
		case domain.CardinalityOne:
		case domain.CardinalityMany:
			if side.ForeignKey != "" {
				return fmt.Errorf("link %s: MANY side %s.%s cannot declare a foreign key", lt.RID, side.ObjectType, side.APIName)
			}
		default:
			return fmt.Errorf("link %s: invalid cardinality %q", lt.RID, side.Cardinality)
		}
		if side.ForeignKey != "" {
			if _, ok := def.Properties[side.ForeignKey]; !ok {
				return fmt.Errorf("link %s: foreign key %s is not a property of %s", lt.RID, side.ForeignKey, side.ObjectType)
			}
		}
	}
	if lt.A.ObjectType == lt.B.ObjectType && lt.A.APIName == lt.B.APIName {
		return fmt.Errorf("link %s: both sides share the name %s", lt.RID, lt.A.APIName)
	}
	o.objectTypes[lt.A.ObjectType].Links[lt.A.APIName] = sideDefinition(lt.RID, lt.A, lt.B)
	o.objectTypes[lt.B.ObjectType].Links[lt.B.APIName] = sideDefinition(lt.RID, lt.B, lt.A)
	return nil
}

func sideDefinition(rid string, self, other LinkSide) domain.LinkDefinition {
	return domain.LinkDefinition{
		APIName:            self.APIName,
		ObjectType:         self.ObjectType,
		TargetType:         other.ObjectType,
		Cardinality:        self.Cardinality,
		ForeignKeyProperty: self.ForeignKey,
		LinkTypeRID:        rid,
		ReverseAPIName:     other.APIName,
	}
}

// AddActionType declares an action type with an optional implementation.
func (o *StaticOntology) AddActionType(def domain.ActionTypeDefinition, impl domain.ActionImplementation) error {
	if def.APIName == "" {
		return fmt.Errorf("action type api name required")
	}
	if _, exists := o.actionTypes[def.APIName]; exists {
		return fmt.Errorf("action type %s already declared", def.APIName)
	}
	seen := make(map[string]struct{}, len(def.Parameters))
	for _, p := range def.Parameters {
		if _, dup := seen[p.APIName]; dup {
			return fmt.Errorf("action type %s: duplicate parameter %s", def.APIName, p.APIName)
		}
		seen[p.APIName] = struct{}{}
		if p.Type == domain.ParamObject {
			if _, ok := o.objectTypes[p.ObjectType]; !ok {
				return fmt.Errorf("action type %s: parameter %s references unknown object type %q", def.APIName, p.APIName, p.ObjectType)
			}
		}
	}
	if def.RID == "" {
		def.RID = "ri.actions.main.action-type." + def.APIName
	}
	def.Parameters = append([]domain.ActionParameter(nil), def.Parameters...)
	o.actionTypes[def.APIName] = def
	if impl != nil {
		o.impls[def.APIName] = impl
	}
	return nil
}

// SetImplementation binds or replaces the implementation of a declared
// action type.
func (o *StaticOntology) SetImplementation(action string, impl domain.ActionImplementation) error {
	if _, ok := o.actionTypes[action]; !ok {
		return &domain.NotFoundError{Kind: "action type", Detail: action}
	}
	o.impls[action] = impl
	return nil
}

// ObjectType implements domain.Ontology.
func (o *StaticOntology) ObjectType(apiName string) (domain.ObjectTypeDefinition, error) {
	def, ok := o.objectTypes[apiName]
	if !ok {
		return domain.ObjectTypeDefinition{}, &domain.NotFoundError{Kind: "object type", Detail: apiName}
	}
	return def, nil
}

// LinkSides implements domain.Ontology.
func (o *StaticOntology) LinkSides(objectType, linkAPIName string) (domain.LinkSides, error) {
	def, err := o.ObjectType(objectType)
	if err != nil {
		return domain.LinkSides{}, err
	}
	src, ok := def.Links[linkAPIName]
	if !ok {
		return domain.LinkSides{}, &domain.NotFoundError{Kind: "link type", ObjectType: objectType, Detail: linkAPIName}
	}
	tgt, ok := o.objectTypes[src.TargetType].Links[src.ReverseAPIName]
	if !ok {
		return domain.LinkSides{}, &domain.NotFoundError{Kind: "link type", ObjectType: src.TargetType, Detail: src.ReverseAPIName}
	}
	return domain.LinkSides{Source: src, Target: tgt}, nil
}

// ActionType implements domain.Ontology.
func (o *StaticOntology) ActionType(apiName string) (domain.ActionTypeDefinition, error) {
	def, ok := o.actionTypes[apiName]
	if !ok {
		return domain.ActionTypeDefinition{}, &domain.NotFoundError{Kind: "action type", Detail: apiName}
	}
	return def, nil
}

// ActionImplementation implements domain.Ontology.
func (o *StaticOntology) ActionImplementation(apiName string) (domain.ActionImplementation, bool) {
	impl, ok := o.impls[apiName]
	return impl, ok
}

// ObjectTypeNames lists declared object types in name order.
func (o *StaticOntology) ObjectTypeNames() []string {
	out := make([]string, 0, len(o.objectTypes))
	for name := range o.objectTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ActionTypeNames lists declared action types in name order.
func (o *StaticOntology) ActionTypeNames() []string {
	out := make([]string, 0, len(o.actionTypes))
	for name := range o.actionTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
