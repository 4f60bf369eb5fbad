package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ontosim/pkg/domain"
)

// Document is the YAML shape of an ontology file.
type Document struct {
	ObjectTypes map[string]objectTypeDoc `yaml:"objectTypes"`
	Links       []LinkType               `yaml:"links"`
	ActionTypes map[string]actionTypeDoc `yaml:"actionTypes"`
}

type objectTypeDoc struct {
	RID           string                 `yaml:"rid"`
	PrimaryKey    string                 `yaml:"primaryKey"`
	TitleProperty string                 `yaml:"titleProperty"`
	Properties    map[string]propertyDoc `yaml:"properties"`
}

type actionTypeDoc struct {
	RID              string                   `yaml:"rid"`
	Description      string                   `yaml:"description"`
	Parameters       []domain.ActionParameter `yaml:"parameters"`
	ModifiedEntities []string                 `yaml:"modifiedEntities"`
}

// propertyDoc accepts either a bare type name or a mapping with type and
// description.
type propertyDoc struct {
	Type        domain.PropertyType `yaml:"type"`
	Description string              `yaml:"description"`
}

func (p *propertyDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Type = domain.PropertyType(node.Value)
		return nil
	}
	type plain propertyDoc
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*p = propertyDoc(out)
	return nil
}

// LoadFile reads and parses an ontology YAML file.
func LoadFile(path string) (*StaticOntology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology file %s: %w", path, err)
	}
	o, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("ontology file %s: %w", path, err)
	}
	return o, nil
}

// Parse builds an ontology from YAML. Action implementations cannot be
// expressed in YAML; bind them afterwards with SetImplementation.
func Parse(data []byte) (*StaticOntology, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ontology: %w", err)
	}
	o := New()
	for _, name := range sortedKeys(doc.ObjectTypes) {
		ot := doc.ObjectTypes[name]
		def := domain.ObjectTypeDefinition{
			APIName:       name,
			RID:           ot.RID,
			PrimaryKey:    ot.PrimaryKey,
			TitleProperty: ot.TitleProperty,
			Properties:    make(map[string]domain.PropertyDefinition, len(ot.Properties)),
		}
		for prop, pd := range ot.Properties {
			if pd.Type == "" {
				return nil, fmt.Errorf("object type %s: property %s has no type", name, prop)
			}
			def.Properties[prop] = domain.PropertyDefinition{APIName: prop, Type: pd.Type, Description: pd.Description}
		}
		if err := o.AddObjectType(def); err != nil {
			return nil, err
		}
	}
	for _, lt := range doc.Links {
		if err := o.AddLinkType(lt); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(doc.ActionTypes) {
		at := doc.ActionTypes[name]
		def := domain.ActionTypeDefinition{
			APIName:          name,
			RID:              at.RID,
			Description:      at.Description,
			Parameters:       at.Parameters,
			ModifiedEntities: at.ModifiedEntities,
		}
		if err := o.AddActionType(def, nil); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
