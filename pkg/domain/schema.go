package domain

import "context"

// PropertyType names the declared data type of an object property.
type PropertyType string

// Property types understood by the store. Only timeseries, mediaReference and
// attachment change store behaviour; the rest are carried for validation.
const (
	PropertyString         PropertyType = "string"
	PropertyInteger        PropertyType = "integer"
	PropertyLong           PropertyType = "long"
	PropertyDouble         PropertyType = "double"
	PropertyBoolean        PropertyType = "boolean"
	PropertyTimestamp      PropertyType = "timestamp"
	PropertyDate           PropertyType = "date"
	PropertyTimeSeries     PropertyType = "timeseries"
	PropertyMediaReference PropertyType = "mediaReference"
	PropertyAttachment     PropertyType = "attachment"
	PropertyGeoPoint       PropertyType = "geopoint"
	PropertyArray          PropertyType = "array"
)

// Cardinality is the multiplicity of one side of a link.
type Cardinality string

// Link side cardinalities.
const (
	CardinalityOne  Cardinality = "ONE"
	CardinalityMany Cardinality = "MANY"
)

// PropertyDefinition declares a single property on an object type.
type PropertyDefinition struct {
	APIName     string       `json:"apiName" yaml:"apiName"`
	Type        PropertyType `json:"type" yaml:"type"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
}

// LinkDefinition declares one side of a link. Both sides of a logical link
// share LinkTypeRID.
type LinkDefinition struct {
	APIName            string      `json:"apiName" yaml:"apiName"`
	ObjectType         string      `json:"objectType" yaml:"objectType"`
	TargetType         string      `json:"targetType" yaml:"targetType"`
	Cardinality        Cardinality `json:"cardinality" yaml:"cardinality"`
	ForeignKeyProperty string      `json:"foreignKeyPropertyApiName,omitempty" yaml:"foreignKey,omitempty"`
	LinkTypeRID        string      `json:"linkTypeRid" yaml:"linkTypeRid"`
	ReverseAPIName     string      `json:"reverseApiName" yaml:"reverse"`
}

// LinkSides pairs the definition of a link side with its reciprocal.
type LinkSides struct {
	Source LinkDefinition
	Target LinkDefinition
}

// ObjectTypeDefinition is the schema of an object type.
type ObjectTypeDefinition struct {
	APIName       string                        `json:"apiName"`
	RID           string                        `json:"rid,omitempty"`
	PrimaryKey    string                        `json:"primaryKey"`
	TitleProperty string                        `json:"titleProperty,omitempty"`
	Properties    map[string]PropertyDefinition `json:"properties"`
	Links         map[string]LinkDefinition     `json:"links"`
}

// Property returns the named property definition.
func (d ObjectTypeDefinition) Property(name string) (PropertyDefinition, bool) {
	p, ok := d.Properties[name]
	return p, ok
}

// ParameterType names the declared type of an action parameter.
type ParameterType string

// Action parameter types.
const (
	ParamString     ParameterType = "string"
	ParamInteger    ParameterType = "integer"
	ParamLong       ParameterType = "long"
	ParamDouble     ParameterType = "double"
	ParamBoolean    ParameterType = "boolean"
	ParamTimestamp  ParameterType = "timestamp"
	ParamDate       ParameterType = "date"
	ParamObject     ParameterType = "object"
	ParamAttachment ParameterType = "attachment"
	ParamArray      ParameterType = "array"
)

// ActionParameter declares one parameter of an action type.
type ActionParameter struct {
	APIName     string        `json:"apiName" yaml:"apiName"`
	Type        ParameterType `json:"type" yaml:"type"`
	Required    bool          `json:"required" yaml:"required"`
	ObjectType  string        `json:"objectTypeApiName,omitempty" yaml:"objectType,omitempty"`
	ItemType    ParameterType `json:"itemType,omitempty" yaml:"itemType,omitempty"`
	OneOf       []string      `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// ActionTypeDefinition is the schema of an action type.
type ActionTypeDefinition struct {
	APIName     string            `json:"apiName"`
	RID         string            `json:"rid,omitempty"`
	Description string            `json:"description,omitempty"`
	Parameters  []ActionParameter `json:"parameters"`
	// ModifiedEntities lists object types the action may touch.
	ModifiedEntities []string `json:"modifiedEntities,omitempty"`
}

// Parameter returns the named parameter definition.
func (d ActionTypeDefinition) Parameter(name string) (ActionParameter, bool) {
	for _, p := range d.Parameters {
		if p.APIName == name {
			return p, true
		}
	}
	return ActionParameter{}, false
}

// ActionContext carries the resolved definitions handed to an action
// implementation.
type ActionContext struct {
	Action   ActionTypeDefinition
	Ontology Ontology
}

// ActionImplementation performs the effect of an action against an edit
// batch. Returning a non-nil response bypasses edit reporting; the response
// is passed through unchanged.
type ActionImplementation func(ctx context.Context, batch EditBatch, req ActionRequest, actx ActionContext) (*ActionResponse, error)

// Ontology supplies schema metadata. Implementations are owned by the caller
// and outlive store resets.
type Ontology interface {
	ObjectType(apiName string) (ObjectTypeDefinition, error)
	LinkSides(objectType, linkAPIName string) (LinkSides, error)
	ActionType(apiName string) (ActionTypeDefinition, error)
	ActionImplementation(apiName string) (ActionImplementation, bool)
}

// AttachmentMetadata describes an uploaded attachment.
type AttachmentMetadata struct {
	RID       string `json:"rid"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"sizeBytes"`
	MediaType string `json:"mediaType"`
}

// AttachmentStore serves attachment bytes by resource id. It is owned by the
// caller and untouched by store resets.
type AttachmentStore interface {
	Metadata(ctx context.Context, rid string) (AttachmentMetadata, error)
	Content(ctx context.Context, rid string) ([]byte, error)
}
