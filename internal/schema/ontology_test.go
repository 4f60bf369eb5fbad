package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ontosim/pkg/domain"
)

const libraryYAML = `
objectTypes:
  Book:
    primaryKey: isbn
    titleProperty: title
    properties:
      isbn: string
      title: {type: string, description: Printed title}
      authorId: integer
  Author:
    rid: ri.custom.author
    primaryKey: authorId
    properties:
      authorId: integer
links:
  - a: {objectType: Book, apiName: author, cardinality: ONE, foreignKey: authorId}
    b: {objectType: Author, apiName: books, cardinality: MANY}
actionTypes:
  publish:
    description: Adds a book.
    modifiedEntities: [Book]
    parameters:
      - {apiName: isbn, type: string, required: true}
      - {apiName: author, type: object, objectType: Author}
`

func TestParse(t *testing.T) {
	o, err := Parse([]byte(libraryYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := o.ObjectTypeNames(); strings.Join(got, ",") != "Author,Book" {
		t.Fatalf("unexpected object types %v", got)
	}
	book, err := o.ObjectType("Book")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if book.RID != "ri.ontology.main.object-type.Book" || book.TitleProperty != "title" {
		t.Fatalf("unexpected book definition %+v", book)
	}
	if p, ok := book.Property("title"); !ok || p.Type != domain.PropertyString || p.Description != "Printed title" || p.APIName != "title" {
		t.Fatalf("unexpected title property %+v", p)
	}
	if author, _ := o.ObjectType("Author"); author.RID != "ri.custom.author" {
		t.Fatalf("explicit rid not kept: %q", author.RID)
	}

	sides, err := o.LinkSides("Book", "author")
	if err != nil {
		t.Fatalf("link sides: %v", err)
	}
	if sides.Source.Cardinality != domain.CardinalityOne || sides.Source.ForeignKeyProperty != "authorId" || sides.Source.TargetType != "Author" {
		t.Fatalf("unexpected source side %+v", sides.Source)
	}
	if sides.Target.APIName != "books" || sides.Target.Cardinality != domain.CardinalityMany || sides.Target.LinkTypeRID != sides.Source.LinkTypeRID {
		t.Fatalf("unexpected target side %+v", sides.Target)
	}
	reverse, err := o.LinkSides("Author", "books")
	if err != nil || reverse.Target.APIName != "author" {
		t.Fatalf("unexpected reverse sides %+v %v", reverse, err)
	}

	action, err := o.ActionType("publish")
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	if p, ok := action.Parameter("author"); !ok || p.Type != domain.ParamObject || p.ObjectType != "Author" {
		t.Fatalf("unexpected author parameter %+v", p)
	}
	if action.RID != "ri.actions.main.action-type.publish" || action.ModifiedEntities[0] != "Book" {
		t.Fatalf("unexpected action %+v", action)
	}
	if _, ok := o.ActionImplementation("publish"); ok {
		t.Fatalf("YAML cannot bind implementations")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"malformed", "objectTypes: [", "failed to parse ontology"},
		{"untyped property", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: {description: x}\n", "property id has no type"},
		{"undeclared primary key", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      name: string\n", `primary key "id"`},
		{"undeclared title", "objectTypes:\n  A:\n    primaryKey: id\n    titleProperty: name\n    properties:\n      id: string\n", `title property "name"`},
		{"link to unknown type", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nlinks:\n  - a: {objectType: A, apiName: b, cardinality: ONE}\n    b: {objectType: B, apiName: a, cardinality: MANY}\n", "unknown object type B"},
		{"foreign key on many", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nlinks:\n  - a: {objectType: A, apiName: x, cardinality: MANY, foreignKey: id}\n    b: {objectType: A, apiName: y, cardinality: MANY}\n", "cannot declare a foreign key"},
		{"bad cardinality", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nlinks:\n  - a: {objectType: A, apiName: x, cardinality: SOME}\n    b: {objectType: A, apiName: y, cardinality: ONE}\n", `invalid cardinality "SOME"`},
		{"undeclared foreign key", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nlinks:\n  - a: {objectType: A, apiName: x, cardinality: ONE, foreignKey: parentId}\n    b: {objectType: A, apiName: y, cardinality: MANY}\n", "foreign key parentId is not a property of A"},
		{"self named link", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nlinks:\n  - a: {objectType: A, apiName: peer, cardinality: ONE}\n    b: {objectType: A, apiName: peer, cardinality: ONE}\n", "both sides share the name peer"},
		{"action with unknown object", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nactionTypes:\n  go:\n    parameters:\n      - {apiName: target, type: object, objectType: B}\n", `unknown object type "B"`},
		{"duplicate parameter", "objectTypes:\n  A:\n    primaryKey: id\n    properties:\n      id: string\nactionTypes:\n  go:\n    parameters:\n      - {apiName: x, type: string}\n      - {apiName: x, type: integer}\n", "duplicate parameter x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.yaml")
	if err := os.WriteFile(path, []byte(libraryYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil || !strings.Contains(err.Error(), "failed to read ontology file") {
		t.Fatalf("expected read error, got %v", err)
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("objectTypes: ["), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(bad); err == nil || !strings.Contains(err.Error(), "ontology file "+bad) {
		t.Fatalf("expected wrapped parse error, got %v", err)
	}
}

func TestBuilder(t *testing.T) {
	o := New()
	props := map[string]domain.PropertyDefinition{"id": {Type: domain.PropertyString}}
	if err := o.AddObjectType(domain.ObjectTypeDefinition{APIName: "Node", PrimaryKey: "id", Properties: props}); err != nil {
		t.Fatalf("add type: %v", err)
	}
	if err := o.AddObjectType(domain.ObjectTypeDefinition{APIName: "Node", PrimaryKey: "id", Properties: props}); err == nil {
		t.Fatalf("expected duplicate type error")
	}
	if err := o.AddObjectType(domain.ObjectTypeDefinition{PrimaryKey: "id", Properties: props}); err == nil {
		t.Fatalf("expected missing name error")
	}
	props["extra"] = domain.PropertyDefinition{Type: domain.PropertyString}
	if def, _ := o.ObjectType("Node"); len(def.Properties) != 1 {
		t.Fatalf("definitions must be copied on add")
	}

	link := LinkType{
		A: LinkSide{ObjectType: "Node", APIName: "next", Cardinality: domain.CardinalityOne},
		B: LinkSide{ObjectType: "Node", APIName: "previous", Cardinality: domain.CardinalityOne},
	}
	if err := o.AddLinkType(link); err != nil {
		t.Fatalf("add link: %v", err)
	}
	if err := o.AddLinkType(link); err == nil || !strings.Contains(err.Error(), "Node.next already declared") {
		t.Fatalf("expected duplicate side error, got %v", err)
	}
	if err := o.AddLinkType(LinkType{A: LinkSide{ObjectType: "Node", Cardinality: domain.CardinalityOne}, B: link.B}); err == nil {
		t.Fatalf("expected missing side name error")
	}
	if _, err := o.LinkSides("Node", "sideways"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown link, got %v", err)
	}
	if _, err := o.LinkSides("Edge", "next"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown type, got %v", err)
	}

	calls := 0
	impl := func(context.Context, domain.EditBatch, domain.ActionRequest, domain.ActionContext) (*domain.ActionResponse, error) {
		calls++
		return nil, nil
	}
	if err := o.AddActionType(domain.ActionTypeDefinition{APIName: "touch"}, impl); err != nil {
		t.Fatalf("add action: %v", err)
	}
	if err := o.AddActionType(domain.ActionTypeDefinition{APIName: "touch"}, nil); err == nil {
		t.Fatalf("expected duplicate action error")
	}
	bound, ok := o.ActionImplementation("touch")
	if !ok {
		t.Fatalf("expected bound implementation")
	}
	_, _ = bound(context.Background(), nil, domain.ActionRequest{}, domain.ActionContext{})
	if calls != 1 {
		t.Fatalf("expected implementation to be callable")
	}
	if err := o.SetImplementation("untouch", impl); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown action, got %v", err)
	}
	if _, err := o.ActionType("untouch"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown action type, got %v", err)
	}
	if got := o.ActionTypeNames(); len(got) != 1 || got[0] != "touch" {
		t.Fatalf("unexpected action names %v", got)
	}
}
