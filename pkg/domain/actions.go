package domain

import "sort"

// ActionRequest names an action type and supplies its parameter values.
type ActionRequest struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// ApplyMode selects whether an action is executed or only validated.
type ApplyMode string

// Apply modes.
const (
	ModeValidateAndExecute ApplyMode = "VALIDATE_AND_EXECUTE"
	ModeValidateOnly       ApplyMode = "VALIDATE_ONLY"
)

// ReturnEditsMode selects the granularity of the returned edit report.
type ReturnEditsMode string

// Edit report granularities.
const (
	ReturnEditsNone             ReturnEditsMode = "NONE"
	ReturnEditsAll              ReturnEditsMode = "ALL"
	ReturnEditsAllWithDeletions ReturnEditsMode = "ALL_V2_WITH_DELETIONS"
	ReturnEditsLargeScale       ReturnEditsMode = "LARGE_SCALE"
)

// ApplyActionOptions configures a single or batched action application.
type ApplyActionOptions struct {
	Mode        ApplyMode
	ReturnEdits ReturnEditsMode
}

// EditKind identifies one entry of an edit batch.
type EditKind string

// Edit kinds.
const (
	EditAddObject    EditKind = "addObject"
	EditModifyObject EditKind = "modifyObject"
	EditDeleteObject EditKind = "deleteObject"
	EditAddLink      EditKind = "addLink"
	EditDeleteLink   EditKind = "deleteLink"
)

// Edit is a single object or link change recorded in an edit batch.
type Edit struct {
	Kind       EditKind `json:"type"`
	ObjectType string   `json:"objectType,omitempty"`
	PrimaryKey any      `json:"primaryKey,omitempty"`

	LinkTypeAPINameAtoB string   `json:"linkTypeApiNameAtoB,omitempty"`
	LinkTypeAPINameBtoA string   `json:"linkTypeApiNameBtoA,omitempty"`
	ASide               *Locator `json:"aSideObject,omitempty"`
	BSide               *Locator `json:"bSideObject,omitempty"`
}

// IsDeletion reports whether the edit removes an object or link.
func (e Edit) IsDeletion() bool {
	return e.Kind == EditDeleteObject || e.Kind == EditDeleteLink
}

// EditsType distinguishes itemized from summarized edit reports.
type EditsType string

// Edit report shapes.
const (
	EditsItemized   EditsType = "edits"
	EditsLargeScale EditsType = "largeScaleEdits"
)

// ActionEdits is the edit report of a successful action application.
type ActionEdits struct {
	Type                EditsType `json:"type"`
	Edits               []Edit    `json:"edits,omitempty"`
	AddedObjectCount    int       `json:"addedObjectCount"`
	ModifiedObjectCount int       `json:"modifiedObjectsCount"`
	DeletedObjectCount  int       `json:"deletedObjectsCount"`
	AddedLinkCount      int       `json:"addedLinksCount"`
	DeletedLinkCount    int       `json:"deletedLinksCount"`
	EditedObjectTypes   []string  `json:"editedObjectTypes,omitempty"`
}

// BuildActionEdits summarizes recorded edits according to mode. A nil report
// is returned for ReturnEditsNone.
func BuildActionEdits(edits []Edit, mode ReturnEditsMode) *ActionEdits {
	switch mode {
	case ReturnEditsNone, "":
		return nil
	case ReturnEditsLargeScale:
		seen := make(map[string]struct{})
		for _, e := range edits {
			if e.ObjectType != "" {
				seen[e.ObjectType] = struct{}{}
			}
			if e.ASide != nil {
				seen[e.ASide.ObjectType] = struct{}{}
			}
			if e.BSide != nil {
				seen[e.BSide.ObjectType] = struct{}{}
			}
		}
		types := make([]string, 0, len(seen))
		for t := range seen {
			types = append(types, t)
		}
		sort.Strings(types)
		return &ActionEdits{Type: EditsLargeScale, EditedObjectTypes: types}
	}
	out := &ActionEdits{Type: EditsItemized, Edits: []Edit{}}
	for _, e := range edits {
		switch e.Kind {
		case EditAddObject:
			out.AddedObjectCount++
		case EditModifyObject:
			out.ModifiedObjectCount++
		case EditDeleteObject:
			out.DeletedObjectCount++
		case EditAddLink:
			out.AddedLinkCount++
		case EditDeleteLink:
			out.DeletedLinkCount++
		}
		if e.IsDeletion() && mode != ReturnEditsAllWithDeletions {
			continue
		}
		out.Edits = append(out.Edits, e)
	}
	return out
}

// ActionResponse is the outcome of a single action application.
type ActionResponse struct {
	Validation ValidationResult `json:"validation"`
	Edits      *ActionEdits     `json:"edits,omitempty"`
}

// BatchActionResponse is the outcome of a batched action application. When
// any request fails validation, Validations holds every result and nothing
// was applied.
type BatchActionResponse struct {
	Validations []ValidationResult `json:"validations,omitempty"`
	Edits       *ActionEdits       `json:"edits,omitempty"`
}

// Valid reports whether every request in the batch passed validation.
func (r BatchActionResponse) Valid() bool {
	for _, v := range r.Validations {
		if !v.Valid() {
			return false
		}
	}
	return true
}

// EditBatch is the mutation surface handed to action implementations. All
// operations are staged and committed together.
type EditBatch interface {
	GetObject(objectType string, primaryKey any) (Object, bool)
	AddObject(obj Object) (Object, error)
	ModifyObject(obj Object) (Object, error)
	DeleteObject(objectType string, primaryKey any) error
	AddLink(a Object, aLink string, b Object, bLink string) error
	RemoveLink(a Object, aLink string, b Object, bLink string) error
	Edits() []Edit
}
