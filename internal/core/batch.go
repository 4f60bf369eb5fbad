package core

import (
	"ontosim/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.EditBatch = (*Transaction)(nil)

// Transaction stages object and link edits against a private copy of the
// graph. It is the edit batch handed to action implementations.
type Transaction struct {
	ops   graphOps
	edits []domain.Edit
}

func (tx *Transaction) recordEdit(edit domain.Edit) {
	tx.edits = append(tx.edits, edit)
}

func (tx *Transaction) recordOwner(owner *domain.Object) {
	if owner == nil {
		return
	}
	tx.recordEdit(domain.Edit{Kind: domain.EditModifyObject, ObjectType: owner.ObjectType, PrimaryKey: owner.PrimaryKey})
}

// GetObject reads through staged edits.
func (tx *Transaction) GetObject(objectType string, primaryKey any) (domain.Object, bool) {
	return stateView{state: tx.ops.state}.GetObject(objectType, primaryKey)
}

// AddObject stages a new object.
func (tx *Transaction) AddObject(obj domain.Object) (domain.Object, error) {
	created, err := tx.ops.insert(obj)
	if err != nil {
		return domain.Object{}, err
	}
	tx.recordEdit(domain.Edit{Kind: domain.EditAddObject, ObjectType: created.ObjectType, PrimaryKey: created.PrimaryKey})
	return created, nil
}

// ModifyObject stages a whole-object replacement.
func (tx *Transaction) ModifyObject(obj domain.Object) (domain.Object, error) {
	updated, err := tx.ops.replace(obj)
	if err != nil {
		return domain.Object{}, err
	}
	tx.recordEdit(domain.Edit{Kind: domain.EditModifyObject, ObjectType: updated.ObjectType, PrimaryKey: updated.PrimaryKey})
	return updated, nil
}

// DeleteObject stages removal of an object and every edge touching it.
func (tx *Transaction) DeleteObject(objectType string, primaryKey any) error {
	removed, err := tx.ops.remove(objectType, primaryKey)
	if err != nil {
		return err
	}
	tx.recordEdit(domain.Edit{Kind: domain.EditDeleteObject, ObjectType: objectType, PrimaryKey: removed.PrimaryKey})
	return nil
}

// AddLink stages a link between two objects. A foreign key rewritten to
// make the link is recorded as a modification of its owner.
func (tx *Transaction) AddLink(a domain.Object, aLink string, b domain.Object, bLink string) error {
	owner, err := tx.ops.link(a, aLink, b, bLink)
	if err != nil {
		return err
	}
	tx.recordOwner(owner)
	tx.recordEdit(linkEdit(domain.EditAddLink, a, aLink, b, bLink))
	return nil
}

// RemoveLink stages removal of a link between two objects.
func (tx *Transaction) RemoveLink(a domain.Object, aLink string, b domain.Object, bLink string) error {
	owner, err := tx.ops.unlink(a, aLink, b, bLink)
	if err != nil {
		return err
	}
	tx.recordOwner(owner)
	tx.recordEdit(linkEdit(domain.EditDeleteLink, a, aLink, b, bLink))
	return nil
}

// Edits returns the edits staged so far in order.
func (tx *Transaction) Edits() []domain.Edit {
	return append([]domain.Edit(nil), tx.edits...)
}

func linkEdit(kind domain.EditKind, a domain.Object, aLink string, b domain.Object, bLink string) domain.Edit {
	aLoc, _ := a.Locator()
	bLoc, _ := b.Locator()
	return domain.Edit{
		Kind:                kind,
		LinkTypeAPINameAtoB: aLink,
		LinkTypeAPINameBtoA: bLink,
		ASide:               &aLoc,
		BSide:               &bLoc,
	}
}
