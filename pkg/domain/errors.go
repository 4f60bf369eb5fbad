package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels usable with errors.Is against the structured error types below.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError reports a missing object, linked object, page, or other
// addressable item.
type NotFoundError struct {
	Kind       string
	ObjectType string
	PrimaryKey any
	Detail     string
}

func (e *NotFoundError) Error() string {
	msg := e.Kind + " not found"
	if e.ObjectType != "" {
		msg = fmt.Sprintf("%s %s", e.ObjectType, msg)
	}
	if e.PrimaryKey != nil {
		msg = fmt.Sprintf("%s (primary key %v)", msg, e.PrimaryKey)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ObjectNotFound builds a not-found error for an object locator.
func ObjectNotFound(objectType string, primaryKey any) *NotFoundError {
	return &NotFoundError{Kind: "object", ObjectType: objectType, PrimaryKey: primaryKey}
}

// ConflictError reports an attempt to register an object whose locator is
// already taken.
type ConflictError struct {
	ObjectType string
	PrimaryKey any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with primary key %v already exists", e.ObjectType, e.PrimaryKey)
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// PropertyError reports a read against an undeclared or wrongly typed
// property.
type PropertyError struct {
	ObjectType string
	Property   string
	Expected   PropertyType
	Actual     PropertyType
	Detail     string
}

func (e *PropertyError) Error() string {
	msg := fmt.Sprintf("property %s.%s", e.ObjectType, e.Property)
	switch {
	case e.Actual == "" && e.Detail == "":
		msg += " is not declared"
	case e.Actual != "" && e.Expected != e.Actual:
		msg += fmt.Sprintf(" has type %s, expected %s", e.Actual, e.Expected)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches ErrInvalidArgument.
func (e *PropertyError) Is(target error) bool { return target == ErrInvalidArgument }

// InvalidArgumentError reports a malformed request such as an unknown order
// field.
type InvalidArgumentError struct {
	Detail string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Detail }

// Is matches ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// InvariantError describes a broken store invariant. It is raised with panic
// and never returned: it signals fixture-setup or programming errors.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string { return "invariant violated: " + e.Detail }

// Invariantf panics with an InvariantError.
func Invariantf(format string, args ...any) {
	panic(&InvariantError{Detail: fmt.Sprintf(format, args...)})
}

// StatusCode maps an error onto the HTTP status the emulated backend would
// answer with.
func StatusCode(err error) int {
	var inv *InvariantError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &inv):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
