package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ObjectNotFound("Employee", 7), "Employee object not found (primary key 7)"},
		{&NotFoundError{Kind: "page", Detail: "token expired"}, "page not found: token expired"},
		{&ConflictError{ObjectType: "Employee", PrimaryKey: 1}, "Employee with primary key 1 already exists"},
		{&InvalidArgumentError{Detail: "page size must not be negative"}, "invalid argument: page size must not be negative"},
		{&InvariantError{Detail: "dangling edge"}, "invariant violated: dangling edge"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("wrapped: %w", ObjectNotFound("Employee", 1)), http.StatusNotFound},
		{"conflict", &ConflictError{ObjectType: "Employee", PrimaryKey: 1}, http.StatusConflict},
		{"property", &PropertyError{ObjectType: "Employee", Property: "salary"}, http.StatusBadRequest},
		{"invalid argument", &InvalidArgumentError{Detail: "x"}, http.StatusBadRequest},
		{"invariant", &InvariantError{Detail: "x"}, http.StatusInternalServerError},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestInvariantfPanics(t *testing.T) {
	defer func() {
		inv, ok := recover().(*InvariantError)
		if !ok || inv.Detail != "edge 3 missing" {
			t.Fatalf("unexpected panic value %#v", inv)
		}
	}()
	Invariantf("edge %d missing", 3)
}
