package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"ontosim/pkg/domain"
	"ontosim/testutil"
)

func newOfficeStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(testutil.OfficeOntology(t), opts...)
}

func looseConfig() Config {
	return Config{Strict: false, MissingTarget: MissingTargetWarn}
}

func employee(id int, name string, extra ...any) domain.Object {
	props := map[string]any{"employeeId": id, "fullName": name}
	for i := 0; i+1 < len(extra); i += 2 {
		props[extra[i].(string)] = extra[i+1]
	}
	return domain.Object{ObjectType: "Employee", PrimaryKey: id, Properties: props}
}

func mustRegister(t *testing.T, s *Store, objs ...domain.Object) []domain.Object {
	t.Helper()
	out := make([]domain.Object, 0, len(objs))
	for _, obj := range objs {
		created, err := s.RegisterObject(obj)
		if err != nil {
			t.Fatalf("register %s %v: %v", obj.ObjectType, obj.PrimaryKey, err)
		}
		out = append(out, created)
	}
	return out
}

func primaryKeys(objs []domain.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = fmt.Sprint(o.PrimaryKey)
	}
	return out
}

func linkedKeys(t *testing.T, s *Store, objectType string, pk any, link string) []string {
	t.Helper()
	objs, err := s.GetLinks(objectType, pk, link)
	if err != nil {
		t.Fatalf("get links %s.%s: %v", objectType, link, err)
	}
	return primaryKeys(objs)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// expectInvariant runs fn and returns the InvariantError it panicked with.
func expectInvariant(t *testing.T, fn func()) (inv *domain.InvariantError) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected invariant panic")
		}
		err, ok := r.(error)
		if !ok || !errors.As(err, &inv) {
			t.Fatalf("expected *domain.InvariantError panic, got %#v", r)
		}
	}()
	fn()
	return nil
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}
