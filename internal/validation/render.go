package validation

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrorRenderer is the host form that displays validation errors.
type ErrorRenderer interface {
	// ClearErrors removes every error marker.
	ClearErrors()
	// MarkInvalid flags field and attaches message. It reports false when the
	// form has no such field.
	MarkInvalid(field, message string) bool
}

// Render replaces the form's previous markers with the first message of each
// failing field.
func Render(form ErrorRenderer, errs map[string][]string) {
	form.ClearErrors()
	for _, field := range slices.Sorted(maps.Keys(errs)) {
		if msgs := errs[field]; len(msgs) > 0 {
			form.MarkInvalid(field, msgs[0])
		}
	}
}

func ClearErrors(form ErrorRenderer) {
	form.ClearErrors()
}

// FormState is an in-memory ErrorRenderer for headless hosts.
type FormState struct {
	mu      sync.Mutex
	fields  map[string]struct{}
	markers map[string]string
}

func NewFormState(fields ...string) *FormState {
	f := &FormState{fields: make(map[string]struct{}), markers: make(map[string]string)}
	for _, name := range fields {
		f.fields[name] = struct{}{}
	}
	return f
}

func (f *FormState) ClearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.markers)
}

func (f *FormState) MarkInvalid(field, message string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fields[field]; !ok {
		return false
	}
	f.markers[field] = message
	return true
}

// Error returns the message shown on field, if any.
func (f *FormState) Error(field string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.markers[field]
	return msg, ok
}

func (f *FormState) Invalid() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.markers))
}

// FormError carries a failed form validation to callers that work with
// errors.
type FormError struct {
	Errors map[string][]string
}

func (e *FormError) Error() string {
	fields := slices.Sorted(maps.Keys(e.Errors))
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e.Errors[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Err returns a *FormError when the form failed, nil otherwise.
func (r FormResult) Err() error {
	if r.Valid {
		return nil
	}
	return &FormError{Errors: r.Errors}
}
