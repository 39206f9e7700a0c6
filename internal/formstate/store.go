// Package formstate implements a generic key/value holder for form fields.
// It is a pure state container: no validation, no cross-field invariants.
package formstate

import "sync"

// Kind declares what a field holds. Text fields carry a string, checkbox
// fields a boolean.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
)

// Descriptor is the closed, typed description of one field.
type Descriptor struct {
	Name        string `json:"name"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Kind        Kind   `json:"kind"`
}

// Value holds a field's current state. Only the member matching the field's
// declared kind is meaningful; the zero Value is each kind's empty default.
type Value struct {
	Text    string `json:"text,omitempty"`
	Checked bool   `json:"checked,omitempty"`
}

// Text builds a text value.
func Text(s string) Value { return Value{Text: s} }

// Checked builds a checkbox value.
func Checked(b bool) Value { return Value{Checked: b} }

// Observer receives the full field mapping after every mutation. The map is a
// copy; observers may retain it.
type Observer func(values map[string]Value)

// Store maps field names to values, remembering the initial mapping for
// resets. All methods are safe for concurrent use, although the workflow
// controller serializes access per session anyway.
type Store struct {
	mu          sync.RWMutex
	descriptors []Descriptor
	initial     map[string]Value
	values      map[string]Value
	observers   []Observer
}

// New builds a store from field descriptors and an initial mapping. A nil
// initial mapping means every field starts at its empty default.
func New(descriptors []Descriptor, initial map[string]Value) *Store {
	s := &Store{
		descriptors: append([]Descriptor{}, descriptors...),
		initial:     copyValues(initial),
		values:      copyValues(initial),
	}
	return s
}

// NewWithValues builds a store whose current mapping is values but whose
// reset baseline stays empty. Used when restoring persisted state: a reset
// after restore must clear the fields, not reinstate them.
func NewWithValues(descriptors []Descriptor, values map[string]Value) *Store {
	s := New(descriptors, nil)
	s.values = copyValues(values)
	return s
}

// Set merges one field into the mapping, leaving others untouched. No
// validation is performed; the store accepts any value.
func (s *Store) Set(name string, value Value) {
	s.mu.Lock()
	s.values[name] = value
	snapshot := copyValues(s.values)
	s.mu.Unlock()

	s.notify(snapshot)
}

// Reset replaces the entire mapping with the original initial values, or with
// overrides when non-nil. Used for full resets and for partial post-commit
// resets alike.
func (s *Store) Reset(overrides map[string]Value) {
	s.mu.Lock()
	if overrides != nil {
		s.values = copyValues(overrides)
	} else {
		s.values = copyValues(s.initial)
	}
	snapshot := copyValues(s.values)
	s.mu.Unlock()

	s.notify(snapshot)
}

// Get returns the current value for name, or the empty default when unset.
func (s *Store) Get(name string) Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Values returns a copy of the current mapping.
func (s *Store) Values() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyValues(s.values)
}

// Descriptors returns the field descriptors the store was built with.
func (s *Store) Descriptors() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Descriptor{}, s.descriptors...)
}

// Subscribe registers an observer invoked with the mapping after every
// mutation. Observers run outside the store lock.
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *Store) notify(snapshot map[string]Value) {
	s.mu.RLock()
	observers := append([]Observer{}, s.observers...)
	s.mu.RUnlock()
	for _, obs := range observers {
		obs(snapshot)
	}
}

func copyValues(in map[string]Value) map[string]Value {
	out := make(map[string]Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
