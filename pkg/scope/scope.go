// Package scope provides the evaluation contexts binding expressions run against.
//
// An Object is a reactive record: each field is a signal, so an expression
// evaluated inside a watcher subscribes to exactly the fields it reads.
// Nested maps become nested Objects and slices of maps become slices of
// Objects, which lets "user.name" or "items[0].title" track the leaf field.
//
// A Nested scope layers fixed local names over a parent scope. It is the
// per-item context a repetition directive hands to the elements it stamps out.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/fbind/pkg/reactive"
)

// ErrNotObject is returned when a path walks through a value that is not an Object.
var ErrNotObject = errors.New("scope: path does not address an object")

// Scope resolves top-level names for expression evaluation.
type Scope interface {
	// Lookup returns the value bound to name. Reads are tracked by the
	// reactive runtime when the scope is reactive.
	Lookup(name string) (any, bool)
}

// Setter is a Scope whose values can be written through dotted paths.
type Setter interface {
	Scope
	Set(path string, value any) error
}

// Object is a reactive record of named fields.
type Object struct {
	mu     sync.RWMutex
	fields map[string]*reactive.Signal[any]

	// shape changes whenever a field is added or removed, so lookups that
	// missed are re-run when the name appears.
	shape *reactive.Signal[uint64]
}

// New creates an Object from plain data. Nested maps and slices are wrapped.
func New(data map[string]any) *Object {
	o := &Object{
		fields: make(map[string]*reactive.Signal[any], len(data)),
		shape:  reactive.NewSignal[uint64](0),
	}
	for k, v := range data {
		o.fields[k] = reactive.NewSignal(wrap(v))
	}
	return o
}

// Lookup returns the field value and subscribes the current watcher to it.
func (o *Object) Lookup(name string) (any, bool) {
	o.mu.RLock()
	sig, ok := o.fields[name]
	o.mu.RUnlock()

	if !ok {
		o.shape.Get()
		return nil, false
	}
	return sig.Get(), true
}

// Get resolves a dotted path, tracking every field on the way.
func (o *Object) Get(path string) (any, bool) {
	var cur any = o
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj.Lookup(part); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at a dotted path, creating intermediate objects as needed.
// Watchers of the written field are notified synchronously.
func (o *Object) Set(path string, value any) error {
	parts := strings.Split(path, ".")
	obj := o
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj.peek(part)
		if !ok || next == nil {
			child := New(nil)
			obj.put(part, child)
			obj = child
			continue
		}
		if obj, ok = next.(*Object); !ok {
			return fmt.Errorf("%w: %q", ErrNotObject, path)
		}
	}
	obj.put(parts[len(parts)-1], value)
	return nil
}

// Delete removes a field.
func (o *Object) Delete(name string) {
	o.mu.Lock()
	sig, ok := o.fields[name]
	delete(o.fields, name)
	o.mu.Unlock()

	if ok {
		sig.Set(nil)
		o.shape.Update(func(v uint64) uint64 { return v + 1 })
	}
}

// Touch notifies the watchers of the field at path without changing it.
// Use it after mutating a slice or map value in place.
func (o *Object) Touch(path string) error {
	parts := strings.Split(path, ".")
	obj := o
	for _, part := range parts[:len(parts)-1] {
		next, _ := obj.peek(part)
		child, ok := next.(*Object)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotObject, path)
		}
		obj = child
	}

	obj.mu.RLock()
	sig, ok := obj.fields[parts[len(parts)-1]]
	obj.mu.RUnlock()
	if ok {
		sig.Notify()
	}
	return nil
}

// Keys returns the field names in sorted order. It does not track.
func (o *Object) Keys() []string {
	o.mu.RLock()
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	o.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// ToMap returns the Object as plain data without tracking.
func (o *Object) ToMap() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := make(map[string]any, len(o.fields))
	for k, sig := range o.fields {
		m[k] = unwrap(sig.Peek())
	}
	return m
}

// String renders the object the way a template would see it.
func (o *Object) String() string {
	return "[object]"
}

func (o *Object) peek(name string) (any, bool) {
	o.mu.RLock()
	sig, ok := o.fields[name]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return sig.Peek(), true
}

func (o *Object) put(name string, value any) {
	value = wrap(value)

	o.mu.Lock()
	sig, ok := o.fields[name]
	if !ok {
		o.fields[name] = reactive.NewSignal(value)
	}
	o.mu.Unlock()

	if ok {
		sig.Set(value)
		return
	}
	o.shape.Update(func(v uint64) uint64 { return v + 1 })
}

// wrap converts plain maps into Objects, recursively through slices.
func wrap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return New(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = wrap(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = New(e)
		}
		return out
	}
	return v
}

func unwrap(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = unwrap(e)
		}
		return out
	}
	return v
}

// Nested layers fixed local names over a parent scope.
type Nested struct {
	parent Scope
	locals map[string]any
}

// With returns a scope resolving locals first, then parent.
func With(parent Scope, locals map[string]any) *Nested {
	return &Nested{parent: parent, locals: locals}
}

// Lookup implements Scope.
func (n *Nested) Lookup(name string) (any, bool) {
	if v, ok := n.locals[name]; ok {
		return v, true
	}
	if n.parent == nil {
		return nil, false
	}
	return n.parent.Lookup(name)
}

// Set writes through to the parent. Local names are read-only.
func (n *Nested) Set(path string, value any) error {
	head, rest, found := strings.Cut(path, ".")
	if local, ok := n.locals[head]; ok {
		if obj, isObj := local.(*Object); isObj && found {
			return obj.Set(rest, value)
		}
		return fmt.Errorf("scope: %q is a local name", head)
	}
	setter, ok := n.parent.(Setter)
	if !ok {
		return fmt.Errorf("scope: parent of %q is not writable", path)
	}
	return setter.Set(path, value)
}

// Parent returns the enclosing scope.
func (n *Nested) Parent() Scope {
	return n.parent
}
