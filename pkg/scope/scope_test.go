package scope

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/fbind/pkg/reactive"
)

func TestObjectGetSet(t *testing.T) {
	o := New(map[string]any{
		"name": "Sam",
		"user": map[string]any{"email": "sam@example.com"},
	})

	if v, ok := o.Get("name"); !ok || v != "Sam" {
		t.Errorf("Get(name) = %v, %v", v, ok)
	}
	if v, ok := o.Get("user.email"); !ok || v != "sam@example.com" {
		t.Errorf("Get(user.email) = %v, %v", v, ok)
	}
	if _, ok := o.Get("user.missing"); ok {
		t.Error("Get(user.missing) should miss")
	}

	if err := o.Set("user.email", "kim@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := o.Set("settings.theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if err := o.Set("name.first", "x"); !errors.Is(err, ErrNotObject) {
		t.Errorf("Set through a string = %v, want ErrNotObject", err)
	}

	want := map[string]any{
		"name":     "Sam",
		"user":     map[string]any{"email": "kim@example.com"},
		"settings": map[string]any{"theme": "dark"},
	}
	if diff := cmp.Diff(want, o.ToMap()); diff != "" {
		t.Errorf("ToMap() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "settings", "user"}, o.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectTracksReadFields(t *testing.T) {
	o := New(map[string]any{"a": 1, "b": 2})
	runs := 0

	e := reactive.CreateEffect(func() reactive.Cleanup {
		runs++
		o.Lookup("a")
		return nil
	})
	defer e.Dispose()

	o.Set("b", 3)
	if runs != 1 {
		t.Errorf("unread field woke the effect: %d runs", runs)
	}
	o.Set("a", 5)
	if runs != 2 {
		t.Errorf("read field did not wake the effect: %d runs", runs)
	}
}

func TestObjectMissingNameAppears(t *testing.T) {
	o := New(nil)
	var last any

	e := reactive.CreateEffect(func() reactive.Cleanup {
		last, _ = o.Lookup("late")
		return nil
	})
	defer e.Dispose()

	o.Set("late", "here")
	if last != "here" {
		t.Errorf("last = %v, want here", last)
	}

	o.Delete("late")
	if last != nil {
		t.Errorf("after Delete last = %v, want nil", last)
	}
}

func TestObjectTouch(t *testing.T) {
	tags := []any{"a"}
	o := New(map[string]any{"tags": tags})
	runs := 0

	e := reactive.CreateEffect(func() reactive.Cleanup {
		runs++
		o.Lookup("tags")
		return nil
	})
	defer e.Dispose()

	if err := o.Touch("tags"); err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("Touch did not wake the effect: %d runs", runs)
	}
	if err := o.Touch("tags.x"); !errors.Is(err, ErrNotObject) {
		t.Errorf("Touch through a slice = %v, want ErrNotObject", err)
	}
}

func TestWrapSlicesOfMaps(t *testing.T) {
	o := New(map[string]any{
		"items": []any{map[string]any{"title": "one"}},
	})
	items, _ := o.Get("items")
	list := items.([]any)
	if _, ok := list[0].(*Object); !ok {
		t.Fatalf("slice element = %T, want *Object", list[0])
	}
}

func TestNested(t *testing.T) {
	parent := New(map[string]any{"name": "Sam", "count": 1})
	item := New(map[string]any{"title": "one"})
	n := With(parent, map[string]any{"item": item, "index": 0})

	if v, _ := n.Lookup("index"); v != 0 {
		t.Errorf("Lookup(index) = %v", v)
	}
	if v, _ := n.Lookup("name"); v != "Sam" {
		t.Errorf("Lookup(name) = %v", v)
	}

	if err := n.Set("count", 2); err != nil {
		t.Fatal(err)
	}
	if v, _ := parent.Get("count"); v != 2 {
		t.Errorf("parent count = %v, want 2", v)
	}

	if err := n.Set("item.title", "uno"); err != nil {
		t.Fatal(err)
	}
	if v, _ := item.Get("title"); v != "uno" {
		t.Errorf("item title = %v, want uno", v)
	}

	if err := n.Set("index", 3); err == nil {
		t.Error("writing a local name should fail")
	}
	if n.Parent() != parent {
		t.Error("Parent() should return the enclosing scope")
	}
}
