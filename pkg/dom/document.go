package dom

import (
	"strconv"
	"sync"

	"golang.org/x/net/html"
)

// IDAttr is the attribute RenderAnnotated uses to expose node identifiers.
const IDAttr = "data-fbind-id"

// Event is delivered to listeners by Dispatch.
type Event struct {
	// Type is the event name, e.g. "click" or "input".
	Type string

	// Target is the node the event was dispatched on.
	Target *html.Node

	// Value carries the event payload. For input events it is the new
	// value of the control.
	Value any
}

// Listener handles a dispatched event.
type Listener func(Event)

type registration struct {
	id int
	fn Listener
}

// Document holds runtime state for a set of nodes.
// It is safe for concurrent use.
type Document struct {
	mu        sync.RWMutex
	ids       map[*html.Node]int
	byID      map[int]*html.Node
	composing map[*html.Node]bool
	listeners map[*html.Node]map[string][]registration
	nextReg   int
}

// NewDocument creates an empty Document.
func NewDocument() *Document {
	return &Document{
		ids:       make(map[*html.Node]int),
		byID:      make(map[int]*html.Node),
		composing: make(map[*html.Node]bool),
		listeners: make(map[*html.Node]map[string][]registration),
	}
}

// SetID records the identifier of n.
func (d *Document) SetID(n *html.Node, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.ids[n]; ok {
		delete(d.byID, old)
	}
	d.ids[n] = id
	d.byID[id] = n
}

// ID returns the identifier of n.
func (d *Document) ID(n *html.Node) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[n]
	return id, ok
}

// NodeByID returns the node carrying identifier id.
func (d *Document) NodeByID(id int) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID[id]
}

// SetComposing marks n as having a user edit in progress.
func (d *Document) SetComposing(n *html.Node, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.composing[n] = true
	} else {
		delete(d.composing, n)
	}
}

// Composing reports whether n has a user edit in progress.
func (d *Document) Composing(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.composing[n]
}

// AddEventListener registers fn for events of type typ on n. The returned
// function removes the registration.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextReg++
	reg := registration{id: d.nextReg, fn: fn}
	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[string][]registration)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], reg)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		regs := d.listeners[n][typ]
		for i, r := range regs {
			if r.id == reg.id {
				d.listeners[n][typ] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}
		if len(d.listeners[n][typ]) == 0 {
			delete(d.listeners[n], typ)
		}
		if len(d.listeners[n]) == 0 {
			delete(d.listeners, n)
		}
	}
}

// HasListeners reports whether any listener is registered on n.
func (d *Document) HasListeners(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[n]) > 0
}

// EventTypes returns the event types with listeners on n.
func (d *Document) EventTypes(n *html.Node) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var types []string
	for typ := range d.listeners[n] {
		types = append(types, typ)
	}
	return types
}

// Dispatch delivers an event to the listeners of n in registration order and
// returns how many ran. Listeners run without the document lock held.
func (d *Document) Dispatch(n *html.Node, typ string, value any) int {
	d.mu.RLock()
	regs := append([]registration(nil), d.listeners[n][typ]...)
	d.mu.RUnlock()

	ev := Event{Type: typ, Target: n, Value: value}
	for _, r := range regs {
		r.fn(ev)
	}
	return len(regs)
}

// Release drops every piece of state held for n and its descendants.
func (d *Document) Release(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	Walk(n, func(c *html.Node) bool {
		if id, ok := d.ids[c]; ok {
			delete(d.byID, id)
			delete(d.ids, c)
		}
		delete(d.composing, c)
		delete(d.listeners, c)
		return true
	})
}

// RenderAnnotated renders n with the identifier of every element that has
// listeners written to IDAttr, so a client can address events to it.
// The tree itself is not modified.
func (d *Document) RenderAnnotated(n *html.Node) (string, error) {
	d.mu.RLock()
	c := d.annotate(n)
	d.mu.RUnlock()
	if n.Type == html.DocumentNode {
		return RenderChildren(c)
	}
	return Render(c)
}

func (d *Document) annotate(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if n.Type == html.ElementNode && len(d.listeners[n]) > 0 {
		if id, ok := d.ids[n]; ok {
			c.Attr = append(c.Attr, html.Attribute{Key: IDAttr, Val: strconv.Itoa(id)})
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(d.annotate(child))
	}
	return c
}
