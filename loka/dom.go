package loka

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Event is a fired occurrence delivered to listeners. Fields carries the
// event's structured properties (clientX, key, ...); Detail carries the
// custom payload supplied by the dispatcher.
type Event struct {
	Type          string
	Target        *Element
	CurrentTarget *Element
	Fields        map[string]Value
	Detail        map[string]Value
	Timestamp     time.Time
}

// NewEvent constructs an event with the given type and structured fields.
func NewEvent(eventType string, fields map[string]Value) *Event {
	return &Event{
		Type:      eventType,
		Fields:    fields,
		Timestamp: time.Now(),
	}
}

// Property reads a named property off the event: structured fields first,
// then the custom detail payload.
func (e *Event) Property(name string) (Value, bool) {
	if v, ok := e.Fields[name]; ok {
		return v, true
	}
	if v, ok := e.Detail[name]; ok {
		return v, true
	}
	return Value{}, false
}

type listenerEntry struct {
	id   int64
	fn   func(*Event)
	once bool
}

// Element is a node in the in-memory document tree. It is the runtime's
// stand-in for the host platform's element type: attributes, classes, text,
// visibility, and FIFO event listeners with upward propagation.
type Element struct {
	mu sync.Mutex

	tag      string
	attrs    map[string]string
	classes  []string
	text     string
	hidden   bool
	parent   *Element
	children []*Element

	listeners  map[string][]*listenerEntry
	nextListID int64

	doc *Document
}

// Document owns a tree of elements rooted at Root.
type Document struct {
	root *Element
}

// NewDocument builds an empty document with a root element.
func NewDocument() *Document {
	doc := &Document{}
	doc.root = &Element{tag: "root", doc: doc}
	return doc
}

// Root returns the document's root element.
func (d *Document) Root() *Element { return d.root }

// CreateElement builds a detached element belonging to this document.
func (d *Document) CreateElement(tag string) *Element {
	return &Element{tag: tag, doc: d}
}

// Query returns the first element matching the selector in document order,
// or nil. Supported selectors: "#id", ".class", "tag", "*".
func (d *Document) Query(selector string) *Element {
	var found *Element
	d.root.walk(func(el *Element) bool {
		if el.Matches(selector) {
			found = el
			return false
		}
		return true
	})
	return found
}

// QueryAll returns every element matching the selector in document order.
func (d *Document) QueryAll(selector string) []*Element {
	var found []*Element
	d.root.walk(func(el *Element) bool {
		if el.Matches(selector) {
			found = append(found, el)
		}
		return true
	})
	return found
}

func (el *Element) walk(visit func(*Element) bool) bool {
	if !visit(el) {
		return false
	}
	el.mu.Lock()
	children := append([]*Element(nil), el.children...)
	el.mu.Unlock()
	for _, child := range children {
		if !child.walk(visit) {
			return false
		}
	}
	return true
}

// Tag returns the element's tag name.
func (el *Element) Tag() string { return el.tag }

// Document returns the owning document.
func (el *Element) Document() *Document { return el.doc }

// Parent returns the element's parent, or nil for detached elements and the
// root.
func (el *Element) Parent() *Element {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.parent
}

// AppendChild attaches child as the last child of el.
func (el *Element) AppendChild(child *Element) {
	el.mu.Lock()
	el.children = append(el.children, child)
	el.mu.Unlock()
	child.mu.Lock()
	child.parent = el
	child.mu.Unlock()
}

// Children returns a snapshot of the element's children.
func (el *Element) Children() []*Element {
	el.mu.Lock()
	defer el.mu.Unlock()
	return append([]*Element(nil), el.children...)
}

// Contains reports whether other is el or a descendant of el.
func (el *Element) Contains(other *Element) bool {
	for node := other; node != nil; node = node.Parent() {
		if node == el {
			return true
		}
	}
	return false
}

// SetAttribute sets an attribute value.
func (el *Element) SetAttribute(name, value string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.attrs == nil {
		el.attrs = make(map[string]string)
	}
	el.attrs[name] = value
}

// Attribute reads an attribute value.
func (el *Element) Attribute(name string) (string, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	v, ok := el.attrs[name]
	return v, ok
}

// RemoveAttribute deletes an attribute; removing an absent attribute is a
// no-op.
func (el *Element) RemoveAttribute(name string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	delete(el.attrs, name)
}

// Attributes returns the attribute names in sorted order.
func (el *Element) Attributes() []string {
	el.mu.Lock()
	defer el.mu.Unlock()
	names := make([]string, 0, len(el.attrs))
	for name := range el.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddClass appends a class if not already present.
func (el *Element) AddClass(name string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for _, c := range el.classes {
		if c == name {
			return
		}
	}
	el.classes = append(el.classes, name)
}

// RemoveClass removes a class; removing an absent class is a no-op.
func (el *Element) RemoveClass(name string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for i, c := range el.classes {
		if c == name {
			el.classes = append(el.classes[:i], el.classes[i+1:]...)
			return
		}
	}
}

// HasClass reports class membership.
func (el *Element) HasClass(name string) bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	for _, c := range el.classes {
		if c == name {
			return true
		}
	}
	return false
}

// ToggleClass flips class membership and reports the new state.
func (el *Element) ToggleClass(name string) bool {
	if el.HasClass(name) {
		el.RemoveClass(name)
		return false
	}
	el.AddClass(name)
	return true
}

// Classes returns a snapshot of the class list in insertion order.
func (el *Element) Classes() []string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return append([]string(nil), el.classes...)
}

// SetText replaces the element's text content.
func (el *Element) SetText(text string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.text = text
}

// Text returns the element's text content.
func (el *Element) Text() string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.text
}

// Show marks the element visible.
func (el *Element) Show() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.hidden = false
}

// Hide marks the element hidden.
func (el *Element) Hide() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.hidden = true
}

// Hidden reports whether the element is hidden.
func (el *Element) Hidden() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.hidden
}

// Matches reports whether the element matches a simple selector:
// "#id", ".class", a bare tag name, or "*".
func (el *Element) Matches(selector string) bool {
	switch {
	case selector == "":
		return false
	case selector == "*":
		return true
	case strings.HasPrefix(selector, "#"):
		id, _ := el.Attribute("id")
		return id == selector[1:]
	case strings.HasPrefix(selector, "."):
		return el.HasClass(selector[1:])
	default:
		return el.tag == selector
	}
}

// On registers a listener for eventType and returns a removal function. The
// removal function is idempotent. Listeners fire in registration order.
func (el *Element) On(eventType string, fn func(*Event)) func() {
	return el.addListener(eventType, fn, false)
}

// Once registers a listener removed automatically after its first firing.
// The returned removal function stays safe to call after auto-removal.
func (el *Element) Once(eventType string, fn func(*Event)) func() {
	return el.addListener(eventType, fn, true)
}

func (el *Element) addListener(eventType string, fn func(*Event), once bool) func() {
	el.mu.Lock()
	if el.listeners == nil {
		el.listeners = make(map[string][]*listenerEntry)
	}
	el.nextListID++
	entry := &listenerEntry{id: el.nextListID, fn: fn, once: once}
	el.listeners[eventType] = append(el.listeners[eventType], entry)
	el.mu.Unlock()

	var removeOnce sync.Once
	return func() {
		removeOnce.Do(func() {
			el.removeListener(eventType, entry.id)
		})
	}
}

func (el *Element) removeListener(eventType string, id int64) {
	el.mu.Lock()
	defer el.mu.Unlock()
	entries := el.listeners[eventType]
	for i, entry := range entries {
		if entry.id == id {
			el.listeners[eventType] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch delivers the event to this element's listeners and then bubbles
// it to each ancestor in turn. Delivery is synchronous on the caller's
// goroutine; listeners registered on one element fire in FIFO order.
func (el *Element) Dispatch(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Target == nil {
		ev.Target = el
	}
	for node := el; node != nil; node = node.Parent() {
		ev.CurrentTarget = node
		node.deliver(ev)
	}
}

func (el *Element) deliver(ev *Event) {
	el.mu.Lock()
	entries := append([]*listenerEntry(nil), el.listeners[ev.Type]...)
	el.mu.Unlock()
	for _, entry := range entries {
		if entry.once {
			el.removeListener(ev.Type, entry.id)
		}
		entry.fn(ev)
	}
}

// Trigger dispatches a custom event with the given detail payload from el.
func (el *Element) Trigger(eventType string, detail map[string]Value) {
	ev := NewEvent(eventType, nil)
	ev.Detail = detail
	ev.Target = el
	el.Dispatch(ev)
}

func (el *Element) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s", el.tag)
	if id, ok := el.Attribute("id"); ok {
		fmt.Fprintf(&b, " id=%q", id)
	}
	if classes := el.Classes(); len(classes) > 0 {
		fmt.Fprintf(&b, " class=%q", strings.Join(classes, " "))
	}
	b.WriteString(">")
	return b.String()
}
