package loka

import "context"

// Scope is a chain of variable frames. Reads walk toward the root; writes to
// an existing name land in the frame that holds it, except across an isolated
// frame, which reads through its parents but keeps every write private. Event
// firings get an isolated child so handler-local mutation never leaks into
// the base context.
type Scope struct {
	parent   *Scope
	vars     map[string]Value
	isolated bool
}

// NewScope builds a root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]Value)}
}

// Child builds a nested frame that writes through to its parent when a name
// already exists there.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: make(map[string]Value)}
}

// IsolatedChild builds a frame with read-through to the parent but a private
// write overlay.
func (s *Scope) IsolatedChild() *Scope {
	return &Scope{parent: s, vars: make(map[string]Value), isolated: true}
}

// Get resolves a name, nearest frame first.
func (s *Scope) Get(name string) (Value, bool) {
	for frame := s; frame != nil; frame = frame.parent {
		if v, ok := frame.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Set updates the name where it already exists, else defines it in this
// frame. Updates never cross an isolation boundary.
func (s *Scope) Set(name string, v Value) {
	if s.setExisting(name, v) {
		return
	}
	s.vars[name] = v
}

func (s *Scope) setExisting(name string, v Value) bool {
	if _, ok := s.vars[name]; ok {
		s.vars[name] = v
		return true
	}
	if s.parent != nil && !s.isolated {
		return s.parent.setExisting(name, v)
	}
	return false
}

// Define creates or replaces the name in this frame only.
func (s *Scope) Define(name string, v Value) {
	s.vars[name] = v
}

// Has reports whether the name resolves anywhere in the chain.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Context is the per-invocation execution scope: implicit references, the
// result slot, and variable scopes. Commands read and mutate it; the runtime
// supplies it.
type Context struct {
	Me     *Element
	You    *Element
	Target *Element
	It     Value
	Result Value
	Event  *Event

	Locals  *Scope
	Globals *Scope

	Ctx     context.Context
	runtime *Runtime
}

// Runtime returns the owning runtime.
func (c *Context) Runtime() *Runtime { return c.runtime }

// Document resolves the context's document: the bound element's document,
// else the runtime's.
func (c *Context) Document() *Document {
	if c.Me != nil && c.Me.Document() != nil {
		return c.Me.Document()
	}
	return c.runtime.doc
}

// Lookup resolves a variable: locals first, then globals.
func (c *Context) Lookup(name string) (Value, bool) {
	if v, ok := c.Locals.Get(name); ok {
		return v, true
	}
	return c.Globals.Get(name)
}

// SetVar updates the variable wherever it already exists (locals shadow
// globals), else creates it in locals.
func (c *Context) SetVar(name string, v Value) {
	if c.Locals.Has(name) {
		c.Locals.Set(name, v)
		return
	}
	if c.Globals.Has(name) {
		c.Globals.Set(name, v)
		return
	}
	c.Locals.Set(name, v)
}

// EventChild builds the event-scoped context for one firing: isolated
// local/global overlays layered over the base context, with event, target
// and currentTarget bound and It set to the event's target.
func (c *Context) EventChild(ev *Event) *Context {
	child := &Context{
		Me:      c.Me,
		You:     c.You,
		Target:  ev.Target,
		Event:   ev,
		Locals:  c.Locals.IsolatedChild(),
		Globals: c.Globals.IsolatedChild(),
		Ctx:     c.Ctx,
		runtime: c.runtime,
	}
	if ev.Target != nil {
		child.It = NewElementValue(ev.Target)
	}
	return child
}
