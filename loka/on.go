package loka

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registration is a live event-handler binding created from a handler
// descriptor. The caller holds the authoritative reference; the runtime's
// active-registration index is bookkeeping only.
type Registration struct {
	ID        string
	EventName string
	Source    *Element

	runtime *Runtime
	bound   *Element // the element the behavior is attached to
	base    *Context

	params []string
	filter Expr
	from   int
	to     int
	every  bool
	queue  QueueStrategy
	gate   timingGate
	body   []*CommandNode

	remove func()

	mu          sync.Mutex
	occurrences int
	inFlight    bool
	pending     []*Event
	closed      bool
}

// installHandler resolves the handler descriptor against el, attaches the
// native listener, and indexes the registration.
func (r *Runtime) installHandler(ctx context.Context, handler *HandlerNode, el *Element) (*Registration, error) {
	base := r.NewContext(el)
	base.Ctx = ctx

	reg := &Registration{
		ID:        uuid.NewString(),
		EventName: handler.EventName,
		runtime:   r,
		bound:     el,
		base:      base,
		params:    handler.Params,
		filter:    handler.Filter,
		from:      1,
		every:     handler.Every,
		queue:     handler.Queue,
		body:      handler.Body,
	}

	if handler.CountFrom != nil {
		from, err := r.evalCount(handler.CountFrom, base)
		if err != nil {
			return nil, err
		}
		reg.from = from
		if handler.CountTo != nil {
			to, err := r.evalCount(handler.CountTo, base)
			if err != nil {
				return nil, err
			}
			if to < from {
				return nil, validationErrorf("on", "count range %d to %d is inverted", from, to)
			}
			reg.to = to
		} else {
			// a bare count means exactly that occurrence
			reg.to = from
		}
	}

	if handler.Timing != nil {
		delayVal, err := r.Evaluate(handler.Timing.Delay, base)
		if err != nil {
			return nil, err
		}
		var delay time.Duration
		switch delayVal.Kind() {
		case KindDuration:
			delay = delayVal.Duration()
		case KindInt, KindFloat:
			delay = time.Duration(delayVal.Float() * float64(time.Millisecond))
		default:
			return nil, validationErrorf("on", "timing delay must be a duration, got %s", delayVal.Kind())
		}
		if delay <= 0 {
			return nil, validationErrorf("on", "timing delay must be positive")
		}
		switch handler.Timing.Kind {
		case TimingDebounce:
			reg.gate = newDebounceGate(delay)
		case TimingThrottle:
			reg.gate = newThrottleGate(delay, handler.Queue == QueueAll)
		}
	}

	switch handler.Source {
	case SourceElsewhere:
		reg.Source = el.Document().Root()
	case SourceSelector:
		source := el.Document().Query(handler.Selector)
		if source == nil {
			return nil, runtimeErrorf("on", handler.P, "no element matches source %q", handler.Selector)
		}
		reg.Source = source
	default:
		reg.Source = el
	}

	elsewhere := handler.Source == SourceElsewhere
	reg.remove = reg.Source.On(handler.EventName, func(ev *Event) {
		if elsewhere && ev.Target != nil && el.Contains(ev.Target) {
			return
		}
		reg.handleEvent(ev)
	})

	r.indexRegistration(reg)
	return reg, nil
}

func (r *Runtime) evalCount(expr Expr, ctx *Context) (int, error) {
	v, err := r.Evaluate(expr, ctx)
	if err != nil {
		return 0, err
	}
	if v.Kind() != KindInt {
		return 0, validationErrorf("on", "count must be an integer, got %s", v.Kind())
	}
	if v.Int() < 1 {
		return 0, validationErrorf("on", "count must be at least 1, got %d", v.Int())
	}
	return int(v.Int()), nil
}

// handleEvent is the native listener: filter, count, timing, then body.
func (reg *Registration) handleEvent(ev *Event) {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.mu.Unlock()

	// The filter gates everything: a false filter means the firing is
	// ignored entirely, with no count decrement and no queueing.
	if reg.filter != nil {
		filterCtx := reg.eventContext(ev)
		pass, err := reg.runtime.Evaluate(reg.filter, filterCtx)
		if err != nil {
			reg.runtime.reportError(reg.bound, "on", err)
			return
		}
		if !pass.Truthy() {
			return
		}
	}

	reg.mu.Lock()
	reg.occurrences++
	occ := reg.occurrences
	reg.mu.Unlock()
	if occ < reg.from || (reg.to > 0 && occ > reg.to) {
		return
	}

	if reg.gate != nil {
		reg.gate.submit(ev, reg.invoke)
		return
	}
	reg.invoke(ev)
}

// invoke runs the handler body for one event, applying the queue strategy
// when a body is already in flight.
func (reg *Registration) invoke(ev *Event) {
	if reg.every {
		reg.runBody(ev)
		return
	}

	reg.mu.Lock()
	if reg.inFlight {
		switch reg.queue {
		case QueueAll:
			reg.pending = append(reg.pending, ev)
		case QueueFirst:
			if len(reg.pending) == 0 {
				reg.pending = append(reg.pending, ev)
			}
		case QueueLast:
			reg.pending = []*Event{ev}
		case QueueNone:
			// dropped
		}
		reg.mu.Unlock()
		return
	}
	reg.inFlight = true
	reg.mu.Unlock()

	for {
		reg.runBody(ev)

		reg.mu.Lock()
		if len(reg.pending) == 0 || reg.closed {
			reg.inFlight = false
			reg.pending = nil
			reg.mu.Unlock()
			return
		}
		ev = reg.pending[0]
		reg.pending = reg.pending[1:]
		reg.mu.Unlock()
	}
}

// runBody executes the handler body against an event-scoped context.
// Failures are isolated per command: an error is logged and reported via a
// loka:error event but does not abort the remaining commands.
func (reg *Registration) runBody(ev *Event) {
	ctx := reg.eventContext(ev)
	for _, node := range reg.body {
		_, flow, err := reg.runtime.runCommand(node, ctx)
		if err != nil {
			reg.runtime.reportError(reg.bound, node.Name, err)
			continue
		}
		if !flow.Normal() {
			// return/halt (and a stray break/continue) end the body
			// at this invocation boundary
			return
		}
	}
}

// eventContext builds the isolated per-firing context: event, target and
// currentTarget bound, configured parameters pulled from the detail payload.
func (reg *Registration) eventContext(ev *Event) *Context {
	ctx := reg.base.EventChild(ev)
	for _, name := range reg.params {
		if ev.Detail == nil {
			break
		}
		if v, ok := ev.Detail[name]; ok {
			ctx.Locals.Define(name, v)
		}
	}
	return ctx
}

// Occurrences reports how many qualifying firings the registration has seen.
func (reg *Registration) Occurrences() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.occurrences
}

// Active reports whether the registration still holds its native listener.
func (reg *Registration) Active() bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return !reg.closed
}

// Cleanup detaches the native listener and removes the registration from the
// runtime's index. It is idempotent and safe to call after the listener has
// already removed itself.
func (reg *Registration) Cleanup() {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.closed = true
	reg.pending = nil
	reg.mu.Unlock()

	reg.remove()
	if reg.gate != nil {
		reg.gate.stop()
	}
	reg.runtime.dropRegistration(reg.ID)
}
