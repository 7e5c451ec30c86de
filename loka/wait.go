package loka

import (
	"time"
)

// WaitCommand is the async wait engine: it resolves a condition (elapsed
// time, a DOM event, or a race among several of either) into a single
// outcome, optionally destructuring event properties into locals.
type WaitCommand struct {
	runtime *Runtime
}

func (c *WaitCommand) Name() string { return "wait" }

// WaitCondition is one arm of a wait input.
type WaitCondition struct {
	Type string // "time" or "event"

	Duration time.Duration

	EventName string
	Target    *Element
	Params    []string
}

// WaitInput holds the conditions to wait on; two or more form a race.
type WaitInput struct {
	Conditions []WaitCondition
}

func (WaitInput) commandInput() {}

// WaitOutcome is the settled result of a wait. Duration always reports
// elapsed wall-clock time from start to resolution, for every condition
// type.
type WaitOutcome struct {
	Type     string
	Result   Value
	Duration time.Duration
	Event    *Event
}

func (o WaitOutcome) value() Value {
	return NewHash(map[string]Value{
		"type":     NewString(o.Type),
		"result":   o.Result,
		"duration": NewDuration(o.Duration),
	})
}

func (c *WaitCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if node.Wait == nil || len(node.Wait.Conditions) == 0 {
		return nil, validationErrorf("wait", "missing wait condition")
	}

	input := &WaitInput{}
	for _, condNode := range node.Wait.Conditions {
		if condNode.EventName != "" {
			cond := WaitCondition{
				Type:      "event",
				EventName: condNode.EventName,
				Params:    condNode.Params,
				Target:    ctx.Me,
			}
			if condNode.From != nil {
				target, err := ev.Evaluate(condNode.From, ctx)
				if err != nil {
					return nil, err
				}
				if target.Kind() != KindElement {
					return nil, validationErrorf("wait", "event source must be an element, got %s", target.Kind())
				}
				cond.Target = target.Element()
			}
			if cond.Target == nil {
				return nil, validationErrorf("wait", "event condition %q has no target element", cond.EventName)
			}
			input.Conditions = append(input.Conditions, cond)
			continue
		}

		v, err := ev.Evaluate(condNode.Time, ctx)
		if err != nil {
			return nil, err
		}
		var d time.Duration
		switch v.Kind() {
		case KindDuration:
			d = v.Duration()
		case KindInt, KindFloat:
			// bare numbers are milliseconds
			d = time.Duration(v.Float() * float64(time.Millisecond))
		default:
			return nil, validationErrorf("wait", "time condition must be a duration, got %s", v.Kind())
		}
		input.Conditions = append(input.Conditions, WaitCondition{Type: "time", Duration: d})
	}
	return input, nil
}

func (c *WaitCommand) Validate(input CommandInput) error {
	in, ok := input.(*WaitInput)
	if !ok {
		return validationErrorf("wait", "unexpected input type %T", input)
	}
	if len(in.Conditions) == 0 {
		return validationErrorf("wait", "at least one condition required")
	}
	for i, cond := range in.Conditions {
		switch cond.Type {
		case "time":
			if cond.Duration < 0 {
				return validationErrorf("wait", "condition %d: negative duration", i)
			}
		case "event":
			if cond.EventName == "" {
				return validationErrorf("wait", "condition %d: empty event name", i)
			}
			if cond.Target == nil {
				return validationErrorf("wait", "condition %d: no target element", i)
			}
		default:
			return validationErrorf("wait", "condition %d: unknown type %q", i, cond.Type)
		}
	}
	return nil
}

type waitSettled struct {
	index  int
	result Value
	event  *Event
}

func (c *WaitCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*WaitInput)
	start := time.Now()

	// Buffered so losing waiters settle without blocking and without a
	// goroutine leak; only the first arrival is read.
	settled := make(chan waitSettled, len(in.Conditions))
	cancels := make([]func(), 0, len(in.Conditions))

	for i, cond := range in.Conditions {
		i, cond := i, cond
		switch cond.Type {
		case "time":
			timer := time.AfterFunc(cond.Duration, func() {
				settled <- waitSettled{index: i, result: NewDuration(cond.Duration)}
			})
			cancels = append(cancels, func() { timer.Stop() })
		case "event":
			remove := cond.Target.Once(cond.EventName, func(ev *Event) {
				settled <- waitSettled{index: i, result: NewEventValue(ev), event: ev}
			})
			cancels = append(cancels, remove)
		}
	}

	// every not-yet-settled waiter is torn down at resolution
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	var first waitSettled
	select {
	case first = <-settled:
	case <-ctx.Ctx.Done():
		return CommandOutput{}, ctx.Ctx.Err()
	}

	winner := in.Conditions[first.index]
	outcome := WaitOutcome{
		Type:     winner.Type,
		Result:   first.result,
		Duration: time.Since(start),
		Event:    first.event,
	}

	ctx.It = outcome.Result
	if outcome.Event != nil {
		for _, name := range winner.Params {
			if v, ok := outcome.Event.Property(name); ok {
				ctx.Locals.Set(name, v)
			}
		}
	}

	return CommandOutput{Value: outcome.value()}, nil
}
