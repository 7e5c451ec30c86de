package loka

import (
	stdruntime "runtime"
)

// RepeatCommand is the control-flow engine: six loop strategies with index
// binding, iteration-result propagation into `it`, and break/continue
// handling at the loop boundary.
type RepeatCommand struct {
	runtime *Runtime
}

func (c *RepeatCommand) Name() string { return "repeat" }

// RepeatInput is the typed loop descriptor. Exactly one of the collection,
// condition, count, or event fields is populated, depending on Kind.
type RepeatInput struct {
	Kind          LoopKind
	Variable      string
	IndexVariable string

	Items         []Value
	hasCollection bool

	Count int64

	// Condition re-evaluates the loop condition through the evaluator
	// captured at parse time; for `until` kinds the negation is already
	// applied.
	Condition func() (bool, error)

	EventName   string
	EventTarget *Element

	Body []*CommandNode
}

func (RepeatInput) commandInput() {}

// RepeatResult reports a finished loop.
type RepeatResult struct {
	Iterations  int
	Completed   bool
	Interrupted bool
}

func (res RepeatResult) value() Value {
	return NewHash(map[string]Value{
		"iterations":  NewInt(int64(res.Iterations)),
		"completed":   NewBool(res.Completed),
		"interrupted": NewBool(res.Interrupted),
	})
}

func (c *RepeatCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if node.Loop == nil {
		return nil, validationErrorf("repeat", "missing loop clause")
	}
	clause := node.Loop
	input := &RepeatInput{
		Kind:          clause.Kind,
		Variable:      clause.Variable,
		IndexVariable: clause.IndexVariable,
		Body:          node.Body,
	}

	switch clause.Kind {
	case LoopFor:
		if clause.Variable == "" {
			return nil, validationErrorf("repeat", "for loop requires a variable")
		}
		if clause.Collection == nil {
			return nil, validationErrorf("repeat", "for loop requires a collection")
		}
		collection, err := ev.Evaluate(clause.Collection, ctx)
		if err != nil {
			return nil, err
		}
		input.Items = collection.Items()
		input.hasCollection = true
	case LoopTimes:
		if clause.Count == nil {
			return nil, validationErrorf("repeat", "times loop requires a count")
		}
		count, err := ev.Evaluate(clause.Count, ctx)
		if err != nil {
			return nil, err
		}
		if count.Kind() != KindInt && count.Kind() != KindFloat {
			return nil, validationErrorf("repeat", "count must be a number, got %s", count.Kind())
		}
		if count.Int() < 0 {
			return nil, validationErrorf("repeat", "count must be non-negative, got %d", count.Int())
		}
		input.Count = count.Int()
	case LoopWhile, LoopUntil:
		if clause.Condition == nil {
			return nil, validationErrorf("repeat", "%s loop requires a condition", clause.Kind)
		}
		cond := clause.Condition
		negate := clause.Kind == LoopUntil
		input.Condition = func() (bool, error) {
			v, err := ev.Evaluate(cond, ctx)
			if err != nil {
				return false, err
			}
			truthy := v.Truthy()
			if negate {
				truthy = !truthy
			}
			return truthy, nil
		}
	case LoopUntilEvent:
		if clause.EventName == "" {
			return nil, validationErrorf("repeat", "until-event loop requires an event name")
		}
		input.EventName = clause.EventName
		input.EventTarget = ctx.Me
		if clause.EventTarget != nil {
			target, err := ev.Evaluate(clause.EventTarget, ctx)
			if err != nil {
				return nil, err
			}
			if target.Kind() != KindElement {
				return nil, validationErrorf("repeat", "event target must be an element, got %s", target.Kind())
			}
			input.EventTarget = target.Element()
		}
		if input.EventTarget == nil {
			return nil, validationErrorf("repeat", "until-event loop has no target element")
		}
	case LoopForever:
		// no terminating condition beyond the safety cap
	default:
		return nil, validationErrorf("repeat", "unknown loop kind %q", clause.Kind)
	}

	return input, nil
}

func (c *RepeatCommand) Validate(input CommandInput) error {
	in, ok := input.(*RepeatInput)
	if !ok {
		return validationErrorf("repeat", "unexpected input type %T", input)
	}
	switch in.Kind {
	case LoopFor:
		if !in.hasCollection {
			return validationErrorf("repeat", "for loop input missing collection")
		}
	case LoopTimes:
		if in.Count < 0 {
			return validationErrorf("repeat", "negative count")
		}
	case LoopWhile, LoopUntil:
		if in.Condition == nil {
			return validationErrorf("repeat", "%s loop input missing condition", in.Kind)
		}
	case LoopUntilEvent:
		if in.EventName == "" || in.EventTarget == nil {
			return validationErrorf("repeat", "until-event loop input missing event binding")
		}
	case LoopForever:
	default:
		return validationErrorf("repeat", "unknown loop kind %q", in.Kind)
	}
	return nil
}

func (c *RepeatCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*RepeatInput)
	switch in.Kind {
	case LoopFor:
		return c.runFor(in, ctx)
	case LoopTimes:
		return c.runTimes(in, ctx)
	case LoopWhile, LoopUntil:
		return c.runConditional(in, ctx)
	case LoopUntilEvent, LoopForever:
		return c.runEventDriven(in, ctx)
	default:
		return CommandOutput{}, validationErrorf("repeat", "unknown loop kind %q", in.Kind)
	}
}

// loopState accumulates per-iteration bookkeeping shared by every loop kind.
type loopState struct {
	result  RepeatResult
	last    Value
	hasLast bool
}

// runIteration executes one body attempt. The iteration count is incremented
// exactly once per attempt, whether the body completed, continued, or broke.
// It reports (done, flow, err): done ends the loop.
func (c *RepeatCommand) runIteration(in *RepeatInput, ctx *Context, st *loopState) (bool, Flow, error) {
	st.result.Iterations++
	val, flow, err := c.runtime.runBody(in.Body, ctx)
	if err != nil {
		return true, flowNormal, err
	}
	switch flow.Kind {
	case FlowBreak:
		st.result.Completed = true
		st.result.Interrupted = true
		return true, flowNormal, nil
	case FlowContinue:
		return false, flowNormal, nil
	case FlowReturn, FlowHalt:
		return true, flow, nil
	}
	if len(in.Body) > 0 {
		st.last = val
		st.hasLast = true
	}
	return false, flowNormal, nil
}

func (c *RepeatCommand) finish(st *loopState, ctx *Context) (CommandOutput, error) {
	if st.hasLast {
		ctx.It = st.last
	}
	return CommandOutput{Value: st.result.value()}, nil
}

func (c *RepeatCommand) runFor(in *RepeatInput, ctx *Context) (CommandOutput, error) {
	st := &loopState{}
	for i, item := range in.Items {
		ctx.SetVar(in.Variable, item)
		if in.IndexVariable != "" {
			ctx.SetVar(in.IndexVariable, NewInt(int64(i)))
		}
		done, flow, err := c.runIteration(in, ctx, st)
		if err != nil {
			return CommandOutput{}, err
		}
		if flow.Kind != FlowNormal {
			return CommandOutput{Value: st.result.value(), Flow: flow}, nil
		}
		if done {
			return c.finish(st, ctx)
		}
	}
	st.result.Completed = true
	return c.finish(st, ctx)
}

func (c *RepeatCommand) runTimes(in *RepeatInput, ctx *Context) (CommandOutput, error) {
	st := &loopState{}
	for i := int64(0); i < in.Count; i++ {
		// scripts observe the 1-based iteration number as `it`
		ctx.It = NewInt(i + 1)
		if in.IndexVariable != "" {
			ctx.SetVar(in.IndexVariable, NewInt(i))
		}
		done, flow, err := c.runIteration(in, ctx, st)
		if err != nil {
			return CommandOutput{}, err
		}
		if flow.Kind != FlowNormal {
			return CommandOutput{Value: st.result.value(), Flow: flow}, nil
		}
		if done {
			return c.finish(st, ctx)
		}
	}
	st.result.Completed = true
	return c.finish(st, ctx)
}

func (c *RepeatCommand) runConditional(in *RepeatInput, ctx *Context) (CommandOutput, error) {
	st := &loopState{}
	limit := c.runtime.config.LoopCap
	for st.result.Iterations < limit {
		proceed, err := in.Condition()
		if err != nil {
			return CommandOutput{}, err
		}
		if !proceed {
			st.result.Completed = true
			return c.finish(st, ctx)
		}
		done, flow, err := c.runIteration(in, ctx, st)
		if err != nil {
			return CommandOutput{}, err
		}
		if flow.Kind != FlowNormal {
			return CommandOutput{Value: st.result.value(), Flow: flow}, nil
		}
		if done {
			return c.finish(st, ctx)
		}
	}
	// safety cap reached: the loop ends without raising
	st.result.Completed = true
	return c.finish(st, ctx)
}

func (c *RepeatCommand) runEventDriven(in *RepeatInput, ctx *Context) (CommandOutput, error) {
	st := &loopState{}
	limit := c.runtime.config.LoopCap

	fired := make(chan struct{})
	remove := func() {}
	if in.Kind == LoopUntilEvent {
		remove = in.EventTarget.Once(in.EventName, func(*Event) {
			close(fired)
		})
	}
	defer remove()

	for st.result.Iterations < limit {
		select {
		case <-fired:
			st.result.Completed = true
			return c.finish(st, ctx)
		case <-ctx.Ctx.Done():
			return CommandOutput{}, ctx.Ctx.Err()
		default:
		}
		done, flow, err := c.runIteration(in, ctx, st)
		if err != nil {
			return CommandOutput{}, err
		}
		if flow.Kind != FlowNormal {
			return CommandOutput{Value: st.result.value(), Flow: flow}, nil
		}
		if done {
			return c.finish(st, ctx)
		}
		// yield between iterations so event sources get a chance to fire
		stdruntime.Gosched()
	}
	st.result.Completed = true
	return c.finish(st, ctx)
}
