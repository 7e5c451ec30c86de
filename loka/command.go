package loka

import "time"

// CommandInput is a typed, validated input value produced once by ParseInput
// and immutable for the duration of Execute. Each command defines its own
// variant.
type CommandInput interface {
	commandInput()
}

// CommandOutput is the typed result of Execute. BindsIt marks outputs that
// update the context's `it` slot.
type CommandOutput struct {
	Value   Value
	Flow    Flow
	BindsIt bool
}

// Command is the uniform contract every command implements to participate in
// both direct invocation and event-triggered invocation.
//
// ParseInput converts the raw argument/modifier AST into a typed input,
// resolving every expression it needs; it is the only phase permitted to call
// the evaluator. Execute performs the effect against already-parsed input and
// never re-evaluates AST nodes. Validate is a synchronous, side-effect-free
// predicate over parsed input, used defensively inside the dispatch path and
// independently by tests.
type Command interface {
	Name() string
	ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error)
	Validate(input CommandInput) error
	Execute(input CommandInput, ctx *Context) (CommandOutput, error)
}

// runCommand dispatches one command node: parse, validate, execute, then
// propagate the output into the context.
func (r *Runtime) runCommand(node *CommandNode, ctx *Context) (Value, Flow, error) {
	cmd, ok := r.commands[node.Name]
	if !ok {
		return NewNil(), flowNormal, runtimeErrorf(node.Name, node.P, "unknown command")
	}

	input, err := cmd.ParseInput(node, r, ctx)
	if err != nil {
		return NewNil(), flowNormal, err
	}
	if err := cmd.Validate(input); err != nil {
		return NewNil(), flowNormal, err
	}

	out, err := cmd.Execute(input, ctx)
	if err != nil {
		return NewNil(), flowNormal, err
	}
	if out.BindsIt {
		ctx.It = out.Value
	}
	if r.config.NotifyCommands && ctx.Me != nil && out.Flow.Normal() {
		ctx.Me.Trigger(EventCommand, map[string]Value{
			"command":   NewString(node.Name),
			"element":   NewElementValue(ctx.Me),
			"timestamp": NewInt(time.Now().UnixMilli()),
		})
	}
	return out.Value, out.Flow, nil
}

// runBody executes commands in order, stopping at the first error or
// non-normal flow. It returns the last executed command's value.
func (r *Runtime) runBody(body []*CommandNode, ctx *Context) (Value, Flow, error) {
	last := NewNil()
	for _, node := range body {
		if err := ctx.Ctx.Err(); err != nil {
			return NewNil(), flowNormal, err
		}
		val, flow, err := r.runCommand(node, ctx)
		if err != nil {
			return NewNil(), flowNormal, err
		}
		if !flow.Normal() {
			return val, flow, nil
		}
		last = val
	}
	return last, flowNormal, nil
}
