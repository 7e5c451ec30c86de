package loka

import (
	"log/slog"
	"strings"
)

// builtinCommands returns the command set registered on every new runtime.
func builtinCommands(r *Runtime) []Command {
	return []Command{
		&RepeatCommand{runtime: r},
		&WaitCommand{runtime: r},
		&OnIfCommand{runtime: r},
		&AddCommand{},
		&RemoveCommand{},
		&ToggleCommand{},
		&ShowCommand{},
		&HideCommand{},
		&SetCommand{},
		&PutCommand{},
		&LogCommand{logger: r.logger},
		&IncrementCommand{step: 1},
		&IncrementCommand{name: "decrement", step: -1},
		&SendCommand{name: "send"},
		&SendCommand{name: "trigger"},
		&FlowCommand{name: "break", kind: FlowBreak},
		&FlowCommand{name: "continue", kind: FlowContinue},
		&FlowCommand{name: "halt", kind: FlowHalt},
		&ReturnCommand{},
	}
}

// resolveTargets resolves a target expression at parse time: selectors match
// every element in document order; other expressions must evaluate to an
// element. A nil expression targets the bound element.
func resolveTargets(cmdName string, expr Expr, ev Evaluator, ctx *Context) ([]*Element, error) {
	if expr == nil {
		if ctx.Me == nil {
			return nil, validationErrorf(cmdName, "no target: not bound to an element")
		}
		return []*Element{ctx.Me}, nil
	}
	if sel, ok := expr.(*SelectorExpr); ok {
		doc := ctx.Document()
		if doc == nil {
			return nil, validationErrorf(cmdName, "no document to resolve %q against", sel.Selector)
		}
		return doc.QueryAll(sel.Selector), nil
	}
	v, err := ev.Evaluate(expr, ctx)
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case KindElement:
		return []*Element{v.Element()}, nil
	case KindArray:
		els := make([]*Element, 0, len(v.Array()))
		for _, item := range v.Array() {
			if item.Kind() != KindElement {
				return nil, runtimeErrorf(cmdName, expr.Pos(), "target collection contains %s", item.Kind())
			}
			els = append(els, item.Element())
		}
		return els, nil
	default:
		return nil, runtimeErrorf(cmdName, expr.Pos(), "cannot resolve target from %s", v.Kind())
	}
}

// classOrAttr splits a class/attribute argument node.
func classOrAttr(cmdName string, node *CommandNode) (class, attr string, err error) {
	if len(node.Args) != 1 {
		return "", "", validationErrorf(cmdName, "expected exactly one class or attribute argument")
	}
	switch arg := node.Args[0].(type) {
	case *SelectorExpr:
		if !strings.HasPrefix(arg.Selector, ".") {
			return "", "", validationErrorf(cmdName, "expected a class literal, got selector %q", arg.Selector)
		}
		return arg.Selector[1:], "", nil
	case *AttrExpr:
		return "", arg.Name, nil
	default:
		return "", "", validationErrorf(cmdName, "expected a .class or @attribute argument")
	}
}

// --- add / remove / toggle -------------------------------------------------

// ClassMutationInput drives the class/attribute mutator commands.
type ClassMutationInput struct {
	Class   string
	Attr    string
	Targets []*Element
}

func (ClassMutationInput) commandInput() {}

func validateClassMutation(name string, input CommandInput) error {
	in, ok := input.(*ClassMutationInput)
	if !ok {
		return validationErrorf(name, "unexpected input type %T", input)
	}
	if in.Class == "" && in.Attr == "" {
		return validationErrorf(name, "neither class nor attribute populated")
	}
	if in.Class != "" && in.Attr != "" {
		return validationErrorf(name, "both class and attribute populated")
	}
	return nil
}

func parseClassMutation(name, targetModifier string, node *CommandNode, ev Evaluator, ctx *Context) (*ClassMutationInput, error) {
	class, attr, err := classOrAttr(name, node)
	if err != nil {
		return nil, err
	}
	targets, err := resolveTargets(name, node.Modifier(targetModifier), ev, ctx)
	if err != nil {
		return nil, err
	}
	return &ClassMutationInput{Class: class, Attr: attr, Targets: targets}, nil
}

// AddCommand adds a class (or sets an empty attribute) on its targets.
type AddCommand struct{}

func (AddCommand) Name() string { return "add" }

func (AddCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	return parseClassMutation("add", "to", node, ev, ctx)
}

func (AddCommand) Validate(input CommandInput) error {
	return validateClassMutation("add", input)
}

func (AddCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*ClassMutationInput)
	for _, el := range in.Targets {
		if in.Class != "" {
			el.AddClass(in.Class)
		} else {
			el.SetAttribute(in.Attr, "")
		}
	}
	return CommandOutput{}, nil
}

// RemoveCommand removes a class or attribute from its targets.
type RemoveCommand struct{}

func (RemoveCommand) Name() string { return "remove" }

func (RemoveCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	return parseClassMutation("remove", "from", node, ev, ctx)
}

func (RemoveCommand) Validate(input CommandInput) error {
	return validateClassMutation("remove", input)
}

func (RemoveCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*ClassMutationInput)
	for _, el := range in.Targets {
		if in.Class != "" {
			el.RemoveClass(in.Class)
		} else {
			el.RemoveAttribute(in.Attr)
		}
	}
	return CommandOutput{}, nil
}

// ToggleCommand flips a class on its targets.
type ToggleCommand struct{}

func (ToggleCommand) Name() string { return "toggle" }

func (ToggleCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	in, err := parseClassMutation("toggle", "on", node, ev, ctx)
	if err != nil {
		return nil, err
	}
	if in.Attr != "" {
		return nil, validationErrorf("toggle", "only classes can be toggled")
	}
	return in, nil
}

func (ToggleCommand) Validate(input CommandInput) error {
	return validateClassMutation("toggle", input)
}

func (ToggleCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*ClassMutationInput)
	for _, el := range in.Targets {
		el.ToggleClass(in.Class)
	}
	return CommandOutput{}, nil
}

// --- show / hide -----------------------------------------------------------

// VisibilityInput drives show and hide.
type VisibilityInput struct {
	Targets []*Element
}

func (VisibilityInput) commandInput() {}

func parseVisibility(name string, node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	var target Expr
	if len(node.Args) > 1 {
		return nil, validationErrorf(name, "expected at most one target argument")
	}
	if len(node.Args) == 1 {
		target = node.Args[0]
	}
	targets, err := resolveTargets(name, target, ev, ctx)
	if err != nil {
		return nil, err
	}
	return &VisibilityInput{Targets: targets}, nil
}

func validateVisibility(name string, input CommandInput) error {
	if _, ok := input.(*VisibilityInput); !ok {
		return validationErrorf(name, "unexpected input type %T", input)
	}
	return nil
}

// ShowCommand marks its targets visible.
type ShowCommand struct{}

func (ShowCommand) Name() string { return "show" }

func (ShowCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	return parseVisibility("show", node, ev, ctx)
}

func (ShowCommand) Validate(input CommandInput) error { return validateVisibility("show", input) }

func (ShowCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	for _, el := range input.(*VisibilityInput).Targets {
		el.Show()
	}
	return CommandOutput{}, nil
}

// HideCommand marks its targets hidden.
type HideCommand struct{}

func (HideCommand) Name() string { return "hide" }

func (HideCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	return parseVisibility("hide", node, ev, ctx)
}

func (HideCommand) Validate(input CommandInput) error { return validateVisibility("hide", input) }

func (HideCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	for _, el := range input.(*VisibilityInput).Targets {
		el.Hide()
	}
	return CommandOutput{}, nil
}

// --- set / put -------------------------------------------------------------

// SetInput assigns either a variable or an attribute.
type SetInput struct {
	Variable string
	Attr     string
	Targets  []*Element
	Value    Value
}

func (SetInput) commandInput() {}

// SetCommand writes a variable (`set x to 5`) or an attribute
// (`set @title to "hi"`).
type SetCommand struct{}

func (SetCommand) Name() string { return "set" }

func (SetCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if len(node.Args) != 1 {
		return nil, validationErrorf("set", "expected exactly one assignment target")
	}
	valueExpr := node.Modifier("to")
	if valueExpr == nil {
		return nil, validationErrorf("set", "missing 'to' value")
	}
	value, err := ev.Evaluate(valueExpr, ctx)
	if err != nil {
		return nil, err
	}

	switch arg := node.Args[0].(type) {
	case *IdentExpr:
		return &SetInput{Variable: arg.Name, Value: value}, nil
	case *AttrExpr:
		targets, err := resolveTargets("set", node.Modifier("on"), ev, ctx)
		if err != nil {
			return nil, err
		}
		return &SetInput{Attr: arg.Name, Targets: targets, Value: value}, nil
	default:
		return nil, validationErrorf("set", "assignment target must be a variable or @attribute")
	}
}

func (SetCommand) Validate(input CommandInput) error {
	in, ok := input.(*SetInput)
	if !ok {
		return validationErrorf("set", "unexpected input type %T", input)
	}
	if in.Variable == "" && in.Attr == "" {
		return validationErrorf("set", "no assignment target")
	}
	return nil
}

func (SetCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*SetInput)
	if in.Variable != "" {
		ctx.SetVar(in.Variable, in.Value)
	} else {
		for _, el := range in.Targets {
			el.SetAttribute(in.Attr, in.Value.String())
		}
	}
	return CommandOutput{Value: in.Value, BindsIt: true}, nil
}

// PutInput writes a value into element text content.
type PutInput struct {
	Value   Value
	Targets []*Element
}

func (PutInput) commandInput() {}

// PutCommand renders a value into its targets' text content.
type PutCommand struct{}

func (PutCommand) Name() string { return "put" }

func (PutCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if len(node.Args) != 1 {
		return nil, validationErrorf("put", "expected exactly one value argument")
	}
	value, err := ev.Evaluate(node.Args[0], ctx)
	if err != nil {
		return nil, err
	}
	targets, err := resolveTargets("put", node.Modifier("into"), ev, ctx)
	if err != nil {
		return nil, err
	}
	return &PutInput{Value: value, Targets: targets}, nil
}

func (PutCommand) Validate(input CommandInput) error {
	in, ok := input.(*PutInput)
	if !ok {
		return validationErrorf("put", "unexpected input type %T", input)
	}
	if len(in.Targets) == 0 {
		return validationErrorf("put", "no targets resolved")
	}
	return nil
}

func (PutCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*PutInput)
	for _, el := range in.Targets {
		el.SetText(in.Value.String())
	}
	return CommandOutput{Value: in.Value, BindsIt: true}, nil
}

// --- log -------------------------------------------------------------------

// LogInput carries the already-rendered values to log.
type LogInput struct {
	Values []Value
}

func (LogInput) commandInput() {}

// LogCommand writes its arguments to the runtime's logger.
type LogCommand struct {
	logger *slog.Logger
}

func (LogCommand) Name() string { return "log" }

func (LogCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	values := make([]Value, 0, len(node.Args))
	for _, arg := range node.Args {
		v, err := ev.Evaluate(arg, ctx)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &LogInput{Values: values}, nil
}

func (LogCommand) Validate(input CommandInput) error {
	if _, ok := input.(*LogInput); !ok {
		return validationErrorf("log", "unexpected input type %T", input)
	}
	return nil
}

func (c *LogCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*LogInput)
	parts := make([]string, 0, len(in.Values))
	for _, v := range in.Values {
		parts = append(parts, v.String())
	}
	c.logger.Info(strings.Join(parts, " "))
	return CommandOutput{}, nil
}

// --- increment / decrement -------------------------------------------------

// IncrementInput adjusts a numeric variable by a step.
type IncrementInput struct {
	Variable string
	Delta    int64
}

func (IncrementInput) commandInput() {}

// IncrementCommand adds (or with a negative step subtracts) a delta to a
// variable, treating unset and nil as zero.
type IncrementCommand struct {
	name string
	step int64
}

func (c *IncrementCommand) Name() string {
	if c.name != "" {
		return c.name
	}
	return "increment"
}

func (c *IncrementCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if len(node.Args) != 1 {
		return nil, validationErrorf(c.Name(), "expected exactly one variable argument")
	}
	ident, ok := node.Args[0].(*IdentExpr)
	if !ok {
		return nil, validationErrorf(c.Name(), "argument must be a variable name")
	}
	delta := int64(1)
	if by := node.Modifier("by"); by != nil {
		v, err := ev.Evaluate(by, ctx)
		if err != nil {
			return nil, err
		}
		if v.Kind() != KindInt {
			return nil, validationErrorf(c.Name(), "'by' must be an integer, got %s", v.Kind())
		}
		delta = v.Int()
	}
	return &IncrementInput{Variable: ident.Name, Delta: delta * c.step}, nil
}

func (c *IncrementCommand) Validate(input CommandInput) error {
	in, ok := input.(*IncrementInput)
	if !ok {
		return validationErrorf(c.Name(), "unexpected input type %T", input)
	}
	if in.Variable == "" {
		return validationErrorf(c.Name(), "empty variable name")
	}
	return nil
}

func (c *IncrementCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*IncrementInput)
	current, _ := ctx.Lookup(in.Variable)
	var next Value
	switch current.Kind() {
	case KindNil:
		next = NewInt(in.Delta)
	case KindInt:
		next = NewInt(current.Int() + in.Delta)
	case KindFloat:
		next = NewFloat(current.Float() + float64(in.Delta))
	default:
		return CommandOutput{}, runtimeErrorf(c.Name(), Position{}, "variable %q holds %s, not a number", in.Variable, current.Kind())
	}
	ctx.SetVar(in.Variable, next)
	return CommandOutput{Value: next, BindsIt: true}, nil
}

// --- send / trigger --------------------------------------------------------

// SendInput dispatches a custom event with a detail payload.
type SendInput struct {
	EventName string
	Detail    map[string]Value
	Targets   []*Element
}

func (SendInput) commandInput() {}

// SendCommand dispatches a named event, with optional detail pairs, to its
// targets. trigger is the same command without a payload idiom.
type SendCommand struct {
	name string
}

func (c *SendCommand) Name() string { return c.name }

func (c *SendCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if len(node.Args) != 1 {
		return nil, validationErrorf(c.name, "expected an event name")
	}
	lit, ok := node.Args[0].(*LiteralExpr)
	if !ok || lit.Value.Kind() != KindString {
		return nil, validationErrorf(c.name, "event name must be an identifier")
	}

	input := &SendInput{EventName: lit.Value.String()}
	for key, expr := range node.Modifiers {
		if key == "to" {
			continue
		}
		v, err := ev.Evaluate(expr, ctx)
		if err != nil {
			return nil, err
		}
		if input.Detail == nil {
			input.Detail = make(map[string]Value)
		}
		input.Detail[key] = v
	}

	targets, err := resolveTargets(c.name, node.Modifier("to"), ev, ctx)
	if err != nil {
		return nil, err
	}
	input.Targets = targets
	return input, nil
}

func (c *SendCommand) Validate(input CommandInput) error {
	in, ok := input.(*SendInput)
	if !ok {
		return validationErrorf(c.name, "unexpected input type %T", input)
	}
	if in.EventName == "" {
		return validationErrorf(c.name, "empty event name")
	}
	if len(in.Targets) == 0 {
		return validationErrorf(c.name, "no targets resolved")
	}
	return nil
}

func (c *SendCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*SendInput)
	for _, el := range in.Targets {
		el.Trigger(in.EventName, in.Detail)
	}
	return CommandOutput{}, nil
}

// --- control signals -------------------------------------------------------

// FlowInput is the empty input of the control-signal commands.
type FlowInput struct{}

func (FlowInput) commandInput() {}

// FlowCommand emits a control signal (break, continue, halt) absorbed at the
// nearest loop or invocation boundary.
type FlowCommand struct {
	name string
	kind FlowKind
}

func (c *FlowCommand) Name() string { return c.name }

func (c *FlowCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if len(node.Args) > 0 || len(node.Modifiers) > 0 {
		return nil, validationErrorf(c.name, "takes no arguments")
	}
	return &FlowInput{}, nil
}

func (c *FlowCommand) Validate(input CommandInput) error {
	if _, ok := input.(*FlowInput); !ok {
		return validationErrorf(c.name, "unexpected input type %T", input)
	}
	return nil
}

func (c *FlowCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	return CommandOutput{Flow: Flow{Kind: c.kind}}, nil
}

// ReturnInput carries the optional return value.
type ReturnInput struct {
	Value Value
}

func (ReturnInput) commandInput() {}

// ReturnCommand ends the current invocation with an optional value.
type ReturnCommand struct{}

func (ReturnCommand) Name() string { return "return" }

func (ReturnCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	input := &ReturnInput{Value: NewNil()}
	if len(node.Args) > 1 {
		return nil, validationErrorf("return", "expected at most one value")
	}
	if len(node.Args) == 1 {
		v, err := ev.Evaluate(node.Args[0], ctx)
		if err != nil {
			return nil, err
		}
		input.Value = v
	}
	return input, nil
}

func (ReturnCommand) Validate(input CommandInput) error {
	if _, ok := input.(*ReturnInput); !ok {
		return validationErrorf("return", "unexpected input type %T", input)
	}
	return nil
}

func (ReturnCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*ReturnInput)
	return CommandOutput{Value: in.Value, Flow: Flow{Kind: FlowReturn, Value: in.Value}}, nil
}

// --- if --------------------------------------------------------------------

// IfInput is the branch chosen at parse time.
type IfInput struct {
	Taken bool
	Body  []*CommandNode
}

func (IfInput) commandInput() {}

// OnIfCommand is the conditional command: the condition resolves during
// ParseInput, and Execute runs the chosen branch.
type OnIfCommand struct {
	runtime *Runtime
}

func (OnIfCommand) Name() string { return "if" }

func (c *OnIfCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	if node.If == nil {
		return nil, validationErrorf("if", "missing condition clause")
	}
	cond, err := ev.Evaluate(node.If.Condition, ctx)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return &IfInput{Taken: true, Body: node.If.Then}, nil
	}
	return &IfInput{Taken: len(node.If.Else) > 0, Body: node.If.Else}, nil
}

func (OnIfCommand) Validate(input CommandInput) error {
	if _, ok := input.(*IfInput); !ok {
		return validationErrorf("if", "unexpected input type %T", input)
	}
	return nil
}

func (c *OnIfCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*IfInput)
	if !in.Taken {
		return CommandOutput{}, nil
	}
	val, flow, err := c.runtime.runBody(in.Body, ctx)
	if err != nil {
		return CommandOutput{}, err
	}
	return CommandOutput{Value: val, Flow: flow}, nil
}
