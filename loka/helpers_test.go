package loka

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func newTestRuntime(t testing.TB, cfg Config) *Runtime {
	t.Helper()
	r, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return r
}

func compileSource(t testing.TB, r *Runtime, source string) *Script {
	t.Helper()
	script, err := r.Compile(source)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return script
}

func runSource(t testing.TB, r *Runtime, source string, me *Element) Value {
	t.Helper()
	script := compileSource(t, r, source)
	result, err := r.Run(context.Background(), script, me)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return result
}

func runSourceError(t testing.TB, r *Runtime, source string, me *Element) error {
	t.Helper()
	script := compileSource(t, r, source)
	_, err := r.Run(context.Background(), script, me)
	if err == nil {
		t.Fatalf("expected run to fail")
	}
	return err
}

func applySource(t testing.TB, r *Runtime, source string, el *Element) []*Registration {
	t.Helper()
	script := compileSource(t, r, source)
	regs, err := r.Apply(context.Background(), script, el)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	t.Cleanup(func() {
		for _, reg := range regs {
			reg.Cleanup()
		}
	})
	return regs
}

func requireCompileErrorContains(t testing.TB, r *Runtime, source, want string) {
	t.Helper()
	_, err := r.Compile(source)
	if err == nil {
		t.Fatalf("expected compile to fail")
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not contain %q", err.Error(), want)
	}
}

// attachedElement builds an element attached to the runtime's document root.
func attachedElement(r *Runtime, tag, id string) *Element {
	el := r.Document().CreateElement(tag)
	if id != "" {
		el.SetAttribute("id", id)
	}
	r.Document().Root().AppendChild(el)
	return el
}

// bumpInput is the empty input of the test counting command.
type bumpInput struct{}

func (bumpInput) commandInput() {}

// bumpCommand counts how often its Execute phase runs. It doubles as the
// host-registered command in extension tests.
type bumpCommand struct {
	mu   sync.Mutex
	runs int
}

func (*bumpCommand) Name() string { return "bump" }

func (*bumpCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	return &bumpInput{}, nil
}

func (*bumpCommand) Validate(input CommandInput) error {
	if _, ok := input.(*bumpInput); !ok {
		return validationErrorf("bump", "unexpected input type %T", input)
	}
	return nil
}

func (c *bumpCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
	return CommandOutput{}, nil
}

func (c *bumpCommand) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// markInput carries the values recorded by the mark command.
type markInput struct {
	values []Value
}

func (markInput) commandInput() {}

// markCommand records the evaluated arguments of each invocation, in order.
type markCommand struct {
	mu       sync.Mutex
	recorded []Value
}

func (*markCommand) Name() string { return "mark" }

func (*markCommand) ParseInput(node *CommandNode, ev Evaluator, ctx *Context) (CommandInput, error) {
	values := make([]Value, 0, len(node.Args))
	for _, arg := range node.Args {
		v, err := ev.Evaluate(arg, ctx)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &markInput{values: values}, nil
}

func (*markCommand) Validate(input CommandInput) error {
	if _, ok := input.(*markInput); !ok {
		return validationErrorf("mark", "unexpected input type %T", input)
	}
	return nil
}

func (c *markCommand) Execute(input CommandInput, ctx *Context) (CommandOutput, error) {
	in := input.(*markInput)
	c.mu.Lock()
	c.recorded = append(c.recorded, in.values...)
	c.mu.Unlock()
	return CommandOutput{}, nil
}

func (c *markCommand) values() []Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Value(nil), c.recorded...)
}

func registerBump(t testing.TB, r *Runtime) *bumpCommand {
	t.Helper()
	cmd := &bumpCommand{}
	if err := r.RegisterCommand(cmd); err != nil {
		t.Fatalf("register bump: %v", err)
	}
	return cmd
}

func registerMark(t testing.TB, r *Runtime) *markCommand {
	t.Helper()
	cmd := &markCommand{}
	if err := r.RegisterCommand(cmd); err != nil {
		t.Fatalf("register mark: %v", err)
	}
	return cmd
}
