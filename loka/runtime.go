package loka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Synthetic event names dispatched by the runtime. Payloads follow the
// {element, command, ...fields, timestamp} convention.
const (
	EventError   = "loka:error"
	EventCommand = "loka:command"
)

const defaultLoopCap = 10000

// Config controls runtime limits and collaborators. Zero values get sane
// defaults in NewRuntime.
type Config struct {
	// LoopCap bounds while/until/until-event/forever loops as a
	// runaway-loop safety net.
	LoopCap int
	// Logger receives contained handler-body errors. Defaults to
	// slog.Default.
	Logger *slog.Logger
	// Document is the element tree scripts run against. A fresh empty
	// document is created when nil.
	Document *Document
	// NotifyCommands dispatches a loka:command event from the bound
	// element after every successful command.
	NotifyCommands bool
}

// Runtime owns the command registry and the active-registration index.
// Independent runtimes share no state.
type Runtime struct {
	config Config
	logger *slog.Logger
	doc    *Document

	commands map[string]Command

	regMu         sync.Mutex
	registrations map[string]*Registration
}

// NewRuntime constructs a runtime and registers the built-in command set.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.LoopCap <= 0 {
		cfg.LoopCap = defaultLoopCap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Document == nil {
		cfg.Document = NewDocument()
	}

	r := &Runtime{
		config:        cfg,
		logger:        cfg.Logger,
		doc:           cfg.Document,
		commands:      make(map[string]Command),
		registrations: make(map[string]*Registration),
	}

	for _, cmd := range builtinCommands(r) {
		if err := r.RegisterCommand(cmd); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRuntime constructs a runtime or panics on invalid configuration.
func MustNewRuntime(cfg Config) *Runtime {
	r, err := NewRuntime(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Document returns the runtime's document.
func (r *Runtime) Document() *Document { return r.doc }

// RegisterCommand adds a command to the dispatch registry. Registering a
// duplicate name is an error.
func (r *Runtime) RegisterCommand(cmd Command) error {
	name := cmd.Name()
	if name == "" {
		return errors.New("loka: command name must be non-empty")
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("loka: command %q already registered", name)
	}
	r.commands[name] = cmd
	return nil
}

// Compile parses source text into a script.
func (r *Runtime) Compile(source string) (*Script, error) {
	p := newParser(source)
	script := p.parseScript()
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	script.source = source
	return script, nil
}

// NewContext builds a fresh top-level execution context bound to me.
func (r *Runtime) NewContext(me *Element) *Context {
	return &Context{
		Me:      me,
		Locals:  NewScope(),
		Globals: NewScope(),
		Ctx:     context.Background(),
		runtime: r,
	}
}

// Run executes a script's top-level commands against a fresh context bound
// to me and returns the final `it` value.
func (r *Runtime) Run(ctx context.Context, script *Script, me *Element) (Value, error) {
	execCtx := r.NewContext(me)
	execCtx.Ctx = ctx
	_, flow, err := r.runBody(script.Commands, execCtx)
	if err != nil {
		return NewNil(), err
	}
	if flow.Kind == FlowReturn {
		return flow.Value, nil
	}
	return execCtx.It, nil
}

// Apply installs the script's event handlers on el and returns the live
// registrations. The caller owns the returned handles; the runtime's index
// is bookkeeping only.
func (r *Runtime) Apply(ctx context.Context, script *Script, el *Element) ([]*Registration, error) {
	regs := make([]*Registration, 0, len(script.Handlers))
	for _, handler := range script.Handlers {
		reg, err := r.installHandler(ctx, handler, el)
		if err != nil {
			for _, installed := range regs {
				installed.Cleanup()
			}
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// Execute compiles source, installs its handlers on me, and runs its
// top-level commands.
func (r *Runtime) Execute(ctx context.Context, source string, me *Element) (Value, []*Registration, error) {
	script, err := r.Compile(source)
	if err != nil {
		return NewNil(), nil, err
	}
	regs, err := r.Apply(ctx, script, me)
	if err != nil {
		return NewNil(), nil, err
	}
	value, err := r.Run(ctx, script, me)
	if err != nil {
		for _, reg := range regs {
			reg.Cleanup()
		}
		return NewNil(), nil, err
	}
	return value, regs, nil
}

// Registrations snapshots the active-registration index.
func (r *Runtime) Registrations() []*Registration {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	regs := make([]*Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		regs = append(regs, reg)
	}
	return regs
}

func (r *Runtime) indexRegistration(reg *Registration) {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	r.registrations[reg.ID] = reg
}

func (r *Runtime) dropRegistration(id string) {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	delete(r.registrations, id)
}

// reportError logs a contained handler-body failure and dispatches the
// synthetic loka:error event from the bound element.
func (r *Runtime) reportError(el *Element, command string, err error) {
	r.logger.Error("handler command failed",
		slog.String("command", command),
		slog.String("error", err.Error()),
	)
	if el == nil {
		return
	}
	el.Trigger(EventError, map[string]Value{
		"command":   NewString(command),
		"message":   NewString(err.Error()),
		"element":   NewElementValue(el),
		"timestamp": NewInt(time.Now().UnixMilli()),
	})
}
