package loka

// The AST is a closed set of node kinds. Command arguments and modifiers are
// expressions; the three engine commands (repeat, wait, if) carry dedicated
// clause structures so their inputs can be validated exhaustively instead of
// probed structurally.

// Expr is an expression node resolved by the evaluator.
type Expr interface {
	Pos() Position
	exprNode()
}

// LiteralExpr holds an already-materialized value (numbers, strings,
// durations, booleans, nil).
type LiteralExpr struct {
	Value Value
	P     Position
}

// IdentExpr names a variable or implicit reference (me, it, you, target,
// event, result).
type IdentExpr struct {
	Name string
	P    Position
}

// SelectorExpr is a query literal: ".class", "#id", or a tag name.
type SelectorExpr struct {
	Selector string
	P        Position
}

// AttrExpr references an attribute on the current element: @name.
type AttrExpr struct {
	Name string
	P    Position
}

// PropExpr accesses a named property of the target expression's value.
type PropExpr struct {
	Target Expr
	Name   string
	P      Position
}

// ArrayExpr is an array literal.
type ArrayExpr struct {
	Items []Expr
	P     Position
}

// UnaryExpr applies "not" or numeric negation.
type UnaryExpr struct {
	Op      string
	Operand Expr
	P       Position
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	P     Position
}

func (e *LiteralExpr) Pos() Position  { return e.P }
func (e *IdentExpr) Pos() Position    { return e.P }
func (e *SelectorExpr) Pos() Position { return e.P }
func (e *AttrExpr) Pos() Position     { return e.P }
func (e *PropExpr) Pos() Position     { return e.P }
func (e *ArrayExpr) Pos() Position    { return e.P }
func (e *UnaryExpr) Pos() Position    { return e.P }
func (e *BinaryExpr) Pos() Position   { return e.P }

func (*LiteralExpr) exprNode()  {}
func (*IdentExpr) exprNode()    {}
func (*SelectorExpr) exprNode() {}
func (*AttrExpr) exprNode()     {}
func (*PropExpr) exprNode()     {}
func (*ArrayExpr) exprNode()    {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}

// LoopKind enumerates the repeat command's loop strategies.
type LoopKind string

const (
	LoopFor        LoopKind = "for"
	LoopTimes      LoopKind = "times"
	LoopWhile      LoopKind = "while"
	LoopUntil      LoopKind = "until"
	LoopUntilEvent LoopKind = "until-event"
	LoopForever    LoopKind = "forever"
)

// LoopClause is the parsed surface form of a repeat command. Exactly one of
// Collection, Condition, Count, or EventName is populated, depending on Kind.
type LoopClause struct {
	Kind          LoopKind
	Variable      string
	IndexVariable string
	Collection    Expr
	Condition     Expr
	Count         Expr
	EventName     string
	EventTarget   Expr
}

// WaitConditionNode is one arm of a wait command: either a duration or an
// event (optionally with destructured property names and a source).
type WaitConditionNode struct {
	Time      Expr
	EventName string
	Params    []string
	From      Expr
	P         Position
}

// WaitClause holds the wait command's conditions; two or more form a race.
type WaitClause struct {
	Conditions []WaitConditionNode
}

// IfClause is a conditional command body with an optional else branch.
type IfClause struct {
	Condition Expr
	Then      []*CommandNode
	Else      []*CommandNode
}

// CommandNode is the uniform command shape handed to ParseInput: a name,
// positional arguments, keyword modifiers, and for the engine commands a
// dedicated clause plus body.
type CommandNode struct {
	Name      string
	Args      []Expr
	Modifiers map[string]Expr
	Body      []*CommandNode
	Loop      *LoopClause
	Wait      *WaitClause
	If        *IfClause
	P         Position
}

// Modifier returns the named modifier expression, or nil.
func (n *CommandNode) Modifier(name string) Expr {
	if n.Modifiers == nil {
		return nil
	}
	return n.Modifiers[name]
}

// QueueStrategy governs handler behavior when an event arrives while the
// handler body is still running.
type QueueStrategy string

const (
	QueueAll   QueueStrategy = "all"
	QueueFirst QueueStrategy = "first"
	QueueLast  QueueStrategy = "last"
	QueueNone  QueueStrategy = "none"
)

// SourceKind selects where a handler's listener attaches.
type SourceKind string

const (
	SourceSelf      SourceKind = "self"
	SourceElsewhere SourceKind = "elsewhere"
	SourceSelector  SourceKind = "selector"
)

// HandlerNode is the parsed handler descriptor produced from `on ...`
// syntax, before a live listener is attached.
type HandlerNode struct {
	EventName string
	Params    []string
	Filter    Expr
	CountFrom Expr
	CountTo   Expr
	Every     bool
	Source    SourceKind
	Selector  string
	Timing    *TimingNode
	Queue     QueueStrategy
	Body      []*CommandNode
	P         Position
}

// TimingNode is a debounce or throttle policy with its delay.
type TimingNode struct {
	Kind  TimingKind
	Delay Expr
}

// TimingKind selects the handler rate-limiting policy.
type TimingKind string

const (
	TimingDebounce TimingKind = "debounce"
	TimingThrottle TimingKind = "throttle"
)

// Script is a parsed program: event handlers plus top-level commands.
type Script struct {
	Handlers []*HandlerNode
	Commands []*CommandNode
	source   string
}

// Source returns the original source text the script was compiled from.
func (s *Script) Source() string { return s.source }
