package loka

// FlowKind tags the control outcome of a body-execution step. Break and
// continue are absorbed at the nearest enclosing loop; return and halt at the
// nearest invocation boundary. These are not errors and never reach callers.
type FlowKind int

const (
	FlowNormal FlowKind = iota
	FlowBreak
	FlowContinue
	FlowReturn
	FlowHalt
)

func (k FlowKind) String() string {
	switch k {
	case FlowNormal:
		return "normal"
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	case FlowReturn:
		return "return"
	case FlowHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Flow is the tagged control-flow result carried up the call stack from every
// body-execution step.
type Flow struct {
	Kind  FlowKind
	Value Value
}

// Normal reports whether execution should proceed to the next command.
func (f Flow) Normal() bool { return f.Kind == FlowNormal }

var flowNormal = Flow{Kind: FlowNormal}
