package loka

// Evaluator resolves AST expression nodes to values. All expression
// resolution funnels through this single entry point; ParseInput is the only
// place in the command lifecycle permitted to call it.
type Evaluator interface {
	Evaluate(expr Expr, ctx *Context) (Value, error)
}

// Evaluate resolves an expression against a context.
func (r *Runtime) Evaluate(expr Expr, ctx *Context) (Value, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value, nil
	case *IdentExpr:
		return r.evalIdent(e, ctx), nil
	case *SelectorExpr:
		if doc := ctx.Document(); doc != nil {
			if el := doc.Query(e.Selector); el != nil {
				return NewElementValue(el), nil
			}
		}
		return NewNil(), nil
	case *AttrExpr:
		if ctx.Me == nil {
			return NewNil(), nil
		}
		if v, ok := ctx.Me.Attribute(e.Name); ok {
			return NewString(v), nil
		}
		return NewNil(), nil
	case *PropExpr:
		target, err := r.Evaluate(e.Target, ctx)
		if err != nil {
			return NewNil(), err
		}
		return r.evalProperty(target, e.Name, e.P)
	case *ArrayExpr:
		items := make([]Value, 0, len(e.Items))
		for _, item := range e.Items {
			v, err := r.Evaluate(item, ctx)
			if err != nil {
				return NewNil(), err
			}
			items = append(items, v)
		}
		return NewArray(items), nil
	case *UnaryExpr:
		operand, err := r.Evaluate(e.Operand, ctx)
		if err != nil {
			return NewNil(), err
		}
		switch e.Op {
		case "not":
			return NewBool(!operand.Truthy()), nil
		case "-":
			switch operand.Kind() {
			case KindInt:
				return NewInt(-operand.Int()), nil
			case KindFloat:
				return NewFloat(-operand.Float()), nil
			default:
				return NewNil(), runtimeErrorf("expression", e.P, "cannot negate %s", operand.Kind())
			}
		default:
			return NewNil(), runtimeErrorf("expression", e.P, "unknown operator %q", e.Op)
		}
	case *BinaryExpr:
		return r.evalBinary(e, ctx)
	default:
		return NewNil(), runtimeErrorf("expression", expr.Pos(), "unsupported expression node %T", expr)
	}
}

func (r *Runtime) evalIdent(e *IdentExpr, ctx *Context) Value {
	switch e.Name {
	case "me", "my", "self":
		if ctx.Me != nil {
			return NewElementValue(ctx.Me)
		}
		return NewNil()
	case "it":
		return ctx.It
	case "you":
		if ctx.You != nil {
			return NewElementValue(ctx.You)
		}
		return NewNil()
	case "target":
		if ctx.Target != nil {
			return NewElementValue(ctx.Target)
		}
		return NewNil()
	case "event":
		if ctx.Event != nil {
			return NewEventValue(ctx.Event)
		}
		return NewNil()
	case "result":
		return ctx.Result
	case "detail":
		if ctx.Event != nil && ctx.Event.Detail != nil {
			return NewHash(ctx.Event.Detail)
		}
		return NewNil()
	case "window", "document", "body":
		if doc := ctx.Document(); doc != nil {
			return NewElementValue(doc.Root())
		}
		return NewNil()
	}
	if v, ok := ctx.Lookup(e.Name); ok {
		return v
	}
	return NewNil()
}

func (r *Runtime) evalProperty(target Value, name string, pos Position) (Value, error) {
	switch target.Kind() {
	case KindNil:
		return NewNil(), nil
	case KindEvent:
		ev := target.Event()
		switch name {
		case "type":
			return NewString(ev.Type), nil
		case "target":
			if ev.Target != nil {
				return NewElementValue(ev.Target), nil
			}
			return NewNil(), nil
		case "currentTarget":
			if ev.CurrentTarget != nil {
				return NewElementValue(ev.CurrentTarget), nil
			}
			return NewNil(), nil
		}
		if v, ok := ev.Property(name); ok {
			return v, nil
		}
		return NewNil(), nil
	case KindElement:
		el := target.Element()
		switch name {
		case "textContent", "innerText":
			return NewString(el.Text()), nil
		case "hidden":
			return NewBool(el.Hidden()), nil
		case "tag", "tagName":
			return NewString(el.Tag()), nil
		case "parent", "parentElement":
			if parent := el.Parent(); parent != nil {
				return NewElementValue(parent), nil
			}
			return NewNil(), nil
		}
		if v, ok := el.Attribute(name); ok {
			return NewString(v), nil
		}
		return NewNil(), nil
	case KindHash:
		if v, ok := target.Hash()[name]; ok {
			return v, nil
		}
		return NewNil(), nil
	case KindArray:
		if name == "length" {
			return NewInt(int64(len(target.Array()))), nil
		}
		return NewNil(), runtimeErrorf("expression", pos, "unknown array property %q", name)
	case KindString:
		if name == "length" {
			return NewInt(int64(len(target.String()))), nil
		}
		return NewNil(), runtimeErrorf("expression", pos, "unknown string property %q", name)
	default:
		return NewNil(), runtimeErrorf("expression", pos, "cannot read property %q of %s", name, target.Kind())
	}
}

func (r *Runtime) evalBinary(e *BinaryExpr, ctx *Context) (Value, error) {
	// and/or short-circuit and yield the deciding operand.
	if e.Op == "and" || e.Op == "or" {
		left, err := r.Evaluate(e.Left, ctx)
		if err != nil {
			return NewNil(), err
		}
		if e.Op == "and" {
			if !left.Truthy() {
				return left, nil
			}
		} else if left.Truthy() {
			return left, nil
		}
		return r.Evaluate(e.Right, ctx)
	}

	left, err := r.Evaluate(e.Left, ctx)
	if err != nil {
		return NewNil(), err
	}
	right, err := r.Evaluate(e.Right, ctx)
	if err != nil {
		return NewNil(), err
	}

	switch e.Op {
	case "==":
		return NewBool(left.Equal(right)), nil
	case "!=":
		return NewBool(!left.Equal(right)), nil
	case "<", ">", "<=", ">=":
		return compareOrdered(e.Op, left, right, e.P)
	case "+":
		if left.Kind() == KindString || right.Kind() == KindString {
			return NewString(left.String() + right.String()), nil
		}
		return arithmetic(e.Op, left, right, e.P)
	case "-", "*", "/":
		return arithmetic(e.Op, left, right, e.P)
	default:
		return NewNil(), runtimeErrorf("expression", e.P, "unknown operator %q", e.Op)
	}
}

func compareOrdered(op string, left, right Value, pos Position) (Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return NewNil(), runtimeErrorf("expression", pos, "cannot compare %s with %s", left.Kind(), right.Kind())
	}
	a, b := left.Float(), right.Float()
	if left.Kind() == KindDuration {
		a = float64(left.Duration())
	}
	if right.Kind() == KindDuration {
		b = float64(right.Duration())
	}
	switch op {
	case "<":
		return NewBool(a < b), nil
	case ">":
		return NewBool(a > b), nil
	case "<=":
		return NewBool(a <= b), nil
	default:
		return NewBool(a >= b), nil
	}
}

func arithmetic(op string, left, right Value, pos Position) (Value, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return NewNil(), runtimeErrorf("expression", pos, "cannot apply %q to %s and %s", op, left.Kind(), right.Kind())
	}
	if left.Kind() == KindInt && right.Kind() == KindInt {
		a, b := left.Int(), right.Int()
		switch op {
		case "+":
			return NewInt(a + b), nil
		case "-":
			return NewInt(a - b), nil
		case "*":
			return NewInt(a * b), nil
		default:
			if b == 0 {
				return NewNil(), runtimeErrorf("expression", pos, "division by zero")
			}
			return NewInt(a / b), nil
		}
	}
	a, b := left.Float(), right.Float()
	switch op {
	case "+":
		return NewFloat(a + b), nil
	case "-":
		return NewFloat(a - b), nil
	case "*":
		return NewFloat(a * b), nil
	default:
		if b == 0 {
			return NewNil(), runtimeErrorf("expression", pos, "division by zero")
		}
		return NewFloat(a / b), nil
	}
}

func isNumeric(v Value) bool {
	return v.Kind() == KindInt || v.Kind() == KindFloat || v.Kind() == KindDuration
}
