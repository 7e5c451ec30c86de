package loka

import (
	"fmt"
	"strconv"
	"time"
)

type parser struct {
	lex *lexer

	cur  Token
	peek Token

	errs []error
}

func newParser(input string) *parser {
	p := &parser{lex: newLexer(input)}
	p.next()
	p.next()
	return p
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *parser) errorf(pos Position, format string, args ...any) {
	p.errs = append(p.errs, &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func (p *parser) expect(t TokenType) bool {
	if p.cur.Type == t {
		p.next()
		return true
	}
	p.errorf(p.cur.Pos, "expected %s, found %q", t, p.cur.Literal)
	return false
}

func (p *parser) skipSeparators() {
	for p.cur.Type == tokenNewline || p.cur.Type == tokenThen {
		p.next()
	}
}

func (p *parser) atSeparator() bool {
	return p.cur.Type == tokenNewline || p.cur.Type == tokenThen
}

func (p *parser) atBodyEnd() bool {
	return p.cur.Type == tokenEnd || p.cur.Type == tokenElse || p.cur.Type == tokenEOF
}

// parseScript parses a whole program: a mix of `on` handlers and top-level
// commands.
func (p *parser) parseScript() *Script {
	script := &Script{}
	p.skipSeparators()
	for p.cur.Type != tokenEOF {
		if p.cur.Type == tokenOn {
			if handler := p.parseHandler(); handler != nil {
				script.Handlers = append(script.Handlers, handler)
			}
		} else {
			if cmd := p.parseCommand(); cmd != nil {
				script.Commands = append(script.Commands, cmd)
			}
		}
		if len(p.errs) > 0 {
			return script
		}
		p.skipSeparators()
	}
	return script
}

// parseHandler parses a full handler descriptor:
//
//	on [every] <event>[(<params>)] [<filter>] [n [to m]] [from <source>]
//	   [debounced|throttled at <time>] [queue <strategy>]
//	  <body>
//	end
func (p *parser) parseHandler() *HandlerNode {
	handler := &HandlerNode{Source: SourceSelf, Queue: QueueLast, P: p.cur.Pos}
	p.next() // on

	if p.cur.Type == tokenEvery {
		handler.Every = true
		p.next()
	}

	if p.cur.Type != tokenIdent {
		p.errorf(p.cur.Pos, "expected event name, found %q", p.cur.Literal)
		return nil
	}
	handler.EventName = p.cur.Literal
	p.next()

	if p.cur.Type == tokenLParen {
		handler.Params = p.parseNameList()
	}

	if p.cur.Type == tokenLBracket {
		p.next()
		handler.Filter = p.parseExpression()
		p.expect(tokenRBracket)
	}

	if p.cur.Type == tokenInt {
		handler.CountFrom = p.parsePrimary()
		if p.cur.Type == tokenTo {
			p.next()
			handler.CountTo = p.parsePrimary()
		}
	}

	if p.cur.Type == tokenFrom {
		p.next()
		switch p.cur.Type {
		case tokenSelf:
			handler.Source = SourceSelf
			p.next()
		case tokenElsewhere:
			handler.Source = SourceElsewhere
			p.next()
		case tokenClass:
			handler.Source = SourceSelector
			handler.Selector = "." + p.cur.Literal
			p.next()
		case tokenIDSel:
			handler.Source = SourceSelector
			handler.Selector = "#" + p.cur.Literal
			p.next()
		case tokenIdent, tokenString:
			handler.Source = SourceSelector
			handler.Selector = p.cur.Literal
			p.next()
		default:
			p.errorf(p.cur.Pos, "expected handler source, found %q", p.cur.Literal)
			return nil
		}
	}

	if p.cur.Type == tokenDebounced || p.cur.Type == tokenThrottled {
		kind := TimingDebounce
		if p.cur.Type == tokenThrottled {
			kind = TimingThrottle
		}
		p.next()
		if !p.expect(tokenAt) {
			return nil
		}
		handler.Timing = &TimingNode{Kind: kind, Delay: p.parseExpression()}
	}

	if p.cur.Type == tokenQueue {
		p.next()
		strategy := QueueStrategy(p.cur.Literal)
		switch strategy {
		case QueueAll, QueueFirst, QueueLast, QueueNone:
			handler.Queue = strategy
			p.next()
		default:
			p.errorf(p.cur.Pos, "unknown queue strategy %q", p.cur.Literal)
			return nil
		}
	}

	handler.Body = p.parseBody()
	if !p.expect(tokenEnd) {
		return nil
	}
	return handler
}

// parseBody parses separator-delimited commands until end/else/EOF.
func (p *parser) parseBody() []*CommandNode {
	var body []*CommandNode
	p.skipSeparators()
	for !p.atBodyEnd() {
		cmd := p.parseCommand()
		if cmd == nil {
			return body
		}
		body = append(body, cmd)
		if !p.atSeparator() && !p.atBodyEnd() {
			p.errorf(p.cur.Pos, "unexpected %q after command", p.cur.Literal)
			return body
		}
		p.skipSeparators()
	}
	return body
}

func (p *parser) parseCommand() *CommandNode {
	switch p.cur.Type {
	case tokenRepeat:
		return p.parseRepeat()
	case tokenWait:
		return p.parseWait()
	case tokenIf:
		return p.parseIf()
	case tokenReturn:
		return p.parseReturn()
	case tokenIdent:
		return p.parseSimpleCommand()
	default:
		p.errorf(p.cur.Pos, "expected command, found %q", p.cur.Literal)
		return nil
	}
}

func (p *parser) parseRepeat() *CommandNode {
	node := &CommandNode{Name: "repeat", P: p.cur.Pos}
	p.next() // repeat

	clause := &LoopClause{}
	switch p.cur.Type {
	case tokenFor:
		p.next()
		clause.Kind = LoopFor
		if p.cur.Type != tokenIdent {
			p.errorf(p.cur.Pos, "expected loop variable, found %q", p.cur.Literal)
			return nil
		}
		clause.Variable = p.cur.Literal
		p.next()
		if !p.expect(tokenIn) {
			return nil
		}
		clause.Collection = p.parseExpression()
	case tokenWhile:
		p.next()
		clause.Kind = LoopWhile
		clause.Condition = p.parseExpression()
	case tokenUntil:
		p.next()
		if p.cur.Type == tokenEvent {
			p.next()
			clause.Kind = LoopUntilEvent
			if p.cur.Type != tokenIdent {
				p.errorf(p.cur.Pos, "expected event name, found %q", p.cur.Literal)
				return nil
			}
			clause.EventName = p.cur.Literal
			p.next()
			if p.cur.Type == tokenFrom {
				p.next()
				clause.EventTarget = p.parseExpression()
			}
		} else {
			clause.Kind = LoopUntil
			clause.Condition = p.parseExpression()
		}
	case tokenForever:
		p.next()
		clause.Kind = LoopForever
	default:
		clause.Kind = LoopTimes
		clause.Count = p.parseExpression()
		if !p.expect(tokenTimes) {
			return nil
		}
	}

	if p.cur.Type == tokenIndex {
		p.next()
		if p.cur.Type != tokenIdent {
			p.errorf(p.cur.Pos, "expected index variable, found %q", p.cur.Literal)
			return nil
		}
		clause.IndexVariable = p.cur.Literal
		p.next()
	}

	node.Loop = clause
	node.Body = p.parseBody()
	if !p.expect(tokenEnd) {
		return nil
	}
	return node
}

func (p *parser) parseWait() *CommandNode {
	node := &CommandNode{Name: "wait", P: p.cur.Pos}
	p.next() // wait

	clause := &WaitClause{}
	for {
		cond := p.parseWaitCondition()
		if cond == nil {
			return nil
		}
		clause.Conditions = append(clause.Conditions, *cond)
		if p.cur.Type != tokenOr {
			break
		}
		p.next()
	}
	node.Wait = clause
	return node
}

func (p *parser) parseWaitCondition() *WaitConditionNode {
	cond := &WaitConditionNode{P: p.cur.Pos}
	if p.cur.Type == tokenFor {
		p.next()
		if p.cur.Type != tokenIdent {
			p.errorf(p.cur.Pos, "expected event name after 'for', found %q", p.cur.Literal)
			return nil
		}
		cond.EventName = p.cur.Literal
		p.next()
		if p.cur.Type == tokenLParen {
			cond.Params = p.parseNameList()
		}
		if p.cur.Type == tokenFrom {
			p.next()
			cond.From = p.parseAnd()
		}
		return cond
	}
	// `or` separates race arms here, so time expressions parse below it
	cond.Time = p.parseAnd()
	return cond
}

func (p *parser) parseIf() *CommandNode {
	node := &CommandNode{Name: "if", P: p.cur.Pos}
	p.next() // if

	clause := &IfClause{Condition: p.parseExpression()}
	clause.Then = p.parseBody()
	if p.cur.Type == tokenElse {
		p.next()
		clause.Else = p.parseBody()
	}
	if !p.expect(tokenEnd) {
		return nil
	}
	node.If = clause
	return node
}

func (p *parser) parseReturn() *CommandNode {
	node := &CommandNode{Name: "return", P: p.cur.Pos}
	p.next()
	if !p.atSeparator() && !p.atBodyEnd() {
		node.Args = append(node.Args, p.parseExpression())
	}
	return node
}

// Modifier keywords accepted inside simple commands. `on` doubles as the
// toggle command's target modifier; handlers only begin at statement level,
// so there is no ambiguity here.
func (p *parser) modifierName() (string, bool) {
	switch p.cur.Type {
	case tokenTo:
		return "to", true
	case tokenFrom:
		return "from", true
	case tokenInto:
		return "into", true
	case tokenOn:
		return "on", true
	case tokenBy:
		return "by", true
	case tokenAt:
		return "at", true
	default:
		return "", false
	}
}

func (p *parser) parseSimpleCommand() *CommandNode {
	node := &CommandNode{Name: p.cur.Literal, P: p.cur.Pos}
	p.next()

	if node.Name == "send" || node.Name == "trigger" {
		return p.parseSendArgs(node)
	}

	for !p.atSeparator() && !p.atBodyEnd() {
		if name, ok := p.modifierName(); ok {
			pos := p.cur.Pos
			p.next()
			if node.Modifiers == nil {
				node.Modifiers = make(map[string]Expr)
			}
			if _, exists := node.Modifiers[name]; exists {
				p.errorf(pos, "duplicate %q modifier", name)
				return nil
			}
			node.Modifiers[name] = p.parseExpression()
			continue
		}
		node.Args = append(node.Args, p.parseExpression())
		if p.cur.Type == tokenComma {
			p.next()
		}
	}
	return node
}

// parseSendArgs parses `send name(key: expr, ...) [to <target>]`. Detail
// pairs land in Modifiers keyed by their names; the "to" key is reserved for
// the target.
func (p *parser) parseSendArgs(node *CommandNode) *CommandNode {
	if p.cur.Type != tokenIdent {
		p.errorf(p.cur.Pos, "expected event name, found %q", p.cur.Literal)
		return nil
	}
	node.Args = append(node.Args, &LiteralExpr{Value: NewString(p.cur.Literal), P: p.cur.Pos})
	p.next()

	if p.cur.Type == tokenLParen {
		p.next()
		for p.cur.Type != tokenRParen && p.cur.Type != tokenEOF {
			if p.cur.Type != tokenIdent {
				p.errorf(p.cur.Pos, "expected detail key, found %q", p.cur.Literal)
				return nil
			}
			key := p.cur.Literal
			p.next()
			if !p.expect(tokenColon) {
				return nil
			}
			if node.Modifiers == nil {
				node.Modifiers = make(map[string]Expr)
			}
			node.Modifiers[key] = p.parseExpression()
			if p.cur.Type == tokenComma {
				p.next()
			}
		}
		if !p.expect(tokenRParen) {
			return nil
		}
	}

	if p.cur.Type == tokenTo {
		p.next()
		if node.Modifiers == nil {
			node.Modifiers = make(map[string]Expr)
		}
		node.Modifiers["to"] = p.parseExpression()
	}
	return node
}

func (p *parser) parseNameList() []string {
	var names []string
	p.next() // (
	for p.cur.Type != tokenRParen && p.cur.Type != tokenEOF {
		if p.cur.Type != tokenIdent {
			p.errorf(p.cur.Pos, "expected parameter name, found %q", p.cur.Literal)
			return names
		}
		names = append(names, p.cur.Literal)
		p.next()
		if p.cur.Type == tokenComma {
			p.next()
		}
	}
	p.expect(tokenRParen)
	return names
}

// Expression parsing, lowest precedence first.

func (p *parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *parser) parseOr() Expr {
	left := p.parseAnd()
	for p.cur.Type == tokenOr {
		pos := p.cur.Pos
		p.next()
		left = &BinaryExpr{Op: "or", Left: left, Right: p.parseAnd(), P: pos}
	}
	return left
}

func (p *parser) parseAnd() Expr {
	left := p.parseNot()
	for p.cur.Type == tokenAnd {
		pos := p.cur.Pos
		p.next()
		left = &BinaryExpr{Op: "and", Left: left, Right: p.parseNot(), P: pos}
	}
	return left
}

func (p *parser) parseNot() Expr {
	if p.cur.Type == tokenNot {
		pos := p.cur.Pos
		p.next()
		return &UnaryExpr{Op: "not", Operand: p.parseNot(), P: pos}
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() Expr {
	left := p.parseAdditive()
	for {
		var op string
		switch p.cur.Type {
		case tokenEQ:
			op = "=="
		case tokenNotEQ:
			op = "!="
		case tokenLT:
			op = "<"
		case tokenGT:
			op = ">"
		case tokenLTE:
			op = "<="
		case tokenGTE:
			op = ">="
		default:
			return left
		}
		pos := p.cur.Pos
		p.next()
		left = &BinaryExpr{Op: op, Left: left, Right: p.parseAdditive(), P: pos}
	}
}

func (p *parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.cur.Type == tokenPlus || p.cur.Type == tokenMinus {
		op := string(p.cur.Type)
		pos := p.cur.Pos
		p.next()
		left = &BinaryExpr{Op: op, Left: left, Right: p.parseMultiplicative(), P: pos}
	}
	return left
}

func (p *parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.cur.Type == tokenAsterisk || p.cur.Type == tokenSlash {
		op := string(p.cur.Type)
		pos := p.cur.Pos
		p.next()
		left = &BinaryExpr{Op: op, Left: left, Right: p.parseUnary(), P: pos}
	}
	return left
}

func (p *parser) parseUnary() Expr {
	if p.cur.Type == tokenMinus {
		pos := p.cur.Pos
		p.next()
		return &UnaryExpr{Op: "-", Operand: p.parseUnary(), P: pos}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for p.cur.Type == tokenDot && p.peek.Type == tokenIdent {
		pos := p.cur.Pos
		p.next()
		expr = &PropExpr{Target: expr, Name: p.cur.Literal, P: pos}
		p.next()
	}
	return expr
}

func (p *parser) parsePrimary() Expr {
	pos := p.cur.Pos
	switch p.cur.Type {
	case tokenInt:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			p.errorf(pos, "invalid integer %q", p.cur.Literal)
		}
		p.next()
		return &LiteralExpr{Value: NewInt(n), P: pos}
	case tokenFloat:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			p.errorf(pos, "invalid number %q", p.cur.Literal)
		}
		p.next()
		return &LiteralExpr{Value: NewFloat(f), P: pos}
	case tokenTime:
		d, err := time.ParseDuration(p.cur.Literal)
		if err != nil {
			p.errorf(pos, "invalid duration %q", p.cur.Literal)
		}
		p.next()
		return &LiteralExpr{Value: NewDuration(d), P: pos}
	case tokenString:
		lit := p.cur.Literal
		p.next()
		return &LiteralExpr{Value: NewString(lit), P: pos}
	case tokenTrue:
		p.next()
		return &LiteralExpr{Value: NewBool(true), P: pos}
	case tokenFalse:
		p.next()
		return &LiteralExpr{Value: NewBool(false), P: pos}
	case tokenNil:
		p.next()
		return &LiteralExpr{Value: NewNil(), P: pos}
	case tokenIdent, tokenSelf, tokenEvent:
		name := p.cur.Literal
		p.next()
		return &IdentExpr{Name: name, P: pos}
	case tokenClass:
		sel := "." + p.cur.Literal
		p.next()
		return &SelectorExpr{Selector: sel, P: pos}
	case tokenIDSel:
		sel := "#" + p.cur.Literal
		p.next()
		return &SelectorExpr{Selector: sel, P: pos}
	case tokenAttr:
		name := p.cur.Literal
		p.next()
		return &AttrExpr{Name: name, P: pos}
	case tokenLBracket:
		p.next()
		var items []Expr
		for p.cur.Type != tokenRBracket && p.cur.Type != tokenEOF {
			items = append(items, p.parseExpression())
			if p.cur.Type == tokenComma {
				p.next()
			}
		}
		p.expect(tokenRBracket)
		return &ArrayExpr{Items: items, P: pos}
	case tokenLParen:
		p.next()
		expr := p.parseExpression()
		p.expect(tokenRParen)
		return expr
	default:
		p.errorf(pos, "unexpected token %q in expression", p.cur.Literal)
		p.next()
		return &LiteralExpr{Value: NewNil(), P: pos}
	}
}
