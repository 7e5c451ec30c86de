package loka

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch rune

	prev     TokenType
	sawSpace bool
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1, column: 0}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		l.width = 0
		l.ch = 0
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w

	if r == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}

	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) NextToken() Token {
	tok := l.scan()
	l.prev = tok.Type
	return tok
}

func (l *lexer) scan() Token {
	l.sawSpace = false
	l.skipSpacesAndComments()

	tok := Token{Pos: Position{Line: l.line, Column: l.column}}

	switch {
	case l.ch == 0:
		tok.Type = tokenEOF
	case l.ch == '\n':
		tok.Type = tokenNewline
		tok.Literal = "\n"
		l.readRune()
		// collapse runs of blank lines into one separator
		for {
			l.skipSpacesAndComments()
			if l.ch != '\n' {
				break
			}
			l.readRune()
		}
	case l.ch == '"' || l.ch == '\'':
		tok.Type = tokenString
		tok.Literal = l.readString(l.ch)
	case l.ch == '.' && isIdentStart(l.peekRune()) && !l.dotBindsAsProperty():
		l.readRune()
		tok.Type = tokenClass
		tok.Literal = l.readIdent()
	case l.ch == '#' && isIdentStart(l.peekRune()):
		l.readRune()
		tok.Type = tokenIDSel
		tok.Literal = l.readIdent()
	case l.ch == '@' && isIdentStart(l.peekRune()):
		l.readRune()
		tok.Type = tokenAttr
		tok.Literal = l.readIdent()
	case isIdentStart(l.ch):
		ident := l.readIdent()
		tok.Type = lookupIdent(strings.ToLower(ident))
		tok.Literal = ident
		return tok
	case unicode.IsDigit(l.ch):
		return l.readNumber(tok)
	default:
		tok = l.readOperator(tok)
	}

	return tok
}

// dotBindsAsProperty distinguishes `me.textContent` from `add .hidden`: a dot
// glued to the end of an expression is property access, a dot after whitespace
// or at statement start begins a class literal.
func (l *lexer) dotBindsAsProperty() bool {
	if l.sawSpace {
		return false
	}
	switch l.prev {
	case tokenIdent, tokenInt, tokenFloat, tokenString, tokenTime,
		tokenClass, tokenIDSel, tokenAttr, tokenRParen, tokenRBracket,
		tokenSelf, tokenEvent, tokenTrue, tokenFalse, tokenNil:
		return true
	default:
		return false
	}
}

func (l *lexer) skipSpacesAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.sawSpace = true
			l.readRune()
		case l.ch == '-' && l.peekRune() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readRune()
			}
		default:
			return
		}
	}
}

func (l *lexer) readIdent() string {
	var b strings.Builder
	for isIdentStart(l.ch) || unicode.IsDigit(l.ch) || l.ch == '-' && isIdentPart(l.peekRune()) {
		b.WriteRune(l.ch)
		l.readRune()
	}
	return b.String()
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (l *lexer) readString(quote rune) string {
	var b strings.Builder
	l.readRune()
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readRune()
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(l.ch)
			}
			l.readRune()
			continue
		}
		b.WriteRune(l.ch)
		l.readRune()
	}
	l.readRune()
	return b.String()
}

// readNumber scans ints, floats, and duration literals (50ms, 2s, 1m).
func (l *lexer) readNumber(tok Token) Token {
	var b strings.Builder
	isFloat := false
	for unicode.IsDigit(l.ch) || l.ch == '.' && unicode.IsDigit(l.peekRune()) {
		if l.ch == '.' {
			isFloat = true
		}
		b.WriteRune(l.ch)
		l.readRune()
	}

	if l.ch == 'm' && l.peekRune() == 's' {
		l.readRune()
		l.readRune()
		tok.Type = tokenTime
		tok.Literal = b.String() + "ms"
		return tok
	}
	if (l.ch == 's' || l.ch == 'm' || l.ch == 'h') && !isIdentPart(l.peekRune()) {
		unit := l.ch
		l.readRune()
		tok.Type = tokenTime
		tok.Literal = b.String() + string(unit)
		return tok
	}

	if isFloat {
		tok.Type = tokenFloat
	} else {
		tok.Type = tokenInt
	}
	tok.Literal = b.String()
	return tok
}

func (l *lexer) readOperator(tok Token) Token {
	single := func(t TokenType) Token {
		tok.Type = t
		tok.Literal = string(l.ch)
		l.readRune()
		return tok
	}
	double := func(t TokenType, lit string) Token {
		tok.Type = t
		tok.Literal = lit
		l.readRune()
		l.readRune()
		return tok
	}

	switch l.ch {
	case '=':
		if l.peekRune() == '=' {
			return double(tokenEQ, "==")
		}
		return single(tokenAssign)
	case '!':
		if l.peekRune() == '=' {
			return double(tokenNotEQ, "!=")
		}
	case '<':
		if l.peekRune() == '=' {
			return double(tokenLTE, "<=")
		}
		return single(tokenLT)
	case '>':
		if l.peekRune() == '=' {
			return double(tokenGTE, ">=")
		}
		return single(tokenGT)
	case '+':
		return single(tokenPlus)
	case '-':
		return single(tokenMinus)
	case '*':
		return single(tokenAsterisk)
	case '/':
		return single(tokenSlash)
	case ',':
		return single(tokenComma)
	case ':':
		return single(tokenColon)
	case '.':
		return single(tokenDot)
	case '(':
		return single(tokenLParen)
	case ')':
		return single(tokenRParen)
	case '[':
		return single(tokenLBracket)
	case ']':
		return single(tokenRBracket)
	}

	tok.Type = tokenIllegal
	tok.Literal = string(l.ch)
	l.readRune()
	return tok
}
