package loka

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"
	tokenNewline TokenType = "NEWLINE"

	tokenIdent  TokenType = "IDENT"
	tokenInt    TokenType = "INT"
	tokenFloat  TokenType = "FLOAT"
	tokenString TokenType = "STRING"
	tokenTime   TokenType = "TIME"
	tokenClass  TokenType = "CLASS" // .name
	tokenIDSel  TokenType = "IDSEL" // #name
	tokenAttr   TokenType = "ATTR"  // @name

	tokenAssign   TokenType = "="
	tokenPlus     TokenType = "+"
	tokenMinus    TokenType = "-"
	tokenAsterisk TokenType = "*"
	tokenSlash    TokenType = "/"
	tokenLT       TokenType = "<"
	tokenGT       TokenType = ">"
	tokenLTE      TokenType = "<="
	tokenGTE      TokenType = ">="
	tokenEQ       TokenType = "=="
	tokenNotEQ    TokenType = "!="

	tokenComma    TokenType = ","
	tokenColon    TokenType = ":"
	tokenDot      TokenType = "."
	tokenLParen   TokenType = "("
	tokenRParen   TokenType = ")"
	tokenLBracket TokenType = "["
	tokenRBracket TokenType = "]"

	tokenOn        TokenType = "ON"
	tokenEvery     TokenType = "EVERY"
	tokenEnd       TokenType = "END"
	tokenThen      TokenType = "THEN"
	tokenFrom      TokenType = "FROM"
	tokenTo        TokenType = "TO"
	tokenInto      TokenType = "INTO"
	tokenIn        TokenType = "IN"
	tokenAt        TokenType = "AT"
	tokenBy        TokenType = "BY"
	tokenIndex     TokenType = "INDEX"
	tokenQueue     TokenType = "QUEUE"
	tokenDebounced TokenType = "DEBOUNCED"
	tokenThrottled TokenType = "THROTTLED"
	tokenSelf      TokenType = "SELF"
	tokenElsewhere TokenType = "ELSEWHERE"
	tokenRepeat    TokenType = "REPEAT"
	tokenTimes     TokenType = "TIMES"
	tokenWhile     TokenType = "WHILE"
	tokenUntil     TokenType = "UNTIL"
	tokenForever   TokenType = "FOREVER"
	tokenEvent     TokenType = "EVENT"
	tokenFor       TokenType = "FOR"
	tokenWait      TokenType = "WAIT"
	tokenOr        TokenType = "OR"
	tokenAnd       TokenType = "AND"
	tokenNot       TokenType = "NOT"
	tokenIf        TokenType = "IF"
	tokenElse      TokenType = "ELSE"
	tokenTrue      TokenType = "TRUE"
	tokenFalse     TokenType = "FALSE"
	tokenNil       TokenType = "NIL"
	tokenReturn    TokenType = "RETURN"
)

var keywords = map[string]TokenType{
	"on":        tokenOn,
	"every":     tokenEvery,
	"end":       tokenEnd,
	"then":      tokenThen,
	"from":      tokenFrom,
	"to":        tokenTo,
	"into":      tokenInto,
	"in":        tokenIn,
	"at":        tokenAt,
	"by":        tokenBy,
	"index":     tokenIndex,
	"queue":     tokenQueue,
	"debounced": tokenDebounced,
	"throttled": tokenThrottled,
	"self":      tokenSelf,
	"elsewhere": tokenElsewhere,
	"repeat":    tokenRepeat,
	"times":     tokenTimes,
	"while":     tokenWhile,
	"until":     tokenUntil,
	"forever":   tokenForever,
	"event":     tokenEvent,
	"for":       tokenFor,
	"wait":      tokenWait,
	"or":        tokenOr,
	"and":       tokenAnd,
	"not":       tokenNot,
	"if":        tokenIf,
	"else":      tokenElse,
	"true":      tokenTrue,
	"false":     tokenFalse,
	"nil":       tokenNil,
	"return":    tokenReturn,
}

// Position locates a token or node in source text.
type Position struct {
	Line   int
	Column int
}

// Token is a lexical unit with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func lookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return tokenIdent
}
