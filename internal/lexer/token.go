package lexer

import "github.com/vega-lang/vegac/internal/diagnostic"

// Kind is the tagged-variant discriminant for a Token, covering literals,
// keywords, operators, delimiters, EOF, and ERROR.
type Kind int

const (
	EOF Kind = iota
	ERROR

	// Literals
	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	IMPORT
	AS
	AGENT
	FN
	LET
	IF
	ELSE
	WHILE
	FOR
	RETURN
	BREAK
	CONTINUE
	SPAWN
	ASYNC
	SUPERVISED
	BY
	AWAIT
	MATCH
	TRUE
	FALSE
	NULL
	MODEL
	SYSTEM
	TEMPERATURE
	TOOL
	VOID
	KW_INT
	KW_FLOAT
	KW_BOOL
	KW_STR
	KW_RESULT
	OK
	ERR

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQ_EQ
	NOT_EQ
	LT
	LE
	GT
	GE
	AND_AND
	OR_OR
	BANG
	EQ
	ARROW      // ->
	FAT_ARROW  // =>
	SEND_SYNC  // <-
	SEND_ASYNC // <~
	COLON_COLON

	// Delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMI
	COLON
	DOT
)

var kindNames = map[Kind]string{
	EOF: "EOF", ERROR: "ERROR",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	IMPORT: "import", AS: "as", AGENT: "agent", FN: "fn", LET: "let",
	IF: "if", ELSE: "else", WHILE: "while", FOR: "for", RETURN: "return",
	BREAK: "break", CONTINUE: "continue", SPAWN: "spawn", ASYNC: "async",
	SUPERVISED: "supervised", BY: "by", AWAIT: "await", MATCH: "match",
	TRUE: "true", FALSE: "false", NULL: "null", MODEL: "model",
	SYSTEM: "system", TEMPERATURE: "temperature", TOOL: "tool", VOID: "void",
	KW_INT: "int", KW_FLOAT: "float", KW_BOOL: "bool", KW_STR: "str",
	KW_RESULT: "Result", OK: "Ok", ERR: "Err",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	EQ_EQ: "==", NOT_EQ: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=",
	AND_AND: "&&", OR_OR: "||", BANG: "!", EQ: "=",
	ARROW: "->", FAT_ARROW: "=>", SEND_SYNC: "<-", SEND_ASYNC: "<~",
	COLON_COLON: "::",
	LPAREN:      "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", SEMI: ";", COLON: ":", DOT: ".",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Keywords is the closed keyword table: an identifier matching one of these
// produces the mapped Kind instead of IDENT.
var Keywords = map[string]Kind{
	"import": IMPORT, "as": AS, "agent": AGENT, "fn": FN, "let": LET,
	"if": IF, "else": ELSE, "while": WHILE, "for": FOR, "return": RETURN,
	"break": BREAK, "continue": CONTINUE, "spawn": SPAWN, "async": ASYNC,
	"supervised": SUPERVISED, "by": BY, "await": AWAIT, "match": MATCH,
	"true": TRUE, "false": FALSE, "null": NULL, "model": MODEL,
	"system": SYSTEM, "temperature": TEMPERATURE, "tool": TOOL, "void": VOID,
	"int": KW_INT, "float": KW_FLOAT, "bool": KW_BOOL, "str": KW_STR,
	"Result": KW_RESULT, "Ok": OK, "Err": ERR,
}

// Token is a tagged variant carrying its source location and, where
// relevant, a literal payload. IntValue/FloatValue/Text are mutually
// exclusive with the Kind determining which (if any) is populated.
type Token struct {
	Kind     Kind
	Location diagnostic.Location

	Text       string // identifier / string span (raw, unescaped for STRING)
	IntValue   int64
	FloatValue float64
}
