package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers and literals
	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	BANG     = "!"

	LT     = "<"
	GT     = ">"
	LE     = "<="
	GE     = ">="
	EQ     = "=="
	NOT_EQ = "!="
	AND    = "&&"
	OR     = "||"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	HASH      = "#"

	// Keywords
	MODULE   = "MODULE"
	FUNCTION = "FUNCTION"
	IF       = "IF"
	ELSE     = "ELSE"
	FOR      = "FOR"
	LET      = "LET"
	EACH     = "EACH"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
)

// Token is a single lexical unit of a .scad source file. Offset is the
// byte offset of the first character, End the offset just past the last;
// Line and Column are 1-based. Lexeme holds the decoded text for string
// literals, the raw text otherwise.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
	Offset int
	End    int
}

var keywords = map[string]TokenType{
	"module":   MODULE,
	"function": FUNCTION,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"let":      LET,
	"each":     EACH,
	"true":     TRUE,
	"false":    FALSE,
}

// LookupIdent maps reserved words to their keyword token types and
// everything else to IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
