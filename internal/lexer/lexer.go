package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/solidscript/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// NextToken scans and returns the next token, skipping whitespace and
// comments.
func (l *Lexer) NextToken() token.Token {
	tok := l.next()
	tok.End = l.position
	if tok.End > len(l.input) {
		tok.End = len(l.input)
	}
	return tok
}

func (l *Lexer) next() token.Token {
	l.skipWhitespaceAndComments()

	tok := token.Token{Line: l.line, Column: l.column, Offset: l.position}

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Lexeme = token.EQ, "=="
		} else {
			tok.Type, tok.Lexeme = token.ASSIGN, "="
		}
	case '+':
		tok.Type, tok.Lexeme = token.PLUS, "+"
	case '-':
		tok.Type, tok.Lexeme = token.MINUS, "-"
	case '*':
		tok.Type, tok.Lexeme = token.ASTERISK, "*"
	case '/':
		tok.Type, tok.Lexeme = token.SLASH, "/"
	case '%':
		tok.Type, tok.Lexeme = token.PERCENT, "%"
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Lexeme = token.NOT_EQ, "!="
		} else {
			tok.Type, tok.Lexeme = token.BANG, "!"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Lexeme = token.LE, "<="
		} else {
			tok.Type, tok.Lexeme = token.LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Lexeme = token.GE, ">="
		} else {
			tok.Type, tok.Lexeme = token.GT, ">"
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok.Type, tok.Lexeme = token.AND, "&&"
		} else {
			tok.Type, tok.Lexeme = token.ILLEGAL, "&"
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type, tok.Lexeme = token.OR, "||"
		} else {
			tok.Type, tok.Lexeme = token.ILLEGAL, "|"
		}
	case ',':
		tok.Type, tok.Lexeme = token.COMMA, ","
	case ';':
		tok.Type, tok.Lexeme = token.SEMICOLON, ";"
	case ':':
		tok.Type, tok.Lexeme = token.COLON, ":"
	case '(':
		tok.Type, tok.Lexeme = token.LPAREN, "("
	case ')':
		tok.Type, tok.Lexeme = token.RPAREN, ")"
	case '{':
		tok.Type, tok.Lexeme = token.LBRACE, "{"
	case '}':
		tok.Type, tok.Lexeme = token.RBRACE, "}"
	case '[':
		tok.Type, tok.Lexeme = token.LBRACKET, "["
	case ']':
		tok.Type, tok.Lexeme = token.RBRACKET, "]"
	case '#':
		tok.Type, tok.Lexeme = token.HASH, "#"
	case '"':
		content, terminated := l.readString()
		if !terminated {
			tok.Type, tok.Lexeme = token.ILLEGAL, content
			return tok
		}
		tok.Type = token.STRING
		tok.Lexeme = content
		return tok
	case 0:
		tok.Type, tok.Lexeme = token.EOF, ""
		return tok
	default:
		if isLetter(l.ch) {
			lexeme := l.readIdentifier()
			tok.Type = token.LookupIdent(lexeme)
			tok.Lexeme = lexeme
			return tok
		}
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type = token.NUMBER
			tok.Lexeme = l.readNumber()
			return tok
		}
		tok.Type, tok.Lexeme = token.ILLEGAL, string(l.ch)
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar() // consume '*'
				l.readChar() // consume '/'
			}
			continue
		}
		return
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.position]
}

// readString consumes a double-quoted string literal and returns its
// unescaped contents plus whether the closing quote was found before EOF.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			switch l.peekChar() {
			case 'n':
				sb.WriteByte('\n')
				l.readChar()
			case 't':
				sb.WriteByte('\t')
				l.readChar()
			case 'r':
				sb.WriteByte('\r')
				l.readChar()
			case '"':
				sb.WriteByte('"')
				l.readChar()
			case '\\':
				sb.WriteByte('\\')
				l.readChar()
			default:
				sb.WriteRune(l.ch)
			}
		} else {
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	terminated := l.ch == '"'
	l.readChar() // closing quote (or EOF)
	return sb.String(), terminated
}

func isLetter(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
