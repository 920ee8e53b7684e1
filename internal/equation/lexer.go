package equation

import (
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOperator
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex 将表达式切分为 token，任何不在语法内的字符都会直接报错
func lex(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case isDigit(ch) || ch == '.':
			start := i
			dots := 0
			for i < len(expr) && (isDigit(expr[i]) || expr[i] == '.') {
				if expr[i] == '.' {
					dots++
				}
				i++
			}
			text := expr[start:i]
			if dots > 1 || text == "." {
				return nil, newError(expr, start, KindSyntax, "malformed number %q", text)
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, newError(expr, start, KindSyntax, "malformed number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: v, pos: start})
		case isIdentStart(ch):
			start := i
			for i < len(expr) && (isIdentStart(expr[i]) || isDigit(expr[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: expr[start:i], pos: start})
		case ch == '+' || ch == '-' || ch == '*' || ch == '/':
			tokens = append(tokens, token{kind: tokOperator, text: string(ch), pos: i})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, newError(expr, i, KindSyntax, "unexpected character %q", rune(ch))
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(expr)})
	return tokens, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
