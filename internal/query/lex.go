package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWord   tokenKind = iota // field path or keyword
	tokOp                      // ==, !=, >=, <=, >, <
	tokString                  // "…" or '…'
	tokNumber                  // 42 | -3 | 2.5
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '(' || r == ')':
			kind := tokLParen
			if r == ')' {
				kind = tokRParen
			}
			tokens = append(tokens, token{kind, string(r), i})
			i++

		case r == '=' || r == '!' || r == '<' || r == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{tokOp, src[i : i+2], i})
				i += 2
				continue
			}
			if r == '=' || r == '!' {
				return nil, fmt.Errorf("position %d: %q must be followed by '='", i, r)
			}
			tokens = append(tokens, token{tokOp, string(r), i})
			i++

		case r == '"' || r == '\'':
			var b strings.Builder
			j := i + 1
			for ; j < len(src) && rune(src[j]) != r; j++ {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				b.WriteByte(src[j])
			}
			if j >= len(src) {
				return nil, fmt.Errorf("position %d: unterminated string", i)
			}
			tokens = append(tokens, token{tokString, b.String(), i})
			i = j + 1

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j], i})
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(src) {
				wr, wsize := utf8.DecodeRuneInString(src[j:])
				if !isWordRune(wr) {
					break
				}
				j += wsize
			}
			tokens = append(tokens, token{tokWord, src[i:j], i})
			i = j

		default:
			return nil, fmt.Errorf("position %d: unexpected character %q", i, r)
		}
	}
	return append(tokens, token{tokEOF, "", len(src)}), nil
}
