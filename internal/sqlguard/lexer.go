package sqlguard

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord   tokenKind = iota // keyword, bare identifier, or quoted identifier
	tokString                  // string literal; content is not retained
	tokNumber
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
}

func (t token) lower() string { return strings.ToLower(t.text) }

// tokenize splits SQL input into tokens, skipping whitespace and comments.
// String literal contents are dropped; the guard only cares about
// structure, and keywords inside strings must not trigger it.
func tokenize(input string) ([]token, error) {
	var toks []token
	i := 0
	n := len(input)

	for i < n {
		ch := input[i]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++

		case ch == '-' && i+1 < n && input[i+1] == '-':
			// Line comment.
			for i < n && input[i] != '\n' {
				i++
			}

		case ch == '/' && i+1 < n && input[i+1] == '*':
			// Block comment.
			end := strings.Index(input[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment")
			}
			i += end + 4

		case ch == '\'':
			// String literal; '' escapes a quote.
			i++
			for {
				if i >= n {
					return nil, fmt.Errorf("unterminated string literal")
				}
				if input[i] == '\'' {
					if i+1 < n && input[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			toks = append(toks, token{kind: tokString})

		case ch == '"':
			// Quoted identifier.
			start := i + 1
			i++
			for i < n && input[i] != '"' {
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("unterminated quoted identifier")
			}
			toks = append(toks, token{kind: tokWord, text: input[start:i]})
			i++

		case isIdentStart(ch):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: input[start:i]})

		case ch >= '0' && ch <= '9':
			start := i
			for i < n && (isIdentPart(input[i]) || input[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: input[start:i]})

		default:
			toks = append(toks, token{kind: tokSymbol, text: string(ch)})
			i++
		}
	}

	return toks, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
