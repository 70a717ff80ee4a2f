package sql

import (
	"fmt"
	"strings"
)

// tokenKind tags one lexical token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString // single-quoted
	tokPunct  // ( ) , . ; * operators
)

type token struct {
	kind tokenKind
	text string // original text; for tokIdent, comparisons are case-insensitive
}

// tokenize splits a statement into tokens. Identifiers and numbers are
// runs of word characters; quoted strings keep their surrounding content
// (quote stripped); everything else single-character-punctuates, except
// the two-character operators <= >= <> (and !=, read as <>) that are glued
// together.
func tokenize(input string) ([]token, error) {
	var toks []token
	r := []rune(input)
	i, n := 0, len(r)

	isWordStart := func(c rune) bool {
		return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	isWord := func(c rune) bool {
		return isWordStart(c) || (c >= '0' && c <= '9')
	}
	isDigit := func(c rune) bool { return c >= '0' && c <= '9' }

	for i < n {
		c := r[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			j := i + 1
			var sb strings.Builder
			for j < n {
				if r[j] == '\'' {
					if j+1 < n && r[j+1] == '\'' {
						sb.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				sb.WriteRune(r[j])
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, text: sb.String()})
			i = j + 1
		case isWordStart(c):
			j := i + 1
			for j < n && isWord(r[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(r[i:j])})
			i = j
		case isDigit(c) || (c == '-' && i+1 < n && isDigit(r[i+1]) && wantsSignedNumber(toks)):
			j := i + 1
			for j < n && (isDigit(r[j]) || r[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(r[i:j])})
			i = j
		case c == '<' || c == '>':
			if i+1 < n && r[i+1] == '=' {
				toks = append(toks, token{kind: tokPunct, text: string(r[i:i+2])})
				i += 2
			} else if c == '<' && i+1 < n && r[i+1] == '>' {
				toks = append(toks, token{kind: tokPunct, text: "<>"})
				i += 2
			} else {
				toks = append(toks, token{kind: tokPunct, text: string(c)})
				i++
			}
		case c == '!' && i+1 < n && r[i+1] == '=':
			toks = append(toks, token{kind: tokPunct, text: "<>"})
			i += 2
		case strings.ContainsRune("(),.;*=+", c):
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

// wantsSignedNumber allows a leading '-' to start a numeric literal only
// where a literal is expected, i.e. not right after an identifier/number
// (which would make it a subtraction — unused by this grammar, but this
// keeps "a-1" from being mis-lexed as "a" "-1").
func wantsSignedNumber(toks []token) bool {
	if len(toks) == 0 {
		return true
	}
	last := toks[len(toks)-1]
	if last.kind == tokIdent || last.kind == tokNumber {
		return false
	}
	return true
}
