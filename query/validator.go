// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind classifies a SQL statement by its effect.
type Kind int

const (
	KindOther Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "other"
}

var selectPrefixPattern = regexp.MustCompile(`(?i)^\s*(select|with)\b`)

// writeVerbs are keywords that make a statement a write regardless of
// where they appear, catching writes smuggled into CTE bodies.
var writeVerbs = map[string]Kind{
	"insert":   KindInsert,
	"update":   KindUpdate,
	"delete":   KindDelete,
	"merge":    KindOther,
	"truncate": KindOther,
	// SELECT ... INTO creates a table.
	"into": KindOther,
	"drop":     KindOther,
	"alter":    KindOther,
	"create":   KindOther,
	"grant":    KindOther,
	"revoke":   KindOther,
	"copy":     KindOther,
	"vacuum":   KindOther,
	"call":     KindOther,
	"do":       KindOther,
}

// ValidateReadOnly reports whether statement is a single read-only
// SELECT. It rejects empty input, multi-statement strings, and any
// write verb, including ones inside CTE bodies.
func ValidateReadOnly(statement string) error {
	tokens := tokenize(statement)
	if len(tokens) == 0 {
		return ErrEmptyStatement
	}
	statements := splitStatements(tokens)
	if len(statements) > 1 {
		return ErrMultiStatement
	}
	if !selectPrefixPattern.MatchString(trimLeadingComments(statement)) {
		return ErrNotSelect
	}
	if Classify(statement) != KindSelect {
		return ErrNotSelect
	}
	return nil
}

// Classify tags a statement as Select, Insert, Update, Delete, or
// Other. Comments, string literals, and dollar-quoted bodies are
// stripped before classification, so a write verb hidden in a literal
// does not change the tag, and one hidden in a CTE body does.
func Classify(statement string) Kind {
	tokens := tokenize(statement)
	if len(tokens) == 0 {
		return KindOther
	}

	var leading Kind
	switch tokens[0] {
	case "select":
		leading = KindSelect
	case "insert":
		return KindInsert
	case "update":
		return KindUpdate
	case "delete":
		return KindDelete
	case "with":
		leading = KindSelect
	default:
		return KindOther
	}

	for i, token := range tokens[1:] {
		kind, ok := writeVerbs[token]
		if !ok {
			continue
		}
		// "FOR UPDATE" and "FOR NO KEY UPDATE" are row-locking
		// clauses, not writes.
		if token == "update" {
			prev := tokens[i]
			if prev == "for" || prev == "key" {
				continue
			}
		}
		return kind
	}
	return leading
}

// trimLeadingComments strips whitespace and comments preceding the
// first real token so commented statements still match the prefix
// check.
func trimLeadingComments(statement string) string {
	s := statement
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

// tokenize lowercases statement and returns its word and ";" tokens
// with comments, string literals, quoted identifiers, and
// dollar-quoted bodies removed.
func tokenize(statement string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	runes := []rune(statement)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			depth := 1
			i += 2
			for i < len(runes) && depth > 0 {
				if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
					depth++
					i++
				} else if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
					depth--
					i++
				}
				i++
			}
			i--
		case c == '\'':
			flush()
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					// Doubled quote is an escaped quote.
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
		case c == '"':
			flush()
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}
		case c == '$':
			// Dollar quoting: $tag$ ... $tag$.
			end := dollarTagEnd(runes, i)
			if end < 0 {
				flush()
				continue
			}
			tag := runes[i : end+1]
			flush()
			close := indexOfTag(runes, end+1, tag)
			if close < 0 {
				i = len(runes)
				break
			}
			i = close + len(tag) - 1
		case c == ';':
			flush()
			tokens = append(tokens, ";")
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_':
			word.WriteRune(unicode.ToLower(c))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// dollarTagEnd returns the index of the closing '$' of a dollar-quote
// tag starting at start, or -1 when start does not open a tag. A bare
// "$1" positional parameter is not a tag.
func dollarTagEnd(runes []rune, start int) int {
	for i := start + 1; i < len(runes); i++ {
		c := runes[i]
		if c == '$' {
			return i
		}
		if !unicode.IsLetter(c) && c != '_' {
			return -1
		}
	}
	return -1
}

// indexOfTag returns the index in runes of the first occurrence of
// tag at or after from, comparing case-insensitively, or -1.
func indexOfTag(runes []rune, from int, tag []rune) int {
	for i := from; i+len(tag) <= len(runes); i++ {
		match := true
		for j, t := range tag {
			if unicode.ToLower(runes[i+j]) != unicode.ToLower(t) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// splitStatements groups tokens by ";" separators, dropping empty
// groups so trailing semicolons do not count as extra statements.
func splitStatements(tokens []string) [][]string {
	var (
		statements [][]string
		current    []string
	)
	for _, token := range tokens {
		if token == ";" {
			if len(current) > 0 {
				statements = append(statements, current)
				current = nil
			}
			continue
		}
		current = append(current, token)
	}
	if len(current) > 0 {
		statements = append(statements, current)
	}
	return statements
}
