// Package calc recognizes the restricted calculation expression language used
// in attribute and metric definitions. Expressions are validated for surface
// grammar only and are never evaluated.
//
// The grammar, anchored start to end and case-insensitive in its keywords:
//
//	expr     := term (comparison term)* (connective term)*
//	term     := basic
//	basic    := one or more of: plain runs, FUNC(argument), ( basic )
//	argument := non-empty plain run with balanced parentheses
//
// Plain runs are word characters, whitespace, square brackets, and the four
// arithmetic operators. A function-call shape is an identifier immediately
// followed by "(": its name must be one of the supported vocabulary, and its
// argument may not itself contain a function call. One level of function
// nesting is a deliberate boundary of the language, not an accident.
package calc

import (
	"fmt"
	"strings"

	"github.com/inteliome-labs/semalint/pkg/validate"
)

// functionGroups is the supported function vocabulary by category.
var functionGroups = map[string][]string{
	"aggregate":   {"SUM", "AVG", "COUNT", "MAX", "MIN"},
	"string":      {"UPPER", "LOWER", "CONCAT", "SUBSTRING", "TRIM", "LENGTH"},
	"date":        {"NOW", "DATE"},
	"math":        {"ROUND"},
	"conditional": {"CASE", "COALESCE", "NULLIF"},
}

// supported holds the uppercased function names for lookup.
var supported = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, names := range functionGroups {
		for _, n := range names {
			m[n] = struct{}{}
		}
	}
	return m
}()

// Functions returns the supported function vocabulary grouped by category.
// The returned map is a copy.
func Functions() map[string][]string {
	out := make(map[string][]string, len(functionGroups))
	for group, names := range functionGroups {
		out[group] = append([]string(nil), names...)
	}
	return out
}

// IsFunction reports whether name is in the supported vocabulary.
func IsFunction(name string) bool {
	_, ok := supported[strings.ToUpper(name)]
	return ok
}

// Validate checks that value is a string denoting a well-formed calculation
// expression. It fails with InvalidFormat when value is not a string or when
// the string does not match the grammar.
func Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validate.NewInvalidFormat("calculation", "string")
	}
	p := &parser{src: []rune(s)}
	if err := p.parse(); err != nil {
		return validate.NewInvalidFormat("calculation", err.Error())
	}
	return nil
}

// parser is a single-pass recursive-descent recognizer over the expression.
type parser struct {
	src []rune
	pos int
}

type parseError struct {
	pos int
	msg string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.msg, e.pos)
}

func (p *parser) errorf(format string, args ...any) error {
	return &parseError{pos: p.pos, msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() error {
	if err := p.term(); err != nil {
		return err
	}
	for p.comparison() {
		if err := p.term(); err != nil {
			return err
		}
	}
	for p.connective() {
		if err := p.term(); err != nil {
			return err
		}
	}
	p.skipSpace()
	if !p.eof() {
		return p.errorf("unexpected %q", p.peek())
	}
	return nil
}

// term parses one basic expression at the top level.
func (p *parser) term() error {
	return p.basic(false)
}

// basic consumes a basic expression. When inGroup is true the expression is
// inside grouping parentheses: connective keywords lose their delimiter role
// there and an unmatched ")" terminates the group instead of failing.
func (p *parser) basic(inGroup bool) error {
	consumed := false
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		r := p.peek()
		switch {
		case r == ')':
			if inGroup {
				goto done
			}
			return p.errorf("unbalanced %q", ')')

		case r == '(':
			p.next()
			if err := p.basic(true); err != nil {
				return err
			}
			if p.eof() || p.peek() != ')' {
				return p.errorf("unbalanced %q", '(')
			}
			p.next()
			consumed = true

		case isIdentStart(r):
			mark := p.pos
			id := p.ident()
			if !inGroup && isConnectiveWord(id) {
				p.pos = mark
				goto done
			}
			if !p.eof() && p.peek() == '(' {
				if !IsFunction(id) {
					return p.errorf("unsupported function %q", id)
				}
				p.next()
				if err := p.argument(); err != nil {
					return err
				}
				if p.eof() || p.peek() != ')' {
					return p.errorf("unbalanced %q", '(')
				}
				p.next()
			}
			consumed = true

		case isPlain(r):
			p.next()
			consumed = true

		default:
			goto done
		}
	}
done:
	if !consumed {
		return p.errorf("expected expression")
	}
	return nil
}

// argument consumes a function argument: a non-empty plain run with balanced
// parentheses and no function-call shapes. The closing ")" of the call is
// left for the caller.
func (p *parser) argument() error {
	depth := 0
	consumed := false
	for {
		if p.eof() {
			return p.errorf("unbalanced %q", '(')
		}
		r := p.peek()
		switch {
		case r == ')':
			if depth == 0 {
				if !consumed {
					return p.errorf("empty function argument")
				}
				return nil
			}
			depth--
			p.next()

		case r == '(':
			depth++
			p.next()
			consumed = true

		case isIdentStart(r):
			p.ident()
			if !p.eof() && p.peek() == '(' {
				return p.errorf("function calls may not be nested")
			}
			consumed = true

		case isPlain(r) || isSpace(r):
			p.next()
			consumed = true

		default:
			return p.errorf("unexpected %q in function argument", r)
		}
	}
}

// comparison consumes one comparison operator if present.
func (p *parser) comparison() bool {
	p.skipSpace()
	if p.eof() {
		return false
	}
	switch p.peek() {
	case '=':
		p.next()
		return true
	case '!':
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '=' {
			p.pos += 2
			return true
		}
		return false
	case '<', '>':
		p.next()
		if !p.eof() && p.peek() == '=' {
			p.next()
		}
		return true
	}
	return false
}

// connective consumes one standalone AND/OR/NOT keyword if present.
func (p *parser) connective() bool {
	p.skipSpace()
	mark := p.pos
	if p.eof() || !isIdentStart(p.peek()) {
		return false
	}
	id := p.ident()
	if isConnectiveWord(id) {
		return true
	}
	p.pos = mark
	return false
}

func isConnectiveWord(id string) bool {
	switch strings.ToUpper(id) {
	case "AND", "OR", "NOT":
		return true
	}
	return false
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentRune(p.peek()) {
		p.next()
	}
	return string(p.src[start:p.pos])
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.next()
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() rune { return p.src[p.pos] }
func (p *parser) next()      { p.pos++ }

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// isPlain reports whether r may appear bare in a basic expression.
func isPlain(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '[' || r == ']':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/':
		return true
	}
	return false
}
