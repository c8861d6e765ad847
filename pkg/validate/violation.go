// Package validate provides the rule primitives and error taxonomy shared by
// the schema and semantics validators. Every recognized rule break is reported
// as a *Violation carrying one of four kinds; any other error escaping a
// validator indicates an engine defect, not a malformed document.
package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a validation violation.
type Kind int

const (
	// MissingKey means a required key, or a required cross-reference target,
	// is absent.
	MissingKey Kind = iota
	// EmptyValue means a key is present but its value is null or blank.
	EmptyValue
	// InvalidFormat means a value's type or pattern does not match the
	// expected shape.
	InvalidFormat
	// InvalidKey means an unrecognized key appears where only a closed set is
	// allowed, or an identifier collides with an existing one.
	InvalidKey
)

// String returns the kind name used in reports and the state store.
func (k Kind) String() string {
	switch k {
	case MissingKey:
		return "missing_key"
	case EmptyValue:
		return "empty_value"
	case InvalidFormat:
		return "invalid_format"
	case InvalidKey:
		return "invalid_key"
	default:
		return "unknown"
	}
}

// Violation is a recognized rule break in a single document.
type Violation struct {
	Kind Kind

	// Key is the offending key, identifier, or reference.
	Key string

	// Path locates the violation inside the document, e.g. "columns.order_id".
	// Empty for top-level violations.
	Path string

	// Expected describes what was required: a type label, a pattern, or the
	// allowed key set, depending on Kind.
	Expected []string
}

func (v *Violation) Error() string {
	var b strings.Builder
	switch v.Kind {
	case MissingKey:
		fmt.Fprintf(&b, "missing required key %q", v.Key)
	case EmptyValue:
		fmt.Fprintf(&b, "missing or empty value for %q", v.Key)
	case InvalidFormat:
		fmt.Fprintf(&b, "invalid format for %q", v.Key)
		if len(v.Expected) > 0 {
			fmt.Fprintf(&b, ": expected %s", strings.Join(v.Expected, " or "))
		}
	case InvalidKey:
		fmt.Fprintf(&b, "invalid key %q", v.Key)
		if len(v.Expected) > 0 {
			fmt.Fprintf(&b, ": expected one of [%s]", strings.Join(v.Expected, ", "))
		}
	default:
		fmt.Fprintf(&b, "violation on key %q", v.Key)
	}
	if v.Path != "" {
		fmt.Fprintf(&b, " in %s", v.Path)
	}
	return b.String()
}

// At returns a copy of the violation located at path. Used by validators to
// add owning context (entity or attribute) to a primitive's result.
func (v *Violation) At(path string) *Violation {
	c := *v
	c.Path = path
	return &c
}

// NewMissingKey reports an absent required key or dangling reference.
func NewMissingKey(key string) *Violation {
	return &Violation{Kind: MissingKey, Key: key}
}

// NewEmptyValue reports a present key whose value is null or blank.
func NewEmptyValue(key string) *Violation {
	return &Violation{Kind: EmptyValue, Key: key}
}

// NewInvalidFormat reports a value whose shape does not match expectation.
// The expected labels name the acceptable type or pattern.
func NewInvalidFormat(key string, expected ...string) *Violation {
	return &Violation{Kind: InvalidFormat, Key: key, Expected: expected}
}

// NewInvalidKey reports a key outside a closed set or a colliding identifier.
func NewInvalidKey(key string, allowed ...string) *Violation {
	return &Violation{Kind: InvalidKey, Key: key, Expected: allowed}
}

// AsViolation extracts a *Violation from err, if any. The second return is
// false for engine defects (errors outside the recognized taxonomy).
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
