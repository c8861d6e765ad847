package validate

import (
	"regexp"
	"sort"
	"strings"
)

// identifierPattern is the accepted shape for column identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RequireKeys fails with MissingKey on the first absent key. Keys are checked
// in the order given so the reported key is deterministic.
func RequireKeys(doc map[string]any, keys ...string) error {
	for _, key := range keys {
		if _, ok := doc[key]; !ok {
			return NewMissingKey(key)
		}
	}
	return nil
}

// RequireNonEmpty fails with EmptyValue if key is absent, nil, or a blank
// string. Values of other types count as present.
func RequireNonEmpty(container map[string]any, key string) error {
	v, ok := container[key]
	if !ok || v == nil {
		return NewEmptyValue(key)
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return NewEmptyValue(key)
	}
	return nil
}

// RequireMapping fails with InvalidFormat unless v is a mapping.
func RequireMapping(key string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, NewInvalidFormat(key, "mapping")
	}
	return m, nil
}

// RequireSequence fails with InvalidFormat unless v is a sequence.
func RequireSequence(key string, v any) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, NewInvalidFormat(key, "sequence")
	}
	return s, nil
}

// RequireString fails with InvalidFormat unless v is a string.
func RequireString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", NewInvalidFormat(key, "string")
	}
	return s, nil
}

// RequireBool fails with InvalidFormat unless v is a boolean.
func RequireBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, NewInvalidFormat(key, "boolean")
	}
	return b, nil
}

// RequireStringSequence fails with InvalidFormat unless v is a sequence whose
// elements are all strings.
func RequireStringSequence(key string, v any) ([]string, error) {
	seq, err := RequireSequence(key, v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		s, ok := item.(string)
		if !ok {
			return nil, NewInvalidFormat(key, "sequence of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// RequireClosedKeySet fails with InvalidKey naming the first disallowed key
// observed, together with the full allowed set. Observed keys are visited in
// sorted order so the reported key is deterministic.
func RequireClosedKeySet(observed map[string]any, allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = struct{}{}
	}

	keys := make([]string, 0, len(observed))
	for k := range observed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := allowedSet[k]; !ok {
			return NewInvalidKey(k, allowed...)
		}
	}
	return nil
}

// RequireUnique fails with InvalidKey on collision with an already-registered
// identifier, otherwise registers the candidate in the caller-supplied set.
func RequireUnique(candidate string, seen map[string]struct{}) error {
	if _, ok := seen[candidate]; ok {
		return NewInvalidKey(candidate, "unique identifiers")
	}
	seen[candidate] = struct{}{}
	return nil
}

// RequireIdentifierFormat fails with InvalidFormat unless candidate matches
// ^[A-Za-z_][A-Za-z0-9_]*$.
func RequireIdentifierFormat(candidate string) error {
	if !identifierPattern.MatchString(candidate) {
		return NewInvalidFormat(candidate, "identifier matching ^[A-Za-z_][A-Za-z0-9_]*$")
	}
	return nil
}
