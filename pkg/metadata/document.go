// Package metadata defines the document model for the validation engine:
// generic parsed documents as handed over by the loader, and the typed views
// a document decodes into once it has passed validation.
package metadata

import (
	"path/filepath"
	"strings"
)

// Document is one parsed metadata file. Root is the already-parsed mapping;
// the loader guarantees it contains no duplicate keys at any level. Documents
// are read-only inputs to the engine and are never mutated.
type Document struct {
	// Name is the file name as discovered, e.g. "orders.yaml".
	Name string

	// Root is the parsed top-level mapping.
	Root map[string]any
}

// Stem returns the document name with its extension stripped. Source
// references of the form schema.<name> resolve against this value.
func (d Document) Stem() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}
