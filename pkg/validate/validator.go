package validate

import "github.com/inteliome-labs/semalint/pkg/metadata"

// Context carries the cross-document inputs a validator may need. Schema
// validation ignores it; semantics validation resolves source references
// against Schemas. The collection is read-only input and is never mutated.
type Context struct {
	// Schemas is the collection of loaded schema documents, matched by file
	// stem against schema.<name> source references.
	Schemas []metadata.Document
}

// Validator is the shared contract implemented by the schema and semantics
// validators. The returned error is a *Violation for recognized rule breaks;
// any other error means the engine itself failed on the document.
type Validator interface {
	// Name identifies the validator in logs and reports.
	Name() string

	// Validate checks one document. Documents are read-only inputs; a call
	// never mutates doc or anything reachable from ctx.
	Validate(doc metadata.Document, ctx Context) error
}
