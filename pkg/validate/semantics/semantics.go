// Package semantics validates one semantics document: its own structure, the
// resolution of its schema.<name> source references against a supplied schema
// collection, column-existence across documents, and the calculation grammar
// of its attributes and metrics.
package semantics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/inteliome-labs/semalint/pkg/metadata"
	"github.com/inteliome-labs/semalint/pkg/validate"
	"github.com/inteliome-labs/semalint/pkg/validate/calc"
)

// attributeKeys is the closed key set for attribute definitions.
var attributeKeys = []string{"name", "desc", "calculation", "filter", "function", "synonym"}

// metricKeys is the closed key set for metric definitions.
var metricKeys = []string{"name", "calculation", "function", "desc", "filter", "synonym"}

// sourceKeyPattern is the required shape of a source reference key.
var sourceKeyPattern = regexp.MustCompile(`^schema\.\w+$`)

// Validator checks semantics documents against a schema collection. It
// implements validate.Validator.
type Validator struct{}

// New returns a semantics validator.
func New() *Validator { return &Validator{} }

// Name identifies the validator in logs and reports.
func (v *Validator) Name() string { return "semantics" }

// Validate checks doc against ctx.Schemas.
func (v *Validator) Validate(doc metadata.Document, ctx validate.Context) error {
	_, err := Validate(doc, ctx.Schemas)
	return err
}

// Validate checks one semantics document against the supplied read-only
// schema collection and, on success, returns its typed view. The first
// violation aborts the document, except the cross-document column check,
// which accumulates every missing column before reporting.
func Validate(doc metadata.Document, schemas []metadata.Document) (*metadata.Semantics, error) {
	root := doc.Root
	if root == nil {
		return nil, validate.NewInvalidFormat(doc.Name, "mapping")
	}
	if len(schemas) == 0 {
		return nil, validate.NewMissingKey("schemas").At("schema collection")
	}

	source, err := validateSource(root)
	if err != nil {
		return nil, err
	}

	// Resolve each source reference and gather the union of resolved columns
	// for the cross-document checks below.
	known := make(map[string]struct{})
	refs := sortedKeys(source)
	for _, ref := range refs {
		resolved, err := resolve(ref, schemas)
		if err != nil {
			return nil, err
		}
		binding := source[ref].(map[string]any)
		cols, _ := binding["columns"].([]any)
		if err := checkReferencedColumns(ref, cols, resolved); err != nil {
			return nil, err
		}
		for id := range schemaColumns(resolved) {
			known[id] = struct{}{}
		}
	}

	if attrs, ok := root["attributes"]; ok {
		if err := validateAttributes(attrs); err != nil {
			return nil, err
		}
	}
	if metrics, ok := root["metrics"]; ok {
		if err := validateMetrics(metrics, known); err != nil {
			return nil, err
		}
	}

	if err := validateTopLevel(root); err != nil {
		return nil, err
	}

	typed, err := metadata.DecodeSemantics(doc)
	if err != nil {
		return nil, fmt.Errorf("semantics %s passed validation but failed to decode: %w", doc.Name, err)
	}
	return typed, nil
}

// validateSource checks the source mapping and the shape of every binding:
// key format schema.<name>, value a mapping with a columns string sequence.
func validateSource(root map[string]any) (map[string]any, error) {
	v, ok := root["source"]
	if !ok || v == nil {
		return nil, validate.NewMissingKey("source")
	}
	source, err := validate.RequireMapping("source", v)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, validate.NewEmptyValue("source")
	}

	for _, key := range sortedKeys(source) {
		if !sourceKeyPattern.MatchString(key) {
			return nil, validate.NewInvalidKey(key, "schema.<name>").At("source")
		}
		binding, err := validate.RequireMapping(key, source[key])
		if err != nil {
			return nil, violationAt(err, "source")
		}
		cols, ok := binding["columns"]
		if !ok {
			return nil, validate.NewInvalidFormat(key, "mapping containing a columns sequence").At("source")
		}
		if _, err := validate.RequireStringSequence("columns", cols); err != nil {
			return nil, violationAt(err, "source."+key)
		}
	}
	return source, nil
}

// resolve matches a schema.<name> reference against the collection by file
// stem. Resolution fails fast with MissingKey when no schema matches.
func resolve(ref string, schemas []metadata.Document) (metadata.Document, error) {
	name := strings.TrimPrefix(ref, "schema.")
	for _, s := range schemas {
		if s.Stem() == name {
			return s, nil
		}
	}
	return metadata.Document{}, validate.NewMissingKey(name).At("source." + ref)
}

// checkReferencedColumns verifies that every column bound from a schema
// exists in that schema's catalog. Unlike the other checks, every missing
// column is collected before reporting.
func checkReferencedColumns(ref string, cols []any, schema metadata.Document) error {
	catalog := schemaColumns(schema)
	var missing []string
	for _, c := range cols {
		id, ok := c.(string)
		if !ok {
			continue // shape already rejected by validateSource
		}
		if _, found := catalog[id]; !found {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return validate.NewMissingKey(strings.Join(missing, ", ")).At("source." + ref)
	}
	return nil
}

// schemaColumns returns the column catalog of a schema document, empty when
// the document has no well-formed columns mapping.
func schemaColumns(schema metadata.Document) map[string]any {
	if cols, ok := schema.Root["columns"].(map[string]any); ok {
		return cols
	}
	return nil
}

func validateAttributes(v any) error {
	attrs, err := validate.RequireMapping("attributes", v)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(attrs) {
		if err := validateAttribute(key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateAttribute(key string, v any) error {
	path := "attributes." + key

	attr, err := validate.RequireMapping(key, v)
	if err != nil {
		return violationAt(err, "attributes")
	}
	if err := validate.RequireClosedKeySet(attr, attributeKeys); err != nil {
		return violationAt(err, path)
	}
	for _, field := range []string{"name", "desc", "calculation"} {
		if _, ok := attr[field]; ok {
			if err := validate.RequireNonEmpty(attr, field); err != nil {
				return violationAt(err, path)
			}
		}
	}
	if c, ok := attr["calculation"]; ok {
		if err := calc.Validate(c); err != nil {
			return violationAt(err, path)
		}
	}
	if f, ok := attr["filter"]; ok {
		if _, err := validate.RequireStringSequence("filter", f); err != nil {
			return violationAt(err, path)
		}
	}
	return nil
}

func validateMetrics(v any, knownColumns map[string]struct{}) error {
	metrics, err := validate.RequireMapping("metrics", v)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(metrics) {
		if err := validateMetric(key, metrics[key], knownColumns); err != nil {
			return err
		}
	}
	return nil
}

func validateMetric(key string, v any, knownColumns map[string]struct{}) error {
	path := "metrics." + key

	metric, err := validate.RequireMapping(key, v)
	if err != nil {
		return violationAt(err, "metrics")
	}
	if err := validate.RequireClosedKeySet(metric, metricKeys); err != nil {
		return violationAt(err, path)
	}

	_, hasName := metric["name"]
	_, hasCalc := metric["calculation"]

	// A metric normally supplies a name or a calculation. The one exemption
	// is a bare column metric: the key itself is a column of a resolved
	// schema, which also exempts it from the grammar check below. The shape
	// checks on function and filter still apply to it.
	if !hasName && !hasCalc {
		if _, known := knownColumns[key]; !known {
			return validate.NewMissingKey("name or calculation").At(path)
		}
	}

	if hasName {
		if err := validate.RequireNonEmpty(metric, "name"); err != nil {
			return violationAt(err, path)
		}
	}
	if hasCalc {
		if err := validate.RequireNonEmpty(metric, "calculation"); err != nil {
			return violationAt(err, path)
		}
		if err := calc.Validate(metric["calculation"]); err != nil {
			return violationAt(err, path)
		}
	}
	if f, ok := metric["function"]; ok {
		if _, err := validate.RequireString("function", f); err != nil {
			return violationAt(err, path)
		}
	}
	if f, ok := metric["filter"]; ok {
		if _, err := validate.RequireStringSequence("filter", f); err != nil {
			return violationAt(err, path)
		}
	}
	return nil
}

// validateTopLevel re-checks the document frame: required keys and the
// presence of at least one attribute or metric.
func validateTopLevel(root map[string]any) error {
	if err := validate.RequireKeys(root, "folder", "type"); err != nil {
		return err
	}
	if err := validate.RequireNonEmpty(root, "folder"); err != nil {
		return err
	}
	if err := validate.RequireNonEmpty(root, "type"); err != nil {
		return err
	}
	if emptyMapping(root["attributes"]) && emptyMapping(root["metrics"]) {
		return validate.NewMissingKey("attributes or metrics")
	}
	return nil
}

func emptyMapping(v any) bool {
	m, ok := v.(map[string]any)
	return !ok || len(m) == 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// violationAt relocates a primitive's violation to the given document path.
func violationAt(err error, path string) error {
	if v, ok := validate.AsViolation(err); ok {
		return v.At(path)
	}
	return err
}
