// Package schema validates one schema document in isolation: required
// top-level keys, table-info entries and join-condition format, the column
// catalog, and table-reference integrity within the same document.
package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/inteliome-labs/semalint/pkg/metadata"
	"github.com/inteliome-labs/semalint/pkg/validate"
)

// columnKeys is the closed key set for a column definition. The table key is
// optional but recognized; its values must resolve against table_info.
var columnKeys = []string{"name", "type", "column", "desc", "table", "primary_key"}

// requiredColumnKeys must be present and non-empty on every column.
var requiredColumnKeys = []string{"name", "type", "column", "desc"}

// joinConditionPattern accepts conditions of the form
// "table.column = table.column" with dotted paths of any depth on both sides.
var joinConditionPattern = regexp.MustCompile(`^\w+(\.\w+)* = \w+(\.\w+)*$`)

// Validator checks schema documents. It implements validate.Validator.
type Validator struct{}

// New returns a schema validator.
func New() *Validator { return &Validator{} }

// Name identifies the validator in logs and reports.
func (v *Validator) Name() string { return "schema" }

// Validate checks doc against the schema rules. The context is unused: schema
// documents are validated in isolation.
func (v *Validator) Validate(doc metadata.Document, _ validate.Context) error {
	_, err := Validate(doc)
	return err
}

// Validate checks one schema document and, on success, returns its typed
// view. The first violation encountered aborts validation of the document;
// the returned error is a *validate.Violation for recognized rule breaks.
func Validate(doc metadata.Document) (*metadata.Schema, error) {
	root := doc.Root
	if root == nil {
		return nil, validate.NewInvalidFormat(doc.Name, "mapping")
	}

	if err := validate.RequireKeys(root, "subject_area", "table_info", "columns"); err != nil {
		return nil, err
	}

	tables, err := validateTableInfo(root["table_info"])
	if err != nil {
		return nil, err
	}

	if err := validateColumns(root["columns"], tables); err != nil {
		return nil, err
	}

	typed, err := metadata.DecodeSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("schema %s passed validation but failed to decode: %w", doc.Name, err)
	}
	return typed, nil
}

// validateTableInfo checks every table entry and returns the set of declared
// table names for reference resolution.
func validateTableInfo(v any) (map[string]struct{}, error) {
	entries, err := validate.RequireSequence("table_info", v)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		path := fmt.Sprintf("table_info[%d]", i)

		m, err := validate.RequireMapping("table_info entry", entry)
		if err != nil {
			return nil, violationAt(err, path)
		}
		if _, ok := m["table"]; !ok {
			return nil, validate.NewMissingKey("table").At(path)
		}
		if m["table"] == nil {
			return nil, validate.NewEmptyValue("table").At(path)
		}
		if _, ok := m["joins"]; !ok {
			return nil, validate.NewMissingKey("joins").At(path)
		}
		if err := validateJoins(m["joins"], path); err != nil {
			return nil, err
		}

		if name, ok := m["table"].(string); ok {
			tables[name] = struct{}{}
		}
	}
	return tables, nil
}

// validateJoins checks the join-condition list of one table entry. An empty
// list is valid: the table requires no join.
func validateJoins(v any, path string) error {
	joins, err := validate.RequireSequence("joins", v)
	if err != nil {
		return violationAt(err, path)
	}
	for _, join := range joins {
		if _, ok := join.(map[string]any); ok {
			return validate.NewInvalidFormat("joins", "sequence of strings").At(path)
		}
		cond, ok := join.(string)
		if !ok || !joinConditionPattern.MatchString(cond) {
			return validate.NewInvalidFormat("join condition", `"table.column = table.column"`).At(path)
		}
	}
	return nil
}

// validateColumns checks the column catalog against the declared table set.
func validateColumns(v any, tables map[string]struct{}) error {
	columns, err := validate.RequireMapping("columns", v)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(columns))
	for id := range columns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[string]struct{}, len(columns))
	for _, id := range ids {
		if err := validateColumn(id, columns[id], seen, tables); err != nil {
			return err
		}
	}
	return nil
}

func validateColumn(id string, v any, seen map[string]struct{}, tables map[string]struct{}) error {
	path := "columns." + id

	column, err := validate.RequireMapping(id, v)
	if err != nil {
		return violationAt(err, "columns")
	}

	// No nested structures: a column is a flat mapping of scalars.
	for _, value := range column {
		if _, ok := value.(map[string]any); ok {
			return validate.NewInvalidFormat(id, "flat mapping without nested mappings").At("columns")
		}
	}

	// Duplicate identifiers are rejected by the loader at parse time; this
	// check is defensive against callers that bypass it.
	if err := validate.RequireUnique(id, seen); err != nil {
		return violationAt(err, "columns")
	}
	if err := validate.RequireIdentifierFormat(id); err != nil {
		return violationAt(err, "columns")
	}
	if err := validate.RequireClosedKeySet(column, columnKeys); err != nil {
		return violationAt(err, path)
	}
	for _, key := range requiredColumnKeys {
		if err := validate.RequireNonEmpty(column, key); err != nil {
			return violationAt(err, path)
		}
	}
	if pk, ok := column["primary_key"]; ok {
		if _, err := validate.RequireBool("primary_key", pk); err != nil {
			return violationAt(err, path)
		}
	}
	if table, ok := column["table"]; ok {
		if err := validateTableReference(table, tables, path); err != nil {
			return err
		}
	}
	return nil
}

// validateTableReference resolves a column's table value, a string or a
// sequence of strings, against the declared table set.
func validateTableReference(v any, tables map[string]struct{}, path string) error {
	switch ref := v.(type) {
	case string:
		if _, ok := tables[ref]; !ok {
			return validate.NewMissingKey(ref).At(path)
		}
	case []any:
		for _, item := range ref {
			name, ok := item.(string)
			if !ok {
				return validate.NewInvalidFormat("table", "string or sequence of strings").At(path)
			}
			if _, ok := tables[name]; !ok {
				return validate.NewMissingKey(name).At(path)
			}
		}
	default:
		return validate.NewInvalidFormat("table", "string or sequence of strings").At(path)
	}
	return nil
}

// violationAt relocates a primitive's violation to the given document path.
// Non-violation errors pass through untouched.
func violationAt(err error, path string) error {
	if v, ok := validate.AsViolation(err); ok {
		return v.At(path)
	}
	return err
}
