package metadata

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Schema is the typed view of a validated schema document: one data table's
// subject area, its join relationships, and its column catalog.
type Schema struct {
	SubjectArea string            `mapstructure:"subject_area"`
	TableInfo   []TableEntry      `mapstructure:"table_info"`
	Columns     map[string]Column `mapstructure:"columns"`
}

// TableEntry names a table and its join conditions. Joins may be empty.
type TableEntry struct {
	Table string   `mapstructure:"table"`
	Joins []string `mapstructure:"joins"`
}

// Column describes one column in the catalog. Tables accepts either a single
// table name or a sequence in the source document.
type Column struct {
	Name       string   `mapstructure:"name"`
	Type       string   `mapstructure:"type"`
	Column     string   `mapstructure:"column"`
	Desc       string   `mapstructure:"desc"`
	Tables     []string `mapstructure:"table"`
	PrimaryKey bool     `mapstructure:"primary_key"`
}

// Semantics is the typed view of a validated semantics document: derived
// attributes and metrics computed from one or more schemas.
type Semantics struct {
	Folder     string                   `mapstructure:"folder"`
	Type       string                   `mapstructure:"type"`
	Source     map[string]SourceBinding `mapstructure:"source"`
	Attributes map[string]Attribute     `mapstructure:"attributes"`
	Metrics    map[string]Metric        `mapstructure:"metrics"`
}

// SourceBinding is a declared reference to a schema and the subset of its
// columns the semantics document uses.
type SourceBinding struct {
	Columns []string `mapstructure:"columns"`
}

// Attribute is a derived attribute definition.
type Attribute struct {
	Name        string   `mapstructure:"name"`
	Desc        string   `mapstructure:"desc"`
	Calculation string   `mapstructure:"calculation"`
	Filter      []string `mapstructure:"filter"`
	Function    string   `mapstructure:"function"`
	Synonym     string   `mapstructure:"synonym"`
}

// Metric is a derived metric definition. Same shape as Attribute; the
// validators apply stricter presence rules to it.
type Metric struct {
	Name        string   `mapstructure:"name"`
	Calculation string   `mapstructure:"calculation"`
	Function    string   `mapstructure:"function"`
	Desc        string   `mapstructure:"desc"`
	Filter      []string `mapstructure:"filter"`
	Synonym     string   `mapstructure:"synonym"`
}

// DecodeSchema decodes a document that already passed schema validation into
// its typed view. A decode failure here is an engine defect, not a document
// problem.
func DecodeSchema(doc Document) (*Schema, error) {
	var s Schema
	if err := decode(doc.Root, &s); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", doc.Name, err)
	}
	return &s, nil
}

// DecodeSemantics decodes a document that already passed semantics validation
// into its typed view.
func DecodeSemantics(doc Document) (*Semantics, error) {
	var s Semantics
	if err := decode(doc.Root, &s); err != nil {
		return nil, fmt.Errorf("decode semantics %s: %w", doc.Name, err)
	}
	return &s, nil
}

// decode maps a validated document root onto a typed view. Decoding is
// weakly typed on purpose: validation defines what a document may contain,
// and everything it accepts (a bare number as a synonym, say) must have a
// typed representation rather than fail here.
func decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       stringToSliceHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// stringToSliceHook lifts a scalar string into a single-element slice so a
// column's `table: orders` and `table: [orders, customers]` decode to the
// same field.
func stringToSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	if to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return []string{data.(string)}, nil
}
