package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/inteliome-labs/semalint/internal/testutil"
)

const validSchema = `subject_area: Sales
table_info:
  - table: orders
    joins: []
columns:
  order_id:
    name: Order ID
    type: integer
    column: order_id
    desc: Primary order identifier
`

const validSemantics = `folder: Sales
type: analysis
source:
  schema.orders:
    columns: [order_id]
metrics:
  order_count:
    name: Order Count
    calculation: COUNT(order_id)
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestParse_Valid(t *testing.T) {
	doc, err := Parse("orders.yaml", []byte(validSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "orders.yaml" {
		t.Errorf("expected name 'orders.yaml', got %q", doc.Name)
	}
	if doc.Root["subject_area"] != "Sales" {
		t.Errorf("expected subject_area 'Sales', got %v", doc.Root["subject_area"])
	}
}

func TestParse_DuplicateTopLevelKey(t *testing.T) {
	data := []byte("folder: Sales\ntype: analysis\nfolder: Marketing\n")

	_, err := Parse("dup.yaml", data)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Key != "folder" {
		t.Errorf("expected key 'folder', got %q", dup.Key)
	}
	if dup.Line != 3 {
		t.Errorf("expected line 3, got %d", dup.Line)
	}
}

func TestParse_DuplicateNestedKey(t *testing.T) {
	data := []byte(`columns:
  order_id:
    name: a
    name: b
`)

	_, err := Parse("dup.yaml", data)
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Key != "name" {
		t.Errorf("expected key 'name', got %q", dup.Key)
	}
}

func TestParse_RepeatedKeyInDifferentMappings(t *testing.T) {
	// The same key in sibling mappings is not a duplicate.
	data := []byte(`columns:
  order_id:
    name: a
  customer_id:
    name: b
`)
	if _, err := Parse("ok.yaml", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse("bad.yaml", []byte("a: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema", "assets"), "orders.yaml", validSchema)
	writeFile(t, filepath.Join(dir, "schema", "assets"), "customers.yml", validSchema)
	writeFile(t, filepath.Join(dir, "schema", "assets"), "notes.txt", "ignored")
	writeFile(t, filepath.Join(dir, "semantics", "assets"), "sales.yaml", validSemantics)

	l := New(testutil.NewTestLogger(t))
	schemas, semantics, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	// Sorted by file name for deterministic ordering.
	if schemas[0].Name != "customers.yml" || schemas[1].Name != "orders.yaml" {
		t.Errorf("unexpected schema order: %s, %s", schemas[0].Name, schemas[1].Name)
	}
	if len(semantics) != 1 {
		t.Fatalf("expected 1 semantics document, got %d", len(semantics))
	}
}

func TestLoadDir_SkipsUnparseableDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema", "assets"), "good.yaml", validSchema)
	writeFile(t, filepath.Join(dir, "schema", "assets"), "dup.yaml", "a: 1\na: 2\n")

	l := New(testutil.NewTestLogger(t))
	schemas, _, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(schemas))
	}
	if schemas[0].Name != "good.yaml" {
		t.Errorf("expected good.yaml to survive, got %s", schemas[0].Name)
	}
}

func TestLoadDir_MissingAssetsDirIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema", "assets"), "orders.yaml", validSchema)

	l := New(nil)
	schemas, semantics, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schemas) != 1 || len(semantics) != 0 {
		t.Errorf("expected 1 schema and 0 semantics, got %d and %d", len(schemas), len(semantics))
	}
}

func TestLoadDir_MissingRoot(t *testing.T) {
	l := New(nil)
	if _, _, err := l.LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing metadata directory")
	}
}
