package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteliome-labs/semalint/pkg/metadata"
	"github.com/inteliome-labs/semalint/pkg/validate"
)

func validRoot() map[string]any {
	return map[string]any{
		"subject_area": "Sales",
		"table_info": []any{
			map[string]any{"table": "orders", "joins": []any{}},
			map[string]any{"table": "customers", "joins": []any{
				"orders.customer_id = customers.id",
			}},
		},
		"columns": map[string]any{
			"order_id": map[string]any{
				"name":        "Order ID",
				"type":        "integer",
				"column":      "order_id",
				"desc":        "Primary order identifier",
				"table":       "orders",
				"primary_key": true,
			},
			"customer_name": map[string]any{
				"name":   "Customer Name",
				"type":   "string",
				"column": "full_name",
				"desc":   "Customer display name",
				"table":  []any{"orders", "customers"},
			},
		},
	}
}

func doc(root map[string]any) metadata.Document {
	return metadata.Document{Name: "orders.yaml", Root: root}
}

func requireViolation(t *testing.T, err error) *validate.Violation {
	t.Helper()
	require.Error(t, err)
	v, ok := validate.AsViolation(err)
	require.True(t, ok, "expected a violation, got %v", err)
	return v
}

func TestValidate_ValidDocument(t *testing.T) {
	typed, err := Validate(doc(validRoot()))
	require.NoError(t, err)

	assert.Equal(t, "Sales", typed.SubjectArea)
	require.Len(t, typed.TableInfo, 2)
	assert.Equal(t, "orders", typed.TableInfo[0].Table)

	col := typed.Columns["order_id"]
	assert.True(t, col.PrimaryKey)
	assert.Equal(t, []string{"orders"}, col.Tables)
	assert.Equal(t, []string{"orders", "customers"}, typed.Columns["customer_name"].Tables)
}

func TestValidate_NilRoot(t *testing.T) {
	v := requireViolation(t, errOf(Validate(metadata.Document{Name: "orders.yaml"})))
	assert.Equal(t, validate.InvalidFormat, v.Kind)
}

func TestValidate_MissingTopLevelKeys(t *testing.T) {
	for _, key := range []string{"subject_area", "table_info", "columns"} {
		root := validRoot()
		delete(root, key)

		v := requireViolation(t, errOf(Validate(doc(root))))
		assert.Equal(t, validate.MissingKey, v.Kind, key)
		assert.Equal(t, key, v.Key)
	}
}

func TestValidate_TableInfo(t *testing.T) {
	tests := []struct {
		name     string
		entry    any
		wantKind validate.Kind
		wantKey  string
	}{
		{"entry not a mapping", "orders", validate.InvalidFormat, "table_info entry"},
		{"missing table", map[string]any{"joins": []any{}}, validate.MissingKey, "table"},
		{"null table", map[string]any{"table": nil, "joins": []any{}}, validate.EmptyValue, "table"},
		{"missing joins", map[string]any{"table": "orders"}, validate.MissingKey, "joins"},
		{"joins not a sequence", map[string]any{"table": "orders", "joins": "a = b"}, validate.InvalidFormat, "joins"},
		{"join entry is a mapping", map[string]any{"table": "orders", "joins": []any{map[string]any{"left": "a"}}}, validate.InvalidFormat, "joins"},
		{"malformed condition", map[string]any{"table": "orders", "joins": []any{"orders.customer_id == customers.id"}}, validate.InvalidFormat, "join condition"},
		{"condition missing spaces", map[string]any{"table": "orders", "joins": []any{"orders.customer_id=customers.id"}}, validate.InvalidFormat, "join condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := validRoot()
			root["table_info"] = []any{tt.entry}
			delete(root["columns"].(map[string]any)["order_id"].(map[string]any), "table")
			delete(root["columns"].(map[string]any)["customer_name"].(map[string]any), "table")

			v := requireViolation(t, errOf(Validate(doc(root))))
			assert.Equal(t, tt.wantKind, v.Kind)
			assert.Equal(t, tt.wantKey, v.Key)
			assert.Equal(t, "table_info[0]", v.Path)
		})
	}
}

func TestValidate_DeepJoinPathsAccepted(t *testing.T) {
	root := validRoot()
	root["table_info"] = append(root["table_info"].([]any), map[string]any{
		"table": "regions",
		"joins": []any{"warehouse.eu.orders.region_id = regions.id"},
	})
	_, err := Validate(doc(root))
	require.NoError(t, err)
}

func TestValidate_Columns(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cols map[string]any)
		wantKind validate.Kind
		wantKey  string
		wantPath string
	}{
		{
			"unknown key",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["aggregation"] = "sum"
			},
			validate.InvalidKey, "aggregation", "columns.order_id",
		},
		{
			"missing required desc",
			func(cols map[string]any) {
				delete(cols["order_id"].(map[string]any), "desc")
			},
			validate.EmptyValue, "desc", "columns.order_id",
		},
		{
			"null type",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["type"] = nil
			},
			validate.EmptyValue, "type", "columns.order_id",
		},
		{
			"primary_key not boolean",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["primary_key"] = "yes"
			},
			validate.InvalidFormat, "primary_key", "columns.order_id",
		},
		{
			"nested mapping",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["desc"] = map[string]any{"en": "x"}
			},
			validate.InvalidFormat, "order_id", "columns",
		},
		{
			"column not a mapping",
			func(cols map[string]any) {
				cols["order_id"] = "integer"
			},
			validate.InvalidFormat, "order_id", "columns",
		},
		{
			"bad identifier",
			func(cols map[string]any) {
				cols["9lives"] = map[string]any{
					"name": "n", "type": "t", "column": "c", "desc": "d",
				}
			},
			validate.InvalidFormat, "9lives", "columns",
		},
		{
			"unknown table reference",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["table"] = "shipments"
			},
			validate.MissingKey, "shipments", "columns.order_id",
		},
		{
			"unknown table in sequence",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["table"] = []any{"orders", "shipments"}
			},
			validate.MissingKey, "shipments", "columns.order_id",
		},
		{
			"table reference wrong type",
			func(cols map[string]any) {
				cols["order_id"].(map[string]any)["table"] = 7
			},
			validate.InvalidFormat, "table", "columns.order_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := validRoot()
			tt.mutate(root["columns"].(map[string]any))

			v := requireViolation(t, errOf(Validate(doc(root))))
			assert.Equal(t, tt.wantKind, v.Kind)
			assert.Equal(t, tt.wantKey, v.Key)
			assert.Equal(t, tt.wantPath, v.Path)
		})
	}
}

func TestValidate_ColumnWithoutTableKeyIsValid(t *testing.T) {
	root := validRoot()
	delete(root["columns"].(map[string]any)["order_id"].(map[string]any), "table")
	_, err := Validate(doc(root))
	require.NoError(t, err)
}

func TestValidate_ScalarColumnFieldsDecodeAsStrings(t *testing.T) {
	// A numeric name satisfies the non-empty rule, so the typed view must
	// carry it as a string rather than fail to decode.
	root := validRoot()
	root["columns"].(map[string]any)["order_id"].(map[string]any)["name"] = 7

	typed, err := Validate(doc(root))
	require.NoError(t, err)
	assert.Equal(t, "7", typed.Columns["order_id"].Name)
}

func TestValidate_ColumnsNotMapping(t *testing.T) {
	root := validRoot()
	root["columns"] = []any{"order_id"}

	v := requireViolation(t, errOf(Validate(doc(root))))
	assert.Equal(t, validate.InvalidFormat, v.Kind)
	assert.Equal(t, "columns", v.Key)
}

func TestValidatorInterface(t *testing.T) {
	var _ validate.Validator = New()
	assert.Equal(t, "schema", New().Name())

	err := New().Validate(doc(validRoot()), validate.Context{})
	require.NoError(t, err)
}

func errOf[T any](_ T, err error) error { return err }
