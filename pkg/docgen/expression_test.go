package docgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalString(t *testing.T, expr string, data Data) any {
	t.Helper()
	node, err := ParseExpression(expr)
	require.NoError(t, err)
	v, err := node.Evaluate(data)
	require.NoError(t, err)
	return v
}

func TestEvaluateExpressions(t *testing.T) {
	data := Data{
		"name":  "Ana",
		"n":     3,
		"price": 2.5,
		"c":     map[string]any{"competencia": "Diseño", "horas": 40},
		"xs":    []any{"a", "b", "c"},
		"empty": []any{},
		"flag":  true,
	}

	tests := []struct {
		expr string
		want any
	}{
		{"name", "Ana"},
		{"missing", nil},
		{"c.competencia", "Diseño"},
		{"c['horas']", 40},
		{"c.missing.deeper", nil},
		{"xs[1]", "b"},
		{"xs[-1]", "c"},
		{"n + 1", 4},
		{"n * 2 - 1", 5},
		{"n / 2", 1.5},
		{"6 / 2", 3},
		{"7 % 4", 3},
		{"price * 2", 5.0},
		{"'a' + 'b'", "ab"},
		{"name + n", "Ana3"},
		{"n > 2 and flag", true},
		{"n > 2 && not flag", false},
		{"missing or name", true},
		{"missing || false", false},
		{"!empty", true},
		{"-n", -3},
		{"(n + 1) * 2", 8},
		{"name == 'Ana'", true},
		{"name != \"Ana\"", false},
		{"'abc' < 'abd'", true},
		{"length(xs)", 3},
		{"upper(name)", "ANA"},
		{"join(xs, '-')", "a-b-c"},
		{"default(missing, 'x')", "x"},
		{"None", nil},
		{"True", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, evalString(t, tt.expr, data))
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	for _, expr := range []string{"a b", "(a", "xs[1", "a.", "#"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseExpression(expr)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{"1 / 0", "5 % 0", "unknown_fn(1)", "'a' * 2"} {
		t.Run(expr, func(t *testing.T) {
			node, err := ParseExpression(expr)
			require.NoError(t, err)
			_, err = node.Evaluate(Data{})
			assert.Error(t, err)
		})
	}
}

func TestStructFieldAccess(t *testing.T) {
	type row struct {
		Name  string
		Hours int
	}
	assert.Equal(t, "x", evalString(t, "r.Name", Data{"r": row{Name: "x"}}))
	assert.Equal(t, 8, evalString(t, "r.Hours", Data{"r": &row{Hours: 8}}))
}

func TestRootName(t *testing.T) {
	node, err := ParseExpression("a.b[0].c")
	require.NoError(t, err)
	assert.Equal(t, "a", rootName(node))

	node, err = ParseExpression("length(xs)")
	require.NoError(t, err)
	assert.Equal(t, "", rootName(node))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "12", FormatValue(12))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "", FormatValue(&Image{Name: "x.png"}))
}
