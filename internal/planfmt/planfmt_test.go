package planfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"yachtsql/internal/ast"
	"yachtsql/internal/physical"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

func usersSchema() *types.Schema {
	return types.NewSchema(
		types.Column{Name: "id", Type: types.Simple(types.Int64)},
		types.Column{Name: "name", Type: types.Simple(types.String)},
	)
}

func TestLogicalRendersScanAndFilter(t *testing.T) {
	schema := usersSchema()
	scan := planir.NewScan("users", schema)
	pred := &ast.BinaryExpr{Op: ">", Left: &ast.ColumnRef{Name: "id"}, Right: &ast.Literal{Kind: ast.LitNumber, Text: "0"}}
	filter := planir.NewFilter(scan, pred)

	out := Logical(filter)
	require.True(t, strings.Contains(out, "Filter"))
	require.True(t, strings.Contains(out, "Scan"))
	require.True(t, strings.Contains(out, "users"))
}

func TestPhysicalIndentsChildren(t *testing.T) {
	schema := usersSchema()
	scan := planir.NewScan("users", schema)
	sort := planir.NewSort(scan, []ast.OrderItem{{Expr: &ast.ColumnRef{Name: "id"}}})

	phys := physical.Plan(sort)
	out := Physical(phys)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	require.False(t, strings.HasPrefix(lines[0], " "))
	require.True(t, strings.HasPrefix(lines[1], "  "))
}

func TestExprStringRendersBinaryExpr(t *testing.T) {
	e := &ast.BinaryExpr{
		Op:   "AND",
		Left: &ast.BinaryExpr{Op: ">", Left: &ast.ColumnRef{Name: "id"}, Right: &ast.Literal{Kind: ast.LitNumber, Text: "0"}},
		Right: &ast.LikeExpr{
			Operand: &ast.ColumnRef{Name: "name"},
			Pattern: &ast.Literal{Kind: ast.LitString, Text: "A%"},
		},
	}
	s := ExprString(e)
	require.True(t, strings.Contains(s, "id"))
	require.True(t, strings.Contains(s, "LIKE"))
}
