package planfmt

import (
	"fmt"
	"strings"

	"yachtsql/internal/ast"
)

// ExprString renders an expression tree back to a SQL-ish form for plan
// output. It is not a faithful unparser — aliases, parens, and dialect
// spelling are normalized — only a readable approximation.
func ExprString(e ast.Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch n := e.(type) {
	case *ast.Literal:
		if n.Kind == ast.LitString {
			return "'" + n.Text + "'"
		}
		return n.Text
	case *ast.ColumnRef:
		if n.Qualifier != "" {
			return n.Qualifier + "." + n.Name
		}
		return n.Name
	case *ast.Parameter:
		if n.Index > 0 {
			return fmt.Sprintf("$%d", n.Index)
		}
		return "?"
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", ExprString(n.Left), n.Op, ExprString(n.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("%s(%s)", n.Op, ExprString(n.Operand))
	case *ast.FuncCall:
		return funcCallString(n)
	case *ast.CaseExpr:
		return caseExprString(n)
	case *ast.CastExpr:
		return fmt.Sprintf("CAST(%s AS %s)", ExprString(n.Operand), n.TypeName)
	case *ast.InExpr:
		neg := ""
		if n.Negate {
			neg = "NOT "
		}
		if n.Subquery != nil {
			return fmt.Sprintf("%s %sIN (<subquery>)", ExprString(n.Operand), neg)
		}
		return fmt.Sprintf("%s %sIN (%s)", ExprString(n.Operand), neg, exprListString(n.List))
	case *ast.BetweenExpr:
		neg := ""
		if n.Negate {
			neg = "NOT "
		}
		return fmt.Sprintf("%s %sBETWEEN %s AND %s", ExprString(n.Operand), neg, ExprString(n.Lo), ExprString(n.Hi))
	case *ast.LikeExpr:
		neg := ""
		if n.Negate {
			neg = "NOT "
		}
		return fmt.Sprintf("%s %sLIKE %s", ExprString(n.Operand), neg, ExprString(n.Pattern))
	case *ast.ExistsExpr:
		neg := ""
		if n.Negate {
			neg = "NOT "
		}
		return fmt.Sprintf("%sEXISTS (<subquery>)", neg)
	case *ast.ScalarSubquery:
		return "(<subquery>)"
	case *ast.AnySubquery:
		return fmt.Sprintf("%s %s ANY (<subquery>)", ExprString(n.Operand), n.Op)
	case *ast.ArrayLiteral:
		return fmt.Sprintf("[%s]", exprListString(n.Elements))
	case *ast.TupleLiteral:
		return fmt.Sprintf("(%s)", exprListString(n.Elements))
	case *ast.StructLiteral:
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			parts[i] = fmt.Sprintf("%s AS %s", ExprString(f.Value), f.Name)
		}
		return fmt.Sprintf("STRUCT(%s)", strings.Join(parts, ", "))
	case *ast.DatePartExpr:
		return datePartName(n.Part)
	default:
		return fmt.Sprintf("%T", n)
	}
}

func funcCallString(n *ast.FuncCall) string {
	if n.Star {
		return n.Name + "(*)"
	}
	distinct := ""
	if n.Distinct {
		distinct = "DISTINCT "
	}
	s := fmt.Sprintf("%s(%s%s)", n.Name, distinct, exprListString(n.Args))
	if n.Over != nil {
		s += " OVER (...)"
	}
	return s
}

func caseExprString(n *ast.CaseExpr) string {
	var b strings.Builder
	b.WriteString("CASE")
	if n.Operand != nil {
		b.WriteByte(' ')
		b.WriteString(ExprString(n.Operand))
	}
	for _, w := range n.Whens {
		fmt.Fprintf(&b, " WHEN %s THEN %s", ExprString(w.Cond), ExprString(w.Then))
	}
	if n.Else != nil {
		b.WriteString(" ELSE ")
		b.WriteString(ExprString(n.Else))
	}
	b.WriteString(" END")
	return b.String()
}

func datePartName(p ast.DatePart) string {
	names := [...]string{
		"YEAR", "QUARTER", "MONTH", "WEEK", "DAY",
		"HOUR", "MINUTE", "SECOND", "MILLISECOND", "MICROSECOND",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "UNKNOWN"
}
