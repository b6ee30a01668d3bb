package parser

import "yachtsql/internal/lexer"

// Operator precedences follow PostgreSQL's table (spec.md §4.1), lowest
// to highest. Unknown operator tokens never reach here: the lexer
// already rejects spellings it doesn't know, and parseExpr's default
// case turns an unexpected token into a SyntaxError at the call site.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precComparison // = <> < <= > >= IS IN LIKE BETWEEN
	precContainment // @> <@ ?| ?& <-> <=> -|- (custom/range/vector operators)
	precConcat      // || ->  ->> #>
	precAdd         // + -
	precMul         // * / %
	precUnary       // unary - +
	precCast        // ::
	precPostfix     // [] .
)

func binaryPrec(k lexer.TokenKind) int {
	switch k {
	case lexer.TokOr:
		return precOr
	case lexer.TokAnd:
		return precAnd
	case lexer.TokEq, lexer.TokNeq, lexer.TokLt, lexer.TokLe, lexer.TokGt, lexer.TokGe:
		return precComparison
	case lexer.TokAtArrow, lexer.TokArrowAt, lexer.TokQMarkPipe, lexer.TokQMarkAmp,
		lexer.TokDistance, lexer.TokSimEq, lexer.TokDashPipeDash:
		return precContainment
	case lexer.TokPipePipe, lexer.TokArrow, lexer.TokArrowArrow, lexer.TokHashArrow:
		return precConcat
	case lexer.TokPlus, lexer.TokMinus:
		return precAdd
	case lexer.TokStar, lexer.TokSlash, lexer.TokPercent:
		return precMul
	case lexer.TokColonColon:
		return precCast
	default:
		return precLowest
	}
}

func tokText(k lexer.TokenKind) string {
	switch k {
	case lexer.TokOr:
		return "OR"
	case lexer.TokAnd:
		return "AND"
	case lexer.TokEq:
		return "="
	case lexer.TokNeq:
		return "<>"
	case lexer.TokLt:
		return "<"
	case lexer.TokLe:
		return "<="
	case lexer.TokGt:
		return ">"
	case lexer.TokGe:
		return ">="
	case lexer.TokPlus:
		return "+"
	case lexer.TokMinus:
		return "-"
	case lexer.TokStar:
		return "*"
	case lexer.TokSlash:
		return "/"
	case lexer.TokPercent:
		return "%"
	case lexer.TokAtArrow:
		return "@>"
	case lexer.TokArrowAt:
		return "<@"
	case lexer.TokQMarkPipe:
		return "?|"
	case lexer.TokQMarkAmp:
		return "?&"
	case lexer.TokDistance:
		return "<->"
	case lexer.TokSimEq:
		return "<=>"
	case lexer.TokDashPipeDash:
		return "-|-"
	case lexer.TokPipePipe:
		return "||"
	case lexer.TokArrow:
		return "->"
	case lexer.TokArrowArrow:
		return "->>"
	case lexer.TokHashArrow:
		return "#>"
	default:
		return ""
	}
}
