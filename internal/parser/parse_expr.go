package parser

import (
	"strconv"

	"yachtsql/internal/ast"
	"yachtsql/internal/lexer"
)

// parseExpr implements precedence climbing starting at precLowest, plus
// the special-form postfix operators (IS [NOT] NULL, IN, BETWEEN, LIKE)
// that PostgreSQL slots in at comparison precedence.
func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseExprPrec(precLowest)
}

func (p *parser) parseExprPrec(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if handled, next, err := p.tryComparisonSuffix(left, minPrec); handled {
			if err != nil {
				return nil, err
			}
			left = next
			continue
		}
		prec := binaryPrec(p.cur().Kind)
		if prec == precLowest || prec < minPrec {
			return left, nil
		}
		op := p.advance()
		nextMin := prec + 1 // left-associative
		right, err := p.parseExprPrec(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: tokText(op.Kind), Left: left, Right: right, ExprBase: ast.Spanned(op.Span)}
	}
}

// tryComparisonSuffix handles IS [NOT] NULL, [NOT] IN, [NOT] BETWEEN,
// [NOT] LIKE — postfix-ish forms that sit at comparison precedence but
// don't fit the simple binary-operator table.
func (p *parser) tryComparisonSuffix(left ast.Expr, minPrec int) (bool, ast.Expr, error) {
	if minPrec > precComparison {
		return false, nil, nil
	}
	negate := false
	save := p.pos
	if p.at(lexer.TokNot) {
		switch p.peek(1).Kind {
		case lexer.TokIn, lexer.TokBetween, lexer.TokLike:
			negate = true
			p.advance()
		default:
			return false, nil, nil
		}
	}
	switch p.cur().Kind {
	case lexer.TokIs:
		p.advance()
		isNeg := p.skip(lexer.TokNot)
		if _, err := p.expect(lexer.TokNull, "NULL"); err != nil {
			return true, nil, err
		}
		return true, &ast.UnaryExpr{Op: isOp(isNeg), Operand: left}, nil
	case lexer.TokIn:
		p.advance()
		expr, err := p.parseInTail(left, negate)
		return true, expr, err
	case lexer.TokBetween:
		p.advance()
		expr, err := p.parseBetweenTail(left, negate)
		return true, expr, err
	case lexer.TokLike:
		p.advance()
		pattern, err := p.parseExprPrec(precAdd)
		if err != nil {
			return true, nil, err
		}
		return true, &ast.LikeExpr{Operand: left, Pattern: pattern, Negate: negate}, nil
	default:
		p.pos = save
		return false, nil, nil
	}
}

func isOp(negate bool) string {
	if negate {
		return "IS NOT NULL"
	}
	return "IS NULL"
}

func (p *parser) parseInTail(left ast.Expr, negate bool) (ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen, "("); err != nil {
		return nil, err
	}
	if p.at(lexer.TokSelect) {
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		return &ast.InExpr{Operand: left, Subquery: sub, Negate: negate}, nil
	}
	var list []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.InExpr{Operand: left, List: list, Negate: negate}, nil
}

func (p *parser) parseBetweenTail(left ast.Expr, negate bool) (ast.Expr, error) {
	lo, err := p.parseExprPrec(precAdd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokAnd, "AND"); err != nil {
		return nil, err
	}
	hi, err := p.parseExprPrec(precAdd)
	if err != nil {
		return nil, err
	}
	return &ast.BetweenExpr{Operand: left, Lo: lo, Hi: hi, Negate: negate}, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case lexer.TokNot:
		p.advance()
		operand, err := p.parseExprPrec(precNot)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", Operand: operand}, nil
	case lexer.TokMinus, lexer.TokPlus:
		op := p.advance()
		operand, err := p.parseExprPrec(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: tokText(op.Kind), Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case lexer.TokColonColon:
			p.advance()
			tname, args, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			expr = &ast.CastExpr{Operand: expr, TypeName: tname, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseTypeName() (string, []int, error) {
	name, err := p.expect(lexer.TokIdent, "type name")
	if err != nil {
		return "", nil, err
	}
	var args []int
	if p.skip(lexer.TokLParen) {
		for {
			n, err := p.expect(lexer.TokNumber, "numeric type argument")
			if err != nil {
				return "", nil, err
			}
			v, _ := strconv.Atoi(n.Text)
			args = append(args, v)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return "", nil, err
		}
	}
	return name.Text, args, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.TokNumber:
		p.advance()
		return &ast.Literal{Kind: ast.LitNumber, Text: tok.Text, ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokString:
		p.advance()
		return &ast.Literal{Kind: ast.LitString, Text: tok.Text, ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokNull:
		p.advance()
		return &ast.Literal{Kind: ast.LitNull, ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokTrue:
		p.advance()
		return &ast.Literal{Kind: ast.LitBool, Text: "true", ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokFalse:
		p.advance()
		return &ast.Literal{Kind: ast.LitBool, Text: "false", ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokParam:
		p.advance()
		idx, _ := strconv.Atoi(tok.Text[1:])
		return &ast.Parameter{Index: idx, ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokQMark:
		p.advance()
		p.nextParam++
		return &ast.Parameter{Index: p.nextParam, ExprBase: ast.Spanned(tok.Span)}, nil
	case lexer.TokLParen:
		return p.parseParenExpr()
	case lexer.TokCase:
		return p.parseCase()
	case lexer.TokCast:
		return p.parseCastFunc()
	case lexer.TokExists:
		p.advance()
		if _, err := p.expect(lexer.TokLParen, "("); err != nil {
			return nil, err
		}
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		return &ast.ExistsExpr{Subquery: sub}, nil
	case lexer.TokLBracket:
		return p.parseArrayLiteral()
	case lexer.TokIdent, lexer.TokQuotedIdent:
		return p.parseIdentLed()
	default:
		return nil, p.errf("unexpected token %q in expression", tok.Text)
	}
}

func (p *parser) parseParenExpr() (ast.Expr, error) {
	p.advance() // (
	if p.at(lexer.TokSelect) {
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		return &ast.ScalarSubquery{Query: sub}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.skip(lexer.TokComma) {
		elems := []ast.Expr{first}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		return &ast.TupleLiteral{Elements: elems}, nil
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *parser) parseCase() (ast.Expr, error) {
	p.advance() // CASE
	ce := &ast.CaseExpr{}
	if !p.at(lexer.TokWhen) {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = operand
	}
	for p.skip(lexer.TokWhen) {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokThen, "THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, ast.WhenClause{Cond: cond, Then: then})
	}
	if p.skip(lexer.TokElse) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if _, err := p.expect(lexer.TokEnd, "END"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseCastFunc() (ast.Expr, error) {
	p.advance() // CAST
	if _, err := p.expect(lexer.TokLParen, "("); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokAs, "AS"); err != nil {
		return nil, err
	}
	tname, args, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return &ast.CastExpr{Operand: operand, TypeName: tname, Args: args}, nil
}

func (p *parser) parseArrayLiteral() (ast.Expr, error) {
	p.advance() // [
	lit := &ast.ArrayLiteral{}
	if !p.at(lexer.TokRBracket) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, e)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokRBracket, "]"); err != nil {
		return nil, err
	}
	return lit, nil
}

// parseIdentLed parses whatever begins with an identifier: a qualified
// column reference, a function call (possibly with OVER), or ARRAY[...]/
// STRUCT(...) literals.
func (p *parser) parseIdentLed() (ast.Expr, error) {
	tok := p.advance()
	name := tok.Text

	switch name {
	case "ARRAY":
		if p.at(lexer.TokLBracket) {
			return p.parseArrayLiteral()
		}
	case "STRUCT":
		if p.at(lexer.TokLParen) {
			return p.parseStructLiteral()
		}
	}

	if p.skip(lexer.TokDot) {
		if p.at(lexer.TokStar) {
			p.advance()
			return &ast.ColumnRef{Qualifier: name, Name: "*"}, nil
		}
		field, err := p.expect(lexer.TokIdent, "column name")
		if err != nil {
			return nil, err
		}
		if p.at(lexer.TokLParen) {
			return p.parseFuncCallArgs(name + "." + field.Text)
		}
		return &ast.ColumnRef{Qualifier: name, Name: field.Text, ExprBase: ast.Spanned(tok.Span)}, nil
	}

	if p.at(lexer.TokLParen) {
		return p.parseFuncCallArgs(name)
	}

	return &ast.ColumnRef{Name: name, ExprBase: ast.Spanned(tok.Span)}, nil
}

func (p *parser) parseStructLiteral() (ast.Expr, error) {
	p.advance() // (
	lit := &ast.StructLiteral{}
	if !p.at(lexer.TokRParen) {
		for {
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			fieldName := ""
			if p.skip(lexer.TokAs) {
				n, err := p.expect(lexer.TokIdent, "field name")
				if err != nil {
					return nil, err
				}
				fieldName = n.Text
			}
			lit.Fields = append(lit.Fields, ast.StructLitField{Name: fieldName, Value: val})
			if !p.skip(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseFuncCallArgs(name string) (ast.Expr, error) {
	p.advance() // (
	call := &ast.FuncCall{Name: name}
	if p.at(lexer.TokStar) {
		p.advance()
		call.Star = true
	} else if !p.at(lexer.TokRParen) {
		if p.skip(lexer.TokDistinct) {
			call.Distinct = true
		}
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	if p.skip(lexer.TokOver) {
		spec, err := p.parseWindowSpec()
		if err != nil {
			return nil, err
		}
		call.Over = spec
	}
	return call, nil
}

func (p *parser) parseWindowSpec() (*ast.WindowSpec, error) {
	if p.at(lexer.TokIdent) && p.peek(1).Kind != lexer.TokLParen {
		name := p.advance().Text
		return &ast.WindowSpec{Name: name}, nil
	}
	if _, err := p.expect(lexer.TokLParen, "("); err != nil {
		return nil, err
	}
	spec := &ast.WindowSpec{}
	if p.skip(lexer.TokPartition) {
		if _, err := p.expect(lexer.TokBy, "BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			spec.Partitions = append(spec.Partitions, e)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
	}
	if p.skip(lexer.TokOrder) {
		if _, err := p.expect(lexer.TokBy, "BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderItems()
		if err != nil {
			return nil, err
		}
		spec.OrderBy = items
	}
	if p.at(lexer.TokRows) || p.at(lexer.TokRange) || p.at(lexer.TokGroups) {
		frame, err := p.parseFrame()
		if err != nil {
			return nil, err
		}
		spec.Frame = frame
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return spec, nil
}

func (p *parser) parseFrame() (*ast.WindowFrame, error) {
	var mode ast.FrameMode
	switch p.advance().Kind {
	case lexer.TokRows:
		mode = ast.FrameRows
	case lexer.TokRange:
		mode = ast.FrameRange
	case lexer.TokGroups:
		mode = ast.FrameGroups
	}
	frame := &ast.WindowFrame{Mode: mode}
	if p.skip(lexer.TokBetween) {
		start, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokAnd, "AND"); err != nil {
			return nil, err
		}
		end, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		frame.Start, frame.End = start, end
	} else {
		start, err := p.parseFrameBound()
		if err != nil {
			return nil, err
		}
		frame.Start = start
		frame.End = ast.FrameBound{Kind: ast.BoundCurrentRow}
	}
	return frame, nil
}

func (p *parser) parseFrameBound() (ast.FrameBound, error) {
	if p.skip(lexer.TokUnbounded) {
		if p.skip(lexer.TokPreceding) {
			return ast.FrameBound{Kind: ast.BoundUnboundedPreceding}, nil
		}
		if _, err := p.expect(lexer.TokFollowing, "FOLLOWING"); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.BoundUnboundedFollowing}, nil
	}
	if p.skip(lexer.TokCurrent) {
		if _, err := p.expect(lexer.TokRow, "ROW"); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.BoundCurrentRow}, nil
	}
	offset, err := p.parseExprPrec(precAdd)
	if err != nil {
		return ast.FrameBound{}, err
	}
	if p.skip(lexer.TokPreceding) {
		return ast.FrameBound{Kind: ast.BoundPreceding, Offset: offset}, nil
	}
	if _, err := p.expect(lexer.TokFollowing, "FOLLOWING"); err != nil {
		return ast.FrameBound{}, err
	}
	return ast.FrameBound{Kind: ast.BoundFollowing, Offset: offset}, nil
}

func (p *parser) parseOrderItems() ([]ast.OrderItem, error) {
	var items []ast.OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.OrderItem{Expr: e}
		if p.skip(lexer.TokAsc) {
		} else if p.skip(lexer.TokDesc) {
			item.Desc = true
		}
		if p.skip(lexer.TokNulls) {
			if p.skip(lexer.TokFirst) {
				item.NullsFirst = true
			} else if _, err := p.expect(lexer.TokLast, "LAST"); err != nil {
				return nil, err
			} else {
				item.NullsLast = true
			}
		}
		items = append(items, item)
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	return items, nil
}
