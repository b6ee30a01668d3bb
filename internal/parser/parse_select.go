package parser

import "yachtsql/internal/ast"
import "yachtsql/internal/lexer"

// parseWithStatement handles a leading WITH clause, which may prefix a
// SELECT, INSERT, UPDATE, or DELETE (spec.md §4.5 recursive CTEs).
func (p *parser) parseWithStatement() (ast.Statement, error) {
	p.advance() // WITH
	with := &ast.WithClause{}
	if p.skip(lexer.TokRecursive) {
		with.Recursive = true
	}
	for {
		name, err := p.expect(lexer.TokIdent, "CTE name")
		if err != nil {
			return nil, err
		}
		cte := ast.CTE{Name: name.Text}
		if p.skip(lexer.TokLParen) {
			for {
				col, err := p.expect(lexer.TokIdent, "column name")
				if err != nil {
					return nil, err
				}
				cte.Columns = append(cte.Columns, col.Text)
				if !p.skip(lexer.TokComma) {
					break
				}
			}
			if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.TokAs, "AS"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokLParen, "("); err != nil {
			return nil, err
		}
		query, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		cte.Query = query
		with.CTEs = append(with.CTEs, cte)
		if !p.skip(lexer.TokComma) {
			break
		}
	}

	switch p.cur().Kind {
	case lexer.TokInsert:
		stmt, err := p.parseInsert()
		if err != nil {
			return nil, err
		}
		stmt.(*ast.InsertStmt).With = with
		return stmt, nil
	case lexer.TokUpdate:
		stmt, err := p.parseUpdate()
		if err != nil {
			return nil, err
		}
		stmt.(*ast.UpdateStmt).With = with
		return stmt, nil
	case lexer.TokDelete:
		stmt, err := p.parseDelete()
		if err != nil {
			return nil, err
		}
		stmt.(*ast.DeleteStmt).With = with
		return stmt, nil
	default:
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		sel.With = with
		return sel, nil
	}
}

// parseSelect parses a full SELECT statement, including UNION/INTERSECT/
// EXCEPT chaining (left-associative, spec.md §4.5).
func (p *parser) parseSelect() (*ast.SelectStmt, error) {
	left, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}
	for {
		var kind ast.SetOpKind
		switch p.cur().Kind {
		case lexer.TokUnion:
			kind = ast.SetOpUnion
		case lexer.TokIntersect:
			kind = ast.SetOpIntersect
		case lexer.TokExcept:
			kind = ast.SetOpExcept
		default:
			return left, nil
		}
		p.advance()
		all := p.skip(lexer.TokAll)
		p.skip(lexer.TokDistinct)
		right, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		left = &ast.SelectStmt{SetOp: kind, SetOpAll: all, SetOpLeft: left, SetOpRight: right}
	}
}

func (p *parser) parseSelectCore() (*ast.SelectStmt, error) {
	if _, err := p.expect(lexer.TokSelect, "SELECT"); err != nil {
		return nil, err
	}
	stmt := &ast.SelectStmt{}
	if p.skip(lexer.TokDistinct) {
		stmt.Distinct = true
	} else {
		p.skip(lexer.TokAll)
	}

	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Items = items

	if p.skip(lexer.TokFrom) {
		rel, err := p.parseFromList()
		if err != nil {
			return nil, err
		}
		stmt.From = rel
	}
	if p.skip(lexer.TokWhere) {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	if p.skip(lexer.TokGroup) {
		if _, err := p.expect(lexer.TokBy, "BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
	}
	if p.skip(lexer.TokHaving) {
		h, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = h
	}
	if p.skip(lexer.TokWindow) {
		stmt.Windows = map[string]*ast.WindowSpec{}
		for {
			name, err := p.expect(lexer.TokIdent, "window name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokAs, "AS"); err != nil {
				return nil, err
			}
			spec, err := p.parseWindowSpec()
			if err != nil {
				return nil, err
			}
			stmt.Windows[name.Text] = spec
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
		stmt.OrderBy = items
	}
	if p.skip(lexer.TokLimit) {
		e, err := p.parseExprPrec(precAdd)
		if err != nil {
			return nil, err
		}
		stmt.Limit = e
	}
	if p.skip(lexer.TokOffset) {
		e, err := p.parseExprPrec(precAdd)
		if err != nil {
			return nil, err
		}
		stmt.Offset = e
	}
	return stmt, nil
}

func (p *parser) parseSelectList() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		if p.at(lexer.TokStar) {
			p.advance()
			items = append(items, ast.SelectItem{Star: true})
		} else if p.at(lexer.TokIdent) && p.peek(1).Kind == lexer.TokDot && p.peek(2).Kind == lexer.TokStar {
			qual := p.advance().Text
			p.advance() // .
			p.advance() // *
			items = append(items, ast.SelectItem{Star: true, StarQualifier: qual})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := ast.SelectItem{Expr: e}
			if p.skip(lexer.TokAs) {
				name, err := p.expect(lexer.TokIdent, "alias")
				if err != nil {
					return nil, err
				}
				item.Alias = name.Text
			} else if p.at(lexer.TokIdent) {
				item.Alias = p.advance().Text
			}
			items = append(items, item)
		}
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	return items, nil
}

// parseFromList parses the FROM clause: a comma-separated list of
// relations (implicit cross join) each of which may carry an explicit
// JOIN chain, following PostgreSQL's left-associative join grammar.
func (p *parser) parseFromList() (ast.Relation, error) {
	rel, err := p.parseJoinChain()
	if err != nil {
		return nil, err
	}
	for p.skip(lexer.TokComma) {
		right, err := p.parseJoinChain()
		if err != nil {
			return nil, err
		}
		rel = &ast.JoinExpr{Kind: ast.JoinCross, Left: rel, Right: right}
	}
	return rel, nil
}

func (p *parser) parseJoinChain() (ast.Relation, error) {
	left, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	for {
		kind, ok, err := p.tryJoinKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		join := &ast.JoinExpr{Kind: kind, Left: left, Right: right}
		if kind != ast.JoinCross {
			if p.skip(lexer.TokOn) {
				cond, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				join.Condition = cond
			} else if p.skip(lexer.TokUsing) {
				if _, err := p.expect(lexer.TokLParen, "("); err != nil {
					return nil, err
				}
				for {
					col, err := p.expect(lexer.TokIdent, "column name")
					if err != nil {
						return nil, err
					}
					join.Using = append(join.Using, col.Text)
					if !p.skip(lexer.TokComma) {
						break
					}
				}
				if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
					return nil, err
				}
			}
		}
		left = join
	}
}

func (p *parser) tryJoinKeyword() (ast.JoinKind, bool, error) {
	switch p.cur().Kind {
	case lexer.TokJoin:
		p.advance()
		return ast.JoinInner, true, nil
	case lexer.TokInner:
		p.advance()
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinInner, true, nil
	case lexer.TokCross:
		p.advance()
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinCross, true, nil
	case lexer.TokAsof:
		p.advance()
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinAsof, true, nil
	case lexer.TokAny:
		p.advance()
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinAny, true, nil
	case lexer.TokLeft:
		p.advance()
		p.skip(lexer.TokOuter)
		if p.at(lexer.TokIdent) && p.cur().Text == "SEMI" {
			p.advance()
			if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
				return 0, false, err
			}
			return ast.JoinSemi, true, nil
		}
		if p.at(lexer.TokIdent) && p.cur().Text == "ANTI" {
			p.advance()
			if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
				return 0, false, err
			}
			return ast.JoinAnti, true, nil
		}
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinLeft, true, nil
	case lexer.TokRight:
		p.advance()
		p.skip(lexer.TokOuter)
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinRight, true, nil
	case lexer.TokFull:
		p.advance()
		p.skip(lexer.TokOuter)
		if _, err := p.expect(lexer.TokJoin, "JOIN"); err != nil {
			return 0, false, err
		}
		return ast.JoinFull, true, nil
	default:
		return 0, false, nil
	}
}

func (p *parser) parseTableRef() (ast.Relation, error) {
	lateral := p.skip(lexer.TokLateral)

	if p.at(lexer.TokLParen) {
		save := p.pos
		p.advance()
		if p.at(lexer.TokSelect) || p.at(lexer.TokWith) {
			var sub *ast.SelectStmt
			var err error
			if p.at(lexer.TokWith) {
				st, e := p.parseWithStatement()
				err = e
				if st != nil {
					sub = st.(*ast.SelectStmt)
				}
			} else {
				sub, err = p.parseSelect()
			}
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
				return nil, err
			}
			alias := p.parseOptionalAlias()
			return &ast.SubqueryRef{Query: sub, Alias: alias, Lateral: lateral}, nil
		}
		p.pos = save
		rel, err := p.parseFromList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		return rel, nil
	}

	if p.at(lexer.TokValues) {
		rows, err := p.parseValuesRows()
		if err != nil {
			return nil, err
		}
		alias := p.parseOptionalAlias()
		var cols []string
		if p.skip(lexer.TokLParen) {
			for {
				c, err := p.expect(lexer.TokIdent, "column name")
				if err != nil {
					return nil, err
				}
				cols = append(cols, c.Text)
				if !p.skip(lexer.TokComma) {
					break
				}
			}
			if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
				return nil, err
			}
		}
		return &ast.ValuesRef{Rows: rows, Alias: alias, Columns: cols}, nil
	}

	name, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokLParen) {
		call, err := p.parseFuncCallArgs(name.Text)
		if err != nil {
			return nil, err
		}
		alias := p.parseOptionalAlias()
		return &ast.TableFunctionRef{Call: call.(*ast.FuncCall), Alias: alias, Lateral: lateral}, nil
	}
	alias := p.parseOptionalAlias()
	return &ast.TableRef{Name: name.Text, Alias: alias}, nil
}

func (p *parser) parseOptionalAlias() string {
	if p.skip(lexer.TokAs) {
		if p.at(lexer.TokIdent) {
			return p.advance().Text
		}
		return ""
	}
	if p.at(lexer.TokIdent) {
		return p.advance().Text
	}
	return ""
}

func (p *parser) parseValuesRows() ([][]ast.Expr, error) {
	if _, err := p.expect(lexer.TokValues, "VALUES"); err != nil {
		return nil, err
	}
	var rows [][]ast.Expr
	for {
		if _, err := p.expect(lexer.TokLParen, "("); err != nil {
			return nil, err
		}
		var row []ast.Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	return rows, nil
}
