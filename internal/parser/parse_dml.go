package parser

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/lexer"
)

func (p *parser) parseReturning() ([]ast.SelectItem, error) {
	if !p.skip(lexer.TokReturning) {
		return nil, nil
	}
	return p.parseSelectList()
}

// parseInsert handles `INSERT INTO t (cols) VALUES (...) RETURNING ...`
// and `INSERT INTO t (cols) SELECT ... RETURNING ...` (spec.md §4.4).
func (p *parser) parseInsert() (ast.Statement, error) {
	p.advance() // INSERT
	if _, err := p.expect(lexer.TokInto, "INTO"); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	stmt := &ast.InsertStmt{Table: table.Text}

	if p.skip(lexer.TokLParen) {
		for {
			col, err := p.expect(lexer.TokIdent, "column name")
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col.Text)
			if !p.skip(lexer.TokComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
			return nil, err
		}
	}

	if p.at(lexer.TokSelect) || p.at(lexer.TokWith) {
		var query *ast.SelectStmt
		if p.at(lexer.TokWith) {
			st, err := p.parseWithStatement()
			if err != nil {
				return nil, err
			}
			query = st.(*ast.SelectStmt)
		} else {
			query, err = p.parseSelect()
			if err != nil {
				return nil, err
			}
		}
		stmt.Query = query
	} else {
		rows, err := p.parseValuesRows()
		if err != nil {
			return nil, err
		}
		stmt.Values = rows
	}

	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}

// parseUpdate handles `UPDATE t SET col = expr, ... WHERE ... RETURNING`.
func (p *parser) parseUpdate() (ast.Statement, error) {
	p.advance() // UPDATE
	table, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	stmt := &ast.UpdateStmt{Table: table.Text}
	if _, err := p.expect(lexer.TokSet, "SET"); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(lexer.TokIdent, "column name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokEq, "="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, ast.Assignment{Column: col.Text, Value: val})
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	if p.skip(lexer.TokWhere) {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}

// parseDelete handles `DELETE FROM t WHERE ... RETURNING ...`.
func (p *parser) parseDelete() (ast.Statement, error) {
	p.advance() // DELETE
	if _, err := p.expect(lexer.TokFrom, "FROM"); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	stmt := &ast.DeleteStmt{Table: table.Text}
	if p.skip(lexer.TokWhere) {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}
