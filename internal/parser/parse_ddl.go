package parser

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/lexer"
)

// parseCreate handles `CREATE TABLE` and `CREATE [UNIQUE] INDEX`
// (spec.md §4.4, §4.7).
func (p *parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	if p.skip(lexer.TokUnique) {
		return p.parseCreateIndex(true)
	}
	switch p.cur().Kind {
	case lexer.TokTable:
		return p.parseCreateTable()
	case lexer.TokIndex:
		return p.parseCreateIndex(false)
	default:
		return nil, p.errf("expected TABLE or INDEX after CREATE, found %q", p.cur().Text)
	}
}

func (p *parser) parseCreateTable() (ast.Statement, error) {
	p.advance() // TABLE
	stmt := &ast.CreateTableStmt{}
	if p.skip(lexer.TokIf) {
		if _, err := p.expect(lexer.TokNot, "NOT"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokExists, "EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	name, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = name.Text
	if _, err := p.expect(lexer.TokLParen, "("); err != nil {
		return nil, err
	}
	for {
		if p.at(lexer.TokPrimary) {
			// table-level PRIMARY KEY (cols) constraint: recorded as a
			// per-column NotNull+Unique on each referenced column that is
			// already declared.
			p.advance()
			if _, err := p.expect(lexer.TokKey, "KEY"); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokLParen, "("); err != nil {
				return nil, err
			}
			var pk []string
			for {
				c, err := p.expect(lexer.TokIdent, "column name")
				if err != nil {
					return nil, err
				}
				pk = append(pk, c.Text)
				if !p.skip(lexer.TokComma) {
					break
				}
			}
			if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
				return nil, err
			}
			for i := range stmt.Columns {
				for _, name := range pk {
					if stmt.Columns[i].Name == name {
						stmt.Columns[i].NotNull = true
						stmt.Columns[i].Unique = true
					}
				}
			}
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if !p.skip(lexer.TokComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseColumnDef() (ast.ColumnDef, error) {
	name, err := p.expect(lexer.TokIdent, "column name")
	if err != nil {
		return ast.ColumnDef{}, err
	}
	tname, args, err := p.parseTypeName()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	col := ast.ColumnDef{Name: name.Text, TypeName: tname, TypeArgs: args}
	for {
		switch p.cur().Kind {
		case lexer.TokNot:
			p.advance()
			if _, err := p.expect(lexer.TokNull, "NULL"); err != nil {
				return ast.ColumnDef{}, err
			}
			col.NotNull = true
		case lexer.TokNull:
			p.advance()
		case lexer.TokUnique:
			p.advance()
			col.Unique = true
		case lexer.TokPrimary:
			p.advance()
			if _, err := p.expect(lexer.TokKey, "KEY"); err != nil {
				return ast.ColumnDef{}, err
			}
			col.NotNull = true
			col.Unique = true
		case lexer.TokCheck:
			p.advance()
			if _, err := p.expect(lexer.TokLParen, "("); err != nil {
				return ast.ColumnDef{}, err
			}
			check, err := p.parseExpr()
			if err != nil {
				return ast.ColumnDef{}, err
			}
			if _, err := p.expect(lexer.TokRParen, ")"); err != nil {
				return ast.ColumnDef{}, err
			}
			col.Check = check
		case lexer.TokDefault:
			p.advance()
			def, err := p.parseExprPrec(precUnary)
			if err != nil {
				return ast.ColumnDef{}, err
			}
			col.Default = def
		default:
			return col, nil
		}
	}
}

func (p *parser) parseCreateIndex(unique bool) (ast.Statement, error) {
	if _, err := p.expect(lexer.TokIndex, "INDEX"); err != nil {
		return nil, err
	}
	stmt := &ast.CreateIndexStmt{Unique: unique}
	if p.at(lexer.TokIdent) {
		stmt.Name = p.advance().Text
	}
	if _, err := p.expect(lexer.TokOn, "ON"); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table.Text
	if _, err := p.expect(lexer.TokLParen, "("); err != nil {
		return nil, err
	}
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
	return stmt, nil
}
