// Package parser implements YachtSQL's hand-written Pratt/recursive-descent
// hybrid: statements are parsed by recursive descent, expressions by
// precedence climbing (spec.md §4.1). The first syntax error halts
// parsing and is reported with a line/column span.
package parser

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/lexer"
)

// Parse parses a single SQL statement string under the given dialect.
func Parse(sql string, dialect lexer.Dialect) (ast.Statement, error) {
	lx := lexer.New(sql, dialect)
	toks, err := lx.All()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, dialect: dialect}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skip(lexer.TokSemicolon)
	if !p.at(lexer.TokEOF) {
		return nil, p.errf("unexpected token %q after statement", p.cur().Text)
	}
	return stmt, nil
}

type parser struct {
	toks    []lexer.Token
	pos     int
	dialect lexer.Dialect
	// nextParam tracks `?`-style positional parameters (ClickHouse/MySQL
	// style) so each successive `?` gets the next index.
	nextParam int
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) at(k lexer.TokenKind) bool { return p.cur().Kind == k }

func (p *parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) skip(k lexer.TokenKind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k lexer.TokenKind, what string) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, p.errf("expected %s, found %q", what, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...any) error {
	sp := p.cur().Span
	return errs.At(errs.SyntaxError, sp, format, args...)
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case lexer.TokWith:
		return p.parseWithStatement()
	case lexer.TokSelect:
		return p.parseSelect()
	case lexer.TokValues:
		rows, err := p.parseValuesRows()
		if err != nil {
			return nil, err
		}
		return &ast.ValuesStmt{Rows: rows}, nil
	case lexer.TokInsert:
		return p.parseInsert()
	case lexer.TokUpdate:
		return p.parseUpdate()
	case lexer.TokDelete:
		return p.parseDelete()
	case lexer.TokCreate:
		return p.parseCreate()
	case lexer.TokBegin:
		return p.parseBegin()
	case lexer.TokCommit:
		p.advance()
		return &ast.CommitStmt{}, nil
	case lexer.TokRollback:
		return p.parseRollback()
	case lexer.TokSavepoint:
		p.advance()
		name, err := p.expect(lexer.TokIdent, "savepoint name")
		if err != nil {
			return nil, err
		}
		return &ast.SavepointStmt{Name: name.Text}, nil
	case lexer.TokRelease:
		p.advance()
		p.skip(lexer.TokSavepoint)
		name, err := p.expect(lexer.TokIdent, "savepoint name")
		if err != nil {
			return nil, err
		}
		return &ast.ReleaseSavepointStmt{Name: name.Text}, nil
	case lexer.TokExplain:
		p.advance()
		analyze := false
		if p.at(lexer.TokIdent) && p.cur().Text == "ANALYZE" {
			analyze = true
			p.advance()
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ast.ExplainStmt{Analyze: analyze, Stmt: stmt}, nil
	default:
		return nil, p.errf("unsupported statement starting with %q", p.cur().Text)
	}
}

func (p *parser) parseBegin() (ast.Statement, error) {
	p.advance()
	p.skip(lexer.TokTransaction)
	stmt := &ast.BeginStmt{Isolation: ast.ReadCommitted}
	if p.skip(lexer.TokIsolation) {
		p.skip(lexer.TokLevel)
		stmt.HasLevel = true
		level, err := p.parseIsolationLevelWords()
		if err != nil {
			return nil, err
		}
		stmt.Isolation = level
	}
	return stmt, nil
}

func (p *parser) parseIsolationLevelWords() (ast.Isolation, error) {
	words := ""
	for p.at(lexer.TokIdent) {
		words += p.advance().Text + " "
	}
	switch words {
	case "READ COMMITTED ":
		return ast.ReadCommitted, nil
	case "REPEATABLE READ ":
		return ast.RepeatableRead, nil
	case "SERIALIZABLE ":
		return ast.Serializable, nil
	case "READ UNCOMMITTED ":
		return ast.ReadUncommitted, nil
	default:
		return ast.ReadCommitted, p.errf("unknown isolation level %q", words)
	}
}

func (p *parser) parseRollback() (ast.Statement, error) {
	p.advance()
	p.skip(lexer.TokTransaction)
	stmt := &ast.RollbackStmt{}
	if p.skip(lexer.TokTo) {
		p.skip(lexer.TokSavepoint)
		name, err := p.expect(lexer.TokIdent, "savepoint name")
		if err != nil {
			return nil, err
		}
		stmt.ToSavepoint = name.Text
	}
	return stmt, nil
}
