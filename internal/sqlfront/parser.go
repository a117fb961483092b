/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqlfront

import (
	"fmt"

	"github.com/NKID00/aidb/internal/statement"
)

// Parser turns a single SQL statement string into a statement.Statement.
type parser struct {
	toks []token
	pos  int
}

// Parse lexes and parses sql (without a trailing semicolon requirement)
// into a single statement.
func Parse(sql string) (*statement.Statement, error) {
	lx := newLexer(sql)
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		toks = append(toks, tok)
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	// Allow (and skip) a single trailing ';'.
	if p.peekIsPunct(";") {
		p.pos++
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("sqlfront: unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) cur() token {
	if p.atEnd() {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekIsKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokKeyword && t.text == kw
}

func (p *parser) peekIsPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expectKeyword(kw string) error {
	if !p.peekIsKeyword(kw) {
		return fmt.Errorf("sqlfront: expected %s, got %q", kw, p.cur().text)
	}
	p.pos++
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.peekIsPunct(s) {
		return fmt.Errorf("sqlfront: expected %q, got %q", s, p.cur().text)
	}
	p.pos++
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return "", fmt.Errorf("sqlfront: expected identifier, got %q", t.text)
	}
	p.pos++
	return t.text, nil
}

func (p *parser) parseStatement() (*statement.Statement, error) {
	switch {
	case p.peekIsKeyword("SHOW"):
		return p.parseShowTables()
	case p.peekIsKeyword("DESCRIBE"), p.peekIsKeyword("DESC"):
		return p.parseDescribe()
	case p.peekIsKeyword("CREATE"):
		return p.parseCreateTable()
	case p.peekIsKeyword("INSERT"):
		return p.parseInsertInto()
	case p.peekIsKeyword("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Select: sel}, nil
	case p.peekIsKeyword("EXPLAIN"):
		return p.parseExplain()
	case p.peekIsKeyword("UPDATE"):
		return p.parseUpdate()
	case p.peekIsKeyword("DELETE"):
		return p.parseDeleteFrom()
	case p.peekIsKeyword("FLUSH"):
		return p.parseFlushTables()
	case p.peekIsKeyword("START"):
		return p.parseStartTransaction()
	case p.peekIsKeyword("COMMIT"):
		p.pos++
		return &statement.Statement{Commit: &statement.CommitStmt{}}, nil
	case p.peekIsKeyword("ROLLBACK"):
		p.pos++
		return &statement.Statement{Rollback: &statement.RollbackStmt{}}, nil
	default:
		return nil, fmt.Errorf("sqlfront: unrecognized statement near %q", p.cur().text)
	}
}

func (p *parser) parseShowTables() (*statement.Statement, error) {
	p.pos++ // SHOW
	if err := p.expectKeyword("TABLES"); err != nil {
		return nil, err
	}
	return &statement.Statement{ShowTables: &statement.ShowTablesStmt{}}, nil
}

func (p *parser) parseDescribe() (*statement.Statement, error) {
	p.pos++ // DESCRIBE|DESC
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &statement.Statement{Describe: &statement.DescribeStmt{Table: table}}, nil
}

func (p *parser) parseColumnType() (statement.ColumnType, error) {
	t := p.cur()
	if t.kind != tokKeyword {
		return 0, fmt.Errorf("sqlfront: expected a column type, got %q", t.text)
	}
	p.pos++
	switch t.text {
	case "INTEGER", "INT":
		return statement.TypeInteger, nil
	case "REAL", "FLOAT", "DOUBLE":
		return statement.TypeReal, nil
	case "TEXT", "VARCHAR", "CHAR":
		return statement.TypeText, nil
	default:
		return 0, fmt.Errorf("sqlfront: unknown column type %q", t.text)
	}
}

func (p *parser) parseCreateTable() (*statement.Statement, error) {
	p.pos++ // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []statement.ColumnDef
	for {
		colName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		colType, err := p.parseColumnType()
		if err != nil {
			return nil, err
		}
		indexed := false
		if p.peekIsKeyword("INDEX") {
			p.pos++
			indexed = true
		}
		cols = append(cols, statement.ColumnDef{Name: colName, Type: colType, Indexed: indexed})
		if p.peekIsPunct(",") {
			p.pos++
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &statement.Statement{CreateTable: &statement.CreateTableStmt{Table: name, Columns: cols}}, nil
}

func (p *parser) parseLiteral() (statement.Literal, error) {
	t := p.cur()
	switch t.kind {
	case tokInteger:
		p.pos++
		return statement.Literal{Kind: statement.LiteralInteger, Int: t.i}, nil
	case tokReal:
		p.pos++
		return statement.Literal{Kind: statement.LiteralReal, Real: t.r}, nil
	case tokString:
		p.pos++
		return statement.Literal{Kind: statement.LiteralText, Text: t.text}, nil
	case tokKeyword:
		if t.text == "NULL" {
			p.pos++
			return statement.Literal{Kind: statement.LiteralNull}, nil
		}
	}
	return statement.Literal{}, fmt.Errorf("sqlfront: expected a literal, got %q", t.text)
}

func (p *parser) parseInsertInto() (*statement.Statement, error) {
	p.pos++ // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var cols []string
	if p.peekIsPunct("(") {
		p.pos++
		for {
			c, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
			if p.peekIsPunct(",") {
				p.pos++
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	var rows [][]statement.Literal
	for {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var row []statement.Literal
		for {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			row = append(row, lit)
			if p.peekIsPunct(",") {
				p.pos++
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.peekIsPunct(",") {
			p.pos++
			continue
		}
		break
	}
	return &statement.Statement{InsertInto: &statement.InsertIntoStmt{Table: table, Columns: cols, Rows: rows}}, nil
}

func (p *parser) parseColumnRef(ident string) (statement.ColumnRef, error) {
	if p.peekIsPunct(".") {
		p.pos++
		col, err := p.expectIdent()
		if err != nil {
			return statement.ColumnRef{}, err
		}
		return statement.ColumnRef{Table: ident, Column: col}, nil
	}
	return statement.ColumnRef{Column: ident}, nil
}

func (p *parser) parseTarget() (statement.Target, error) {
	if p.peekIsPunct("*") {
		p.pos++
		return statement.Target{Wildcard: true}, nil
	}
	t := p.cur()
	if t.kind == tokVariable {
		p.pos++
		return statement.Target{Variable: t.text}, nil
	}
	if t.kind == tokIdent {
		p.pos++
		ref, err := p.parseColumnRef(t.text)
		if err != nil {
			return statement.Target{}, err
		}
		tgt := statement.Target{Column: &ref}
		if p.peekIsKeyword("AS") {
			p.pos++
			alias, err := p.expectIdent()
			if err != nil {
				return statement.Target{}, err
			}
			tgt.Alias = alias
		}
		return tgt, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return statement.Target{}, err
	}
	return statement.Target{Literal: &lit}, nil
}

func (p *parser) parseTableRef() (statement.TableRef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return statement.TableRef{}, err
	}
	ref := statement.TableRef{Name: name}
	if p.peekIsKeyword("AS") {
		p.pos++
		alias, err := p.expectIdent()
		if err != nil {
			return statement.TableRef{}, err
		}
		ref.Alias = alias
	} else if p.cur().kind == tokIdent {
		ref.Alias = p.cur().text
		p.pos++
	}
	return ref, nil
}

// parsePredicate parses a WHERE expression: OR of ANDs of (optionally
// negated) relations, left-associative, no parenthesized grouping.
func (p *parser) parsePredicate() (*statement.Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	ors := []statement.Predicate{*first}
	for p.peekIsKeyword("OR") {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		ors = append(ors, *next)
	}
	if len(ors) == 1 {
		return &ors[0], nil
	}
	return &statement.Predicate{Or: ors}, nil
}

func (p *parser) parseAnd() (*statement.Predicate, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	ands := []statement.Predicate{*first}
	for p.peekIsKeyword("AND") {
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ands = append(ands, *next)
	}
	if len(ands) == 1 {
		return &ands[0], nil
	}
	return &statement.Predicate{And: ands}, nil
}

func (p *parser) parseUnary() (*statement.Predicate, error) {
	if p.peekIsKeyword("NOT") {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &statement.Predicate{Not: inner}, nil
	}
	return p.parseRelation()
}

func (p *parser) parseOperand() (statement.ColumnRef, *statement.Literal, error) {
	t := p.cur()
	if t.kind == tokIdent {
		p.pos++
		ref, err := p.parseColumnRef(t.text)
		return ref, nil, err
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return statement.ColumnRef{}, nil, err
	}
	return statement.ColumnRef{}, &lit, nil
}

func (p *parser) parseRelation() (*statement.Predicate, error) {
	leftRef, leftLit, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if leftLit != nil {
		return nil, fmt.Errorf("sqlfront: WHERE relation must start with a column")
	}

	var op statement.PredicateOp
	switch {
	case p.peekIsPunct("="):
		op = statement.OpEq
		p.pos++
	case p.cur().kind == tokLe:
		op = statement.OpLe
		p.pos++
	case p.peekIsKeyword("LIKE"):
		op = statement.OpLike
		p.pos++
	default:
		return nil, fmt.Errorf("sqlfront: expected a comparison operator, got %q", p.cur().text)
	}

	rightRef, rightLit, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	rel := &statement.Relation{Op: op, Left: leftRef, Literal: rightLit}
	if rightLit == nil {
		rel.Right = &rightRef
	}
	return &statement.Predicate{Rel: rel}, nil
}

func (p *parser) parseSelect() (*statement.SelectStmt, error) {
	p.pos++ // SELECT
	var targets []statement.Target
	for {
		t, err := p.parseTarget()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if p.peekIsPunct(",") {
			p.pos++
			continue
		}
		break
	}

	sel := &statement.SelectStmt{Targets: targets}

	if p.peekIsKeyword("FROM") {
		p.pos++
		from, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		sel.From = &from

		for p.peekIsKeyword("JOIN") {
			p.pos++
			table, err := p.parseTableRef()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("ON"); err != nil {
				return nil, err
			}
			leftIdent, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			left, err := p.parseColumnRef(leftIdent)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			rightIdent, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			right, err := p.parseColumnRef(rightIdent)
			if err != nil {
				return nil, err
			}
			sel.Joins = append(sel.Joins, statement.Join{Table: table, Left: left, Right: right})
		}
	}

	if p.peekIsKeyword("WHERE") {
		p.pos++
		where, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Where = where
	}

	if p.peekIsKeyword("LIMIT") {
		p.pos++
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if lit.Kind != statement.LiteralInteger {
			return nil, fmt.Errorf("sqlfront: LIMIT requires an integer")
		}
		n := lit.Int
		sel.Limit = &n
	}

	return sel, nil
}

func (p *parser) parseExplain() (*statement.Statement, error) {
	p.pos++ // EXPLAIN
	if !p.peekIsKeyword("SELECT") {
		return nil, fmt.Errorf("sqlfront: EXPLAIN only supports SELECT")
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	return &statement.Statement{Explain: &statement.ExplainStmt{Inner: sel}}, nil
}

func (p *parser) parseUpdate() (*statement.Statement, error) {
	p.pos++ // UPDATE
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var assigns []statement.Assignment
	for {
		colName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		ref, err := p.parseColumnRef(colName)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, statement.Assignment{Column: ref, Value: lit})
		if p.peekIsPunct(",") {
			p.pos++
			continue
		}
		break
	}
	upd := &statement.UpdateStmt{Table: table, Set: assigns}
	if p.peekIsKeyword("WHERE") {
		p.pos++
		where, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		upd.Where = where
	}
	return &statement.Statement{Update: upd}, nil
}

func (p *parser) parseDeleteFrom() (*statement.Statement, error) {
	p.pos++ // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	del := &statement.DeleteFromStmt{Table: table}
	if p.peekIsKeyword("WHERE") {
		p.pos++
		where, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		del.Where = where
	}
	return &statement.Statement{DeleteFrom: del}, nil
}

func (p *parser) parseFlushTables() (*statement.Statement, error) {
	p.pos++ // FLUSH
	if err := p.expectKeyword("TABLES"); err != nil {
		return nil, err
	}
	return &statement.Statement{FlushTables: &statement.FlushTablesStmt{}}, nil
}

func (p *parser) parseStartTransaction() (*statement.Statement, error) {
	p.pos++ // START
	if err := p.expectKeyword("TRANSACTION"); err != nil {
		return nil, err
	}
	return &statement.Statement{StartTransaction: &statement.StartTransactionStmt{}}, nil
}
