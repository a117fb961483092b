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

// Package engine wires the cache, schema registry, planner, and executor
// together behind a single statement dispatcher, in the manner of
// perkeep's pkg/blobserver.Storage: one struct through which every
// higher-level operation flows.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/NKID00/aidb/internal/blob"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/exec"
	"github.com/NKID00/aidb/internal/planner"
	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/segment"
	"github.com/NKID00/aidb/internal/sqlfront"
	"github.com/NKID00/aidb/internal/statement"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// Column names one column of a Rows response.
type Column struct {
	Name string
	Type types.DataType
}

// Response is the sum type every dispatched statement produces: exactly
// one of Rows or Meta is non-nil.
type Response struct {
	Rows *RowsResult
	Meta *MetaResult
}

// RowsResult is a tabular response: SELECT, EXPLAIN, SHOW TABLES, DESCRIBE.
type RowsResult struct {
	Columns []Column
	Rows    [][]types.Value
}

// MetaResult is a non-tabular response carrying an affected-row count:
// CREATE TABLE, INSERT, UPDATE, DELETE, FLUSH TABLES, transaction control.
type MetaResult struct {
	AffectedRows int
}

var (
	// ErrIndexedColumnUpdate is returned when an UPDATE's SET list
	// targets a column backed by a B+tree index: this core has no
	// index-entry rewrite, so the value cannot move without stranding
	// its old index entry.
	ErrIndexedColumnUpdate = errors.New("engine: cannot update an indexed column")
	// ErrDeleteOnIndexedTable is returned by DELETE FROM against a
	// table carrying any index: this core has no B+tree removal (the
	// original implementation left Update/DeleteFrom unimplemented
	// entirely), so deleting a row would leave a dangling index entry
	// pointing at a slot that may later be reused for a different row.
	ErrDeleteOnIndexedTable = errors.New("engine: cannot delete from a table with an index")
)

// Engine is the top-level entry point: one cache, one schema registry,
// bound to one block store.
type Engine struct {
	store *storage.Store
	cache *cache.Cache
	reg   *schema.Registry
}

// Open initializes (or resumes) an engine over driver.
func Open(ctx context.Context, driver blob.Driver) (*Engine, error) {
	store := storage.New(driver)
	c, err := cache.Open(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("engine: open: %w", err)
	}
	return &Engine{store: store, cache: c, reg: schema.NewRegistry(c)}, nil
}

// Query parses sql and dispatches the resulting statement.
func (e *Engine) Query(ctx context.Context, sql string) (Response, error) {
	stmt, err := sqlfront.Parse(sql)
	if err != nil {
		return Response{}, fmt.Errorf("engine: parse: %w", err)
	}
	return e.Dispatch(ctx, stmt)
}

// QueryLogBlocks runs Query after resetting the I/O log, and returns a
// snapshot of which blocks were physically read/written while dispatching
// it. The log is cleared on every call, so the snapshot reflects only
// this one statement.
func (e *Engine) QueryLogBlocks(ctx context.Context, sql string) (Response, storage.IoLog, error) {
	e.store.ResetIoLog()
	resp, err := e.Query(ctx, sql)
	return resp, e.store.IoLogSnapshot(), err
}

// Dispatch routes a parsed statement to its handler, applying the
// statement-boundary transaction protocol: a superblock snapshot is
// captured before dispatch; on success outside a transaction the cache is
// submitted to the store; on failure outside a transaction the cache is
// rolled back so the store is left unchanged; inside a transaction,
// neither happens automatically (the caller must issue COMMIT/ROLLBACK).
func (e *Engine) Dispatch(ctx context.Context, stmt *statement.Statement) (Response, error) {
	e.cache.BeginStatement()
	resp, err := e.dispatch(ctx, stmt)
	if err != nil {
		if !e.cache.InTransaction() {
			e.cache.Rollback()
		}
		return Response{}, err
	}
	if !e.cache.InTransaction() {
		if err := e.cache.Submit(ctx, nil); err != nil {
			e.cache.Rollback()
			return Response{}, err
		}
	}
	return resp, nil
}

func (e *Engine) dispatch(ctx context.Context, stmt *statement.Statement) (Response, error) {
	switch {
	case stmt.ShowTables != nil:
		return e.showTables(ctx)
	case stmt.Describe != nil:
		return e.describe(ctx, stmt.Describe.Table)
	case stmt.CreateTable != nil:
		return e.createTable(ctx, stmt.CreateTable)
	case stmt.InsertInto != nil:
		return e.insertInto(ctx, stmt.InsertInto)
	case stmt.Select != nil:
		return e.selectRows(ctx, stmt.Select)
	case stmt.Explain != nil:
		return e.explain(ctx, stmt.Explain.Inner)
	case stmt.Update != nil:
		return e.update(ctx, stmt.Update)
	case stmt.DeleteFrom != nil:
		return e.deleteFrom(ctx, stmt.DeleteFrom)
	case stmt.FlushTables != nil:
		return e.flushTables(ctx)
	case stmt.StartTransaction != nil:
		e.cache.StartTransaction()
		return Response{Meta: &MetaResult{}}, nil
	case stmt.Commit != nil:
		e.cache.Commit()
		if err := e.cache.Submit(ctx, nil); err != nil {
			return Response{}, err
		}
		return Response{Meta: &MetaResult{}}, nil
	case stmt.Rollback != nil:
		e.cache.Rollback()
		return Response{Meta: &MetaResult{}}, nil
	default:
		return Response{}, fmt.Errorf("engine: unrecognized statement")
	}
}

func (e *Engine) showTables(ctx context.Context) (Response, error) {
	names, err := e.reg.ListTables(ctx)
	if err != nil {
		return Response{}, err
	}
	rows := make([][]types.Value, len(names))
	for i, name := range names {
		rows[i] = []types.Value{types.NewText(name)}
	}
	return Response{Rows: &RowsResult{
		Columns: []Column{{Name: "table_name", Type: types.Text}},
		Rows:    rows,
	}}, nil
}

func (e *Engine) describe(ctx context.Context, table string) (Response, error) {
	s, err := e.reg.GetSchema(ctx, table)
	if err != nil {
		return Response{}, err
	}
	rows := make([][]types.Value, len(s.Columns))
	for i, c := range s.Columns {
		rows[i] = []types.Value{types.NewText(c.Name), types.NewText(c.Type.String())}
	}
	return Response{Rows: &RowsResult{
		Columns: []Column{{Name: "column_name", Type: types.Text}, {Name: "column_datatype", Type: types.Text}},
		Rows:    rows,
	}}, nil
}

func (e *Engine) createTable(ctx context.Context, stmt *statement.CreateTableStmt) (Response, error) {
	cols := make([]schema.Column, len(stmt.Columns))
	var indexed []int
	for i, c := range stmt.Columns {
		cols[i] = schema.Column{Name: c.Name, Type: columnDataType(c.Type)}
		if c.Indexed {
			indexed = append(indexed, i)
		}
	}
	if _, err := e.reg.CreateTable(ctx, stmt.Table, cols, indexed); err != nil {
		return Response{}, err
	}
	return Response{Meta: &MetaResult{}}, nil
}

func columnDataType(t statement.ColumnType) types.DataType {
	switch t {
	case statement.TypeReal:
		return types.Real
	case statement.TypeText:
		return types.Text
	default:
		return types.Integer
	}
}

func (e *Engine) insertInto(ctx context.Context, stmt *statement.InsertIntoStmt) (Response, error) {
	s, err := e.reg.GetSchema(ctx, stmt.Table)
	if err != nil {
		return Response{}, err
	}
	rows := make([][]types.Value, len(stmt.Rows))
	for i, lits := range stmt.Rows {
		row := make([]types.Value, len(lits))
		for j, lit := range lits {
			row[j] = literalValue(lit)
		}
		rows[i] = row
	}
	affected, err := segment.InsertRows(ctx, e.cache, e.reg, s, stmt.Columns, rows)
	if err != nil {
		return Response{}, err
	}
	return Response{Meta: &MetaResult{AffectedRows: affected}}, nil
}

func literalValue(lit statement.Literal) types.Value {
	switch lit.Kind {
	case statement.LiteralInteger:
		return types.NewInteger(lit.Int)
	case statement.LiteralReal:
		return types.NewReal(lit.Real)
	case statement.LiteralText:
		return types.NewText(lit.Text)
	default:
		return types.Null
	}
}

func (e *Engine) selectRows(ctx context.Context, stmt *statement.SelectStmt) (Response, error) {
	plan, phys, err := e.plan(ctx, stmt)
	if err != nil {
		return Response{}, err
	}
	return e.drain(ctx, plan, phys)
}

func (e *Engine) explain(ctx context.Context, stmt *statement.SelectStmt) (Response, error) {
	_, phys, err := e.plan(ctx, stmt)
	if err != nil {
		return Response{}, err
	}
	return Response{Rows: &RowsResult{
		Columns: []Column{{Name: "plan", Type: types.Text}},
		Rows:    [][]types.Value{{types.NewText(planner.Explain(phys))}},
	}}, nil
}

func (e *Engine) plan(ctx context.Context, stmt *statement.SelectStmt) (*planner.LogicalPlan, planner.Node, error) {
	plan, err := planner.BuildLogical(ctx, e.reg, stmt)
	if err != nil {
		return nil, planner.Node{}, err
	}
	phys, err := planner.BuildPhysical(plan)
	if err != nil {
		return nil, planner.Node{}, err
	}
	return plan, phys, nil
}

func (e *Engine) drain(ctx context.Context, plan *planner.LogicalPlan, phys planner.Node) (Response, error) {
	it := exec.Build(phys, e.cache)
	// Reset returns any block an iterator still holds on loan to the cache.
	defer it.Reset()
	var rows [][]types.Value
	for {
		row, ok, err := it.Next(ctx)
		if err != nil {
			return Response{}, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	columns := make([]Column, len(plan.Columns))
	for i, c := range plan.Columns {
		columns[i] = Column{Name: c.Name, Type: c.Type}
	}
	return Response{Rows: &RowsResult{Columns: columns, Rows: rows}}, nil
}

// singleTableConstraints resolves a WHERE clause against exactly one
// table (no FROM/JOIN machinery), for UPDATE/DELETE's row filter.
func singleTableConstraints(ctx context.Context, reg *schema.Registry, table string, where *statement.Predicate) (*schema.Schema, []planner.Constraint, error) {
	sel := &statement.SelectStmt{
		Targets: []statement.Target{{Wildcard: true}},
		From:    &statement.TableRef{Name: table},
		Where:   where,
	}
	plan, err := planner.BuildLogical(ctx, reg, sel)
	if err != nil {
		return nil, nil, err
	}
	return plan.Tables[0].Schema, plan.Constraints, nil
}

func constraintsMatch(row []types.Value, constraints []planner.Constraint) bool {
	for _, c := range constraints {
		if c.Kind == planner.EqColumn {
			if !row[c.Left].Equal(row[c.Right]) {
				return false
			}
		} else if c.Kind == planner.LeConst {
			if !row[c.Left].LessEqual(c.Value) {
				return false
			}
		} else if !row[c.Left].Equal(c.Value) {
			return false
		}
	}
	return true
}

func (e *Engine) update(ctx context.Context, stmt *statement.UpdateStmt) (Response, error) {
	s, constraints, err := singleTableConstraints(ctx, e.reg, stmt.Table, stmt.Where)
	if err != nil {
		return Response{}, err
	}

	type assign struct {
		index int
		value types.Value
	}
	assigns := make([]assign, len(stmt.Set))
	for i, a := range stmt.Set {
		idx := s.ColumnIndex(a.Column.Column)
		if idx < 0 {
			return Response{}, fmt.Errorf("engine: update: %w", planner.ErrColumnNotFound)
		}
		for _, ix := range s.Indices {
			if ix.ColumnIndex == idx {
				return Response{}, ErrIndexedColumnUpdate
			}
		}
		assigns[i] = assign{index: idx, value: literalValue(a.Value)}
	}

	affected, err := segment.MutateRows(ctx, e.cache, s, func(row []types.Value) (segment.MutateAction, []types.Value, error) {
		if !constraintsMatch(row, constraints) {
			return segment.MutateSkip, nil, nil
		}
		out := append([]types.Value(nil), row...)
		for _, a := range assigns {
			out[a.index] = a.value
		}
		return segment.MutateUpdate, out, nil
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Meta: &MetaResult{AffectedRows: affected}}, nil
}

func (e *Engine) deleteFrom(ctx context.Context, stmt *statement.DeleteFromStmt) (Response, error) {
	s, constraints, err := singleTableConstraints(ctx, e.reg, stmt.Table, stmt.Where)
	if err != nil {
		return Response{}, err
	}
	if len(s.Indices) > 0 {
		return Response{}, ErrDeleteOnIndexedTable
	}

	affected, err := segment.MutateRows(ctx, e.cache, s, func(row []types.Value) (segment.MutateAction, []types.Value, error) {
		if !constraintsMatch(row, constraints) {
			return segment.MutateSkip, nil, nil
		}
		return segment.MutateDelete, nil, nil
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Meta: &MetaResult{AffectedRows: affected}}, nil
}

func (e *Engine) flushTables(ctx context.Context) (Response, error) {
	if e.cache.InTransaction() {
		return Response{Meta: &MetaResult{}}, nil
	}
	if err := e.cache.Submit(ctx, nil); err != nil {
		return Response{}, err
	}
	e.cache.EvictAll()
	return Response{Meta: &MetaResult{}}, nil
}
