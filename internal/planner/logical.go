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

// Package planner turns a parsed SELECT into a logical plan (column
// resolution, constraint normalization) and then a physical plan (index
// selection, cartesian product, selection, projection, limit). The
// layered plan-then-execute split follows perkeep's pkg/blobserver
// enumerate/search helpers.
package planner

import (
	"context"
	"fmt"

	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/statement"
	"github.com/NKID00/aidb/internal/types"
)

// ConstraintKind distinguishes a column-column equality, a
// column-literal equality and a column-literal "<=".
type ConstraintKind int

const (
	EqColumn ConstraintKind = iota
	EqConst
	// LeConst is a column-literal "<=" constraint. planTable may lower it
	// to a BTreeRange upper bound when the column is indexed; otherwise
	// it is enforced as a residual filter by selectionIter.
	LeConst
)

// Constraint is a normalized equality or "<=" predicate over the concatenated
// row produced by joining every referenced table in FROM/JOIN order.
type Constraint struct {
	Kind  ConstraintKind
	Left  int // row index
	Right int // row index, valid when Kind == EqColumn
	Value types.Value
}

// TableBinding is one table participating in the query, with its
// concatenated-row column offset.
type TableBinding struct {
	Alias  string
	Schema *schema.Schema
	Offset int
}

// Column describes one response column's name and declared type.
type Column struct {
	Name string
	Type types.DataType
}

// ProjItem is one projected output column: either a reference into the
// concatenated input row, or a constant value.
type ProjItem struct {
	FromRow  bool
	RowIndex int
	Constant types.Value
}

// LogicalPlan is the result of Stage 1: resolved tables, response header,
// normalized constraints, and the optional LIMIT.
type LogicalPlan struct {
	Tables       []TableBinding
	Columns      []Column
	Projection   []ProjItem
	Constraints  []Constraint
	Limit        *int64
	ConstantOnly bool
}

// ErrTableRequired is returned when WHERE/JOIN appear without a FROM
// table, or a bare column is targeted with no table to resolve it
// against.
var ErrTableRequired = fmt.Errorf("table required")

// ErrColumnNotFound / ErrAmbiguousColumn are returned by bare-name
// column resolution.
var (
	ErrColumnNotFound   = fmt.Errorf("column not found")
	ErrAmbiguousColumn  = fmt.Errorf("ambiguous column")
	ErrDatatypeMismatch = fmt.Errorf("datatype mismatch")
	ErrWhereAlwaysFalse = fmt.Errorf("where clause is always false")
)

// BuildLogical resolves sel against reg's schema chain into a LogicalPlan.
func BuildLogical(ctx context.Context, reg *schema.Registry, sel *statement.SelectStmt) (*LogicalPlan, error) {
	if sel.From == nil {
		if len(sel.Joins) > 0 || sel.Where != nil {
			return nil, ErrTableRequired
		}
		return buildConstantOnly(sel)
	}

	var tables []TableBinding
	offset := 0

	add := func(ref statement.TableRef) error {
		s, err := reg.GetSchema(ctx, ref.Name)
		if err != nil {
			return err
		}
		alias := ref.Alias
		if alias == "" {
			alias = ref.Name
		}
		tables = append(tables, TableBinding{Alias: alias, Schema: s, Offset: offset})
		offset += len(s.Columns)
		return nil
	}
	if err := add(*sel.From); err != nil {
		return nil, err
	}
	for _, j := range sel.Joins {
		if err := add(j.Table); err != nil {
			return nil, err
		}
	}

	resolve := func(ref statement.ColumnRef) (int, types.DataType, error) {
		return resolveColumn(tables, ref)
	}

	var columns []Column
	var proj []ProjItem
	for _, tgt := range sel.Targets {
		switch {
		case tgt.Wildcard:
			from := tables[0]
			for i, c := range from.Schema.Columns {
				columns = append(columns, Column{Name: c.Name, Type: c.Type})
				proj = append(proj, ProjItem{FromRow: true, RowIndex: from.Offset + i})
			}
		case tgt.Column != nil:
			idx, dt, err := resolve(*tgt.Column)
			if err != nil {
				return nil, err
			}
			name := tgt.Alias
			if name == "" {
				name = tgt.Column.Column
			}
			columns = append(columns, Column{Name: name, Type: dt})
			proj = append(proj, ProjItem{FromRow: true, RowIndex: idx})
		case tgt.Literal != nil:
			v, dt := literalValue(*tgt.Literal)
			name := tgt.Alias
			columns = append(columns, Column{Name: name, Type: dt})
			proj = append(proj, ProjItem{Constant: v})
		default: // session variable
			v, dt := variableValue(tgt.Variable)
			name := tgt.Alias
			if name == "" {
				name = tgt.Variable
			}
			columns = append(columns, Column{Name: name, Type: dt})
			proj = append(proj, ProjItem{Constant: v})
		}
	}

	var constraints []Constraint
	for _, j := range sel.Joins {
		li, lt, err := resolve(j.Left)
		if err != nil {
			return nil, err
		}
		ri, rt, err := resolve(j.Right)
		if err != nil {
			return nil, err
		}
		if lt != rt {
			return nil, ErrDatatypeMismatch
		}
		constraints = append(constraints, Constraint{Kind: EqColumn, Left: li, Right: ri})
	}

	if sel.Where != nil {
		whereConstraints, alwaysFalse, err := normalizeWhere(sel.Where, tables)
		if err != nil {
			return nil, err
		}
		if alwaysFalse {
			return nil, ErrWhereAlwaysFalse
		}
		constraints = append(constraints, whereConstraints...)
	}

	return &LogicalPlan{
		Tables:      tables,
		Columns:     columns,
		Projection:  proj,
		Constraints: constraints,
		Limit:       sel.Limit,
	}, nil
}

func buildConstantOnly(sel *statement.SelectStmt) (*LogicalPlan, error) {
	var columns []Column
	var proj []ProjItem
	for _, tgt := range sel.Targets {
		switch {
		case tgt.Wildcard, tgt.Column != nil:
			return nil, ErrTableRequired
		case tgt.Literal != nil:
			v, dt := literalValue(*tgt.Literal)
			columns = append(columns, Column{Name: tgt.Alias, Type: dt})
			proj = append(proj, ProjItem{Constant: v})
		default:
			v, dt := variableValue(tgt.Variable)
			name := tgt.Alias
			if name == "" {
				name = tgt.Variable
			}
			columns = append(columns, Column{Name: name, Type: dt})
			proj = append(proj, ProjItem{Constant: v})
		}
	}
	return &LogicalPlan{Columns: columns, Projection: proj, Limit: sel.Limit, ConstantOnly: true}, nil
}

// resolveColumn resolves ref against tables: a qualified reference must
// name a table present in the FROM/JOIN list; a bare reference must
// match exactly one column across every referenced table.
func resolveColumn(tables []TableBinding, ref statement.ColumnRef) (int, types.DataType, error) {
	if ref.Table != "" {
		for _, tb := range tables {
			if tb.Alias == ref.Table {
				ci := tb.Schema.ColumnIndex(ref.Column)
				if ci < 0 {
					return 0, 0, ErrColumnNotFound
				}
				return tb.Offset + ci, tb.Schema.Columns[ci].Type, nil
			}
		}
		return 0, 0, ErrColumnNotFound
	}
	var matchIdx int
	var matchType types.DataType
	count := 0
	for _, tb := range tables {
		if ci := tb.Schema.ColumnIndex(ref.Column); ci >= 0 {
			matchIdx = tb.Offset + ci
			matchType = tb.Schema.Columns[ci].Type
			count++
		}
	}
	switch count {
	case 0:
		return 0, 0, ErrColumnNotFound
	case 1:
		return matchIdx, matchType, nil
	default:
		return 0, 0, ErrAmbiguousColumn
	}
}

func literalValue(lit statement.Literal) (types.Value, types.DataType) {
	switch lit.Kind {
	case statement.LiteralInteger:
		return types.NewInteger(lit.Int), types.Integer
	case statement.LiteralReal:
		return types.NewReal(lit.Real), types.Real
	case statement.LiteralText:
		return types.NewText(lit.Text), types.Text
	default:
		return types.Null, types.Text
	}
}

func variableValue(name string) (types.Value, types.DataType) {
	if name == "@@version_comment" {
		return types.NewText("aidb"), types.Text
	}
	return types.Null, types.Text
}

// normalizeWhere flattens a top-level conjunction of equality and <=
// relations into Constraints. Anything beyond a flat AND of Eq/Le
// relations (OR, NOT, LIKE, or a nested AND-of-OR) is rejected as
// unsupported: this core's WHERE support is limited to equality and
// upper-bound pushdown, per its non-goal of full SQL semantics. A Le
// relation is only supported column-literal (column <= column carries
// no index-pushdown meaning here), matching what the SQL front end can
// parse in the first place (it has no >= or < operator).
func normalizeWhere(pred *statement.Predicate, tables []TableBinding) ([]Constraint, bool, error) {
	leaves, err := flattenAnd(pred)
	if err != nil {
		return nil, false, err
	}
	var out []Constraint
	for _, rel := range leaves {
		switch rel.Op {
		case statement.OpEq:
			li, lt, err := resolveColumn(tables, rel.Left)
			if err != nil {
				return nil, false, err
			}
			if rel.Right != nil {
				ri, rt, err := resolveColumn(tables, *rel.Right)
				if err != nil {
					return nil, false, err
				}
				if lt != rt {
					return nil, false, ErrDatatypeMismatch
				}
				out = append(out, Constraint{Kind: EqColumn, Left: li, Right: ri})
				continue
			}
			v, dt := literalValue(*rel.Literal)
			if dt != lt {
				return nil, false, ErrDatatypeMismatch
			}
			out = append(out, Constraint{Kind: EqConst, Left: li, Value: v})
		case statement.OpLe:
			if rel.Right != nil {
				return nil, false, fmt.Errorf("planner: unsupported predicate operator")
			}
			li, lt, err := resolveColumn(tables, rel.Left)
			if err != nil {
				return nil, false, err
			}
			v, dt := literalValue(*rel.Literal)
			if dt != lt {
				return nil, false, ErrDatatypeMismatch
			}
			out = append(out, Constraint{Kind: LeConst, Left: li, Value: v})
		default:
			return nil, false, fmt.Errorf("planner: unsupported predicate operator")
		}
	}
	return out, false, nil
}

func flattenAnd(pred *statement.Predicate) ([]statement.Relation, error) {
	if pred.Rel != nil {
		return []statement.Relation{*pred.Rel}, nil
	}
	if len(pred.And) > 0 {
		var out []statement.Relation
		for i := range pred.And {
			leaves, err := flattenAnd(&pred.And[i])
			if err != nil {
				return nil, err
			}
			out = append(out, leaves...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("planner: unsupported predicate shape")
}
