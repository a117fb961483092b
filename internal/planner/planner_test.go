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

package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/statement"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

func openRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	store := storage.New(memblob.New())
	c, err := cache.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return schema.NewRegistry(c)
}

func mustCreate(t *testing.T, reg *schema.Registry, name string, cols []schema.Column, idx []int) {
	t.Helper()
	if _, err := reg.CreateTable(context.Background(), name, cols, idx); err != nil {
		t.Fatalf("CreateTable(%s): %v", name, err)
	}
}

func TestConstantOnlyPlan(t *testing.T) {
	reg := openRegistry(t)
	sel := &statement.SelectStmt{Targets: []statement.Target{{Variable: "@@version_comment"}}}
	plan, err := BuildLogical(context.Background(), reg, sel)
	if err != nil {
		t.Fatalf("BuildLogical: %v", err)
	}
	if !plan.ConstantOnly {
		t.Fatalf("expected ConstantOnly plan")
	}
	if plan.Projection[0].Constant.Text() != "aidb" {
		t.Fatalf("expected version comment 'aidb', got %+v", plan.Projection[0])
	}
}

func TestConstantOnlyWithWhereIsError(t *testing.T) {
	reg := openRegistry(t)
	sel := &statement.SelectStmt{
		Targets: []statement.Target{{Literal: &statement.Literal{Kind: statement.LiteralInteger, Int: 1}}},
		Where:   &statement.Predicate{Rel: &statement.Relation{Op: statement.OpEq, Left: statement.ColumnRef{Column: "a"}, Literal: &statement.Literal{Kind: statement.LiteralInteger, Int: 1}}},
	}
	if _, err := BuildLogical(context.Background(), reg, sel); !errors.Is(err, ErrTableRequired) {
		t.Fatalf("expected ErrTableRequired, got %v", err)
	}
}

func TestResolveWildcardAndBTreeSelection(t *testing.T) {
	reg := openRegistry(t)
	mustCreate(t, reg, "users", []schema.Column{{Name: "id", Type: types.Integer}, {Name: "name", Type: types.Text}}, []int{0})

	sel := &statement.SelectStmt{
		Targets: []statement.Target{{Wildcard: true}},
		From:    &statement.TableRef{Name: "users"},
		Where: &statement.Predicate{Rel: &statement.Relation{
			Op:      statement.OpEq,
			Left:    statement.ColumnRef{Column: "id"},
			Literal: &statement.Literal{Kind: statement.LiteralInteger, Int: 5},
		}},
	}
	plan, err := BuildLogical(context.Background(), reg, sel)
	if err != nil {
		t.Fatalf("BuildLogical: %v", err)
	}
	if len(plan.Columns) != 2 {
		t.Fatalf("expected 2 projected columns, got %d", len(plan.Columns))
	}
	if len(plan.Constraints) != 1 || plan.Constraints[0].Kind != EqConst {
		t.Fatalf("expected one EqConst constraint, got %+v", plan.Constraints)
	}

	phys, err := BuildPhysical(plan)
	if err != nil {
		t.Fatalf("BuildPhysical: %v", err)
	}
	// id is indexed, but with RootBlock==0 before any insert planTable
	// falls back to Scan and leaves the id constraint unconsumed, so the
	// plan is Projection -> Selection -> CartesianProduct -> Scan.
	if phys.Projection == nil {
		t.Fatalf("expected top-level Projection, got %+v", phys)
	}
	inner := phys.Projection.Inner
	if inner.Selection == nil || len(inner.Selection.Constraints) != 1 || inner.Selection.Constraints[0].Kind != EqConst {
		t.Fatalf("expected a Selection carrying the unconsumed EqConst constraint, got %+v", inner)
	}
	inner = inner.Selection.Inner
	if inner.CartesianProduct == nil || len(inner.CartesianProduct.Children) != 1 {
		t.Fatalf("expected single-table cartesian product, got %+v", inner)
	}
	if inner.CartesianProduct.Children[0].Scan == nil {
		t.Fatalf("expected Scan fallback since index has no root yet, got %+v", inner.CartesianProduct.Children[0])
	}
}

func TestAmbiguousColumnAcrossJoin(t *testing.T) {
	reg := openRegistry(t)
	mustCreate(t, reg, "a", []schema.Column{{Name: "id", Type: types.Integer}}, nil)
	mustCreate(t, reg, "b", []schema.Column{{Name: "id", Type: types.Integer}}, nil)

	sel := &statement.SelectStmt{
		Targets: []statement.Target{{Column: &statement.ColumnRef{Column: "id"}}},
		From:    &statement.TableRef{Name: "a"},
		Joins:   []statement.Join{{Table: statement.TableRef{Name: "b"}, Left: statement.ColumnRef{Table: "a", Column: "id"}, Right: statement.ColumnRef{Table: "b", Column: "id"}}},
	}
	if _, err := BuildLogical(context.Background(), reg, sel); !errors.Is(err, ErrAmbiguousColumn) {
		t.Fatalf("expected ErrAmbiguousColumn, got %v", err)
	}
}

func TestDatatypeMismatchInWhere(t *testing.T) {
	reg := openRegistry(t)
	mustCreate(t, reg, "t", []schema.Column{{Name: "id", Type: types.Integer}}, nil)

	sel := &statement.SelectStmt{
		Targets: []statement.Target{{Wildcard: true}},
		From:    &statement.TableRef{Name: "t"},
		Where: &statement.Predicate{Rel: &statement.Relation{
			Op:      statement.OpEq,
			Left:    statement.ColumnRef{Column: "id"},
			Literal: &statement.Literal{Kind: statement.LiteralText, Text: "x"},
		}},
	}
	if _, err := BuildLogical(context.Background(), reg, sel); !errors.Is(err, ErrDatatypeMismatch) {
		t.Fatalf("expected ErrDatatypeMismatch, got %v", err)
	}
}
