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

package exec

import (
	"context"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/planner"
	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/segment"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

func setup(t *testing.T) (*cache.Cache, *schema.Registry) {
	t.Helper()
	store := storage.New(memblob.New())
	c, err := cache.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return c, schema.NewRegistry(c)
}

func drain(t *testing.T, it Iterator) [][]types.Value {
	t.Helper()
	var rows [][]types.Value
	for {
		row, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestScanYieldsInsertedRows(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	s, err := reg.CreateTable(ctx, "t", []schema.Column{{Name: "id", Type: types.Integer}, {Name: "name", Type: types.Text}}, nil)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]types.Value{
		{types.NewInteger(1), types.NewText("a")},
		{types.NewInteger(2), types.NewText("b")},
		{types.NewInteger(3), types.NewText("c")},
	}
	n, err := segment.InsertRows(ctx, c, reg, s, nil, rows)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 3 {
		t.Fatalf("affected = %d, want 3", n)
	}

	node := planner.Node{Scan: &planner.ScanNode{Table: s, RowSize: segment.RowWidth(s), FirstBlock: s.DataBlock}}
	it := Build(node, c)
	got := drain(t, it)
	if len(got) != 3 {
		t.Fatalf("scanned %d rows, want 3", len(got))
	}
	if got[1][1].Text() != "b" {
		t.Fatalf("row 1 name = %q, want b", got[1][1].Text())
	}
}

func TestBTreeExactFindsInsertedRow(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	s, err := reg.CreateTable(ctx, "t", []schema.Column{{Name: "id", Type: types.Integer}}, []int{0})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]types.Value{{types.NewInteger(7)}, {types.NewInteger(8)}}
	if _, err := segment.InsertRows(ctx, c, reg, s, nil, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	reloaded, err := reg.GetSchema(ctx, "t")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}

	node := planner.Node{BTreeExact: &planner.BTreeExactNode{Table: reloaded, Root: reloaded.Indices[0].RootBlock, Key: 8}}
	it := Build(node, c)
	got := drain(t, it)
	if len(got) != 1 || got[0][0].Integer() != 8 {
		t.Fatalf("got %+v, want one row with id=8", got)
	}
}

func TestBTreeRangeFindsInsertedRowsWithinBound(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	s, err := reg.CreateTable(ctx, "t", []schema.Column{{Name: "id", Type: types.Integer}}, []int{0})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(5)}, {types.NewInteger(9)}}
	if _, err := segment.InsertRows(ctx, c, reg, s, nil, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	reloaded, err := reg.GetSchema(ctx, "t")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}

	node := planner.Node{BTreeRange: &planner.BTreeRangeNode{
		Table: reloaded,
		Root:  reloaded.Indices[0].RootBlock,
		Lo:    planner.Bound{Kind: planner.Unbounded},
		Hi:    planner.Bound{Kind: planner.Included, Value: 5},
	}}
	got := drain(t, Build(node, c))
	if len(got) != 2 {
		t.Fatalf("got %+v, want two rows with id<=5", got)
	}
	if got[0][0].Integer() != 1 || got[1][0].Integer() != 5 {
		t.Fatalf("got %+v, want ids 1 then 5", got)
	}
}

func TestSelectionFiltersByConstraint(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	s, err := reg.CreateTable(ctx, "t", []schema.Column{{Name: "id", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for i := int64(0); i < 5; i++ {
		if _, err := segment.InsertRows(ctx, c, reg, s, nil, [][]types.Value{{types.NewInteger(i)}}); err != nil {
			t.Fatalf("InsertRows: %v", err)
		}
	}

	scan := planner.Node{Scan: &planner.ScanNode{Table: s, RowSize: segment.RowWidth(s), FirstBlock: s.DataBlock}}
	sel := planner.Node{Selection: &planner.SelectionNode{
		Inner:       scan,
		Constraints: []planner.Constraint{{Kind: planner.EqConst, Left: 0, Value: types.NewInteger(3)}},
	}}
	got := drain(t, Build(sel, c))
	if len(got) != 1 || got[0][0].Integer() != 3 {
		t.Fatalf("got %+v, want one row with id=3", got)
	}
}

func TestSelectionFiltersByEqColumnConstraint(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	a, err := reg.CreateTable(ctx, "a", []schema.Column{{Name: "k", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable a: %v", err)
	}
	b, err := reg.CreateTable(ctx, "b", []schema.Column{{Name: "k", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable b: %v", err)
	}
	segment.InsertRows(ctx, c, reg, a, nil, [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}})
	segment.InsertRows(ctx, c, reg, b, nil, [][]types.Value{{types.NewInteger(2)}, {types.NewInteger(3)}})

	scanA := planner.Node{Scan: &planner.ScanNode{Table: a, RowSize: segment.RowWidth(a), FirstBlock: a.DataBlock}}
	scanB := planner.Node{Scan: &planner.ScanNode{Table: b, RowSize: segment.RowWidth(b), FirstBlock: b.DataBlock}}
	cp := planner.Node{CartesianProduct: &planner.CartesianProductNode{Children: []planner.Node{scanA, scanB}}}
	sel := planner.Node{Selection: &planner.SelectionNode{
		Inner:       cp,
		Constraints: []planner.Constraint{{Kind: planner.EqColumn, Left: 0, Right: 1}},
	}}
	got := drain(t, Build(sel, c))
	if len(got) != 1 || got[0][0].Integer() != 2 || got[0][1].Integer() != 2 {
		t.Fatalf("got %+v, want one matched pair (2, 2)", got)
	}
}

func TestLimitCapsRows(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	s, err := reg.CreateTable(ctx, "t", []schema.Column{{Name: "id", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for i := int64(0); i < 10; i++ {
		segment.InsertRows(ctx, c, reg, s, nil, [][]types.Value{{types.NewInteger(i)}})
	}
	scan := planner.Node{Scan: &planner.ScanNode{Table: s, RowSize: segment.RowWidth(s), FirstBlock: s.DataBlock}}
	lim := planner.Node{Limit: &planner.LimitNode{Inner: scan, N: 4}}
	got := drain(t, Build(lim, c))
	if len(got) != 4 {
		t.Fatalf("got %d rows, want 4", len(got))
	}
}

func TestCartesianProductOverTwoTables(t *testing.T) {
	ctx := context.Background()
	c, reg := setup(t)
	a, err := reg.CreateTable(ctx, "a", []schema.Column{{Name: "id", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable a: %v", err)
	}
	b, err := reg.CreateTable(ctx, "b", []schema.Column{{Name: "id", Type: types.Integer}}, nil)
	if err != nil {
		t.Fatalf("CreateTable b: %v", err)
	}
	segment.InsertRows(ctx, c, reg, a, nil, [][]types.Value{{types.NewInteger(1)}, {types.NewInteger(2)}})
	segment.InsertRows(ctx, c, reg, b, nil, [][]types.Value{{types.NewInteger(10)}, {types.NewInteger(20)}, {types.NewInteger(30)}})

	scanA := planner.Node{Scan: &planner.ScanNode{Table: a, RowSize: segment.RowWidth(a), FirstBlock: a.DataBlock}}
	scanB := planner.Node{Scan: &planner.ScanNode{Table: b, RowSize: segment.RowWidth(b), FirstBlock: b.DataBlock}}
	cp := planner.Node{CartesianProduct: &planner.CartesianProductNode{Children: []planner.Node{scanA, scanB}}}
	got := drain(t, Build(cp, c))
	if len(got) != 6 {
		t.Fatalf("got %d rows, want 6 (2x3)", len(got))
	}
}

func TestCartesianProductEmptyYieldsOneEmptyRow(t *testing.T) {
	cp := planner.Node{CartesianProduct: &planner.CartesianProductNode{}}
	got := drain(t, Build(cp, nil))
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("got %+v, want one empty row", got)
	}
}
