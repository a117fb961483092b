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
	"fmt"
	"strings"

	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// Node is the sum type of every physical-plan node the executor knows
// how to drive. Exactly one field is non-nil.
type Node struct {
	Scan             *ScanNode
	BTreeExact       *BTreeExactNode
	BTreeRange       *BTreeRangeNode
	CartesianProduct *CartesianProductNode
	Selection        *SelectionNode
	Projection       *ProjectionNode
	Limit            *LimitNode
}

// ScanNode walks a table's entire data chain from its first block.
type ScanNode struct {
	Table      *schema.Schema
	RowSize    int
	FirstBlock storage.BlockIndex
}

// BTreeExactNode probes an index for a single key, then materializes the
// matching row (if any) by reading the referenced data block.
type BTreeExactNode struct {
	Table *schema.Schema
	Root  storage.BlockIndex
	Key   int64
}

// BoundKind distinguishes an open, closed or unbounded endpoint of a
// BTreeRangeNode's key range, mirroring btree.BoundKind without this
// package importing internal/btree.
type BoundKind int

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one endpoint of a BTreeRangeNode's key range.
type Bound struct {
	Kind  BoundKind
	Value int64
}

// BTreeRangeNode probes an index for every key within [Lo, Hi], then
// materializes each matching row by reading its referenced data block.
// Analogous to BTreeExactNode for a range instead of a single key.
type BTreeRangeNode struct {
	Table *schema.Schema
	Root  storage.BlockIndex
	Lo    Bound
	Hi    Bound
}

// CartesianProductNode combines the rows of its children left to right.
// An empty Children list yields a single empty row once.
type CartesianProductNode struct {
	Children []Node
}

// SelectionNode filters its inner plan's rows by a set of equality and
// "<=" constraints over the concatenated row.
type SelectionNode struct {
	Inner       Node
	Constraints []Constraint
}

// ProjectionNode maps the inner plan's row (plus constants) to the
// output row.
type ProjectionNode struct {
	Inner Node
	Items []ProjItem
}

// LimitNode caps the number of rows pulled from its inner plan.
type LimitNode struct {
	Inner Node
	N     int64
}

// BuildPhysical lowers a LogicalPlan into a Node tree: per-table index
// selection, cartesian product across tables, a selection wrapping any
// residual constraints, a projection producing the output row, and an
// optional limit.
func BuildPhysical(plan *LogicalPlan) (Node, error) {
	if plan.ConstantOnly {
		inner := Node{CartesianProduct: &CartesianProductNode{}}
		return wrapProjectionAndLimit(inner, plan), nil
	}

	residual := append([]Constraint(nil), plan.Constraints...)
	var children []Node
	for _, tb := range plan.Tables {
		node, remaining := planTable(tb, residual)
		residual = remaining
		children = append(children, node)
	}

	inner := Node{CartesianProduct: &CartesianProductNode{Children: children}}
	if len(residual) > 0 {
		inner = Node{Selection: &SelectionNode{Inner: inner, Constraints: residual}}
	}
	return wrapProjectionAndLimit(inner, plan), nil
}

// planTable chooses a BTreeExact probe when an EqConst constraint on this
// table's indexed column survives, consuming that constraint; else a
// BTreeRange probe when a LeConst constraint on an indexed column
// survives (lowered to an upper-bounded range, since the SQL front end
// has no >= or < operator to supply a lower bound); otherwise emits a full
// Scan. It returns the remaining (unconsumed) constraints.
func planTable(tb TableBinding, constraints []Constraint) (Node, []Constraint) {
	if node, remaining, ok := probeIndex(tb, constraints, EqConst); ok {
		return node, remaining
	}
	if node, remaining, ok := probeIndex(tb, constraints, LeConst); ok {
		return node, remaining
	}
	node := Node{Scan: &ScanNode{
		Table:      tb.Schema,
		RowSize:    rowSizeOf(tb.Schema),
		FirstBlock: tb.Schema.DataBlock,
	}}
	return node, constraints
}

// probeIndex looks for the first constraint of kind on a column tb
// indexes, and lowers it to a BTreeExact (kind == EqConst) or BTreeRange
// (kind == LeConst) node, consuming that constraint.
func probeIndex(tb TableBinding, constraints []Constraint, kind ConstraintKind) (Node, []Constraint, bool) {
	for ci := range constraints {
		c := constraints[ci]
		if c.Kind != kind {
			continue
		}
		colOffset := c.Left - tb.Offset
		if colOffset < 0 || colOffset >= len(tb.Schema.Columns) {
			continue
		}
		for _, idx := range tb.Schema.Indices {
			if idx.ColumnIndex != colOffset || idx.RootBlock == 0 || c.Value.Kind() != types.KindInteger {
				continue
			}
			remaining := append(append([]Constraint(nil), constraints[:ci]...), constraints[ci+1:]...)
			switch kind {
			case EqConst:
				return Node{BTreeExact: &BTreeExactNode{Table: tb.Schema, Root: idx.RootBlock, Key: c.Value.Integer()}}, remaining, true
			case LeConst:
				return Node{BTreeRange: &BTreeRangeNode{
					Table: tb.Schema,
					Root:  idx.RootBlock,
					Lo:    Bound{Kind: Unbounded},
					Hi:    Bound{Kind: Included, Value: c.Value.Integer()},
				}}, remaining, true
			}
		}
	}
	return Node{}, constraints, false
}

func wrapProjectionAndLimit(inner Node, plan *LogicalPlan) Node {
	node := Node{Projection: &ProjectionNode{Inner: inner, Items: plan.Projection}}
	if plan.Limit != nil {
		node = Node{Limit: &LimitNode{Inner: node, N: *plan.Limit}}
	}
	return node
}

// rowSizeOf recomputes the fixed slot width from declared column widths
// directly, the same sum record.RowWidth computes.
func rowSizeOf(s *schema.Schema) int {
	width := 1
	for _, c := range s.Columns {
		switch c.Type {
		case types.Integer, types.Real:
			width += 9
		case types.Text:
			width += 13
		}
	}
	return width
}

// Explain renders the physical plan tree in the single-line form EXPLAIN
// returns as a single-row, single-column Response.
func Explain(n Node) string {
	var sb strings.Builder
	explainNode(&sb, n, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func explainNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case n.Scan != nil:
		fmt.Fprintf(sb, "%sScan(table=%s, row_size=%d, first_block=%d)\n", indent, n.Scan.Table.Name, n.Scan.RowSize, n.Scan.FirstBlock)
	case n.BTreeExact != nil:
		fmt.Fprintf(sb, "%sBTreeExact(table=%s, root=%d, key=%d)\n", indent, n.BTreeExact.Table.Name, n.BTreeExact.Root, n.BTreeExact.Key)
	case n.BTreeRange != nil:
		fmt.Fprintf(sb, "%sBTreeRange(table=%s, root=%d, hi=%d)\n", indent, n.BTreeRange.Table.Name, n.BTreeRange.Root, n.BTreeRange.Hi.Value)
	case n.CartesianProduct != nil:
		fmt.Fprintf(sb, "%sCartesianProduct\n", indent)
		for _, c := range n.CartesianProduct.Children {
			explainNode(sb, c, depth+1)
		}
	case n.Selection != nil:
		fmt.Fprintf(sb, "%sSelection(constraints=%d)\n", indent, len(n.Selection.Constraints))
		explainNode(sb, n.Selection.Inner, depth+1)
	case n.Projection != nil:
		fmt.Fprintf(sb, "%sProjection(columns=%d)\n", indent, len(n.Projection.Items))
		explainNode(sb, n.Projection.Inner, depth+1)
	case n.Limit != nil:
		fmt.Fprintf(sb, "%sLimit(%d)\n", indent, n.Limit.N)
		explainNode(sb, n.Limit.Inner, depth+1)
	}
}
