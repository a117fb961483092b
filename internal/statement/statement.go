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

// Package statement defines the parsed-statement AST the dispatcher
// consumes: every SQL form this engine understands, plus the WHERE
// predicate shapes the planner normalizes. Separating a thin
// parsed-intent type from the component that interprets it follows
// perkeep's pkg/blobserver request/response structs.
package statement

// Target is one selected expression: a column reference, a literal, a
// session variable, or the wildcard '*'.
type Target struct {
	Wildcard bool
	Column   *ColumnRef
	Literal  *Literal
	Variable string // e.g. "@@version_comment"; empty if not a variable
	Alias    string
}

// ColumnRef is an optionally table-qualified column name.
type ColumnRef struct {
	Table  string // empty if unqualified
	Column string
}

// LiteralKind distinguishes the kind of constant a Literal holds.
type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralReal
	LiteralText
	LiteralNull
)

// Literal is a constant value appearing in a statement.
type Literal struct {
	Kind LiteralKind
	Int  int64
	Real float64
	Text string
}

// TableRef names a table in a FROM or JOIN clause.
type TableRef struct {
	Name  string
	Alias string
}

// Join is one JOIN clause: the joined table plus an equality ON predicate
// between two columns.
type Join struct {
	Table TableRef
	Left  ColumnRef
	Right ColumnRef
}

// PredicateOp enumerates the comparison operators a WHERE relation can use.
type PredicateOp int

const (
	OpEq PredicateOp = iota
	OpLe
	OpLike
)

// Predicate is a WHERE expression tree: a leaf relation, or a boolean
// combination of sub-predicates.
type Predicate struct {
	// Rel, when non-nil, makes this a leaf: Left compared to either
	// Right (column-column) or Literal (column-literal) via Op.
	Rel     *Relation
	And     []Predicate
	Or      []Predicate
	Not     *Predicate
}

// Relation is one leaf comparison: Left <op> (Right | Literal).
type Relation struct {
	Op      PredicateOp
	Left    ColumnRef
	Right   *ColumnRef
	Literal *Literal
}

// ColumnDef is one column in a CREATE TABLE column list.
type ColumnDef struct {
	Name    string
	Type    ColumnType
	Indexed bool
}

// ColumnType is the parser's view of a declared column type, translated
// to types.DataType by the statement dispatcher.
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeReal
	TypeText
)

// Assignment is one "column = expr" pair in an UPDATE's SET list.
type Assignment struct {
	Column ColumnRef
	Value  Literal
}

// Statement is the sum type of every parsed SQL form this core accepts.
// Exactly one field is non-nil.
type Statement struct {
	ShowTables       *ShowTablesStmt
	Describe         *DescribeStmt
	CreateTable      *CreateTableStmt
	InsertInto       *InsertIntoStmt
	Select           *SelectStmt
	Explain          *ExplainStmt
	Update           *UpdateStmt
	DeleteFrom       *DeleteFromStmt
	FlushTables      *FlushTablesStmt
	StartTransaction *StartTransactionStmt
	Commit           *CommitStmt
	Rollback         *RollbackStmt
}

type ShowTablesStmt struct{}

type DescribeStmt struct {
	Table string
}

type CreateTableStmt struct {
	Table   string
	Columns []ColumnDef
}

type InsertIntoStmt struct {
	Table   string
	Columns []string // empty means "all columns, in order"
	Rows    [][]Literal
}

type SelectStmt struct {
	Targets []Target
	From    *TableRef
	Joins   []Join
	Where   *Predicate
	Limit   *int64
}

type ExplainStmt struct {
	Inner *SelectStmt
}

type UpdateStmt struct {
	Table string
	Set   []Assignment
	Where *Predicate
}

type DeleteFromStmt struct {
	Table string
	Where *Predicate
}

type FlushTablesStmt struct{}

type StartTransactionStmt struct{}

type CommitStmt struct{}

type RollbackStmt struct{}
