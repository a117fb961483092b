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

package engine

import (
	"context"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
)

func mustQuery(t *testing.T, e *Engine, sql string) Response {
	t.Helper()
	resp, err := e.Query(context.Background(), sql)
	if err != nil {
		t.Fatalf("Query(%q): %v", sql, err)
	}
	return resp
}

func TestCreateInsertSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mustQuery(t, e, `CREATE TABLE users (id INTEGER INDEX, name TEXT)`)
	resp := mustQuery(t, e, `INSERT INTO users VALUES (1, 'alice'), (2, 'bob')`)
	if resp.Meta == nil || resp.Meta.AffectedRows != 2 {
		t.Fatalf("insert meta = %+v, want 2 affected", resp.Meta)
	}

	resp = mustQuery(t, e, `SELECT * FROM users`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 2 {
		t.Fatalf("select rows = %+v, want 2", resp.Rows)
	}

	resp = mustQuery(t, e, `SELECT * FROM users WHERE id = 2`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 1 || resp.Rows.Rows[0][1].Text() != "bob" {
		t.Fatalf("select by id = %+v", resp.Rows)
	}
}

func TestJoinMatchesRowsOnEquality(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE a (k INTEGER, x TEXT)`)
	mustQuery(t, e, `CREATE TABLE b (k INTEGER, y TEXT)`)
	mustQuery(t, e, `INSERT INTO a VALUES (1, 'one'), (2, 'two')`)
	mustQuery(t, e, `INSERT INTO b VALUES (2, 'deux'), (3, 'trois')`)

	resp := mustQuery(t, e, `SELECT a.x, b.y FROM a JOIN b ON a.k = b.k`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 1 {
		t.Fatalf("join rows = %+v, want one matched pair", resp.Rows)
	}
	row := resp.Rows.Rows[0]
	if row[0].Text() != "two" || row[1].Text() != "deux" {
		t.Fatalf("joined row = %+v, want (two, deux)", row)
	}
}

func TestShowTablesAndDescribe(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER, name TEXT)`)

	resp := mustQuery(t, e, `SHOW TABLES`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 1 || resp.Rows.Rows[0][0].Text() != "t" {
		t.Fatalf("show tables = %+v", resp.Rows)
	}

	resp = mustQuery(t, e, `DESCRIBE t`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 2 {
		t.Fatalf("describe = %+v", resp.Rows)
	}
}

func TestTransactionRollbackDiscardsInsert(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)

	mustQuery(t, e, `START TRANSACTION`)
	mustQuery(t, e, `INSERT INTO t VALUES (2)`)
	mustQuery(t, e, `ROLLBACK`)

	resp := mustQuery(t, e, `SELECT * FROM t`)
	if len(resp.Rows.Rows) != 1 {
		t.Fatalf("after rollback, rows = %+v, want 1", resp.Rows.Rows)
	}
}

func TestTransactionCommitPersists(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)

	mustQuery(t, e, `START TRANSACTION`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)
	mustQuery(t, e, `INSERT INTO t VALUES (2)`)
	mustQuery(t, e, `COMMIT`)

	resp := mustQuery(t, e, `SELECT * FROM t`)
	if len(resp.Rows.Rows) != 2 {
		t.Fatalf("after commit, rows = %+v, want 2", resp.Rows.Rows)
	}
}

func TestFailedStatementOutsideTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	if _, err := e.Query(ctx, `CREATE TABLE t (id INTEGER)`); err == nil {
		t.Fatalf("expected duplicate CREATE TABLE to fail")
	}
	resp := mustQuery(t, e, `SHOW TABLES`)
	if len(resp.Rows.Rows) != 1 {
		t.Fatalf("show tables after failed create = %+v, want 1 table", resp.Rows.Rows)
	}
}

func TestExplainReturnsPlanText(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	resp := mustQuery(t, e, `EXPLAIN SELECT * FROM t`)
	if resp.Rows == nil || len(resp.Rows.Rows) != 1 || len(resp.Rows.Rows[0]) != 1 {
		t.Fatalf("explain response = %+v", resp.Rows)
	}
	if resp.Rows.Rows[0][0].Text() == "" {
		t.Fatalf("explain text is empty")
	}
}

func TestUpdateNonIndexedColumn(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER INDEX, name TEXT)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1, 'a'), (2, 'b')`)

	resp := mustQuery(t, e, `UPDATE t SET name = 'z' WHERE id = 2`)
	if resp.Meta == nil || resp.Meta.AffectedRows != 1 {
		t.Fatalf("update meta = %+v, want 1 affected", resp.Meta)
	}

	sel := mustQuery(t, e, `SELECT * FROM t WHERE id = 2`)
	if sel.Rows.Rows[0][1].Text() != "z" {
		t.Fatalf("updated row = %+v, want name=z", sel.Rows.Rows[0])
	}
}

func TestUpdateIndexedColumnRejected(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER INDEX)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)
	if _, err := e.Query(ctx, `UPDATE t SET id = 2 WHERE id = 1`); err == nil {
		t.Fatalf("expected update of indexed column to fail")
	}
}

func TestDeleteFromNonIndexedTable(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1), (2), (3)`)

	resp := mustQuery(t, e, `DELETE FROM t WHERE id = 2`)
	if resp.Meta == nil || resp.Meta.AffectedRows != 1 {
		t.Fatalf("delete meta = %+v, want 1 affected", resp.Meta)
	}
	sel := mustQuery(t, e, `SELECT * FROM t`)
	if len(sel.Rows.Rows) != 2 {
		t.Fatalf("after delete, rows = %+v, want 2", sel.Rows.Rows)
	}
}

func TestDeleteFromIndexedTableRejected(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER INDEX)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)
	if _, err := e.Query(ctx, `DELETE FROM t WHERE id = 1`); err == nil {
		t.Fatalf("expected delete on indexed table to fail")
	}
}

func TestFlushTablesEvictsCacheButPersists(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)
	resp := mustQuery(t, e, `FLUSH TABLES`)
	if resp.Meta == nil {
		t.Fatalf("flush tables meta = %+v", resp.Meta)
	}
	sel := mustQuery(t, e, `SELECT * FROM t`)
	if len(sel.Rows.Rows) != 1 {
		t.Fatalf("after flush, rows = %+v, want 1", sel.Rows.Rows)
	}
}

func TestQueryLogBlocksResetsBetweenCalls(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memblob.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustQuery(t, e, `CREATE TABLE t (id INTEGER)`)
	mustQuery(t, e, `INSERT INTO t VALUES (1)`)
	// Blocks stay resident in the cache until FLUSH TABLES evicts them, so
	// flush first to make the SELECT below read through to the store.
	mustQuery(t, e, `FLUSH TABLES`)

	_, log1, err := e.QueryLogBlocks(ctx, `SELECT * FROM t`)
	if err != nil {
		t.Fatalf("QueryLogBlocks: %v", err)
	}
	if len(log1.Read) == 0 {
		t.Fatalf("expected at least one block read, got %+v", log1)
	}

	_, log2, err := e.QueryLogBlocks(ctx, `SHOW TABLES`)
	if err != nil {
		t.Fatalf("QueryLogBlocks: %v", err)
	}
	if log2.Written[0] {
		t.Fatalf("SHOW TABLES should not write the superblock, log = %+v", log2)
	}
}
