package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(`
		CREATE TABLE a (id INT);
		CREATE TABLE b (id INT);
	`)
	require.Equal(t, []string{
		"CREATE TABLE a (id INT)",
		"CREATE TABLE b (id INT)",
	}, stmts)
}

func TestSplitSQLStatementsKeepsSemicolonsInLiterals(t *testing.T) {
	stmts := splitSQLStatements(`INSERT INTO t (v) VALUES ('a;b'); SELECT 1`)
	require.Equal(t, []string{
		"INSERT INTO t (v) VALUES ('a;b')",
		"SELECT 1",
	}, stmts)
}

func TestSplitSQLStatementsHandlesEscapedQuotes(t *testing.T) {
	stmts := splitSQLStatements(`INSERT INTO t (v) VALUES ('it''s; fine'); SELECT 2`)
	require.Len(t, stmts, 2)
	require.Equal(t, `INSERT INTO t (v) VALUES ('it''s; fine')`, stmts[0])
}

func TestSplitSQLStatementsDropsEmpty(t *testing.T) {
	require.Empty(t, splitSQLStatements("  ;; \n ; "))
}

func TestIsIgnorableError(t *testing.T) {
	require.True(t, isIgnorableError(errors.New(`relation "plans" already exists`)))
	require.True(t, isIgnorableError(errors.New("ERROR: duplicate key value violates unique constraint")))
	require.False(t, isIgnorableError(errors.New("syntax error at or near CREATE")))
}

func TestMigrationsAreOrdered(t *testing.T) {
	last := 0
	for _, m := range migrations {
		require.Greater(t, m.Version, last)
		require.NotEmpty(t, m.Name)
		require.NotEmpty(t, m.Up)
		last = m.Version
	}
}
