// Package dbtest opens throwaway in-memory domain stores for tests
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/domainbrowser/searchjobs/internal/db"
)

// NewSQLite returns a migrated in-memory database that is closed when
// the test ends
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create in-memory database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every new connection to :memory: is a new empty database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(gdb), "Failed to run database migrations")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// QueryCounter counts the query statements issued through a database
type QueryCounter struct {
	n int
}

// CountQueries registers a counter on the query callback chain
func CountQueries(t testing.TB, gdb *gorm.DB) *QueryCounter {
	t.Helper()
	c := &QueryCounter{}
	err := gdb.Callback().Query().After("gorm:query").Register("dbtest:count", func(*gorm.DB) {
		c.n++
	})
	require.NoError(t, err)
	return c
}

// N returns the number of queries counted so far
func (c *QueryCounter) N() int {
	return c.n
}
