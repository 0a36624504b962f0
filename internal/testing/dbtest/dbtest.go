// Package dbtest opens throwaway sqlite databases for service tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tradebook/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a file-backed sqlite database under t.TempDir and migrates
// models into it. The pool is capped at one connection, as in production
// sqlite mode, so transactions from concurrent goroutines queue up.
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tradebook.db")
	conn, err := gorm.Open(sqlite.Open(db.SQLiteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := conn.AutoMigrate(models...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return conn
}

// Node returns a snowflake node for generating test IDs.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
