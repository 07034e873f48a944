// Package testutil provides migrated databases for tests.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weiawesome/quill/internal/repository"
)

// PostgresDSNEnv names a key/value PostgreSQL DSN ("host=... user=... dbname=...")
// used by NewPostgresDB.
const PostgresDSNEnv = "QUILL_TEST_POSTGRES_DSN"

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// NewDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every transaction on the same in-memory file,
// which also means transactions run one after another: concurrency tests
// against it only check the outcome, never a real interleaving. Use
// NewPostgresDB for that.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// NewPostgresDB opens the database named by QUILL_TEST_POSTGRES_DSN inside a
// throwaway schema, or skips the test when the variable is unset. The pool
// has several connections, so row locks and READ COMMITTED interleavings
// are real.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skip(PostgresDSNEnv + " not set")
	}

	admin, err := gorm.Open(postgres.Open(dsn), gormConfig())
	require.NoError(t, err)
	adminDB, err := admin.DB()
	require.NoError(t, err)

	schema := "quill_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		_ = admin.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		_ = adminDB.Close()
	})

	// Unknown DSN keys are sent to the server as runtime parameters.
	db, err := gorm.Open(postgres.Open(dsn+" search_path="+schema), gormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}
