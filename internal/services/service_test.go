package services

import (
	"fmt"
	"testing"

	"github.com/unt-libraries/coda/internal/db"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int

// newTestDB opens a fresh in-memory database per test. cache=shared
// keeps the database alive across the pooled connections gorm opens.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", testDBCounter)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return gdb
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
