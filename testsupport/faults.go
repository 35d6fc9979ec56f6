package testsupport

import (
	"fmt"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrLockWaitTimeout is what mysql returns when a FOR UPDATE row lock is not granted in time.
var ErrLockWaitTimeout = &mysqlDriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}

// FailQueriesOn makes every read of model's table fail with err until the test ends.
func FailQueriesOn(t *testing.T, db *gorm.DB, model any, err error) {
	t.Helper()
	stmt := &gorm.Statement{DB: db}
	if parseErr := stmt.Parse(model); parseErr != nil {
		t.Fatalf("parse %T: %v", model, parseErr)
	}
	table := stmt.Schema.Table
	name := fmt.Sprintf("testsupport:fail_%s_%d", table, time.Now().UnixNano())
	regErr := db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	})
	if regErr != nil {
		t.Fatalf("register failing callback: %v", regErr)
	}
	t.Cleanup(func() { _ = db.Callback().Query().Remove(name) })
}
