// Package testsupport opens throwaway stores for package tests and seeds a small family.
package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IntegrationEnabled reports whether docker backed tests should run.
func IntegrationEnabled() bool {
	return strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) != ""
}

// OpenDB returns a migrated sqlite database that lives for the duration of the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.DatabaseSettings{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDatabase(db) })
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenMySQL starts a mysql container and returns a migrated handle to it.
func OpenMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	name, port := StartMySQLContainer(t)
	t.Cleanup(func() { _ = DockerRmForce(name) })
	db, err := config.OpenDatabase(config.DatabaseSettings{
		Driver: "mysql",
		DSN:    fmt.Sprintf("root:testpw@tcp(127.0.0.1:%s)/family_test?charset=utf8mb4&parseTime=True&loc=UTC", port),
	})
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDatabase(db) })
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger discards everything below panic so test output stays readable.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// Family is a group with an admin and one active member.
type Family struct {
	Group *models.Group
	Admin *models.User
	Kid   *models.User
}

func (f *Family) AdminPrincipal() utils.Principal {
	return utils.Principal{UserId: f.Admin.ID, GroupId: f.Group.ID, Role: string(models.UserRoleAdmin)}
}

func (f *Family) KidPrincipal() utils.Principal {
	return utils.Principal{UserId: f.Kid.ID, GroupId: f.Group.ID, Role: string(models.UserRoleMember)}
}

// SeedFamily creates the Smiths: admin Dad and an approved member Kid.
func SeedFamily(t *testing.T, db *gorm.DB) *Family {
	t.Helper()
	ctx := context.Background()
	group, admin, err := models.CreateGroup(ctx, db, &models.NewGroup{
		Name:       "Smiths",
		AdminEmail: "dad@smith.test",
		Nickname:   "Dad",
		Password:   "dad-secret",
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	kid, err := models.JoinGroup(ctx, db, &models.NewMember{
		GroupId:  group.ID,
		Nickname: "Kid",
		Password: "kid-secret",
	})
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	family := &Family{Group: group, Admin: admin, Kid: kid}
	if kid, err = models.ApproveUser(ctx, db, family.AdminPrincipal(), kid.ID); err != nil {
		t.Fatalf("ApproveUser: %v", err)
	}
	family.Kid = kid
	return family
}

// OpeningAt dates seeded balances well before any test clock.
var OpeningAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// SetBalance writes a balance together with a matching opening ledger entry.
func SetBalance(t *testing.T, db *gorm.DB, userId int, amount string) {
	t.Helper()
	d := decimal.RequireFromString(amount)
	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userId).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Transaction{
			UserId:      user.ID,
			GroupId:     user.GroupId,
			Amount:      d,
			Description: "Opening balance",
			Category:    models.CategoryOther,
			Type:        models.TransactionTypeIncome,
			CreatedAt:   OpeningAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("balance", user.Balance.Add(d)).Error
	})
	if err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
}

// Balance reads the stored balance.
func Balance(t *testing.T, db *gorm.DB, userId int) decimal.Decimal {
	t.Helper()
	var user models.User
	if err := db.First(&user, userId).Error; err != nil {
		t.Fatalf("load user %d: %v", userId, err)
	}
	return user.Balance
}

// AssertBalance fails unless the stored balance equals want.
func AssertBalance(t *testing.T, db *gorm.DB, userId int, want string) {
	t.Helper()
	got := Balance(t, db, userId)
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("user %d balance: expected %s, got %s", userId, want, got.StringFixed(2))
	}
}
