package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/testsupport"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expectKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := utils.ErrorKindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func assertLedgerMatches(t *testing.T, db *gorm.DB, groupId int) {
	t.Helper()
	mismatches, err := workflow.AuditBalances(db, groupId)
	if err != nil {
		t.Fatalf("AuditBalances: %v", err)
	}
	if len(mismatches) > 0 {
		t.Fatalf("balance drifted from ledger: %+v", mismatches)
	}
}

func TestRecordManualKeepsBalanceEqualToLedger(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	kid := family.KidPrincipal()

	if _, err := workflow.RecordManual(ctx, db, logger, kid, &models.NewManualTransaction{
		Amount: dec("100"), Description: "Birthday money", Category: models.CategoryBonus, Type: models.TransactionTypeIncome,
	}, testNow); err != nil {
		t.Fatalf("record income: %v", err)
	}
	if _, err := workflow.RecordManual(ctx, db, logger, kid, &models.NewManualTransaction{
		Amount: dec("30.25"), Description: "Comics", Category: models.CategoryFun, Type: models.TransactionTypeExpense,
	}, testNow); err != nil {
		t.Fatalf("record expense: %v", err)
	}

	_, err := workflow.RecordManual(ctx, db, logger, kid, &models.NewManualTransaction{
		Amount: dec("80"), Description: "Bike", Category: models.CategoryOther, Type: models.TransactionTypeExpense,
	}, testNow)
	expectKind(t, err, utils.KindInsufficientFunds)

	testsupport.AssertBalance(t, db, family.Kid.ID, "69.75")
	ledger, err := workflow.LedgerBalance(db, family.Kid.ID)
	if err != nil {
		t.Fatalf("LedgerBalance: %v", err)
	}
	if !ledger.Equal(dec("69.75")) {
		t.Fatalf("ledger balance: expected 69.75, got %s", ledger)
	}
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestRecordManualRejectsTransferOutAndBadAmounts(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	kid := family.KidPrincipal()

	cases := []struct {
		name  string
		input models.NewManualTransaction
	}{
		{"transfer out", models.NewManualTransaction{Amount: dec("5"), Category: models.CategorySavings, Type: models.TransactionTypeTransferOut}},
		{"zero amount", models.NewManualTransaction{Amount: dec("0"), Category: models.CategoryBonus, Type: models.TransactionTypeIncome}},
		{"negative amount", models.NewManualTransaction{Amount: dec("-3"), Category: models.CategoryBonus, Type: models.TransactionTypeIncome}},
		{"three decimals", models.NewManualTransaction{Amount: dec("1.005"), Category: models.CategoryBonus, Type: models.TransactionTypeIncome}},
	}
	for _, tc := range cases {
		_, err := workflow.RecordManual(context.Background(), db, logger, kid, &tc.input, testNow)
		if utils.ErrorKindOf(err) != utils.KindValidation {
			t.Fatalf("%s: expected Validation error, got %v", tc.name, err)
		}
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "0")
}

func TestSumExpensesHonoursWindow(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	testsupport.SetBalance(t, db, family.Kid.ID, "100")

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, e := range []workflow.LedgerEntry{
			{UserId: family.Kid.ID, Amount: dec("10"), Category: models.CategoryFood, Type: models.TransactionTypeExpense, At: testNow.AddDate(0, 0, -10)},
			{UserId: family.Kid.ID, Amount: dec("7.50"), Category: models.CategoryFood, Type: models.TransactionTypeExpense, At: testNow.AddDate(0, 0, -2)},
			{UserId: family.Kid.ID, Amount: dec("5"), Category: models.CategorySavings, Type: models.TransactionTypeTransferOut, At: testNow.AddDate(0, 0, -1)},
		} {
			if _, err := workflow.Record(tx, logger, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	spent, err := workflow.SumExpenses(db, family.Kid.ID, utils.WeekAgo(testNow))
	if err != nil {
		t.Fatalf("SumExpenses: %v", err)
	}
	if !spent.Equal(dec("7.5")) {
		t.Fatalf("expected 7.50 spent in the last week, got %s", spent)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "77.5")
}

func TestRecordDebitRequiresDebitType(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := workflow.RecordDebit(tx, testsupport.Logger(), workflow.LedgerEntry{
			UserId: family.Kid.ID, Amount: dec("1"), Category: models.CategoryBonus, Type: models.TransactionTypeIncome,
		})
		return err
	})
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Kind != utils.KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}
