package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/models/reports"
	"github.com/hearthbank/family_backend/testsupport"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func record(t *testing.T, db *gorm.DB, entries ...workflow.LedgerEntry) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			if _, err := workflow.Record(tx, testsupport.Logger(), e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}

func findCategory(status *reports.BudgetStatus, category string) *reports.BudgetCategoryStatus {
	for i := range status.Categories {
		if status.Categories[i].Category == category {
			return &status.Categories[i]
		}
	}
	return nil
}

func TestBudgetStatusCreatesMissingRows(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	testsupport.SetBalance(t, db, family.Kid.ID, "100")
	testsupport.SetBalance(t, db, family.Admin.ID, "500")

	record(t, db,
		workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("12"), Category: models.CategoryGroceries, Type: models.TransactionTypeExpense, At: testNow.AddDate(0, 0, -3)},
		workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("5"), Category: models.CategoryGroceries, Type: models.TransactionTypeExpense, At: testNow.AddDate(0, -1, 0)},
		workflow.LedgerEntry{UserId: family.Admin.ID, Amount: dec("40"), Category: models.CategoryBills, Type: models.TransactionTypeExpense, At: testNow},
		workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("10"), Category: models.CategoryAllowance, Type: models.TransactionTypeIncome, At: testNow},
		workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("7"), Category: models.CategoryBonus, Type: models.TransactionTypeIncome, IsManual: true, At: testNow},
		workflow.LedgerEntry{UserId: family.Admin.ID, Amount: dec("900"), Category: models.CategorySalary, Type: models.TransactionTypeIncome, At: testNow},
	)

	var before int64
	db.Model(&models.Budget{}).Count(&before)
	if before != 0 {
		t.Fatalf("expected no budget rows yet, got %d", before)
	}

	status, err := reports.GetBudgetStatus(ctx, db, family.Group.ID, 0, testNow)
	if err != nil {
		t.Fatalf("GetBudgetStatus: %v", err)
	}
	if status.Scope != reports.BudgetScopeAll || status.Month != "2026-03" {
		t.Fatalf("unexpected header: %+v", status)
	}
	if len(status.Categories) != len(models.BudgetCategories)+1 {
		t.Fatalf("expected %d categories plus allocations, got %d", len(models.BudgetCategories), len(status.Categories))
	}
	groceries := findCategory(status, string(models.CategoryGroceries))
	if groceries == nil || !groceries.Spent.Equal(dec("12")) || !groceries.Limit.IsZero() || !groceries.Remaining.Equal(dec("-12")) {
		t.Fatalf("unexpected groceries line: %+v", groceries)
	}
	if bills := findCategory(status, string(models.CategoryBills)); bills == nil || !bills.Spent.Equal(dec("40")) {
		t.Fatalf("group scope should include the admin's bills: %+v", bills)
	}
	allocations := findCategory(status, reports.AllocationsCategory)
	if allocations == nil || !allocations.Spent.Equal(dec("10")) {
		t.Fatalf("allocations count only system-paid member income, got %+v", allocations)
	}

	var after int64
	db.Model(&models.Budget{}).Where("group_id = ? AND user_id = 0", family.Group.ID).Count(&after)
	if after != int64(len(models.BudgetCategories)) {
		t.Fatalf("expected %d zero-limit rows, got %d", len(models.BudgetCategories), after)
	}

	if _, err := reports.GetBudgetStatus(ctx, db, family.Group.ID, 0, testNow); err != nil {
		t.Fatalf("second GetBudgetStatus: %v", err)
	}
	db.Model(&models.Budget{}).Where("group_id = ?", family.Group.ID).Count(&after)
	if after != int64(len(models.BudgetCategories)) {
		t.Fatalf("rows must not be duplicated, got %d", after)
	}
}

func TestBudgetStatusForOneMember(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	testsupport.SetBalance(t, db, family.Kid.ID, "50")
	testsupport.SetBalance(t, db, family.Admin.ID, "50")
	record(t, db,
		workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("4.25"), Category: models.CategoryFun, Type: models.TransactionTypeExpense, At: testNow},
		workflow.LedgerEntry{UserId: family.Admin.ID, Amount: dec("9"), Category: models.CategoryFun, Type: models.TransactionTypeExpense, At: testNow},
	)

	if _, err := models.UpsertBudget(ctx, db, family.AdminPrincipal(), &models.NewBudgetLimit{
		UserId: family.Kid.ID, Category: models.CategoryFun, LimitAmount: dec("20"),
	}); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	_, err := models.UpsertBudget(ctx, db, family.KidPrincipal(), &models.NewBudgetLimit{Category: models.CategoryFun, LimitAmount: dec("99")})
	if utils.ErrorKindOf(err) != utils.KindForbidden {
		t.Fatalf("members cannot set budgets, got %v", err)
	}
	_, err = models.UpsertBudget(ctx, db, family.AdminPrincipal(), &models.NewBudgetLimit{Category: models.CategorySalary, LimitAmount: dec("1")})
	if utils.ErrorKindOf(err) != utils.KindValidation {
		t.Fatalf("salary is not a budget category, got %v", err)
	}

	status, err := reports.GetBudgetStatus(ctx, db, family.Group.ID, family.Kid.ID, testNow)
	if err != nil {
		t.Fatalf("GetBudgetStatus: %v", err)
	}
	if status.Scope != reports.BudgetScopeUser || findCategory(status, reports.AllocationsCategory) != nil {
		t.Fatalf("member scope has no allocations line: %+v", status)
	}
	fun := findCategory(status, string(models.CategoryFun))
	if fun == nil || !fun.Limit.Equal(dec("20")) || !fun.Spent.Equal(dec("4.25")) || !fun.Remaining.Equal(dec("15.75")) {
		t.Fatalf("unexpected fun line: %+v", fun)
	}
}

func categoryNames(status *reports.BudgetStatus) []string {
	names := make([]string, 0, len(status.Categories))
	for _, c := range status.Categories {
		names = append(names, c.Category)
	}
	return names
}

func TestEmptyBudgetStatusMatchesReportShape(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	cases := []struct {
		name   string
		userId int
		scope  string
		lines  int
	}{
		{"group", 0, reports.BudgetScopeAll, len(models.BudgetCategories) + 1},
		{"member", family.Kid.ID, reports.BudgetScopeUser, len(models.BudgetCategories)},
	}
	for _, tc := range cases {
		empty := reports.EmptyBudgetStatus(family.Group.ID, tc.userId, testNow)
		if empty.GroupId != family.Group.ID || empty.UserId != tc.userId || empty.Scope != tc.scope || empty.Month != "2026-03" {
			t.Fatalf("%s: unexpected empty status header: %+v", tc.name, empty)
		}
		if len(empty.Categories) != tc.lines {
			t.Fatalf("%s: expected %d lines, got %d", tc.name, tc.lines, len(empty.Categories))
		}
		for _, line := range empty.Categories {
			if !line.Limit.IsZero() || !line.Spent.IsZero() || !line.Remaining.IsZero() {
				t.Fatalf("%s: line %s should be zero: %+v", tc.name, line.Category, line)
			}
		}

		built, err := reports.GetBudgetStatus(ctx, db, family.Group.ID, tc.userId, testNow)
		if err != nil {
			t.Fatalf("%s: GetBudgetStatus: %v", tc.name, err)
		}
		want, got := categoryNames(built), categoryNames(empty)
		if len(want) != len(got) {
			t.Fatalf("%s: expected categories %v, got %v", tc.name, want, got)
		}
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("%s: expected categories %v, got %v", tc.name, want, got)
			}
		}
	}
	if findCategory(reports.EmptyBudgetStatus(family.Group.ID, 0, testNow), reports.AllocationsCategory) == nil {
		t.Fatalf("group scope must carry the allocations line")
	}
}

func TestDashboardAccessAndSections(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	logger := testsupport.Logger()
	testsupport.SetBalance(t, db, family.Kid.ID, "50")
	record(t, db, workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("20"), Category: models.CategoryFood, Type: models.TransactionTypeExpense, At: testNow.AddDate(0, 0, -1)})

	if _, err := models.CreateTask(ctx, db, family.AdminPrincipal(), &models.NewTask{Title: "Dishes", Reward: dec("2"), AssignedTo: family.Kid.ID}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	_, err := reports.GetDashboard(ctx, db, logger, family.KidPrincipal(), family.Admin.ID, testNow)
	if utils.ErrorKindOf(err) != utils.KindForbidden {
		t.Fatalf("member must not see the admin dashboard, got %v", err)
	}

	dash, err := reports.GetDashboard(ctx, db, logger, family.KidPrincipal(), family.Kid.ID, testNow)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if len(dash.Tasks) != 1 || len(dash.RecentTransactions) != 2 {
		t.Fatalf("expected 1 task and 2 transactions, got %d and %d", len(dash.Tasks), len(dash.RecentTransactions))
	}
	// 30 left + 20 spent => allowed 10, spent 20
	if !dash.WeeklySpend.Spent.Equal(dec("20")) || !dash.WeeklySpend.Limit.Equal(dec("10")) || dash.WeeklySpend.Eligible {
		t.Fatalf("unexpected weekly spend: %+v", dash.WeeklySpend)
	}
	if dash.User.Balance == nil || !dash.User.Balance.Equal(dec("30")) {
		t.Fatalf("own dashboard shows the balance, got %+v", dash.User)
	}
}

func TestExportTransactionsXLSX(t *testing.T) {
	db := testsupport.OpenDB(t)
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	testsupport.SetBalance(t, db, family.Kid.ID, "10")
	record(t, db, workflow.LedgerEntry{UserId: family.Kid.ID, Amount: dec("2.5"), Category: models.CategoryFood, Type: models.TransactionTypeExpense, Description: "Ice cream", At: testNow})

	data, err := reports.ExportTransactionsXLSX(ctx, db, family.AdminPrincipal(), family.Kid.ID)
	if err != nil {
		t.Fatalf("ExportTransactionsXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Transactions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	last := rows[2]
	if last[3] != "Ice cream" || last[4] != "-2.5" || last[6] != "7.5" {
		t.Fatalf("unexpected last row: %v", last)
	}

	_, err = reports.ExportTransactionsXLSX(ctx, db, family.KidPrincipal(), family.Admin.ID)
	if utils.ErrorKindOf(err) != utils.KindForbidden {
		t.Fatalf("member cannot export another ledger, got %v", err)
	}
}
