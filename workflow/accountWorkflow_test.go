package workflow_test

import (
	"context"
	"testing"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/testsupport"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
)

func TestOwnerDepositNeedsFunds(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	testsupport.SetBalance(t, db, family.Kid.ID, "5")

	goal, err := models.CreateGoal(ctx, db, family.KidPrincipal(), &models.NewGoal{Title: "Bike", TargetAmount: dec("20")})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	_, err = workflow.DepositToGoal(ctx, db, logger, family.KidPrincipal(), goal.ID, dec("8"), testNow)
	expectKind(t, err, utils.KindInsufficientFunds)
	testsupport.AssertBalance(t, db, family.Kid.ID, "5")
	var unchanged models.Goal
	if err := db.First(&unchanged, goal.ID).Error; err != nil {
		t.Fatalf("reload goal: %v", err)
	}
	if !unchanged.CurrentAmount.IsZero() {
		t.Fatalf("failed deposit moved the goal to %s", unchanged.CurrentAmount)
	}

	result, err := workflow.DepositToGoal(ctx, db, logger, family.KidPrincipal(), goal.ID, dec("5"), testNow)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if result.Transaction.Type != models.TransactionTypeTransferOut || result.Transaction.Category != models.CategorySavings {
		t.Fatalf("owner deposit must be a savings transfer_out, got %+v", result.Transaction)
	}
	if !result.Goal.CurrentAmount.Equal(dec("5")) || result.Goal.Status != models.GoalStatusActive {
		t.Fatalf("unexpected goal after deposit: %+v", result.Goal)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "0")
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestAdminFundsChildGoal(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	goal, err := models.CreateGoal(ctx, db, family.AdminPrincipal(), &models.NewGoal{
		UserId: family.Kid.ID, Title: "Skates", TargetAmount: dec("15"),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.UserId != family.Kid.ID {
		t.Fatalf("goal should belong to the kid, got user %d", goal.UserId)
	}

	result, err := workflow.DepositToGoal(ctx, db, logger, family.AdminPrincipal(), goal.ID, dec("15"), testNow)
	if err != nil {
		t.Fatalf("admin deposit: %v", err)
	}
	if result.Transaction.UserId != family.Kid.ID || result.Transaction.Type != models.TransactionTypeIncome {
		t.Fatalf("admin deposit must credit the child, got %+v", result.Transaction)
	}
	if result.Goal.Status != models.GoalStatusCompleted {
		t.Fatalf("goal reaching its target should complete, got %s", result.Goal.Status)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "15")
	testsupport.AssertBalance(t, db, family.Admin.ID, "0")
}

func TestMemberCannotFundSomeoneElsesGoal(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	testsupport.SetBalance(t, db, family.Kid.ID, "50")

	goal, err := models.CreateGoal(ctx, db, family.AdminPrincipal(), &models.NewGoal{Title: "Holiday", TargetAmount: dec("500")})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	_, err = workflow.DepositToGoal(ctx, db, logger, family.KidPrincipal(), goal.ID, dec("10"), testNow)
	expectKind(t, err, utils.KindForbidden)
	testsupport.AssertBalance(t, db, family.Kid.ID, "50")

	_, err = models.CreateGoal(ctx, db, family.KidPrincipal(), &models.NewGoal{UserId: family.Admin.ID, Title: "x", TargetAmount: dec("1")})
	expectKind(t, err, utils.KindForbidden)
}

func TestCheckoutChargesShopperOnce(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	kid := family.KidPrincipal()
	testsupport.SetBalance(t, db, family.Kid.ID, "30")

	_, err := workflow.CheckoutTrip(ctx, db, logger, kid, &models.CheckoutInput{Amount: dec("10")}, testNow)
	expectKind(t, err, utils.KindValidation)

	inCart := models.ShoppingStatusInCart
	var carted []int
	for _, name := range []string{"Milk", "Bread", "Apples"} {
		item, err := models.AddShoppingItem(ctx, db, kid, &models.NewShoppingItem{Name: name})
		if err != nil {
			t.Fatalf("AddShoppingItem: %v", err)
		}
		if name == "Apples" {
			continue
		}
		if _, err := models.UpdateShoppingItem(ctx, db, kid, item.ID, &models.UpdateShoppingItemInput{Status: &inCart}); err != nil {
			t.Fatalf("UpdateShoppingItem: %v", err)
		}
		carted = append(carted, item.ID)
	}

	_, err = workflow.CheckoutTrip(ctx, db, logger, kid, &models.CheckoutInput{Amount: dec("45")}, testNow)
	expectKind(t, err, utils.KindInsufficientFunds)

	result, err := workflow.CheckoutTrip(ctx, db, logger, kid, &models.CheckoutInput{Amount: dec("12.40"), Description: "Corner shop"}, testNow)
	if err != nil {
		t.Fatalf("CheckoutTrip: %v", err)
	}
	if result.Trip.ItemCount != 2 || len(result.Items) != 2 {
		t.Fatalf("expected 2 items checked out, got %+v", result.Trip)
	}
	if result.Transaction.Category != models.CategoryGroceries || result.Transaction.Type != models.TransactionTypeExpense {
		t.Fatalf("unexpected checkout entry: %+v", result.Transaction)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "17.6")

	open, err := models.ListShopping(ctx, db, family.Group.ID)
	if err != nil {
		t.Fatalf("ListShopping: %v", err)
	}
	if len(open) != 1 || open[0].Name != "Apples" {
		t.Fatalf("only the uncarted item should remain, got %+v", open)
	}

	bought := models.ShoppingStatusNeeded
	_, err = models.UpdateShoppingItem(ctx, db, kid, carted[0], &models.UpdateShoppingItemInput{Status: &bought})
	expectKind(t, err, utils.KindConflict)
	assertLedgerMatches(t, db, family.Group.ID)
}
