package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/testsupport"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
	"gorm.io/gorm"
)

func countTransactions(t *testing.T, db *gorm.DB, userId int) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Transaction{}).Where("user_id = ?", userId).Count(&n).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

func TestTaskApprovalCreditsOnce(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	task, err := models.CreateTask(ctx, db, family.AdminPrincipal(), &models.NewTask{
		Title: "Wash the car", Reward: dec("5"), AssignedTo: family.Kid.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	_, err = workflow.UpdateTaskStatus(ctx, db, logger, family.KidPrincipal(), task.ID, models.TaskStatusApproved, testNow)
	expectKind(t, err, utils.KindForbidden)

	done, err := workflow.UpdateTaskStatus(ctx, db, logger, family.KidPrincipal(), task.ID, models.TaskStatusDone, testNow)
	if err != nil {
		t.Fatalf("kid marks done: %v", err)
	}
	if done.Entity.Status != models.TaskStatusDone || !done.Credited.IsZero() {
		t.Fatalf("expected done with no credit, got %s credited %s", done.Entity.Status, done.Credited)
	}

	approved, err := workflow.UpdateTaskStatus(ctx, db, logger, family.AdminPrincipal(), task.ID, models.TaskStatusApproved, testNow)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Credited.Equal(dec("5")) || approved.Transaction == nil {
		t.Fatalf("expected a 5.00 credit, got %s", approved.Credited)
	}
	if approved.Transaction.Category != models.CategoryBonus || approved.Transaction.Description != "Task reward: Wash the car" {
		t.Fatalf("unexpected reward entry: %+v", approved.Transaction)
	}

	again, err := workflow.UpdateTaskStatus(ctx, db, logger, family.AdminPrincipal(), task.ID, models.TaskStatusApproved, testNow)
	if err != nil {
		t.Fatalf("second approval should succeed as a no-op: %v", err)
	}
	if !again.NoOp || !again.Credited.IsZero() {
		t.Fatalf("second approval must not credit, got noop=%v credited=%s", again.NoOp, again.Credited)
	}

	_, err = workflow.UpdateTaskStatus(ctx, db, logger, family.AdminPrincipal(), task.ID, models.TaskStatusPending, testNow)
	expectKind(t, err, utils.KindConflict)

	testsupport.AssertBalance(t, db, family.Kid.ID, "5")
	if n := countTransactions(t, db, family.Kid.ID); n != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", n)
	}
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestZeroRewardTaskApprovesItself(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	task, err := models.CreateTask(ctx, db, family.AdminPrincipal(), &models.NewTask{
		Title: "Make the bed", AssignedTo: family.Kid.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	result, err := workflow.UpdateTaskStatus(ctx, db, logger, family.KidPrincipal(), task.ID, models.TaskStatusCompletedSelf, testNow)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Entity.Status != models.TaskStatusApproved || result.Entity.ApprovedAt == nil {
		t.Fatalf("expected auto approval, got %s", result.Entity.Status)
	}
	if result.Transaction != nil {
		t.Fatalf("zero reward must not post a ledger entry")
	}
	if n := countTransactions(t, db, family.Kid.ID); n != 0 {
		t.Fatalf("expected no ledger entries, got %d", n)
	}
}

func TestLoanLifecycle(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	kid := family.KidPrincipal()

	rejected, err := models.RequestLoan(ctx, db, kid, &models.NewLoan{Amount: dec("50"), Reason: "Console"})
	if err != nil {
		t.Fatalf("RequestLoan: %v", err)
	}
	_, err = workflow.HandleLoan(ctx, db, logger, kid, rejected.ID, true, testNow)
	expectKind(t, err, utils.KindForbidden)

	result, err := workflow.HandleLoan(ctx, db, logger, family.AdminPrincipal(), rejected.ID, false, testNow)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if result.Entity.Status != models.LoanStatusRejected || result.Transaction != nil {
		t.Fatalf("rejection must not credit: %+v", result)
	}
	_, err = workflow.HandleLoan(ctx, db, logger, family.AdminPrincipal(), rejected.ID, true, testNow)
	expectKind(t, err, utils.KindConflict)

	loan, err := models.RequestLoan(ctx, db, kid, &models.NewLoan{Amount: dec("20"), Reason: "Book"})
	if err != nil {
		t.Fatalf("RequestLoan: %v", err)
	}
	approved, err := workflow.HandleLoan(ctx, db, logger, family.AdminPrincipal(), loan.ID, true, testNow)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Credited.Equal(dec("20")) || approved.Entity.HandledBy == nil || *approved.Entity.HandledBy != family.Admin.ID {
		t.Fatalf("unexpected approval: %+v", approved)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "20")

	_, err = workflow.RepayLoan(ctx, db, logger, kid, loan.ID, dec("25"), testNow)
	expectKind(t, err, utils.KindValidation)
	_, err = workflow.RepayLoan(ctx, db, logger, family.AdminPrincipal(), loan.ID, dec("5"), testNow)
	expectKind(t, err, utils.KindForbidden)

	partial, err := workflow.RepayLoan(ctx, db, logger, kid, loan.ID, dec("12.50"), testNow)
	if err != nil {
		t.Fatalf("partial repay: %v", err)
	}
	if partial.Status != models.LoanStatusActive || !partial.RemainingAmount.Equal(dec("7.5")) {
		t.Fatalf("unexpected loan after partial repay: %s remaining %s", partial.Status, partial.RemainingAmount)
	}
	paid, err := workflow.RepayLoan(ctx, db, logger, kid, loan.ID, dec("7.50"), testNow)
	if err != nil {
		t.Fatalf("final repay: %v", err)
	}
	if paid.Status != models.LoanStatusPaid || !paid.RemainingAmount.IsZero() {
		t.Fatalf("expected paid loan, got %s remaining %s", paid.Status, paid.RemainingAmount)
	}
	_, err = workflow.RepayLoan(ctx, db, logger, kid, loan.ID, dec("1"), testNow)
	expectKind(t, err, utils.KindConflict)

	testsupport.AssertBalance(t, db, family.Kid.ID, "0")
	assertLedgerMatches(t, db, family.Group.ID)
}

func intPtr(i int) *int {
	return &i
}

func seedBundle(t *testing.T, db *gorm.DB) *models.QuizBundle {
	t.Helper()
	bundle, err := models.CreateBundle(context.Background(), db, &models.NewQuizBundle{
		Title:         "Saving basics",
		Type:          models.QuizTypeFinancial,
		AgeGroup:      "8-12",
		Reward:        dec("3"),
		PassThreshold: 70,
		Questions: []models.QuizQuestion{
			{Prompt: "2+2", Options: []string{"3", "4"}, CorrectIndex: intPtr(1)},
			{Prompt: "Is saving good?", Options: []string{"yes", "no"}, CorrectIndex: intPtr(0)},
			{Prompt: "10% of 50", Options: []string{"5", "10", "15"}, CorrectIndex: intPtr(0)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBundle: %v", err)
	}
	return bundle
}

func TestScoreAttempt(t *testing.T) {
	bundle := models.QuizBundle{Questions: []models.QuizQuestion{
		{CorrectIndex: intPtr(1)}, {CorrectIndex: intPtr(0)}, {CorrectIndex: intPtr(2)},
	}}
	cases := []struct {
		answers  []int
		expected int
	}{
		{[]int{1, 0, 2}, 100},
		{[]int{1, 0, 0}, 66},
		{[]int{1}, 33},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := workflow.ScoreAttempt(bundle, tc.answers); got != tc.expected {
			t.Fatalf("ScoreAttempt(%v) expected %d, got %d", tc.answers, tc.expected, got)
		}
	}
	if got := workflow.ScoreAttempt(models.QuizBundle{}, []int{0}); got != 0 {
		t.Fatalf("empty bundle must score 0, got %d", got)
	}
}

func TestQuizFailRetakeAndPay(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	bundle := seedBundle(t, db)

	custom := dec("4.50")
	assignment, err := models.AssignBundle(ctx, db, family.AdminPrincipal(), &models.NewAssignment{
		UserId: family.Kid.ID, BundleId: bundle.ID, CustomReward: &custom,
	})
	if err != nil {
		t.Fatalf("AssignBundle: %v", err)
	}

	failed, err := workflow.SubmitQuiz(ctx, db, logger, family.KidPrincipal(), assignment.ID, []int{0, 0, 1}, testNow)
	if err != nil {
		t.Fatalf("failed attempt: %v", err)
	}
	if failed.Passed || failed.Assignment.Status != models.AssignmentStatusFailed || failed.Score != 33 {
		t.Fatalf("expected failed attempt with score 33, got %+v", failed)
	}

	passed, err := workflow.SubmitQuiz(ctx, db, logger, family.KidPrincipal(), assignment.ID, []int{1, 0, 0}, testNow)
	if err != nil {
		t.Fatalf("retake: %v", err)
	}
	if !passed.Passed || !passed.RewardPaid.Equal(custom) {
		t.Fatalf("expected custom reward 4.50 paid, got %+v", passed)
	}
	for _, q := range passed.Assignment.Bundle.Questions {
		if q.CorrectIndex != nil {
			t.Fatalf("answers leaked to the quiz taker")
		}
	}

	again, err := workflow.SubmitQuiz(ctx, db, logger, family.KidPrincipal(), assignment.ID, []int{1, 0, 0}, testNow)
	if err != nil {
		t.Fatalf("resubmission should be a no-op: %v", err)
	}
	if !again.AlreadyPaid || !again.RewardPaid.IsZero() {
		t.Fatalf("resubmission must not pay again: %+v", again)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "4.5")
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestLateQuizEarnsNothing(t *testing.T) {
	db := testsupport.OpenDB(t)
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()
	bundle := seedBundle(t, db)

	deadline := testNow.Add(-time.Hour)
	assignment, err := models.AssignBundle(ctx, db, family.AdminPrincipal(), &models.NewAssignment{
		UserId: family.Kid.ID, BundleId: bundle.ID, Deadline: &deadline,
	})
	if err != nil {
		t.Fatalf("AssignBundle: %v", err)
	}

	_, err = workflow.SubmitQuiz(ctx, db, logger, family.AdminPrincipal(), assignment.ID, []int{1, 0, 0}, testNow)
	expectKind(t, err, utils.KindForbidden)

	late, err := workflow.SubmitQuiz(ctx, db, logger, family.KidPrincipal(), assignment.ID, []int{1, 0, 0}, testNow)
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if late.Assignment.Status != models.AssignmentStatusLate || !late.RewardPaid.IsZero() || late.Passed {
		t.Fatalf("expected late with no reward, got %+v", late)
	}
	_, err = workflow.SubmitQuiz(ctx, db, logger, family.KidPrincipal(), assignment.ID, []int{1, 0, 0}, testNow)
	expectKind(t, err, utils.KindConflict)
	testsupport.AssertBalance(t, db, family.Kid.ID, "0")
}

// approveConcurrently fires approvals of one done task from many goroutines at once.
func approveConcurrently(t *testing.T, db *gorm.DB, approvals int) {
	t.Helper()
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	task, err := models.CreateTask(ctx, db, family.AdminPrincipal(), &models.NewTask{
		Title: "Mow the lawn", Reward: dec("5"), AssignedTo: family.Kid.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := workflow.UpdateTaskStatus(ctx, db, logger, family.KidPrincipal(), task.ID, models.TaskStatusDone, testNow); err != nil {
		t.Fatalf("kid marks done: %v", err)
	}

	var wg sync.WaitGroup
	paid := make([]bool, approvals)
	errs := make([]error, approvals)
	for i := 0; i < approvals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := workflow.UpdateTaskStatus(ctx, db, logger, family.AdminPrincipal(), task.ID, models.TaskStatusApproved, testNow)
			if err != nil {
				errs[i] = err
				return
			}
			paid[i] = result.Credited.IsPositive()
		}(i)
	}
	wg.Wait()

	credits := 0
	for i := range paid {
		if errs[i] != nil {
			t.Fatalf("approval %d: %v", i, errs[i])
		}
		if paid[i] {
			credits++
		}
	}
	if credits != 1 {
		t.Fatalf("expected exactly one approval to credit, got %d", credits)
	}
	testsupport.AssertBalance(t, db, family.Kid.ID, "5")
	if n := countTransactions(t, db, family.Kid.ID); n != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", n)
	}
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	approveConcurrently(t, testsupport.OpenDB(t), 10)
}

// editDuringApproval races a reward edit against the approval of the same task. Whichever wins,
// the approved task must carry the reward that was credited.
func editDuringApproval(t *testing.T, db *gorm.DB, rounds int) {
	t.Helper()
	logger := testsupport.Logger()
	family := testsupport.SeedFamily(t, db)
	ctx := context.Background()

	for round := 0; round < rounds; round++ {
		title := fmt.Sprintf("Chore %d", round)
		task, err := models.CreateTask(ctx, db, family.AdminPrincipal(), &models.NewTask{
			Title: title, Reward: dec("5"), AssignedTo: family.Kid.ID,
		})
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if _, err := workflow.UpdateTaskStatus(ctx, db, logger, family.KidPrincipal(), task.ID, models.TaskStatusDone, testNow); err != nil {
			t.Fatalf("kid marks done: %v", err)
		}

		var wg sync.WaitGroup
		var editErr, approveErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, editErr = models.UpdateTask(ctx, db, family.AdminPrincipal(), task.ID, &models.NewTask{
				Title: title, Reward: dec("7"), AssignedTo: family.Kid.ID,
			})
		}()
		go func() {
			defer wg.Done()
			_, approveErr = workflow.UpdateTaskStatus(ctx, db, logger, family.AdminPrincipal(), task.ID, models.TaskStatusApproved, testNow)
		}()
		wg.Wait()

		if approveErr != nil {
			t.Fatalf("round %d: approve: %v", round, approveErr)
		}
		if editErr != nil && utils.ErrorKindOf(editErr) != utils.KindConflict {
			t.Fatalf("round %d: edit should succeed or conflict, got %v", round, editErr)
		}

		var stored models.Task
		if err := db.First(&stored, task.ID).Error; err != nil {
			t.Fatalf("reload task: %v", err)
		}
		var credit models.Transaction
		if err := db.Where("user_id = ? AND description = ?", family.Kid.ID, "Task reward: "+title).First(&credit).Error; err != nil {
			t.Fatalf("round %d: reward entry: %v", round, err)
		}
		if stored.Status != models.TaskStatusApproved || !stored.Reward.Equal(credit.Amount) {
			t.Fatalf("round %d: task reward %s disagrees with credited %s", round, stored.Reward, credit.Amount)
		}
		if editErr == nil && !credit.Amount.Equal(dec("7")) {
			t.Fatalf("round %d: edit committed first but approval credited %s", round, credit.Amount)
		}
	}
	assertLedgerMatches(t, db, family.Group.ID)
}

func TestTaskEditRacingApproval(t *testing.T) {
	editDuringApproval(t, testsupport.OpenDB(t), 5)
}

func TestConcurrentApprovalsOnMySQL(t *testing.T) {
	if !testsupport.IntegrationEnabled() {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
	approveConcurrently(t, testsupport.OpenMySQL(t), 10)
}

func TestTaskEditRacingApprovalOnMySQL(t *testing.T) {
	if !testsupport.IntegrationEnabled() {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
	editDuringApproval(t, testsupport.OpenMySQL(t), 10)
}
