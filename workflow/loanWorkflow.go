package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newLoanMachine(handledBy int) RewardMachine[models.Loan, models.LoanStatus] {
	return RewardMachine[models.Loan, models.LoanStatus]{
		Kind: "loan",
		Transitions: map[models.LoanStatus][]models.LoanStatus{
			models.LoanStatusPending: {models.LoanStatusActive, models.LoanStatusRejected},
		},
		Paid:   models.LoanStatusActive,
		Status: func(l *models.Loan) models.LoanStatus { return l.Status },
		Credit: func(l *models.Loan, _ models.LoanStatus) decimal.Decimal { return l.OriginalAmount },
		Entry: func(l *models.Loan) (int, string, models.Category) {
			description := "Loan"
			if l.Reason != "" {
				description = "Loan: " + l.Reason
			}
			return l.UserId, description, models.CategoryLoans
		},
		Persist: func(tx *gorm.DB, l *models.Loan, _ models.LoanStatus, to models.LoanStatus, _ decimal.Decimal, _ time.Time) error {
			l.Status = to
			l.HandledBy = &handledBy
			return tx.Model(l).Updates(map[string]interface{}{"status": to, "handled_by": handledBy}).Error
		},
	}
}

// HandleLoan approves (pending -> active, crediting the borrower) or rejects a loan.
func HandleLoan(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, loanId int, approve bool, now time.Time) (*TransitionResult[models.Loan, models.LoanStatus], error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can handle loans")
	}
	requested := models.LoanStatusRejected
	if approve {
		requested = models.LoanStatusActive
	}
	load := func(tx *gorm.DB) (*models.Loan, error) {
		loan, err := lockInGroup[models.Loan](tx, principal.GroupId, loanId)
		if err != nil {
			return nil, utils.NotFoundOr(err, "loan not found")
		}
		return loan, nil
	}
	return Transition(ctx, db, logger, newLoanMachine(principal.UserId), load, requested, now)
}

// RepayLoan debits the borrower and reduces what is still owed; the loan is paid at zero.
func RepayLoan(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, loanId int, amount decimal.Decimal, now time.Time) (*models.Loan, error) {
	if err := utils.ValidatePositiveAmount("amount", amount); err != nil {
		return nil, err
	}
	var loan *models.Loan
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		loan, err = lockInGroup[models.Loan](tx, principal.GroupId, loanId)
		if err != nil {
			return utils.NotFoundOr(err, "loan not found")
		}
		if loan.UserId != principal.UserId {
			return utils.ForbiddenError("only the borrower can repay a loan")
		}
		if loan.Status != models.LoanStatusActive {
			return utils.ConflictError("loan is %s, not active", loan.Status)
		}
		if amount.GreaterThan(loan.RemainingAmount) {
			return utils.ValidationError("amount exceeds the remaining %s", loan.RemainingAmount.StringFixed(2))
		}
		if _, err := RecordDebit(tx, logger, LedgerEntry{
			UserId:      loan.UserId,
			Amount:      amount,
			Description: fmt.Sprintf("Loan #%d repayment", loan.ID),
			Category:    models.CategoryLoans,
			Type:        models.TransactionTypeTransferOut,
			At:          now,
		}); err != nil {
			return err
		}
		loan.RemainingAmount = utils.Round2(loan.RemainingAmount.Sub(amount))
		updates := map[string]interface{}{"remaining_amount": loan.RemainingAmount}
		if loan.RemainingAmount.IsZero() {
			loan.Status = models.LoanStatusPaid
			updates["status"] = models.LoanStatusPaid
		}
		if err := tx.Model(loan).Updates(updates).Error; err != nil {
			config.LogError(logger, "LoanWorkflow.go", "RepayLoan", "Update Loan", loan.ID, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}
