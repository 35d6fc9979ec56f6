package workflow

import (
	"context"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type GoalDeposit struct {
	Goal        *models.Goal        `json:"goal"`
	Transaction *models.Transaction `json:"transaction"`
}

// DepositToGoal adds amount to a goal. The owner pays from their balance; the group admin
// funding someone else's goal credits the owner instead.
func DepositToGoal(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, goalId int, amount decimal.Decimal, now time.Time) (*GoalDeposit, error) {
	if err := utils.ValidatePositiveAmount("amount", amount); err != nil {
		return nil, err
	}
	var result GoalDeposit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goal, err := lockInGroup[models.Goal](tx, principal.GroupId, goalId)
		if err != nil {
			return utils.NotFoundOr(err, "goal not found")
		}

		entry := LedgerEntry{UserId: goal.UserId, Amount: amount, At: now}
		switch {
		case goal.UserId == principal.UserId:
			entry.Type = models.TransactionTypeTransferOut
			entry.Category = models.CategorySavings
			entry.Description = "Saved to goal: " + goal.Title
			entry.RequireFunds = true
		case principal.IsAdmin():
			entry.Type = models.TransactionTypeIncome
			entry.Category = models.CategoryBonus
			entry.Description = "Goal boost: " + goal.Title
		default:
			return utils.ForbiddenError("only the owner or the group admin can fund this goal")
		}
		transaction, err := Record(tx, logger, entry)
		if err != nil {
			return err
		}

		goal.CurrentAmount = utils.Round2(goal.CurrentAmount.Add(amount))
		updates := map[string]interface{}{"current_amount": goal.CurrentAmount}
		if goal.Status == models.GoalStatusActive && goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
			goal.Status = models.GoalStatusCompleted
			updates["status"] = goal.Status
		}
		if err := tx.Model(goal).Updates(updates).Error; err != nil {
			config.LogError(logger, "GoalWorkflow.go", "DepositToGoal", "Update Goal", goal.ID, err)
			return err
		}
		result.Goal = goal
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
