package models

import (
	"context"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget is a monthly spend limit. UserId 0 is the group-wide default.
type Budget struct {
	ID          int             `gorm:"primary_key" json:"id"`
	GroupId     int             `gorm:"not null;uniqueIndex:idx_budgets_scope" json:"group_id"`
	UserId      int             `gorm:"not null;default:0;uniqueIndex:idx_budgets_scope" json:"user_id"`
	Category    Category        `gorm:"size:20;not null;uniqueIndex:idx_budgets_scope" json:"category"`
	LimitAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"limit_amount"`
}

type NewBudgetLimit struct {
	UserId      int             `json:"user_id"`
	Category    Category        `json:"category" binding:"required"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
}

// EnsureBudgets returns one row per budget category for the scope, creating zero-limit rows as needed.
func EnsureBudgets(tx *gorm.DB, groupId int, userId int) ([]Budget, error) {
	budgets := make([]Budget, 0, len(BudgetCategories))
	for _, category := range BudgetCategories {
		var b Budget
		err := tx.Where(Budget{GroupId: groupId, UserId: userId, Category: category}).
			Where("user_id = ?", userId).
			Attrs(Budget{LimitAmount: decimal.Zero}).
			FirstOrCreate(&b).Error
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

// UpsertBudget sets the limit of one category. Only the admin can change limits.
func UpsertBudget(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewBudgetLimit) (*Budget, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can set budgets")
	}
	if !input.Category.IsBudgetCategory() {
		return nil, utils.ValidationError("invalid budget category %q", input.Category)
	}
	if err := utils.ValidateNonNegativeAmount("limit_amount", input.LimitAmount); err != nil {
		return nil, err
	}
	if input.UserId != 0 {
		if err := utils.ValidateResourceId[User](ctx, db, principal.GroupId, input.UserId); err != nil {
			return nil, utils.NotFoundOr(err, "user not found")
		}
	}
	var budget Budget
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(Budget{GroupId: principal.GroupId, UserId: input.UserId, Category: input.Category}).
			Where("user_id = ?", input.UserId).
			Attrs(Budget{LimitAmount: input.LimitAmount}).
			FirstOrCreate(&budget).Error
		if err != nil {
			return err
		}
		if budget.LimitAmount.Equal(input.LimitAmount) {
			return nil
		}
		budget.LimitAmount = input.LimitAmount
		return tx.Model(&budget).Update("limit_amount", input.LimitAmount).Error
	})
	if err != nil {
		return nil, utils.ConflictOnDuplicate(err, "budget was changed concurrently, retry")
	}
	return &budget, nil
}
