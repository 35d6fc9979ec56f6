package reports

import (
	"context"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BudgetScopeAll  = "all"
	BudgetScopeUser = "user"

	AllocationsCategory = "allocations"
)

type BudgetCategoryStatus struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

type BudgetStatus struct {
	GroupId    int                    `json:"group_id"`
	UserId     int                    `json:"user_id,omitempty"`
	Scope      string                 `json:"scope"`
	Month      string                 `json:"month"`
	Categories []BudgetCategoryStatus `json:"categories"`
}

type categoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// EmptyBudgetStatus is the default shape returned when the report cannot be built: every budget
// category at zero, plus the allocations line for the group scope, in the order GetBudgetStatus uses.
func EmptyBudgetStatus(groupId int, userId int, now time.Time) *BudgetStatus {
	status := newBudgetStatus(groupId, userId, now)
	for _, c := range models.BudgetCategories {
		status.Categories = append(status.Categories, zeroLine(string(c)))
	}
	if status.Scope == BudgetScopeAll {
		status.Categories = append(status.Categories, zeroLine(AllocationsCategory))
	}
	return status
}

func zeroLine(category string) BudgetCategoryStatus {
	return BudgetCategoryStatus{Category: category, Limit: decimal.Zero, Spent: decimal.Zero, Remaining: decimal.Zero}
}

func newBudgetStatus(groupId int, userId int, now time.Time) *BudgetStatus {
	scope := BudgetScopeAll
	if userId > 0 {
		scope = BudgetScopeUser
	}
	return &BudgetStatus{
		GroupId:    groupId,
		UserId:     userId,
		Scope:      scope,
		Month:      utils.MonthStart(now).Format("2006-01"),
		Categories: []BudgetCategoryStatus{},
	}
}

// GetBudgetStatus reports month-to-date spend per budget category for one user (userId > 0)
// or the whole group (userId 0). Missing budget rows are created with a zero limit.
func GetBudgetStatus(ctx context.Context, db *gorm.DB, groupId int, userId int, now time.Time) (*BudgetStatus, error) {
	started := time.Now()
	defer logSlowReport(ctx, "budget_status", groupId, started, map[string]any{"user_id": userId})
	status := newBudgetStatus(groupId, userId, now)
	monthStart := utils.MonthStart(now)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budgets, err := models.EnsureBudgets(tx, groupId, userId)
		if err != nil {
			return err
		}

		q := tx.Model(&models.Transaction{}).
			Select("category, SUM(amount) AS total").
			Where("group_id = ? AND type = ? AND created_at >= ?", groupId, models.TransactionTypeExpense, monthStart)
		if userId > 0 {
			q = q.Where("user_id = ?", userId)
		}
		var totals []categoryTotal
		if err := q.Group("category").Scan(&totals).Error; err != nil {
			return err
		}
		spent := make(map[string]decimal.Decimal, len(totals))
		for _, t := range totals {
			spent[t.Category] = utils.Round2(t.Total)
		}

		for _, b := range budgets {
			s := spent[string(b.Category)]
			status.Categories = append(status.Categories, BudgetCategoryStatus{
				Category:  string(b.Category),
				Limit:     b.LimitAmount,
				Spent:     s,
				Remaining: b.LimitAmount.Sub(s),
			})
		}

		if userId > 0 {
			return nil
		}
		allocations, err := sumAllocations(tx, groupId, monthStart)
		if err != nil {
			return err
		}
		status.Categories = append(status.Categories, BudgetCategoryStatus{
			Category:  AllocationsCategory,
			Limit:     decimal.Zero,
			Spent:     allocations,
			Remaining: decimal.Zero,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// sumAllocations totals system-paid allowance, salary and bonus income of non-admin members.
func sumAllocations(tx *gorm.DB, groupId int, since time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&models.Transaction{}).
		Select("SUM(transactions.amount)").
		Joins("JOIN users ON users.id = transactions.user_id").
		Where("transactions.group_id = ? AND transactions.type = ? AND transactions.is_manual = ? AND transactions.created_at >= ?",
			groupId, models.TransactionTypeIncome, false, since).
		Where("transactions.category IN ?", models.AllocationCategories).
		Where("users.role = ?", models.UserRoleMember).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return utils.Round2(total.Decimal), nil
}
