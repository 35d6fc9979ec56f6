package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Goal struct {
	ID            int             `gorm:"primary_key" json:"id"`
	UserId        int             `gorm:"not null;index" json:"user_id"`
	GroupId       int             `gorm:"not null;index" json:"group_id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"current_amount"`
	Status        GoalStatus      `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewGoal struct {
	UserId       int             `json:"user_id"`
	Title        string          `json:"title" binding:"required" validate:"required,max=200"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// CreateGoal creates a goal for the caller, or for another member when the caller is admin.
func CreateGoal(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewGoal) (*Goal, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if err := utils.ValidatePositiveAmount("target_amount", input.TargetAmount); err != nil {
		return nil, err
	}
	ownerId := input.UserId
	if ownerId == 0 {
		ownerId = principal.UserId
	}
	if ownerId != principal.UserId && !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can create goals for others")
	}
	if err := utils.ValidateResourceId[User](ctx, db, principal.GroupId, ownerId); err != nil {
		return nil, utils.NotFoundOr(err, "user not found")
	}
	goal := Goal{
		UserId:        ownerId,
		GroupId:       principal.GroupId,
		Title:         input.Title,
		TargetAmount:  input.TargetAmount,
		CurrentAmount: decimal.Zero,
		Status:        GoalStatusActive,
	}
	if err := db.WithContext(ctx).Create(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func ListGoals(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int) ([]Goal, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot view goals of another user")
	}
	var goals []Goal
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", principal.GroupId, userId).
		Order("id").Find(&goals).Error
	return goals, err
}

// SumActiveGoals is the total saved in the user's active goals.
func SumActiveGoals(db *gorm.DB, userId int) (decimal.Decimal, error) {
	var goals []Goal
	if err := db.Where("user_id = ? AND status = ?", userId, GoalStatusActive).Find(&goals).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, g := range goals {
		total = total.Add(g.CurrentAmount)
	}
	return total, nil
}
