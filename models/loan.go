package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Loan struct {
	ID              int             `gorm:"primary_key" json:"id"`
	UserId          int             `gorm:"not null;index" json:"user_id"`
	GroupId         int             `gorm:"not null;index" json:"group_id"`
	OriginalAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"original_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"remaining_amount"`
	Reason          string          `gorm:"size:255" json:"reason"`
	Status          LoanStatus      `gorm:"size:20;not null;default:pending" json:"status"`
	HandledBy       *int            `json:"handled_by"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLoan struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=255"`
}

func RequestLoan(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewLoan) (*Loan, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if err := utils.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}
	loan := Loan{
		UserId:          principal.UserId,
		GroupId:         principal.GroupId,
		OriginalAmount:  input.Amount,
		RemainingAmount: input.Amount,
		Reason:          input.Reason,
		Status:          LoanStatusPending,
	}
	if err := db.WithContext(ctx).Create(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func ListLoansForUser(ctx context.Context, db *gorm.DB, groupId int, userId int) ([]Loan, error) {
	var loans []Loan
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupId, userId).
		Order("id DESC").Find(&loans).Error
	return loans, err
}
