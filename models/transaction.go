package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger entry. Amount is always positive; Type carries the sign.
type Transaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	UserId      int             `gorm:"not null;index:idx_transactions_user_created" json:"user_id"`
	GroupId     int             `gorm:"not null;index" json:"group_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Description string          `gorm:"size:255" json:"description"`
	Category    Category        `gorm:"size:20;not null;index" json:"category"`
	Type        TransactionType `gorm:"size:20;not null" json:"type"`
	IsManual    bool            `gorm:"not null;default:false" json:"is_manual"`
	CreatedAt   time.Time       `gorm:"not null;index:idx_transactions_user_created" json:"created_at"`
}

// SignedAmount is the effect of the entry on the owner's balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(t.Type.Sign()))
}

type NewManualTransaction struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	Category    Category        `json:"category" binding:"required"`
	Type        TransactionType `json:"type" binding:"required"`
}
