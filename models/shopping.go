package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShoppingItem struct {
	ID        int            `gorm:"primary_key" json:"id"`
	GroupId   int            `gorm:"not null;index" json:"group_id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	Status    ShoppingStatus `gorm:"size:20;not null;default:needed;index" json:"status"`
	AddedBy   int            `gorm:"not null" json:"added_by"`
	BoughtBy  *int           `json:"bought_by"`
	TripId    *int           `gorm:"index" json:"trip_id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// ShoppingTrip is one checkout: the bought items and the expense that paid for them.
type ShoppingTrip struct {
	ID            int             `gorm:"primary_key" json:"id"`
	GroupId       int             `gorm:"not null;index" json:"group_id"`
	UserId        int             `gorm:"not null;index" json:"user_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	ItemCount     int             `gorm:"not null" json:"item_count"`
	TransactionId int             `gorm:"not null" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewShoppingItem struct {
	Name     string `json:"name" binding:"required" validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

type UpdateShoppingItemInput struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Quantity *int            `json:"quantity" validate:"omitempty,min=1,max=1000"`
	Status   *ShoppingStatus `json:"status"`
}

type CheckoutInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

func AddShoppingItem(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewShoppingItem) (*ShoppingItem, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	item := ShoppingItem{
		GroupId:  principal.GroupId,
		Name:     input.Name,
		Quantity: input.Quantity,
		Status:   ShoppingStatusNeeded,
		AddedBy:  principal.UserId,
	}
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateShoppingItem edits an item still on the list. Only needed <-> in_cart moves are allowed;
// items become bought through checkout.
func UpdateShoppingItem(ctx context.Context, db *gorm.DB, principal utils.Principal, itemId int, input *UpdateShoppingItemInput) (*ShoppingItem, error) {
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	var item *ShoppingItem
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = utils.FetchModel[ShoppingItem](ctx, tx, principal.GroupId, itemId)
		if err != nil {
			return utils.NotFoundOr(err, "shopping item not found")
		}
		if item.Status == ShoppingStatusBought {
			return utils.ConflictError("item was already bought")
		}
		updates := map[string]interface{}{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return utils.ValidationError("name must not be empty")
			}
			updates["name"] = name
			item.Name = name
		}
		if input.Quantity != nil {
			updates["quantity"] = *input.Quantity
			item.Quantity = *input.Quantity
		}
		if input.Status != nil {
			if !input.Status.IsValid() {
				return utils.ValidationError("invalid shopping status %q", *input.Status)
			}
			if *input.Status == ShoppingStatusBought {
				return utils.ValidationError("use checkout to mark items bought")
			}
			updates["status"] = *input.Status
			item.Status = *input.Status
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(item).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListShopping returns the open list (needed and in_cart), oldest first.
func ListShopping(ctx context.Context, db *gorm.DB, groupId int) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := db.WithContext(ctx).
		Where("group_id = ? AND status <> ?", groupId, ShoppingStatusBought).
		Order("id").Find(&items).Error
	return items, err
}
