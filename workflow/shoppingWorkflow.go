package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckoutResult struct {
	Trip        *models.ShoppingTrip  `json:"trip"`
	Items       []models.ShoppingItem `json:"items"`
	Transaction *models.Transaction   `json:"transaction"`
}

// CheckoutTrip marks every in-cart item of the group bought and charges the shopper once.
func CheckoutTrip(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, input *models.CheckoutInput, now time.Time) (*CheckoutResult, error) {
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if err := utils.ValidatePositiveAmount("amount", input.Amount); err != nil {
		return nil, err
	}
	var result CheckoutResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.ShoppingItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ? AND status = ?", principal.GroupId, models.ShoppingStatusInCart).
			Order("id").Find(&items).Error
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return utils.ValidationError("cart is empty")
		}

		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = fmt.Sprintf("Shopping trip (%d items)", len(items))
		}
		transaction, err := RecordDebit(tx, logger, LedgerEntry{
			UserId:      principal.UserId,
			Amount:      input.Amount,
			Description: description,
			Category:    models.CategoryGroceries,
			Type:        models.TransactionTypeExpense,
			At:          now,
		})
		if err != nil {
			return err
		}

		trip := models.ShoppingTrip{
			GroupId:       principal.GroupId,
			UserId:        principal.UserId,
			TotalAmount:   input.Amount,
			ItemCount:     len(items),
			TransactionId: transaction.ID,
		}
		if err := tx.Create(&trip).Error; err != nil {
			config.LogError(logger, "ShoppingWorkflow.go", "CheckoutTrip", "Create Trip", trip, err)
			return err
		}

		ids := make([]int, len(items))
		for i := range items {
			ids[i] = items[i].ID
			items[i].Status = models.ShoppingStatusBought
			items[i].BoughtBy = &principal.UserId
			items[i].TripId = &trip.ID
		}
		err = tx.Model(&models.ShoppingItem{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status":    models.ShoppingStatusBought,
			"bought_by": principal.UserId,
			"trip_id":   trip.ID,
		}).Error
		if err != nil {
			config.LogError(logger, "ShoppingWorkflow.go", "CheckoutTrip", "Mark Bought", ids, err)
			return err
		}

		result = CheckoutResult{Trip: &trip, Items: items, Transaction: transaction}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
