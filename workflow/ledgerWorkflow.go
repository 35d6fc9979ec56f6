package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerEntry is one balance-affecting event to post.
type LedgerEntry struct {
	UserId      int
	Amount      decimal.Decimal
	Description string
	Category    models.Category
	Type        models.TransactionType
	IsManual    bool
	At          time.Time
	// RequireFunds rejects a debit that would take the balance below zero.
	RequireFunds bool
}

// Record inserts the ledger entry and moves the user's balance by the signed amount.
// It must run inside the caller's transaction so both writes commit together.
func Record(tx *gorm.DB, logger *logrus.Logger, entry LedgerEntry) (*models.Transaction, error) {
	if err := utils.ValidatePositiveAmount("amount", entry.Amount); err != nil {
		return nil, err
	}
	if !entry.Type.IsValid() {
		return nil, utils.ValidationError("invalid transaction type %q", entry.Type)
	}
	if !entry.Category.IsValid() {
		return nil, utils.ValidationError("invalid category %q", entry.Category)
	}

	user, err := utils.FetchModelForUpdate[models.User](tx, entry.UserId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFoundError("user not found")
		}
		config.LogError(logger, "LedgerWorkflow.go", "Record", "FetchModelForUpdate", entry.UserId, err)
		return nil, err
	}

	delta := entry.Amount.Mul(decimal.NewFromInt(entry.Type.Sign()))
	newBalance := utils.Round2(user.Balance.Add(delta))
	if entry.Type.IsDebit() && entry.RequireFunds && user.Balance.LessThan(entry.Amount) {
		return nil, utils.InsufficientFundsError("insufficient funds")
	}

	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	transaction := models.Transaction{
		UserId:      user.ID,
		GroupId:     user.GroupId,
		Amount:      entry.Amount,
		Description: strings.TrimSpace(entry.Description),
		Category:    entry.Category,
		Type:        entry.Type,
		IsManual:    entry.IsManual,
		CreatedAt:   at.UTC(),
	}
	if err := tx.Create(&transaction).Error; err != nil {
		config.LogError(logger, "LedgerWorkflow.go", "Record", "Create Transaction", transaction, err)
		return nil, err
	}
	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("balance", newBalance).Error; err != nil {
		config.LogError(logger, "LedgerWorkflow.go", "Record", "Update Balance", user.ID, err)
		return nil, err
	}
	return &transaction, nil
}

// RecordDebit posts an expense or transfer_out that must be covered by the current balance.
func RecordDebit(tx *gorm.DB, logger *logrus.Logger, entry LedgerEntry) (*models.Transaction, error) {
	if !entry.Type.IsDebit() {
		return nil, utils.ValidationError("debit requires an expense or transfer_out type")
	}
	entry.RequireFunds = true
	return Record(tx, logger, entry)
}

// RecordManual lets a member post their own income or expense.
func RecordManual(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, input *models.NewManualTransaction, now time.Time) (*models.Transaction, error) {
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if input.Type == models.TransactionTypeTransferOut {
		return nil, utils.ValidationError("manual entries must be income or expense")
	}
	var transaction *models.Transaction
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		transaction, err = Record(tx, logger, LedgerEntry{
			UserId:       principal.UserId,
			Amount:       input.Amount,
			Description:  input.Description,
			Category:     input.Category,
			Type:         input.Type,
			IsManual:     true,
			At:           now,
			RequireFunds: input.Type.IsDebit(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func sumWhere(db *gorm.DB, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := db.Model(&models.Transaction{}).
		Select("SUM(amount)").
		Where(query, args...).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return utils.Round2(total.Decimal), nil
}

// SumExpenses totals the user's expense entries created at or after since.
func SumExpenses(db *gorm.DB, userId int, since time.Time) (decimal.Decimal, error) {
	return sumWhere(db, "user_id = ? AND type = ? AND created_at >= ?",
		userId, models.TransactionTypeExpense, since.UTC())
}

// SumIncome totals income entries since the given time, optionally restricted to categories.
func SumIncome(db *gorm.DB, userId int, since time.Time, categories ...models.Category) (decimal.Decimal, error) {
	if len(categories) == 0 {
		return sumWhere(db, "user_id = ? AND type = ? AND created_at >= ?",
			userId, models.TransactionTypeIncome, since.UTC())
	}
	return sumWhere(db, "user_id = ? AND type = ? AND created_at >= ? AND category IN ?",
		userId, models.TransactionTypeIncome, since.UTC(), categories)
}

// LedgerBalance recomputes the balance from the ledger alone.
func LedgerBalance(db *gorm.DB, userId int) (decimal.Decimal, error) {
	income, err := sumWhere(db, "user_id = ? AND type = ?", userId, models.TransactionTypeIncome)
	if err != nil {
		return decimal.Zero, err
	}
	debits, err := sumWhere(db, "user_id = ? AND type IN ?", userId,
		[]models.TransactionType{models.TransactionTypeExpense, models.TransactionTypeTransferOut})
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(debits), nil
}

// BalanceMismatch is a user whose stored balance disagrees with the ledger.
type BalanceMismatch struct {
	UserId   int             `json:"user_id"`
	Nickname string          `json:"nickname"`
	Stored   decimal.Decimal `json:"stored"`
	Ledger   decimal.Decimal `json:"ledger"`
}

// AuditBalances compares every user (optionally one group) against the ledger.
func AuditBalances(db *gorm.DB, groupId int) ([]BalanceMismatch, error) {
	var users []models.User
	q := db.Model(&models.User{})
	if groupId > 0 {
		q = q.Where("group_id = ?", groupId)
	}
	if err := q.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	var mismatches []BalanceMismatch
	for _, u := range users {
		ledger, err := LedgerBalance(db, u.ID)
		if err != nil {
			return nil, err
		}
		if !ledger.Equal(u.Balance) {
			mismatches = append(mismatches, BalanceMismatch{UserId: u.ID, Nickname: u.Nickname, Stored: u.Balance, Ledger: ledger})
		}
	}
	return mismatches, nil
}
