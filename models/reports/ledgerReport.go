package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500

	exportSheet = "Transactions"
)

// ListTransactions returns the newest ledger entries of userId.
func ListTransactions(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int, limit int) ([]models.Transaction, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot view another user's transactions")
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	limit = min(limit, maxTransactionLimit)
	var transactions []models.Transaction
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", principal.GroupId, userId).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// ExportTransactionsXLSX renders the user's whole ledger, oldest first, with a running balance.
func ExportTransactionsXLSX(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int) ([]byte, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot export another user's transactions")
	}
	started := time.Now()
	defer logSlowReport(ctx, "transactions_export", principal.GroupId, started, map[string]any{"user_id": userId})
	var transactions []models.Transaction
	err := db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", principal.GroupId, userId).
		Order("created_at, id").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headers := []interface{}{"Date", "Type", "Category", "Description", "Amount", "Manual", "Balance"}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return nil, err
	}
	running := decimal.Zero
	for i, t := range transactions {
		running = running.Add(t.SignedAmount())
		amount, _ := t.SignedAmount().Float64()
		balance, _ := running.Float64()
		row := []interface{}{
			t.CreatedAt.Format("2006-01-02 15:04"),
			string(t.Type),
			string(t.Category),
			t.Description,
			amount,
			t.IsManual,
			balance,
		}
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
