package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	NoteSpentOver = "spent over 20%"

	paydayLockTTL = 2 * time.Minute
)

var allowedSpendingShare = decimal.RequireFromString("0.20")

type EligibilityResult struct {
	ApproxAvailable decimal.Decimal `json:"approx_available"`
	AllowedSpending decimal.Decimal `json:"allowed_spending"`
	Eligible        bool            `json:"eligible"`
}

// Eligibility applies the 20% rule: spending in the last week may not exceed a fifth of what
// was approximately available before it (balance + saved in goals + spent).
func Eligibility(balance, goalsTotal, expensesLastWeek decimal.Decimal) EligibilityResult {
	approxAvailable := balance.Add(goalsTotal).Add(expensesLastWeek)
	allowed := approxAvailable.Mul(allowedSpendingShare)
	return EligibilityResult{
		ApproxAvailable: approxAvailable,
		AllowedSpending: allowed,
		Eligible:        expensesLastWeek.LessThanOrEqual(allowed),
	}
}

// Interest is round2(balance * rate / 100), or zero unless both are positive.
func Interest(balance, rate decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return utils.Percent(balance, rate)
}

type PaydayLine struct {
	UserId           int             `json:"user_id"`
	Nickname         string          `json:"nickname"`
	Allowance        decimal.Decimal `json:"allowance"`
	Interest         decimal.Decimal `json:"interest"`
	ExpensesLastWeek decimal.Decimal `json:"expenses_last_week"`
	AllowedSpending  decimal.Decimal `json:"allowed_spending"`
	Note             string          `json:"note,omitempty"`
}

type PaydayReport struct {
	GroupId int             `json:"group_id"`
	RanAt   time.Time       `json:"ran_at"`
	Lines   []PaydayLine    `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}

// RunPayday pays allowance and interest to every active member of the group in one transaction.
// Running it twice pays twice.
func RunPayday(ctx context.Context, db *gorm.DB, logger *logrus.Logger, locker *redislock.Client, groupId int, now time.Time) (*PaydayReport, error) {
	ctx, span := tracer.Start(ctx, "payday.run")
	defer span.End()
	span.SetAttributes(attribute.Int("group.id", groupId))

	if locker != nil {
		lock, err := locker.Obtain(ctx, fmt.Sprintf("payday:%d", groupId), paydayLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, utils.ConflictError("payday is already running for this group")
		} else if err != nil {
			logger.WithFields(logrus.Fields{
				"field":    "RunPayday",
				"group_id": groupId,
			}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		} else {
			defer func() {
				_ = lock.Release(context.WithoutCancel(ctx))
			}()
		}
	}

	report := &PaydayReport{GroupId: groupId, RanAt: now.UTC(), Lines: []PaydayLine{}, Total: decimal.Zero}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[models.Group](ctx, tx, 0, groupId); err != nil {
			return utils.NotFoundOr(err, "group not found")
		}
		var members []models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ? AND role = ? AND status = ?", groupId, models.UserRoleMember, models.UserStatusActive).
			Order("id").Find(&members).Error
		if err != nil {
			config.LogError(logger, "PaydayWorkflow.go", "RunPayday", "Find Members", groupId, err)
			return err
		}
		for _, member := range members {
			line, err := payMember(tx, logger, member, now)
			if err != nil {
				config.LogError(logger, "PaydayWorkflow.go", "RunPayday", "payMember", member.ID, err)
				return err
			}
			report.Lines = append(report.Lines, *line)
			report.Total = report.Total.Add(line.Allowance).Add(line.Interest)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payday failed")
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"group_id": groupId,
		"members":  len(report.Lines),
		"total":    report.Total.StringFixed(2),
	}).Info("payday completed")
	return report, nil
}

func payMember(tx *gorm.DB, logger *logrus.Logger, member models.User, now time.Time) (*PaydayLine, error) {
	expensesLastWeek, err := SumExpenses(tx, member.ID, utils.WeekAgo(now))
	if err != nil {
		return nil, err
	}
	goalsTotal, err := models.SumActiveGoals(tx, member.ID)
	if err != nil {
		return nil, err
	}
	eligibility := Eligibility(member.Balance, goalsTotal, expensesLastWeek)

	line := PaydayLine{
		UserId:           member.ID,
		Nickname:         member.Nickname,
		Allowance:        decimal.Zero,
		Interest:         decimal.Zero,
		ExpensesLastWeek: expensesLastWeek,
		AllowedSpending:  utils.Round2(eligibility.AllowedSpending),
	}
	if eligibility.Eligible {
		line.Interest = Interest(member.Balance, member.InterestRate)
	} else {
		line.Note = NoteSpentOver
	}

	if member.AllowanceAmount.IsPositive() {
		if _, err := Record(tx, logger, LedgerEntry{
			UserId:      member.ID,
			Amount:      member.AllowanceAmount,
			Description: "Weekly allowance",
			Category:    models.CategoryAllowance,
			Type:        models.TransactionTypeIncome,
			At:          now,
		}); err != nil {
			return nil, err
		}
		line.Allowance = member.AllowanceAmount
	}
	if line.Interest.IsPositive() {
		if _, err := Record(tx, logger, LedgerEntry{
			UserId:      member.ID,
			Amount:      line.Interest,
			Description: fmt.Sprintf("Interest %s%%", member.InterestRate.String()),
			Category:    models.CategoryBonus,
			Type:        models.TransactionTypeIncome,
			At:          now,
		}); err != nil {
			return nil, err
		}
	}
	return &line, nil
}
