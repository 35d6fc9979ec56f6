package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/hearthbank/family_backend/workflow")

// RewardMachine describes an entity whose state machine pays out once on entering Paid.
type RewardMachine[E any, S ~string] struct {
	Kind        string
	Transitions map[S][]S
	Paid        S
	Status      func(e *E) S
	// Resolve may override the requested target, e.g. a late quiz or a zero-reward task.
	Resolve func(e *E, requested S, now time.Time) S
	Credit  func(e *E, to S) decimal.Decimal
	Entry   func(e *E) (userId int, description string, category models.Category)
	Persist func(tx *gorm.DB, e *E, from S, to S, credit decimal.Decimal, now time.Time) error
}

func (m RewardMachine[E, S]) allowed(from S, to S) bool {
	return slices.Contains(m.Transitions[from], to)
}

type TransitionResult[E any, S ~string] struct {
	Entity      *E
	From        S
	To          S
	Credited    decimal.Decimal
	Transaction *models.Transaction
	// NoOp is set when the entity was already paid; nothing was written.
	NoOp bool
}

// Transition loads (and locks) the entity, moves it to the resolved state and credits the
// ledger when it enters Paid, all inside one database transaction.
func Transition[E any, S ~string](ctx context.Context, db *gorm.DB, logger *logrus.Logger, m RewardMachine[E, S], load func(tx *gorm.DB) (*E, error), requested S, now time.Time) (*TransitionResult[E, S], error) {
	ctx, span := tracer.Start(ctx, "reward.transition")
	defer span.End()
	span.SetAttributes(attribute.String("reward.kind", m.Kind), attribute.String("reward.requested", string(requested)))

	var result *TransitionResult[E, S]
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := load(tx)
		if err != nil {
			return err
		}
		from := m.Status(e)
		to := requested
		if m.Resolve != nil {
			to = m.Resolve(e, requested, now)
		}
		if from == m.Paid && to == m.Paid {
			result = &TransitionResult[E, S]{Entity: e, From: from, To: to, Credited: decimal.Zero, NoOp: true}
			return nil
		}
		if !m.allowed(from, to) {
			return utils.ConflictError("%s cannot move from %s to %s", m.Kind, from, to)
		}

		credit := decimal.Zero
		if to == m.Paid && m.Credit != nil {
			credit = utils.Round2(m.Credit(e, to))
		}
		if err := m.Persist(tx, e, from, to, credit, now); err != nil {
			config.LogError(logger, "RewardWorkflow.go", "Transition", "Persist "+m.Kind, nil, err)
			return err
		}

		result = &TransitionResult[E, S]{Entity: e, From: from, To: to, Credited: decimal.Zero}
		if to != m.Paid || !credit.IsPositive() {
			return nil
		}
		userId, description, category := m.Entry(e)
		transaction, err := Record(tx, logger, LedgerEntry{
			UserId:      userId,
			Amount:      credit,
			Description: description,
			Category:    category,
			Type:        models.TransactionTypeIncome,
			At:          now,
		})
		if err != nil {
			return err
		}
		result.Credited = credit
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%s transition failed", m.Kind))
		return nil, err
	}
	span.SetAttributes(attribute.String("reward.resolved", string(result.To)), attribute.Bool("reward.noop", result.NoOp))
	return result, nil
}
