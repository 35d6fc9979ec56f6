package workflow

import (
	"context"
	"time"

	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var TaskMachine = RewardMachine[models.Task, models.TaskStatus]{
	Kind: "task",
	Transitions: map[models.TaskStatus][]models.TaskStatus{
		models.TaskStatusPending:       {models.TaskStatusDone, models.TaskStatusCompletedSelf, models.TaskStatusApproved},
		models.TaskStatusDone:          {models.TaskStatusApproved, models.TaskStatusPending},
		models.TaskStatusCompletedSelf: {models.TaskStatusApproved, models.TaskStatusPending},
	},
	Paid:   models.TaskStatusApproved,
	Status: func(t *models.Task) models.TaskStatus { return t.Status },
	Resolve: func(t *models.Task, requested models.TaskStatus, _ time.Time) models.TaskStatus {
		// nothing to approve when there is no reward
		if (requested == models.TaskStatusDone || requested == models.TaskStatusCompletedSelf) && !t.Reward.IsPositive() {
			return models.TaskStatusApproved
		}
		return requested
	},
	Credit: func(t *models.Task, _ models.TaskStatus) decimal.Decimal { return t.Reward },
	Entry: func(t *models.Task) (int, string, models.Category) {
		return t.AssignedTo, "Task reward: " + t.Title, models.CategoryBonus
	},
	Persist: func(tx *gorm.DB, t *models.Task, _ models.TaskStatus, to models.TaskStatus, _ decimal.Decimal, now time.Time) error {
		updates := map[string]interface{}{"status": to}
		t.Status = to
		if to == models.TaskStatusApproved {
			approvedAt := now.UTC()
			t.ApprovedAt = &approvedAt
			updates["approved_at"] = approvedAt
		} else {
			t.ApprovedAt = nil
			updates["approved_at"] = nil
		}
		return tx.Model(t).Updates(updates).Error
	},
}

// UpdateTaskStatus moves a task. The assignee may only report completion; the admin may approve
// or send a task back to pending.
func UpdateTaskStatus(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, taskId int, requested models.TaskStatus, now time.Time) (*TransitionResult[models.Task, models.TaskStatus], error) {
	if !requested.IsValid() {
		return nil, utils.ValidationError("invalid task status %q", requested)
	}
	load := func(tx *gorm.DB) (*models.Task, error) {
		task, err := lockInGroup[models.Task](tx, principal.GroupId, taskId)
		if err != nil {
			return nil, utils.NotFoundOr(err, "task not found")
		}
		if principal.IsAdmin() {
			return task, nil
		}
		if task.AssignedTo != principal.UserId {
			return nil, utils.ForbiddenError("task is assigned to someone else")
		}
		if requested != models.TaskStatusDone && requested != models.TaskStatusCompletedSelf {
			return nil, utils.ForbiddenError("only the group admin can approve tasks")
		}
		return task, nil
	}
	return Transition(ctx, db, logger, TaskMachine, load, requested, now)
}

// lockInGroup fetches a row of the group and locks it for the transaction.
func lockInGroup[T any](tx *gorm.DB, groupId int, id int) (*T, error) {
	row, err := utils.FetchModelForUpdate[T](tx.Where("group_id = ?", groupId), id)
	if err != nil {
		return nil, err
	}
	return row, nil
}
