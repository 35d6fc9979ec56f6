package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Task struct {
	ID         int             `gorm:"primary_key" json:"id"`
	GroupId    int             `gorm:"not null;index" json:"group_id"`
	Title      string          `gorm:"size:200;not null" json:"title"`
	Reward     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"reward"`
	Status     TaskStatus      `gorm:"size:20;not null;default:pending" json:"status"`
	AssignedTo int             `gorm:"not null;index" json:"assigned_to"`
	CreatedBy  int             `gorm:"not null" json:"created_by"`
	ApprovedAt *time.Time      `json:"approved_at"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTask struct {
	Title      string          `json:"title" binding:"required" validate:"required,max=200"`
	Reward     decimal.Decimal `json:"reward"`
	AssignedTo int             `json:"assigned_to" binding:"required" validate:"required,gt=0"`
}

func validateTaskInput(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewTask) error {
	input.Title = strings.TrimSpace(input.Title)
	if err := utils.Validate(input); err != nil {
		return err
	}
	if err := utils.ValidateNonNegativeAmount("reward", input.Reward); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[User](ctx, db, principal.GroupId, input.AssignedTo); err != nil {
		return utils.NotFoundOr(err, "assignee not found")
	}
	return nil
}

func CreateTask(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewTask) (*Task, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can create tasks")
	}
	if err := validateTaskInput(ctx, db, principal, input); err != nil {
		return nil, err
	}
	task := Task{
		GroupId:    principal.GroupId,
		Title:      input.Title,
		Reward:     input.Reward,
		Status:     TaskStatusPending,
		AssignedTo: input.AssignedTo,
		CreatedBy:  principal.UserId,
	}
	if err := db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask edits title, reward or assignee. Approved tasks are frozen, and the row stays locked
// until the edit commits.
func UpdateTask(ctx context.Context, db *gorm.DB, principal utils.Principal, taskId int, input *NewTask) (*Task, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can edit tasks")
	}
	if err := validateTaskInput(ctx, db, principal, input); err != nil {
		return nil, err
	}
	var task *Task
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = utils.FetchModelForUpdate[Task](tx.Where("group_id = ?", principal.GroupId), taskId)
		if err != nil {
			return utils.NotFoundOr(err, "task not found")
		}
		if task.Status == TaskStatusApproved {
			return utils.ConflictError("approved tasks cannot be edited")
		}
		task.Title, task.Reward, task.AssignedTo = input.Title, input.Reward, input.AssignedTo
		return tx.Model(task).Updates(map[string]interface{}{
			"title":       task.Title,
			"reward":      task.Reward,
			"assigned_to": task.AssignedTo,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasksForUser returns the user's tasks, newest first.
func ListTasksForUser(ctx context.Context, db *gorm.DB, groupId int, userId int) ([]Task, error) {
	var tasks []Task
	err := db.WithContext(ctx).
		Where("group_id = ? AND assigned_to = ?", groupId, userId).
		Order("id DESC").Find(&tasks).Error
	return tasks, err
}
