package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
)

type statusRequest[S any] struct {
	Status S `json:"status" binding:"required"`
}

func (a *App) listTasks(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listTasks", err)
		return
	}
	userId := p.UserId
	if c.Query("user_id") != "" {
		if userId, err = queryId(c, "user_id"); err != nil {
			a.respondError(c, "listTasks", err)
			return
		}
	}
	if !p.CanSee(userId) {
		a.respondError(c, "listTasks", utils.ForbiddenError("cannot view tasks of another user"))
		return
	}
	tasks, err := models.ListTasksForUser(c.Request.Context(), a.DB, p.GroupId, userId)
	if err != nil {
		a.respondError(c, "listTasks", err)
		return
	}
	respondOK(c, gin.H{"tasks": tasks})
}

func (a *App) createTask(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "createTask", err)
		return
	}
	var input models.NewTask
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "createTask", err)
		return
	}
	task, err := models.CreateTask(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "createTask", err)
		return
	}
	respondOK(c, gin.H{"task": task})
}

func (a *App) updateTask(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "updateTask", err)
		return
	}
	taskId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "updateTask", err)
		return
	}
	var input models.NewTask
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "updateTask", err)
		return
	}
	task, err := models.UpdateTask(c.Request.Context(), a.DB, p, taskId, &input)
	if err != nil {
		a.respondError(c, "updateTask", err)
		return
	}
	respondOK(c, gin.H{"task": task})
}

func (a *App) updateTaskStatus(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "updateTaskStatus", err)
		return
	}
	taskId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "updateTaskStatus", err)
		return
	}
	var input statusRequest[models.TaskStatus]
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "updateTaskStatus", err)
		return
	}
	result, err := workflow.UpdateTaskStatus(c.Request.Context(), a.DB, a.Logger, p, taskId, input.Status, a.now())
	if err != nil {
		a.respondError(c, "updateTaskStatus", err)
		return
	}
	respondOK(c, gin.H{"task": result.Entity, "credited": result.Credited, "transaction": result.Transaction})
}
