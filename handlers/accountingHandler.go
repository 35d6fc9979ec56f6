package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/models/reports"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (a *App) recordTransaction(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "recordTransaction", err)
		return
	}
	var input models.NewManualTransaction
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "recordTransaction", err)
		return
	}
	transaction, err := workflow.RecordManual(c.Request.Context(), a.DB, a.Logger, p, &input, a.now())
	if err != nil {
		a.respondError(c, "recordTransaction", err)
		return
	}
	respondOK(c, gin.H{"transaction": transaction})
}

func (a *App) listTransactions(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listTransactions", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "listTransactions", err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	transactions, err := reports.ListTransactions(c.Request.Context(), a.DB, p, userId, limit)
	if err != nil {
		a.respondError(c, "listTransactions", err)
		return
	}
	respondOK(c, gin.H{"transactions": transactions})
}

func (a *App) exportTransactions(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "exportTransactions", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "exportTransactions", err)
		return
	}
	data, err := reports.ExportTransactionsXLSX(c.Request.Context(), a.DB, p, userId)
	if err != nil {
		a.respondError(c, "exportTransactions", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=transactions-"+strconv.Itoa(userId)+".xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (a *App) listGoals(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listGoals", err)
		return
	}
	userId := p.UserId
	if raw := c.Query("user_id"); raw != "" {
		if userId, err = strconv.Atoi(raw); err != nil {
			a.respondError(c, "listGoals", utils.ValidationError("invalid user_id"))
			return
		}
	}
	goals, err := models.ListGoals(c.Request.Context(), a.DB, p, userId)
	if err != nil {
		a.respondError(c, "listGoals", err)
		return
	}
	respondOK(c, gin.H{"goals": goals})
}

func (a *App) createGoal(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "createGoal", err)
		return
	}
	var input models.NewGoal
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "createGoal", err)
		return
	}
	goal, err := models.CreateGoal(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "createGoal", err)
		return
	}
	respondOK(c, gin.H{"goal": goal})
}

func (a *App) depositToGoal(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "depositToGoal", err)
		return
	}
	goalId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "depositToGoal", err)
		return
	}
	var input amountRequest
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "depositToGoal", err)
		return
	}
	result, err := workflow.DepositToGoal(c.Request.Context(), a.DB, a.Logger, p, goalId, input.Amount, a.now())
	if err != nil {
		a.respondError(c, "depositToGoal", err)
		return
	}
	respondOK(c, gin.H{"goal": result.Goal, "transaction": result.Transaction})
}

func (a *App) runPayday(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "runPayday", err)
		return
	}
	groupId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "runPayday", err)
		return
	}
	if err := requireGroup(p, groupId); err != nil {
		a.respondError(c, "runPayday", err)
		return
	}
	if err := requireAdmin(p); err != nil {
		a.respondError(c, "runPayday", err)
		return
	}
	report, err := workflow.RunPayday(c.Request.Context(), a.DB, a.Logger, a.Redis.LockClient(), groupId, a.now())
	if err != nil {
		a.respondError(c, "runPayday", err)
		return
	}
	respondOK(c, gin.H{"report": report})
}

// budgetTarget reads ?user_id=; empty or "all" selects the whole group.
func budgetTarget(c *gin.Context, p utils.Principal) (int, error) {
	raw := strings.TrimSpace(c.Query("user_id"))
	if raw == "" || strings.EqualFold(raw, reports.BudgetScopeAll) {
		return 0, nil
	}
	userId, err := strconv.Atoi(raw)
	if err != nil || userId <= 0 {
		return 0, utils.ValidationError("invalid user_id")
	}
	if !p.CanSee(userId) {
		return 0, utils.ForbiddenError("cannot view another user's budget")
	}
	return userId, nil
}

func (a *App) getBudgetStatus(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "getBudgetStatus", err)
		return
	}
	groupId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "getBudgetStatus", err)
		return
	}
	if err := requireGroup(p, groupId); err != nil {
		a.respondError(c, "getBudgetStatus", err)
		return
	}
	userId, err := budgetTarget(c, p)
	if err != nil {
		a.respondError(c, "getBudgetStatus", err)
		return
	}
	if userId > 0 {
		if err := utils.ValidateResourceId[models.User](c.Request.Context(), a.DB, groupId, userId); err != nil {
			a.respondError(c, "getBudgetStatus", utils.NotFoundOr(err, "user not found"))
			return
		}
	}
	now := a.now()
	status, err := reports.GetBudgetStatus(c.Request.Context(), a.DB, groupId, userId, now)
	if err != nil {
		config.LogError(a.Logger, "handlers", "getBudgetStatus", "GetBudgetStatus", groupId, err)
		status = reports.EmptyBudgetStatus(groupId, userId, now)
	}
	respondOK(c, gin.H{"budget": status})
}

func (a *App) setBudget(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "setBudget", err)
		return
	}
	groupId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "setBudget", err)
		return
	}
	if err := requireGroup(p, groupId); err != nil {
		a.respondError(c, "setBudget", err)
		return
	}
	var input models.NewBudgetLimit
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "setBudget", err)
		return
	}
	budget, err := models.UpsertBudget(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "setBudget", err)
		return
	}
	respondOK(c, gin.H{"budget": budget})
}

func (a *App) getDashboard(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "getDashboard", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "getDashboard", err)
		return
	}
	dashboard, err := reports.GetDashboard(c.Request.Context(), a.DB, a.Logger, p, userId, a.now())
	if err != nil {
		a.respondError(c, "getDashboard", err)
		return
	}
	respondOK(c, gin.H{"dashboard": dashboard})
}
