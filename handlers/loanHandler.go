package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
)

func (a *App) listLoans(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listLoans", err)
		return
	}
	userId := p.UserId
	if c.Query("user_id") != "" {
		if userId, err = queryId(c, "user_id"); err != nil {
			a.respondError(c, "listLoans", err)
			return
		}
	}
	if !p.CanSee(userId) {
		a.respondError(c, "listLoans", utils.ForbiddenError("cannot view loans of another user"))
		return
	}
	loans, err := models.ListLoansForUser(c.Request.Context(), a.DB, p.GroupId, userId)
	if err != nil {
		a.respondError(c, "listLoans", err)
		return
	}
	respondOK(c, gin.H{"loans": loans})
}

func (a *App) requestLoan(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "requestLoan", err)
		return
	}
	var input models.NewLoan
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "requestLoan", err)
		return
	}
	loan, err := models.RequestLoan(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "requestLoan", err)
		return
	}
	respondOK(c, gin.H{"loan": loan})
}

// handleLoan accepts {"status": "active"} to approve or {"status": "rejected"}.
func (a *App) handleLoan(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "handleLoan", err)
		return
	}
	loanId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "handleLoan", err)
		return
	}
	var input statusRequest[models.LoanStatus]
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "handleLoan", err)
		return
	}
	var approve bool
	switch input.Status {
	case models.LoanStatusActive:
		approve = true
	case models.LoanStatusRejected:
	default:
		a.respondError(c, "handleLoan", utils.ValidationError("status must be active or rejected"))
		return
	}
	result, err := workflow.HandleLoan(c.Request.Context(), a.DB, a.Logger, p, loanId, approve, a.now())
	if err != nil {
		a.respondError(c, "handleLoan", err)
		return
	}
	respondOK(c, gin.H{"loan": result.Entity, "transaction": result.Transaction})
}

func (a *App) repayLoan(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "repayLoan", err)
		return
	}
	loanId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "repayLoan", err)
		return
	}
	var input amountRequest
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "repayLoan", err)
		return
	}
	loan, err := workflow.RepayLoan(c.Request.Context(), a.DB, a.Logger, p, loanId, input.Amount, a.now())
	if err != nil {
		a.respondError(c, "repayLoan", err)
		return
	}
	respondOK(c, gin.H{"loan": loan})
}
