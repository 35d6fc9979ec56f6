package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/workflow"
)

type submitQuizRequest struct {
	Answers []int `json:"answers"`
}

func (a *App) listBundles(c *gin.Context) {
	var quizType models.QuizType
	if raw := c.Query("type"); raw != "" {
		parsed, err := models.ParseEnum[models.QuizType](raw, "type")
		if err != nil {
			a.respondError(c, "listBundles", err)
			return
		}
		quizType = parsed
	}
	bundles, err := models.ListBundles(c.Request.Context(), a.DB, quizType, c.Query("age_group"))
	if err != nil {
		a.respondError(c, "listBundles", err)
		return
	}
	respondOK(c, gin.H{"bundles": bundles})
}

func (a *App) getBundle(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "getBundle", err)
		return
	}
	bundleId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "getBundle", err)
		return
	}
	bundle, err := models.GetBundle(c.Request.Context(), a.DB, p, bundleId)
	if err != nil {
		a.respondError(c, "getBundle", err)
		return
	}
	respondOK(c, gin.H{"bundle": bundle})
}

func (a *App) assignBundle(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "assignBundle", err)
		return
	}
	var input models.NewAssignment
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "assignBundle", err)
		return
	}
	assignment, err := models.AssignBundle(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "assignBundle", err)
		return
	}
	respondOK(c, gin.H{"assignment": assignment})
}

func (a *App) listAssignments(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listAssignments", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "listAssignments", err)
		return
	}
	assignments, err := models.ListAssignments(c.Request.Context(), a.DB, p, userId)
	if err != nil {
		a.respondError(c, "listAssignments", err)
		return
	}
	respondOK(c, gin.H{"assignments": assignments})
}

func (a *App) submitQuiz(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "submitQuiz", err)
		return
	}
	assignmentId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "submitQuiz", err)
		return
	}
	var input submitQuizRequest
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "submitQuiz", err)
		return
	}
	submission, err := workflow.SubmitQuiz(c.Request.Context(), a.DB, a.Logger, p, assignmentId, input.Answers, a.now())
	if err != nil {
		a.respondError(c, "submitQuiz", err)
		return
	}
	respondOK(c, gin.H{
		"assignment":   submission.Assignment,
		"score":        submission.Score,
		"passed":       submission.Passed,
		"reward_paid":  submission.RewardPaid,
		"already_paid": submission.AlreadyPaid,
	})
}
