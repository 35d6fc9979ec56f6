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

// QuizSubmission is the outcome of one attempt.
type QuizSubmission struct {
	Assignment  *models.UserAssignment `json:"assignment"`
	Score       int                    `json:"score"`
	Passed      bool                   `json:"passed"`
	RewardPaid  decimal.Decimal        `json:"reward_paid"`
	AlreadyPaid bool                   `json:"already_paid"`
}

// ScoreAttempt returns the percentage of correct answers, rounded down.
// Missing answers count as wrong.
func ScoreAttempt(bundle models.QuizBundle, answers []int) int {
	if len(bundle.Questions) == 0 {
		return 0
	}
	correct := 0
	for i, q := range bundle.Questions {
		if q.CorrectIndex == nil || i >= len(answers) {
			continue
		}
		if answers[i] == *q.CorrectIndex {
			correct++
		}
	}
	return correct * 100 / len(bundle.Questions)
}

// EffectiveReward is the custom reward when set, otherwise the bundle reward.
func EffectiveReward(a *models.UserAssignment) decimal.Decimal {
	if a.CustomReward != nil {
		return *a.CustomReward
	}
	if a.Bundle != nil {
		return a.Bundle.Reward
	}
	return decimal.Zero
}

// quizAttempt carries the server-side score from load into the machine callbacks.
type quizAttempt struct {
	score  int
	passed bool
}

func newQuizMachine(attempt *quizAttempt) RewardMachine[models.UserAssignment, models.AssignmentStatus] {
	outcomes := []models.AssignmentStatus{models.AssignmentStatusCompleted, models.AssignmentStatusFailed, models.AssignmentStatusLate}
	return RewardMachine[models.UserAssignment, models.AssignmentStatus]{
		Kind: "assignment",
		Transitions: map[models.AssignmentStatus][]models.AssignmentStatus{
			models.AssignmentStatusAssigned: outcomes,
			models.AssignmentStatusFailed:   outcomes,
		},
		Paid:   models.AssignmentStatusCompleted,
		Status: func(a *models.UserAssignment) models.AssignmentStatus { return a.Status },
		Resolve: func(a *models.UserAssignment, requested models.AssignmentStatus, now time.Time) models.AssignmentStatus {
			if a.Status == models.AssignmentStatusCompleted {
				return requested
			}
			if a.Deadline != nil && now.After(*a.Deadline) {
				return models.AssignmentStatusLate
			}
			if requested == models.AssignmentStatusCompleted && !attempt.passed {
				return models.AssignmentStatusFailed
			}
			return requested
		},
		Credit: func(a *models.UserAssignment, _ models.AssignmentStatus) decimal.Decimal { return EffectiveReward(a) },
		Entry: func(a *models.UserAssignment) (int, string, models.Category) {
			title := "quiz"
			if a.Bundle != nil {
				title = a.Bundle.Title
			}
			return a.UserId, "Academy reward: " + title, models.CategoryBonus
		},
		Persist: func(tx *gorm.DB, a *models.UserAssignment, _ models.AssignmentStatus, to models.AssignmentStatus, credit decimal.Decimal, now time.Time) error {
			completedAt := now.UTC()
			score := attempt.score
			a.Status, a.Score, a.RewardPaid, a.CompletedAt = to, &score, credit, &completedAt
			return tx.Model(&models.UserAssignment{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
				"status":       to,
				"score":        score,
				"reward_paid":  credit,
				"completed_at": completedAt,
			}).Error
		},
	}
}

// SubmitQuiz scores the answers server side and settles the assignment.
// A submission past the deadline ends late with no reward whatever the score.
func SubmitQuiz(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, assignmentId int, answers []int, now time.Time) (*QuizSubmission, error) {
	attempt := &quizAttempt{}
	load := func(tx *gorm.DB) (*models.UserAssignment, error) {
		assignment, err := lockInGroup[models.UserAssignment](tx, principal.GroupId, assignmentId)
		if err != nil {
			return nil, utils.NotFoundOr(err, "assignment not found")
		}
		if assignment.UserId != principal.UserId {
			return nil, utils.ForbiddenError("assignment belongs to someone else")
		}
		var bundle models.QuizBundle
		if err := tx.First(&bundle, assignment.BundleId).Error; err != nil {
			return nil, utils.NotFoundOr(err, "quiz bundle not found")
		}
		assignment.Bundle = &bundle
		attempt.score = ScoreAttempt(bundle, answers)
		attempt.passed = attempt.score >= bundle.PassThreshold
		return assignment, nil
	}

	result, err := Transition(ctx, db, logger, newQuizMachine(attempt), load, models.AssignmentStatusCompleted, now)
	if err != nil {
		return nil, err
	}
	a := result.Entity
	if a.Bundle != nil {
		stripped := a.Bundle.WithoutAnswers()
		a.Bundle = &stripped
	}
	submission := &QuizSubmission{
		Assignment:  a,
		Score:       attempt.score,
		Passed:      a.Status == models.AssignmentStatusCompleted,
		RewardPaid:  result.Credited,
		AlreadyPaid: result.NoOp,
	}
	if result.NoOp && a.Score != nil {
		submission.Score = *a.Score
	}
	return submission, nil
}
