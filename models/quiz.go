package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type QuizQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
}

// QuizBundle is read-only academy content.
type QuizBundle struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	Type          QuizType        `gorm:"size:20;not null;index" json:"type"`
	AgeGroup      string          `gorm:"size:20;not null;index" json:"age_group"`
	Reward        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"reward"`
	PassThreshold int             `gorm:"not null;default:70" json:"pass_threshold"`
	Content       string          `gorm:"type:text" json:"content"`
	Questions     []QuizQuestion  `gorm:"type:text;serializer:json" json:"questions"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// WithoutAnswers returns a copy safe to show to the quiz taker.
func (b QuizBundle) WithoutAnswers() QuizBundle {
	questions := make([]QuizQuestion, len(b.Questions))
	for i, q := range b.Questions {
		questions[i] = QuizQuestion{Prompt: q.Prompt, Options: q.Options}
	}
	b.Questions = questions
	return b
}

type UserAssignment struct {
	ID           int              `gorm:"primary_key" json:"id"`
	UserId       int              `gorm:"not null;index" json:"user_id"`
	GroupId      int              `gorm:"not null;index" json:"group_id"`
	BundleId     int              `gorm:"not null;index" json:"bundle_id"`
	Bundle       *QuizBundle      `gorm:"foreignKey:BundleId" json:"bundle,omitempty"`
	AssignedBy   int              `gorm:"not null" json:"assigned_by"`
	Status       AssignmentStatus `gorm:"size:20;not null;default:assigned" json:"status"`
	Score        *int             `json:"score"`
	CustomReward *decimal.Decimal `gorm:"type:decimal(20,2)" json:"custom_reward"`
	RewardPaid   decimal.Decimal  `gorm:"type:decimal(20,2);not null;default:0" json:"reward_paid"`
	Deadline     *time.Time       `json:"deadline"`
	CompletedAt  *time.Time       `json:"completed_at"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type NewQuizBundle struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Type          QuizType        `json:"type" validate:"required"`
	AgeGroup      string          `json:"age_group" validate:"required,max=20"`
	Reward        decimal.Decimal `json:"reward"`
	PassThreshold int             `json:"pass_threshold" validate:"min=0,max=100"`
	Content       string          `json:"content"`
	Questions     []QuizQuestion  `json:"questions" validate:"required,min=1"`
}

type NewAssignment struct {
	UserId       int              `json:"user_id" binding:"required" validate:"required,gt=0"`
	BundleId     int              `json:"bundle_id" binding:"required" validate:"required,gt=0"`
	CustomReward *decimal.Decimal `json:"custom_reward"`
	Deadline     *time.Time       `json:"deadline"`
}

// CreateBundle imports academy content; used by ops tooling.
func CreateBundle(ctx context.Context, db *gorm.DB, input *NewQuizBundle) (*QuizBundle, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, utils.ValidationError("invalid quiz type %q", input.Type)
	}
	if err := utils.ValidateNonNegativeAmount("reward", input.Reward); err != nil {
		return nil, err
	}
	for i, q := range input.Questions {
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
			return nil, utils.ValidationError("question %d has no valid correct_index", i+1)
		}
	}
	bundle := QuizBundle{
		Title:         input.Title,
		Type:          input.Type,
		AgeGroup:      strings.TrimSpace(input.AgeGroup),
		Reward:        input.Reward,
		PassThreshold: input.PassThreshold,
		Content:       input.Content,
		Questions:     input.Questions,
	}
	if err := db.WithContext(ctx).Create(&bundle).Error; err != nil {
		return nil, err
	}
	return &bundle, nil
}

// ListBundles filters by type and age group; empty filters match everything. Answers are stripped.
func ListBundles(ctx context.Context, db *gorm.DB, quizType QuizType, ageGroup string) ([]QuizBundle, error) {
	q := db.WithContext(ctx).Model(&QuizBundle{})
	if quizType != "" {
		q = q.Where("type = ?", quizType)
	}
	if ageGroup = strings.TrimSpace(ageGroup); ageGroup != "" {
		q = q.Where("age_group = ?", ageGroup)
	}
	var bundles []QuizBundle
	if err := q.Order("id").Find(&bundles).Error; err != nil {
		return nil, err
	}
	for i := range bundles {
		bundles[i] = bundles[i].WithoutAnswers()
	}
	return bundles, nil
}

// GetBundle hides correct answers from everyone but the admin.
func GetBundle(ctx context.Context, db *gorm.DB, principal utils.Principal, id int) (*QuizBundle, error) {
	bundle, err := utils.FetchSingleModel[QuizBundle](ctx, db, id)
	if err != nil {
		return nil, utils.NotFoundOr(err, "quiz bundle not found")
	}
	if !principal.IsAdmin() {
		stripped := bundle.WithoutAnswers()
		return &stripped, nil
	}
	return bundle, nil
}

func AssignBundle(ctx context.Context, db *gorm.DB, principal utils.Principal, input *NewAssignment) (*UserAssignment, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can assign quizzes")
	}
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if input.CustomReward != nil {
		if err := utils.ValidateNonNegativeAmount("custom_reward", *input.CustomReward); err != nil {
			return nil, err
		}
	}
	if err := utils.ValidateResourceId[User](ctx, db, principal.GroupId, input.UserId); err != nil {
		return nil, utils.NotFoundOr(err, "user not found")
	}
	if err := utils.ValidateResourceId[QuizBundle](ctx, db, 0, input.BundleId); err != nil {
		return nil, utils.NotFoundOr(err, "quiz bundle not found")
	}
	assignment := UserAssignment{
		UserId:       input.UserId,
		GroupId:      principal.GroupId,
		BundleId:     input.BundleId,
		AssignedBy:   principal.UserId,
		Status:       AssignmentStatusAssigned,
		CustomReward: input.CustomReward,
	}
	if input.Deadline != nil {
		deadline := input.Deadline.UTC()
		assignment.Deadline = &deadline
	}
	if err := db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListAssignments returns the user's assignment history with bundle titles, newest first.
func ListAssignments(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int) ([]UserAssignment, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot view assignments of another user")
	}
	var assignments []UserAssignment
	err := db.WithContext(ctx).
		Preload("Bundle", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "title", "type", "age_group", "reward", "pass_threshold")
		}).
		Where("group_id = ? AND user_id = ?", principal.GroupId, userId).
		Order("id DESC").Find(&assignments).Error
	return assignments, err
}
