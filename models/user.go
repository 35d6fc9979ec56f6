package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID              int             `gorm:"primary_key" json:"id"`
	GroupId         int             `gorm:"not null;index;uniqueIndex:idx_users_group_nickname" json:"group_id"`
	Nickname        string          `gorm:"size:50;not null" json:"nickname"`
	NicknameKey     string          `gorm:"size:50;not null;uniqueIndex:idx_users_group_nickname" json:"-"`
	Password        string          `gorm:"size:255;not null" json:"-"`
	Role            UserRole        `gorm:"size:10;not null;default:MEMBER" json:"role"`
	Status          UserStatus      `gorm:"size:10;not null;default:PENDING" json:"status"`
	BirthYear       int             `json:"birth_year"`
	Balance         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	AllowanceAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"allowance_amount"`
	InterestRate    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"interest_rate"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMember struct {
	GroupId    int    `json:"group_id"`
	GroupEmail string `json:"group_email"`
	Nickname   string `json:"nickname" binding:"required" validate:"required,max=50"`
	Password   string `json:"password" binding:"required" validate:"required,min=1,max=72"`
	BirthYear  int    `json:"birth_year" validate:"omitempty,min=1900,max=2100"`
}

type UpdateUserInput struct {
	Nickname  *string `json:"nickname" validate:"omitempty,min=1,max=50"`
	BirthYear *int    `json:"birth_year" validate:"omitempty,min=1900,max=2100"`
	Password  *string `json:"password" validate:"omitempty,min=1,max=72"`
}

type UserSettingsInput struct {
	AllowanceAmount *decimal.Decimal `json:"allowance_amount"`
	InterestRate    *decimal.Decimal `json:"interest_rate"`
}

// UserView is a member as seen by another member; money fields are nil when hidden.
type UserView struct {
	ID              int              `json:"id"`
	GroupId         int              `json:"group_id"`
	Nickname        string           `json:"nickname"`
	Role            UserRole         `json:"role"`
	Status          UserStatus       `json:"status"`
	BirthYear       int              `json:"birth_year"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	AllowanceAmount *decimal.Decimal `json:"allowance_amount,omitempty"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty"`
}

func (u User) ViewFor(principal utils.Principal) UserView {
	view := UserView{
		ID:        u.ID,
		GroupId:   u.GroupId,
		Nickname:  u.Nickname,
		Role:      u.Role,
		Status:    u.Status,
		BirthYear: u.BirthYear,
	}
	if principal.GroupId == u.GroupId && principal.CanSee(u.ID) {
		balance, allowance, rate := u.Balance, u.AllowanceAmount, u.InterestRate
		view.Balance = &balance
		view.AllowanceAmount = &allowance
		view.InterestRate = &rate
	}
	return view
}

// JoinGroup creates a PENDING member. The group is addressed by id or by its admin email.
func JoinGroup(ctx context.Context, db *gorm.DB, input *NewMember) (*User, error) {
	input.Nickname = strings.TrimSpace(input.Nickname)
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	if input.GroupId <= 0 && strings.TrimSpace(input.GroupEmail) == "" {
		return nil, utils.ValidationError("group_id or group_email is required")
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Nickname:    input.Nickname,
		NicknameKey: utils.NicknameKey(input.Nickname),
		Password:    string(hashed),
		Role:        UserRoleMember,
		Status:      UserStatusPending,
		BirthYear:   input.BirthYear,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group Group
		q := tx.Model(&Group{})
		if input.GroupId > 0 {
			q = q.Where("id = ?", input.GroupId)
		} else {
			q = q.Where("admin_email = ?", utils.NormalizeEmail(input.GroupEmail))
		}
		if err := q.First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("group not found")
			}
			return err
		}
		if err := ensureNicknameFree(tx, group.ID, user.NicknameKey, 0); err != nil {
			return err
		}
		user.GroupId = group.ID
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, utils.ConflictOnDuplicate(err, "nickname already taken in this group")
	}
	return &user, nil
}

func ensureNicknameFree(tx *gorm.DB, groupId int, key string, exceptId int) error {
	var count int64
	q := tx.Model(&User{}).Where("group_id = ? AND nickname_key = ?", groupId, key)
	if exceptId > 0 {
		q = q.Where("id <> ?", exceptId)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.ConflictError("nickname already taken in this group")
	}
	return nil
}

// Authenticate checks the credentials of a member inside the group administered by email.
func Authenticate(ctx context.Context, db *gorm.DB, email string, nickname string, password string) (*User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(nickname) == "" || password == "" {
		return nil, utils.ValidationError("email, nickname and password are required")
	}
	var user User
	err := db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN family_groups ON family_groups.id = users.group_id").
		Where("family_groups.admin_email = ? AND users.nickname_key = ?", utils.NormalizeEmail(email), utils.NicknameKey(nickname)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.AuthError("invalid credentials")
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.AuthError("invalid credentials")
	}
	if user.Status != UserStatusActive {
		return nil, utils.ForbiddenError("account is waiting for approval")
	}
	return &user, nil
}

// GetUser returns a user of the caller's group.
func GetUser(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int) (*User, error) {
	user, err := utils.FetchModel[User](ctx, db, principal.GroupId, userId)
	if err != nil {
		return nil, utils.NotFoundOr(err, "user not found")
	}
	return user, nil
}

func ListMembers(ctx context.Context, db *gorm.DB, principal utils.Principal, groupId int) ([]UserView, error) {
	if principal.GroupId != groupId {
		return nil, utils.ForbiddenError("not a member of this group")
	}
	var users []User
	if err := db.WithContext(ctx).Where("group_id = ?", groupId).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.ViewFor(principal))
	}
	return views, nil
}

// UpdateUser edits profile fields. Only the user or the group admin may do so.
func UpdateUser(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int, input *UpdateUserInput) (*User, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot edit another user")
	}
	if err := utils.Validate(input); err != nil {
		return nil, err
	}
	var user *User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = utils.FetchModel[User](ctx, tx, principal.GroupId, userId)
		if err != nil {
			return utils.NotFoundOr(err, "user not found")
		}
		updates := map[string]interface{}{}
		if input.Nickname != nil {
			nickname := strings.TrimSpace(*input.Nickname)
			if nickname == "" {
				return utils.ValidationError("nickname must not be empty")
			}
			key := utils.NicknameKey(nickname)
			if err := ensureNicknameFree(tx, user.GroupId, key, user.ID); err != nil {
				return err
			}
			updates["nickname"] = nickname
			updates["nickname_key"] = key
			user.Nickname, user.NicknameKey = nickname, key
		}
		if input.BirthYear != nil {
			updates["birth_year"] = *input.BirthYear
			user.BirthYear = *input.BirthYear
		}
		if input.Password != nil {
			hashed, err := utils.HashPassword(*input.Password)
			if err != nil {
				return err
			}
			updates["password"] = string(hashed)
			user.Password = string(hashed)
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(user).Updates(updates).Error
	})
	if err != nil {
		return nil, utils.ConflictOnDuplicate(err, "nickname already taken in this group")
	}
	return user, nil
}

// ApproveUser moves a PENDING member of the admin's group to ACTIVE.
func ApproveUser(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int) (*User, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can approve members")
	}
	var user *User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = utils.FetchModel[User](ctx, tx, principal.GroupId, userId)
		if err != nil {
			return utils.NotFoundOr(err, "user not found")
		}
		if user.Status == UserStatusActive {
			return nil
		}
		user.Status = UserStatusActive
		return tx.Model(user).Update("status", UserStatusActive).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserSettings sets allowance and interest rate. Balance is never touched here.
func UpdateUserSettings(ctx context.Context, db *gorm.DB, principal utils.Principal, userId int, input *UserSettingsInput) (*User, error) {
	if !principal.IsAdmin() {
		return nil, utils.ForbiddenError("only the group admin can change allowance settings")
	}
	updates := map[string]interface{}{}
	if input.AllowanceAmount != nil {
		if err := utils.ValidateNonNegativeAmount("allowance_amount", *input.AllowanceAmount); err != nil {
			return nil, err
		}
		updates["allowance_amount"] = *input.AllowanceAmount
	}
	if input.InterestRate != nil {
		if err := utils.ValidateNonNegativeAmount("interest_rate", *input.InterestRate); err != nil {
			return nil, err
		}
		updates["interest_rate"] = *input.InterestRate
	}
	var user *User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = utils.FetchModel[User](ctx, tx, principal.GroupId, userId)
		if err != nil {
			return utils.NotFoundOr(err, "user not found")
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		if input.AllowanceAmount != nil {
			user.AllowanceAmount = *input.AllowanceAmount
		}
		if input.InterestRate != nil {
			user.InterestRate = *input.InterestRate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
