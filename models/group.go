package models

import (
	"context"
	"strings"
	"time"

	"github.com/hearthbank/family_backend/utils"
	"gorm.io/gorm"
)

type Group struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	AdminEmail string    `gorm:"size:100;not null;uniqueIndex" json:"admin_email"`
	Type       GroupType `gorm:"size:20;not null;default:FAMILY" json:"type"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Group) TableName() string {
	return "family_groups"
}

type NewGroup struct {
	Name       string    `json:"name" binding:"required" validate:"required,max=100"`
	AdminEmail string    `json:"admin_email" binding:"required" validate:"required,email,max=100"`
	Type       GroupType `json:"type"`
	Nickname   string    `json:"nickname" binding:"required" validate:"required,max=50"`
	Password   string    `json:"password" binding:"required" validate:"required,min=1,max=72"`
	BirthYear  int       `json:"birth_year" validate:"omitempty,min=1900,max=2100"`
}

// CreateGroup stores the group and its ACTIVE admin in one transaction.
func CreateGroup(ctx context.Context, db *gorm.DB, input *NewGroup) (*Group, *User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.AdminEmail = utils.NormalizeEmail(input.AdminEmail)
	input.Nickname = strings.TrimSpace(input.Nickname)
	if err := utils.Validate(input); err != nil {
		return nil, nil, err
	}
	if input.Type == "" {
		input.Type = GroupTypeFamily
	}
	if !input.Type.IsValid() {
		return nil, nil, utils.ValidationError("invalid group type %q", input.Type)
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	group := Group{
		Name:       input.Name,
		AdminEmail: input.AdminEmail,
		Type:       input.Type,
	}
	admin := User{
		Nickname:    input.Nickname,
		NicknameKey: utils.NicknameKey(input.Nickname),
		Password:    string(hashed),
		Role:        UserRoleAdmin,
		Status:      UserStatusActive,
		BirthYear:   input.BirthYear,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Group{}).Where("admin_email = ?", group.AdminEmail).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return utils.ConflictError("email already registered")
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		admin.GroupId = group.ID
		return tx.Create(&admin).Error
	})
	if err != nil {
		return nil, nil, utils.ConflictOnDuplicate(err, "email already registered")
	}
	return &group, &admin, nil
}

func GetGroup(ctx context.Context, db *gorm.DB, id int) (*Group, error) {
	return utils.FetchSingleModel[Group](ctx, db, id)
}

func UpdateGroupName(ctx context.Context, db *gorm.DB, principal utils.Principal, groupId int, name string) (*Group, error) {
	if !principal.IsAdmin() || principal.GroupId != groupId {
		return nil, utils.ForbiddenError("only the group admin can rename the group")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, utils.ValidationError("name is required")
	}
	group, err := GetGroup(ctx, db, groupId)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(group).Update("name", name).Error; err != nil {
		return nil, err
	}
	group.Name = name
	return group, nil
}
