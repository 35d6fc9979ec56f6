package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// Validate runs struct tags and turns failures into a ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ValidationError("%s", err.Error())
	}
	return ValidationError("%s", formatValidationErrors(ProcessValidationErrors(ve)))
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func formatValidationErrors(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for field, tag := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", field, tag))
	}
	sort.Strings(parts)
	return "invalid input: " + strings.Join(parts, ", ")
}

// check if id exists inside the group, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, groupId int, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, groupId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// count records, using WHERE group_id = ? AND $condition
// groupId 0 skips the group filter
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, groupId int, condition string, value ...interface{}) (int64, error) {
	var model T
	dbCtx := db.WithContext(ctx).Model(&model)
	if groupId > 0 {
		dbCtx = dbCtx.Where("group_id = ?", groupId)
	}
	var count int64
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
