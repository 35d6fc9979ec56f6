package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NicknameKey is the case-insensitive identity of a nickname inside a group.
func NicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

/* money */

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns round2(amount * rate / 100).
func Percent(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate).Div(hundred))
}

// ValidatePositiveAmount rejects amounts <= 0 or with more than two fraction digits.
func ValidatePositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationError("%s must be greater than 0", field)
	}
	return validateScale(field, amount)
}

// ValidateNonNegativeAmount rejects amounts < 0 or with more than two fraction digits.
func ValidateNonNegativeAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ValidationError("%s must not be negative", field)
	}
	return validateScale(field, amount)
}

func validateScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(2)) {
		return ValidationError("%s must have at most 2 decimal places", field)
	}
	return nil
}

/* dates, always UTC */

// MonthStart is the first instant of now's calendar month.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// WeekAgo is the start of the trailing seven day window ending at now.
func WeekAgo(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -7)
}
