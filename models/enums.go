package models

import (
	"encoding/json"

	"github.com/hearthbank/family_backend/utils"
)

type enumValue interface {
	~string
	IsValid() bool
}

// unmarshalEnum rejects anything outside the closed set with a ValidationError.
func unmarshalEnum[T enumValue](data []byte, dst *T, name string) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return utils.ValidationError("%s must be a string", name)
	}
	return parseEnumInto(s, dst, name)
}

func parseEnumInto[T enumValue](s string, dst *T, name string) error {
	v := T(s)
	if !v.IsValid() {
		return utils.ValidationError("invalid %s %q", name, s)
	}
	*dst = v
	return nil
}

// ParseEnum converts query/path text into an enum value.
func ParseEnum[T enumValue](s string, name string) (T, error) {
	var v T
	err := parseEnumInto(s, &v, name)
	return v, err
}

type GroupType string

const (
	GroupTypeFamily GroupType = "FAMILY"
	GroupTypeOther  GroupType = "OTHER"
)

func (t GroupType) IsValid() bool {
	return t == GroupTypeFamily || t == GroupTypeOther
}

func (t *GroupType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "group type")
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleMember UserRole = "MEMBER"
)

func (t UserRole) IsValid() bool {
	return t == UserRoleAdmin || t == UserRoleMember
}

func (t *UserRole) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "role")
}

type UserStatus string

const (
	UserStatusPending UserStatus = "PENDING"
	UserStatusActive  UserStatus = "ACTIVE"
)

func (t UserStatus) IsValid() bool {
	return t == UserStatusPending || t == UserStatusActive
}

func (t *UserStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "user status")
}

type TransactionType string

const (
	TransactionTypeIncome      TransactionType = "income"
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransferOut:
		return true
	}
	return false
}

// Sign is +1 for credits and -1 for debits.
func (t TransactionType) Sign() int64 {
	if t == TransactionTypeIncome {
		return 1
	}
	return -1
}

func (t TransactionType) IsDebit() bool {
	return t.Sign() < 0
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "transaction type")
}

type Category string

const (
	CategoryFood      Category = "food"
	CategoryGroceries Category = "groceries"
	CategoryTransport Category = "transport"
	CategoryBills     Category = "bills"
	CategoryFun       Category = "fun"
	CategoryClothes   Category = "clothes"
	CategoryHealth    Category = "health"
	CategoryEducation Category = "education"
	CategoryOther     Category = "other"
	CategorySavings   Category = "savings"
	CategoryBonus     Category = "bonus"
	CategoryAllowance Category = "allowance"
	CategorySalary    Category = "salary"
	CategoryLoans     Category = "loans"
)

// BudgetCategories is the fixed set a budget row may exist for, in display order.
var BudgetCategories = []Category{
	CategoryFood, CategoryGroceries, CategoryTransport, CategoryBills, CategoryFun,
	CategoryClothes, CategoryHealth, CategoryEducation, CategoryOther,
}

// AllocationCategories are the system-paid income categories counted as allocations.
var AllocationCategories = []Category{CategoryAllowance, CategorySalary, CategoryBonus}

func (t Category) IsValid() bool {
	switch t {
	case CategoryFood, CategoryGroceries, CategoryTransport, CategoryBills, CategoryFun,
		CategoryClothes, CategoryHealth, CategoryEducation, CategoryOther,
		CategorySavings, CategoryBonus, CategoryAllowance, CategorySalary, CategoryLoans:
		return true
	}
	return false
}

func (t Category) IsBudgetCategory() bool {
	for _, c := range BudgetCategories {
		if c == t {
			return true
		}
	}
	return false
}

func (t *Category) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "category")
}

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
)

func (t GoalStatus) IsValid() bool {
	return t == GoalStatusActive || t == GoalStatusCompleted
}

func (t *GoalStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "goal status")
}

type TaskStatus string

const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusDone          TaskStatus = "done"
	TaskStatusCompletedSelf TaskStatus = "completed_self"
	TaskStatusApproved      TaskStatus = "approved"
)

func (t TaskStatus) IsValid() bool {
	switch t {
	case TaskStatusPending, TaskStatusDone, TaskStatusCompletedSelf, TaskStatusApproved:
		return true
	}
	return false
}

func (t *TaskStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "task status")
}

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusRejected LoanStatus = "rejected"
	LoanStatusPaid     LoanStatus = "paid"
)

func (t LoanStatus) IsValid() bool {
	switch t {
	case LoanStatusPending, LoanStatusActive, LoanStatusRejected, LoanStatusPaid:
		return true
	}
	return false
}

func (t *LoanStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "loan status")
}

type ShoppingStatus string

const (
	ShoppingStatusNeeded ShoppingStatus = "needed"
	ShoppingStatusInCart ShoppingStatus = "in_cart"
	ShoppingStatusBought ShoppingStatus = "bought"
)

func (t ShoppingStatus) IsValid() bool {
	switch t {
	case ShoppingStatusNeeded, ShoppingStatusInCart, ShoppingStatusBought:
		return true
	}
	return false
}

func (t *ShoppingStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "shopping status")
}

type QuizType string

const (
	QuizTypeMath      QuizType = "math"
	QuizTypeReading   QuizType = "reading"
	QuizTypeFinancial QuizType = "financial"
	QuizTypeLogic     QuizType = "logic"
	QuizTypeScience   QuizType = "science"
)

func (t QuizType) IsValid() bool {
	switch t {
	case QuizTypeMath, QuizTypeReading, QuizTypeFinancial, QuizTypeLogic, QuizTypeScience:
		return true
	}
	return false
}

func (t *QuizType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "quiz type")
}

type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusFailed    AssignmentStatus = "failed"
	AssignmentStatusLate      AssignmentStatus = "late"
)

func (t AssignmentStatus) IsValid() bool {
	switch t {
	case AssignmentStatusAssigned, AssignmentStatusCompleted, AssignmentStatusFailed, AssignmentStatusLate:
		return true
	}
	return false
}

func (t *AssignmentStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, t, "assignment status")
}
