package reports

import (
	"context"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WeeklySpend struct {
	Spent    decimal.Decimal `json:"spent"`
	Limit    decimal.Decimal `json:"limit"`
	Eligible bool            `json:"eligible"`
}

type Dashboard struct {
	User               models.UserView         `json:"user"`
	Tasks              []models.Task           `json:"tasks"`
	Shopping           []models.ShoppingItem   `json:"shopping"`
	Loans              []models.Loan           `json:"loans"`
	Goals              []models.Goal           `json:"goals"`
	WeeklySpend        WeeklySpend             `json:"weekly_spend"`
	Assignments        []models.UserAssignment `json:"assignments"`
	History            []models.UserAssignment `json:"history"`
	RecentTransactions []models.Transaction    `json:"recent_transactions"`
}

func emptyDashboard() *Dashboard {
	return &Dashboard{
		Tasks:              []models.Task{},
		Shopping:           []models.ShoppingItem{},
		Loans:              []models.Loan{},
		Goals:              []models.Goal{},
		WeeklySpend:        WeeklySpend{Spent: decimal.Zero, Limit: decimal.Zero, Eligible: true},
		Assignments:        []models.UserAssignment{},
		History:            []models.UserAssignment{},
		RecentTransactions: []models.Transaction{},
	}
}

// GetDashboard gathers everything the home screen shows for userId. Access is checked strictly;
// each section degrades to empty on a read failure.
func GetDashboard(ctx context.Context, db *gorm.DB, logger *logrus.Logger, principal utils.Principal, userId int, now time.Time) (*Dashboard, error) {
	if !principal.CanSee(userId) {
		return nil, utils.ForbiddenError("cannot view another user's dashboard")
	}
	started := time.Now()
	defer logSlowReport(ctx, "dashboard", principal.GroupId, started, map[string]any{"user_id": userId})
	user, err := models.GetUser(ctx, db, principal, userId)
	if err != nil {
		return nil, err
	}
	dash := emptyDashboard()
	dash.User = user.ViewFor(principal)
	groupId := user.GroupId

	section := func(name string, err error) {
		if err != nil {
			config.LogError(logger, "DashboardReport.go", "GetDashboard", name, userId, err)
		}
	}

	if tasks, err := models.ListTasksForUser(ctx, db, groupId, userId); err == nil {
		dash.Tasks = tasks
	} else {
		section("ListTasksForUser", err)
	}
	if items, err := models.ListShopping(ctx, db, groupId); err == nil {
		dash.Shopping = items
	} else {
		section("ListShopping", err)
	}
	if loans, err := models.ListLoansForUser(ctx, db, groupId, userId); err == nil {
		dash.Loans = loans
	} else {
		section("ListLoansForUser", err)
	}
	if goals, err := models.ListGoals(ctx, db, principal, userId); err == nil {
		dash.Goals = goals
	} else {
		section("ListGoals", err)
	}
	if weekly, err := weeklySpend(db.WithContext(ctx), user, now); err == nil {
		dash.WeeklySpend = *weekly
	} else {
		section("weeklySpend", err)
	}
	if assignments, err := models.ListAssignments(ctx, db, principal, userId); err == nil {
		for _, a := range assignments {
			if a.Status == models.AssignmentStatusAssigned || a.Status == models.AssignmentStatusFailed {
				dash.Assignments = append(dash.Assignments, a)
			} else {
				dash.History = append(dash.History, a)
			}
		}
	} else {
		section("ListAssignments", err)
	}
	if transactions, err := ListTransactions(ctx, db, principal, userId, 10); err == nil {
		dash.RecentTransactions = transactions
	} else {
		section("ListTransactions", err)
	}
	return dash, nil
}

// weeklySpend applies the payday eligibility rule to the current week so far.
func weeklySpend(db *gorm.DB, user *models.User, now time.Time) (*WeeklySpend, error) {
	spent, err := workflow.SumExpenses(db, user.ID, utils.WeekAgo(now))
	if err != nil {
		return nil, err
	}
	goalsTotal, err := models.SumActiveGoals(db, user.ID)
	if err != nil {
		return nil, err
	}
	e := workflow.Eligibility(user.Balance, goalsTotal, spent)
	return &WeeklySpend{Spent: spent, Limit: utils.Round2(e.AllowedSpending), Eligible: e.Eligible}, nil
}
