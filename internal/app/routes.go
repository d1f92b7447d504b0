package app

import (
	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Accounts and postings
	r.HandleFunc("/api/account", deps.BalanceHandler.ListAccounts).Methods("GET")
	r.HandleFunc("/api/account", deps.BalanceHandler.CreateAccount).Methods("POST")
	r.HandleFunc("/api/account/total", deps.BalanceHandler.Totals).Methods("GET")
	r.HandleFunc("/api/account/{id}", deps.BalanceHandler.GetAccount).Methods("GET")
	r.HandleFunc("/api/account/{id}", deps.BalanceHandler.UpdateAccount).Methods("PUT")
	r.HandleFunc("/api/account/{id}", deps.BalanceHandler.DeleteAccount).Methods("DELETE")
	r.HandleFunc("/api/account/{id}/income", deps.BalanceHandler.AddIncome).Methods("POST")
	r.HandleFunc("/api/account/{id}/spending", deps.BalanceHandler.AddSpending).Methods("POST")

	// Ledger
	r.HandleFunc("/api/ledger/daily", deps.LedgerHandler.Daily).Methods("GET")
	r.HandleFunc("/api/ledger/monthly", deps.LedgerHandler.Monthly).Methods("GET")

	// Budgets
	r.HandleFunc("/api/budget", deps.BudgetHandler.Evaluate).Methods("GET")
	r.HandleFunc("/api/budget", deps.BudgetHandler.Create).Methods("POST")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Update).Methods("PUT")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Delete).Methods("DELETE")

	// Analytics
	r.HandleFunc("/api/analytics/income-vs-expenses", deps.AnalyticsHandler.IncomeVsExpenses).Methods("GET")
	r.HandleFunc("/api/analytics/balance-trend", deps.AnalyticsHandler.BalanceTrend).Methods("GET")
	r.HandleFunc("/api/analytics/spending-by-category", deps.AnalyticsHandler.SpendingByCategory).Methods("GET")

	// Reports
	r.HandleFunc("/api/report/weekly", deps.ReportHandler.Weekly).Methods("GET")
	r.HandleFunc("/api/report/monthly", deps.ReportHandler.Monthly).Methods("GET")

	// Goals
	r.HandleFunc("/api/goal", deps.GoalHandler.List).Methods("GET")
	r.HandleFunc("/api/goal", deps.GoalHandler.Create).Methods("POST")
	r.HandleFunc("/api/goal/{id}", deps.GoalHandler.Get).Methods("GET")
	r.HandleFunc("/api/goal/{id}", deps.GoalHandler.Update).Methods("PUT")
	r.HandleFunc("/api/goal/{id}", deps.GoalHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/goal/{id}/progress", deps.GoalHandler.AddProgress).Methods("POST")
	r.HandleFunc("/api/goal/{id}/complete", deps.GoalHandler.MarkComplete).Methods("POST")

	// Money borrowed and lent
	r.HandleFunc("/api/debt", deps.DebtHandler.List).Methods("GET")
	r.HandleFunc("/api/debt", deps.DebtHandler.Create).Methods("POST")
	r.HandleFunc("/api/debt/{id:[0-9]+}", deps.DebtHandler.Get).Methods("GET")
	r.HandleFunc("/api/debt/{id:[0-9]+}", deps.DebtHandler.Update).Methods("PUT")
	r.HandleFunc("/api/debt/{id:[0-9]+}", deps.DebtHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/debt/{id:[0-9]+}/payment", deps.DebtHandler.AddPayment).Methods("POST")
	r.HandleFunc("/api/debt/{id:[0-9]+}/paid", deps.DebtHandler.MarkPaid).Methods("POST")

	// Notifications
	r.HandleFunc("/api/notification", deps.NotificationHandler.List).Methods("GET")
	r.HandleFunc("/api/notification/unread-count", deps.NotificationHandler.UnreadCount).Methods("GET")
	r.HandleFunc("/api/notification/read-all", deps.NotificationHandler.MarkAllRead).Methods("PATCH")
	r.HandleFunc("/api/notification/{id:[0-9]+}", deps.NotificationHandler.Get).Methods("GET")
	r.HandleFunc("/api/notification/{id:[0-9]+}", deps.NotificationHandler.Delete).Methods("DELETE")

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
}
