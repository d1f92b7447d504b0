package app

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/config"
	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/klokku/cycleledger/internal/messaging"
	"github.com/klokku/cycleledger/internal/scheduler"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/analytics"
	"github.com/klokku/cycleledger/pkg/balance"
	"github.com/klokku/cycleledger/pkg/budget"
	"github.com/klokku/cycleledger/pkg/debt"
	"github.com/klokku/cycleledger/pkg/goal"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/notification"
	"github.com/klokku/cycleledger/pkg/reminder"
	"github.com/klokku/cycleledger/pkg/report"
	"github.com/klokku/cycleledger/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	Aggregator    *ledger.AggregatorImpl
	LedgerHandler *ledger.Handler

	BalanceService *balance.ServiceImpl
	BalanceHandler *balance.Handler

	NotificationService  *notification.ServiceImpl
	NotificationHandler  *notification.Handler
	Notifier             notification.Notifier
	NotificationConsumer *notification.Consumer
	AsyncDispatcher      *notification.AsyncDispatcher

	BudgetService *budget.BudgetServiceImpl
	BudgetHandler *budget.BudgetHandler

	GoalService *goal.GoalServiceImpl
	GoalHandler *goal.GoalHandler

	DebtService *debt.DebtServiceImpl
	DebtHandler *debt.DebtHandler

	AnalyticsService *analytics.ServiceImpl
	AnalyticsHandler *analytics.Handler

	ReportService *report.ServiceImpl
	ReportHandler *report.Handler

	Scheduler *scheduler.Scheduler

	closers []io.Closer
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(ctx context.Context, db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus().WithClock(deps.Clock)

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.Aggregator = ledger.NewAggregator(ledger.NewRepository(db), deps.Clock)
	deps.LedgerHandler = ledger.NewHandler(deps.Aggregator, deps.Clock)

	deps.BalanceService = balance.NewService(balance.NewRepository(db), deps.EventBus, deps.Clock)
	deps.BalanceHandler = balance.NewHandler(deps.BalanceService)

	pusher, err := newPusher(ctx, cfg.Notifications)
	if err != nil {
		return nil, err
	}
	deps.NotificationService = notification.NewService(notification.NewRepository(db), deps.UserService, pusher)
	deps.NotificationHandler = notification.NewHandler(deps.NotificationService)
	deps.wireNotifier(cfg.Amqp)

	deps.BudgetService = budget.NewBudgetServiceImpl(budget.NewBudgetRepo(db), deps.Aggregator, deps.UserService, deps.Notifier, deps.Clock)
	deps.BudgetHandler = budget.NewBudgetHandler(deps.BudgetService)

	deps.GoalService = goal.NewGoalServiceImpl(goal.NewGoalRepo(db), deps.Clock)
	deps.GoalHandler = goal.NewGoalHandler(deps.GoalService)

	deps.DebtService = debt.NewDebtServiceImpl(debt.NewDebtRepo(db), deps.Clock)
	deps.DebtHandler = debt.NewDebtHandler(deps.DebtService)

	deps.AnalyticsService = analytics.NewService(deps.Aggregator, deps.BalanceService, deps.Clock)
	deps.AnalyticsHandler = analytics.NewHandler(deps.AnalyticsService, deps.Clock)

	deps.ReportService = report.NewService(deps.Aggregator, deps.BalanceService, deps.GoalService, deps.Clock)
	deps.ReportHandler = report.NewHandler(deps.ReportService, report.NewCsvReportRenderer())

	// Posting side effects
	deps.BudgetService.Register(deps.EventBus)
	notification.NewTransactionNotifier(deps.Notifier).Register(deps.EventBus)
	if cfg.Kafka.Enabled {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		deps.closers = append(deps.closers, publisher)
		ledger.NewEventForwarder(publisher).Register(deps.EventBus)
		log.Infof("Forwarding ledger entries to kafka topic %s", cfg.Kafka.Topic)
	}

	if cfg.Jobs.Enabled {
		batchSize := cfg.Jobs.BatchSize
		deps.Scheduler = scheduler.New(deps.Clock,
			reminder.NewDailyReminder(deps.UserService, deps.Aggregator, deps.NotificationService, batchSize, cfg.Jobs.DailyReminderHour),
			reminder.NewWeeklyReport(deps.UserService, deps.Aggregator, deps.NotificationService, batchSize),
			reminder.NewMonthlyReport(deps.UserService, deps.Aggregator, deps.NotificationService, batchSize),
		)
	}

	return deps, nil
}

func newPusher(ctx context.Context, cfg config.Notifications) (notification.Pusher, error) {
	if !cfg.PushEnabled {
		log.Info("Push notifications disabled")
		return notification.NoopPusher{}, nil
	}
	pusher, err := notification.NewFCMPusher(ctx, cfg.FcmProjectId, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return pusher, nil
}

// wireNotifier prefers the durable queue and falls back to in-process dispatch
// when the broker is disabled or unreachable.
func (deps *Dependencies) wireNotifier(cfg config.Amqp) {
	if cfg.Enabled {
		client, err := messaging.NewAmqpClient(cfg.Url, cfg.Exchange, cfg.Queue)
		if err == nil {
			deps.closers = append(deps.closers, client)
			deps.Notifier = notification.NewQueueDispatcher(client)
			deps.NotificationConsumer = notification.NewConsumer(client, deps.NotificationService)
			log.Infof("Dispatching notifications through queue %s", cfg.Queue)
			return
		}
		log.Warnf("Failed to initialize AMQP client, dispatching notifications in process: %v", err)
	}
	deps.AsyncDispatcher = notification.NewAsyncDispatcher(deps.NotificationService)
	deps.Notifier = deps.AsyncDispatcher
}

// Close releases broker connections after in-flight work has finished.
func (deps *Dependencies) Close() {
	deps.EventBus.Wait()
	if deps.AsyncDispatcher != nil {
		deps.AsyncDispatcher.Wait()
	}
	for _, closer := range deps.closers {
		if err := closer.Close(); err != nil {
			log.Warnf("failed to close: %v", err)
		}
	}
}
