package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/cycleledger/pkg/notification"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Recipients interface {
	ListPushRecipients(ctx context.Context) ([]user.User, error)
}

type Activity interface {
	// ActiveUsers returns the users with at least one entry in the range.
	ActiveUsers(ctx context.Context, userIds []int, r period.Range) ([]int, error)
}

type Sender interface {
	SendBulk(ctx context.Context, userIds []int, title, body string, kind notification.Type, data map[string]string) (notification.BulkResult, error)
	UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error)
}

type message struct {
	title string
	body  string
	route string
}

var dailyReminder = message{
	title: "Daily Reminder",
	body:  "Today you have not entry any activity. For not losing flow of your saving goal and tracking your entry please perform todays activity.",
}

var weeklyReady = message{
	title: "Your Weekly Report Is Ready",
	body:  "Click here to show your weekly report.",
	route: "/reports/weekly",
}

var weeklyReminder = message{
	title: "Weekly Reminder",
	body:  "You have not performed any activity this week. Please entry your income and spending and track your regular activity and save more money.",
}

var monthlyReady = message{
	title: "Your Monthly Report Is Ready",
	body:  "Click here to show your monthly report.",
	route: "/reports/monthly",
}

var monthlyReminder = message{
	title: "Monthly Reminder",
	body:  "You have not performed any activity within one month. Please entry your income and spending and track your regular activity and save more money.",
}

// dispatcher sends one message to many users in fixed size batches.
type dispatcher struct {
	sender    Sender
	batchSize int
}

func (d dispatcher) send(ctx context.Context, ids []int, msg message, data map[string]string) error {
	if msg.route != "" {
		data["route"] = msg.route
	}
	for _, chunk := range Chunk(ids, d.batchSize) {
		result, err := d.sender.SendBulk(ctx, chunk, msg.title, msg.body, notification.Normal, data)
		if err != nil {
			return fmt.Errorf("send %q to %d users: %w", msg.title, len(chunk), err)
		}
		log.Debugf("%q stored for %d users, pushed %d", msg.title, result.Stored, result.PushSent)
	}
	return nil
}

type DailyReminder struct {
	recipients Recipients
	activity   Activity
	dispatcher dispatcher
	localHour  int
}

func NewDailyReminder(recipients Recipients, activity Activity, sender Sender, batchSize, localHour int) *DailyReminder {
	return &DailyReminder{
		recipients: recipients,
		activity:   activity,
		dispatcher: dispatcher{sender: sender, batchSize: batchSize},
		localHour:  localHour,
	}
}

func (j *DailyReminder) Name() string {
	return "daily-reminder"
}

// Run reminds users without any entry today, once per local day, when their local
// clock shows the reminder hour.
func (j *DailyReminder) Run(ctx context.Context, now time.Time) error {
	users, err := j.recipients.ListPushRecipients(ctx)
	if err != nil {
		return err
	}
	dates, grouped := ByDate(DailyTargets(now, users, j.localHour))
	for _, date := range dates {
		ids := grouped[date]
		notified, err := j.dispatcher.sender.UsersNotified(ctx, DailyReminderType, "date", date, ids)
		if err != nil {
			return err
		}
		pending := Pending(ids, notified)
		if len(pending) == 0 {
			continue
		}
		day, err := period.ParseDate(date)
		if err != nil {
			return err
		}
		active, err := j.activity.ActiveUsers(ctx, pending, period.DayRange(day))
		if err != nil {
			return err
		}
		batch := Partition(pending, nil, active)
		if len(batch.Inactive) == 0 {
			continue
		}
		data := map[string]string{"notifType": DailyReminderType, "date": date}
		if err := j.dispatcher.send(ctx, batch.Inactive, dailyReminder, data); err != nil {
			return err
		}
		log.Infof("daily reminder sent to %d users for %s", len(batch.Inactive), date)
	}
	return nil
}

type WeeklyReport struct {
	recipients Recipients
	activity   Activity
	dispatcher dispatcher
}

func NewWeeklyReport(recipients Recipients, activity Activity, sender Sender, batchSize int) *WeeklyReport {
	return &WeeklyReport{
		recipients: recipients,
		activity:   activity,
		dispatcher: dispatcher{sender: sender, batchSize: batchSize},
	}
}

func (j *WeeklyReport) Name() string {
	return "weekly-report"
}

// Run fires on Sundays at 09:00 UTC.
func (j *WeeklyReport) Run(ctx context.Context, now time.Time) error {
	now = now.UTC()
	if now.Weekday() != time.Sunday || now.Hour() != 9 {
		return nil
	}
	users, err := j.recipients.ListPushRecipients(ctx)
	if err != nil {
		return err
	}
	window := WeeklyWindow(now)
	weekStart := window.Start.Format(time.DateOnly)
	batch, err := eligible(ctx, j.dispatcher.sender, j.activity, userIds(users), WeeklyReportType, "weekStart", weekStart, window)
	if err != nil {
		return err
	}
	if err := j.dispatcher.send(ctx, batch.Active, weeklyReady, map[string]string{"notifType": WeeklyReportType, "weekStart": weekStart}); err != nil {
		return err
	}
	if err := j.dispatcher.send(ctx, batch.Inactive, weeklyReminder, map[string]string{"notifType": WeeklyReportType, "weekStart": weekStart}); err != nil {
		return err
	}
	log.Infof("weekly report: %d active, %d inactive", len(batch.Active), len(batch.Inactive))
	return nil
}

type MonthlyReport struct {
	recipients Recipients
	activity   Activity
	dispatcher dispatcher
}

func NewMonthlyReport(recipients Recipients, activity Activity, sender Sender, batchSize int) *MonthlyReport {
	return &MonthlyReport{
		recipients: recipients,
		activity:   activity,
		dispatcher: dispatcher{sender: sender, batchSize: batchSize},
	}
}

func (j *MonthlyReport) Name() string {
	return "monthly-report"
}

// Run fires daily at 09:00 UTC for users whose monthly cycle starts today.
func (j *MonthlyReport) Run(ctx context.Context, now time.Time) error {
	now = now.UTC()
	if now.Hour() != 9 {
		return nil
	}
	window, ok := MonthlyWindow(now)
	if !ok {
		return nil
	}
	users, err := j.recipients.ListPushRecipients(ctx)
	if err != nil {
		return err
	}
	candidates := StartingToday(now, users)
	if len(candidates) == 0 {
		return nil
	}
	monthStart := window.Start.Format(time.DateOnly)
	batch, err := eligible(ctx, j.dispatcher.sender, j.activity, candidates, MonthlyReportType, "monthStart", monthStart, window)
	if err != nil {
		return err
	}
	if err := j.dispatcher.send(ctx, batch.Active, monthlyReady, map[string]string{"notifType": MonthlyReportType, "monthStart": monthStart}); err != nil {
		return err
	}
	if err := j.dispatcher.send(ctx, batch.Inactive, monthlyReminder, map[string]string{"notifType": MonthlyReportType, "monthStart": monthStart}); err != nil {
		return err
	}
	log.Infof("monthly report: %d active, %d inactive", len(batch.Active), len(batch.Inactive))
	return nil
}

func eligible(ctx context.Context, sender Sender, activity Activity, candidates []int, notifType, key, value string, window period.Range) (Batch, error) {
	if len(candidates) == 0 {
		return Batch{}, nil
	}
	notified, err := sender.UsersNotified(ctx, notifType, key, value, candidates)
	if err != nil {
		return Batch{}, err
	}
	pending := Pending(candidates, notified)
	if len(pending) == 0 {
		return Batch{}, nil
	}
	active, err := activity.ActiveUsers(ctx, pending, window)
	if err != nil {
		return Batch{}, err
	}
	return Partition(pending, nil, active), nil
}
