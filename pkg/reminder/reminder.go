package reminder

import (
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	log "github.com/sirupsen/logrus"
)

const DefaultBatchSize = 500

// DailyReminderHour is the local hour at which inactive users are reminded.
const DailyReminderHour = 21

const (
	DailyReminderType = "DAILY_REMINDER"
	WeeklyReportType  = "WEEKLY_REPORT"
	MonthlyReportType = "MONTHLY_REPORT"
)

// Target is a user whose local clock matches the reminder hour, with the local date.
type Target struct {
	UserId int
	Date   string
}

// Batch splits the users still to be notified by their activity in the window.
type Batch struct {
	Active   []int
	Inactive []int
}

// DailyTargets returns the users whose local hour at now equals localHour.
// Users with an unknown timezone are skipped.
func DailyTargets(now time.Time, users []user.User, localHour int) []Target {
	var targets []Target
	locations := map[string]*time.Location{}
	for _, u := range users {
		loc, ok := locations[u.Settings.Timezone]
		if !ok {
			var err error
			loc, err = time.LoadLocation(u.Settings.Timezone)
			if err != nil {
				log.Warnf("skipping user %d with unknown timezone %q", u.Id, u.Settings.Timezone)
				loc = nil
			}
			locations[u.Settings.Timezone] = loc
		}
		if loc == nil {
			continue
		}
		local := now.In(loc)
		if local.Hour() == localHour {
			targets = append(targets, Target{UserId: u.Id, Date: local.Format(time.DateOnly)})
		}
	}
	return targets
}

// ByDate groups targets by their local date, keeping the order of first appearance.
func ByDate(targets []Target) ([]string, map[string][]int) {
	var dates []string
	grouped := map[string][]int{}
	for _, t := range targets {
		if _, ok := grouped[t.Date]; !ok {
			dates = append(dates, t.Date)
		}
		grouped[t.Date] = append(grouped[t.Date], t.UserId)
	}
	return dates, grouped
}

// Pending drops the users that were already notified.
func Pending(candidates, alreadyNotified []int) []int {
	var pending []int
	for _, id := range candidates {
		if !slices.Contains(alreadyNotified, id) {
			pending = append(pending, id)
		}
	}
	return pending
}

func Partition(candidates, alreadyNotified, active []int) Batch {
	var batch Batch
	for _, id := range Pending(candidates, alreadyNotified) {
		if slices.Contains(active, id) {
			batch.Active = append(batch.Active, id)
		} else {
			batch.Inactive = append(batch.Inactive, id)
		}
	}
	return batch
}

func Chunk(ids []int, size int) [][]int {
	if size < 1 {
		size = DefaultBatchSize
	}
	var chunks [][]int
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}
	return chunks
}

// WeeklyWindow covers the seven UTC days before now.
func WeeklyWindow(now time.Time) period.Range {
	today := period.DayRange(now).Start
	return period.Range{
		Start: today.AddDate(0, 0, -7),
		End:   today.Add(-time.Millisecond),
	}
}

// MonthlyWindow is the cycle that ended yesterday for users whose cycle starts today.
// It reports false on days no cycle can start on.
func MonthlyWindow(now time.Time) (period.Range, bool) {
	day := now.UTC().Day()
	if day > period.MaxStartDay {
		return period.Range{}, false
	}
	return period.PreviousMonthRange(now, day), true
}

// StartingToday returns the users whose monthly cycle starts on the UTC day of now.
func StartingToday(now time.Time, users []user.User) []int {
	var ids []int
	for _, u := range users {
		if period.NormalizeStartDay(u.Settings.MonthStartDate) == now.UTC().Day() {
			ids = append(ids, u.Id)
		}
	}
	return ids
}

func userIds(users []user.User) []int {
	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.Id)
	}
	return ids
}
