package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/taskrun/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время отправки для schedule.
// Для интервалов просто добавляет IntervalSec к from.
// Cron вычисляется в timezone расписания.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc := time.UTC
	if sched.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(sched.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timezone %q: %w", ErrInvalidSchedule, sched.Timezone, err)
		}
	}

	fromInTz := from.In(loc)

	if sched.IsCron() {
		return calculateNextCron(sched.Cron, fromInTz)
	}

	if sched.IsInterval() {
		return fromInTz.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: schedule has neither cron nor interval_sec", ErrInvalidSchedule)
}

func calculateNextCron(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cron expression %q: %w", ErrInvalidSchedule, expr, err)
	}
	return schedule.Next(from).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w: cron expression %q: %w", ErrInvalidSchedule, expr, err)
	}
	return nil
}
