package domain

import "time"

// Schedule — расписание периодической отправки задачи.
//
// Задача отправляется:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет NextDueAt и отправляет задачу, когда время подошло.
type Schedule struct {
	// Name — уникальное имя расписания.
	Name string `yaml:"name" json:"name"`

	// Cron — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	// Если задан Cron, IntervalSec игнорируется.
	Cron string `yaml:"cron" json:"cron,omitempty"`

	// IntervalSec — интервал в секундах между отправками.
	IntervalSec int `yaml:"interval_sec" json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для cron. По умолчанию: "UTC".
	Timezone string `yaml:"timezone" json:"timezone,omitempty"`

	// TaskName — имя отправляемой задачи.
	TaskName string `yaml:"task" json:"task"`

	Args   []any             `yaml:"args" json:"args,omitempty"`
	Kwargs map[string]any    `yaml:"kwargs" json:"kwargs,omitempty"`
	Labels map[string]string `yaml:"labels" json:"labels,omitempty"`

	// Disabled — расписание игнорируется.
	Disabled bool `yaml:"disabled" json:"disabled,omitempty"`

	// NextDueAt — время следующей отправки, nil до первого расчёта.
	NextDueAt *time.Time `yaml:"-" json:"next_due_at,omitempty"`

	// LastKickAt и LastTaskID — последняя отправка.
	LastKickAt *time.Time `yaml:"-" json:"last_kick_at,omitempty"`
	LastTaskID string     `yaml:"-" json:"last_task_id,omitempty"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.Cron != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.Cron == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли отправлять.
func (s *Schedule) IsDue(now time.Time) bool {
	if s.Disabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordKick записывает информацию об отправке.
func (s *Schedule) RecordKick(taskID string, at, nextDue time.Time) {
	s.LastKickAt = &at
	s.LastTaskID = taskID
	s.NextDueAt = &nextDue
}
