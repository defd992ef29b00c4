package scheduler

import "errors"

var (
	// ErrInvalidSchedule — расписание некорректно.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrDuplicateSchedule — два расписания с одним именем.
	ErrDuplicateSchedule = errors.New("duplicate schedule name")
)
