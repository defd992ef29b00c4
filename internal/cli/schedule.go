package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewSchedulesCmd создаёт команду просмотра расписаний планировщика.
func NewSchedulesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List scheduler schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedules, err := client.ListSchedules()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "TASK", "CRON", "INTERVAL", "ENABLED", "NEXT_DUE", "LAST_TASK_ID"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				interval := ""
				if s.IntervalSec > 0 {
					interval = strconv.Itoa(s.IntervalSec) + "s"
				}
				rows[i] = []string{s.Name, s.TaskName, s.Cron, interval, strconv.FormatBool(!s.Disabled), s.NextDueAt, s.LastTaskID}
			}

			out.Print(headers, rows, schedules)
			return nil
		},
	}
}
