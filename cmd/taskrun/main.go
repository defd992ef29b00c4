// Taskrun CLI — инструмент командной строки для отправки задач и
// просмотра результатов через служебный API воркера и планировщика.
//
// Использование:
//
//	taskrun [--api-url URL] [--scheduler-url URL] [--json] <command> [flags]
//
// Команды:
//
//	tasks      Список задач воркера
//	kick       Отправка задачи
//	result     Результат задачи
//	schedules  Расписания планировщика
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/taskrun/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var schedulerURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "taskrun",
		Short:         "Taskrun CLI — kick tasks and read their results",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("TASKRUN_API_URL", "http://localhost:8082"), "Worker API URL")
	rootCmd.PersistentFlags().StringVar(&schedulerURL, "scheduler-url", envOr("TASKRUN_SCHEDULER_URL", "http://localhost:8081"), "Scheduler API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	schedulerFn := func() *cli.Client { return cli.NewClient(schedulerURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTasksCmd(clientFn, outputFn),
		cli.NewKickCmd(clientFn, outputFn),
		cli.NewResultCmd(clientFn, outputFn),
		cli.NewSchedulesCmd(schedulerFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
