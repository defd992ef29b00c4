package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewTasksCmd создаёт команду для просмотра зарегистрированных задач.
func NewTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List tasks registered in the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "LANE", "PARAMS"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				params := make([]string, len(t.Params))
				for j, p := range t.Params {
					params[j] = p.Name + " " + p.Type
					if p.Injected {
						params[j] += " (injected)"
					}
				}
				rows[i] = []string{t.Name, t.Lane, strings.Join(params, ", ")}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}
}

// NewKickCmd создаёт команду отправки задачи.
func NewKickCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var taskID string
	var rawArgs []string
	var rawKwargs []string
	var rawLabels []string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "kick TASK_NAME",
		Short: "Send a task to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := KickRequest{TaskID: taskID}
			for _, raw := range rawArgs {
				req.Args = append(req.Args, ParseValue(raw))
			}

			kwargs, err := parsePairs(rawKwargs)
			if err != nil {
				return err
			}
			if len(kwargs) > 0 {
				req.Kwargs = make(map[string]any, len(kwargs))
				for k, v := range kwargs {
					req.Kwargs[k] = ParseValue(v)
				}
			}

			if req.Labels, err = parsePairs(rawLabels); err != nil {
				return err
			}

			kicked, err := client.KickTask(args[0], req)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Task kicked: %s", kicked.TaskID))

			if wait <= 0 {
				out.Print([]string{"TASK_ID", "TASK_NAME"}, [][]string{{kicked.TaskID, kicked.TaskName}}, kicked)
				return nil
			}

			result, err := WaitResult(client, kicked.TaskID, wait, 200*time.Millisecond)
			if err != nil {
				return err
			}
			printResult(out, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task-id", "", "Task ID (generated if not specified)")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Positional argument, JSON or plain string (repeatable)")
	cmd.Flags().StringArrayVar(&rawKwargs, "kwarg", nil, "Keyword argument as KEY=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&rawLabels, "label", nil, "Label as KEY=VALUE (repeatable)")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait for the result up to this duration")

	return cmd
}

// NewResultCmd создаёт команду просмотра результата.
func NewResultCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "result TASK_ID",
		Short: "Show task result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := clientFn().GetResult(args[0])
			if err != nil {
				return err
			}
			printResult(outputFn(), result)
			return nil
		},
	}
}

// WaitResult опрашивает API, пока результат не появится или не истечёт timeout.
func WaitResult(client *Client, taskID string, timeout, every time.Duration) (*ResultResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		result, err := client.GetResult(taskID)
		if err == nil {
			return result, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("result for %s not ready after %s", taskID, timeout)
		}
		time.Sleep(every)
	}
}

func printResult(out *Output, r *ResultResponse) {
	value := ""
	if !r.IsErr && r.ReturnValue != nil {
		data, _ := json.Marshal(r.ReturnValue)
		value = string(data)
	}
	log := ""
	if r.Log != nil {
		log = *r.Log
	}
	out.Details([][2]string{
		{"Task ID", r.TaskID},
		{"Status", r.Status},
		{"Return", value},
		{"Error", r.Error},
		{"Log", log},
		{"Time", fmt.Sprintf("%.3fs", r.ExecutionTime)},
	}, r)
}

// ParseValue разбирает значение аргумента: валидный JSON декодируется,
// остальное передаётся как строка.
func ParseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid format %q, expected KEY=VALUE", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}
