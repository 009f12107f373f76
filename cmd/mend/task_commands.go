package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/task"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and transition tasks",
}

// task list
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, excluding ones locked by other users",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var (
	taskListChallenge int64
	taskListStatus    string
	taskListLimit     int
	taskListAll       bool
)

// task show
var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task's full details and instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

// task set-status
var taskSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Transition a task to a new status",
	Long: `Transition a task to a new status.

The transition must be legal for the task's current status, and the task
must not be locked by another user. Completing a task releases any lock
the actor held on it.`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskSetStatus,
}

var (
	taskSetStatusReview    bool
	taskSetStatusTimeSpent int64
	taskSetStatusTags      []string
)

// task create
var taskCreateCmd = &cobra.Command{
	Use:   "create <challenge-id> <name>",
	Short: "Create a task in a challenge",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskCreate,
}

var taskCreateInstruction string

func init() {
	taskListCmd.Flags().Int64Var(&taskListChallenge, "challenge", 0, "filter to one challenge")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status")
	taskListCmd.Flags().IntVar(&taskListLimit, "limit", 50, "maximum tasks to list")
	taskListCmd.Flags().BoolVar(&taskListAll, "all", false, "include tasks locked by other users")

	taskSetStatusCmd.Flags().BoolVar(&taskSetStatusReview, "request-review", false, "ask for a review cycle")
	taskSetStatusCmd.Flags().Int64Var(&taskSetStatusTimeSpent, "time-spent", 0, "milliseconds spent on the task")
	taskSetStatusCmd.Flags().StringSliceVar(&taskSetStatusTags, "tag", nil, "completion tags")

	taskCreateCmd.Flags().StringVar(&taskCreateInstruction, "instruction", "", "markdown instruction for contributors")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskSetStatusCmd)
	taskCmd.AddCommand(taskCreateCmd)
}

func runTaskList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	filter := task.ListFilter{Limit: taskListLimit}
	if taskListChallenge != 0 {
		filter.ChallengeID = &taskListChallenge
	}
	if taskListStatus != "" {
		status := task.Status(taskListStatus)
		filter.Status = &status
	}
	if !taskListAll && flagUserID != 0 {
		filter.ExcludeLockedFor = &flagUserID
	}

	tasks, err := rt.store.ListTasks(cmd.Context(), filter)
	if err != nil {
		return err
	}

	fmt.Print(formatTaskTable(tasks))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}

	t, err := rt.store.GetTask(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Print(formatTaskDetail(t, terminalWidth()))
	return nil
}

func runTaskSetStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status := task.Status(args[1])
	if !status.IsValid() {
		return validation.FormatInvalidValueError(task.ErrInvalidStatus, status, task.ValidStatuses())
	}

	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	opts := task.SetStatusOptions{
		RequestReview: taskSetStatusReview,
		Tags:          taskSetStatusTags,
	}
	if taskSetStatusTimeSpent > 0 {
		opts.TimeSpent = &taskSetStatusTimeSpent
	}

	updated, err := rt.engine.SetStatus(cmd.Context(), actor, id, status, opts)
	if err != nil {
		return err
	}

	fmt.Printf("task %d: %s\n", updated.ID, updated.Status)
	return nil
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	challengeID, err := parseID(args[0])
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}

	created := task.Task{
		ChallengeID: challengeID,
		Name:        args[1],
		Instruction: taskCreateInstruction,
	}
	if err := rt.store.CreateTask(cmd.Context(), &created); err != nil {
		return err
	}

	fmt.Printf("task %d created in challenge %d\n", created.ID, created.ChallengeID)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}
