package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/review"
	"github.com/amonks/mapmend/task"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Claim and complete task reviews",
}

// review start
var reviewStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Claim a task's open review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewStart,
}

// review cancel
var reviewCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Release your review claim without a decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewCancel,
}

// review complete
var reviewCompleteCmd = &cobra.Command{
	Use:   "complete <task-id> <decision>",
	Short: "Record a review decision (approved, rejected, assisted, disputed)",
	Args:  cobra.ExactArgs(2),
	RunE:  runReviewComplete,
}

var reviewCompleteComment string

// review next
var reviewNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next task awaiting your review",
	Args:  cobra.NoArgs,
	RunE:  runReviewNext,
}

var (
	reviewNextAfter int64
	reviewNextOrder string
)

// review sweep
var reviewSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim review claims abandoned past the stale window",
	Args:  cobra.NoArgs,
	RunE:  runReviewSweep,
}

func init() {
	reviewCompleteCmd.Flags().StringVar(&reviewCompleteComment, "comment", "", "reviewer comment")
	reviewNextCmd.Flags().Int64Var(&reviewNextAfter, "after", 0, "task id cursor from the previous call")
	reviewNextCmd.Flags().StringVar(&reviewNextOrder, "order", "asc", "queue order (asc or desc)")

	reviewCmd.AddCommand(reviewStartCmd)
	reviewCmd.AddCommand(reviewCancelCmd)
	reviewCmd.AddCommand(reviewCompleteCmd)
	reviewCmd.AddCommand(reviewNextCmd)
	reviewCmd.AddCommand(reviewSweepCmd)
}

func runReviewStart(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	claimed, err := rt.reviews.StartReview(cmd.Context(), actor, id)
	if err != nil {
		return err
	}

	fmt.Print(formatReviewTable([]task.TaskReview{*claimed}))
	return nil
}

func runReviewCancel(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	if _, err := rt.reviews.CancelReview(cmd.Context(), actor, id); err != nil {
		return err
	}

	fmt.Printf("task %d review claim released\n", id)
	return nil
}

func runReviewComplete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	decision := task.ReviewStatus(args[1])
	if !decision.IsValid() {
		return validation.FormatInvalidValueError(review.ErrInvalidReviewTransition, decision, task.ValidReviewStatuses())
	}

	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	updated, err := rt.reviews.SetReviewStatus(cmd.Context(), actor, id, decision, reviewCompleteComment)
	if err != nil {
		return err
	}

	fmt.Print(formatReviewTable([]task.TaskReview{*updated}))
	return nil
}

func runReviewNext(cmd *cobra.Command, args []string) error {
	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	var cursor *int64
	if reviewNextAfter > 0 {
		cursor = &reviewNextAfter
	}

	next, err := rt.reviews.NextTaskReview(cmd.Context(), actor, nil, cursor, review.Order(reviewNextOrder))
	if err != nil {
		return err
	}
	if next == nil {
		fmt.Println("no tasks awaiting review")
		return nil
	}

	fmt.Print(formatTaskTable([]task.Task{*next}))
	return nil
}

func runReviewSweep(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	reclaimed, err := rt.reviews.ReclaimStaleClaims(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("reclaimed %d stale review claims\n", reclaimed)
	return nil
}
