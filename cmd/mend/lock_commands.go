package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amonks/mapmend/lock"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Acquire and release exclusive edit locks",
}

// lock acquire
var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <task-id>",
	Short: "Acquire an exclusive edit lock on a task",
	Long: `Acquire an exclusive edit lock on a task.

While held, no other user may transition the task's status. Re-acquiring
a task you already hold refreshes the lock's lifetime.`,
	Args: cobra.ExactArgs(1),
	RunE: runLockAcquire,
}

// lock release
var lockReleaseCmd = &cobra.Command{
	Use:   "release <task-id>",
	Short: "Release your edit lock on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockRelease,
}

// lock status
var lockStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Report whether a task is locked",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockStatus,
}

func init() {
	lockCmd.AddCommand(lockAcquireCmd)
	lockCmd.AddCommand(lockReleaseCmd)
	lockCmd.AddCommand(lockStatusCmd)
}

func runLockAcquire(cmd *cobra.Command, args []string) error {
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

	acquired, err := rt.locks.Acquire(cmd.Context(), actor.ID, lock.TaskItem(id))
	if err != nil {
		return err
	}

	fmt.Printf("task %d locked until %s\n", id, acquired.ExpiresAt(rt.locks.TTL()).Format(time.RFC3339))
	return nil
}

func runLockRelease(cmd *cobra.Command, args []string) error {
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

	if err := rt.locks.Release(cmd.Context(), actor.ID, lock.TaskItem(id)); err != nil {
		return err
	}

	fmt.Printf("task %d released\n", id)
	return nil
}

func runLockStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	locked, err := rt.locks.IsLocked(cmd.Context(), lock.TaskItem(id))
	if err != nil {
		return err
	}

	if locked {
		fmt.Printf("task %d is locked\n", id)
	} else {
		fmt.Printf("task %d is unlocked\n", id)
	}
	return nil
}
