package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/task"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Group tasks into bundles completed and reviewed as one unit",
}

// bundle create
var bundleCreateCmd = &cobra.Command{
	Use:   "create <name> <task-id>...",
	Short: "Propose a bundle of tasks from one challenge",
	Long: `Propose a bundle of tasks from one challenge.

Creating a bundle records the grouping only. Member tasks are stamped
with the bundle id when a set-status call finalizes the group, so a task
may appear in several proposed bundles until one of them wins.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBundleCreate,
}

// bundle show
var bundleShowCmd = &cobra.Command{
	Use:   "show <bundle-id>",
	Short: "Show a bundle and its members",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleShow,
}

// bundle delete
var bundleDeleteCmd = &cobra.Command{
	Use:   "delete <bundle-id>",
	Short: "Delete a bundle's grouping record",
	Long: `Delete a bundle's grouping record.

Member tasks keep any bundle stamps a finalization already applied; only
the grouping is removed. Requires the bundle's creator or a super user.`,
	Args: cobra.ExactArgs(1),
	RunE: runBundleDelete,
}

var bundleDeleteYes bool

// bundle unbundle
var bundleUnbundleCmd = &cobra.Command{
	Use:   "unbundle <bundle-id> <task-id>...",
	Short: "Remove tasks from a bundle",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBundleUnbundle,
}

// bundle set-status
var bundleSetStatusCmd = &cobra.Command{
	Use:   "set-status <bundle-id> <status>",
	Short: "Transition every member of a bundle in one atomic operation",
	Args:  cobra.ExactArgs(2),
	RunE:  runBundleSetStatus,
}

var bundleSetStatusReview bool

func init() {
	bundleDeleteCmd.Flags().BoolVar(&bundleDeleteYes, "yes", false, "skip the confirmation prompt")
	bundleSetStatusCmd.Flags().BoolVar(&bundleSetStatusReview, "request-review", false, "ask for a review cycle on each member")

	bundleCmd.AddCommand(bundleCreateCmd)
	bundleCmd.AddCommand(bundleShowCmd)
	bundleCmd.AddCommand(bundleDeleteCmd)
	bundleCmd.AddCommand(bundleUnbundleCmd)
	bundleCmd.AddCommand(bundleSetStatusCmd)
}

func runBundleCreate(cmd *cobra.Command, args []string) error {
	actor, err := currentUser()
	if err != nil {
		return err
	}
	taskIDs, err := parseIDs(args[1:])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	created, err := rt.bundles.CreateBundle(cmd.Context(), actor, args[0], taskIDs)
	if err != nil {
		return err
	}

	fmt.Printf("bundle %d created with %d tasks (primary %d)\n", created.ID, len(created.TaskIDs), created.PrimaryTaskID)
	return nil
}

func runBundleShow(cmd *cobra.Command, args []string) error {
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

	b, err := rt.bundles.GetBundle(cmd.Context(), actor, id)
	if err != nil {
		return err
	}

	members := make([]string, 0, len(b.TaskIDs))
	for _, taskID := range b.TaskIDs {
		members = append(members, strconv.FormatInt(taskID, 10))
	}
	fmt.Printf("bundle %d: %s\n", b.ID, b.Name)
	fmt.Printf("challenge:  %d\n", b.ChallengeID)
	fmt.Printf("owner:      %d\n", b.OwnerID)
	fmt.Printf("primary:    %d\n", b.PrimaryTaskID)
	fmt.Printf("tasks:      %s\n", strings.Join(members, ", "))
	return nil
}

func runBundleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	actor, err := currentUser()
	if err != nil {
		return err
	}

	if !bundleDeleteYes {
		confirmed, err := promptConfirm(fmt.Sprintf("Delete bundle %d?", id))
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}

	if err := rt.bundles.DeleteBundle(cmd.Context(), actor, id); err != nil {
		return err
	}

	fmt.Printf("bundle %d deleted\n", id)
	return nil
}

func runBundleUnbundle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	actor, err := currentUser()
	if err != nil {
		return err
	}
	taskIDs, err := parseIDs(args[1:])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	if err := rt.bundles.UnbundleTasks(cmd.Context(), actor, id, taskIDs); err != nil {
		return err
	}

	fmt.Printf("removed %d tasks from bundle %d\n", len(taskIDs), id)
	return nil
}

func runBundleSetStatus(cmd *cobra.Command, args []string) error {
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

	updated, err := rt.bundles.SetBundleStatus(cmd.Context(), actor, id, status, task.SetStatusOptions{
		RequestReview: bundleSetStatusReview,
	})
	if err != nil {
		return err
	}

	fmt.Print(formatTaskTable(updated))
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// promptConfirm asks a yes/no question when stdin is a terminal. A
// non-interactive run declines, so scripts must pass --yes.
func promptConfirm(message string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("not a terminal; pass --yes to confirm")
	}
	fmt.Printf("%s [y/n]: ", message)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
