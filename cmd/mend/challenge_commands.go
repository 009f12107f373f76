package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amonks/mapmend/task"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Create the challenge rows tasks belong to",
}

// challenge create
var challengeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a challenge",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallengeCreate,
}

var challengeCreateRequiresReview bool

func init() {
	challengeCreateCmd.Flags().BoolVar(&challengeCreateRequiresReview, "requires-review", false, "force a review cycle on every completion")
	challengeCmd.AddCommand(challengeCreateCmd)
}

func runChallengeCreate(cmd *cobra.Command, args []string) error {
	actor, err := currentUser()
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}

	created := task.Challenge{
		Name:           args[0],
		OwnerID:        actor.ID,
		RequiresReview: challengeCreateRequiresReview,
	}
	if err := rt.store.CreateChallenge(cmd.Context(), &created); err != nil {
		return err
	}

	fmt.Printf("challenge %d created\n", created.ID)
	return nil
}
