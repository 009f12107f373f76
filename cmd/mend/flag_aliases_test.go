package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestReviewAliasUsesSingleFlag(t *testing.T) {
	var requestReview bool
	cmd := &cobra.Command{Use: "example"}
	addReviewFlagAliases(cmd)
	cmd.Flags().BoolVar(&requestReview, "request-review", false, "Example review request")

	if err := cmd.Flags().Set("review", "true"); err != nil {
		t.Fatalf("set review alias: %v", err)
	}
	if !requestReview {
		t.Fatal("expected request-review to be set via alias")
	}
	if !cmd.Flags().Changed("request-review") {
		t.Fatal("expected request-review flag to be marked as changed")
	}

	usage := cmd.Flags().FlagUsages()
	if strings.Contains(usage, "--review ") {
		t.Fatalf("did not expect alias to appear in usage, got %q", usage)
	}
	if !strings.Contains(usage, "--request-review") {
		t.Fatalf("expected canonical flag in usage, got %q", usage)
	}
}
