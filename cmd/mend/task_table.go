package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amonks/mapmend/internal/markdown"
	"github.com/amonks/mapmend/internal/ui"
	"github.com/amonks/mapmend/task"
)

func formatTaskTable(tasks []task.Task) string {
	builder := ui.NewTableBuilder([]string{"ID", "CHALLENGE", "NAME", "STATUS", "PRIORITY", "COMPLETED BY", "MAPPED"}, len(tasks))
	now := time.Now()
	for _, t := range tasks {
		builder.AddRow([]string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.ChallengeID, 10),
			ui.TruncateTableCell(t.Name),
			ui.StyleStatus(string(t.Status)),
			strconv.Itoa(t.Priority),
			ui.FormatOptionalID(t.CompletedBy),
			ui.FormatOptionalTime(t.MappedOn, now),
		})
	}
	return builder.String()
}

func formatTaskDetail(t *task.Task, width int) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "task %d: %s\n", t.ID, t.Name)
	fmt.Fprintf(&builder, "challenge:  %d\n", t.ChallengeID)
	fmt.Fprintf(&builder, "status:     %s\n", ui.StyleStatus(string(t.Status)))
	fmt.Fprintf(&builder, "priority:   %d\n", t.Priority)
	if t.CompletedBy != nil {
		fmt.Fprintf(&builder, "completed:  by user %s", ui.FormatOptionalID(t.CompletedBy))
		if t.MappedOn != nil {
			fmt.Fprintf(&builder, " (%s)", ui.FormatTimeAgo(*t.MappedOn, time.Now()))
		}
		builder.WriteByte('\n')
	}
	if t.BundleID != nil {
		primary := ""
		if t.IsBundlePrimary {
			primary = " (primary)"
		}
		fmt.Fprintf(&builder, "bundle:     %d%s\n", *t.BundleID, primary)
	}
	if strings.TrimSpace(t.Instruction) != "" {
		builder.WriteString("\n")
		builder.WriteString(markdown.Render(width, t.Instruction))
		builder.WriteString("\n")
	}
	return builder.String()
}

func formatReviewTable(reviews []task.TaskReview) string {
	builder := ui.NewTableBuilder([]string{"TASK", "STATUS", "REQUESTED BY", "CLAIMED BY", "REVIEWED BY", "REVIEWED"}, len(reviews))
	now := time.Now()
	for _, r := range reviews {
		builder.AddRow([]string{
			strconv.FormatInt(r.TaskID, 10),
			ui.StyleReviewStatus(string(r.ReviewStatus)),
			ui.FormatOptionalID(r.ReviewRequestedBy),
			ui.FormatOptionalID(r.ReviewClaimedBy),
			ui.FormatOptionalID(r.ReviewedBy),
			ui.FormatOptionalTime(r.ReviewedAt, now),
		})
	}
	return builder.String()
}
