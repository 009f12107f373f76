package ui

import (
	"strings"
	"testing"
)

func TestFormatTable_Alignment(t *testing.T) {
	output := FormatTable(
		[]string{"ID", "NAME"},
		[][]string{
			{"1", "short"},
			{"100", "a longer name"},
		},
	)

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), output)
	}

	// The NAME column starts at the same offset on every line.
	offset := strings.Index(lines[0], "NAME")
	if offset < 0 {
		t.Fatalf("expected NAME header, got:\n%s", output)
	}
	if got := strings.Index(lines[1], "short"); got != offset {
		t.Errorf("expected column at offset %d, got %d:\n%s", offset, got, output)
	}
	if got := strings.Index(lines[2], "a longer name"); got != offset {
		t.Errorf("expected column at offset %d, got %d:\n%s", offset, got, output)
	}
}

func TestFormatTable_ANSIWidths(t *testing.T) {
	styled := "\x1b[38;5;34mfixed\x1b[0m"
	plain := FormatTable(
		[]string{"STATUS", "AGE"},
		[][]string{{"fixed", "2m ago"}},
	)
	ansi := FormatTable(
		[]string{"STATUS", "AGE"},
		[][]string{{styled, "2m ago"}},
	)

	if stripANSICodes(ansi) != plain {
		t.Fatalf("expected ANSI output to align with plain output\nplain:\n%s\nansi:\n%s", plain, ansi)
	}
}

func TestFormatTable_NormalizesNewlines(t *testing.T) {
	output := FormatTable(
		[]string{"NAME"},
		[][]string{{"first\nsecond"}},
	)
	if strings.Count(output, "\n") != 2 {
		t.Errorf("expected newlines in cells collapsed, got:\n%s", output)
	}
	if !strings.Contains(output, "first second") {
		t.Errorf("expected newline replaced by space, got:\n%s", output)
	}
}

func TestTruncateTableCell(t *testing.T) {
	short := "a short cell"
	if got := TruncateTableCell(short); got != short {
		t.Errorf("expected short cell untouched, got %q", got)
	}

	long := strings.Repeat("x", 80)
	got := TruncateTableCell(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis on truncated cell, got %q", got)
	}
	if displayWidth(got) != tableCellMaxWidth {
		t.Errorf("expected truncated width %d, got %d", tableCellMaxWidth, displayWidth(got))
	}
}

func TestTruncateTableCell_KeepsANSISequences(t *testing.T) {
	long := "\x1b[38;5;34m" + strings.Repeat("x", 80) + "\x1b[0m"
	got := TruncateTableCell(long)
	if !strings.HasPrefix(got, "\x1b[38;5;34m") {
		t.Errorf("expected leading ANSI sequence kept, got %q", got)
	}
	if displayWidth(got) != tableCellMaxWidth {
		t.Errorf("expected visible width %d, got %d", tableCellMaxWidth, displayWidth(got))
	}
}
