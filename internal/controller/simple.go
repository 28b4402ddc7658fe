package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd      *cobra.Command
	colors   palette
	emphasis lipgloss.Style
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, colors bool) *SimpleUI {
	return &SimpleUI{
		cmd:      cmd,
		colors:   newPalette(colors),
		emphasis: newEmphasis(cmd.OutOrStdout(), colors),
	}
}

// DisplayMaterialized prints a table of materialized documents followed by
// the documents that could not be scanned.
func (s *SimpleUI) DisplayMaterialized(ctx context.Context, files []m.MaterializedFile, skipped []m.Skipped) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", s.renderMaterializedTable(files))

	if len(skipped) == 0 {
		return
	}

	sorted := make([]m.Skipped, len(skipped))
	copy(sorted, skipped)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Document < sorted[j].Document
	})

	s.printf("Not scanned: %d\n", len(sorted))

	for _, entry := range sorted {
		s.printf("  %s %s: %v\n", s.colors.skipped("skipped"), entry.Document, entry.Err)
	}
}

func (s *SimpleUI) renderMaterializedTable(files []m.MaterializedFile) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Document", "Path", "Mode"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	temporary := 0

	for _, file := range files {
		mode := s.colors.direct("direct")
		if file.Temporary {
			mode = s.colors.temporary("temporary")
			temporary++
		}

		table.Append([]string{file.Document, string(file.RealPath), mode})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(files)),
		"",
		fmt.Sprintf("%d temporary", temporary),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayToolOutput prints the raw output of the external tool.
func (s *SimpleUI) DisplayToolOutput(ctx context.Context, output string, err error) {
	if ctx.Err() != nil {
		return
	}

	if output != "" {
		s.printf("%s", output)
	}

	if err != nil {
		s.printf("tool exited: %v\n", err)
	}
}

// DisplayStatus prints diverging documents and their diffs.
func (s *SimpleUI) DisplayStatus(ctx context.Context, entries []m.Divergence) {
	if ctx.Err() != nil {
		return
	}

	if len(entries) == 0 {
		s.printf("All open documents match disk.\n")
		return
	}

	for _, entry := range entries {
		s.printf("%s\t%s\n", s.colors.temporary(entry.State.String()), s.emphasis.Render(entry.Document))

		if entry.Diff != "" {
			s.printf("%s\n", entry.Diff)
		}
	}
}

// DisplaySwept prints the removed orphan trees.
func (s *SimpleUI) DisplaySwept(ctx context.Context, removed []m.Path) {
	if ctx.Err() != nil {
		return
	}

	for _, root := range removed {
		s.printf("removed %s\n", root)
	}

	s.printf("Swept %d orphaned temporary director%s\n", len(removed), pluralY(len(removed)))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}

	return "ies"
}
