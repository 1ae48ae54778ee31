package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/model"
)

const maxCellWidth = 24

// RenderBatchSummary renders a boxed overview of a batch: file, row count,
// completion, and the outstanding review backlog.
func RenderBatchSummary(batch *grid.Batch) string {
	counts := batch.NeedsReview()

	lines := []string{
		fmt.Sprintf("File:        %s", batch.FileName()),
		fmt.Sprintf("Rows:        %d", batch.RowCount()),
		fmt.Sprintf("Completion:  %.0f%%", batch.Completion()*100),
	}

	if counts.Total() == 0 {
		lines = append(lines, "", FormatSuccess("All cells reviewed"))
	} else {
		lines = append(lines, "", RenderReviewCounts(counts))
	}

	return RenderBox("Batch "+batch.ID()[:8], strings.Join(lines, "\n"))
}

// RenderReviewCounts renders the review backlog broken down by state.
func RenderReviewCounts(counts grid.ReviewCounts) string {
	parts := make([]string, 0, 4)
	if counts.Suggestions > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d suggestions", counts.Suggestions)))
	}
	if counts.Duplicates > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d duplicates", counts.Duplicates)))
	}
	if counts.Critical > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d critical", counts.Critical)))
	}
	if counts.Skipped > 0 {
		parts = append(parts, SubtleStyle.Render(fmt.Sprintf("%d skipped", counts.Skipped)))
	}
	if len(parts) == 0 {
		return SuccessStyle.Render("nothing to review")
	}
	return strings.Join(parts, SubtleStyle.Render(" · "))
}

// RenderGrid renders the batch as a table. Cell values are colored by their
// review state and prefixed with a state glyph where attention is needed.
func RenderGrid(batch *grid.Batch) string {
	columns := batch.Columns()

	header := make([]string, 0, len(columns)+1)
	header = append(header, TableHeaderStyle.Render(TableCellStyle.Render("#")))
	for _, col := range columns {
		header = append(header, TableHeaderStyle.Render(TableCellStyle.Render(col.Header)))
	}

	out := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for _, row := range batch.Rows() {
		cells := make([]string, 0, len(columns)+1)
		index := fmt.Sprintf("%d", row.RowIndex)
		if row.Locked {
			index += " " + LockIcon
		}
		cells = append(cells, TableCellStyle.Render(index))

		for _, col := range columns {
			cells = append(cells, TableCellStyle.Render(renderCell(row, col.Key)))
		}
		out = append(out, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return strings.Join(out, "\n")
}

func renderCell(row *model.Row, columnKey string) string {
	status := row.StatusFor(columnKey)
	value := row.Data[columnKey]
	if value == "" {
		value = SubtleStyle.Render("(empty)")
	}
	value = truncate(value, maxCellWidth)

	if status.State == model.StateClean {
		return value
	}
	return StateGlyph(status.State) + " " + StateStyle(status.State).Render(value)
}

// RenderCellDetail renders the full status of one cell for the review prompt.
func RenderCellDetail(row *model.Row, column model.ColumnDef) string {
	status := row.StatusFor(column.Key)

	lines := []string{
		fmt.Sprintf("%s %s (row %d)", BoldStyle.Render(column.Header), SubtleStyle.Render(column.Key), row.RowIndex),
		fmt.Sprintf("Value:   %q", row.Data[column.Key]),
		fmt.Sprintf("State:   %s", StateStyle(status.State).Render(string(status.State))),
	}
	if status.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("Suggest: %q (%.0f%%)", status.Suggestion, status.Confidence*100))
	}
	if status.Message != "" {
		lines = append(lines, "Note:    "+status.Message)
	}
	if info := status.DuplicateInfo; info != nil {
		lines = append(lines, fmt.Sprintf("Match:   %s / %s / %s on %s (similarity %.1f)",
			info.MatchedData.Name, info.MatchedData.Amount, info.MatchedData.AccountNumber,
			info.MatchedAt.Format("2 Jan 2006"), info.Similarity))
	}

	return strings.Join(lines, "\n")
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
