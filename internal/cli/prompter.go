package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/model"
)

// ReviewPrompter walks the outstanding issues of a batch and applies the
// user's decisions through the batch transition methods.
type ReviewPrompter struct {
	batch    *grid.Batch
	writer   io.Writer
	reader   *bufio.Reader
	resolved int
}

// NewReviewPrompter creates a prompter over the given batch.
func NewReviewPrompter(batch *grid.Batch, reader io.Reader, writer io.Writer) *ReviewPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &ReviewPrompter{
		batch:  batch,
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Resolved returns the number of cells resolved during this session.
func (p *ReviewPrompter) Resolved() int {
	return p.resolved
}

// Run visits every outstanding issue once, in row-major order, prompting for
// a decision on each. Cells the user defers stay in their current state and
// are not revisited this session.
func (p *ReviewPrompter) Run(ctx context.Context) error {
	visited := make(map[grid.Cursor]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cursor := p.batch.NextIssue()
		if cursor == nil || visited[*cursor] {
			break
		}
		visited[*cursor] = true

		done, err := p.reviewCell(ctx, *cursor)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	counts := p.batch.NeedsReview()
	if counts.Total() == 0 {
		fmt.Fprintln(p.writer, FormatSuccess("All cells reviewed"))
	} else {
		fmt.Fprintln(p.writer, FormatInfo("Remaining: "+RenderReviewCounts(counts)))
	}
	return nil
}

// reviewCell prompts for one cell. The bool result reports whether the user
// asked to quit the session.
func (p *ReviewPrompter) reviewCell(ctx context.Context, cursor grid.Cursor) (bool, error) {
	row, err := p.batch.Row(cursor.RowID)
	if err != nil {
		return false, err
	}
	column, ok := p.columnDef(cursor.ColumnKey)
	if !ok {
		return false, fmt.Errorf("unknown column %q", cursor.ColumnKey)
	}
	status := row.StatusFor(cursor.ColumnKey)

	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, RenderBox("Review", RenderCellDetail(row, column)))

	switch status.State {
	case model.StateAISuggestion:
		return p.reviewSuggestion(ctx, cursor, status)
	case model.StateDuplicate:
		return p.reviewDuplicate(ctx, cursor)
	case model.StateCritical:
		return p.reviewCritical(ctx, cursor, status)
	default:
		return false, nil
	}
}

func (p *ReviewPrompter) reviewSuggestion(ctx context.Context, cursor grid.Cursor, status model.CellStatus) (bool, error) {
	fmt.Fprintf(p.writer, "  [a] Accept suggestion: %s\n", SuccessStyle.Render(status.Suggestion))
	fmt.Fprintln(p.writer, "  [r] Reject, keep current value")
	fmt.Fprintln(p.writer, "  [e] Enter a different value")
	fmt.Fprintln(p.writer, "  [l] Leave for later")
	fmt.Fprintln(p.writer, "  [q] Quit review")

	choice, err := p.promptChoice(ctx, "Choice", []string{"a", "r", "e", "l", "q"})
	if err != nil {
		return false, err
	}

	switch choice {
	case "a":
		if err := p.batch.ApplySuggestion(cursor.RowID, cursor.ColumnKey); err != nil {
			return false, err
		}
		p.resolved++
	case "r":
		if err := p.batch.RejectSuggestion(cursor.RowID, cursor.ColumnKey); err != nil {
			return false, err
		}
		p.resolved++
	case "e":
		value, err := p.promptInput(ctx, "New value")
		if err != nil {
			return false, err
		}
		if err := p.batch.UpdateCell(cursor.RowID, cursor.ColumnKey, value); err != nil {
			return false, err
		}
		p.resolved++
	case "q":
		return true, nil
	}
	return false, nil
}

func (p *ReviewPrompter) reviewDuplicate(ctx context.Context, cursor grid.Cursor) (bool, error) {
	fmt.Fprintln(p.writer, "  [p] Proceed, intentional duplicate")
	fmt.Fprintln(p.writer, "  [s] Skip this payment")
	fmt.Fprintln(p.writer, "  [l] Leave for later")
	fmt.Fprintln(p.writer, "  [q] Quit review")

	choice, err := p.promptChoice(ctx, "Choice", []string{"p", "s", "l", "q"})
	if err != nil {
		return false, err
	}

	switch choice {
	case "p":
		if err := p.batch.ResolveDuplicate(cursor.RowID, cursor.ColumnKey, grid.DuplicateProceed); err != nil {
			return false, err
		}
		p.resolved++
	case "s":
		if err := p.batch.ResolveDuplicate(cursor.RowID, cursor.ColumnKey, grid.DuplicateSkip); err != nil {
			return false, err
		}
		p.resolved++
	case "q":
		return true, nil
	}
	return false, nil
}

func (p *ReviewPrompter) reviewCritical(ctx context.Context, cursor grid.Cursor, status model.CellStatus) (bool, error) {
	fmt.Fprintln(p.writer, "  [f] Fill in the value now")
	fmt.Fprintln(p.writer, "  [o] Override with a reason")
	fmt.Fprintln(p.writer, "  [w] Request via WhatsApp later")
	fmt.Fprintln(p.writer, "  [q] Quit review")

	choice, err := p.promptChoice(ctx, "Choice", []string{"f", "o", "w", "q"})
	if err != nil {
		return false, err
	}

	switch choice {
	case "f":
		value, err := p.promptInput(ctx, "Value")
		if err != nil {
			return false, err
		}
		if status.Source == model.SourceMissing {
			err = p.batch.SubmitMissingField(cursor.RowID, cursor.ColumnKey, value)
		} else {
			err = p.batch.UpdateCell(cursor.RowID, cursor.ColumnKey, value)
		}
		if err != nil {
			return false, err
		}
		p.resolved++
	case "o":
		reason, err := p.promptInput(ctx, "Reason")
		if err != nil {
			return false, err
		}
		if err := p.batch.OverrideCritical(cursor.RowID, cursor.ColumnKey, reason); err != nil {
			fmt.Fprintln(p.writer, FormatError(err.Error()))
			return false, nil
		}
		p.resolved++
	case "q":
		return true, nil
	}
	return false, nil
}

func (p *ReviewPrompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(strings.TrimSpace(input))

		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *ReviewPrompter) promptInput(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	input, err := p.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("input terminated")
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (p *ReviewPrompter) columnDef(key string) (model.ColumnDef, bool) {
	for _, col := range p.batch.Columns() {
		if col.Key == key {
			return col, true
		}
	}
	return model.ColumnDef{}, false
}
