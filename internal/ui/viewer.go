package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"imgconform/internal/domain"
	"imgconform/internal/logging"
	"imgconform/internal/storage"
)

// Viewer displays stored failures
type Viewer interface {
	View(results *domain.RunOutput) error
}

// FailureViewer browses the failures of the last run in a TUI and lets the
// user mark them resolved. Resolved cases are skipped by run --failed.
type FailureViewer struct {
	storage storage.Storage
}

// NewFailureViewer creates a new FailureViewer
func NewFailureViewer(st storage.Storage) *FailureViewer {
	return &FailureViewer{storage: st}
}

// View displays the failures of results
func (fv *FailureViewer) View(results *domain.RunOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No failures in the last run!")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	for i := range results.Details {
		list.AddItem(listItemText(results.Details[i], i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(fmt.Sprintf(
			" Failures (%d total, %d unresolved) | ↑↓ navigate, [yellow]R[white] mark resolved, → details, ← back, Ctrl+C exit ",
			len(results.Details), countUnresolved(results.Details)))
	}

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Details) {
			statsView.SetText(formatFailureStats(results.Details[index]))
			detailsView.SetText(formatFailureDetails(results.Details[index]))
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() != 'r' && event.Rune() != 'R' {
				return event
			}
			index := list.GetCurrentItem()
			if index < 0 || index >= len(results.Details) {
				return nil
			}
			results.Details[index].Resolved = !results.Details[index].Resolved
			list.SetItemText(index, listItemText(results.Details[index], index), "")
			updateHeader()
			updateDetails()
			if err := fv.storage.SaveOutput(results); err != nil {
				logging.L().Warn("could not save resolved state", "err", err)
			}
			return nil
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})

	updateHeader()
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func countUnresolved(failures []domain.CaseFailure) int {
	n := 0
	for _, f := range failures {
		if !f.Resolved {
			n++
		}
	}
	return n
}

func listItemText(failure domain.CaseFailure, index int) string {
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, failure.CaseName)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, failure.CaseName)
}

// formatFailureDetails formats a failure using tview color tags
func formatFailureDetails(failure domain.CaseFailure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Case: %s[white]\n\n", failure.CaseName)
	fmt.Fprintf(w, "[yellow]Reason:[white]\n%s\n\n", tview.Escape(failure.Reason))
	fmt.Fprintf(w, "[cyan]Descriptor:\t[white]%s\n", failure.DescriptorPath)
	fmt.Fprintf(w, "[cyan]Expected:\t[white]%s\n", failure.ExpectedPath)
	if failure.DiagnosticPath != "" {
		fmt.Fprintf(w, "[cyan]Produced:\t[white]%s\n", failure.DiagnosticPath)
	}
	fmt.Fprintf(w, "[cyan]Took:\t[white]%.3fs\n", failure.DurationSecs)

	w.Flush()
	return builder.String()
}

func formatFailureStats(failure domain.CaseFailure) string {
	status := "[red]unresolved[white]"
	if failure.Resolved {
		status = "[gray]resolved[white]"
	}
	return fmt.Sprintf("[cyan]case:[white] [yellow]%s[white]  [cyan]kind:[white] %s  %s\n",
		failure.CaseName, failure.Kind, status)
}
