package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/onboarding"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#10B981")).Padding(0, 1)
)

func newBar() progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
}

// renderProgress draws the step header and the progress bar for st.
func renderProgress(bar progress.Model, st onboarding.State) string {
	head := titleStyle.Render(fmt.Sprintf("Step %d of %d: %s", st.StepNumber, onboarding.Steps, st.StepTitle))
	line := bar.ViewAs(st.Progress/100) + " " + mutedStyle.Render(fmt.Sprintf("%d/%d connected", len(st.Connected), st.Total))
	return head + "\n" + line + "\n"
}

// printer renders notifications as toast-like lines on w.
func printer(w io.Writer) notify.Notifier {
	return notify.Func(func(kind notify.Kind, title, message string) {
		style := successStyle
		if kind == notify.Error {
			style = errorStyle
		}
		fmt.Fprintf(w, "%s %s\n", style.Render(title), mutedStyle.Render(message))
	})
}
