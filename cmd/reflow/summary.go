package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/reflow/pkg/executor"
	"github.com/entrhq/reflow/pkg/telemetry"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	abortStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

func stateBadge(state executor.State) string {
	switch state {
	case executor.StateCompleted:
		return passStyle.Render("PASS")
	case executor.StateAborted:
		return abortStyle.Render("ABORTED")
	default:
		return failStyle.Render("FAIL")
	}
}

// renderResult formats one run's outcome for the terminal.
func renderResult(result *executor.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s  %s\n", stateBadge(result.State), result.Flow, dimStyle.Render(result.RunID))
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("steps completed:"), result.StepsCompleted)

	if result.StepError != nil {
		fmt.Fprintf(&b, "  %s step %d (%s): %s\n",
			labelStyle.Render("failure:"),
			result.StepError.Index, result.StepError.Kind, result.StepError.Message)
		if result.StepError.Screenshot != "" {
			fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("screenshot:"), result.StepError.Screenshot)
		}
	}
	if result.RunLogPath != "" {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("run log:"), result.RunLogPath)
	}

	return b.String()
}

// renderBatch formats the aggregate plus one line per parameter set.
func renderBatch(batch *executor.BatchResult) string {
	var b strings.Builder

	for i, result := range batch.Results {
		if result == nil {
			continue
		}
		line := fmt.Sprintf("%s  set %d  %d steps", stateBadge(result.State), i, result.StepsCompleted)
		if result.StepError != nil {
			line += dimStyle.Render(fmt.Sprintf("  step %d: %s", result.StepError.Index, result.StepError.Message))
		}
		b.WriteString(line + "\n")
	}

	badge := passStyle.Render(fmt.Sprintf("%d passed", batch.Passed))
	if batch.Failed > 0 {
		badge += "  " + failStyle.Render(fmt.Sprintf("%d failed", batch.Failed))
	}
	fmt.Fprintf(&b, "\n%s  %s\n", badge, dimStyle.Render(fmt.Sprintf("of %d", batch.Total)))

	return b.String()
}

// renderVersions formats the version history with rollback scores.
func renderVersions(versions []telemetry.FlowVersion, active int, scores map[int]float64) string {
	var b strings.Builder

	for _, v := range versions {
		marker := "  "
		if v.Version == active {
			marker = passStyle.Render("* ")
		}
		fmt.Fprintf(&b, "%sv%-4d %s  %s  %s\n",
			marker, v.Version,
			labelStyle.Render(fmt.Sprintf("score %.3f", scores[v.Version])),
			dimStyle.Render(fmt.Sprintf("rate %.2f over %d runs", v.SuccessRate, v.RunCount)),
			dimStyle.Render("saved "+v.SavedAt.Format("2006-01-02")),
		)
	}

	return b.String()
}
