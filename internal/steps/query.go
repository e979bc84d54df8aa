package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/advisa/pkg/api"
)

// QueryAnswer answers a question about the documented process from the
// report alone. It is read-only over the report and appends exactly one
// assistant turn.
func QueryAnswer(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
	answer := answerFromReport(state.UserInput, state.ProcessReport)
	return api.StateDelta{
		AppendMessages: []api.Message{
			{Role: api.RoleAssistant, Content: answer},
		},
	}, nil
}

func answerFromReport(question string, report *api.ProcessReport) string {
	if report == nil || len(report.ProcessSteps) == 0 {
		return "I don't have a documented process to answer from yet. Please provide a process report first."
	}

	// If the question names a documented step, describe that step.
	lowered := strings.ToLower(question)
	for _, step := range report.ProcessSteps {
		if step.Name != "" && strings.Contains(lowered, strings.ToLower(step.Name)) {
			return describeStep(step)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found about the process: it has %d documented steps", len(report.ProcessSteps))
	var total float64
	for _, step := range report.ProcessSteps {
		total += step.Duration
	}
	fmt.Fprintf(&b, " with a total duration of %s time-units.", formatNumber(total))
	if len(report.Stakeholders) > 0 {
		fmt.Fprintf(&b, " Involved stakeholders: %s.", strings.Join(report.Stakeholders, ", "))
	}
	if len(report.CurrentIssues) > 0 {
		fmt.Fprintf(&b, " Known issues: %s.", strings.Join(report.CurrentIssues, "; "))
	}
	return b.String()
}

func describeStep(step api.ProcessStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %q takes %s time-units", step.Name, formatNumber(step.Duration))
	if step.AutomationLevel != "" {
		fmt.Fprintf(&b, " and is %s", step.AutomationLevel)
	}
	b.WriteString(".")
	if step.Description != "" {
		b.WriteString(" ")
		b.WriteString(step.Description)
	}
	return b.String()
}
