package steps

import (
	"context"
	"strings"

	"github.com/petrijr/advisa/pkg/api"
)

// FillGap inspects the process report for missing sections and reports
// them as knowledge gaps. Read-only over the report; appends exactly one
// assistant turn.
func FillGap(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
	var gaps []string

	report := state.ProcessReport
	if report == nil || len(report.ProcessSteps) == 0 {
		gaps = append(gaps, "Process steps not documented")
	}
	if report == nil || len(report.Metrics) == 0 {
		gaps = append(gaps, "Performance metrics not available")
	}
	if report == nil || len(report.Stakeholders) == 0 {
		gaps = append(gaps, "Stakeholder roles not defined")
	}

	var answer string
	if len(gaps) > 0 {
		var b strings.Builder
		b.WriteString("I've identified the following knowledge gaps:\n")
		for _, gap := range gaps {
			b.WriteString("- ")
			b.WriteString(gap)
			b.WriteString("\n")
		}
		b.WriteString("\nWould you like me to help gather this information?")
		answer = b.String()
	} else {
		answer = "The process documentation appears complete. No significant knowledge gaps identified."
	}

	return api.StateDelta{
		AppendMessages: []api.Message{
			{Role: api.RoleAssistant, Content: answer},
		},
	}, nil
}
