package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/advisa/pkg/api"
)

// Advisory thresholds, in the time-units of the process report.
const (
	inefficientAvgDuration = 10
	overComplexSteps       = 15
	overSimplifiedSteps    = 3
	bottleneckDuration     = 20
	manualStepFraction     = 0.7
)

// GenerateAdvisory derives improvement recommendations from the calculated
// metrics and the report. The graph guarantees metrics are computed before
// this runs; with no metrics it simply crosses no thresholds. Produces an
// empty recommendation list and a neutral answer when nothing is flagged.
func GenerateAdvisory(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
	recommendations := []string{}

	metrics := state.CalculatedMetrics
	if metrics[MetricAverageStepDuration] > inefficientAvgDuration {
		recommendations = append(recommendations,
			"Consider optimizing steps with long durations to improve overall efficiency")
	}

	totalSteps := metrics[MetricTotalSteps]
	if totalSteps > overComplexSteps {
		recommendations = append(recommendations,
			"Process appears complex - consider breaking down into sub-processes")
	} else if totalSteps > 0 && totalSteps < overSimplifiedSteps {
		recommendations = append(recommendations,
			"Process may be oversimplified - ensure all necessary steps are captured")
	}

	if state.ProcessReport != nil && len(state.ProcessReport.ProcessSteps) > 0 {
		steps := state.ProcessReport.ProcessSteps

		slowest := steps[0]
		for _, step := range steps[1:] {
			if step.Duration > slowest.Duration {
				slowest = step
			}
		}
		if slowest.Duration > bottleneckDuration {
			name := slowest.Name
			if name == "" {
				name = "Unknown"
			}
			recommendations = append(recommendations,
				fmt.Sprintf("Potential bottleneck identified in step: %s", name))
		}

		manual := 0
		for _, step := range steps {
			if step.AutomationLevel == api.AutomationManual || step.AutomationLevel == "" {
				manual++
			}
		}
		if float64(manual) > float64(len(steps))*manualStepFraction {
			recommendations = append(recommendations,
				"High proportion of manual steps - explore automation opportunities")
		}
	}

	var answer string
	if len(recommendations) > 0 {
		var b strings.Builder
		b.WriteString("Based on my analysis, here are my advisory recommendations:\n")
		for _, rec := range recommendations {
			b.WriteString("- ")
			b.WriteString(rec)
			b.WriteString("\n")
		}
		b.WriteString("\nWould you like me to elaborate on any of these recommendations?")
		answer = b.String()
	} else {
		answer = "The process appears well-optimized based on current data. Continue monitoring performance and consider periodic reviews."
	}

	return api.StateDelta{
		AdvisoryRecommendations: recommendations,
		AppendMessages: []api.Message{
			{Role: api.RoleAssistant, Content: answer},
		},
	}, nil
}
