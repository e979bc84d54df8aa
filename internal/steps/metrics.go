package steps

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/petrijr/advisa/pkg/api"
)

// Metric names produced by ComputeMetrics.
const (
	MetricTotalSteps          = "total_steps"
	MetricAverageStepDuration = "average_step_duration"
	MetricTotalProcessTime    = "total_process_time"
	MetricAvgCompletionTime   = "avg_completion_time"
	MetricMinCompletionTime   = "min_completion_time"
	MetricMaxCompletionTime   = "max_completion_time"
)

// ComputeMetrics derives structural metrics from the report's process
// steps and historical data. The metrics map replaces any previous value
// wholesale. An empty step list yields an empty map and a "no data"
// answer, never a divide-by-zero fault.
func ComputeMetrics(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
	metrics := make(map[string]float64)

	report := state.ProcessReport
	if report != nil && len(report.ProcessSteps) > 0 {
		var total float64
		for _, step := range report.ProcessSteps {
			total += step.Duration
		}
		count := float64(len(report.ProcessSteps))
		metrics[MetricTotalSteps] = count
		metrics[MetricAverageStepDuration] = round2(total / count)
		metrics[MetricTotalProcessTime] = total
	}

	if report != nil && report.HistoricalData != nil && len(report.HistoricalData.CompletionTimes) > 0 {
		times := report.HistoricalData.CompletionTimes
		var sum float64
		minT, maxT := times[0], times[0]
		for _, t := range times {
			sum += t
			if t < minT {
				minT = t
			}
			if t > maxT {
				maxT = t
			}
		}
		metrics[MetricAvgCompletionTime] = round2(sum / float64(len(times)))
		metrics[MetricMinCompletionTime] = minT
		metrics[MetricMaxCompletionTime] = maxT
	}

	var answer string
	if len(metrics) > 0 {
		names := make([]string, 0, len(metrics))
		for name := range metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		var b strings.Builder
		b.WriteString("Here are the calculated process metrics:\n")
		for _, name := range names {
			b.WriteString("- ")
			b.WriteString(metricTitle(name))
			b.WriteString(": ")
			b.WriteString(formatNumber(metrics[name]))
			b.WriteString("\n")
		}
		answer = strings.TrimRight(b.String(), "\n")
	} else {
		answer = "Unable to calculate metrics due to insufficient process data. Please ensure process steps and historical data are available."
	}

	return api.StateDelta{
		CalculatedMetrics: metrics,
		AppendMessages: []api.Message{
			{Role: api.RoleAssistant, Content: answer},
		},
	}, nil
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatNumber renders a metric without a trailing ".00" for integral values.
func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// metricTitle turns "average_step_duration" into "Average Step Duration".
func metricTitle(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
