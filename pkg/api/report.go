package api

// ProcessReport is the structured process description a thread analyzes.
// It is read-only input: steps derive answers, metrics and recommendations
// from it but never write it back.
//
// Any section may be missing; steps degrade to "insufficient data" answers
// rather than failing.
type ProcessReport struct {
	ProcessSteps   []ProcessStep      `json:"process_steps,omitempty"`
	Stakeholders   []string           `json:"stakeholders,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	HistoricalData *HistoricalData    `json:"historical_data,omitempty"`
	CurrentIssues  []string           `json:"current_issues,omitempty"`
}

// ProcessStep is one documented step of the business process.
type ProcessStep struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Duration        float64 `json:"duration"`
	AutomationLevel string  `json:"automation_level,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// Automation levels recognized in process step descriptions.
const (
	AutomationManual    = "manual"
	AutomationAutomated = "automated"
)

// HistoricalData holds past execution samples for the process.
type HistoricalData struct {
	CompletionTimes []float64 `json:"completion_times,omitempty"`
	SuccessRates    []float64 `json:"success_rates,omitempty"`
}

// Clone returns a deep copy of the report.
func (r ProcessReport) Clone() ProcessReport {
	out := r
	if r.ProcessSteps != nil {
		out.ProcessSteps = append([]ProcessStep(nil), r.ProcessSteps...)
	}
	if r.Stakeholders != nil {
		out.Stakeholders = append([]string(nil), r.Stakeholders...)
	}
	if r.Metrics != nil {
		out.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	if r.HistoricalData != nil {
		hd := HistoricalData{}
		if r.HistoricalData.CompletionTimes != nil {
			hd.CompletionTimes = append([]float64(nil), r.HistoricalData.CompletionTimes...)
		}
		if r.HistoricalData.SuccessRates != nil {
			hd.SuccessRates = append([]float64(nil), r.HistoricalData.SuccessRates...)
		}
		out.HistoricalData = &hd
	}
	if r.CurrentIssues != nil {
		out.CurrentIssues = append([]string(nil), r.CurrentIssues...)
	}
	return out
}
