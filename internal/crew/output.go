package crew

// Usage counts tokens and calls spent on LLM completions.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Calls        int   `json:"calls"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		Calls:        u.Calls + o.Calls,
	}
}

// TaskOutput is the result of one executed (or replayed) task.
type TaskOutput struct {
	Task           string `json:"task"`
	Agent          string `json:"agent"`
	Description    string `json:"description"`
	ExpectedOutput string `json:"expected_output"`
	Raw            string `json:"raw"`
	OutputFile     string `json:"output_file,omitempty"`
	Usage          Usage  `json:"usage"`
	// Replayed is true when the output came from a previous run instead of the LLM.
	Replayed bool `json:"replayed,omitempty"`
}

// CrewOutput is the result of a full kickoff.
type CrewOutput struct {
	// Raw is the raw output of the last task.
	Raw   string       `json:"raw"`
	Tasks []TaskOutput `json:"tasks"`
	Usage Usage        `json:"usage"`
}

// TaskOutput returns the output for the named task, if present.
func (o *CrewOutput) TaskOutput(name string) (TaskOutput, bool) {
	for _, t := range o.Tasks {
		if t.Task == name {
			return t, true
		}
	}
	return TaskOutput{}, false
}
