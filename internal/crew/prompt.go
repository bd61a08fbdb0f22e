package crew

import (
	"fmt"
	"strings"
)

const contextSeparator = "\n\n----------\n\n"

func systemPrompt(a *Agent) string {
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s", a.Role, a.Backstory, a.Goal)
}

func taskPrompt(t *Task, context string) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(t.Description)
	b.WriteString("\n\nThis is the expected criteria for your final answer: ")
	b.WriteString(t.ExpectedOutput)
	b.WriteString("\nyou MUST return the actual complete content as the final answer, not a summary.")
	if context != "" {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(context)
	}
	b.WriteString("\n\nBegin! This is VERY important to you, give your best Final Answer, your job depends on it!")
	return b.String()
}

// taskContext joins the raw outputs the task depends on.
func taskContext(t *Task, done []TaskOutput) string {
	var parts []string
	if len(t.Context) == 0 {
		for _, o := range done {
			parts = append(parts, o.Raw)
		}
	} else {
		byName := make(map[string]string, len(done))
		for _, o := range done {
			byName[o.Task] = o.Raw
		}
		for _, name := range t.Context {
			if raw, ok := byName[name]; ok {
				parts = append(parts, raw)
			}
		}
	}
	return strings.Join(parts, contextSeparator)
}
