package crew

import (
	"fmt"
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_-]*)\}`)

// Interpolate replaces {name} placeholders in text with values from inputs.
// Every placeholder must have a matching input. Text without placeholders is
// returned unchanged.
func Interpolate(text string, inputs map[string]string) (string, error) {
	if text == "" {
		return text, nil
	}

	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := inputs[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, missing)
	}
	return out, nil
}

// Placeholders returns the distinct placeholder names in text, in order of first use.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// taskPlaceholders returns the distinct placeholders used by tasks and their
// agents, in task order.
func taskPlaceholders(tasks []*Task) []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range tasks {
		fields := []string{t.Agent.Role, t.Agent.Goal, t.Agent.Backstory, t.Description, t.ExpectedOutput, t.OutputFile}
		for _, f := range fields {
			for _, name := range Placeholders(f) {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}

// missingInputs returns the placeholders of tasks that inputs does not supply.
func missingInputs(tasks []*Task, inputs map[string]string) []string {
	var missing []string
	for _, name := range taskPlaceholders(tasks) {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// interpolateAll applies Interpolate to each field pointer, stopping at the first error.
func interpolateAll(inputs map[string]string, fields ...*string) error {
	for _, f := range fields {
		v, err := Interpolate(*f, inputs)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}
