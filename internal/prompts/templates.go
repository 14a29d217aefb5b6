package prompts

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed files
var files embed.FS

// Defaults are the built-in prompt sections.
type Defaults struct {
	SystemPromptStart string `yaml:"-"`
	Step1Start        string `yaml:"-"`
	Step2Template     string `yaml:"-"`
	ChartInstructions string `yaml:"-"`
	ChartRules        string `yaml:"-"`

	// keyed by component name
	ComponentExamples map[string]string `yaml:"components"`
	ChartExamples     map[string]string `yaml:"charts"`
	FieldsByType      map[string]string `yaml:"fields_by_type"`
}

var (
	defaultsOnce sync.Once
	defaults     *Defaults
	defaultsErr  error
)

// LoadDefaults reads the embedded prompt files once.
func LoadDefaults() (*Defaults, error) {
	defaultsOnce.Do(func() {
		defaults, defaultsErr = loadDefaults()
	})
	return defaults, defaultsErr
}

func loadDefaults() (*Defaults, error) {
	d := &Defaults{}

	examples, err := files.ReadFile("files/examples.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded examples.yaml: %w", err)
	}
	if err := yaml.Unmarshal(examples, d); err != nil {
		return nil, fmt.Errorf("failed to parse embedded examples.yaml: %w", err)
	}

	texts := []struct {
		name string
		dst  *string
	}{
		{"files/system_prompt_start.txt", &d.SystemPromptStart},
		{"files/twostep_step1_start.txt", &d.Step1Start},
		{"files/twostep_step2.tmpl", &d.Step2Template},
		{"files/chart_instructions.tmpl", &d.ChartInstructions},
		{"files/chart_rules.txt", &d.ChartRules},
	}
	for _, t := range texts {
		b, err := files.ReadFile(t.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded %s: %w", t.name, err)
		}
		*t.dst = string(b)
	}
	return d, nil
}
