package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/texpurify/internal/services/stream"
)

// yamlReport is the single document written by the YAML renderer.
type yamlReport struct {
	Start     *stream.StartEvent     `yaml:"start,omitempty"`
	Documents []stream.DocumentEvent `yaml:"documents"`
	Resources []stream.ResourceEvent `yaml:"resources"`
	Unused    []string               `yaml:"unused"`
	Warnings  []string               `yaml:"warnings,omitempty"`
	Summary   *stream.SummaryEvent   `yaml:"summary,omitempty"`
}

// yamlStreamRenderer accumulates events and encodes one report on Flush.
type yamlStreamRenderer struct {
	stdout io.Writer
	stderr io.Writer
	report yamlReport
}

func NewYAMLStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &yamlStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *yamlStreamRenderer) Handle(event stream.Event) error {
	writeWarning(renderer.stderr, event)
	switch event.Kind {
	case stream.EventKindStart:
		renderer.report.Start = event.Start
	case stream.EventKindDocument:
		if event.Document != nil {
			renderer.report.Documents = append(renderer.report.Documents, *event.Document)
		}
	case stream.EventKindResource:
		if event.Resource != nil {
			renderer.report.Resources = append(renderer.report.Resources, *event.Resource)
		}
	case stream.EventKindUnused:
		renderer.report.Unused = append(renderer.report.Unused, event.Path)
	case stream.EventKindWarning:
		if event.Message != nil {
			renderer.report.Warnings = append(renderer.report.Warnings, event.Message.Message)
		}
	case stream.EventKindSummary:
		renderer.report.Summary = event.Summary
	}
	return nil
}

func (renderer *yamlStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	encoder := yaml.NewEncoder(renderer.stdout)
	encoder.SetIndent(len(indentSpacer))
	if err := encoder.Encode(renderer.report); err != nil {
		return err
	}
	return encoder.Close()
}
