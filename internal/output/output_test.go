package output_test

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/texpurify/internal/output"
	"github.com/tyemirov/texpurify/internal/services/stream"
	"github.com/tyemirov/texpurify/internal/types"
)

func sampleEvents() []stream.Event {
	return []stream.Event{
		{Version: 1, Kind: stream.EventKindStart, Command: types.CommandPurify, Path: "/src/main.tex", Start: &stream.StartEvent{RootDocument: "/src/main.tex", SourceRoot: "/src", OutputDirectory: "/out", RemoveCommands: []string{"KL"}}},
		{Version: 1, Kind: stream.EventKindWarning, Command: types.CommandPurify, Message: &stream.LogEvent{Level: "warning", Message: "graphics file gone referenced by main.tex not found"}},
		{Version: 1, Kind: stream.EventKindDocument, Command: types.CommandPurify, Path: "ms.tex", Document: &stream.DocumentEvent{SourcePath: "main.tex", OutputPath: "ms.tex", SizeBytes: 10, Tokens: 4, Model: "stub"}},
		{Version: 1, Kind: stream.EventKindResource, Command: types.CommandPurify, Path: "fig.png", Resource: &stream.ResourceEvent{SourcePath: "fig.png", OutputPath: "fig.png", Kind: types.ReferenceKindGraphics, SizeBytes: 3}},
		{Version: 1, Kind: stream.EventKindUnused, Command: types.CommandPurify, Path: "stray.txt"},
		{Version: 1, Kind: stream.EventKindSummary, Command: types.CommandPurify, Path: "/out", Summary: &stream.SummaryEvent{
			Documents: 1, Files: 1, Unused: 1, Bytes: 13, Tokens: 4, Model: "stub",
			Statistics: []types.StatisticEntry{{Name: "num_cmds_removed_KL", Value: 1}, {Name: "num_inline_comments", Value: 2}},
		}},
		{Version: 1, Kind: stream.EventKindDone, Command: types.CommandPurify, Path: "/out"},
	}
}

func render(t *testing.T, format string) (string, string) {
	t.Helper()
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	renderer, err := output.NewStreamRenderer(format, &stdout, &stderr)
	if err != nil {
		t.Fatalf("NewStreamRenderer(%s) error: %v", format, err)
	}
	for _, event := range sampleEvents() {
		if err := renderer.Handle(event); err != nil {
			t.Fatalf("handle event failed: %v", err)
		}
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	return stdout.String(), stderr.String()
}

func TestRawStreamRendererReport(t *testing.T) {
	stdout, stderr := render(t, types.FormatRaw)

	expected := "Wrote ms.tex (from main.tex, 10b, 4 tokens)\n" +
		"Copied fig.png (graphics, 3b)\n" +
		"\n=== Unused files ===\nstray.txt\n" +
		"\n=== Statistics ===\nnum_cmds_removed_KL: 1\nnum_inline_comments: 2\n" +
		"Summary: 1 document, 1 file, 1 unused, 13b, 4 tokens (stub)\n"
	if stdout != expected {
		t.Fatalf("unexpected raw output:\nwant %q\ngot  %q", expected, stdout)
	}
	if !strings.Contains(stderr, "graphics file gone") {
		t.Fatalf("expected warning on stderr, got %q", stderr)
	}
}

func TestJSONStreamRendererWritesArray(t *testing.T) {
	stdout, stderr := render(t, types.FormatJSON)

	var decoded []stream.Event
	if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if len(decoded) != len(sampleEvents()) {
		t.Fatalf("expected %d events, got %d", len(sampleEvents()), len(decoded))
	}
	if decoded[2].Document == nil || decoded[2].Document.OutputPath != "ms.tex" {
		t.Fatalf("unexpected document event %+v", decoded[2])
	}
	if !strings.Contains(stderr, "graphics file gone") {
		t.Fatalf("expected warning on stderr, got %q", stderr)
	}
}

func TestJSONStreamRendererWithoutEvents(t *testing.T) {
	var stdout bytes.Buffer
	renderer := output.NewJSONStreamRenderer(&stdout, nil)
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if stdout.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", stdout.String())
	}
}

func TestXMLStreamRendererOutputsSingleRoot(t *testing.T) {
	stdout, _ := render(t, types.FormatXML)

	var document struct {
		XMLName xml.Name `xml:"events"`
		Events  []struct {
			Kind     string `xml:"kind,attr"`
			Path     string `xml:"path,attr"`
			Document *struct {
				OutputPath string `xml:"outputPath,attr"`
			} `xml:"document"`
			Summary *struct {
				Statistics []types.StatisticEntry `xml:"statistic"`
			} `xml:"summary"`
		} `xml:"event"`
	}
	if err := xml.Unmarshal([]byte(stdout), &document); err != nil {
		t.Fatalf("invalid XML output: %v\n%s", err, stdout)
	}
	if len(document.Events) != len(sampleEvents()) {
		t.Fatalf("expected %d events, got %d", len(sampleEvents()), len(document.Events))
	}
	if document.Events[2].Document == nil || document.Events[2].Document.OutputPath != "ms.tex" {
		t.Fatalf("unexpected document element")
	}
	if summary := document.Events[5].Summary; summary == nil || len(summary.Statistics) != 2 {
		t.Fatalf("expected two statistics in summary")
	}
	if !strings.HasSuffix(stdout, "\n</events>\n") {
		t.Fatalf("expected closing root element, got %q", stdout)
	}
}

func TestYAMLStreamRendererWritesReport(t *testing.T) {
	stdout, _ := render(t, types.FormatYAML)

	var report struct {
		Documents []stream.DocumentEvent `yaml:"documents"`
		Resources []stream.ResourceEvent `yaml:"resources"`
		Unused    []string               `yaml:"unused"`
		Warnings  []string               `yaml:"warnings"`
		Summary   stream.SummaryEvent    `yaml:"summary"`
	}
	if err := yaml.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid YAML output: %v\n%s", err, stdout)
	}
	if len(report.Documents) != 1 || report.Documents[0].SourcePath != "main.tex" {
		t.Fatalf("unexpected documents %+v", report.Documents)
	}
	if len(report.Resources) != 1 || report.Resources[0].Kind != types.ReferenceKindGraphics {
		t.Fatalf("unexpected resources %+v", report.Resources)
	}
	if len(report.Unused) != 1 || report.Unused[0] != "stray.txt" {
		t.Fatalf("unexpected unused %+v", report.Unused)
	}
	if len(report.Warnings) != 1 || report.Summary.Unused != 1 {
		t.Fatalf("unexpected warnings or summary: %+v %+v", report.Warnings, report.Summary)
	}
}

func TestNewStreamRendererRejectsUnknownFormat(t *testing.T) {
	if _, err := output.NewStreamRenderer("toml", nil, nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
