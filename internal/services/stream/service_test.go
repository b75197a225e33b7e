package stream_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/services/stream"
	"github.com/tyemirov/texpurify/internal/types"
)

type stubCounter struct{}

func (stubCounter) Name() string { return "stub" }

func (stubCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

func writeFile(t *testing.T, root string, relativePath string, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", relativePath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", relativePath, err)
	}
	return path
}

func TestStreamPurificationEmitsEventsInOrder(t *testing.T) {
	source := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")
	rootPath := writeFile(t, source, "main.tex", "Hello \\KL{secret}! % note\n\\input{sec/a}\n\\includegraphics{fig}\n\\includegraphics{gone}\n")
	writeFile(t, source, "sec/a.tex", "\\kl{inline}\n")
	writeFile(t, source, "fig.png", "png")
	writeFile(t, source, "stray.txt", "stray")

	events := collectEvents(t, func(ch chan<- stream.Event) error {
		options := stream.Options{
			RootDocument:         rootPath,
			OutputDirectory:      output,
			KeepCommentMarker:    true,
			RemoveCommands:       []string{"KL"},
			ShortCircuitCommands: []string{"kl"},
			TokenCounter:         stubCounter{},
			TokenModel:           "stub-model",
		}
		return stream.StreamPurification(context.Background(), options, ch)
	})

	var kinds []stream.EventKind
	for _, event := range events {
		kinds = append(kinds, event.Kind)
		if event.Version != stream.SchemaVersion || event.Command != types.CommandPurify {
			t.Fatalf("unexpected envelope %+v", event)
		}
	}
	expectedKinds := []stream.EventKind{
		stream.EventKindStart,
		stream.EventKindWarning,
		stream.EventKindDocument,
		stream.EventKindDocument,
		stream.EventKindResource,
		stream.EventKindUnused,
		stream.EventKindSummary,
		stream.EventKindDone,
	}
	if len(kinds) != len(expectedKinds) {
		t.Fatalf("expected kinds %v, got %v", expectedKinds, kinds)
	}
	for index := range expectedKinds {
		if kinds[index] != expectedKinds[index] {
			t.Fatalf("expected kinds %v, got %v", expectedKinds, kinds)
		}
	}

	start := events[0].Start
	if start == nil || len(start.RemoveCommands) != 1 || start.RemoveCommands[0] != "KL" {
		t.Fatalf("unexpected start payload %+v", start)
	}
	rootDocument := events[2].Document
	if rootDocument.OutputPath != "ms.tex" || rootDocument.SourcePath != "main.tex" {
		t.Fatalf("unexpected root document event %+v", rootDocument)
	}
	if rootDocument.Model != "stub-model" || rootDocument.Tokens != int(rootDocument.SizeBytes) {
		t.Fatalf("expected token count for root document, got %+v", rootDocument)
	}
	if events[4].Resource.OutputPath != "fig.png" || events[4].Resource.Kind != types.ReferenceKindGraphics {
		t.Fatalf("unexpected resource event %+v", events[4].Resource)
	}
	if events[5].Path != "stray.txt" {
		t.Fatalf("unexpected unused path %s", events[5].Path)
	}

	summary := events[6].Summary
	if summary.Documents != 2 || summary.Files != 1 || summary.Unused != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	statistics := map[string]int{}
	for _, entry := range summary.Statistics {
		statistics[entry.Name] = entry.Value
	}
	if statistics["num_cmds_removed_KL"] != 1 || statistics["num_cmds_short_circuited_kl"] != 1 || statistics[types.StatisticInlineComments] != 1 {
		t.Fatalf("unexpected statistics %v", statistics)
	}

	purified, readError := os.ReadFile(filepath.Join(output, "ms.tex"))
	if readError != nil {
		t.Fatalf("read output: %v", readError)
	}
	if string(purified) != "Hello ! %\n\\input{sec/a}\n\\includegraphics{fig}\n\\includegraphics{gone}\n" {
		t.Fatalf("unexpected purified root %q", purified)
	}
}

func TestStreamPurificationMissingInclusionLeavesOutputUntouched(t *testing.T) {
	source := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")
	rootPath := writeFile(t, source, "main.tex", `\input{doesnotexist}`)

	events := make(chan stream.Event, 16)
	err := stream.StreamPurification(context.Background(), stream.Options{RootDocument: rootPath, OutputDirectory: output}, events)
	close(events)
	if !errors.Is(err, doctree.ErrMissingIncludedFile) {
		t.Fatalf("expected ErrMissingIncludedFile, got %v", err)
	}
	if _, statError := os.Stat(output); !os.IsNotExist(statError) {
		t.Fatalf("expected output directory to be absent, got %v", statError)
	}
}

func TestStreamPurificationClearsOutputDirectory(t *testing.T) {
	source := t.TempDir()
	output := t.TempDir()
	rootPath := writeFile(t, source, "main.tex", "body")
	stale := writeFile(t, output, "stale.txt", "stale")

	collectEvents(t, func(ch chan<- stream.Event) error {
		options := stream.Options{RootDocument: rootPath, OutputDirectory: output, OutputRootName: "paper", ClearOutputDirectory: true}
		return stream.StreamPurification(context.Background(), options, ch)
	})

	if _, statError := os.Stat(stale); !os.IsNotExist(statError) {
		t.Fatalf("expected stale file to be removed")
	}
	if _, statError := os.Stat(filepath.Join(output, "paper.tex")); statError != nil {
		t.Fatalf("expected paper.tex in output: %v", statError)
	}
}

func TestStreamPurificationRejectsInvalidOptions(t *testing.T) {
	source := t.TempDir()
	rootPath := writeFile(t, source, "main.tex", "body")

	testCases := []struct {
		name    string
		options stream.Options
	}{
		{name: "missing root", options: stream.Options{OutputDirectory: t.TempDir()}},
		{name: "missing output", options: stream.Options{RootDocument: rootPath}},
		{name: "output is source", options: stream.Options{RootDocument: rootPath, OutputDirectory: source}},
		{name: "conflicting rules", options: stream.Options{RootDocument: rootPath, OutputDirectory: t.TempDir(), RemoveCommands: []string{"x"}, ShortCircuitCommands: []string{"x"}}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			events := make(chan stream.Event, 16)
			if err := stream.StreamPurification(context.Background(), testCase.options, events); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func collectEvents(t *testing.T, producer func(chan<- stream.Event) error) []stream.Event {
	t.Helper()
	events := make(chan stream.Event, 32)
	errCh := make(chan error, 1)
	go func() {
		errCh <- producer(events)
		close(events)
	}()

	var out []stream.Event
	for event := range events {
		out = append(out, event)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("producer returned error: %v", err)
	}
	return out
}
