package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/texpurify/internal/services/stream"
	"github.com/tyemirov/texpurify/internal/utils"
)

const (
	unusedFilesHeader = "=== Unused files ==="
	statisticsHeader  = "=== Statistics ==="

	rawDocumentFormat  = "Wrote %s (from %s, %s%s)\n"
	rawResourceFormat  = "Copied %s (%s, %s)\n"
	rawStatisticFormat = "%s: %d\n"
)

type rawStreamRenderer struct {
	stdout  io.Writer
	stderr  io.Writer
	unused  []string
	summary *stream.SummaryEvent
}

func NewRawStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &rawStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *rawStreamRenderer) Handle(event stream.Event) error {
	writeWarning(renderer.stderr, event)
	if renderer.stdout == nil {
		return nil
	}
	switch event.Kind {
	case stream.EventKindDocument:
		if event.Document == nil {
			return nil
		}
		_, err := fmt.Fprintf(renderer.stdout, rawDocumentFormat,
			event.Document.OutputPath,
			event.Document.SourcePath,
			utils.FormatFileSize(event.Document.SizeBytes),
			tokenSuffix(event.Document.Tokens, ""),
		)
		return err
	case stream.EventKindResource:
		if event.Resource == nil {
			return nil
		}
		_, err := fmt.Fprintf(renderer.stdout, rawResourceFormat,
			event.Resource.OutputPath,
			event.Resource.Kind,
			utils.FormatFileSize(event.Resource.SizeBytes),
		)
		return err
	case stream.EventKindUnused:
		renderer.unused = append(renderer.unused, event.Path)
	case stream.EventKindSummary:
		renderer.summary = event.Summary
	}
	return nil
}

func (renderer *rawStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	if len(renderer.unused) > 0 {
		if _, err := fmt.Fprintf(renderer.stdout, "\n%s\n%s\n", unusedFilesHeader, strings.Join(renderer.unused, "\n")); err != nil {
			return err
		}
	}
	if renderer.summary == nil {
		return nil
	}
	if _, err := fmt.Fprintf(renderer.stdout, "\n%s\n", statisticsHeader); err != nil {
		return err
	}
	for _, entry := range renderer.summary.Statistics {
		if _, err := fmt.Fprintf(renderer.stdout, rawStatisticFormat, entry.Name, entry.Value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(renderer.stdout, FormatSummaryLine(renderer.summary))
	return err
}

// FormatSummaryLine renders the one-line run summary.
func FormatSummaryLine(summary *stream.SummaryEvent) string {
	if summary == nil {
		return ""
	}
	return fmt.Sprintf("Summary: %d %s, %d %s, %d unused, %s%s",
		summary.Documents, plural(summary.Documents, "document"),
		summary.Files, plural(summary.Files, "file"),
		summary.Unused,
		utils.FormatFileSize(summary.Bytes),
		tokenSuffix(summary.Tokens, summary.Model),
	)
}

func tokenSuffix(tokens int, model string) string {
	if tokens <= 0 {
		return ""
	}
	if model == "" {
		return fmt.Sprintf(", %d tokens", tokens)
	}
	return fmt.Sprintf(", %d tokens (%s)", tokens, model)
}

func plural(count int, noun string) string {
	if count == 1 {
		return noun
	}
	return noun + "s"
}
