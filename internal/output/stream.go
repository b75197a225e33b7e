// Package output renders the purification event stream as raw text, JSON, XML or YAML.
package output

import (
	"fmt"
	"io"

	"github.com/tyemirov/texpurify/internal/services/stream"
	"github.com/tyemirov/texpurify/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "
)

type StreamRenderer interface {
	Handle(event stream.Event) error
	Flush() error
}

// NewStreamRenderer returns the renderer for format. Warnings go to stderr.
func NewStreamRenderer(format string, stdout, stderr io.Writer) (StreamRenderer, error) {
	switch format {
	case types.FormatRaw:
		return NewRawStreamRenderer(stdout, stderr), nil
	case types.FormatJSON:
		return NewJSONStreamRenderer(stdout, stderr), nil
	case types.FormatXML:
		return NewXMLStreamRenderer(stdout, stderr), nil
	case types.FormatYAML:
		return NewYAMLStreamRenderer(stdout, stderr), nil
	default:
		return nil, fmt.Errorf("invalid format value '%s'", format)
	}
}

func writeWarning(stderr io.Writer, event stream.Event) {
	if event.Kind == stream.EventKindWarning && event.Message != nil && stderr != nil {
		fmt.Fprintln(stderr, event.Message.Message)
	}
}
