package output

import (
	"encoding/json"
	"io"

	"github.com/tyemirov/texpurify/internal/services/stream"
)

// jsonStreamRenderer writes every event as an element of one JSON array as soon as it arrives.
type jsonStreamRenderer struct {
	stdout      io.Writer
	stderr      io.Writer
	arrayOpened bool
}

func NewJSONStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &jsonStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *jsonStreamRenderer) Handle(event stream.Event) error {
	writeWarning(renderer.stderr, event)
	if renderer.stdout == nil {
		return nil
	}
	encoded, err := json.MarshalIndent(event, indentSpacer, indentSpacer)
	if err != nil {
		return err
	}
	separator := ",\n" + indentSpacer
	if !renderer.arrayOpened {
		separator = "[\n" + indentSpacer
		renderer.arrayOpened = true
	}
	if _, err := io.WriteString(renderer.stdout, separator); err != nil {
		return err
	}
	_, err = renderer.stdout.Write(encoded)
	return err
}

func (renderer *jsonStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	closing := "\n]\n"
	if !renderer.arrayOpened {
		closing = "[]\n"
	}
	_, err := io.WriteString(renderer.stdout, closing)
	return err
}
