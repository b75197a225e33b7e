package output

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/tyemirov/texpurify/internal/services/stream"
)

type xmlStreamRenderer struct {
	stdout  io.Writer
	stderr  io.Writer
	encoder *xml.Encoder
	started bool
	written int
}

func NewXMLStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &xmlStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *xmlStreamRenderer) Handle(event stream.Event) error {
	writeWarning(renderer.stderr, event)
	return renderer.writeEvent(event)
}

func (renderer *xmlStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	if err := renderer.encoder.Flush(); err != nil {
		return err
	}
	closing := "</events>\n"
	if renderer.written > 0 {
		closing = "\n" + closing
	}
	_, err := io.WriteString(renderer.stdout, closing)
	return err
}

func (renderer *xmlStreamRenderer) ensureEncoder() error {
	if renderer.started {
		return nil
	}
	if _, err := io.WriteString(renderer.stdout, xml.Header); err != nil {
		return err
	}
	if _, err := io.WriteString(renderer.stdout, "<events>\n"); err != nil {
		return err
	}
	renderer.encoder = xml.NewEncoder(renderer.stdout)
	renderer.encoder.Indent(indentSpacer, indentSpacer)
	renderer.started = true
	return nil
}

func (renderer *xmlStreamRenderer) writeEvent(event stream.Event) error {
	if renderer.stdout == nil {
		return nil
	}
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	start := xml.StartElement{Name: xml.Name{Local: "event"}}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "version"}, Value: strconv.Itoa(event.Version)})
	if event.Kind != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "kind"}, Value: string(event.Kind)})
	}
	if event.Command != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "command"}, Value: event.Command})
	}
	if event.Path != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "path"}, Value: event.Path})
	}
	if err := renderer.encoder.EncodeToken(start); err != nil {
		return err
	}
	encodeElement := func(name string, value interface{}) error {
		return renderer.encoder.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
	}
	if event.Start != nil {
		if err := encodeElement("start", event.Start); err != nil {
			return err
		}
	}
	if event.Document != nil {
		if err := encodeElement("document", event.Document); err != nil {
			return err
		}
	}
	if event.Resource != nil {
		if err := encodeElement("resource", event.Resource); err != nil {
			return err
		}
	}
	if event.Summary != nil {
		if err := encodeElement("summary", event.Summary); err != nil {
			return err
		}
	}
	if event.Message != nil {
		if err := encodeElement("message", event.Message); err != nil {
			return err
		}
	}
	if err := renderer.encoder.EncodeToken(start.End()); err != nil {
		return err
	}
	renderer.written++
	return renderer.encoder.Flush()
}
