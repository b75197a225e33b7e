package stream

import (
	"encoding/xml"

	"github.com/tyemirov/texpurify/internal/types"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart    EventKind = "start"
	EventKindDocument EventKind = "document"
	EventKindResource EventKind = "resource"
	EventKindUnused   EventKind = "unused"
	EventKindWarning  EventKind = "warning"
	EventKindSummary  EventKind = "summary"
	EventKindDone     EventKind = "done"
)

type Event struct {
	XMLName xml.Name  `json:"-" xml:"event" yaml:"-"`
	Version int       `json:"version" xml:"version,attr" yaml:"version"`
	Kind    EventKind `json:"kind" xml:"kind,attr" yaml:"kind"`
	Command string    `json:"command,omitempty" xml:"command,attr,omitempty" yaml:"command,omitempty"`
	Path    string    `json:"path,omitempty" xml:"path,attr,omitempty" yaml:"path,omitempty"`

	Start    *StartEvent    `json:"start,omitempty" xml:"start,omitempty" yaml:"start,omitempty"`
	Document *DocumentEvent `json:"document,omitempty" xml:"document,omitempty" yaml:"document,omitempty"`
	Resource *ResourceEvent `json:"resource,omitempty" xml:"resource,omitempty" yaml:"resource,omitempty"`
	Summary  *SummaryEvent  `json:"summary,omitempty" xml:"summary,omitempty" yaml:"summary,omitempty"`
	Message  *LogEvent      `json:"message,omitempty" xml:"message,omitempty" yaml:"message,omitempty"`
}

type StartEvent struct {
	RootDocument         string   `json:"rootDocument" xml:"rootDocument,attr" yaml:"rootDocument"`
	SourceRoot           string   `json:"sourceRoot" xml:"sourceRoot,attr" yaml:"sourceRoot"`
	OutputDirectory      string   `json:"outputDirectory" xml:"outputDirectory,attr" yaml:"outputDirectory"`
	RemoveCommands       []string `json:"removeCommands,omitempty" xml:"remove>command,omitempty" yaml:"removeCommands,omitempty"`
	ShortCircuitCommands []string `json:"shortCircuitCommands,omitempty" xml:"shortCircuit>command,omitempty" yaml:"shortCircuitCommands,omitempty"`
}

type DocumentEvent struct {
	SourcePath string `json:"sourcePath" xml:"sourcePath,attr" yaml:"sourcePath"`
	OutputPath string `json:"outputPath" xml:"outputPath,attr" yaml:"outputPath"`
	SizeBytes  int64  `json:"sizeBytes" xml:"sizeBytes,attr" yaml:"sizeBytes"`
	Tokens     int    `json:"tokens,omitempty" xml:"tokens,attr,omitempty" yaml:"tokens,omitempty"`
	Model      string `json:"model,omitempty" xml:"model,attr,omitempty" yaml:"model,omitempty"`
}

type ResourceEvent struct {
	SourcePath string `json:"sourcePath" xml:"sourcePath,attr" yaml:"sourcePath"`
	OutputPath string `json:"outputPath" xml:"outputPath,attr" yaml:"outputPath"`
	Kind       string `json:"kind" xml:"kind,attr" yaml:"kind"`
	SizeBytes  int64  `json:"sizeBytes" xml:"sizeBytes,attr" yaml:"sizeBytes"`
}

type SummaryEvent struct {
	Documents  int                    `json:"documents" xml:"documents,attr" yaml:"documents"`
	Files      int                    `json:"files" xml:"files,attr" yaml:"files"`
	Unused     int                    `json:"unused" xml:"unused,attr" yaml:"unused"`
	Bytes      int64                  `json:"bytes" xml:"bytes,attr" yaml:"bytes"`
	Tokens     int                    `json:"tokens,omitempty" xml:"tokens,attr,omitempty" yaml:"tokens,omitempty"`
	Model      string                 `json:"model,omitempty" xml:"model,attr,omitempty" yaml:"model,omitempty"`
	Statistics []types.StatisticEntry `json:"statistics,omitempty" xml:"statistic,omitempty" yaml:"statistics,omitempty"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty" xml:"level,attr,omitempty" yaml:"level,omitempty"`
	Message string `json:"message" xml:",chardata" yaml:"message"`
}
