package stream

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/materialize"
	"github.com/tyemirov/texpurify/internal/purify"
	"github.com/tyemirov/texpurify/internal/resources"
	"github.com/tyemirov/texpurify/internal/tokenizer"
	"github.com/tyemirov/texpurify/internal/types"
)

const (
	levelWarning = "warning"

	warningTokenCountFormat = "failed to count tokens for %s: %v"
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
)

var (
	errEmptyRootDocument    = errors.New("stream: root document path is empty")
	errEmptyOutputDirectory = errors.New("stream: output directory is empty")
	errNilChannel           = errors.New("stream: event channel is nil")
)

// Options configures one purification run.
type Options struct {
	RootDocument         string
	OutputDirectory      string
	OutputRootName       string
	KeepCommentMarker    bool
	ClearOutputDirectory bool
	RemoveCommands       []string
	ShortCircuitCommands []string
	KeepFiles            []string
	WorkingDirectory     string
	IgnorePatterns       []string
	TokenCounter         tokenizer.Counter
	TokenModel           string
	Logger               *zap.Logger
}

type emitter struct {
	ctx     context.Context
	out     chan<- Event
	command string
}

func newEmitter(ctx context.Context, out chan<- Event, command string) *emitter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &emitter{ctx: ctx, out: out, command: command}
}

func (e *emitter) send(event Event) error {
	if e.out == nil {
		return errNilChannel
	}
	event.Version = SchemaVersion
	if event.Command == "" {
		event.Command = e.command
	}
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.out <- event:
		return nil
	}
}

func (e *emitter) warn(path, message string) error {
	trimmed := strings.TrimRight(message, "\n")
	if trimmed == "" {
		return nil
	}
	return e.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: levelWarning, Message: trimmed},
	})
}

type summaryTracker struct {
	documents int
	files     int
	bytes     int64
	tokens    int
	model     string
}

func (tracker *summaryTracker) add(entry materialize.Entry, tokens int, model string) {
	if entry.Kind == materialize.EntryKindDocument {
		tracker.documents++
	} else {
		tracker.files++
	}
	tracker.bytes += entry.Size
	tracker.tokens += tokens
	if tracker.model == "" && model != "" && tokens > 0 {
		tracker.model = model
	}
}

// StreamPurification validates the output directory, optionally clears it,
// resolves and purifies the document tree, collects its resources, writes the
// output and reports unused files. Events are sent in that order.
func StreamPurification(ctx context.Context, opts Options, out chan<- Event) error {
	if strings.TrimSpace(opts.RootDocument) == "" {
		return errEmptyRootDocument
	}
	if strings.TrimSpace(opts.OutputDirectory) == "" {
		return errEmptyOutputDirectory
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rules, rulesError := purify.NewRules(opts.RemoveCommands, opts.ShortCircuitCommands)
	if rulesError != nil {
		return rulesError
	}
	rootDocument, rootError := filepath.Abs(opts.RootDocument)
	if rootError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, opts.RootDocument, rootError)
	}
	outputDirectory, outputError := filepath.Abs(opts.OutputDirectory)
	if outputError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, opts.OutputDirectory, outputError)
	}
	sourceRoot := filepath.Dir(rootDocument)

	emitter := newEmitter(ctx, out, types.CommandPurify)
	if err := emitter.send(Event{
		Kind: EventKindStart,
		Path: rootDocument,
		Start: &StartEvent{
			RootDocument:         rootDocument,
			SourceRoot:           sourceRoot,
			OutputDirectory:      outputDirectory,
			RemoveCommands:       rules.Names(purify.ActionRemove),
			ShortCircuitCommands: rules.Names(purify.ActionShortCircuit),
		},
	}); err != nil {
		return err
	}
	logger.Info("purifying",
		zap.String("root", rootDocument),
		zap.Strings("remove", rules.Names(purify.ActionRemove)),
		zap.Strings("short_circuit", rules.Names(purify.ActionShortCircuit)),
	)

	if err := materialize.Validate(sourceRoot, outputDirectory); err != nil {
		return err
	}
	if opts.ClearOutputDirectory {
		if err := materialize.Clear(outputDirectory); err != nil {
			return err
		}
	}

	statistics := &types.Statistics{}
	resolver := doctree.NewResolver(doctree.Options{
		SourceRoot:     sourceRoot,
		OutputRootName: opts.OutputRootName,
		Purify:         purify.Options{Rules: rules, KeepCommentMarker: opts.KeepCommentMarker},
		Logger:         logger,
	}, statistics)
	tree, resolveError := resolver.Resolve(rootDocument)
	if resolveError != nil {
		return resolveError
	}

	collection, collectError := resources.Collect(tree, resources.CollectOptions{KeepList: opts.KeepFiles, WorkingDirectory: opts.WorkingDirectory, Logger: logger})
	if collectError != nil {
		return collectError
	}
	for _, warning := range collection.Warnings {
		if err := emitter.warn(rootDocument, warning); err != nil {
			return err
		}
	}

	unused, reconcileError := resources.Reconcile(tree, collection, resources.ReconcileOptions{
		OutputDirectory: outputDirectory,
		IgnorePatterns:  opts.IgnorePatterns,
	})
	if reconcileError != nil {
		return reconcileError
	}

	tracker := &summaryTracker{}
	materializeError := materialize.Materialize(tree, collection, materialize.Options{OutputDirectory: outputDirectory, Logger: logger}, statistics, func(entry materialize.Entry) error {
		if entry.Kind == materialize.EntryKindResource {
			tracker.add(entry, 0, "")
			return emitter.send(Event{
				Kind: EventKindResource,
				Path: entry.OutputPath,
				Resource: &ResourceEvent{
					SourcePath: entry.SourcePath,
					OutputPath: entry.OutputPath,
					Kind:       entry.ReferenceKind,
					SizeBytes:  entry.Size,
				},
			})
		}

		documentEvent := &DocumentEvent{
			SourcePath: entry.SourcePath,
			OutputPath: entry.OutputPath,
			SizeBytes:  entry.Size,
		}
		if opts.TokenCounter != nil {
			countResult, countError := tokenizer.CountText(opts.TokenCounter, entry.Text)
			if countError != nil {
				if err := emitter.warn(entry.OutputPath, fmt.Sprintf(warningTokenCountFormat, entry.OutputPath, countError)); err != nil {
					return err
				}
			} else if countResult.Counted {
				documentEvent.Tokens = countResult.Tokens
				documentEvent.Model = opts.TokenModel
			}
		}
		tracker.add(entry, documentEvent.Tokens, documentEvent.Model)
		return emitter.send(Event{Kind: EventKindDocument, Path: entry.OutputPath, Document: documentEvent})
	})
	if materializeError != nil {
		return materializeError
	}

	for _, unusedPath := range unused {
		if err := emitter.send(Event{Kind: EventKindUnused, Path: unusedPath}); err != nil {
			return err
		}
	}
	statistics.FilesUnused = len(unused)

	if err := emitter.send(Event{
		Kind: EventKindSummary,
		Path: outputDirectory,
		Summary: &SummaryEvent{
			Documents:  tracker.documents,
			Files:      tracker.files,
			Unused:     len(unused),
			Bytes:      tracker.bytes,
			Tokens:     tracker.tokens,
			Model:      tracker.model,
			Statistics: statistics.Entries(),
		},
	}); err != nil {
		return err
	}
	return emitter.send(Event{Kind: EventKindDone, Path: outputDirectory})
}
