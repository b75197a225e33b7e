// Package materialize writes purified documents and referenced resources to the output directory.
package materialize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/resources"
	"github.com/tyemirov/texpurify/internal/types"
	"github.com/tyemirov/texpurify/internal/utils"
)

var (
	// ErrOutputWrite reports a failed write below the output directory.
	ErrOutputWrite = errors.New("output write failed")
	// ErrInvalidOutputDirectory reports an output directory that would overwrite the sources.
	ErrInvalidOutputDirectory = errors.New("invalid output directory")
)

const (
	// EntryKindDocument marks a written document.
	EntryKindDocument = "document"
	// EntryKindResource marks a copied resource.
	EntryKindResource = "resource"

	directoryPermissions = 0o755
	filePermissions      = 0o644

	errorAbsolutePathFormat   = "getting absolute path for %s: %w"
	errorSameDirectoryFormat  = "%w: %s is the source directory"
	errorContainsSourceFormat = "%w: %s contains the source directory %s"
	errorWriteFormat          = "%w: write %s: %w"
	errorCopyFormat           = "%w: copy %s: %w"
	errorClearFormat          = "%w: clear %s: %w"
	errorConflictFormat       = "%w: %s is produced by both %s and %s"
)

// Entry describes one file placed in the output directory.
type Entry struct {
	Kind          string
	SourcePath    string
	OutputPath    string
	ReferenceKind string
	Text          string
	Size          int64
}

// Options configures Materialize.
type Options struct {
	OutputDirectory string
	Logger          *zap.Logger
}

// Validate rejects an output directory equal to or containing the source root.
func Validate(sourceRoot string, outputDirectory string) error {
	absoluteSource, sourceError := filepath.Abs(sourceRoot)
	if sourceError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, sourceRoot, sourceError)
	}
	absoluteOutput, outputError := filepath.Abs(outputDirectory)
	if outputError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, outputDirectory, outputError)
	}
	if absoluteSource == absoluteOutput {
		return fmt.Errorf(errorSameDirectoryFormat, ErrInvalidOutputDirectory, outputDirectory)
	}
	if utils.IsWithinDirectory(absoluteOutput, absoluteSource) {
		return fmt.Errorf(errorContainsSourceFormat, ErrInvalidOutputDirectory, outputDirectory, sourceRoot)
	}
	return nil
}

// Clear removes the output directory and everything below it.
func Clear(outputDirectory string) error {
	if removeError := os.RemoveAll(outputDirectory); removeError != nil {
		return fmt.Errorf(errorClearFormat, ErrOutputWrite, outputDirectory, removeError)
	}
	return nil
}

// Materialize writes every document and copies every reference, in discovery
// order, calling visit after each file. The first failure aborts.
func Materialize(tree *doctree.Tree, collection *resources.Collection, options Options, statistics *types.Statistics, visit func(Entry) error) error {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &outputWriter{
		directory:  options.OutputDirectory,
		statistics: statistics,
		producers:  map[string]string{},
		logger:     logger,
		visit:      visit,
	}

	for _, node := range tree.Nodes {
		if writeError := writer.writeDocument(node); writeError != nil {
			return writeError
		}
	}

	rootStem := strings.TrimSuffix(tree.Root().Path, filepath.Ext(tree.Root().Path))
	outputRootStem := strings.TrimSuffix(tree.Root().OutputPath, types.DocumentExtension)
	for _, reference := range collection.References {
		outputPath := reference.RelativePath
		if reference.Kind == types.ReferenceKindCompilation && strings.TrimSuffix(reference.Path, filepath.Ext(reference.Path)) == rootStem {
			outputPath = outputRootStem + filepath.Ext(reference.Path)
		}
		if copyError := writer.copyResource(reference, outputPath); copyError != nil {
			return copyError
		}
	}
	return nil
}

type outputWriter struct {
	directory  string
	statistics *types.Statistics
	producers  map[string]string
	logger     *zap.Logger
	visit      func(Entry) error
}

// claim records source as the producer of outputPath and reports whether the file still has to be written.
func (writer *outputWriter) claim(outputPath string, source string) (bool, error) {
	producer, exists := writer.producers[outputPath]
	if !exists {
		writer.producers[outputPath] = source
		return true, nil
	}
	if producer == source {
		return false, nil
	}
	return false, fmt.Errorf(errorConflictFormat, ErrOutputWrite, outputPath, producer, source)
}

func (writer *outputWriter) writeDocument(node doctree.Node) error {
	pending, claimError := writer.claim(node.OutputPath, node.Path)
	if claimError != nil || !pending {
		return claimError
	}
	target := filepath.Join(writer.directory, filepath.FromSlash(node.OutputPath))
	if directoryError := os.MkdirAll(filepath.Dir(target), directoryPermissions); directoryError != nil {
		return fmt.Errorf(errorWriteFormat, ErrOutputWrite, node.OutputPath, directoryError)
	}
	if writeError := os.WriteFile(target, []byte(node.Text), filePermissions); writeError != nil {
		return fmt.Errorf(errorWriteFormat, ErrOutputWrite, node.OutputPath, writeError)
	}
	if writer.statistics != nil {
		writer.statistics.DocumentsWritten++
	}
	writer.logger.Debug("wrote document", zap.String("path", node.OutputPath))
	return writer.emit(Entry{
		Kind:       EntryKindDocument,
		SourcePath: node.RelativePath,
		OutputPath: node.OutputPath,
		Text:       node.Text,
		Size:       int64(len(node.Text)),
	})
}

func (writer *outputWriter) copyResource(reference resources.Reference, outputPath string) error {
	pending, claimError := writer.claim(outputPath, reference.Path)
	if claimError != nil || !pending {
		return claimError
	}
	target := filepath.Join(writer.directory, filepath.FromSlash(outputPath))
	size, copyError := copyFile(reference.Path, target)
	if copyError != nil {
		return fmt.Errorf(errorCopyFormat, ErrOutputWrite, outputPath, copyError)
	}
	if writer.statistics != nil {
		writer.statistics.FilesCopied++
	}
	writer.logger.Debug("copied file", zap.String("path", outputPath))
	return writer.emit(Entry{
		Kind:          EntryKindResource,
		SourcePath:    reference.RelativePath,
		OutputPath:    outputPath,
		ReferenceKind: reference.Kind,
		Size:          size,
	})
}

func (writer *outputWriter) emit(entry Entry) error {
	if writer.visit == nil {
		return nil
	}
	return writer.visit(entry)
}

func copyFile(sourcePath string, targetPath string) (int64, error) {
	if directoryError := os.MkdirAll(filepath.Dir(targetPath), directoryPermissions); directoryError != nil {
		return 0, directoryError
	}
	source, openError := os.Open(sourcePath)
	if openError != nil {
		return 0, openError
	}
	defer source.Close()

	target, createError := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if createError != nil {
		return 0, createError
	}
	written, copyError := io.Copy(target, source)
	closeError := target.Close()
	if copyError != nil {
		return written, copyError
	}
	return written, closeError
}
