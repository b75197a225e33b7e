package doctree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/texpurify/internal/latex"
	"github.com/tyemirov/texpurify/internal/purify"
	"github.com/tyemirov/texpurify/internal/types"
	"github.com/tyemirov/texpurify/internal/utils"
)

const (
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	errorReadDocumentFormat = "reading %s: %w"
	errorPurifyFormat       = "%s: %w"
	errorBinaryFormat       = "%s: %w: binary content"

	// macroParameterMarker appears in targets built from macro parameters, which cannot be resolved statically.
	macroParameterMarker = "#"
)

// Options configures a Resolver.
type Options struct {
	// SourceRoot defaults to the directory of the root document.
	SourceRoot     string
	OutputRootName string
	Purify         purify.Options
	Logger         *zap.Logger
}

// Resolver loads, purifies and links documents starting from a root document.
type Resolver struct {
	options    Options
	statistics *types.Statistics
	logger     *zap.Logger
	purified   map[string]purify.Result
	tree       *Tree
	stack      []string
}

// NewResolver creates a resolver adding purification counters to statistics.
func NewResolver(options Options, statistics *types.Statistics) *Resolver {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{options: options, statistics: statistics, logger: logger}
}

// Resolve builds the tree rooted at rootPath. Inclusion targets are resolved
// against the directory of the including document. A file included from two
// places yields two nodes; a file included while it is being resolved is a cycle.
func (resolver *Resolver) Resolve(rootPath string) (*Tree, error) {
	absoluteRootPath, absoluteError := filepath.Abs(rootPath)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootPath, absoluteError)
	}
	sourceRoot := resolver.options.SourceRoot
	if sourceRoot == "" {
		sourceRoot = filepath.Dir(absoluteRootPath)
	}
	absoluteSourceRoot, sourceRootError := filepath.Abs(sourceRoot)
	if sourceRootError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, sourceRoot, sourceRootError)
	}

	resolver.tree = &Tree{SourceRoot: absoluteSourceRoot}
	resolver.purified = map[string]purify.Result{}
	resolver.stack = nil

	if _, resolveError := resolver.resolve(absoluteRootPath, -1); resolveError != nil {
		return nil, resolveError
	}
	resolver.tree.Nodes[RootIndex].OutputPath = OutputRootFileName(resolver.options.OutputRootName)
	return resolver.tree, nil
}

// OutputRootFileName returns the file name the root document is written as.
func OutputRootFileName(name string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(name), types.DocumentExtension)
	if trimmed == "" {
		trimmed = types.DefaultOutputRootName
	}
	return trimmed + types.DocumentExtension
}

func (resolver *Resolver) resolve(path string, parent int) (int, error) {
	relativePath := resolver.relative(path)
	for stackIndex, activePath := range resolver.stack {
		if activePath != path {
			continue
		}
		chain := make([]string, 0, len(resolver.stack)-stackIndex+1)
		for _, chainPath := range resolver.stack[stackIndex:] {
			chain = append(chain, resolver.relative(chainPath))
		}
		return 0, &InclusionError{Kind: ErrCyclicInclusion, Chain: append(chain, relativePath)}
	}

	result, purifyError := resolver.purify(path, relativePath)
	if purifyError != nil {
		return 0, purifyError
	}

	index := len(resolver.tree.Nodes)
	resolver.tree.Nodes = append(resolver.tree.Nodes, Node{
		Path:         path,
		RelativePath: relativePath,
		OutputPath:   relativePath,
		Text:         result.Text,
		Document:     result.Document,
		Parent:       parent,
	})
	resolver.logger.Debug("resolved document", zap.String("path", relativePath))

	resolver.stack = append(resolver.stack, path)
	defer func() { resolver.stack = resolver.stack[:len(resolver.stack)-1] }()

	for _, directive := range latex.Commands(result.Document.Nodes, latex.InclusionCommands) {
		argument := directive.FirstRequired()
		if argument == nil {
			continue
		}
		target := strings.TrimSpace(argument.Text())
		if target == "" || strings.Contains(target, macroParameterMarker) {
			resolver.logger.Debug("skipping unresolvable inclusion", zap.String("document", relativePath), zap.String("target", target))
			continue
		}
		childPath, targetError := resolver.locate(path, relativePath, directive.Name, target)
		if targetError != nil {
			return 0, targetError
		}
		childIndex, childError := resolver.resolve(childPath, index)
		if childError != nil {
			return 0, childError
		}
		resolver.tree.Nodes[index].Children = append(resolver.tree.Nodes[index].Children, childIndex)
	}
	return index, nil
}

// purify returns the purified content of path, counting statistics only the first time a file is seen.
func (resolver *Resolver) purify(path string, relativePath string) (purify.Result, error) {
	if cached, exists := resolver.purified[path]; exists {
		return cached, nil
	}
	content, readError := os.ReadFile(path)
	if readError != nil {
		return purify.Result{}, fmt.Errorf(errorReadDocumentFormat, relativePath, readError)
	}
	if utils.IsBinary(content) {
		return purify.Result{}, fmt.Errorf(errorBinaryFormat, relativePath, latex.ErrMalformed)
	}
	result, purifyError := purify.Purify(string(content), resolver.options.Purify, resolver.statistics)
	if purifyError != nil {
		return purify.Result{}, fmt.Errorf(errorPurifyFormat, relativePath, purifyError)
	}
	resolver.purified[path] = result
	return result, nil
}

// locate finds the file named by an inclusion directive: the literal target if
// it is a regular file, otherwise the target with the document extension.
func (resolver *Resolver) locate(includerPath string, includerRelative string, directive string, target string) (string, error) {
	candidate := filepath.FromSlash(target)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(filepath.Dir(includerPath), candidate)
	}
	candidate = filepath.Clean(candidate)

	located := ""
	for _, option := range []string{candidate, candidate + types.DocumentExtension} {
		if isRegularFile(option) {
			located = option
			break
		}
	}
	if located == "" {
		return "", &InclusionError{Kind: ErrMissingIncludedFile, Directive: directive, Includer: includerRelative, Target: target}
	}
	if !utils.IsWithinDirectory(resolver.tree.SourceRoot, located) {
		return "", &InclusionError{Kind: ErrOutsideSourceRoot, Directive: directive, Includer: includerRelative, Target: target}
	}
	return located, nil
}

func (resolver *Resolver) relative(path string) string {
	return utils.RelativePathOrSelf(path, resolver.tree.SourceRoot)
}

func isRegularFile(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && info.Mode().IsRegular()
}
