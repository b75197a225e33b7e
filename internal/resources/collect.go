// Package resources finds the files a document tree depends on and the files
// it leaves unused.
package resources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/latex"
	"github.com/tyemirov/texpurify/internal/types"
	"github.com/tyemirov/texpurify/internal/utils"
)

// ErrMissingKeepFile reports a keep-list entry naming a file that does not exist.
var ErrMissingKeepFile = errors.New("kept file does not exist")

const (
	packageExtension           = ".sty"
	bibliographyExtension      = ".bib"
	bibliographyStyleExtension = ".bst"
	listSeparator              = ","
	globCharacters             = "*?[{"

	warningMissingGraphicsFormat = "graphics file %s referenced by %s not found"
	warningOutsideRootFormat     = "%s referenced by %s is outside the source root"
	warningEmptyGlobFormat       = "keep pattern %s matched no files"
	errorKeepPatternFormat       = "keep pattern %s: %w"
	errorKeepFileFormat          = "%w: %s"
	errorKeepOutsideFormat       = "keep entry %s: %w"
)

// GraphicsExtensions are probed in order for graphics references without an extension.
var GraphicsExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".eps", ".ps"}

// CompilationResultExtensions name files next to a document that a submission needs.
var CompilationResultExtensions = []string{".bbl", ".brf"}

// CompilationByproductExtensions name files next to a document that are neither copied nor reported.
var CompilationByproductExtensions = []string{".aux", ".log", ".blg", ".out", ".synctex.gz", ".pdf", ".fls", ".fdb_latexmk"}

// Reference is a file copied to the output verbatim.
type Reference struct {
	Path         string `json:"-" xml:"-" yaml:"-"`
	RelativePath string `json:"path" xml:"path,attr" yaml:"path"`
	ReferencedBy string `json:"referencedBy,omitempty" xml:"referencedBy,attr,omitempty" yaml:"referencedBy,omitempty"`
	Kind         string `json:"kind" xml:"kind,attr" yaml:"kind"`
}

// Collection is the result of Collect.
type Collection struct {
	References []Reference
	Ignored    map[string]struct{}
	Warnings   []string

	seen map[string]struct{}
}

// Referenced returns the absolute paths of all references.
func (collection *Collection) Referenced() map[string]struct{} {
	referenced := make(map[string]struct{}, len(collection.References))
	for _, reference := range collection.References {
		referenced[reference.Path] = struct{}{}
	}
	return referenced
}

// CollectOptions configures Collect.
type CollectOptions struct {
	// KeepList holds paths relative to the source root, absolute paths or doublestar patterns.
	// A relative entry that matches nothing under the source root is tried against WorkingDirectory.
	KeepList         []string
	WorkingDirectory string
	Logger           *zap.Logger
}

type collector struct {
	tree             *doctree.Tree
	documents        map[string]struct{}
	collection       *Collection
	workingDirectory string
	logger           *zap.Logger
}

// Collect gathers the references of every document in discovery order and then the keep-list.
func Collect(tree *doctree.Tree, options CollectOptions) (*Collection, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resourceCollector := &collector{
		tree:             tree,
		documents:        tree.DocumentPaths(),
		collection:       &Collection{Ignored: map[string]struct{}{}, seen: map[string]struct{}{}},
		workingDirectory: options.WorkingDirectory,
		logger:           logger,
	}

	for nodeIndex := range tree.Nodes {
		resourceCollector.collectDocument(&tree.Nodes[nodeIndex])
	}
	if keepError := resourceCollector.collectKeepList(options.KeepList); keepError != nil {
		return nil, keepError
	}
	return resourceCollector.collection, nil
}

func (resourceCollector *collector) collectDocument(node *doctree.Node) {
	directory := filepath.Dir(node.Path)
	nodes := node.Document.Nodes

	for _, command := range latex.Commands(nodes, latex.GraphicsCommands) {
		resourceCollector.addGraphics(node, directory, command.FirstRequired())
	}
	for _, env := range latex.Environments(nodes, latex.GraphicsEnvironments) {
		var primary *latex.Argument
		for _, argument := range env.Arguments() {
			if !argument.IsOptional() {
				primary = argument
				break
			}
		}
		resourceCollector.addGraphics(node, directory, primary)
	}

	for _, command := range latex.Commands(nodes, latex.PackageCommands) {
		for _, name := range listArgument(command) {
			resourceCollector.addIfPresent(node, filepath.Join(directory, name+packageExtension), types.ReferenceKindPackage)
		}
	}
	for _, command := range latex.Commands(nodes, map[string]struct{}{latex.BibliographyCommand: {}}) {
		for _, name := range listArgument(command) {
			resourceCollector.addIfPresent(node, filepath.Join(directory, withExtension(name, bibliographyExtension)), types.ReferenceKindBibliography)
		}
	}
	for _, command := range latex.Commands(nodes, map[string]struct{}{latex.BibliographyStyleCommand: {}}) {
		for _, name := range listArgument(command) {
			resourceCollector.addIfPresent(node, filepath.Join(directory, withExtension(name, bibliographyStyleExtension)), types.ReferenceKindBibliography)
		}
	}

	stem := strings.TrimSuffix(node.Path, filepath.Ext(node.Path))
	for _, extension := range CompilationResultExtensions {
		resourceCollector.addIfPresent(node, stem+extension, types.ReferenceKindCompilation)
	}
	for _, extension := range CompilationByproductExtensions {
		resourceCollector.collection.Ignored[stem+extension] = struct{}{}
	}
}

func (resourceCollector *collector) addGraphics(node *doctree.Node, directory string, argument *latex.Argument) {
	if argument == nil {
		return
	}
	target := strings.TrimSpace(argument.Text())
	if target == "" {
		return
	}
	candidate := filepath.FromSlash(target)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(directory, candidate)
	}

	located := ""
	if isRegularFile(candidate) {
		located = candidate
	} else if filepath.Ext(candidate) == "" {
		for _, extension := range GraphicsExtensions {
			if isRegularFile(candidate + extension) {
				located = candidate + extension
				break
			}
		}
	}
	if located == "" {
		resourceCollector.warn(fmt.Sprintf(warningMissingGraphicsFormat, target, node.RelativePath))
		return
	}
	if !utils.IsWithinDirectory(resourceCollector.tree.SourceRoot, located) {
		resourceCollector.warn(fmt.Sprintf(warningOutsideRootFormat, target, node.RelativePath))
		return
	}
	resourceCollector.add(located, node.RelativePath, types.ReferenceKindGraphics)
}

func (resourceCollector *collector) addIfPresent(node *doctree.Node, path string, kind string) {
	if !isRegularFile(path) || !utils.IsWithinDirectory(resourceCollector.tree.SourceRoot, path) {
		return
	}
	resourceCollector.add(path, node.RelativePath, kind)
}

func (resourceCollector *collector) add(path string, referencedBy string, kind string) {
	path = filepath.Clean(path)
	if _, isDocument := resourceCollector.documents[path]; isDocument {
		return
	}
	if _, seen := resourceCollector.collection.seen[path]; seen {
		return
	}
	resourceCollector.collection.seen[path] = struct{}{}
	relativePath := utils.RelativePathOrSelf(path, resourceCollector.tree.SourceRoot)
	resourceCollector.collection.References = append(resourceCollector.collection.References, Reference{
		Path:         path,
		RelativePath: relativePath,
		ReferencedBy: referencedBy,
		Kind:         kind,
	})
	resourceCollector.logger.Debug("referenced file", zap.String("path", relativePath), zap.String("kind", kind))
}

func (resourceCollector *collector) collectKeepList(keepList []string) error {
	for _, entry := range keepList {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		candidates := resourceCollector.keepCandidates(trimmed)

		if strings.ContainsAny(trimmed, globCharacters) {
			var matches []string
			for _, pattern := range candidates {
				globMatches, globError := doublestar.FilepathGlob(pattern)
				if globError != nil {
					return fmt.Errorf(errorKeepPatternFormat, trimmed, globError)
				}
				matches = resourceCollector.keptFiles(globMatches)
				if len(matches) > 0 {
					break
				}
			}
			if len(matches) == 0 {
				resourceCollector.warn(fmt.Sprintf(warningEmptyGlobFormat, trimmed))
				continue
			}
			for _, match := range matches {
				resourceCollector.add(match, "", types.ReferenceKindKept)
			}
			continue
		}

		path := ""
		for _, candidate := range candidates {
			if isRegularFile(candidate) {
				path = candidate
				break
			}
		}
		if path == "" {
			return fmt.Errorf(errorKeepFileFormat, ErrMissingKeepFile, trimmed)
		}
		if !utils.IsWithinDirectory(resourceCollector.tree.SourceRoot, path) {
			return fmt.Errorf(errorKeepOutsideFormat, trimmed, doctree.ErrOutsideSourceRoot)
		}
		resourceCollector.add(path, "", types.ReferenceKindKept)
	}
	return nil
}

// keepCandidates lists the paths a keep-list entry may name, source root first.
func (resourceCollector *collector) keepCandidates(entry string) []string {
	path := filepath.FromSlash(entry)
	if filepath.IsAbs(path) {
		return []string{path}
	}
	candidates := []string{filepath.Join(resourceCollector.tree.SourceRoot, path)}
	if resourceCollector.workingDirectory != "" {
		fromWorkingDirectory := filepath.Join(resourceCollector.workingDirectory, path)
		if fromWorkingDirectory != candidates[0] {
			candidates = append(candidates, fromWorkingDirectory)
		}
	}
	return candidates
}

// keptFiles filters glob matches to regular files under the source root, sorted.
func (resourceCollector *collector) keptFiles(matches []string) []string {
	sort.Strings(matches)
	var kept []string
	for _, match := range matches {
		if isRegularFile(match) && utils.IsWithinDirectory(resourceCollector.tree.SourceRoot, match) {
			kept = append(kept, match)
		}
	}
	return kept
}

func (resourceCollector *collector) warn(message string) {
	resourceCollector.collection.Warnings = append(resourceCollector.collection.Warnings, message)
	resourceCollector.logger.Warn(message)
}

// listArgument splits the first braced argument of a comma separated list command.
func listArgument(command *latex.Command) []string {
	argument := command.FirstRequired()
	if argument == nil {
		return nil
	}
	var names []string
	for _, name := range strings.Split(argument.Text(), listSeparator) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, filepath.FromSlash(trimmed))
		}
	}
	return names
}

func withExtension(name string, extension string) string {
	if strings.HasSuffix(name, extension) {
		return name
	}
	return name + extension
}

func isRegularFile(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && info.Mode().IsRegular()
}
