package resources

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/utils"
)

const errorWalkSourceFormat = "enumerating %s: %w"

// ReconcileOptions configures Reconcile.
type ReconcileOptions struct {
	// OutputDirectory is skipped when it lies under the source root.
	OutputDirectory string
	IgnorePatterns  []string
}

// Reconcile lists the files under the source root that are neither documents,
// references nor compilation by-products. Hidden paths and ignored paths are
// skipped. The result is sorted and slash separated.
func Reconcile(tree *doctree.Tree, collection *Collection, options ReconcileOptions) ([]string, error) {
	documents := tree.DocumentPaths()
	referenced := collection.Referenced()
	outputDirectory := ""
	if options.OutputDirectory != "" {
		absoluteOutput, absoluteError := filepath.Abs(options.OutputDirectory)
		if absoluteError == nil {
			outputDirectory = absoluteOutput
		}
	}

	var unused []string
	walkError := filepath.WalkDir(tree.SourceRoot, func(path string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if path == tree.SourceRoot {
			return nil
		}
		relativePath := utils.RelativePathOrSelf(path, tree.SourceRoot)
		skipped := utils.IsHiddenPath(relativePath) || utils.ShouldIgnoreByPath(relativePath, options.IgnorePatterns)
		if entry.IsDir() {
			if skipped || (outputDirectory != "" && path == outputDirectory) {
				return filepath.SkipDir
			}
			return nil
		}
		if skipped || !entry.Type().IsRegular() {
			return nil
		}
		if _, isDocument := documents[path]; isDocument {
			return nil
		}
		if _, isReferenced := referenced[path]; isReferenced {
			return nil
		}
		if _, isIgnored := collection.Ignored[path]; isIgnored {
			return nil
		}
		unused = append(unused, relativePath)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorWalkSourceFormat, tree.SourceRoot, walkError)
	}
	sort.Strings(unused)
	return unused, nil
}
