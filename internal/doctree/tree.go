// Package doctree resolves a root LaTeX document and the files it includes into
// a tree of purified documents.
package doctree

import (
	"path/filepath"

	"github.com/tyemirov/texpurify/internal/latex"
)

// RootIndex is the arena index of the root document.
const RootIndex = 0

// Node is one resolved document. Children and Parent are arena indices.
type Node struct {
	Path         string
	RelativePath string
	OutputPath   string
	Text         string
	Document     *latex.Document
	Parent       int
	Children     []int
}

// Tree stores documents in discovery order; a parent always precedes its children.
type Tree struct {
	SourceRoot string
	Nodes      []Node
}

// Root returns the root document.
func (tree *Tree) Root() *Node {
	return &tree.Nodes[RootIndex]
}

// Directories returns the distinct directories holding documents, in discovery order.
func (tree *Tree) Directories() []string {
	seen := map[string]struct{}{}
	var directories []string
	for _, node := range tree.Nodes {
		directory := filepath.Dir(node.Path)
		if _, exists := seen[directory]; exists {
			continue
		}
		seen[directory] = struct{}{}
		directories = append(directories, directory)
	}
	return directories
}

// DocumentPaths returns the set of absolute document paths in the tree.
func (tree *Tree) DocumentPaths() map[string]struct{} {
	paths := make(map[string]struct{}, len(tree.Nodes))
	for _, node := range tree.Nodes {
		paths[node.Path] = struct{}{}
	}
	return paths
}
