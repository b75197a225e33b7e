package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/texpurify/internal/doctree"
	"github.com/tyemirov/texpurify/internal/purify"
	"github.com/tyemirov/texpurify/internal/types"
)

func writeFixture(t *testing.T, root string, relativePath string, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resolveTree(t *testing.T, rootPath string) *doctree.Tree {
	t.Helper()
	tree, resolveError := doctree.NewResolver(doctree.Options{Purify: purify.Options{KeepCommentMarker: true}}, nil).Resolve(rootPath)
	require.NoError(t, resolveError)
	return tree
}

func relativePaths(collection *Collection) []string {
	paths := make([]string, 0, len(collection.References))
	for _, reference := range collection.References {
		paths = append(paths, reference.RelativePath)
	}
	return paths
}

func TestReferenceCompleteness(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "a.tex", `\includegraphics{fig.png}`)
	writeFixture(t, root, "fig.png", "png")
	writeFixture(t, root, "extra.bib", "@misc{x}")
	writeFixture(t, root, "third.txt", "unused")

	tree := resolveTree(t, rootPath)
	collection, collectError := Collect(tree, CollectOptions{KeepList: []string{"extra.bib"}})
	require.NoError(t, collectError)
	require.Equal(t, []string{"fig.png", "extra.bib"}, relativePaths(collection))
	require.Equal(t, types.ReferenceKindGraphics, collection.References[0].Kind)
	require.Equal(t, "a.tex", collection.References[0].ReferencedBy)
	require.Equal(t, types.ReferenceKindKept, collection.References[1].Kind)

	unused, reconcileError := Reconcile(tree, collection, ReconcileOptions{})
	require.NoError(t, reconcileError)
	require.Equal(t, []string{"third.txt"}, unused)
}

func TestCollectGraphicsReferences(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "main.tex", "\\includegraphics[width=1cm]{figs/plot}\n\\input{sub/part}\n\\begin{overpic}[scale=.5]{img/a}\\end{overpic}\n\\includegraphics*{figs/plot.pdf}\n")
	writeFixture(t, root, "sub/part.tex", `\includegraphics{local.jpg}`)
	writeFixture(t, root, "figs/plot.pdf", "pdf")
	writeFixture(t, root, "figs/plot.png", "png")
	writeFixture(t, root, "img/a.png", "png")
	writeFixture(t, root, "sub/local.jpg", "jpg")

	collection, collectError := Collect(resolveTree(t, rootPath), CollectOptions{})
	require.NoError(t, collectError)
	require.Equal(t, []string{"figs/plot.pdf", "img/a.png", "sub/local.jpg"}, relativePaths(collection))
	require.Empty(t, collection.Warnings)
}

func TestCollectWarnsAboutMissingGraphics(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "main.tex", `\includegraphics{missing}`)

	collection, collectError := Collect(resolveTree(t, rootPath), CollectOptions{})
	require.NoError(t, collectError)
	require.Empty(t, collection.References)
	require.Equal(t, []string{"graphics file missing referenced by main.tex not found"}, collection.Warnings)
}

func TestCollectSupportFiles(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "main.tex", "\\usepackage{local, amsmath}\n\\bibliographystyle{custom}\n\\bibliography{refs,more}\n")
	writeFixture(t, root, "local.sty", "sty")
	writeFixture(t, root, "custom.bst", "bst")
	writeFixture(t, root, "refs.bib", "bib")
	writeFixture(t, root, "main.bbl", "bbl")
	writeFixture(t, root, "main.aux", "aux")
	writeFixture(t, root, "main.log", "log")
	writeFixture(t, root, "main.pdf", "pdf")

	tree := resolveTree(t, rootPath)
	collection, collectError := Collect(tree, CollectOptions{})
	require.NoError(t, collectError)
	require.Equal(t, []string{"local.sty", "refs.bib", "custom.bst", "main.bbl"}, relativePaths(collection))

	unused, reconcileError := Reconcile(tree, collection, ReconcileOptions{})
	require.NoError(t, reconcileError)
	require.Empty(t, unused)
}

func TestCollectKeepList(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "main.tex", "body")
	writeFixture(t, root, "data/a.csv", "a")
	writeFixture(t, root, "data/deep/b.csv", "b")
	writeFixture(t, root, "notes.txt", "n")

	tree := resolveTree(t, rootPath)
	collection, collectError := Collect(tree, CollectOptions{KeepList: []string{"data/**/*.csv", "*.none", filepath.Join(root, "notes.txt")}})
	require.NoError(t, collectError)
	require.Equal(t, []string{"data/a.csv", "data/deep/b.csv", "notes.txt"}, relativePaths(collection))
	require.Equal(t, []string{"keep pattern *.none matched no files"}, collection.Warnings)

	_, missingError := Collect(tree, CollectOptions{KeepList: []string{"absent.bib"}})
	require.ErrorIs(t, missingError, ErrMissingKeepFile)
}

func TestCollectKeepListFallsBackToWorkingDirectory(t *testing.T) {
	workspace := t.TempDir()
	rootPath := writeFixture(t, workspace, "paper/main.tex", "body")
	writeFixture(t, workspace, "paper/figs/plot.png", "p")
	writeFixture(t, workspace, "paper/data/a.csv", "a")
	writeFixture(t, workspace, "paper/notes.txt", "root copy")
	writeFixture(t, workspace, "notes.txt", "working directory copy")
	writeFixture(t, workspace, "secret.txt", "x")

	tree := resolveTree(t, rootPath)
	collection, collectError := Collect(tree, CollectOptions{
		KeepList:         []string{"paper/figs/plot.png", "paper/data/*.csv", "notes.txt"},
		WorkingDirectory: workspace,
	})
	require.NoError(t, collectError)
	require.Equal(t, []string{"figs/plot.png", "data/a.csv", "notes.txt"}, relativePaths(collection))
	require.Empty(t, collection.Warnings)

	_, outsideError := Collect(tree, CollectOptions{KeepList: []string{"secret.txt"}, WorkingDirectory: workspace})
	require.ErrorIs(t, outsideError, doctree.ErrOutsideSourceRoot)
}

func TestCollectRejectsKeepEntriesOutsideTheSourceRoot(t *testing.T) {
	workspace := t.TempDir()
	rootPath := writeFixture(t, workspace, "src/main.tex", "body")
	writeFixture(t, workspace, "secret.txt", "x")

	_, collectError := Collect(resolveTree(t, rootPath), CollectOptions{KeepList: []string{"../secret.txt"}})
	require.ErrorIs(t, collectError, doctree.ErrOutsideSourceRoot)
}

func TestReconcileSkipsHiddenIgnoredAndOutputPaths(t *testing.T) {
	root := t.TempDir()
	rootPath := writeFixture(t, root, "main.tex", `\input{chapter}`)
	writeFixture(t, root, "chapter.tex", "chapter")
	writeFixture(t, root, ".hidden", "h")
	writeFixture(t, root, ".git/config", "g")
	writeFixture(t, root, "out/ms.tex", "previous output")
	writeFixture(t, root, "build/cache.bin", "c")
	writeFixture(t, root, "draft.tex", "orphan")
	writeFixture(t, root, "sub/.secret/key", "k")

	tree := resolveTree(t, rootPath)
	collection, collectError := Collect(tree, CollectOptions{})
	require.NoError(t, collectError)

	unused, reconcileError := Reconcile(tree, collection, ReconcileOptions{
		OutputDirectory: filepath.Join(root, "out"),
		IgnorePatterns:  []string{"build/"},
	})
	require.NoError(t, reconcileError)
	require.Equal(t, []string{"draft.tex"}, unused)
}
