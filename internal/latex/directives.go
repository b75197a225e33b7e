package latex

// Directive names with structural meaning. They keep that meaning regardless of
// user supplied removal or short-circuit rules.
var (
	// InclusionCommands splice another source file into the document.
	InclusionCommands = map[string]struct{}{
		"input":   {},
		"include": {},
		"subfile": {},
	}
	// GraphicsCommands reference an image file in their first braced argument.
	GraphicsCommands = map[string]struct{}{
		"includegraphics": {},
	}
	// GraphicsEnvironments reference an image file in the first braced argument after the name.
	GraphicsEnvironments = map[string]struct{}{
		"overpic": {},
	}
	// PackageCommands load packages that may be shipped next to the document as .sty files.
	PackageCommands = map[string]struct{}{
		"usepackage":     {},
		"RequirePackage": {},
	}
	// BibliographyCommand names the .bib databases of the document.
	BibliographyCommand = "bibliography"
	// BibliographyStyleCommand names the .bst style of the document.
	BibliographyStyleCommand = "bibliographystyle"
	// DeclarationCommands define new commands; the declared name is the first braced argument.
	DeclarationCommands = map[string]struct{}{
		"newcommand":           {},
		"renewcommand":         {},
		"providecommand":       {},
		"DeclareRobustCommand": {},
	}
	// CommentEnvironment is the block comment environment.
	CommentEnvironment = "comment"

	structuralNames = map[string]struct{}{
		beginCommandName:         {},
		endCommandName:           {},
		verbCommandName:          {},
		"documentclass":          {},
		BibliographyCommand:      {},
		BibliographyStyleCommand: {},
	}
)

// IsStructural reports whether name is a directive that rules must not override.
func IsStructural(name string) bool {
	for _, names := range []map[string]struct{}{InclusionCommands, GraphicsCommands, GraphicsEnvironments, PackageCommands, DeclarationCommands, structuralNames} {
		if _, found := names[name]; found {
			return true
		}
	}
	return false
}
