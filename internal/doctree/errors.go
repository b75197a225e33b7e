package doctree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingIncludedFile reports an inclusion directive naming a file that does not exist.
	ErrMissingIncludedFile = errors.New("included file does not exist")
	// ErrCyclicInclusion reports a document that transitively includes itself.
	ErrCyclicInclusion = errors.New("cyclic inclusion")
	// ErrOutsideSourceRoot reports an inclusion that leaves the source root and cannot be mirrored.
	ErrOutsideSourceRoot = errors.New("included file is outside the source root")
)

const chainSeparator = " -> "

// InclusionError describes a failed inclusion directive. It unwraps to its Kind.
type InclusionError struct {
	Kind      error
	Directive string
	Includer  string
	Target    string
	Chain     []string
}

func (inclusionError *InclusionError) Error() string {
	if len(inclusionError.Chain) > 0 {
		return fmt.Sprintf("%v: %s", inclusionError.Kind, strings.Join(inclusionError.Chain, chainSeparator))
	}
	return fmt.Sprintf(`%s: \%s{%s}: %v`, inclusionError.Includer, inclusionError.Directive, inclusionError.Target, inclusionError.Kind)
}

func (inclusionError *InclusionError) Unwrap() error {
	return inclusionError.Kind
}
