// Package clipboard places purification reports on the system clipboard.
package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports a platform without a usable clipboard utility.
var ErrUnavailable = errors.New("system clipboard is unavailable")

// Copier copies a rendered report to the clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a clipboard service.
func NewService() *Service {
	return &Service{}
}

// Copy writes the report to the system clipboard without its trailing newline.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(strings.TrimRight(text, "\n"))
}

var _ Copier = (*Service)(nil)
