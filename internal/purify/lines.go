package purify

import (
	"strings"

	"github.com/tyemirov/texpurify/internal/latex"
)

// listBuilder assembles a rewritten node list. It merges adjacent text and drops
// lines that became blank only because something on them was removed, so that a
// deletion never turns into a paragraph break.
type listBuilder struct {
	nodes         []latex.Node
	lineStart     bool
	removedOnLine bool
}

func newListBuilder(lineStart bool) *listBuilder {
	return &listBuilder{lineStart: lineStart}
}

func (builder *listBuilder) appendNode(node latex.Node) {
	if text, isText := node.(*latex.Text); isText {
		builder.appendText(text.Value)
		return
	}
	builder.removedOnLine = false
	builder.nodes = append(builder.nodes, node)
}

func (builder *listBuilder) appendText(value string) {
	if builder.removedOnLine {
		newline := strings.IndexByte(value, '\n')
		switch {
		case newline < 0 && isHorizontalSpace(value):
		case newline < 0:
			builder.removedOnLine = false
		default:
			if isHorizontalSpace(value[:newline]) && builder.trimBlankLine() {
				value = value[newline+1:]
			}
			builder.removedOnLine = false
		}
	}
	if value == "" {
		return
	}
	if count := len(builder.nodes); count > 0 {
		if previous, isText := builder.nodes[count-1].(*latex.Text); isText {
			builder.nodes[count-1] = &latex.Text{Value: previous.Value + value}
			return
		}
		if latex.NeedsSeparator(builder.nodes[count-1], value) {
			builder.nodes = append(builder.nodes, &latex.Group{})
		}
	}
	builder.nodes = append(builder.nodes, &latex.Text{Value: value})
}

func (builder *listBuilder) markRemoved() {
	builder.removedOnLine = true
}

// trimTrailingSpace drops horizontal whitespace at the end of the current line.
func (builder *listBuilder) trimTrailingSpace() {
	count := len(builder.nodes)
	if count == 0 {
		return
	}
	previous, isText := builder.nodes[count-1].(*latex.Text)
	if !isText {
		return
	}
	trimmed := strings.TrimRight(previous.Value, " \t")
	if trimmed == "" {
		builder.nodes = builder.nodes[:count-1]
		return
	}
	builder.nodes[count-1] = &latex.Text{Value: trimmed}
}

// trimBlankLine removes the whitespace of the current line and reports whether
// the line holds nothing else and starts within this list.
func (builder *listBuilder) trimBlankLine() bool {
	count := len(builder.nodes)
	if count == 0 {
		return builder.lineStart
	}
	previous, isText := builder.nodes[count-1].(*latex.Text)
	if !isText {
		return false
	}
	lineBreak := strings.LastIndexByte(previous.Value, '\n')
	if !isHorizontalSpace(previous.Value[lineBreak+1:]) {
		return false
	}
	if lineBreak < 0 && !(count == 1 && builder.lineStart) {
		return false
	}
	kept := previous.Value[:lineBreak+1]
	if kept == "" {
		builder.nodes = builder.nodes[:count-1]
	} else {
		builder.nodes[count-1] = &latex.Text{Value: kept}
	}
	return true
}

func isHorizontalSpace(value string) bool {
	return strings.Trim(value, " \t") == ""
}
