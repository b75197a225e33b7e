package purify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/texpurify/internal/latex"
	"github.com/tyemirov/texpurify/internal/types"
)

// maximumPasses bounds the fixed-point iteration.
var maximumPasses = 16

// ErrRewriteLimit reports a rule set that kept changing the document after maximumPasses passes.
var ErrRewriteLimit = errors.New("rewriting did not reach a fixed point")

// Options configures one purification.
type Options struct {
	Rules             Rules
	KeepCommentMarker bool
}

// Result is a purified document.
type Result struct {
	Text     string
	Document *latex.Document
}

// Purify removes comments and applies the rules to source until nothing changes.
// Counters are added to statistics, which may be nil.
func Purify(source string, options Options, statistics *types.Statistics) (Result, error) {
	current := source
	for pass := 0; pass < maximumPasses; pass++ {
		document, parseError := latex.Parse(current)
		if parseError != nil {
			return Result{}, parseError
		}
		rewriter := &rewriter{options: options}
		rewritten := rewriter.rewriteList(document.Nodes, true)
		if rewriter.changes == 0 {
			return Result{Text: current, Document: document}, nil
		}
		if statistics != nil {
			statistics.Add(rewriter.statistics)
		}
		current = latex.Serialize(rewritten)
	}
	return Result{}, fmt.Errorf("%w after %d passes", ErrRewriteLimit, maximumPasses)
}

type rewriter struct {
	options    Options
	statistics types.Statistics
	changes    int
}

func (rewriter *rewriter) rewriteList(nodes []latex.Node, lineStart bool) []latex.Node {
	builder := newListBuilder(lineStart)
	for index := 0; index < len(nodes); index++ {
		switch typed := nodes[index].(type) {
		case *latex.Comment:
			rewriter.rewriteComment(builder, typed)
		case *latex.Command:
			if consumed, ruled := rewriter.ruledDeclaration(typed, nodes[index+1:]); ruled {
				rewriter.statistics.DeclarationsRemoved++
				rewriter.changes++
				builder.markRemoved()
				index += consumed
				continue
			}
			rewriter.rewriteCommand(builder, typed)
		case *latex.Environment:
			rewriter.rewriteEnvironment(builder, typed)
		case *latex.Group:
			builder.appendNode(&latex.Group{Nodes: rewriter.rewriteList(typed.Nodes, false)})
		default:
			builder.appendNode(typed)
		}
	}
	return builder.nodes
}

func (rewriter *rewriter) rewriteComment(builder *listBuilder, comment *latex.Comment) {
	if rewriter.options.KeepCommentMarker {
		if comment.Body != "" {
			rewriter.statistics.CommentsRemoved++
			rewriter.changes++
		}
		builder.appendNode(&latex.Comment{})
		return
	}
	rewriter.statistics.CommentsRemoved++
	rewriter.changes++
	builder.trimTrailingSpace()
	builder.markRemoved()
}

func (rewriter *rewriter) rewriteCommand(builder *listBuilder, command *latex.Command) {
	action := ActionNone
	if !latex.IsStructural(command.Name) {
		action = rewriter.options.Rules.Action(command.Name)
	}

	switch action {
	case ActionRemove:
		rewriter.statistics.CountRemoved(command.Name)
		rewriter.changes++
		builder.markRemoved()
		rewriter.appendTrailingOptions(builder, command)
	case ActionShortCircuit:
		rewriter.statistics.CountShortCircuited(command.Name)
		rewriter.changes++
		rewriter.inlineCommand(builder, command)
	default:
		builder.appendNode(rewriter.rewriteArguments(command))
	}
}

// inlineCommand splices the content of the first braced argument. Optional
// arguments before it are dropped. Later braced arguments stay as plain groups
// and later bracketed ones as text.
func (rewriter *rewriter) inlineCommand(builder *listBuilder, command *latex.Command) {
	primary := command.FirstRequired()
	if primary == nil {
		builder.markRemoved()
		return
	}
	content := rewriter.rewriteList(primary.Nodes, false)
	for _, node := range content {
		builder.appendNode(node)
	}
	if len(content) > 0 {
		if last, isCommand := content[len(content)-1].(*latex.Command); isCommand && last.IsBare() {
			builder.appendNode(&latex.Group{})
		}
	}

	afterPrimary := false
	for _, argument := range command.Arguments {
		if argument == primary {
			afterPrimary = true
			continue
		}
		if !afterPrimary {
			continue
		}
		if argument.IsOptional() {
			rewriter.appendBracketText(builder, argument)
			continue
		}
		builder.appendText(argument.Leading)
		builder.appendNode(&latex.Group{Nodes: rewriter.rewriteList(argument.Nodes, false)})
	}
}

// appendTrailingOptions writes back the bracketed arguments that follow the first
// braced one of a removed command.
func (rewriter *rewriter) appendTrailingOptions(builder *listBuilder, command *latex.Command) {
	afterRequired := false
	for _, argument := range command.Arguments {
		if !argument.IsOptional() {
			afterRequired = true
			continue
		}
		if afterRequired {
			rewriter.appendBracketText(builder, argument)
		}
	}
}

// appendBracketText writes a bracketed argument as text. Macros declared with
// \newcommand only take an optional argument before the braced ones, so a
// bracket after them belongs to the document.
func (rewriter *rewriter) appendBracketText(builder *listBuilder, argument *latex.Argument) {
	builder.appendText(argument.Leading + string(argument.Open))
	for _, node := range rewriter.rewriteList(argument.Nodes, false) {
		builder.appendNode(node)
	}
	builder.appendText(string(argument.Close()))
}

func (rewriter *rewriter) rewriteEnvironment(builder *listBuilder, env *latex.Environment) {
	if env.Name == latex.CommentEnvironment {
		rewriter.statistics.CommentsRemoved++
		rewriter.changes++
		builder.markRemoved()
		return
	}

	action := ActionNone
	if !latex.IsStructural(env.Name) {
		action = rewriter.options.Rules.Action(env.Name)
	}

	switch action {
	case ActionRemove:
		rewriter.statistics.CountRemoved(env.Name)
		rewriter.changes++
		builder.markRemoved()
	case ActionShortCircuit:
		rewriter.statistics.CountShortCircuited(env.Name)
		rewriter.changes++
		for _, node := range rewriter.rewriteList(env.Body, false) {
			builder.appendNode(node)
		}
	default:
		builder.appendNode(&latex.Environment{
			Name:  env.Name,
			Begin: rewriter.rewriteArguments(env.Begin),
			Body:  rewriter.rewriteList(env.Body, false),
			End:   env.End,
		})
	}
}

func (rewriter *rewriter) rewriteArguments(command *latex.Command) *latex.Command {
	if len(command.Arguments) == 0 {
		return command
	}
	rewritten := &latex.Command{Name: command.Name, Star: command.Star, Verbatim: command.Verbatim}
	for _, argument := range command.Arguments {
		rewritten.Arguments = append(rewritten.Arguments, &latex.Argument{
			Leading: argument.Leading,
			Open:    argument.Open,
			Nodes:   rewriter.rewriteList(argument.Nodes, false),
		})
	}
	return rewritten
}

// ruledDeclaration reports whether command declares a removed or short-circuited
// command, either as \newcommand{\name}... or as \newcommand\name... where the
// declared command is the next sibling after horizontal space. consumed counts
// the following siblings that belong to the declaration.
func (rewriter *rewriter) ruledDeclaration(command *latex.Command, following []latex.Node) (consumed int, ruled bool) {
	if _, isDeclaration := latex.DeclarationCommands[command.Name]; !isDeclaration {
		return 0, false
	}
	if len(command.Arguments) == 0 {
		for index, node := range following {
			switch typed := node.(type) {
			case *latex.Text:
				if isHorizontalSpace(typed.Value) {
					continue
				}
			case *latex.Command:
				return index + 1, rewriter.isRuled(typed.Name)
			}
			return 0, false
		}
		return 0, false
	}
	primary := command.FirstRequired()
	if primary == nil {
		return 0, false
	}
	return 0, rewriter.isRuled(strings.TrimPrefix(strings.TrimSpace(primary.Text()), `\`))
}

func (rewriter *rewriter) isRuled(name string) bool {
	return !latex.IsStructural(name) && rewriter.options.Rules.Action(name) != ActionNone
}
