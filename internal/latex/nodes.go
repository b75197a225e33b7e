// Package latex splits LaTeX source into text, comments, commands, brace groups
// and environments, and serializes the node list back to the exact source text.
package latex

import "strings"

// NodeKind identifies the concrete type of a Node.
type NodeKind int

const (
	KindText NodeKind = iota
	KindComment
	KindCommand
	KindGroup
	KindEnvironment
)

const (
	commentIntroducer = "%"
	escapeCharacter   = `\`
	groupOpen         = '{'
	groupClose        = '}'
	optionOpen        = '['
	optionClose       = ']'
)

// Node is a single element of a parsed document.
type Node interface {
	Kind() NodeKind
	String() string
	write(builder *strings.Builder)
}

// Text is a run of plain characters.
type Text struct {
	Value string
}

// Comment is an inline comment. Body excludes the introducing '%' and the line break.
type Comment struct {
	Body string
}

// Command is a control word or control symbol with its arguments.
type Command struct {
	Name      string
	Star      bool
	Verbatim  string
	Arguments []*Argument
}

// Argument is a bracketed or braced command argument.
// Leading holds the horizontal whitespace between the previous token and the opening delimiter.
type Argument struct {
	Leading string
	Open    byte
	Nodes   []Node
}

// Group is a brace group that does not belong to a command.
type Group struct {
	Nodes []Node
}

// Environment is a \begin{name} ... \end{name} block.
type Environment struct {
	Name  string
	Begin *Command
	Body  []Node
	End   *Command
}

// Document is the parsed form of one source file.
type Document struct {
	Nodes []Node
}

func (text *Text) Kind() NodeKind { return KindText }
func (comment *Comment) Kind() NodeKind { return KindComment }
func (command *Command) Kind() NodeKind { return KindCommand }
func (group *Group) Kind() NodeKind { return KindGroup }
func (env *Environment) Kind() NodeKind { return KindEnvironment }
func (text *Text) String() string { return render(text) }
func (comment *Comment) String() string { return render(comment) }
func (command *Command) String() string { return render(command) }
func (group *Group) String() string { return render(group) }
func (env *Environment) String() string { return render(env) }
func (argument *Argument) String() string {
	var builder strings.Builder
	argument.write(&builder)
	return builder.String()
}

func (text *Text) write(builder *strings.Builder) {
	builder.WriteString(text.Value)
}

func (comment *Comment) write(builder *strings.Builder) {
	builder.WriteString(commentIntroducer)
	builder.WriteString(comment.Body)
}

func (command *Command) write(builder *strings.Builder) {
	builder.WriteString(escapeCharacter)
	builder.WriteString(command.Name)
	if command.Star {
		builder.WriteByte('*')
	}
	builder.WriteString(command.Verbatim)
	for _, argument := range command.Arguments {
		argument.write(builder)
	}
}

func (argument *Argument) write(builder *strings.Builder) {
	builder.WriteString(argument.Leading)
	builder.WriteByte(argument.Open)
	writeNodes(builder, argument.Nodes)
	builder.WriteByte(argument.Close())
}

func (group *Group) write(builder *strings.Builder) {
	builder.WriteByte(groupOpen)
	writeNodes(builder, group.Nodes)
	builder.WriteByte(groupClose)
}

func (env *Environment) write(builder *strings.Builder) {
	env.Begin.write(builder)
	writeNodes(builder, env.Body)
	env.End.write(builder)
}

// String re-serializes the document.
func (document *Document) String() string {
	var builder strings.Builder
	writeNodes(&builder, document.Nodes)
	return builder.String()
}

// Close returns the delimiter matching Open.
func (argument *Argument) Close() byte {
	if argument.Open == optionOpen {
		return optionClose
	}
	return groupClose
}

// IsOptional reports whether the argument is bracketed.
func (argument *Argument) IsOptional() bool {
	return argument.Open == optionOpen
}

// Text returns the serialized content between the delimiters.
func (argument *Argument) Text() string {
	return Serialize(argument.Nodes)
}

// RequiredArguments returns the braced arguments in order.
func (command *Command) RequiredArguments() []*Argument {
	var required []*Argument
	for _, argument := range command.Arguments {
		if !argument.IsOptional() {
			required = append(required, argument)
		}
	}
	return required
}

// FirstRequired returns the first braced argument or nil.
func (command *Command) FirstRequired() *Argument {
	for _, argument := range command.Arguments {
		if !argument.IsOptional() {
			return argument
		}
	}
	return nil
}

// IsControlWord reports whether the command name is made of letters, as opposed to a control symbol like \%.
func (command *Command) IsControlWord() bool {
	return command.Name != "" && isLetter(command.Name[0])
}

// IsBare reports whether the command is a control word without arguments, so
// letters written right after it would extend its name.
func (command *Command) IsBare() bool {
	return command.IsControlWord() && len(command.Arguments) == 0 && command.Verbatim == ""
}

// NeedsSeparator reports whether writing text after previous would merge into
// the name of a bare control word or be read as its optional argument.
func NeedsSeparator(previous Node, text string) bool {
	command, isCommand := previous.(*Command)
	if !isCommand || !command.IsBare() || text == "" {
		return false
	}
	return isLetter(text[0]) || strings.HasPrefix(strings.TrimLeft(text, " \t"), string(optionOpen))
}

// Arguments returns the begin arguments that follow the environment name.
func (env *Environment) Arguments() []*Argument {
	if env.Begin == nil || len(env.Begin.Arguments) < 2 {
		return nil
	}
	return env.Begin.Arguments[1:]
}

// Serialize renders a node list back to source text.
func Serialize(nodes []Node) string {
	var builder strings.Builder
	writeNodes(&builder, nodes)
	return builder.String()
}

func writeNodes(builder *strings.Builder, nodes []Node) {
	for _, node := range nodes {
		node.write(builder)
	}
}

func render(node Node) string {
	var builder strings.Builder
	node.write(&builder)
	return builder.String()
}

func isLetter(character byte) bool {
	return (character >= 'a' && character <= 'z') || (character >= 'A' && character <= 'Z') || character == '@'
}
