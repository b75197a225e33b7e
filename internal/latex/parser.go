package latex

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	beginCommandName = "begin"
	endCommandName   = "end"
	verbCommandName  = "verb"
)

// ErrMalformed is matched by every SyntaxError.
var ErrMalformed = errors.New("malformed document")

// SyntaxError reports the position where the source could not be tokenized.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (syntaxError *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d: %s", ErrMalformed.Error(), syntaxError.Line, syntaxError.Column, syntaxError.Message)
}

// Is makes errors.Is(err, ErrMalformed) succeed.
func (syntaxError *SyntaxError) Is(target error) bool {
	return target == ErrMalformed
}

var verbatimEnvironments = map[string]struct{}{
	"verbatim":     {},
	"verbatim*":    {},
	"Verbatim":     {},
	"lstlisting":   {},
	"minted":       {},
	"comment":      {},
	"filecontents": {},
}

// Parse tokenizes source into a Document. Parse(source).String() == source for any accepted input.
func Parse(source string) (*Document, error) {
	documentParser := &parser{source: source}
	nodes, _, parseError := documentParser.parseList(0, "")
	if parseError != nil {
		return nil, parseError
	}
	return &Document{Nodes: nodes}, nil
}

type parser struct {
	source   string
	position int
}

func (documentParser *parser) errorAt(offset int, format string, arguments ...any) error {
	prefix := documentParser.source[:offset]
	line := strings.Count(prefix, "\n") + 1
	column := offset - strings.LastIndexByte(prefix, '\n')
	return &SyntaxError{Line: line, Column: column, Message: fmt.Sprintf(format, arguments...)}
}

func (documentParser *parser) atEnd() bool {
	return documentParser.position >= len(documentParser.source)
}

func (documentParser *parser) peek() byte {
	return documentParser.source[documentParser.position]
}

// parseList reads nodes until the terminator byte (0 for end of input) or, inside an
// environment, until the matching \end command which is returned separately.
func (documentParser *parser) parseList(terminator byte, environment string) ([]Node, *Command, error) {
	var nodes []Node
	for {
		if documentParser.atEnd() {
			if terminator != 0 {
				return nil, nil, documentParser.errorAt(documentParser.position, "missing %q", string(terminator))
			}
			if environment != "" {
				return nil, nil, documentParser.errorAt(documentParser.position, `missing \end{%s}`, environment)
			}
			return nodes, nil, nil
		}

		character := documentParser.peek()
		switch {
		case terminator != 0 && character == terminator:
			return nodes, nil, nil
		case character == groupClose:
			return nil, nil, documentParser.errorAt(documentParser.position, "unexpected %q", string(groupClose))
		case character == '%':
			nodes = append(nodes, documentParser.parseComment())
		case character == groupOpen:
			group, groupError := documentParser.parseGroup()
			if groupError != nil {
				return nil, nil, groupError
			}
			nodes = append(nodes, group)
		case character == '\\':
			start := documentParser.position
			command, commandError := documentParser.parseCommand()
			if commandError != nil {
				return nil, nil, commandError
			}
			switch command.Name {
			case beginCommandName:
				env, envError := documentParser.parseEnvironment(start, command)
				if envError != nil {
					return nil, nil, envError
				}
				nodes = append(nodes, env)
			case endCommandName:
				name := environmentName(command)
				if environment == "" || terminator != 0 {
					return nil, nil, documentParser.errorAt(start, `unexpected \end{%s}`, name)
				}
				if name != environment {
					return nil, nil, documentParser.errorAt(start, `\end{%s} does not match \begin{%s}`, name, environment)
				}
				return nodes, command, nil
			default:
				nodes = append(nodes, command)
			}
		default:
			nodes = appendText(nodes, documentParser.parseText(terminator))
		}
	}
}

func (documentParser *parser) parseText(terminator byte) string {
	start := documentParser.position
	for !documentParser.atEnd() {
		character := documentParser.peek()
		if character == '%' || character == '\\' || character == groupOpen || character == groupClose {
			break
		}
		if terminator != 0 && character == terminator {
			break
		}
		documentParser.position++
	}
	return documentParser.source[start:documentParser.position]
}

func (documentParser *parser) parseComment() *Comment {
	start := documentParser.position + 1
	end := strings.IndexByte(documentParser.source[start:], '\n')
	if end < 0 {
		documentParser.position = len(documentParser.source)
	} else {
		documentParser.position = start + end
	}
	return &Comment{Body: documentParser.source[start:documentParser.position]}
}

func (documentParser *parser) parseGroup() (*Group, error) {
	documentParser.position++
	nodes, _, listError := documentParser.parseList(groupClose, "")
	if listError != nil {
		return nil, listError
	}
	documentParser.position++
	return &Group{Nodes: nodes}, nil
}

func (documentParser *parser) parseCommand() (*Command, error) {
	start := documentParser.position
	documentParser.position++
	if documentParser.atEnd() {
		return nil, documentParser.errorAt(start, "escape character at end of input")
	}

	if !isLetter(documentParser.peek()) {
		symbol, width := utf8.DecodeRuneInString(documentParser.source[documentParser.position:])
		documentParser.position += width
		return &Command{Name: string(symbol)}, nil
	}

	nameStart := documentParser.position
	for !documentParser.atEnd() && isLetter(documentParser.peek()) {
		documentParser.position++
	}
	command := &Command{Name: documentParser.source[nameStart:documentParser.position]}
	if !documentParser.atEnd() && documentParser.peek() == '*' && command.Name != verbCommandName {
		command.Star = true
		documentParser.position++
	}

	switch command.Name {
	case verbCommandName:
		if verbError := documentParser.parseVerb(start, command); verbError != nil {
			return nil, verbError
		}
		return command, nil
	case beginCommandName, endCommandName:
		argument, argumentError := documentParser.parseArgument(groupOpen)
		if argumentError != nil {
			return nil, argumentError
		}
		if argument == nil {
			return nil, documentParser.errorAt(start, `\%s without environment name`, command.Name)
		}
		command.Arguments = append(command.Arguments, argument)
		return command, nil
	}

	return command, documentParser.parseArguments(command)
}

func (documentParser *parser) parseVerb(start int, command *Command) error {
	if !documentParser.atEnd() && documentParser.peek() == '*' {
		command.Star = true
		documentParser.position++
	}
	if documentParser.atEnd() {
		return documentParser.errorAt(start, `\verb without delimiter`)
	}
	delimiter := documentParser.peek()
	body := documentParser.source[documentParser.position+1:]
	end := strings.IndexByte(body, delimiter)
	newline := strings.IndexByte(body, '\n')
	if end < 0 || (newline >= 0 && newline < end) {
		return documentParser.errorAt(start, `unterminated \verb`)
	}
	command.Verbatim = documentParser.source[documentParser.position : documentParser.position+end+2]
	documentParser.position += end + 2
	return nil
}

// parseArguments attaches every directly following bracket or brace argument.
// A bracket that does not close cleanly is left as text.
func (documentParser *parser) parseArguments(command *Command) error {
	for {
		saved := documentParser.position
		documentParser.skipHorizontalSpace()
		if documentParser.atEnd() {
			documentParser.position = saved
			return nil
		}
		switch documentParser.peek() {
		case groupOpen:
			documentParser.position = saved
			argument, argumentError := documentParser.parseArgument(groupOpen)
			if argumentError != nil {
				return argumentError
			}
			command.Arguments = append(command.Arguments, argument)
		case optionOpen:
			documentParser.position = saved
			argument, argumentError := documentParser.parseArgument(optionOpen)
			if argumentError != nil || argument == nil {
				documentParser.position = saved
				return nil
			}
			command.Arguments = append(command.Arguments, argument)
		default:
			documentParser.position = saved
			return nil
		}
	}
}

// parseArgument reads one argument opened by open, returning nil when none follows.
func (documentParser *parser) parseArgument(open byte) (*Argument, error) {
	saved := documentParser.position
	documentParser.skipHorizontalSpace()
	if documentParser.atEnd() || documentParser.peek() != open {
		documentParser.position = saved
		return nil, nil
	}
	argument := &Argument{Leading: documentParser.source[saved:documentParser.position], Open: open}
	documentParser.position++
	nodes, _, listError := documentParser.parseList(argument.Close(), "")
	if listError != nil {
		return nil, listError
	}
	documentParser.position++
	argument.Nodes = nodes
	return argument, nil
}

func (documentParser *parser) parseEnvironment(start int, begin *Command) (*Environment, error) {
	name := environmentName(begin)
	env := &Environment{Name: name, Begin: begin}

	if _, verbatim := verbatimEnvironments[name]; verbatim {
		closing := escapeCharacter + endCommandName + string(groupOpen) + name + string(groupClose)
		end := strings.Index(documentParser.source[documentParser.position:], closing)
		if end < 0 {
			return nil, documentParser.errorAt(start, `missing \end{%s}`, name)
		}
		if end > 0 {
			env.Body = []Node{&Text{Value: documentParser.source[documentParser.position : documentParser.position+end]}}
		}
		documentParser.position += end
		endCommand, endError := documentParser.parseCommand()
		if endError != nil {
			return nil, endError
		}
		env.End = endCommand
		return env, nil
	}

	if argumentsError := documentParser.parseArguments(begin); argumentsError != nil {
		return nil, argumentsError
	}
	body, endCommand, bodyError := documentParser.parseList(0, name)
	if bodyError != nil {
		return nil, bodyError
	}
	env.Body = body
	env.End = endCommand
	return env, nil
}

func (documentParser *parser) skipHorizontalSpace() {
	for !documentParser.atEnd() {
		character := documentParser.peek()
		if character != ' ' && character != '\t' {
			return
		}
		documentParser.position++
	}
}

func environmentName(command *Command) string {
	if len(command.Arguments) == 0 {
		return ""
	}
	return strings.TrimSpace(command.Arguments[0].Text())
}

func appendText(nodes []Node, value string) []Node {
	if value == "" {
		return nodes
	}
	if len(nodes) > 0 {
		if previous, isText := nodes[len(nodes)-1].(*Text); isText {
			nodes[len(nodes)-1] = &Text{Value: previous.Value + value}
			return nodes
		}
	}
	return append(nodes, &Text{Value: value})
}
