package latex

// Visitor is called for every node reached by Walk. Returning false skips the node's children.
type Visitor func(node Node) bool

// Walk traverses nodes depth first in source order, descending into command
// arguments, groups, environment arguments and environment bodies.
func Walk(nodes []Node, visit Visitor) {
	for _, node := range nodes {
		if !visit(node) {
			continue
		}
		switch typed := node.(type) {
		case *Command:
			for _, argument := range typed.Arguments {
				Walk(argument.Nodes, visit)
			}
		case *Group:
			Walk(typed.Nodes, visit)
		case *Environment:
			for _, argument := range typed.Arguments() {
				Walk(argument.Nodes, visit)
			}
			Walk(typed.Body, visit)
		}
	}
}

// Commands returns every command reached by Walk whose name is in names.
func Commands(nodes []Node, names map[string]struct{}) []*Command {
	var matches []*Command
	Walk(nodes, func(node Node) bool {
		if command, isCommand := node.(*Command); isCommand {
			if _, wanted := names[command.Name]; wanted {
				matches = append(matches, command)
			}
		}
		return true
	})
	return matches
}

// Environments returns every environment reached by Walk whose name is in names.
func Environments(nodes []Node, names map[string]struct{}) []*Environment {
	var matches []*Environment
	Walk(nodes, func(node Node) bool {
		if env, isEnvironment := node.(*Environment); isEnvironment {
			if _, wanted := names[env.Name]; wanted {
				matches = append(matches, env)
			}
		}
		return true
	})
	return matches
}
