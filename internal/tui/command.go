package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}
}

// navigation reports whether the command only changes the current page.
func (c Command) navigation() bool {
	switch c.Name {
	case "q", "quit", "h", "help", "events", "overview", "o":
		return true
	}
	return false
}
