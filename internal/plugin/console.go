package plugin

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// Console is an interactive "<plugin-name> <command>" REPL routed
// through a Registry, adapted from the retrieved chat client's
// readline loop (history, ctrl-C handling, ctrl-D to exit).
type Console struct {
	registry *Registry
	prompt   string
}

// NewConsole returns a console routing commands through registry.
func NewConsole(registry *Registry) *Console {
	return &Console{registry: registry, prompt: "plugin> "}
}

// Run blocks reading lines from stdin until EOF, an interrupt on an
// empty line, or the user types "exit"/"quit".
func (c *Console) Run() error {
	rl, err := readline.New(c.prompt)
	if err != nil {
		return fmt.Errorf("plugin: console init: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		name, cmd, ok := strings.Cut(line, " ")
		if !ok {
			fmt.Fprintln(os.Stderr, "usage: <plugin-name> <command>")
			continue
		}
		out, err := c.registry.RouteConsole(name, cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(os.Stdout, out)
	}
}
