package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

var (
	errEmptyCommand  = errors.New("empty command")
	errShellOperator = errors.New("unquoted shell operator; commands are not run through a shell")
)

// Command is a single external program invocation. It is immutable: the With* methods
// return modified copies.
type Command struct {
	program string
	args    []string
	dir     string
	env     []string
	timeout time.Duration
}

// NewCommand builds a command for program with the given arguments.
func NewCommand(program string, args ...string) Command {
	return Command{
		program: program,
		args:    append([]string(nil), args...),
	}
}

// ParseCommandLine splits a full command line ("kubectl get pods --namespace=mysql") into a
// Command. Quotes and backslash escapes follow POSIX shell rules; no expansion is performed.
func ParseCommandLine(line string) (Command, error) {
	words, err := SplitArgs(line)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 {
		return Command{}, &ParseError{Input: line, Err: errEmptyCommand}
	}
	return NewCommand(words[0], words[1:]...), nil
}

// SplitArgs splits an argument string into words. An unquoted |, ;, &, < or > is rejected:
// the parser stops there, and running the words before it would silently drop the rest.
func SplitArgs(s string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	words, err := p.Parse(s)
	if err != nil {
		return nil, &ParseError{Input: s, Err: err}
	}
	if p.Position != -1 {
		return nil, &ParseError{Input: s, Err: fmt.Errorf("%w at character %d", errShellOperator, p.Position+1)}
	}
	return words, nil
}

func (c Command) Program() string { return c.program }

// Args returns a copy of the argument list.
func (c Command) Args() []string { return append([]string(nil), c.args...) }

func (c Command) Dir() string { return c.dir }

// Env returns a copy of the environment overrides in KEY=VALUE form.
func (c Command) Env() []string { return append([]string(nil), c.env...) }

func (c Command) Timeout() time.Duration { return c.timeout }

// WithArgs returns a copy with extra arguments appended.
func (c Command) WithArgs(args ...string) Command {
	out := c.clone()
	out.args = append(out.args, args...)
	return out
}

// WithProgram returns a copy running a different program with the same arguments.
func (c Command) WithProgram(program string) Command {
	out := c.clone()
	out.program = program
	return out
}

// WithDir returns a copy running in dir.
func (c Command) WithDir(dir string) Command {
	out := c.clone()
	out.dir = dir
	return out
}

// WithEnv returns a copy with an additional KEY=VALUE override.
func (c Command) WithEnv(key, value string) Command {
	out := c.clone()
	out.env = append(out.env, key+"="+value)
	return out
}

// WithTimeout returns a copy bounded by d. Zero means no command level timeout.
func (c Command) WithTimeout(d time.Duration) Command {
	out := c.clone()
	out.timeout = d
	return out
}

// HasArg reports whether the argument list contains name, either bare or as name=value.
func (c Command) HasArg(name string) bool {
	for _, a := range c.args {
		if a == name || strings.HasPrefix(a, name+"=") {
			return true
		}
	}
	return false
}

// String renders the command as a shell-quoted line for logs and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.args)+1)
	parts = append(parts, quoteWord(c.program))
	for _, a := range c.args {
		parts = append(parts, quoteWord(a))
	}
	return strings.Join(parts, " ")
}

func (c Command) clone() Command {
	out := c
	out.args = append([]string(nil), c.args...)
	out.env = append([]string(nil), c.env...)
	return out
}

func quoteWord(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n'\"\\$`") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
