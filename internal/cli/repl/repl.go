package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

// DefaultPrompt is printed before every line.
const DefaultPrompt = "bankline> "

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// PromptFunc renders the prompt; it is called before every line so it can
// reflect the current session.
type PromptFunc func() string

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	completer *Completer
	history   *History
	exec      Executor
	prompt    PromptFunc
	banner    bool
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory replaces the in-memory history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		if h != nil {
			r.history = h
		}
	}
}

// WithPrompt sets a dynamic prompt.
func WithPrompt(p PromptFunc) Option {
	return func(r *REPL) {
		if p != nil {
			r.prompt = p
		}
	}
}

// WithCompleter sets the completer used by `help` and unknown-command hints.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		if c != nil {
			r.completer = c
		}
	}
}

// WithBanner prints the ASCII-art banner on start.
func WithBanner(enabled bool) Option {
	return func(r *REPL) {
		r.banner = enabled
	}
}

// New creates a new REPL instance.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     strings.NewReader(""),
		output:    io.Discard,
		completer: NewCompleter(),
		history:   NewHistory(""),
		exec:      exec,
		prompt:    func() string { return DefaultPrompt },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Banner renders the start-up banner.
func Banner() string {
	return figure.NewFigure("bankline", "cybermedium", true).String()
}

// Run reads lines until exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if r.banner {
		fmt.Fprintln(r.output, Banner())
		fmt.Fprintln(r.output, "Type 'help' for commands, 'exit' to quit.")
	}

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt())

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		if done := r.handle(ctx, line); done {
			return nil
		}
	}
}

// handle runs one line and reports whether the loop should stop.
func (r *REPL) handle(ctx context.Context, line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "error: %v\n", err)
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "help", "?":
		r.printHelp()
		return false
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false
	}

	if r.exec == nil {
		return false
	}
	if err := r.exec(ctx, args); err != nil {
		fmt.Fprintf(r.output, "error: %v\n", err)
		if hints := r.completer.Complete(args[0]); len(hints) == 0 {
			fmt.Fprintln(r.output, "Type 'help' to list commands.")
		}
	}
	return false
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.output, "Commands:")
	for _, cmd := range r.completer.TopLevel() {
		fmt.Fprintf(r.output, "  %s\n", cmd)
	}
	fmt.Fprintln(r.output, "Run '<command> --help' for details.")
}

// SplitArgs splits a line into words. Single and double quotes group words
// and a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(ch)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}
