// Package prompt reads credentials from the user.
//
// On a terminal, passwords are read without echo through golang.org/x/term.
// Otherwise input is read line by line, which keeps piped use
// (`printf 'secret\n' | bankline login --password-stdin`) working.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmpty is returned when the user submits an empty answer.
var ErrEmpty = errors.New("prompt: empty input")

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	out    io.Writer
	reader *bufio.Reader
	fd     int
	tty    bool

	readPassword func(fd int) ([]byte, error)
}

// New creates a Prompter. Echo suppression is used only when in is a
// terminal file.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		out:          out,
		reader:       bufio.NewReader(in),
		fd:           -1,
		readPassword: term.ReadPassword,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	return p.tty
}

// Reader returns the buffered input. Other line readers that wrap it with
// bufio.NewReader share its buffer, so no typed-ahead input is lost.
func (p *Prompter) Reader() *bufio.Reader {
	return p.reader
}

// Line prints label and reads one trimmed line. A blank answer is ErrEmpty.
func (p *Prompter) Line(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	s, err := p.readLine()
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}

// Password prints label and reads a secret. Only the trailing newline is
// stripped so passwords may contain leading or trailing spaces.
func (p *Prompter) Password(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}

	var s string
	if p.tty {
		b, err := p.readPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		s = string(b)
	} else {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		s = strings.TrimRight(line, "\r\n")
	}

	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
