package prompt

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("  alice  \n"), &out)

	got, err := p.Line("Username: ")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
	assert.Equal(t, "Username: ", out.String())
	assert.False(t, p.Interactive())
}

func TestPrompter_LineWithoutNewline(t *testing.T) {
	p := New(strings.NewReader("alice"), io.Discard)

	got, err := p.Line("")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestPrompter_Empty(t *testing.T) {
	p := New(strings.NewReader("\n\n"), io.Discard)

	_, err := p.Line("Username: ")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = p.Password("Password: ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPrompter_EOF(t *testing.T) {
	p := New(strings.NewReader(""), io.Discard)

	_, err := p.Line("Username: ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestPrompter_PasswordKeepsSpaces(t *testing.T) {
	p := New(strings.NewReader(" pa ss \r\n"), io.Discard)

	got, err := p.Password("Password: ")
	require.NoError(t, err)
	assert.Equal(t, " pa ss ", got)
}

func TestPrompter_SequentialReads(t *testing.T) {
	p := New(strings.NewReader("alice\nsecret\n"), io.Discard)

	user, err := p.Line("Username: ")
	require.NoError(t, err)
	pass, err := p.Password("Password: ")
	require.NoError(t, err)

	assert.Equal(t, "alice", user)
	assert.Equal(t, "secret", pass)
}

func TestPrompter_TerminalPassword(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader(""), &out)
	p.tty = true
	p.fd = 7

	var gotFD int
	p.readPassword = func(fd int) ([]byte, error) {
		gotFD = fd
		return []byte("hunter2"), nil
	}

	got, err := p.Password("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
	assert.Equal(t, 7, gotFD)
	assert.Equal(t, "Password: \n", out.String())

	p.readPassword = func(int) ([]byte, error) { return nil, errors.New("interrupted") }
	_, err = p.Password("Password: ")
	assert.ErrorContains(t, err, "interrupted")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	f, err := os.CreateTemp(t.TempDir(), "notatty")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}
