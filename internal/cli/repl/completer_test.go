package repl

import (
	"reflect"
	"testing"
)

func TestNewCompleter(t *testing.T) {
	c := NewCompleter()
	if len(c.commands) != len(DefaultCommands) {
		t.Errorf("commands = %d, want %d", len(c.commands), len(DefaultCommands))
	}
}

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter()

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"config", "config", []string{"config", "config init", "config path", "config show"}},
		{"config s", "config s", []string{"config show"}},
		{"session", "sess", []string{"session", "session watch"}},
		{"log", "log", []string{"login", "logout"}},
		{"whoami", "who", []string{"whoami", "whoami --refresh"}},
		{"exit", "ex", []string{"exit"}},
		{"no match", "transfer", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Complete(tt.prefix)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}

	if got := c.Complete(""); len(got) != len(c.commands) {
		t.Errorf("Complete(\"\") returned %d items, want all %d", len(got), len(c.commands))
	}
}

func TestCompleter_Custom(t *testing.T) {
	c := NewCompleter("b", "a b", "a")
	if got := c.Complete("a"); !reflect.DeepEqual(got, []string{"a", "a b"}) {
		t.Errorf("Complete(a) = %q", got)
	}
}

func TestCompleter_TopLevel(t *testing.T) {
	c := NewCompleter("request GET", "request", "status", "config show")
	want := []string{"config", "request", "status"}
	if got := c.TopLevel(); !reflect.DeepEqual(got, want) {
		t.Errorf("TopLevel() = %q, want %q", got, want)
	}

	for _, essential := range []string{"login", "logout", "whoami", "status", "exit"} {
		found := false
		for _, cmd := range NewCompleter().TopLevel() {
			if cmd == essential {
				found = true
			}
		}
		if !found {
			t.Errorf("essential command %q missing", essential)
		}
	}
}
