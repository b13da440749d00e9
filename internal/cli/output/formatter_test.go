package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) should return *JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("NewFormatter(yaml) should return *YAMLFormatter")
	}
	tf, ok := NewFormatter(FormatTable, true).(*TableFormatter)
	if !ok {
		t.Fatal("NewFormatter(table) should return *TableFormatter")
	}
	if !tf.Wide {
		t.Error("wide flag not carried over")
	}
	if _, ok := NewFormatter("bogus", false).(*TableFormatter); !ok {
		t.Error("unknown formats should fall back to table")
	}
}

type account struct {
	ID       string `json:"id" yaml:"id"`
	FullName string `json:"fullName" yaml:"full_name"`
	Hidden   string `json:"-" yaml:"-"`
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, account{ID: "42", FullName: "Alice", Hidden: "x"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["fullName"] != "Alice" {
		t.Errorf("fullName = %v, want Alice", got["fullName"])
	}
	if _, ok := got["Hidden"]; ok {
		t.Error("hidden field leaked into JSON")
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, account{ID: "42", FullName: "Alice"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "full_name: Alice") {
		t.Errorf("YAML output missing full_name:\n%s", out)
	}

	var got map[string]string
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got["id"] != "42" {
		t.Errorf("id = %q, want 42", got["id"])
	}
}
