package writer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type testData struct {
	Name  string   `json:"name" yaml:"name"`
	Value int      `json:"value" yaml:"value"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func TestJSONWriter_Write(t *testing.T) {
	data := testData{Name: "test", Value: 42}

	t.Run("compact output", func(t *testing.T) {
		w := NewJSONWriter[testData]()
		var buf bytes.Buffer
		if err := w.Write(data, &buf); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		expected := `{"name":"test","value":42}` + "\n"
		if buf.String() != expected {
			t.Errorf("got %q, want %q", buf.String(), expected)
		}
	})

	t.Run("pretty output", func(t *testing.T) {
		w := NewPrettyJSONWriter[testData]()
		var buf bytes.Buffer
		if err := w.Write(data, &buf); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		expected := "{\n  \"name\": \"test\",\n  \"value\": 42\n}\n"
		if buf.String() != expected {
			t.Errorf("got %q, want %q", buf.String(), expected)
		}
	})
}

func TestYAMLWriter_Write(t *testing.T) {
	data := testData{Name: "test", Value: 42, Tags: []string{"a", "b"}}

	var buf bytes.Buffer
	if err := NewYAMLWriter[testData]().Write(data, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "name: test\nvalue: 42\n") {
		t.Errorf("unexpected output %q", buf.String())
	}

	var decoded testData
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if decoded.Name != data.Name || decoded.Value != data.Value || len(decoded.Tags) != 2 {
		t.Errorf("decoded data mismatch: got %+v, want %+v", decoded, data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, ok := mustNew(t, FormatJSON).(*JSONWriter[testData]); !ok {
		t.Error("expected a JSON writer")
	}
	if _, ok := mustNew(t, FormatYAML).(*YAMLWriter[testData]); !ok {
		t.Error("expected a YAML writer")
	}
	if _, err := New[testData]("xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func mustNew(t *testing.T, format Format) Writer[testData] {
	t.Helper()
	w, err := New[testData](format)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", format, err)
	}
	return w
}

func TestWriteToFile(t *testing.T) {
	data := testData{Name: "test", Value: 42}
	filePath := filepath.Join(t.TempDir(), "test.json")

	if err := WriteToFile[testData](NewJSONWriter[testData](), data, filePath); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	var decoded testData
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to decode file content: %v", err)
	}
	if decoded.Name != data.Name || decoded.Value != data.Value {
		t.Errorf("decoded data mismatch: got %+v, want %+v", decoded, data)
	}

	if err := WriteToFile[testData](NewJSONWriter[testData](), data, filepath.Join(t.TempDir(), "missing", "x.json")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
