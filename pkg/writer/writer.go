// Package writer renders query results as JSON or YAML.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/jindex/pkg/errors"
)

// Writer encodes a value of type T.
type Writer[T any] interface {
	Write(data T, writer io.Writer) error
}

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses "json" or "yaml" ("yml" is accepted too).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown output format %q", s)
	}
}

// New returns the pretty-printing writer for format.
func New[T any](format Format) (Writer[T], error) {
	switch format {
	case FormatJSON, "":
		return NewPrettyJSONWriter[T](), nil
	case FormatYAML:
		return NewYAMLWriter[T](), nil
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown output format %q", format)
	}
}

// WriteToFile writes data to a new file at path using w.
func WriteToFile[T any](w Writer[T], data T, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(data, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: ""}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// YAMLWriter writes data as a YAML document.
type YAMLWriter[T any] struct {
	Indent int
}

// NewYAMLWriter creates a YAML writer indenting by two spaces.
func NewYAMLWriter[T any]() *YAMLWriter[T] {
	return &YAMLWriter[T]{Indent: 2}
}

// Write writes the data as YAML to the writer.
func (w *YAMLWriter[T]) Write(data T, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	if w.Indent > 0 {
		encoder.SetIndent(w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		encoder.Close()
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}
