// Package commands contains the idguard CLI command implementations.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// ParseFields builds a record from key=value pairs. With no pairs, a JSON
// object of string values is read from r instead.
func ParseFields(pairs []string, r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)

	if len(pairs) == 0 {
		if r == nil {
			return nil, fmt.Errorf("no fields given")
		}
		if err := json.NewDecoder(r).Decode(&fields); err != nil {
			return nil, fmt.Errorf("failed to parse fields JSON: %w", err)
		}
		return fields, nil
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q (expected name=value)", pair)
		}
		fields[name] = value
	}
	return fields, nil
}

// validateFormat rejects output formats other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

// outputFields writes fields as sorted "name: value" lines or as a JSON object.
func outputFields(w io.Writer, fields map[string]string, format string) error {
	if format == "json" {
		return outputJSON(w, fields)
	}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(w, "%s: %s\n", name, fields[name])
	}
	return nil
}

// outputValue writes a single named value.
func outputValue(w io.Writer, name, value, format string) error {
	if format == "json" {
		return outputJSON(w, map[string]string{name: value})
	}
	fmt.Fprintln(w, value)
	return nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
