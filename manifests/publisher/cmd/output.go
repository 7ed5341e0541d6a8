package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// print writes v as indented JSON, or the line text
// renders.
func (a *app) print(v any, text func() string) error {
	if a.output == outputJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		return nil
	}

	if _, err := io.WriteString(a.stdout, text()); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}
