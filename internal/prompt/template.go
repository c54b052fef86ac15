package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Placeholder marks where the date, weather and conversation block goes.
const Placeholder = "{{CONTEXT}}"

//go:embed default_prompt.md
var defaultTemplate string

func DefaultTemplate() string {
	return defaultTemplate
}

// EnsureTemplate writes the shipped template to path unless a file is
// already there. An existing file is never touched.
func EnsureTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create template dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create template: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(defaultTemplate); err != nil {
		return false, fmt.Errorf("write template: %w", err)
	}
	return true, nil
}

// LoadTemplate seeds path if needed and returns its contents.
func LoadTemplate(path string) (string, error) {
	if _, err := EnsureTemplate(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}
