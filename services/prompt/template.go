// Package prompt renders the system prompt of the chat pipeline.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultSystem is the built-in system prompt. {{.Context}} receives the
// retrieved documents.
const DefaultSystem = "You are an assistant for question-answering tasks on medical topics. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, say that you don't know. " +
	"Use three sentences maximum and keep the answer concise.\n\n{{.Context}}"

// DefaultFallback stands in for the context when nothing was retrieved
const DefaultFallback = "No reference material was found for this question."

// File is the YAML layout of a prompt override file
type File struct {
	System   string `yaml:"system"`
	Fallback string `yaml:"fallback"`
}

// Template renders the system message
type Template struct {
	system   *template.Template
	fallback string
}

type data struct {
	Context string
}

// New parses a system prompt template and renders it once, so a reference
// to an unknown field fails here rather than on every question.
func New(system, fallback string) (*Template, error) {
	if strings.TrimSpace(system) == "" {
		return nil, errors.New("system prompt is empty")
	}
	tmpl, err := template.New("system").Option("missingkey=error").Parse(system)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	if err := tmpl.Execute(io.Discard, data{Context: "x"}); err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallback
	}
	return &Template{system: tmpl, fallback: fallback}, nil
}

// Default returns the built-in template
func Default() *Template {
	t, err := New(DefaultSystem, DefaultFallback)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads an override file. An empty path returns the built-in template;
// keys missing from the file keep their built-in values.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	f := File{System: DefaultSystem, Fallback: DefaultFallback}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode prompt file %s: %w", path, err)
	}
	return New(f.System, f.Fallback)
}

// Render fills the template with the stuffed context
func (t *Template) Render(context string) (string, error) {
	if strings.TrimSpace(context) == "" {
		context = t.fallback
	}
	var buf bytes.Buffer
	if err := t.system.Execute(&buf, data{Context: context}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}
