// Package content renders the localized broadcast body.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
)

// DefaultLocale is stored as the locale list when no content is configured.
const DefaultLocale = "en_US"

// ErrTemplate wraps failures compiling or executing the content template.
var ErrTemplate = errors.New("content template error")

// Rendered is the content of one broadcast, ready to be stored.
type Rendered struct {
	// Content is the JSON object of locale to rendered text.
	Content string
	// Locales is the comma-joined list of locale keys.
	Locales string
}

// Renderer substitutes the send timestamp into every locale template.
//
// The whole locale map is serialized to JSON first and compiled as a single
// Handlebars template, so a {{date}} placeholder is replaced wherever it
// appears and every other character is left as serialized.
type Renderer struct {
	defaultLocale string
}

// NewRenderer creates a renderer. An empty defaultLocale falls back to DefaultLocale.
func NewRenderer(defaultLocale string) *Renderer {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	return &Renderer{defaultLocale: defaultLocale}
}

// Render returns the rendered content and the locale list for sendAt.
func (r *Renderer) Render(templates map[string]string, sendAt string) (Rendered, error) {
	source, err := encode(templates)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: encode content: %w", ErrTemplate, err)
	}

	tpl, err := raymond.Parse(source)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: parse: %w", ErrTemplate, err)
	}

	out, err := tpl.Exec(map[string]string{"date": sendAt})
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: exec: %w", ErrTemplate, err)
	}

	return Rendered{
		Content: out,
		Locales: r.locales(templates),
	}, nil
}

func (r *Renderer) locales(templates map[string]string) string {
	if len(templates) == 0 {
		return r.defaultLocale
	}
	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// encode serializes templates with sorted keys and without HTML escaping.
func encode(templates map[string]string) (string, error) {
	if templates == nil {
		templates = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(templates); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
