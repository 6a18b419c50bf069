// Package persona loads and validates the persona manifest that anchors
// every assembled context. The manifest is a small YAML document describing
// who the bot is: its name, its system prompt, and the fixed apology line
// used when generation fails.
//
// The loaded document is held behind an atomic pointer so an administrative
// reload swaps it in a single reference replace. In-flight turns keep
// whatever snapshot they read; nothing is mutated in place.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// SpecVersion is the apiVersion string required in every persona manifest.
const SpecVersion = "persona/v1"

// defaultApology is used when the manifest does not override it. It is the
// user-visible fallback sent whenever the generation backend fails.
const defaultApology = "Oh noo… mein Kopf hängt grad kurz 🥺✨ Schreib's mir gleich nochmal?"

// Manifest is the YAML shape of a persona file.
type Manifest struct {
	// APIVersion must be "persona/v1".
	APIVersion string `yaml:"apiVersion"`

	// Metadata holds descriptive metadata.
	Metadata Metadata `yaml:"metadata"`

	// System is the inline system prompt. Exactly one of System and
	// SystemFile must be set.
	System string `yaml:"system,omitempty"`

	// SystemFile is a path to the system prompt text, relative to the
	// manifest file.
	SystemFile string `yaml:"systemFile,omitempty"`

	// Apology overrides the fixed generation-failure reply.
	Apology string `yaml:"apology,omitempty"`
}

// Metadata holds descriptive information about a persona manifest.
type Metadata struct {
	// Name is the persona's display name. It is also the token users can
	// address the bot with ("lina, …").
	Name string `yaml:"name"`

	// Description is a human-readable summary (informational).
	Description string `yaml:"description,omitempty"`
}

// Document is the resolved, immutable persona used by the context
// assembler. System text from a SystemFile reference is already inlined.
type Document struct {
	Name    string
	System  string
	Apology string
}

// Parse decodes a persona YAML document and validates it. It is the
// canonical entry point for loading manifests; SystemFile references are
// resolved by the Loader, not here.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("persona parse: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks a Manifest for structural correctness. It returns the
// first validation error encountered, or nil if the manifest is valid.
func Validate(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("manifest must not be nil")
	}
	if m.APIVersion != SpecVersion {
		return fmt.Errorf("apiVersion must be %q, got %q", SpecVersion, m.APIVersion)
	}
	if strings.TrimSpace(m.Metadata.Name) == "" {
		return fmt.Errorf("metadata.name must not be empty")
	}
	hasInline := strings.TrimSpace(m.System) != ""
	hasFile := strings.TrimSpace(m.SystemFile) != ""
	if hasInline == hasFile {
		return fmt.Errorf("exactly one of system and systemFile must be set")
	}
	return nil
}

// Loader reads a persona manifest from disk and exposes the current
// resolved Document. Safe for concurrent use: readers call Current, the
// admin command calls Reload.
type Loader struct {
	path    string
	current atomic.Pointer[Document]
}

// Load reads, validates, and resolves the manifest at path.
func Load(path string) (*Loader, error) {
	l := &Loader{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Current returns the active persona document. The returned value is
// immutable; a concurrent Reload does not affect it.
func (l *Loader) Current() *Document {
	return l.current.Load()
}

// Reload re-reads the manifest from disk, validates it, and atomically
// swaps the active document. On any error the previous document stays
// active.
func (l *Loader) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("persona: read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return err
	}

	system := m.System
	if m.SystemFile != "" {
		raw, err := os.ReadFile(filepath.Join(filepath.Dir(l.path), m.SystemFile))
		if err != nil {
			return fmt.Errorf("persona: read system file: %w", err)
		}
		system = string(raw)
	}

	apology := m.Apology
	if strings.TrimSpace(apology) == "" {
		apology = defaultApology
	}

	l.current.Store(&Document{
		Name:    m.Metadata.Name,
		System:  strings.TrimSpace(system),
		Apology: apology,
	})
	return nil
}
