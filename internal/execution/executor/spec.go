// Package executor runs one unit of untrusted code to completion in an
// isolated subprocess under hard resource and time bounds.
package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/shlex"
)

// Command placeholders resolved at execution time.
//
//	{file}  — the materialized source file name
//	{bin}   — absolute path of the compiled binary inside the work dir
//	{class} — Java-style public class name extracted from the source
const (
	placeholderFile  = "{file}"
	placeholderBin   = "{bin}"
	placeholderClass = "{class}"
)

// Spec describes how one language is compiled and run. Adding a language is
// a registration, not a new branch.
type Spec struct {
	// ID is the language tag, e.g. "python".
	ID string `yaml:"id"`
	// FileName is the name the source is materialized under. May contain
	// {class} for languages that derive the file name from the source.
	FileName string `yaml:"fileName"`
	// Compile is the compiler argv. Empty for interpreted languages.
	Compile []string `yaml:"compile"`
	// Run is the argv that executes the program.
	Run []string `yaml:"run"`
	// Toolchain is the binary whose absence means the language cannot run
	// on this host, e.g. "g++".
	Toolchain string `yaml:"toolchain"`
}

func (s Spec) validate() error {
	if s.ID == "" {
		return fmt.Errorf("language id is required")
	}
	if s.FileName == "" {
		return fmt.Errorf("language %s: file name is required", s.ID)
	}
	if len(s.Run) == 0 {
		return fmt.Errorf("language %s: run command is required", s.ID)
	}
	if s.Toolchain == "" {
		return fmt.Errorf("language %s: toolchain is required", s.ID)
	}
	return nil
}

// ParseCommand splits a shell-style command string into argv.
func ParseCommand(command string) ([]string, error) {
	if command == "" {
		return nil, nil
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", command, err)
	}
	return argv, nil
}

// Registry maps a language tag to its Spec.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds or replaces a language spec.
func (r *Registry) Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
	return nil
}

// Get returns the spec for a language tag.
func (r *Registry) Get(id string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[id]
	return spec, ok
}

// Languages returns the registered language tags, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry covering the supported language set
// with the host's native toolchains.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	for _, spec := range []Spec{
		{ID: "python", FileName: "code.py", Run: []string{"python3", "{file}"}, Toolchain: "python3"},
		{ID: "javascript", FileName: "code.js", Run: []string{"node", "{file}"}, Toolchain: "node"},
		{ID: "java", FileName: "{class}.java", Compile: []string{"javac", "{class}.java"}, Run: []string{"java", "{class}"}, Toolchain: "javac"},
		{ID: "cpp", FileName: "code.cpp", Compile: []string{"g++", "{file}", "-o", "{bin}"}, Run: []string{"{bin}"}, Toolchain: "g++"},
		{ID: "c", FileName: "code.c", Compile: []string{"gcc", "{file}", "-o", "{bin}"}, Run: []string{"{bin}"}, Toolchain: "gcc"},
		{ID: "go", FileName: "code.go", Run: []string{"go", "run", "{file}"}, Toolchain: "go"},
		{ID: "rust", FileName: "code.rs", Compile: []string{"rustc", "{file}", "-o", "{bin}"}, Run: []string{"{bin}"}, Toolchain: "rustc"},
		{ID: "php", FileName: "code.php", Run: []string{"php", "{file}"}, Toolchain: "php"},
		{ID: "ruby", FileName: "code.rb", Run: []string{"ruby", "{file}"}, Toolchain: "ruby"},
		{ID: "bash", FileName: "code.sh", Run: []string{"bash", "{file}"}, Toolchain: "bash"},
	} {
		if err := registry.Register(spec); err != nil {
			panic(err)
		}
	}
	return registry
}
