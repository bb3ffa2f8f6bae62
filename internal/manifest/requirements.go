package manifest

import (
	"fmt"
	"os"
	"strings"
)

// Requirement is one declared package requirement
type Requirement struct {
	Name       string
	Constraint string // version constraint as written, e.g. "==2.0.1" or ">=1.4,<2"
	Marker     string // environment marker, preserved verbatim
}

// File is a parsed dependency manifest
type File struct {
	Path         string
	Requirements []Requirement
}

// versionOperators recognized at the start of a version constraint
var versionOperators = []string{"==", ">=", "<=", "~=", "!=", ">", "<"}

// Parse parses pip requirements content: one logical entry per line, with
// optional version constraint, comments and blank lines.
func Parse(data []byte) (*File, error) {
	f := &File{}

	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Nested manifests and constraint files are not supported: the
		// install stage consumes exactly one manifest.
		if strings.HasPrefix(line, "-") {
			return nil, fmt.Errorf("line %d: pip options and includes are not supported: %q", i+1, line)
		}

		// Strip trailing comment
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		req, err := parseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		f.Requirements = append(f.Requirements, req)
	}

	return f, nil
}

// ParseFile reads and parses a manifest from disk
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	f.Path = path
	return f, nil
}

// parseRequirement splits a single requirement line into name, constraint
// and environment marker
func parseRequirement(line string) (Requirement, error) {
	var req Requirement

	// Environment marker, e.g. `pywin32; sys_platform == "win32"`
	if idx := strings.Index(line, ";"); idx >= 0 {
		req.Marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	// Split at the leftmost operator so compound constraints like
	// "<2,>=1.4" keep the whole constraint together.
	split := -1
	for _, op := range versionOperators {
		if idx := strings.Index(line, op); idx >= 0 && (split < 0 || idx < split) {
			split = idx
		}
	}
	if split >= 0 {
		req.Name = strings.TrimSpace(line[:split])
		req.Constraint = strings.TrimSpace(line[split:])
	} else {
		req.Name = line
	}

	if req.Name == "" {
		return req, fmt.Errorf("empty requirement")
	}
	if strings.ContainsAny(req.Name, " \t") {
		return req, fmt.Errorf("malformed requirement: %q", line)
	}

	return req, nil
}

// Names returns the declared package names in manifest order
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Requirements))
	for _, req := range f.Requirements {
		names = append(names, req.Name)
	}
	return names
}

// String renders a requirement back in manifest form
func (r Requirement) String() string {
	s := r.Name + r.Constraint
	if r.Marker != "" {
		s += "; " + r.Marker
	}
	return s
}
