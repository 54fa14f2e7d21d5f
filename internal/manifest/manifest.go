package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Module identifies an external dependency by name, GitHub repository and
// the branch whose head should be pinned.
type Module struct {
	Name   string `json:"name" yaml:"name"`
	GitHub string `json:"github" yaml:"github"`
	Branch string `json:"branch" yaml:"branch"`
}

// Owner returns the owner part of GitHub ("owner/repo").
func (m Module) Owner() string {
	owner, _, _ := strings.Cut(m.GitHub, "/")
	return owner
}

// Repo returns the repository part of GitHub ("owner/repo").
func (m Module) Repo() string {
	_, repo, _ := strings.Cut(m.GitHub, "/")
	return repo
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the manifest format from the file extension.
// Anything that is not .yaml/.yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

var (
	// Names become CMake variable prefixes (<name>_GITHUB, <name>_TAG).
	namePattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)
	repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// entry is the per-module value of the mapping form, keyed by module name.
type entry struct {
	GitHub string `json:"github" yaml:"github"`
	Branch string `json:"branch" yaml:"branch"`
}

// Load reads and validates the manifest at path.
func Load(path string) ([]Module, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("manifest path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	modules, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return modules, nil
}

// Parse decodes either the sequence form ([{name, github, branch}]) or the
// mapping form ({name: {github, branch}}) into one ordered list. In the mapping
// form, modules keep the order their keys appear in the document.
func Parse(data []byte, format Format) ([]Module, error) {
	var (
		modules []Module
		err     error
	)
	switch format {
	case FormatYAML:
		modules, err = parseYAML(data)
	case FormatJSON, "":
		modules, err = parseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(modules); err != nil {
		return nil, err
	}
	return modules, nil
}

func parseJSON(data []byte) ([]Module, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("manifest is empty")
	}

	switch trimmed[0] {
	case '[':
		var modules []Module
		if err := json.Unmarshal(trimmed, &modules); err != nil {
			return nil, fmt.Errorf("decode module list: %w", err)
		}
		if modules == nil {
			modules = []Module{}
		}
		return modules, nil
	case '{':
		return parseJSONMapping(trimmed)
	default:
		return nil, errors.New("manifest must be a JSON array or object")
	}
}

func parseJSONMapping(data []byte) ([]Module, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode module mapping: %w", err)
	}

	modules := []Module{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode module mapping: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode module mapping: unexpected key %v", tok)
		}
		var e entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode module %q: %w", name, err)
		}
		modules = append(modules, Module{Name: name, GitHub: e.GitHub, Branch: e.Branch})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode module mapping: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode module mapping: trailing data after object")
	}
	return modules, nil
}

func parseYAML(data []byte) ([]Module, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("manifest is empty")
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		modules := []Module{}
		if err := root.Decode(&modules); err != nil {
			return nil, fmt.Errorf("decode module list: %w", err)
		}
		return modules, nil
	case yaml.MappingNode:
		modules := make([]Module, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			var e entry
			if err := value.Decode(&e); err != nil {
				return nil, fmt.Errorf("decode module %q: %w", key.Value, err)
			}
			modules = append(modules, Module{Name: key.Value, GitHub: e.GitHub, Branch: e.Branch})
		}
		return modules, nil
	default:
		return nil, errors.New("manifest must be a YAML sequence or mapping")
	}
}

// Validate checks that every module is complete and that names are unique.
func Validate(modules []Module) error {
	seen := make(map[string]int, len(modules))
	for i, m := range modules {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("module #%d: name is required", i+1)
		}
		if !namePattern.MatchString(m.Name) {
			return fmt.Errorf("module #%d: name %q may only contain letters, digits and _.+-", i+1, m.Name)
		}
		if prev, ok := seen[m.Name]; ok {
			return fmt.Errorf("module %q: duplicate name (also module #%d)", m.Name, prev+1)
		}
		seen[m.Name] = i
		if err := validateRepository(m.GitHub); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
		if strings.TrimSpace(m.Branch) == "" {
			return fmt.Errorf("module %q: branch is required", m.Name)
		}
	}
	return nil
}

func validateRepository(raw string) error {
	if raw == "" {
		return errors.New("github is required")
	}
	if !repoPattern.MatchString(raw) {
		return fmt.Errorf("github %q: expected OWNER/REPO", raw)
	}
	return nil
}
