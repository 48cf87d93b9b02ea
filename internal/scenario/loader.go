package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"clitest/pkg/logging"
)

//go:embed scenarios/*.yaml
var builtinFS embed.FS

const builtinRoot = "scenarios"

// BuiltinSource marks scenarios compiled into the binary.
const BuiltinSource = "builtin"

// LoadPath loads scenarios from a YAML file or, recursively, from every *.yaml and *.yml
// file below a directory. An empty path loads the built-in scenarios.
func LoadPath(path string) ([]Scenario, error) {
	if path == "" {
		return LoadBuiltin()
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scenario path does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to stat scenario path: %w", err)
	}

	if !info.IsDir() {
		s, err := loadFile(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			return nil, err
		}
		s.Source = path
		return []Scenario{s}, nil
	}

	scenarios, err := LoadFS(os.DirFS(path), ".")
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		scenarios[i].Source = filepath.Join(path, filepath.FromSlash(scenarios[i].Source))
	}
	return scenarios, nil
}

// LoadBuiltin returns the scenarios embedded in the binary.
func LoadBuiltin() ([]Scenario, error) {
	scenarios, err := LoadFS(builtinFS, builtinRoot)
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		scenarios[i].Source = BuiltinSource + ":" + scenarios[i].Source
	}
	return scenarios, nil
}

// LoadFS loads every YAML scenario below root in fsys, sorted by name. Source is set to the
// slash-separated path inside fsys.
func LoadFS(fsys fs.FS, root string) ([]Scenario, error) {
	var scenarios []Scenario

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(path) {
			return nil
		}

		logging.Debug("Scenario", "Loading scenario file: %s", path)
		s, err := loadFile(fsys, path)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	sort.SliceStable(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	logging.Debug("Scenario", "Loaded %d scenarios", len(scenarios))
	return scenarios, nil
}

func loadFile(fsys fs.FS, path string) (Scenario, error) {
	var s Scenario

	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return s, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return s, fmt.Errorf("scenario file %s is empty", path)
		}
		return s, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}

	s.Source = path
	return s, nil
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Filter keeps scenarios matching every non-empty criterion: the name is one of names, and
// at least one tag is in tags.
func Filter(scenarios []Scenario, names, tags []string) []Scenario {
	var filtered []Scenario
	for _, s := range scenarios {
		if len(names) > 0 && !contains(names, s.Name) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(s, tags) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// Load loads, validates and filters scenarios for a run.
func Load(cfg RunConfiguration) ([]Scenario, error) {
	scenarios, err := LoadPath(cfg.ScenarioPath)
	if err != nil {
		return nil, err
	}
	if problems := Validate(scenarios); len(problems) > 0 {
		return nil, problems
	}

	filtered := Filter(scenarios, cfg.Scenarios, cfg.Tags)
	for _, name := range cfg.Scenarios {
		if !containsScenario(scenarios, name) {
			return nil, fmt.Errorf("scenario %q not found; available: %s", name, strings.Join(Names(scenarios), ", "))
		}
	}
	return filtered, nil
}

// Names returns the scenario names in order.
func Names(scenarios []Scenario) []string {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	return names
}

// Tags returns the sorted set of tags used by scenarios.
func Tags(scenarios []Scenario) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, s := range scenarios {
		for _, t := range s.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

func hasAnyTag(s Scenario, tags []string) bool {
	for _, t := range tags {
		if s.HasTag(t) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsScenario(scenarios []Scenario, name string) bool {
	for _, s := range scenarios {
		if s.Name == name {
			return true
		}
	}
	return false
}
