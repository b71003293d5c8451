package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// contractFile mirrors the on-disk YAML layout:
//
//	contract:
//	  name: api-standards
//	  extends: [abstract-base]
//	checks:
//	  - id: no-print
//	    type: pattern
type contractFile struct {
	Contract *Contract `yaml:"contract"`
	Checks   []*Check  `yaml:"checks"`
}

// LoadFile parses a single contract YAML file.
func LoadFile(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contract file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes contract YAML. The source name is used in error messages only.
func Parse(data []byte, source string) (*Contract, error) {
	var f contractFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	if f.Contract == nil {
		return nil, fmt.Errorf("parsing %s: missing top-level contract block", source)
	}
	if f.Contract.Name == "" {
		return nil, fmt.Errorf("parsing %s: contract has no name", source)
	}
	for i, chk := range f.Checks {
		if chk.ID == "" {
			return nil, fmt.Errorf("parsing %s: check %d has no id", source, i)
		}
		if chk.Severity == "" {
			chk.Severity = SeverityError
		}
	}
	f.Contract.Checks = f.Checks
	return f.Contract, nil
}

// loadDir loads every contract file in dir, sorted by filename for a
// deterministic load order. Malformed files are skipped with a warning.
func loadDir(dir string, warn func(format string, args ...any)) []*Contract {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Missing tier directories are normal.
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var contracts []*Contract
	for _, name := range names {
		path := filepath.Join(dir, name)
		c, err := LoadFile(path)
		if err != nil {
			warn("skipping malformed contract %s: %v", path, err)
			continue
		}
		contracts = append(contracts, c)
	}
	return contracts
}
