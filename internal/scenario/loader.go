package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
)

// fileScenario is the on-disk TOML shape of a scenario:
//
//	name = "CheapPower"
//	description = "Long-term PPA kicks in"
//
//	[overrides.production]
//	energyCost = 41.5
type fileScenario struct {
	Name        string                        `toml:"name"`
	Description string                        `toml:"description"`
	Overrides   map[string]map[string]float64 `toml:"overrides"`
}

// LoadFile reads one scenario definition from a TOML file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var fs fileScenario
	if err := toml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if fs.Name == "" {
		return nil, fmt.Errorf("parsing %s: scenario has no name", path)
	}
	ov := make(Overrides, len(fs.Overrides))
	for blk, attrs := range fs.Overrides {
		vals := make(map[string]float64, len(attrs))
		for name, v := range attrs {
			vals[name] = v
		}
		ov[model.BlockName(blk)] = vals
	}
	return &Scenario{Name: fs.Name, Description: fs.Description, Overrides: ov}, nil
}

// LoadDir loads every *.toml file in dir as a scenario, in filename order.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("scanning scenario dir: %w", err)
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
