package store

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/ensemble-forecast/internal/weather"
)

// seedFile is the YAML layout accepted by LoadSeed:
//
//	grids:
//	  - name: icon_eps
//	    elevation: 112
//	    series:
//	      - variable: temperature_2m_member01
//	        start: 2024-05-01T00:00:00Z
//	        step: 1h
//	        hours: 384
//	        values: [10.5, 11, 12.25]
//
// When hours is larger than the number of values, the values repeat.
type seedFile struct {
	Grids []struct {
		Name      string  `yaml:"name"`
		Elevation float64 `yaml:"elevation"`
		Series    []struct {
			Variable string        `yaml:"variable"`
			Start    time.Time     `yaml:"start"`
			Step     time.Duration `yaml:"step"`
			Hours    int           `yaml:"hours"`
			Values   []float32     `yaml:"values"`
		} `yaml:"series"`
	} `yaml:"grids"`
}

// LoadSeedFile reads a seed file from disk into s.
func LoadSeedFile(s *MemoryStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(s, f)
}

// LoadSeed decodes YAML seed data from r into s. Variables must use the
// canonical stored encoding.
func LoadSeed(s *MemoryStore, r io.Reader) error {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, g := range file.Grids {
		if g.Name == "" {
			return fmt.Errorf("seed grid without name")
		}
		s.AddGrid(g.Name, g.Elevation)

		for _, series := range g.Series {
			v, ok := weather.ParseEnsembleVariable(series.Variable)
			if !ok {
				return fmt.Errorf("grid %s: unknown variable %q", g.Name, series.Variable)
			}
			if len(series.Values) == 0 {
				return fmt.Errorf("grid %s: %s has no values", g.Name, series.Variable)
			}
			step := series.Step
			if step <= 0 {
				step = time.Hour
			}
			s.Put(g.Name, v, series.Start, step, repeatValues(series.Values, series.Hours))
		}
	}
	return nil
}

func repeatValues(values []float32, n int) []float32 {
	if n <= len(values) {
		return values
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = values[i%len(values)]
	}
	return out
}
