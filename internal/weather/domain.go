package weather

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DomainName names a domain a request can ask for via the models parameter.
type DomainName string

const (
	BestMatch    DomainName = "best_match"
	IconSeamless DomainName = "icon_seamless"
	IconGlobal   DomainName = "icon_global"
	IconEU       DomainName = "icon_eu"
	IconD2       DomainName = "icon_d2"
	IFS04        DomainName = "ifs04"
	GFSSeamless  DomainName = "gfs_seamless"
	GFS05        DomainName = "gfs05"
	GFS025       DomainName = "gfs025"
)

// DomainNames lists every domain the service knows, in display order.
var DomainNames = []DomainName{
	BestMatch, IconSeamless, IconGlobal, IconEU, IconD2, IFS04, GFSSeamless, GFS05, GFS025,
}

// Bounds is a lat/lon rectangle in degrees, inclusive.
type Bounds struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.LatMin && p.Lat <= b.LatMax && p.Lon >= b.LonMin && p.Lon <= b.LonMax
}

// GridSpec describes one model grid.
type GridSpec struct {
	Name         string  `yaml:"name"`
	ResolutionKm float64 `yaml:"resolution_km"`
	CellDegrees  float64 `yaml:"cell_degrees"`
	Bounds       Bounds  `yaml:"bounds"`
}

// Domain is a named set of grids, coarse to fine, sharing one ensemble
// member count.
type Domain struct {
	Name    DomainName
	Grids   []GridSpec
	Members int
}

// Registry is the immutable domain table.
type Registry struct {
	grids   map[string]GridSpec
	domains map[DomainName]Domain
}

//go:embed domains.yaml
var domainsYAML []byte

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := LoadRegistry(domainsYAML)
	if err != nil {
		panic(fmt.Sprintf("weather: embedded domain table: %v", err))
	}
	return r
})

// DefaultRegistry returns the registry built from the embedded domain table.
// It is parsed once per process.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

type registryFile struct {
	Grids   []GridSpec `yaml:"grids"`
	Domains []struct {
		Name    DomainName `yaml:"name"`
		Members int        `yaml:"members"`
		Grids   []string   `yaml:"grids"`
	} `yaml:"domains"`
}

// LoadRegistry parses and checks a domain table. Every DomainName constant
// must be defined, grid lists must be ordered coarse to fine.
func LoadRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse domain table: %w", err)
	}

	r := &Registry{
		grids:   make(map[string]GridSpec, len(f.Grids)),
		domains: make(map[DomainName]Domain, len(f.Domains)),
	}
	for _, g := range f.Grids {
		if g.Name == "" || g.CellDegrees <= 0 || g.ResolutionKm <= 0 {
			return nil, fmt.Errorf("grid %q: name, resolution_km and cell_degrees are required", g.Name)
		}
		r.grids[g.Name] = g
	}

	for _, d := range f.Domains {
		if d.Members <= 0 {
			return nil, fmt.Errorf("domain %s: members must be positive", d.Name)
		}
		if len(d.Grids) == 0 {
			return nil, fmt.Errorf("domain %s: no grids", d.Name)
		}
		dom := Domain{Name: d.Name, Members: d.Members}
		for i, name := range d.Grids {
			g, ok := r.grids[name]
			if !ok {
				return nil, fmt.Errorf("domain %s: unknown grid %s", d.Name, name)
			}
			if i > 0 && g.ResolutionKm > dom.Grids[i-1].ResolutionKm {
				return nil, fmt.Errorf("domain %s: grid %s is coarser than %s", d.Name, name, dom.Grids[i-1].Name)
			}
			dom.Grids = append(dom.Grids, g)
		}
		r.domains[d.Name] = dom
	}

	for _, name := range DomainNames {
		if _, ok := r.domains[name]; !ok {
			return nil, fmt.Errorf("domain %s is not defined", name)
		}
	}
	return r, nil
}

// Lookup returns the named domain.
func (r *Registry) Lookup(name string) (Domain, error) {
	d, ok := r.domains[DomainName(name)]
	if !ok {
		return Domain{}, invalid("models", name, allowedDomains())
	}
	return d, nil
}

// Grid returns a grid spec by name.
func (r *Registry) Grid(name string) (GridSpec, bool) {
	g, ok := r.grids[name]
	return g, ok
}

// ParseDomains resolves the models parameter. An empty list selects
// best_match; duplicates are ignored.
func (r *Registry) ParseDomains(names []string) ([]Domain, error) {
	if len(names) == 0 {
		names = []string{string(BestMatch)}
	}
	var out []Domain
	seen := make(map[DomainName]bool, len(names))
	for _, name := range names {
		d, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, nil
}

func allowedDomains() string {
	names := make([]string, len(DomainNames))
	for i, n := range DomainNames {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}
