package gauge

import (
	"fmt"
	"sort"
)

// Spec describes a gauge to create.
type Spec struct {
	Name    string  `json:"name" yaml:"name"`
	Unit    string  `json:"unit" yaml:"unit"`
	Total   float64 `json:"total" yaml:"total"`
	Initial float64 `json:"initial" yaml:"initial"`
}

// Water is the gauge fed by completed refills.
const Water = "water"

// DefaultSpecs returns the gauges shown on the dashboard.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: Water, Unit: "L", Total: 400, Initial: 200},
		{Name: "laundry", Unit: "kg", Total: 10, Initial: 10},
		{Name: "car", Unit: "", Total: 250, Initial: 150},
		{Name: "fitness", Unit: "", Total: 50, Initial: 20},
	}
}

// Set is a named collection of gauges.
type Set struct {
	gauges map[string]*Gauge
}

// NewSet builds a gauge for every spec.
func NewSet(specs []Spec, opts Options) (*Set, error) {
	s := &Set{gauges: make(map[string]*Gauge, len(specs))}
	for _, spec := range specs {
		if _, dup := s.gauges[spec.Name]; dup {
			return nil, fmt.Errorf("gauge %q defined twice", spec.Name)
		}
		g, err := New(spec.Name, spec.Unit, spec.Total, spec.Initial, opts)
		if err != nil {
			return nil, err
		}
		s.gauges[spec.Name] = g
	}
	return s, nil
}

// Get returns the gauge called name.
func (s *Set) Get(name string) (*Gauge, bool) {
	g, ok := s.gauges[name]
	return g, ok
}

// All returns every gauge sorted by name.
func (s *Set) All() []*Gauge {
	out := make([]*Gauge, 0, len(s.gauges))
	for _, g := range s.gauges {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
