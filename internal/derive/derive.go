// Package derive computes named physical quantities from flight datasets.
//
// Every requested name resolves to exactly one of four cases: a channel
// already in the dataset, an alias of a raw MASIN channel, a registered
// derivation whose arguments are resolved the same way, or nothing.
package derive

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/eurec4a/twinotter/internal/flight"
)

// MaxDepth bounds the resolution of nested derivations.
const MaxDepth = 50

// ErrNotComputable means a variable cannot be produced from a dataset.
var ErrNotComputable = errors.New("variable not computable")

// NotComputableError names the variable and why it failed. It matches
// ErrNotComputable.
type NotComputableError struct {
	Name   string
	Reason string
}

func (e *NotComputableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrNotComputable, e.Name)
	}
	return fmt.Sprintf("%s: %s: %s", ErrNotComputable, e.Name, e.Reason)
}

func (e *NotComputableError) Is(target error) bool { return target == ErrNotComputable }

// Kind tags how a name resolves.
type Kind int

const (
	Unresolvable Kind = iota
	Direct
	Aliased
	Derived
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Aliased:
		return "aliased"
	case Derived:
		return "derived"
	}
	return "unresolvable"
}

// Func computes one output sample from its argument samples, in the order
// the derivation declares them.
type Func func(args ...float64) float64

// Derivation is a registered computable variable.
type Derivation struct {
	Args  []string
	Units string
	Func  Func
}

// Resolution is the outcome of looking a name up against a dataset.
type Resolution struct {
	Kind       Kind
	Name       string
	Channel    string      // Direct and Aliased
	Derivation *Derivation // Derived
}

// Registry holds aliases and derivations.
type Registry struct {
	aliases map[string]string
	derived map[string]Derivation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{aliases: map[string]string{}, derived: map[string]Derivation{}}
}

// Alias maps a canonical name onto a raw channel.
func (r *Registry) Alias(name, channel string) *Registry {
	r.aliases[name] = channel
	return r
}

// Register adds a derivation of name from args.
func (r *Registry) Register(name, units string, f Func, args ...string) *Registry {
	r.derived[name] = Derivation{Args: args, Units: units, Func: f}
	return r
}

// Names lists every alias and derivation name, sorted.
func (r *Registry) Names() []string {
	names := slices.Collect(maps.Keys(r.aliases))
	names = append(names, slices.Collect(maps.Keys(r.derived))...)
	slices.Sort(names)
	return slices.Compact(names)
}

// Resolve classifies name against ds without computing anything.
func (r *Registry) Resolve(name string, ds *flight.Dataset) Resolution {
	if ds.Has(name) {
		return Resolution{Kind: Direct, Name: name, Channel: name}
	}
	if ch, ok := r.aliases[name]; ok {
		return Resolution{Kind: Aliased, Name: name, Channel: ch}
	}
	if d, ok := r.derived[name]; ok {
		return Resolution{Kind: Derived, Name: name, Derivation: &d}
	}
	return Resolution{Kind: Unresolvable, Name: name}
}

// Calculate returns the named variable, computing it when needed. Channels
// already present come back unchanged; anything else is a new variable.
func (r *Registry) Calculate(name string, ds *flight.Dataset) (*flight.Variable, error) {
	return r.calculate(name, ds, 0)
}

func (r *Registry) calculate(name string, ds *flight.Dataset, depth int) (*flight.Variable, error) {
	if depth > MaxDepth {
		return nil, &NotComputableError{Name: name, Reason: fmt.Sprintf("nested deeper than %d", MaxDepth)}
	}

	res := r.Resolve(name, ds)
	switch res.Kind {
	case Direct:
		v, _ := ds.Var(name)
		return v, nil

	case Aliased:
		v, ok := ds.Var(res.Channel)
		if !ok {
			return nil, &NotComputableError{Name: name, Reason: "raw channel " + res.Channel + " missing"}
		}
		return v.Renamed(name, ""), nil

	case Derived:
		d := res.Derivation
		args := make([]*flight.Variable, len(d.Args))
		for i, a := range d.Args {
			v, err := r.calculate(a, ds, depth+1)
			if err != nil {
				var nc *NotComputableError
				if errors.As(err, &nc) && nc.Name != name {
					return nil, &NotComputableError{Name: name, Reason: "needs " + nc.Error()}
				}
				return nil, err
			}
			args[i] = v
		}
		return apply(name, d, args, ds.Len())
	}

	return nil, &NotComputableError{Name: name}
}

func apply(name string, d *Derivation, args []*flight.Variable, n int) (*flight.Variable, error) {
	for _, a := range args {
		if len(a.Values) != n {
			return nil, &NotComputableError{Name: name, Reason: a.Name + " length mismatch"}
		}
	}
	cols := make([][]float64, len(args))
	for i, a := range args {
		cols[i] = standardize(a)
	}

	out := make([]float64, n)
	in := make([]float64, len(cols))
	for row := range out {
		for i, c := range cols {
			in[i] = c[row]
		}
		out[row] = d.Func(in...)
	}

	return &flight.Variable{
		Name:   name,
		Values: out,
		Attrs: map[string]any{
			"units":         d.Units,
			"standard_name": name,
			"derived_from":  strings.Join(d.Args, " "),
		},
	}, nil
}

// standardize converts pressure to hPa and temperature to kelvin so the
// formulas can assume fixed units.
func standardize(v *flight.Variable) []float64 {
	scale, offset := 1.0, 0.0
	switch v.Units() {
	case "Pa":
		scale = 0.01
	case "kPa":
		scale = 10
	case "degC", "Celsius", "celsius":
		offset = Freezing
	case "g kg-1", "g/kg":
		scale = 0.001
	}
	if scale == 1 && offset == 0 {
		return v.Values
	}
	out := make([]float64, len(v.Values))
	for i, x := range v.Values {
		out[i] = x*scale + offset
	}
	return out
}
