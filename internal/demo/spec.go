package demo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// Spec describes one demo component.
type Spec struct {
	Type string
	Name string
	Arg  string
}

// String formats the spec back into type[:name][@arg] form.
func (s Spec) String() string {
	out := s.Type
	if s.Name != "" {
		out += ":" + s.Name
	}
	if s.Arg != "" {
		out += "@" + s.Arg
	}
	return out
}

// ParseSpec parses a component spec of the form type[:name][@arg].
func ParseSpec(s string) (Spec, error) {
	var spec Spec
	s = strings.TrimSpace(s)
	if s == "" {
		return spec, fmt.Errorf("empty component spec: %w", domain.ErrInvalidConfig)
	}

	head, arg, hasArg := strings.Cut(s, "@")
	if hasArg && arg == "" {
		return spec, fmt.Errorf("component spec %q: empty argument: %w", s, domain.ErrInvalidConfig)
	}
	typ, name, hasName := strings.Cut(head, ":")
	if hasName && name == "" {
		return spec, fmt.Errorf("component spec %q: empty name: %w", s, domain.ErrInvalidConfig)
	}
	if typ == "" {
		return spec, fmt.Errorf("component spec %q: missing type: %w", s, domain.ErrInvalidConfig)
	}

	spec.Type = strings.ToLower(typ)
	spec.Name = name
	spec.Arg = arg
	return spec, nil
}

type factory func(name, arg string, logger ports.Logger) (rtc.Component, error)

var factories = map[string]factory{
	"counter": newCounter,
	"sine":    newSine,
	"faulty":  newFaulty,
}

// Types returns the known component types in sorted order.
func Types() []string {
	out := make([]string, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// New builds the component described by spec. Unnamed components are
// named after their type and index.
func New(spec Spec, index int, logger ports.Logger) (rtc.Component, error) {
	f, ok := factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnknownComponent, spec.Type, strings.Join(Types(), ", "))
	}
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("%s%d", spec.Type, index)
	}
	c, err := f(name, spec.Arg, ports.Named(logger, name))
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", spec, err)
	}
	return c, nil
}

// Build parses and builds every spec in order.
func Build(specs []string, logger ports.Logger) ([]rtc.Component, error) {
	comps := make([]rtc.Component, 0, len(specs))
	for i, s := range specs {
		spec, err := ParseSpec(s)
		if err != nil {
			return nil, err
		}
		c, err := New(spec, i, logger)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, nil
}
