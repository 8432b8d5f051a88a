package register

import (
	"slices"
	"sort"
)

// Registry holds the register definitions active for this deployment.
//
// A definition is active when at least one of its groups is enabled.
// The registry is read-only after construction and safe for concurrent use.
type Registry struct {
	defs    []*Definition
	enabled map[string]struct{}
}

// NewRegistry builds a registry from every known definition and the set of
// enabled capability groups. Definitions outside the enabled groups are
// dropped. The input order is preserved.
func NewRegistry(defs []Definition, enabledGroups []string) *Registry {
	r := &Registry{
		enabled: make(map[string]struct{}, len(enabledGroups)),
	}
	for _, g := range enabledGroups {
		r.enabled[g] = struct{}{}
	}

	for i := range defs {
		if !r.eligible(&defs[i]) {
			continue
		}
		d := defs[i].clone()
		r.defs = append(r.defs, &d)
	}

	return r
}

// clone returns a copy of d that shares no memory with it.
func (d *Definition) clone() Definition {
	c := *d
	c.Groups = slices.Clone(d.Groups)
	c.Min = cloneFloat(d.Min)
	c.Max = cloneFloat(d.Max)
	return c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r *Registry) eligible(d *Definition) bool {
	for _, g := range d.Groups {
		if _, ok := r.enabled[g]; ok {
			return true
		}
	}
	return false
}

// Find returns every active definition commanded on topicSuffix that
// belongs to requiredGroup.
//
// Zero, one or several matches are all valid results; Find never errors.
//
// Parameters:
//   - topicSuffix: The MQTT identifier (e.g. "grid_charge")
//   - requiredGroup: The capability group the caller needs
//
// Returns:
//   - []*Definition: Matches in registry order (may be empty)
func (r *Registry) Find(topicSuffix, requiredGroup string) []*Definition {
	var matches []*Definition
	for _, d := range r.defs {
		if d.TopicSuffix == topicSuffix && d.HasGroup(requiredGroup) {
			matches = append(matches, d)
		}
	}
	return matches
}

// All returns the active definitions in registry order.
func (r *Registry) All() []*Definition {
	return slices.Clone(r.defs)
}

// Len returns the number of active definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// EnabledGroups returns the enabled capability groups, sorted.
func (r *Registry) EnabledGroups() []string {
	groups := make([]string, 0, len(r.enabled))
	for g := range r.enabled {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
