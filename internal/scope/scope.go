// Package scope provides the hierarchical permission scope grammar and
// the wildcard-aware evaluator used across the authorization core.
package scope

import (
	"fmt"
	"strings"
)

const (
	// WildcardToken matches any value at its position
	WildcardToken = "*"

	// Structural labels for the two group levels in the wire format
	resourceGroupLabel = "resource_group"
	probeGroupLabel    = "probe_group"
)

// Wildcard is the component matching any value at its position.
const Wildcard = Component(WildcardToken)

// Component is a single scope position: a literal identifier or the
// wildcard token. Values are opaque; they are never split further.
type Component string

// IsWildcard reports whether the component is the wildcard token.
func (c Component) IsWildcard() bool {
	return c == Wildcard
}

// Matches reports whether this held component satisfies the required one.
func (c Component) Matches(required Component) bool {
	return c == Wildcard || c == required
}

// Level identifies the hierarchy level a scope applies to, derived
// from which components are wildcards.
type Level string

const (
	LevelPlatform      Level = "platform"
	LevelResourceGroup Level = "resource_group"
	LevelProbeGroup    Level = "probe_group"
	LevelResource      Level = "resource"
)

// Scope is a parsed permission scope over the four-level resource
// hierarchy: resource group, probe group, resource type, action.
type Scope struct {
	ResourceGroup Component
	ProbeGroup    Component
	Resource      Component
	Action        Component
}

// ErrInvalidScopeFormat is returned for malformed scope strings. This is
// a programmer/internal error; callers must never coerce it silently.
var ErrInvalidScopeFormat = fmt.Errorf("invalid scope format")

// Parse parses a colon-delimited scope string into a Scope.
//
// The canonical form is:
//
//	resource_group:{rg}:probe_group:{pg}:{resource}:{action}
//
// The two structural labels may be omitted; abbreviated forms such as
// "acme:*:probes:read" parse to the same tuple. Any string yielding
// fewer than 4 usable component values, an empty component, or trailing
// garbage fails with ErrInvalidScopeFormat.
func Parse(s string) (Scope, error) {
	if s == "" {
		return Scope{}, fmt.Errorf("%w: empty scope", ErrInvalidScopeFormat)
	}

	parts := strings.Split(s, ":")
	i := 0

	// takeValue consumes an optional structural label and the component
	// value that follows it.
	takeValue := func(label string) (Component, error) {
		if label != "" && i < len(parts) && parts[i] == label {
			i++
		}
		if i >= len(parts) {
			return "", fmt.Errorf("%w: %q has fewer than 4 components", ErrInvalidScopeFormat, s)
		}
		v := parts[i]
		i++
		if v == "" {
			return "", fmt.Errorf("%w: %q contains an empty component", ErrInvalidScopeFormat, s)
		}
		return Component(v), nil
	}

	rg, err := takeValue(resourceGroupLabel)
	if err != nil {
		return Scope{}, err
	}
	pg, err := takeValue(probeGroupLabel)
	if err != nil {
		return Scope{}, err
	}
	resource, err := takeValue("")
	if err != nil {
		return Scope{}, err
	}
	action, err := takeValue("")
	if err != nil {
		return Scope{}, err
	}

	if i != len(parts) {
		return Scope{}, fmt.Errorf("%w: %q has trailing components", ErrInvalidScopeFormat, s)
	}

	return Scope{
		ResourceGroup: rg,
		ProbeGroup:    pg,
		Resource:      resource,
		Action:        action,
	}, nil
}

// MustParse parses a scope string and panics on failure. Reserved for
// static scope literals (role templates, the catalog, tests).
func MustParse(s string) Scope {
	sc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sc
}

// ParseSet parses a list of scope strings. The first malformed entry
// aborts the parse.
func ParseSet(raw []string) ([]Scope, error) {
	scopes := make([]Scope, 0, len(raw))
	for _, s := range raw {
		sc, err := Parse(s)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, nil
}

// Build assembles the canonical scope string for a component tuple.
// It is the inverse of Parse: Parse(Build(x)) round-trips for any
// valid tuple.
func Build(resourceGroup, probeGroup, resource, action Component) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		resourceGroupLabel, resourceGroup,
		probeGroupLabel, probeGroup,
		resource, action,
	)
}

// String returns the canonical labeled wire form.
func (s Scope) String() string {
	return Build(s.ResourceGroup, s.ProbeGroup, s.Resource, s.Action)
}

// HasWildcard reports whether any of the 4 components is the wildcard.
func (s Scope) HasWildcard() bool {
	return s.ResourceGroup.IsWildcard() ||
		s.ProbeGroup.IsWildcard() ||
		s.Resource.IsWildcard() ||
		s.Action.IsWildcard()
}

// Level derives the hierarchy level from the parsed components. It is a
// pure function of the tuple: platform if the resource group is a
// wildcard, resource group level if only the probe group is, probe group
// level if the resource is, resource level otherwise.
func (s Scope) Level() Level {
	switch {
	case s.ResourceGroup.IsWildcard():
		return LevelPlatform
	case s.ProbeGroup.IsWildcard():
		return LevelResourceGroup
	case s.Resource.IsWildcard():
		return LevelProbeGroup
	default:
		return LevelResource
	}
}

// Strings renders a scope list back to canonical wire form.
func Strings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = s.String()
	}
	return out
}
