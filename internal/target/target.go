// Package target provides the closed set of API targets that fuzzing runs
// are executed against.
package target

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTarget is returned when a token does not name a known target.
var ErrUnknownTarget = errors.New("unknown target")

// Kind distinguishes the deployment variant of a target.
type Kind string

const (
	// Default is the target as shipped.
	Default Kind = "Default"

	// Linked is the target with links added to its schema.
	Linked Kind = "Linked"
)

// names lists every known target name in display order.
var names = []string{
	"age_of_empires_2_api",
	"cccatalog_api",
	"covid19_japan_web_api",
	"disease_sh",
	"gitlab",
	"httpbin",
	"jupyter_server",
	"jupyterhub",
	"mailhog",
	"open_fec",
	"opentopodata",
	"otto_parser",
	"pslab_webapp",
	"pulpcore",
	"request_baskets",
	"restler_demo",
	"worklog",
}

// Target identifies a target API and its variant, e.g. "httpbin:Default".
type Target struct {
	Name string
	Kind Kind
}

// Names returns the known target names.
func Names() []string {
	return slices.Clone(names)
}

// IsKnownName reports whether name is a known target name.
func IsKnownName(name string) bool {
	return slices.Contains(names, name)
}

// Parse converts a "name:Kind" token into a Target.
func Parse(token string) (Target, error) {
	name, kind, ok := strings.Cut(token, ":")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, token)
	}
	if !IsKnownName(name) {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, token)
	}
	switch Kind(kind) {
	case Default, Linked:
		return Target{Name: name, Kind: Kind(kind)}, nil
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, token)
	}
}

// String returns the token form of the target.
func (t Target) String() string {
	return t.Name + ":" + string(t.Kind)
}
