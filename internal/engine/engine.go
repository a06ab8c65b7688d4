// Package engine provides the closed set of fuzzing engines whose output
// fuzznorm understands.
//
// Engines are identified by short tokens of the form "name" or "name:mode".
// The same tokens appear in run directory names and in run metadata files,
// so Parse and String must round-trip exactly.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEngine is returned when a token does not name a known engine.
var ErrUnknownEngine = errors.New("unknown fuzzer")

// Family identifies a fuzzing tool.
type Family string

const (
	APIFuzzer     Family = "api_fuzzer"
	TnTFuzzer     Family = "tnt_fuzzer"
	Schemathesis  Family = "schemathesis"
	Restler       Family = "restler"
	Cats          Family = "cats"
	SwaggerFuzzer Family = "swagger_fuzzer"
	GotSwag       Family = "got_swag"
	FuzzLightyear Family = "fuzz_lightyear"
)

// Mode is an operating mode of an engine family.
// Only Schemathesis has modes; every other family uses NoMode.
type Mode string

const (
	NoMode      Mode = ""
	Default     Mode = "Default"
	AllChecks   Mode = "AllChecks"
	Negative    Mode = "Negative"
	StatefulOld Mode = "StatefulOld"
	StatefulNew Mode = "StatefulNew"
)

// modeSeparator separates the family from the mode in a token.
const modeSeparator = ":"

// Engine identifies one fuzzing engine configuration.
// Engine values are comparable and can be used as map keys.
type Engine struct {
	Family Family
	Mode   Mode
}

// families lists every family in display order.
var families = []Family{
	APIFuzzer,
	TnTFuzzer,
	Schemathesis,
	Restler,
	Cats,
	SwaggerFuzzer,
	GotSwag,
	FuzzLightyear,
}

// schemathesisModes lists the modes accepted by Schemathesis.
var schemathesisModes = []Mode{Default, AllChecks, Negative, StatefulOld, StatefulNew}

// All returns every known engine value in a stable order.
func All() []Engine {
	out := make([]Engine, 0, len(families)+len(schemathesisModes)-1)
	for _, f := range families {
		if f == Schemathesis {
			for _, m := range schemathesisModes {
				out = append(out, Engine{Family: f, Mode: m})
			}
			continue
		}
		out = append(out, Engine{Family: f})
	}
	return out
}

// Parse converts a token like "restler" or "schemathesis:Negative" into an Engine.
// Unknown tokens are rejected with ErrUnknownEngine; there is no fallback.
func Parse(token string) (Engine, error) {
	name, mode, hasMode := strings.Cut(token, modeSeparator)
	for _, e := range All() {
		if string(e.Family) != name {
			continue
		}
		if !hasMode && e.Mode == NoMode {
			return e, nil
		}
		if hasMode && e.Mode != NoMode && string(e.Mode) == mode {
			return e, nil
		}
	}
	return Engine{}, fmt.Errorf("%w: %q", ErrUnknownEngine, token)
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(token string) Engine {
	e, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the token form of the engine.
func (e Engine) String() string {
	if e.Mode == NoMode {
		return string(e.Family)
	}
	return string(e.Family) + modeSeparator + string(e.Mode)
}

// Set implements pflag.Value so that engines can be used as repeated CLI flags.
type Set []Engine

// String returns the comma separated tokens.
func (s *Set) String() string {
	tokens := make([]string, len(*s))
	for i, e := range *s {
		tokens[i] = e.String()
	}
	return strings.Join(tokens, ",")
}

// Set parses and appends one token.
func (s *Set) Set(token string) error {
	e, err := Parse(token)
	if err != nil {
		return err
	}
	*s = append(*s, e)
	return nil
}

// Type returns the flag type name shown in help output.
func (s *Set) Type() string {
	return "engine"
}
