// Package config provides the configuration of a normalization batch:
// defaults, the .fuzznorm YAML file with per-fuzzer overrides, and
// validation of the combined settings.
package config
