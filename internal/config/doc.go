// Package config loads and validates the vocalis daemon configuration.
//
// Configuration is stored as TOML. Load applies defaults first, then the
// config file, then environment overrides for secrets, then normalization
// (path expansion). Callers should treat the returned Config as immutable.
package config
