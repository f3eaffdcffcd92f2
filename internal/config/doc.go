// Package config provides configuration loading and validation for the
// council TUI client. It handles YAML-based configuration with defaults for
// omitted sections.
package config
