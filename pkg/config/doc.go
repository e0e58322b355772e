// Package config loads daemon configuration. Defaults are overlaid by
// an optional YAML file, then by CORAL_* environment variables, so a
// deployment can ship a base file and still tune single values per
// environment.
package config
