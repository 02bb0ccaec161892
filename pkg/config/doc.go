// Package config loads client configuration from YAML files.
//
// Load starts from Default and overlays the file contents, so a config file
// only needs to name the values it changes.
package config
