// Package config provides the configuration of domaindive: defaults, the
// optional .domaindive YAML file and validation.
package config
