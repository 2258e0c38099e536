// Package config fills env-tagged structs from the process environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
)

// fileSuffix marks a variable whose value is the path of a file holding the
// real value, as mounted by Docker and Kubernetes secrets.
const fileSuffix = "_FILE"

// Load parses the environment into cfg, which must be a pointer to a struct
// with env tags. NAME_FILE supplies NAME from a file when NAME itself is unset.
func Load(cfg any) error {
	return LoadFrom(cfg, os.Environ())
}

// LoadFrom is Load over an explicit KEY=VALUE list.
func LoadFrom(cfg any, environ []string) error {
	vars, err := resolve(environ)
	if err != nil {
		return err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolve(environ []string) (map[string]string, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	for k, path := range vars {
		name, ok := strings.CutSuffix(k, fileSuffix)
		if !ok || name == "" || path == "" {
			continue
		}
		if _, set := vars[name]; set {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		vars[name] = strings.TrimRight(string(data), "\r\n")
	}
	return vars, nil
}
