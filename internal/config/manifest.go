package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManualPluginSpec is one entry of the manual-plugin manifest: a
// built-in plugin registered by name (§3: "manual plugins bypass the
// assembly loader"), with its own static configuration.
type ManualPluginSpec struct {
	Name   string            `yaml:"name"`
	Groups []string          `yaml:"groups"`
	Config map[string]string `yaml:"config"`
}

// DynamicPluginSpec is one `.so` unit the plugin runtime loads via
// plugin.Open, along with the service groups it publishes endpoints
// into and its own static configuration.
type DynamicPluginSpec struct {
	Name   string            `yaml:"name"`
	Path   string            `yaml:"path"`
	Groups []string          `yaml:"groups"`
	Config map[string]string `yaml:"config"`
}

// PluginManifest is the optional `plugins.yaml` enumerating every
// manual and dynamic plugin unit the runtime should load at startup,
// mirroring the retrieved API-provider YAML configuration's shape
// (a flat list of named, individually-configured entries).
type PluginManifest struct {
	Manual  []ManualPluginSpec   `yaml:"manual"`
	Dynamic []DynamicPluginSpec  `yaml:"dynamic"`
}

// LoadPluginManifest parses a plugins.yaml file. A missing file is not
// an error — it simply means no plugins are configured.
func LoadPluginManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &PluginManifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read plugin manifest %s: %w", path, err)
	}
	var m PluginManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse plugin manifest %s: %w", path, err)
	}
	return &m, nil
}
