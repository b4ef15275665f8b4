// Package buildcfg parses build.yaml, the static declarative document
// driving image builds: per-build-type dockerfiles, image names,
// architecture variable maps and framework version pins.
package buildcfg

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the parsed build.yaml. Top-level keys other than
// "frameworks" are build types.
type Config struct {
	// Frameworks maps submodule name -> build arg -> commit hash ->
	// framework version. Used to pick framework build args from
	// submodule commit ancestry.
	Frameworks map[string]map[string]map[string]string `yaml:"frameworks"`
	BuildTypes map[string]BuildType                    `yaml:",inline"`
}

// BuildType describes one way of building the distribution.
type BuildType struct {
	BuildFunction string                       `yaml:"build_function"`
	Dockerfile    string                       `yaml:"dockerfile"`
	ImageName     string                       `yaml:"imagename"`
	ArchMaps      map[string]map[string]string `yaml:"archmaps"`
}

// Load reads and parses a build.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Type returns the named build type.
func (c *Config) Type(name string) (*BuildType, error) {
	bt, ok := c.BuildTypes[name]
	if !ok {
		return nil, fmt.Errorf("%s is not a valid build type in %s", name, strings.Join(c.TypeNames(), ", "))
	}
	return &bt, nil
}

// TypeNames lists the configured build types, sorted.
func (c *Config) TypeNames() []string {
	names := make([]string, 0, len(c.BuildTypes))
	for name := range c.BuildTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arch returns the build-variable map for an architecture of a build
// type. Unknown architectures report the valid choices.
func (bt *BuildType) Arch(arch string) (map[string]string, error) {
	vars, ok := bt.ArchMaps[arch]
	if !ok {
		return nil, fmt.Errorf("%s is not a valid architecture in %s", arch, strings.Join(bt.ArchNames(), ", "))
	}
	return vars, nil
}

// ArchNames lists the configured architectures, sorted.
func (bt *BuildType) ArchNames() []string {
	names := make([]string, 0, len(bt.ArchMaps))
	for name := range bt.ArchMaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
