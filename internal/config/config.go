package config

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultManifestURL is the primary plugin catalog queried when a
// plugin entry names no catalog of its own.
const DefaultManifestURL = "https://www.iamparadox.dev/jellyfin/plugins/manifest.json"

// Config describes an installation run: where plugins go, which facts
// file to append to, and the set of plugins to install.
type Config struct {
	// PluginDir is where unpacked plugins land on the build filesystem.
	PluginDir string `toml:"plugin_dir"`
	// RuntimeRoot is the plugin directory path as the media server
	// sees it at runtime; discovered image paths are rewritten under it.
	RuntimeRoot string `toml:"runtime_root"`
	// EnvironmentFile is the append-only fact store for later build steps.
	EnvironmentFile string `toml:"environment_file"`
	// ManifestURL is the primary catalog.
	ManifestURL string `toml:"manifest_url"`
	Plugins     []PluginEntry `toml:"plugins"`
	// EnvOverrides maps a plugin display name to the environment
	// variable recording its version, when the default
	// NAME_VERSION convention does not apply.
	EnvOverrides map[string]string `toml:"env_overrides"`
}

// PluginEntry is one requested plugin. Entries with an APIURL are
// resolved against a hosting "latest release" endpoint; everything
// else is resolved against a catalog manifest (ManifestURL when set,
// the primary catalog otherwise).
type PluginEntry struct {
	Name        string `toml:"name"`
	GUID        string `toml:"guid"`
	ManifestURL string `toml:"manifest_url,omitempty"`
	APIURL      string `toml:"api_url,omitempty"`
}

// Catalog returns the catalog URL this entry resolves against, or ""
// for hosting-sourced entries.
func (p *PluginEntry) Catalog(primary string) string {
	if p.APIURL != "" {
		return ""
	}
	if p.ManifestURL != "" {
		return p.ManifestURL
	}
	return primary
}

// EnvVar returns the fact-store key for a plugin name, honoring
// overrides and defaulting to NAME_VERSION.
func (c *Config) EnvVar(name string) string {
	if v, ok := c.EnvOverrides[name]; ok {
		return v
	}
	return strings.ToUpper(name) + "_VERSION"
}

// Default returns the stock installation set shipped with the image.
func Default() *Config {
	return &Config{
		PluginDir:       "/jellyfin/plugins",
		RuntimeRoot:     "/jellyfin/plugins",
		EnvironmentFile: "/etc/environment",
		ManifestURL:     DefaultManifestURL,
		Plugins: []PluginEntry{
			{Name: "CustomTabs", GUID: "fbacd0b6-fd46-4a05-b0a4-2045d6a135b0"},
			{Name: "FileTransformation", GUID: "5e87cc92-571a-4d8d-8d98-d2d4147f9f90"},
			{Name: "Enhanced", APIURL: "https://api.github.com/repos/n00bcodr/jellyfin-enhanced/releases/latest"},
		},
		EnvOverrides: map[string]string{
			"FileTransformation": "FILETRANS_VERSION",
		},
	}
}

// Load reads and parses a TOML config file.
// Returns the default Config if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}
