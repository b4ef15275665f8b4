package installer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soultaco83/jellyfin-packaging/internal/catalog"
	"github.com/soultaco83/jellyfin-packaging/internal/config"
	"github.com/soultaco83/jellyfin-packaging/internal/envfile"
	"github.com/soultaco83/jellyfin-packaging/internal/fetcher"
)

const (
	tabsGUID  = "fbacd0b6-fd46-4a05-b0a4-2045d6a135b0"
	transGUID = "5e87cc92-571a-4d8d-8d98-d2d4147f9f90"
)

func pluginZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"plugin.dll": "binary",
		"icon.png":   "png bytes",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// testServer serves a catalog manifest at /manifest.json and plugin
// archives at /archives/<name>.
func testServer(t *testing.T, records []catalog.Record, archives map[string][]byte) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/manifest.json":
			// Rewrite archive URLs to point at this server.
			rewritten := make([]catalog.Record, len(records))
			copy(rewritten, records)
			for i := range rewritten {
				for j := range rewritten[i].Versions {
					v := &rewritten[i].Versions[j]
					if !strings.HasPrefix(v.SourceURL, "http") {
						v.SourceURL = server.URL + "/archives/" + v.SourceURL
					}
				}
			}
			json.NewEncoder(w).Encode(rewritten)
		case strings.HasPrefix(r.URL.Path, "/archives/"):
			name := strings.TrimPrefix(r.URL.Path, "/archives/")
			data, ok := archives[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	return server
}

func testConfig(t *testing.T, manifestURL string, plugins []config.PluginEntry) *config.Config {
	t.Helper()
	tmp := t.TempDir()
	return &config.Config{
		PluginDir:       filepath.Join(tmp, "plugins"),
		RuntimeRoot:     "/jellyfin/plugins",
		EnvironmentFile: filepath.Join(tmp, "environment"),
		ManifestURL:     manifestURL,
		Plugins:         plugins,
		EnvOverrides:    map[string]string{"FileTransformation": "FILETRANS_VERSION"},
	}
}

func newTestInstaller(t *testing.T, cfg *config.Config) *Installer {
	t.Helper()
	return NewWith(cfg, catalog.NewClient(), fetcher.New(), envfile.New(cfg.EnvironmentFile), t.TempDir())
}

func TestRunInstallsFromCatalog(t *testing.T) {
	records := []catalog.Record{
		{
			GUID:  tabsGUID,
			Name:  "CustomTabs",
			Owner: "someone",
			Versions: []catalog.Release{
				{Version: "1.2.0", TargetABI: "10.9.0.0", SourceURL: "tabs.zip"},
				{Version: "1.3.0", TargetABI: "10.11.0.0", SourceURL: "tabs.zip"},
			},
		},
	}
	server := testServer(t, records, map[string][]byte{"tabs.zip": pluginZip(t)})
	defer server.Close()

	cfg := testConfig(t, server.URL+"/manifest.json", []config.PluginEntry{
		{Name: "CustomTabs", GUID: tabsGUID},
	})

	summary := newTestInstaller(t, cfg).Run()

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.PrimaryUnreachable)

	destDir := filepath.Join(cfg.PluginDir, "CustomTabs_1.3.0")
	require.DirExists(t, destDir)
	require.FileExists(t, filepath.Join(destDir, "plugin.dll"))

	metaData, err := os.ReadFile(filepath.Join(destDir, "meta.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaData, &meta))
	assert.Equal(t, "CustomTabs", meta["name"])
	assert.Equal(t, "1.3.0", meta["version"])
	assert.Equal(t, "10.11.0.0", meta["targetAbi"])
	assert.Equal(t, "Active", meta["status"])
	assert.Equal(t, "/jellyfin/plugins/CustomTabs_1.3.0/icon.png", meta["imagePath"])

	envData, err := os.ReadFile(cfg.EnvironmentFile)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOMTABS_VERSION=1.3.0\n", string(envData))
}

func TestRunIsolatesFailures(t *testing.T) {
	records := []catalog.Record{
		{
			GUID: tabsGUID,
			Name: "CustomTabs",
			Versions: []catalog.Release{
				{Version: "1.3.0", TargetABI: "10.11.0.0", SourceURL: "tabs.zip"},
			},
		},
	}
	server := testServer(t, records, map[string][]byte{"tabs.zip": pluginZip(t)})
	defer server.Close()

	cfg := testConfig(t, server.URL+"/manifest.json", []config.PluginEntry{
		{Name: "FileTransformation", GUID: transGUID}, // absent from catalog
		{Name: "CustomTabs", GUID: tabsGUID},
	})

	summary := newTestInstaller(t, cfg).Run()

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, NotFound, summary.Results[0].Outcome)
	assert.Equal(t, Success, summary.Results[1].Outcome)

	// The failed plugin must not leave a fact behind.
	envData, err := os.ReadFile(cfg.EnvironmentFile)
	require.NoError(t, err)
	assert.NotContains(t, string(envData), "FILETRANS_VERSION")
}

func TestRunDownloadFailure(t *testing.T) {
	records := []catalog.Record{
		{
			GUID: tabsGUID,
			Name: "CustomTabs",
			Versions: []catalog.Release{
				{Version: "1.3.0", TargetABI: "10.11.0.0", SourceURL: "missing.zip"},
			},
		},
	}
	server := testServer(t, records, map[string][]byte{})
	defer server.Close()

	cfg := testConfig(t, server.URL+"/manifest.json", []config.PluginEntry{
		{Name: "CustomTabs", GUID: tabsGUID},
	})

	summary := newTestInstaller(t, cfg).Run()

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, DownloadFailed, summary.Results[0].Outcome)
}

func TestRunCorruptArchive(t *testing.T) {
	records := []catalog.Record{
		{
			GUID: tabsGUID,
			Name: "CustomTabs",
			Versions: []catalog.Release{
				{Version: "1.3.0", TargetABI: "10.11.0.0", SourceURL: "tabs.zip"},
			},
		},
	}
	server := testServer(t, records, map[string][]byte{"tabs.zip": []byte("not a zip")})
	defer server.Close()

	cfg := testConfig(t, server.URL+"/manifest.json", []config.PluginEntry{
		{Name: "CustomTabs", GUID: tabsGUID},
	})

	summary := newTestInstaller(t, cfg).Run()

	assert.Equal(t, ExtractFailed, summary.Results[0].Outcome)
	assert.NoDirExists(t, filepath.Join(cfg.PluginDir, "CustomTabs_1.3.0"))
}

func TestRunPrimaryUnreachableAlternateSucceeds(t *testing.T) {
	records := []catalog.Record{
		{
			GUID: tabsGUID,
			Name: "CustomTabs",
			Versions: []catalog.Release{
				{Version: "1.3.0", TargetABI: "10.11.0.0", SourceURL: "tabs.zip"},
			},
		},
	}
	alternate := testServer(t, records, map[string][]byte{"tabs.zip": pluginZip(t)})
	defer alternate.Close()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	cfg := testConfig(t, primary.URL+"/manifest.json", []config.PluginEntry{
		{Name: "FileTransformation", GUID: transGUID},
		{Name: "CustomTabs", GUID: tabsGUID, ManifestURL: alternate.URL + "/manifest.json"},
	})

	summary := newTestInstaller(t, cfg).Run()

	assert.True(t, summary.PrimaryUnreachable)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, NotFound, summary.Results[0].Outcome)
	assert.Equal(t, Success, summary.Results[1].Outcome)
}

func TestRunHostingSource(t *testing.T) {
	archive := pluginZip(t)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/releases/latest":
			fmt.Fprintf(w, `{
				"tag_name": "v5.1.0",
				"body": "Bug fixes",
				"assets": [
					{"name": "checksums.txt", "browser_download_url": "%s/checksums.txt"},
					{"name": "Jellyfin.Plugin.Enhanced_10.11.0.zip", "browser_download_url": "%s/enhanced.zip"}
				]
			}`, server.URL, server.URL)
		case "/enhanced.zip":
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig(t, "", []config.PluginEntry{
		{Name: "Enhanced", APIURL: server.URL + "/releases/latest"},
	})

	summary := newTestInstaller(t, cfg).Run()

	require.Equal(t, 1, summary.Succeeded)
	// The release tag is the version, verbatim: it names the install
	// directory and the recorded fact.
	assert.Equal(t, "v5.1.0", summary.Results[0].Version)

	destDir := filepath.Join(cfg.PluginDir, "Enhanced_v5.1.0")
	require.DirExists(t, destDir)

	metaData, err := os.ReadFile(filepath.Join(destDir, "meta.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaData, &meta))
	assert.Equal(t, "Enhanced", meta["name"])
	assert.Equal(t, "10.11.0.0", meta["targetAbi"])

	envData, err := os.ReadFile(cfg.EnvironmentFile)
	require.NoError(t, err)
	assert.Equal(t, "ENHANCED_VERSION=v5.1.0\n", string(envData))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "not found", NotFound.String())
	assert.Equal(t, "download failed", DownloadFailed.String())
	assert.Equal(t, "extraction failed", ExtractFailed.String())
}
