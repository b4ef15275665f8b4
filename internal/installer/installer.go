// Package installer drives plugin installation runs: it resolves each
// requested plugin against its source, downloads and unpacks the
// artifact, writes the normalized descriptor and records the installed
// version in the shared environment file. Failures are isolated per
// plugin; the run always completes and reports a tally.
package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soultaco83/jellyfin-packaging/internal/catalog"
	"github.com/soultaco83/jellyfin-packaging/internal/config"
	"github.com/soultaco83/jellyfin-packaging/internal/descriptor"
	"github.com/soultaco83/jellyfin-packaging/internal/envfile"
	"github.com/soultaco83/jellyfin-packaging/internal/fetcher"
	"github.com/soultaco83/jellyfin-packaging/internal/log"
	"github.com/soultaco83/jellyfin-packaging/internal/source"
)

// Outcome is the per-plugin result of one installation attempt.
type Outcome int

const (
	Success Outcome = iota
	NotFound
	DownloadFailed
	ExtractFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	case DownloadFailed:
		return "download failed"
	case ExtractFailed:
		return "extraction failed"
	default:
		return "unknown"
	}
}

// Result pairs a requested plugin with its outcome.
type Result struct {
	Name    string
	Version string
	Outcome Outcome
}

// Summary is the run-level tally. The run never aborts early: every
// requested plugin gets a Result.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []Result
	// PrimaryUnreachable is set when the primary catalog itself could
	// not be fetched. The CLI decides whether that hardens the exit.
	PrimaryUnreachable bool
}

// CatalogFetcher fetches remote catalogs and hosting releases.
// *catalog.Client is the production implementation.
type CatalogFetcher interface {
	FetchCatalog(url string) ([]catalog.Record, error)
	LatestRelease(apiURL string) (*catalog.HostingRelease, error)
}

// ArtifactFetcher downloads and unpacks artifacts.
// *fetcher.Fetcher is the production implementation.
type ArtifactFetcher interface {
	Download(url, scratchPath string) error
	Unpack(archivePath, destDir string) error
}

type Installer struct {
	cfg        *config.Config
	client     CatalogFetcher
	artifacts  ArtifactFetcher
	facts      *envfile.Store
	scratchDir string
}

func New(cfg *config.Config) *Installer {
	return &Installer{
		cfg:        cfg,
		client:     catalog.NewClient(),
		artifacts:  fetcher.New(),
		facts:      envfile.New(cfg.EnvironmentFile),
		scratchDir: os.TempDir(),
	}
}

// NewWith injects collaborators; used by tests and by callers that
// already hold a client.
func NewWith(cfg *config.Config, client CatalogFetcher, artifacts ArtifactFetcher, facts *envfile.Store, scratchDir string) *Installer {
	return &Installer{
		cfg:        cfg,
		client:     client,
		artifacts:  artifacts,
		facts:      facts,
		scratchDir: scratchDir,
	}
}

// Run installs every configured plugin in order. One plugin's failure
// never prevents the remaining plugins from being attempted.
func (ins *Installer) Run() *Summary {
	summary := &Summary{}

	if err := os.MkdirAll(ins.cfg.PluginDir, 0755); err != nil {
		log.Error("Could not create plugin directory", "dir", ins.cfg.PluginDir, "error", err)
	}

	catalogs := ins.fetchCatalogs(summary)

	for _, entry := range ins.cfg.Plugins {
		src, err := ins.sourceFor(entry, catalogs)

		var result Result
		if err != nil {
			log.Warn("No usable source for plugin", "plugin", entry.Name, "error", err)
			result = Result{Name: entry.Name, Outcome: classify(err)}
		} else {
			result = ins.installOne(entry, src)
		}

		summary.Results = append(summary.Results, result)
		if result.Outcome == Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	return summary
}

// fetchCatalogs fetches each distinct catalog URL once. An unreachable
// catalog disables only the plugins sourced from it.
func (ins *Installer) fetchCatalogs(summary *Summary) map[string][]catalog.Record {
	catalogs := make(map[string][]catalog.Record)
	failed := make(map[string]bool)

	for _, entry := range ins.cfg.Plugins {
		url := entry.Catalog(ins.cfg.ManifestURL)
		if url == "" || failed[url] {
			continue
		}
		if _, ok := catalogs[url]; ok {
			continue
		}

		records, err := ins.client.FetchCatalog(url)
		if err != nil {
			log.Warn("Catalog unreachable, its plugins will be skipped", "url", url, "error", err)
			failed[url] = true
			if url == ins.cfg.ManifestURL {
				summary.PrimaryUnreachable = true
			}
			continue
		}
		catalogs[url] = records
	}

	return catalogs
}

func (ins *Installer) sourceFor(entry config.PluginEntry, catalogs map[string][]catalog.Record) (source.Source, error) {
	if entry.APIURL != "" {
		release, err := ins.client.LatestRelease(entry.APIURL)
		if err != nil {
			return nil, err
		}
		return source.NewHostingSource(release), nil
	}

	url := entry.Catalog(ins.cfg.ManifestURL)
	records, ok := catalogs[url]
	if !ok {
		return nil, fmt.Errorf("%w: catalog %s unavailable", catalog.ErrUnreachable, url)
	}
	return source.NewCatalogSource(records), nil
}

// installOne runs one attempt end to end: resolve, download, unpack,
// synthesize, persist, record. The first failing step short-circuits
// the rest and yields that step's outcome.
func (ins *Installer) installOne(entry config.PluginEntry, src source.Source) Result {
	log.Info("Installing plugin", "plugin", entry.Name)

	identity := entry.GUID
	if identity == "" {
		identity = entry.Name
	}

	resolved, err := src.Resolve(identity)
	if err != nil {
		log.Warn("Could not resolve plugin release", "plugin", entry.Name, "error", err)
		return Result{Name: entry.Name, Outcome: classify(err)}
	}
	log.Info("Selected release", "plugin", entry.Name, "version", resolved.Version, "targetAbi", resolved.TargetABI)

	scratch := filepath.Join(ins.scratchDir, entry.Name+".zip")
	if err := ins.artifacts.Download(resolved.SourceURL, scratch); err != nil {
		log.Warn("Download failed", "plugin", entry.Name, "url", resolved.SourceURL, "error", err)
		return Result{Name: entry.Name, Outcome: classify(err)}
	}

	destDir := filepath.Join(ins.cfg.PluginDir, fmt.Sprintf("%s_%s", entry.Name, resolved.Version))
	if err := ins.artifacts.Unpack(scratch, destDir); err != nil {
		log.Warn("Extraction failed", "plugin", entry.Name, "error", err)
		return Result{Name: entry.Name, Outcome: classify(err)}
	}

	desc := descriptor.Synthesize(destDir, resolved, entry.GUID, entry.Name, ins.cfg.RuntimeRoot)
	if err := descriptor.Persist(destDir, desc); err != nil {
		// Non-fatal: the artifact is installed, only the metadata write
		// failed.
		log.Warn("Could not persist descriptor", "plugin", entry.Name, "error", err)
	}

	envVar := ins.cfg.EnvVar(entry.Name)
	if err := ins.facts.Append(envVar, resolved.Version); err != nil {
		log.Warn("Could not record version fact", "plugin", entry.Name, "error", err)
	} else {
		log.Info("Recorded version fact", "var", envVar, "version", resolved.Version)
	}

	log.Info("Installed plugin", "plugin", entry.Name, "dir", destDir)
	return Result{Name: entry.Name, Version: resolved.Version, Outcome: Success}
}

// classify maps pipeline errors onto the outcome taxonomy. Anything
// that prevented locating a release counts as NotFound.
func classify(err error) Outcome {
	switch {
	case errors.Is(err, fetcher.ErrDownloadFailed):
		return DownloadFailed
	case errors.Is(err, fetcher.ErrExtractFailed):
		return ExtractFailed
	case errors.Is(err, source.ErrNotFound), errors.Is(err, catalog.ErrUnreachable):
		return NotFound
	default:
		return NotFound
	}
}
