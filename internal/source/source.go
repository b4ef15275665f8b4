// Package source abstracts over the places a plugin release can come
// from. A catalog manifest and a hosting-API "latest release" have
// different shapes and different selection rules; both implement the
// same Resolve contract and produce the uniform Resolved value the
// rest of the pipeline consumes.
package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soultaco83/jellyfin-packaging/internal/abiver"
	"github.com/soultaco83/jellyfin-packaging/internal/catalog"
)

// DefaultTargetABI is substituted when a source supplies no
// compatibility marker of its own.
const DefaultTargetABI = "10.11.0.0"

// ErrNotFound means the identity is absent from the source, the record
// has no releases, or no asset matched.
var ErrNotFound = errors.New("plugin release not found")

// Resolved is the uniform release shape, whatever source produced it.
type Resolved struct {
	Name        string
	Version     string
	TargetABI   string
	SourceURL   string
	Changelog   string
	Timestamp   string
	Description string
	Overview    string
	Owner       string
	Category    string
}

// Source resolves a plugin identity to a concrete release.
type Source interface {
	Resolve(identity string) (*Resolved, error)
}

// CatalogSource selects releases out of a fetched catalog manifest.
type CatalogSource struct {
	records []catalog.Record
}

func NewCatalogSource(records []catalog.Record) *CatalogSource {
	return &CatalogSource{records: records}
}

// Resolve scans the catalog for the given GUID and returns the release
// whose targetAbi is highest, compared as an integer tuple. Ties keep
// the first listed entry.
func (s *CatalogSource) Resolve(identity string) (*Resolved, error) {
	var record *catalog.Record
	for i := range s.records {
		if s.records[i].GUID == identity {
			record = &s.records[i]
			break
		}
	}
	if record == nil {
		return nil, fmt.Errorf("%w: guid %s not in catalog", ErrNotFound, identity)
	}
	if len(record.Versions) == 0 {
		return nil, fmt.Errorf("%w: no versions for %s", ErrNotFound, record.Name)
	}

	best := &record.Versions[0]
	for i := 1; i < len(record.Versions); i++ {
		if abiver.Less(best.TargetABI, record.Versions[i].TargetABI) {
			best = &record.Versions[i]
		}
	}

	return &Resolved{
		Name:        record.Name,
		Version:     best.Version,
		TargetABI:   best.TargetABI,
		SourceURL:   best.SourceURL,
		Changelog:   best.Changelog,
		Timestamp:   best.Timestamp,
		Description: record.Description,
		Overview:    record.Overview,
		Owner:       record.Owner,
		Category:    record.Category,
	}, nil
}

// HostingSource adapts a hosting-API latest release. The tag name
// stands in for the version and the compatibility marker is the fixed
// default, since the API supplies none.
type HostingSource struct {
	release     *catalog.HostingRelease
	assetSuffix string
}

func NewHostingSource(release *catalog.HostingRelease) *HostingSource {
	return &HostingSource{release: release, assetSuffix: ".zip"}
}

// Resolve picks the first asset whose name ends with the required
// suffix, in listing order. The identity is only used as the display
// name since hosting releases describe a single plugin.
func (s *HostingSource) Resolve(identity string) (*Resolved, error) {
	var asset *catalog.ReleaseAsset
	for i := range s.release.Assets {
		if strings.HasSuffix(s.release.Assets[i].Name, s.assetSuffix) {
			asset = &s.release.Assets[i]
			break
		}
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: release %s has no %s asset", ErrNotFound, s.release.TagName, s.assetSuffix)
	}

	timestamp := ""
	if !s.release.PublishedAt.IsZero() {
		timestamp = s.release.PublishedAt.Format("2006-01-02T15:04:05Z")
	}

	return &Resolved{
		Name:      identity,
		Version:   s.release.TagName,
		TargetABI: DefaultTargetABI,
		SourceURL: asset.DownloadURL,
		Changelog: s.release.Body,
		Timestamp: timestamp,
	}, nil
}
