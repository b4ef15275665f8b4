package catalog

import "time"

// Record is a single plugin entry in a catalog manifest.
type Record struct {
	GUID        string    `json:"guid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Overview    string    `json:"overview"`
	Owner       string    `json:"owner"`
	Category    string    `json:"category"`
	Versions    []Release `json:"versions"`
}

// Release is one downloadable build of a plugin. TargetABI is the
// minimum server version the build requires and is the selection sort
// key, compared numerically component by component.
type Release struct {
	Version   string `json:"version"`
	TargetABI string `json:"targetAbi"`
	SourceURL string `json:"sourceUrl"`
	Changelog string `json:"changelog,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HostingRelease is the "latest release" shape returned by a
// source-control hosting API. It carries no targetAbi; callers
// substitute a default when normalizing.
type HostingRelease struct {
	TagName     string         `json:"tag_name"`
	Assets      []ReleaseAsset `json:"assets"`
	Body        string         `json:"body,omitempty"`
	PublishedAt time.Time      `json:"published_at,omitempty"`
}

// ReleaseAsset is a named downloadable attached to a hosting release.
type ReleaseAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}
