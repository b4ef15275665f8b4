// Package descriptor builds and persists the normalized meta.json file
// the media server expects next to every installed plugin.
package descriptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/soultaco83/jellyfin-packaging/internal/source"
)

// FileName is the fixed descriptor name the server looks for inside a
// plugin directory.
const FileName = "meta.json"

// ErrWriteFailed wraps a failure to persist the descriptor. It is
// logged by callers but never changes the installation outcome.
var ErrWriteFailed = errors.New("descriptor write failed")

// imageExtensions is the fixed priority order for image discovery.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".gif"}

// Descriptor is the uniform installation record, whatever shape the
// source metadata had. Field order matches the server's own schema.
type Descriptor struct {
	Category    string   `json:"category"`
	Changelog   string   `json:"changelog"`
	Description string   `json:"description"`
	GUID        string   `json:"guid"`
	ImagePath   string   `json:"imagePath"`
	Name        string   `json:"name"`
	Overview    string   `json:"overview"`
	Owner       string   `json:"owner"`
	TargetABI   string   `json:"targetAbi"`
	Timestamp   string   `json:"timestamp"`
	Version     string   `json:"version"`
	Status      string   `json:"status"`
	AutoUpdate  bool     `json:"autoUpdate"`
	Assemblies  []string `json:"assemblies"`
}

// Synthesize builds a descriptor from whatever metadata the selected
// source produced. It never fails: missing fields default to empty
// strings, a missing compatibility marker defaults to the fixed
// baseline, a missing name falls back to the requested identity.
// runtimeRoot is the plugin directory path as seen by the consuming
// server, used to rewrite the discovered image path.
func Synthesize(destDir string, resolved *source.Resolved, guid, fallbackName, runtimeRoot string) *Descriptor {
	name := resolved.Name
	if name == "" {
		name = fallbackName
	}
	targetABI := resolved.TargetABI
	if targetABI == "" {
		targetABI = source.DefaultTargetABI
	}

	return &Descriptor{
		Category:    resolved.Category,
		Changelog:   resolved.Changelog,
		Description: resolved.Description,
		GUID:        guid,
		ImagePath:   discoverImage(destDir, runtimeRoot),
		Name:        name,
		Overview:    resolved.Overview,
		Owner:       resolved.Owner,
		TargetABI:   targetABI,
		Timestamp:   resolved.Timestamp,
		Version:     resolved.Version,
		Status:      "Active",
		AutoUpdate:  true,
		Assemblies:  []string{},
	}
}

// discoverImage scans a single directory level for a representative
// image, trying each known extension in priority order and keeping
// directory listing order within an extension. Best effort: no match
// yields an empty path.
func discoverImage(destDir, runtimeRoot string) string {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return ""
	}

	for _, ext := range imageExtensions {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				return path.Join(runtimeRoot, filepath.Base(destDir), entry.Name())
			}
		}
	}
	return ""
}

// Persist writes the descriptor as pretty-printed JSON at the fixed
// file name inside destDir.
func Persist(destDir string, d *Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling descriptor for %s: %v", ErrWriteFailed, d.Name, err)
	}

	target := filepath.Join(destDir, FileName)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrWriteFailed, target, err)
	}

	return nil
}
