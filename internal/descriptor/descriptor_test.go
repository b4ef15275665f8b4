package descriptor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/soultaco83/jellyfin-packaging/internal/source"
)

func TestSynthesizeDefaults(t *testing.T) {
	dir := t.TempDir()
	d := Synthesize(dir, &source.Resolved{Version: "1.0.0"}, "abc-guid", "CustomTabs", "/jellyfin/plugins")

	if d.Name != "CustomTabs" {
		t.Errorf("expected fallback name, got %q", d.Name)
	}
	if d.TargetABI != source.DefaultTargetABI {
		t.Errorf("expected default targetAbi, got %q", d.TargetABI)
	}
	if d.Status != "Active" {
		t.Errorf("expected status Active, got %q", d.Status)
	}
	if !d.AutoUpdate {
		t.Error("expected autoUpdate true")
	}
	if d.Assemblies == nil || len(d.Assemblies) != 0 {
		t.Errorf("expected empty assembly list, got %v", d.Assemblies)
	}
	if d.ImagePath != "" {
		t.Errorf("expected empty image path, got %q", d.ImagePath)
	}
	if d.Category != "" || d.Owner != "" || d.Overview != "" {
		t.Error("expected missing descriptive fields to default to empty strings")
	}
}

func TestImageDiscoveryPriority(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "CustomTabs_1.3.0")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// banner.jpg sorts before icon.png in listing order, but png has
	// higher extension priority.
	for _, name := range []string{"banner.jpg", "icon.png", "plugin.dll"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	d := Synthesize(dir, &source.Resolved{Name: "CustomTabs", Version: "1.3.0"}, "abc", "CustomTabs", "/jellyfin/plugins")
	want := "/jellyfin/plugins/CustomTabs_1.3.0/icon.png"
	if d.ImagePath != want {
		t.Errorf("expected image path %q, got %q", want, d.ImagePath)
	}
}

func TestImageDiscoveryIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images", "deep.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	d := Synthesize(dir, &source.Resolved{}, "abc", "Plugin", "/jellyfin/plugins")
	if d.ImagePath != "" {
		t.Errorf("expected single-level scan only, got %q", d.ImagePath)
	}
}

func TestPersistIdempotent(t *testing.T) {
	dir := t.TempDir()
	resolved := &source.Resolved{
		Name:      "CustomTabs",
		Version:   "1.3.0",
		TargetABI: "10.11.0.0",
		Changelog: "Fixes",
		Owner:     "someone",
		Category:  "General",
		Timestamp: "2026-05-01T12:00:00Z",
	}

	d1 := Synthesize(dir, resolved, "abc", "CustomTabs", "/jellyfin/plugins")
	if err := Persist(dir, d1); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}

	d2 := Synthesize(dir, resolved, "abc", "CustomTabs", "/jellyfin/plugins")
	if err := Persist(dir, d2); err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("expected identical inputs to produce byte-identical descriptors")
	}

	var parsed Descriptor
	if err := json.Unmarshal(second, &parsed); err != nil {
		t.Fatalf("descriptor is not valid JSON: %v", err)
	}
	if parsed.Version != "1.3.0" || parsed.Status != "Active" {
		t.Errorf("unexpected descriptor contents: %+v", parsed)
	}
}
