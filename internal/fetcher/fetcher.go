// Package fetcher downloads plugin artifacts and unpacks them into
// their installation directories, with scoped cleanup so a failed
// attempt never leaks scratch files or half-populated directories.
package fetcher

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/soultaco83/jellyfin-packaging/internal/log"
)

var (
	// ErrDownloadFailed wraps any failure transferring an artifact.
	ErrDownloadFailed = errors.New("download failed")
	// ErrExtractFailed wraps any failure unpacking an artifact.
	ErrExtractFailed = errors.New("extraction failed")
)

type Fetcher struct {
	httpClient *http.Client
}

func New() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Download streams the remote artifact to scratchPath. On any failure
// the partial scratch file is removed before returning.
func (f *Fetcher) Download(url, scratchPath string) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request for %s: %v", ErrDownloadFailed, url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", ErrDownloadFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP error %d from %s", ErrDownloadFailed, resp.StatusCode, url)
	}

	out, err := os.Create(scratchPath)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, scratchPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(scratchPath)
		return fmt.Errorf("%w: writing %s: %v", ErrDownloadFailed, scratchPath, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(scratchPath)
		return fmt.Errorf("%w: closing %s: %v", ErrDownloadFailed, scratchPath, err)
	}

	return nil
}

// Unpack extracts the zip archive at archivePath into destDir,
// creating destDir and any parents first. The scratch archive is
// removed on every exit path. On extraction failure destDir is removed
// again if this call created it, so a failed attempt leaves no
// half-populated directory behind.
func (f *Fetcher) Unpack(archivePath, destDir string) error {
	// Scratch cleanup is best-effort and must run whether or not
	// extraction succeeds.
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			log.Warn("Could not remove scratch archive", "path", archivePath, "error", err)
		}
	}()

	_, statErr := os.Stat(destDir)
	createdHere := os.IsNotExist(statErr)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrExtractFailed, destDir, err)
	}

	if err := f.extract(archivePath, destDir); err != nil {
		if createdHere {
			os.RemoveAll(destDir)
		}
		return err
	}

	return nil
}

func (f *Fetcher) extract(archivePath, destDir string) error {
	mtype, err := mimetype.DetectFile(archivePath)
	if err != nil {
		return fmt.Errorf("%w: inspecting %s: %v", ErrExtractFailed, archivePath, err)
	}
	if !mtype.Is("application/zip") {
		return fmt.Errorf("%w: %s is %s, not a zip archive", ErrExtractFailed, archivePath, mtype)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrExtractFailed, archivePath, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := f.extractFile(file, destDir); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fetcher) extractFile(file *zip.File, destDir string) error {
	target := filepath.Join(destDir, file.Name)

	// Entries must stay inside the destination directory.
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("%w: archive entry %q escapes destination", ErrExtractFailed, file.Name)
	}

	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrExtractFailed, target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrExtractFailed, filepath.Dir(target), err)
	}

	in, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: reading entry %s: %v", ErrExtractFailed, file.Name, err)
	}
	defer in.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrExtractFailed, target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrExtractFailed, target, err)
	}

	return nil
}
