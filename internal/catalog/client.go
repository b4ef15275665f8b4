package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/soultaco83/jellyfin-packaging/internal/log"
)

const (
	// UserAgent identifies this tool to remote services. The hosting
	// API rejects anonymous clients without one.
	UserAgent = "jellyfin-packaging/1.0"
)

// ErrUnreachable wraps any transport or parse failure while fetching a
// catalog or a hosting release. The caller decides whether that is
// fatal or merely disables the plugins sourced from that catalog.
var ErrUnreachable = errors.New("catalog unreachable")

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchCatalog performs a single GET of a catalog manifest and parses
// it. A well-formed empty manifest is valid: zero plugins available is
// not an error. Records with malformed GUIDs are rejected at this
// boundary rather than at point of use.
func (c *Client) FetchCatalog(url string) ([]Record, error) {
	data, err := c.get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest from %s: %v", ErrUnreachable, url, err)
	}

	valid := make([]Record, 0, len(records))
	for _, r := range records {
		if _, err := uuid.Parse(r.GUID); err != nil {
			log.Warn("Skipping catalog record with malformed guid", "guid", r.GUID, "name", r.Name)
			continue
		}
		valid = append(valid, r)
	}

	log.Debug("Fetched catalog", "url", url, "plugins", len(valid))
	return valid, nil
}

// LatestRelease fetches the "latest release" record from a hosting API
// endpoint.
func (c *Client) LatestRelease(apiURL string) (*HostingRelease, error) {
	data, err := c.get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var release HostingRelease
	if err := json.Unmarshal(data, &release); err != nil {
		return nil, fmt.Errorf("%w: parsing release from %s: %v", ErrUnreachable, apiURL, err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("%w: release from %s has no tag name", ErrUnreachable, apiURL)
	}

	log.Debug("Fetched hosting release", "url", apiURL, "tag", release.TagName)
	return &release, nil
}

func (c *Client) get(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d when fetching %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}
