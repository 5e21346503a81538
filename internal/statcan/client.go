// Package statcan talks to the Statistics Canada Web Data Service: it lists
// cubes, resolves table downloads, and saves geography-filtered census
// tables under the per-year data directories.
package statcan

import (
	"fmt"
	"os"
	"path/filepath"

	"context"

	"github.com/rotisserie/eris"

	"github.com/palliser-group/agcensus-cli/internal/fetcher"
)

// Cube is one entry of the WDS cube list.
type Cube struct {
	ProductID   int    `json:"productId"`
	CubeTitleEn string `json:"cubeTitleEn"`
	ReleaseTime string `json:"releaseTime"`
}

// Client wraps the WDS REST endpoints used by the wizard.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
}

// New creates a Client against baseURL (".../t1/wds/rest").
func New(f fetcher.Fetcher, baseURL string) *Client {
	return &Client{fetcher: f, baseURL: baseURL}
}

// CubesLite fetches the lightweight list of all published cubes.
func (c *Client) CubesLite(ctx context.Context) ([]Cube, error) {
	var cubes []Cube
	url := c.baseURL + "/getAllCubesListLite"
	if err := c.fetcher.GetJSON(ctx, url, &cubes); err != nil {
		return nil, eris.Wrap(err, "statcan: list cubes")
	}
	return cubes, nil
}

// tableDownload is the getFullTableDownloadCSV response shape.
type tableDownload struct {
	Status string `json:"status"`
	Object string `json:"object"`
}

// DownloadTable resolves the full-table CSV download for a product ID,
// fetches the ZIP, and extracts the data CSV into destDir. Returns the
// extracted CSV path.
func (c *Client) DownloadTable(ctx context.Context, productID int, destDir string) (string, error) {
	var dl tableDownload
	url := fmt.Sprintf("%s/getFullTableDownloadCSV/%d/en", c.baseURL, productID)
	if err := c.fetcher.GetJSON(ctx, url, &dl); err != nil {
		return "", eris.Wrapf(err, "statcan: resolve download for %d", productID)
	}
	if dl.Object == "" {
		return "", eris.Errorf("statcan: missing download object for product %d (status %q)", productID, dl.Status)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "statcan: create %s", destDir)
	}
	zipPath := filepath.Join(destDir, fmt.Sprintf("%d.zip", productID))
	if _, err := c.fetcher.DownloadToFile(ctx, dl.Object, zipPath); err != nil {
		return "", eris.Wrapf(err, "statcan: download table %d", productID)
	}
	defer os.Remove(zipPath) //nolint:errcheck

	csvPath, err := fetcher.ExtractDataCSV(zipPath, destDir)
	if err != nil {
		return "", eris.Wrapf(err, "statcan: extract table %d", productID)
	}
	return csvPath, nil
}
