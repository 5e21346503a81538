// Package fetcher downloads census data over HTTP and unpacks the ZIP and
// CSV payloads the Web Data Service serves.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// GetJSON fetches the URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error
}
