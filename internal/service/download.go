package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentBytes caps downloaded contract documents. Anything larger
// is almost certainly not a contract PDF.
const maxDocumentBytes = 20 << 20

// Downloader fetches contract documents from signed URLs.
type Downloader struct {
	client *http.Client
	limit  int64
}

// NewDownloader creates a downloader with the default size cap.
func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 60 * time.Second},
		limit:  maxDocumentBytes,
	}
}

// Fetch downloads the document at url, enforcing the size cap.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building document request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading document: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading document body: %w", err)
	}
	if int64(len(data)) > d.limit {
		return nil, fmt.Errorf("document exceeds %d byte limit", d.limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	return data, nil
}
