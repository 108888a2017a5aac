package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// blobTypeHeader is required by the Azure blob store behind pre-signed URLs.
const (
	blobTypeHeader = "x-ms-blob-type"
	blobTypeBlock  = "BlockBlob"
)

// Upload PUTs the content of r to a pre-signed blob URL.
func (c *Client) Upload(ctx context.Context, blobURL string, r io.Reader) error {
	// Read fully so the request has a Content-Length; block blobs reject
	// chunked uploads.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read upload source: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set(blobTypeHeader, blobTypeBlock)

	c.logger.Debug("uploading blob", "bytes", len(data))

	resp, err := c.blob.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &HTTPError{Method: http.MethodPut, URL: redact(blobURL), StatusCode: resp.StatusCode, Body: body}
	}

	return nil
}

// Download GETs the content of a blob URL.
func (c *Client) Download(ctx context.Context, blobURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.blob.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Method: http.MethodGet, URL: redact(blobURL), StatusCode: resp.StatusCode, Body: body}
	}

	c.logger.Debug("downloaded blob", "bytes", len(body))
	return body, nil
}
