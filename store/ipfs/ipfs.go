/*
Copyright © 2026 Kiln Authors <dev@kilnware.dev>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package ipfs publishes files through an IPFS HTTP add endpoint
// (anything speaking the /api/v0/add protocol, including pinning
// services fronting it).
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/kilnware/kiln/fs"
	"github.com/kilnware/kiln/store"
)

// Client publishes files to an IPFS upload API.
type Client struct {
	fsys       fs.FileSystem
	httpClient *http.Client
	uploadAPI  string
	headers    map[string]string
}

// addResponse is the add endpoint's reply for a single file.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// New creates a client for the given upload API endpoint. The headers are
// sent with every request (typically authorization).
func New(fsys fs.FileSystem, uploadAPI string, headers map[string]string) *Client {
	return &Client{
		fsys:       fsys,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		uploadAPI:  uploadAPI,
		headers:    headers,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Publish implements store.Publisher. It uploads the file as a multipart
// form and returns the content hash the node reports.
func (c *Client) Publish(ctx context.Context, localPath string) (string, error) {
	content, err := c.fsys.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("build upload for %s: %w", localPath, err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("build upload for %s: %w", localPath, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload for %s: %w", localPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadAPI, &body)
	if err != nil {
		return "", fmt.Errorf("build upload for %s: %w", localPath, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &store.PublishError{Path: localPath, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &store.PublishError{Path: localPath, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &store.PublishError{
			Path:       localPath,
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(respBody)),
		}
	}

	// The add endpoint streams one JSON object per uploaded file; a single
	// upload yields a single object.
	var added addResponse
	if err := json.Unmarshal(respBody, &added); err != nil {
		return "", &store.PublishError{Path: localPath, StatusCode: resp.StatusCode, Message: fmt.Sprintf("bad add response: %v", err)}
	}
	if added.Hash == "" {
		return "", &store.PublishError{Path: localPath, StatusCode: resp.StatusCode, Message: "add response missing hash"}
	}
	return added.Hash, nil
}
