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

// Package s3 publishes files to an S3-compatible store. The object key is
// the sha256 of the content, which doubles as the returned content
// identifier, so the store stays content-addressed like the IPFS backend.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kilnware/kiln/config"
	"github.com/kilnware/kiln/fs"
	"github.com/kilnware/kiln/store"
)

// Publisher implements store.Publisher against an S3-compatible endpoint.
type Publisher struct {
	fsys     fs.FileSystem
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// New creates a publisher from the environment's S3 settings.
func New(fsys fs.FileSystem, cfg config.S3) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3: access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: init client: %w", err)
	}

	return &Publisher{
		fsys:   fsys,
		client: client,
		bucket: bucket,
		region: region,
	}, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// Publish implements store.Publisher.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return "", &store.PublishError{Path: localPath, Message: fmt.Sprintf("ensure bucket: %v", err)}
	}

	content, err := p.fsys.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}

	sum := sha256.Sum256(content)
	cid := hex.EncodeToString(sum[:])

	// Same content, same key: the put is a no-op on the store side when
	// the object already exists, so re-publishing is harmless.
	contentType := http.DetectContentType(content)
	_, err = p.client.PutObject(ctx, p.bucket, cid, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		perr := &store.PublishError{Path: localPath, Message: err.Error()}
		if resp := minio.ToErrorResponse(err); resp.StatusCode > 0 {
			perr.StatusCode = resp.StatusCode
		}
		return "", perr
	}

	return cid, nil
}
