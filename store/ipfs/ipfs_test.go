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
package ipfs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilnware/kiln/store"
	"github.com/kilnware/kiln/store/ipfs"
	"github.com/kilnware/kiln/testutil"
)

func TestPublish(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotBody, _ = io.ReadAll(file)
		w.Write([]byte(`{"Name":"logo.png","Hash":"QmLogo","Size":"9"}`))
	}))
	defer server.Close()

	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/ipfs/logo.png": "png bytes",
	})
	client := ipfs.New(mfs, server.URL, map[string]string{"Authorization": "Bearer token"})

	cid, err := client.Publish(context.Background(), "/app/ipfs/logo.png")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if cid != "QmLogo" {
		t.Errorf("cid = %q, want QmLogo", cid)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if string(gotBody) != "png bytes" {
		t.Errorf("uploaded body = %q", gotBody)
	}
}

func TestPublishServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/ipfs/logo.png": "png bytes",
	})
	client := ipfs.New(mfs, server.URL, nil)

	_, err := client.Publish(context.Background(), "/app/ipfs/logo.png")
	var perr *store.PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if perr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", perr.StatusCode)
	}
	if !perr.IsAuthFailure() {
		t.Errorf("IsAuthFailure() = false for a 401")
	}
	if perr.Path != "/app/ipfs/logo.png" {
		t.Errorf("Path = %q", perr.Path)
	}
}

func TestPublishBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Name":"logo.png"}`))
	}))
	defer server.Close()

	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/ipfs/logo.png": "png bytes",
	})
	client := ipfs.New(mfs, server.URL, nil)

	_, err := client.Publish(context.Background(), "/app/ipfs/logo.png")
	var perr *store.PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PublishError for hashless response, got %v", err)
	}
}

func TestPublishMissingFile(t *testing.T) {
	mfs := testutil.NewTreeFS(t, map[string]string{
		"/app/other.txt": "",
	})
	client := ipfs.New(mfs, "http://unused.example", nil)

	_, err := client.Publish(context.Background(), "/app/ipfs/logo.png")
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
