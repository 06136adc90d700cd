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

// Package store defines the content-addressed store capability the asset
// publisher uses. Backends live in the subpackages.
package store

import (
	"context"
	"fmt"
)

// Publisher publishes local files to a content-addressed store.
type Publisher interface {
	// Publish uploads the file at localPath and returns the opaque
	// content identifier the store assigned to it.
	Publish(ctx context.Context, localPath string) (cid string, err error)
}

// PublishError represents a failed publish with transport status
// information when available.
type PublishError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("publish %s: HTTP %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("publish %s: %s", e.Path, e.Message)
}

// IsAuthFailure returns true if the store rejected our credentials.
func (e *PublishError) IsAuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
