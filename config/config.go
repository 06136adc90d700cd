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

// Package config loads and validates kiln's environment-keyed build
// configuration. The file lives at the source root as kiln.config.json
// (or .yaml/.yml) and holds one settings block per environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/kilnware/kiln/fs"
)

// DefaultEnvironment is used when the caller does not name one.
const DefaultEnvironment = "production"

// Store backends for published assets.
const (
	StoreIPFS = "ipfs"
	StoreS3   = "s3"
)

// Output styles for transpiled code.
const (
	FormatModule = "module"
	FormatScript = "script"
)

// configNames are tried in order under the source root.
var configNames = []string{"kiln.config.json", "kiln.config.yaml", "kiln.config.yml"}

// ErrNotFound reports that no config file exists under the source root.
var ErrNotFound = errors.New("config: no kiln.config.{json,yaml,yml} found")

// Config is the resolved, environment-specific build configuration.
// It is immutable for the duration of one build.
type Config struct {
	// Environment is the name the config was resolved for.
	Environment string `mapstructure:"-"`

	// Format is the output code style, "module" or "script".
	Format string `mapstructure:"format"`

	// Store selects the content store backend, "ipfs" or "s3".
	Store string `mapstructure:"store"`

	// Aliases lists alias source files, relative to the source root,
	// merged in order (later files win).
	Aliases []string `mapstructure:"aliases"`

	IPFS     IPFS     `mapstructure:"ipfs"`
	S3       S3       `mapstructure:"s3"`
	Accounts Accounts `mapstructure:"accounts"`
}

// IPFS configures the IPFS store backend and the public gateway used to
// address published content.
type IPFS struct {
	UploadAPI        string            `mapstructure:"uploadApi"`
	UploadAPIHeaders map[string]string `mapstructure:"uploadApiHeaders"`
	Gateway          string            `mapstructure:"gateway"`
}

// S3 configures the S3-compatible store backend.
type S3 struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"useSSL"`
	Gateway   string `mapstructure:"gateway"`
}

// Accounts identifies the deploy account for the environment.
type Accounts struct {
	Deploy string `mapstructure:"deploy"`
}

// ValidationError reports a missing or invalid required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Gateway returns the content gateway base for the selected store.
func (c *Config) Gateway() string {
	if c.Store == StoreS3 {
		return c.S3.Gateway
	}
	return c.IPFS.Gateway
}

// Load reads the config file under sourceRoot and resolves the block for
// the named environment. An empty env selects DefaultEnvironment. Any
// failure here is fatal to the build: the orchestrator must not proceed.
func Load(fsys fs.FileSystem, sourceRoot, env string) (*Config, error) {
	if env == "" {
		env = DefaultEnvironment
	}

	data, configType, err := readConfigFile(fsys, sourceRoot)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	sub := v.Sub("environments." + env)
	if sub == nil {
		return nil, &ValidationError{
			Field:  "environments." + env,
			Reason: "environment not defined",
		}
	}

	cfg := &Config{
		Environment: env,
		Format:      FormatModule,
		Store:       StoreIPFS,
	}
	if err := sub.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: environment %q: %w", env, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(fsys fs.FileSystem, sourceRoot string) ([]byte, string, error) {
	for _, name := range configNames {
		p := filepath.Join(sourceRoot, name)
		if !fsys.Exists(p) {
			continue
		}
		data, err := fsys.ReadFile(p)
		if err != nil {
			return nil, "", fmt.Errorf("config: read %s: %w", p, err)
		}
		configType := "yaml"
		if filepath.Ext(name) == ".json" {
			configType = "json"
		}
		return data, configType, nil
	}
	return nil, "", fmt.Errorf("%w (in %s)", ErrNotFound, sourceRoot)
}

func (c *Config) validate() error {
	switch c.Format {
	case FormatModule, FormatScript:
	default:
		return &ValidationError{Field: "format", Reason: fmt.Sprintf("must be %q or %q, got %q", FormatModule, FormatScript, c.Format)}
	}

	switch c.Store {
	case StoreIPFS:
		if c.IPFS.UploadAPI == "" {
			return &ValidationError{Field: "ipfs.uploadApi", Reason: "required when store is ipfs"}
		}
		if c.IPFS.Gateway == "" {
			return &ValidationError{Field: "ipfs.gateway", Reason: "required when store is ipfs"}
		}
	case StoreS3:
		if c.S3.Endpoint == "" {
			return &ValidationError{Field: "s3.endpoint", Reason: "required when store is s3"}
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return &ValidationError{Field: "s3.accessKey", Reason: "access and secret keys required when store is s3"}
		}
		if c.S3.Bucket == "" {
			return &ValidationError{Field: "s3.bucket", Reason: "required when store is s3"}
		}
		if c.S3.Gateway == "" {
			return &ValidationError{Field: "s3.gateway", Reason: "required when store is s3"}
		}
	default:
		return &ValidationError{Field: "store", Reason: fmt.Sprintf("must be %q or %q, got %q", StoreIPFS, StoreS3, c.Store)}
	}

	if c.Accounts.Deploy == "" {
		return &ValidationError{Field: "accounts.deploy", Reason: "required"}
	}

	return nil
}
