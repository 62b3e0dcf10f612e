// Package config assembles runtime settings from defaults, an optional YAML
// file and PARISHREG_ environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"parishregistry/internal/blob"
	"parishregistry/internal/core"
	"parishregistry/internal/platform/logger"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "PARISHREG_"

// Config is the full runtime configuration of the command line tool.
type Config struct {
	Storage core.StorageConfig `yaml:"storage"`
	Blob    blob.Config        `yaml:"blob"`
	// CatalogPath points at a YAML concept catalog; empty uses the built-in one.
	CatalogPath string `yaml:"catalog_path"`
	Log         Log    `yaml:"log"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Storage: core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "parishregistry.db"},
		Blob:    blob.Config{Driver: blob.DriverFilesystem, FSRoot: "archive"},
		Log:     Log{Level: "info", Format: logger.FormatText},
	}
}

// FromEnv returns Default overlaid with the environment.
func FromEnv() (Config, error) {
	cfg := overlayEnv(Default(), os.LookupEnv)
	return cfg, cfg.Validate()
}

// Load reads the YAML file at path over Default, then overlays the
// environment. An empty path behaves like FromEnv.
func Load(path string) (Config, error) {
	if path == "" {
		return FromEnv()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg = overlayEnv(cfg, os.LookupEnv)
	return cfg, cfg.Validate()
}

// Parse decodes a YAML document over Default. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func overlayEnv(cfg Config, lookup func(string) (string, bool)) Config {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var storageDriver, blobDriver, pathStyle string
	str("STORAGE_DRIVER", &storageDriver)
	if storageDriver != "" {
		cfg.Storage.Driver = core.StorageDriver(storageDriver)
	}
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("BLOB_DRIVER", &blobDriver)
	if blobDriver != "" {
		cfg.Blob.Driver = blob.Driver(blobDriver)
	}
	str("BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("BLOB_S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("BLOB_S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	str("BLOB_S3_PATH_STYLE", &pathStyle)
	if pathStyle != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(pathStyle, "true")
	}
	str("CATALOG_PATH", &cfg.CatalogPath)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	return cfg
}

// Validate reports every setting that cannot be used as given.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "", core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == core.StoragePostgres && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres storage requires a dsn"))
	}
	switch c.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 blob storage requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if _, err := logger.New(c.Log.Level, c.Log.Format, io.Discard); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
