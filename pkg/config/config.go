// Package config resolves directories (XDG base dirs) and the optional
// config.yaml for defectlens.
package config

import (
	"defectlens/pkg/detect"
	"defectlens/pkg/downloader"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const appName = "defectlens"

// StoreConfig locates persisted data. Empty paths derive from the data dir.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	ObjectsDir   string `yaml:"objects_dir"`
	// PublicBaseURL, when set, is the URL prefix under which ObjectsDir is served.
	PublicBaseURL string `yaml:"public_base_url"`
	// DisableUpload stores every image inline as a data URI.
	DisableUpload bool `yaml:"disable_upload"`
}

// File is the shape of config.yaml.
type File struct {
	Fetch  downloader.Config `yaml:"fetch"`
	Detect detect.Config     `yaml:"detect"`
	Store  StoreConfig       `yaml:"store"`
}

// Config holds the resolved directories and settings.
// Immutable after Load.
type Config struct {
	CacheDir  string
	ConfigDir string
	DataDir   string
	File
}

// Load resolves XDG directories and reads path, or config.yaml in the
// config dir when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	c := &Config{
		CacheDir:  filepath.Join(xdg.CacheHome, appName),
		ConfigDir: filepath.Join(xdg.ConfigHome, appName),
		DataDir:   filepath.Join(xdg.DataHome, appName),
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.ConfigDir, "config.yaml")
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &c.File); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.File = c.File.WithDefaults(c.DataDir)
	return c, nil
}

// WithDefaults fills zero fields, deriving store paths from dataDir.
func (f File) WithDefaults(dataDir string) File {
	f.Fetch = f.Fetch.WithDefaults()
	f.Detect = f.Detect.WithDefaults()
	if f.Store.DatabasePath == "" {
		f.Store.DatabasePath = filepath.Join(dataDir, "defectlens.db")
	}
	if f.Store.ObjectsDir == "" {
		f.Store.ObjectsDir = filepath.Join(dataDir, "objects")
	}
	return f
}

// ApplyEnv overlays environment variables on c. It is called once from
// main; packages below never read the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for _, key := range []string{"DEFECTLENS_API_KEY", "GEMINI_API_KEY"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			c.Detect.APIKey = v
			break
		}
	}
	if v := strings.TrimSpace(getenv("DEFECTLENS_BASE_URL")); v != "" {
		c.Detect.BaseURL = v
	}
	if v := strings.TrimSpace(getenv("DEFECTLENS_MODEL")); v != "" {
		c.Detect.Model = v
	}
}
