// Package config loads engine configuration from a TOML file, a .env
// file, and environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "arkiv.toml"

// Chunking holds text splitter settings.
type Chunking struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// Dropbox holds file store source settings.
type Dropbox struct {
	FolderPath          string   `toml:"folder_path"`
	AccessToken         string   `toml:"access_token"`
	AppKey              string   `toml:"app_key"`
	AppSecret           string   `toml:"app_secret"`
	RefreshToken        string   `toml:"refresh_token"`
	SupportedExtensions []string `toml:"supported_extensions"`
	MaxFileSize         int64    `toml:"max_file_size"`
}

// Mail holds mailbox source settings.
type Mail struct {
	Host                 string   `toml:"host"`
	Port                 int      `toml:"port"`
	Username             string   `toml:"username"`
	Password             string   `toml:"password"`
	Folders              []string `toml:"folders"`
	AttachmentExtensions []string `toml:"attachment_extensions"`
	MaxAttachmentSize    int64    `toml:"max_attachment_size"`
}

// OpenAI holds embedding service settings.
type OpenAI struct {
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// Qdrant holds document store settings.
type Qdrant struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	APIKey string `toml:"api_key"`
	UseTLS bool   `toml:"use_tls"`
}

// Config is the full engine configuration.
type Config struct {
	Chunking Chunking `toml:"chunking"`
	Dropbox  Dropbox  `toml:"dropbox"`
	Mail     Mail     `toml:"mail"`
	OpenAI   OpenAI   `toml:"openai"`
	Qdrant   Qdrant   `toml:"qdrant"`
}

// Default returns the configuration used before file and environment
// overlays.
func Default() *Config {
	return &Config{
		Chunking: Chunking{ChunkSize: 1000, ChunkOverlap: 200},
		Qdrant:   Qdrant{Host: "localhost", Port: 6334},
	}
}

// Load reads the config file at path (optional), overlays credentials
// from the environment, and validates the result. A .env file in the
// working directory is honored.
func Load(path string) (*Config, error) {
	// Missing .env is the common case, not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		logger.Debug("no config file at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays credential environment variables. Environment
// values win over file values so secrets can stay out of the config
// file.
func (c *Config) applyEnv() {
	overlay(&c.Dropbox.AccessToken, "ARKIV_DROPBOX_ACCESS_TOKEN")
	overlay(&c.Dropbox.AppKey, "ARKIV_DROPBOX_APP_KEY")
	overlay(&c.Dropbox.AppSecret, "ARKIV_DROPBOX_APP_SECRET")
	overlay(&c.Dropbox.RefreshToken, "ARKIV_DROPBOX_REFRESH_TOKEN")
	overlay(&c.Mail.Host, "ARKIV_MAIL_HOST")
	overlay(&c.Mail.Username, "ARKIV_MAIL_USERNAME")
	overlay(&c.Mail.Password, "ARKIV_MAIL_PASSWORD")
	overlay(&c.OpenAI.APIKey, "ARKIV_OPENAI_API_KEY")
	overlay(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	overlay(&c.Qdrant.Host, "ARKIV_QDRANT_HOST")
	overlay(&c.Qdrant.APIKey, "ARKIV_QDRANT_API_KEY")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks settings that would otherwise fail deep inside a
// run. Credential presence is checked by each adapter's constructor.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidConfig)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative", domain.ErrInvalidConfig)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			domain.ErrInvalidConfig, c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Dropbox.MaxFileSize < 0 {
		return fmt.Errorf("%w: dropbox max_file_size must not be negative", domain.ErrInvalidConfig)
	}
	if c.Mail.MaxAttachmentSize < 0 {
		return fmt.Errorf("%w: mail max_attachment_size must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
