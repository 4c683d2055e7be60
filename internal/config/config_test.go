package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arkiv.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
[chunking]
chunk_size = 500
chunk_overlap = 50

[dropbox]
folder_path = "/docs"
supported_extensions = [".txt", ".zip"]

[mail]
host = "imap.example.com"
folders = ["INBOX", "Sent", "Archive"]

[qdrant]
host = "qdrant.internal"
port = 7000
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 500, cfg.Chunking.ChunkSize)
		assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
		assert.Equal(t, "/docs", cfg.Dropbox.FolderPath)
		assert.Equal(t, []string{".txt", ".zip"}, cfg.Dropbox.SupportedExtensions)
		assert.Equal(t, []string{"INBOX", "Sent", "Archive"}, cfg.Mail.Folders)
		assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
		assert.Equal(t, 7000, cfg.Qdrant.Port)
	})

	t.Run("defaults without explicit file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
		assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
		assert.Equal(t, "localhost", cfg.Qdrant.Host)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
[openai]
api_key = "from-file"

[mail]
password = "from-file"
`)
		t.Setenv("ARKIV_OPENAI_API_KEY", "from-env")
		t.Setenv("ARKIV_MAIL_PASSWORD", "from-env")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.OpenAI.APIKey)
		assert.Equal(t, "from-env", cfg.Mail.Password)
	})

	t.Run("overlap must stay below chunk size", func(t *testing.T) {
		path := writeConfig(t, `
[chunking]
chunk_size = 100
chunk_overlap = 100
`)
		_, err := Load(path)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("malformed toml rejected", func(t *testing.T) {
		path := writeConfig(t, "[chunking\nchunk_size = ")
		_, err := Load(path)
		assert.Error(t, err)
	})
}
