package download

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"datasetfetch/config"
)

// testConfig returns a fully populated configuration that never touches the
// network defaults. Tests override individual fields as needed.
func testConfig() *config.Config {
	return &config.Config{
		Environment:  "test",
		ServiceName:  "datasetfetch-test",
		LogLevel:     "error",
		DatasetsRoot: "data",
		HTTP: config.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "datasetfetch-test/1.0",
		},
		GitHub: config.GitHubConfig{
			APIRoot: "https://api.github.com",
			Timeout: 5 * time.Second,
		},
		Drive: config.DriveConfig{
			BaseURL: "https://docs.google.com/uc",
			Timeout: 5 * time.Second,
		},
		S3: config.S3Config{
			Region:  "us-east-2",
			Timeout: 5 * time.Second,
		},
		HuggingFace: config.HuggingFaceConfig{
			Concurrency: 2,
		},
	}
}

func testDeps() Deps {
	return Deps{Config: testConfig()}
}

// writeZip creates a zip archive at path with the given entries. Keys ending
// in "/" become directories.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := zip.NewWriter(file)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			_, err := writer.Create(name)
			require.NoError(t, err)
			continue
		}
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
}

// zipBytes builds an in-memory zip archive for httptest handlers.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payload.zip")
	writeZip(t, path, entries)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// writeTarGz creates a gzipped tar archive at path with the given entries.
func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

// writeFile creates a file with content, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// readFile returns the file's content as a string.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
