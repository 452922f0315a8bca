package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetfetch/config"
)

func newDriveForTest(t *testing.T, baseURL string) *DriveDownloader {
	t.Helper()
	deps := testDeps()
	deps.Config.Drive = config.DriveConfig{BaseURL: baseURL, Timeout: deps.Config.Drive.Timeout}
	d, err := NewDrive(deps)
	require.NoError(t, err)
	return d
}

func TestDriveDownloader_Download(t *testing.T) {
	t.Run("small file is served on the first request", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			assert.Equal(t, "abc123", r.URL.Query().Get("id"))
			assert.Equal(t, "download", r.URL.Query().Get("export"))
			w.Write([]byte("payload"))
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Params: Params{"file_id": "abc123", "file_name": "data.bin"},
		})
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
		assert.Equal(t, "payload", readFile(t, filepath.Join(dest, "data.bin")))
		assert.Equal(t, dest, result.DatasetPath)
	})

	t.Run("warning cookie triggers exactly one tokenized re-request", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			if r.URL.Query().Get("confirm") == "" {
				http.SetCookie(w, &http.Cookie{Name: "download_warning_x42", Value: "tok"})
				w.Write([]byte("virus scan warning page"))
				return
			}
			assert.Equal(t, "tok", r.URL.Query().Get("confirm"))
			w.Write([]byte("large payload"))
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)
		dest := filepath.Join(t.TempDir(), "dataset")

		_, err := d.Download(context.Background(), dest, Options{
			Params: Params{"file_id": "big", "file_name": "big.bin"},
		})
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
		assert.Equal(t, "large payload", readFile(t, filepath.Join(dest, "big.bin")))
	})

	t.Run("file name falls back to Content-Disposition", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Disposition", `attachment; filename="archive.zip"; size=3`)
			w.Write([]byte("zzz"))
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)
		dest := filepath.Join(t.TempDir(), "dataset")

		_, err := d.Download(context.Background(), dest, Options{
			Params: Params{"file_id": "withname"},
		})
		require.NoError(t, err)
		assert.Equal(t, "zzz", readFile(t, filepath.Join(dest, "archive.zip")))
	})

	t.Run("disposition file name cannot escape the destination", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Disposition", `attachment; filename="../escape.bin"`)
			w.Write([]byte("hostile"))
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)
		parent := t.TempDir()
		dest := filepath.Join(parent, "dataset")

		_, err := d.Download(context.Background(), dest, Options{
			Params: Params{"file_id": "evil"},
		})
		require.NoError(t, err)

		assert.Equal(t, "hostile", readFile(t, filepath.Join(dest, "escape.bin")))
		assert.NoFileExists(t, filepath.Join(parent, "escape.bin"))
	})

	t.Run("file name falls back to file id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("anon"))
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)
		dest := filepath.Join(t.TempDir(), "dataset")

		_, err := d.Download(context.Background(), dest, Options{
			Params: Params{"file_id": "fid99"},
		})
		require.NoError(t, err)
		assert.Equal(t, "anon", readFile(t, filepath.Join(dest, "fid99.bin")))
	})

	t.Run("missing file_id is a config error", func(t *testing.T) {
		d := newDriveForTest(t, "http://unused")

		_, err := d.Download(context.Background(), t.TempDir()+"/x", Options{Params: Params{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"file_id"`)
		assert.Equal(t, "config", errorKind(err))
	})

	t.Run("non-2xx surfaces a snippet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))
		defer server.Close()

		d := newDriveForTest(t, server.URL)

		_, err := d.Download(context.Background(), t.TempDir()+"/x", Options{
			Params: Params{"file_id": "denied"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
		assert.Equal(t, "transport", errorKind(err))
	})
}

func TestDriveDownloader_Extract(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"bundle/":      "",
		"bundle/a.txt": "a",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="bundle.zip"`)
		w.Write(archive)
	}))
	defer server.Close()

	t.Run("archive is collapsed into the destination", func(t *testing.T) {
		d := newDriveForTest(t, server.URL)
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Extract: true,
			Params:  Params{"file_id": "zipped"},
		})
		require.NoError(t, err)

		assert.Equal(t, "a", readFile(t, filepath.Join(dest, "a.txt")))
		assert.Equal(t, true, result.Details["extracted"])
	})
}

func TestConfirmToken(t *testing.T) {
	t.Run("matching cookie is found", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Add("Set-Cookie", "download_warning_abc=tok; Path=/")
		assert.Equal(t, "tok", confirmToken(resp))
	})

	t.Run("unrelated cookies are ignored", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Add("Set-Cookie", "session=xyz; Path=/")
		assert.Equal(t, "", confirmToken(resp))
	})
}
