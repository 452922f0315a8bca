package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodaay/HuggingFaceModelDownloader/pkg/hfdownloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetfetch/observability/mocks"
)

func newHFForTest(t *testing.T, snapshot snapshotFunc) *HuggingFaceDownloader {
	t.Helper()
	d, err := NewHuggingFace(testDeps())
	require.NoError(t, err)
	d.snapshot = snapshot
	return d
}

// snapshotWriting returns a stub that records the job and writes the given
// files into the output directory.
func snapshotWriting(t *testing.T, gotJob *hfdownloader.Job, files map[string]string) snapshotFunc {
	return func(ctx context.Context, job hfdownloader.Job, cfg hfdownloader.Settings, fn hfdownloader.ProgressFunc) error {
		*gotJob = job
		for name, content := range files {
			writeFile(t, filepath.Join(cfg.OutputDir, name), content)
		}
		return nil
	}
}

func TestHuggingFaceDownloader_Download(t *testing.T) {
	t.Run("dataset snapshot lands in the destination", func(t *testing.T) {
		var gotJob hfdownloader.Job
		d := newHFForTest(t, snapshotWriting(t, &gotJob, map[string]string{
			"train.parquet": "rows",
			"README.md":     "readme",
		}))
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Params: Params{"repo_id": "owner/things"},
		})
		require.NoError(t, err)

		assert.Equal(t, "owner/things", gotJob.Repo)
		assert.Equal(t, "main", gotJob.Revision)
		assert.True(t, gotJob.IsDataset)
		assert.Equal(t, dest, result.DatasetPath)
		assert.Equal(t, 2, result.Details["file_count"])
		assert.Equal(t, "rows", readFile(t, filepath.Join(dest, "train.parquet")))
	})

	t.Run("snapshot bytes are recorded", func(t *testing.T) {
		var gotJob hfdownloader.Job
		metrics := &mocks.MockMetrics{}
		metrics.On("RecordBytes", "huggingface", int64(10)).Return()
		deps := testDeps()
		deps.Metrics = metrics
		d, err := NewHuggingFace(deps)
		require.NoError(t, err)
		d.snapshot = snapshotWriting(t, &gotJob, map[string]string{
			"train.parquet": "rows",
			"README.md":     "readme",
		})

		_, err = d.Download(context.Background(), filepath.Join(t.TempDir(), "dataset"), Options{
			Params: Params{"repo_id": "owner/things"},
		})
		require.NoError(t, err)
		metrics.AssertExpectations(t)
	})

	t.Run("model repo_type and revision are forwarded", func(t *testing.T) {
		var gotJob hfdownloader.Job
		d := newHFForTest(t, snapshotWriting(t, &gotJob, map[string]string{"weights.bin": "w"}))

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"repo_id": "owner/model", "repo_type": "model", "revision": "v2"},
		})
		require.NoError(t, err)
		assert.False(t, gotJob.IsDataset)
		assert.Equal(t, "v2", gotJob.Revision)
	})

	t.Run("allow_patterns become hub filters", func(t *testing.T) {
		var gotJob hfdownloader.Job
		d := newHFForTest(t, snapshotWriting(t, &gotJob, map[string]string{"a.parquet": "a"}))

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"repo_id": "owner/things", "allow_patterns": []string{"*.parquet"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"*.parquet"}, gotJob.Filters)
	})

	t.Run("ignore_patterns prune the snapshot", func(t *testing.T) {
		var gotJob hfdownloader.Job
		d := newHFForTest(t, snapshotWriting(t, &gotJob, map[string]string{
			"train.parquet":   "rows",
			"README.md":       "readme",
			"extra/notes.txt": "notes",
		}))
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Params: Params{
				"repo_id":         "owner/things",
				"ignore_patterns": []string{"*.md", "extra/*"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Details["file_count"])
		_, err = os.Stat(filepath.Join(dest, "README.md"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dest, "extra", "notes.txt"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dest, "train.parquet"))
		assert.NoError(t, err)
	})

	t.Run("missing repo_id is a config error", func(t *testing.T) {
		d := newHFForTest(t, func(ctx context.Context, job hfdownloader.Job, cfg hfdownloader.Settings, fn hfdownloader.ProgressFunc) error {
			t.Fatal("snapshot must not run")
			return nil
		})

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{Params: Params{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"repo_id"`)
		assert.Equal(t, "config", errorKind(err))
	})

	t.Run("invalid repo_type is a config error", func(t *testing.T) {
		d := newHFForTest(t, func(ctx context.Context, job hfdownloader.Job, cfg hfdownloader.Settings, fn hfdownloader.ProgressFunc) error {
			return nil
		})

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"repo_id": "owner/things", "repo_type": "space"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repo_type")
	})

	t.Run("client failure is wrapped with repo and revision", func(t *testing.T) {
		d := newHFForTest(t, func(ctx context.Context, job hfdownloader.Job, cfg hfdownloader.Settings, fn hfdownloader.ProgressFunc) error {
			return assert.AnError
		})

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"repo_id": "owner/things", "revision": "v3"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner/things@v3")
		assert.Equal(t, "transport", errorKind(err))
	})
}
