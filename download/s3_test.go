package download

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	body     string
	err      error
	gotInput *s3.GetObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Downloader_Download(t *testing.T) {
	t.Run("object lands under its key base name", func(t *testing.T) {
		client := &fakeS3{body: "col1,col2"}
		d := NewS3WithClient(testDeps(), client)
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Params: Params{"bucket": "my-bucket", "key": "datasets/train.csv"},
		})
		require.NoError(t, err)

		assert.Equal(t, "my-bucket", aws.ToString(client.gotInput.Bucket))
		assert.Equal(t, "datasets/train.csv", aws.ToString(client.gotInput.Key))
		assert.Nil(t, client.gotInput.VersionId)
		assert.Equal(t, "col1,col2", readFile(t, filepath.Join(dest, "train.csv")))
		assert.Equal(t, dest, result.DatasetPath)
	})

	t.Run("filename parameter overrides the key base name", func(t *testing.T) {
		d := NewS3WithClient(testDeps(), &fakeS3{body: "x"})
		dest := filepath.Join(t.TempDir(), "dataset")

		_, err := d.Download(context.Background(), dest, Options{
			Params: Params{"bucket": "b", "key": "k/obj", "filename": "renamed.bin"},
		})
		require.NoError(t, err)
		assert.Equal(t, "x", readFile(t, filepath.Join(dest, "renamed.bin")))
	})

	t.Run("version_id is forwarded", func(t *testing.T) {
		client := &fakeS3{body: "x"}
		d := NewS3WithClient(testDeps(), client)

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"bucket": "b", "key": "k", "version_id": "v7"},
		})
		require.NoError(t, err)
		assert.Equal(t, "v7", aws.ToString(client.gotInput.VersionId))
	})

	t.Run("missing bucket or key is a config error", func(t *testing.T) {
		d := NewS3WithClient(testDeps(), &fakeS3{})

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"key": "k"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"bucket"`)

		_, err = d.Download(context.Background(), filepath.Join(t.TempDir(), "y"), Options{
			Params: Params{"bucket": "b"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"key"`)
	})

	t.Run("client failure names the object", func(t *testing.T) {
		d := NewS3WithClient(testDeps(), &fakeS3{err: assert.AnError})

		_, err := d.Download(context.Background(), filepath.Join(t.TempDir(), "x"), Options{
			Params: Params{"bucket": "b", "key": "missing/obj"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3://b/missing/obj")
		assert.Equal(t, "transport", errorKind(err))
	})
}

func TestS3Downloader_Extract(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "payload.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"bundle/":      "",
		"bundle/a.txt": "a",
	})
	data := readFile(t, archivePath)

	t.Run("tar.gz object is collapsed into the destination", func(t *testing.T) {
		d := NewS3WithClient(testDeps(), &fakeS3{body: data})
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Extract: true,
			Params:  Params{"bucket": "b", "key": "exports/payload.tar.gz"},
		})
		require.NoError(t, err)

		assert.Equal(t, "a", readFile(t, filepath.Join(dest, "a.txt")))
		assert.Equal(t, true, result.Details["extracted"])
	})

	t.Run("non-archive object with extract is kept opaque", func(t *testing.T) {
		d := NewS3WithClient(testDeps(), &fakeS3{body: "plain"})
		dest := filepath.Join(t.TempDir(), "dataset")

		result, err := d.Download(context.Background(), dest, Options{
			Extract: true,
			Params:  Params{"bucket": "b", "key": "exports/notes.txt"},
		})
		require.NoError(t, err)

		assert.Equal(t, "plain", readFile(t, filepath.Join(dest, "notes.txt")))
		assert.Equal(t, false, result.Details["extracted"])
	})
}
