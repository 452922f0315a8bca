package download

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// defaultChunkSize is the transfer buffer size: one mebibyte.
const defaultChunkSize = 1 << 20

// ensureDestination enforces the create-or-fail-or-overwrite contract. If
// path exists and overwrite is false it fails with a "destination exists"
// error; with overwrite it removes the existing file or directory tree.
// It then creates path (and parents) as an empty directory. Idempotent when
// called twice with overwrite.
func ensureDestination(path string, overwrite bool) error {
	info, err := os.Lstat(path)
	if err == nil {
		if !overwrite {
			return preconditionErrorf("destination %s already exists; pass overwrite to replace it", path)
		}
		if info.IsDir() {
			if err := os.RemoveAll(path); err != nil {
				return wrapError(kindPrecondition, err, "failed to clear destination %s: %v", path, err)
			}
		} else {
			if err := os.Remove(path); err != nil {
				return wrapError(kindPrecondition, err, "failed to clear destination %s: %v", path, err)
			}
		}
	} else if !os.IsNotExist(err) {
		return wrapError(kindPrecondition, err, "failed to inspect destination %s: %v", path, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return wrapError(kindPrecondition, err, "failed to create destination %s: %v", path, err)
	}
	return nil
}

// streamToFile writes a byte stream to targetPath in fixed-size chunks,
// creating parent directories as needed. The payload is never buffered whole
// in memory, which is what lets the framework handle multi-gigabyte
// archives. A failure mid-stream leaves a partial file on disk; callers that
// need atomicity write to a temp path and rename themselves. Returns the
// number of bytes written.
func streamToFile(source io.Reader, targetPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return 0, wrapTransport(err, "failed to create parent directory for %s: %v", targetPath, err)
	}

	file, err := os.Create(targetPath)
	if err != nil {
		return 0, wrapTransport(err, "failed to create %s: %v", targetPath, err)
	}

	written, err := io.CopyBuffer(file, source, make([]byte, defaultChunkSize))
	if err != nil {
		file.Close()
		return written, wrapTransport(err, "failed to write %s: %v", targetPath, err)
	}
	if err := file.Close(); err != nil {
		return written, wrapTransport(err, "failed to flush %s: %v", targetPath, err)
	}
	return written, nil
}

// copyContents copies the immediate children of source into target,
// recursing into directories. Symlinks are followed, so a link to a
// directory is copied as a real tree. Returns the paths of the copied files.
func copyContents(source, target string) ([]string, error) {
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, wrapError(kindPrecondition, err, "failed to read %s: %v", source, err)
	}

	var copied []string
	for _, entry := range entries {
		src := filepath.Join(source, entry.Name())
		dst := filepath.Join(target, entry.Name())
		info, err := os.Stat(src)
		if err != nil {
			return copied, wrapError(kindPrecondition, err, "failed to stat %s: %v", src, err)
		}
		if info.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return copied, wrapError(kindPrecondition, err, "failed to create %s: %v", dst, err)
			}
			nested, err := copyContents(src, dst)
			copied = append(copied, nested...)
			if err != nil {
				return copied, err
			}
		} else {
			if err := copyFile(src, dst); err != nil {
				return copied, err
			}
			copied = append(copied, dst)
		}
	}
	return copied, nil
}

// copyFile copies a regular file preserving its mode.
func copyFile(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return wrapError(kindPrecondition, err, "failed to stat %s: %v", source, err)
	}

	in, err := os.Open(source)
	if err != nil {
		return wrapError(kindPrecondition, err, "failed to open %s: %v", source, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return wrapError(kindPrecondition, err, "failed to create %s: %v", target, err)
	}

	if _, err := io.CopyBuffer(out, in, make([]byte, defaultChunkSize)); err != nil {
		out.Close()
		return wrapError(kindPrecondition, err, "failed to copy %s to %s: %v", source, target, err)
	}
	return out.Close()
}

// moveFile renames source to target, falling back to copy-and-remove when
// the rename crosses filesystems (temp dir and destination often do).
func moveFile(source, target string) error {
	if err := os.Rename(source, target); err == nil {
		return nil
	}
	if err := copyFile(source, target); err != nil {
		return err
	}
	return os.Remove(source)
}

// inspectTree walks root and reports the number of regular files underneath
// it and their total size in bytes.
func inspectTree(root string) (int, int64, error) {
	var count int
	var total int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			count++
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, 0, wrapTransport(err, "failed to inspect %s: %v", root, err)
	}
	return count, total, nil
}

// readSnippet reads at most limit bytes from r for inclusion in an error
// message. Read failures yield an empty snippet rather than a second error.
func readSnippet(r io.Reader, limit int64) string {
	data, _ := io.ReadAll(io.LimitReader(r, limit))
	return string(data)
}

// httpStatusError builds a transport error from a non-2xx response,
// including a snippet of the response body.
func httpStatusError(resp *http.Response, target string) *Error {
	snippet := readSnippet(resp.Body, 200)
	return transportErrorf("request to %s failed with status %d: %s", target, resp.StatusCode, snippet)
}

// absPath normalizes a destination to an absolute path so results always
// report one.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", wrapError(kindConfig, err, "failed to resolve %s: %v", path, err)
	}
	return abs, nil
}
