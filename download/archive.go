package download

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// isArchive reports whether the file name carries a recognized archive
// extension.
func isArchive(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"),
		strings.HasSuffix(lower, ".tar"),
		strings.HasSuffix(lower, ".tar.gz"),
		strings.HasSuffix(lower, ".tgz"),
		strings.HasSuffix(lower, ".tar.bz2"):
		return true
	}
	return false
}

// extractArchive unpacks archivePath into dest, dispatching on file
// extension. Unknown extensions return (false, nil), a "not an archive"
// signal letting callers fall back to treating the payload as an opaque
// file.
func extractArchive(archivePath, dest string) (bool, error) {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return true, extractZip(archivePath, dest)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return true, extractTarFile(archivePath, dest, "gz")
	case strings.HasSuffix(lower, ".tar.bz2"):
		return true, extractTarFile(archivePath, dest, "bz2")
	case strings.HasSuffix(lower, ".tar"):
		return true, extractTarFile(archivePath, dest, "")
	default:
		return false, nil
	}
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return wrapTransport(err, "failed to open archive %s: %v", archivePath, err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := securePath(dest, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return wrapTransport(err, "failed to create %s: %v", target, err)
			}
			continue
		}
		src, err := entry.Open()
		if err != nil {
			return wrapTransport(err, "failed to read archive entry %s: %v", entry.Name, err)
		}
		_, err = streamToFile(src, target)
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarFile(archivePath, dest, compression string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return wrapTransport(err, "failed to open archive %s: %v", archivePath, err)
	}
	defer file.Close()

	var payload io.Reader = file
	switch compression {
	case "gz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			return wrapTransport(err, "failed to decompress %s: %v", archivePath, err)
		}
		defer gz.Close()
		payload = gz
	case "bz2":
		payload = bzip2.NewReader(file)
	}

	tr := tar.NewReader(payload)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapTransport(err, "failed to read archive %s: %v", archivePath, err)
		}

		target, err := securePath(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return wrapTransport(err, "failed to create %s: %v", target, err)
			}
		case tar.TypeReg:
			if _, err := streamToFile(tr, target); err != nil {
				return err
			}
		default:
			// Symlinks and special files inside dataset archives are
			// skipped rather than materialized.
		}
	}
}

// securePath joins an archive entry name onto dest, rejecting entries that
// would escape the destination tree.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
		return "", transportErrorf("archive entry %q escapes the destination directory", name)
	}
	return target, nil
}

// extractCollapsed unpacks archivePath through a scratch directory and
// normalizes the layout before copying into destination: when the scratch
// directory holds exactly one entry and it is a directory, that directory's
// contents (not the directory itself) land in the destination, undoing the
// common convention where repository/release archives wrap everything in one
// <name>-<ref>/ folder. With zero or multiple top-level entries the scratch
// contents are copied as-is. A non-empty subdir selects that subdirectory of
// the collapsed root instead; a missing subdir is an error.
//
// Returns handled=false, without touching destination, when the archive
// format is unrecognized. The scratch directory is removed on every exit
// path.
func extractCollapsed(archivePath, destination, subdir string) (bool, []string, error) {
	if !isArchive(archivePath) {
		return false, nil, nil
	}

	scratch, err := os.MkdirTemp("", fmt.Sprintf("datasetfetch-extract-%s-", uuid.NewString()[:8]))
	if err != nil {
		return true, nil, wrapTransport(err, "failed to create scratch directory: %v", err)
	}
	defer os.RemoveAll(scratch)

	if _, err := extractArchive(archivePath, scratch); err != nil {
		return true, nil, err
	}

	root := scratch
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return true, nil, wrapTransport(err, "failed to inspect extracted archive: %v", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(scratch, entries[0].Name())
	}

	if subdir != "" {
		root = filepath.Join(root, filepath.FromSlash(subdir))
		if _, err := os.Stat(root); err != nil {
			return true, nil, preconditionErrorf("sub-directory %q not found in archive", subdir)
		}
	}

	files, err := copyContents(root, destination)
	if err != nil {
		return true, files, err
	}
	return true, files, nil
}
