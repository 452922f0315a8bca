package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"datasetfetch/observability"
)

// LocalImporter imports datasets already present on the local filesystem,
// either by recursive copy or by creating a single symbolic link.
type LocalImporter struct {
	logger  observability.Logger
	metrics observability.Metrics
}

// NewLocal creates a local filesystem backend.
func NewLocal(deps Deps) (*LocalImporter, error) {
	deps = deps.normalize()
	return &LocalImporter{
		logger:  deps.Logger.WithFields(observability.Fields{"source": "local"}),
		metrics: deps.Metrics,
	}, nil
}

// Download imports the source path. Parameters: source (required, must
// exist) and symlink. Copy mode uses the normal create-empty-directory
// lifecycle; symlink mode instead requires the destination path itself not
// exist and creates the link in its parent. The two lifecycles are kept
// distinct on purpose; merging them would change failure behavior.
func (l *LocalImporter) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	source, err := opts.Params.Require("local", "source")
	if err != nil {
		return nil, err
	}
	symlink := opts.Params.Bool("symlink", false)

	sourcePath, err := resolveSource(source)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, preconditionErrorf("source path %s does not exist", sourcePath)
	}

	destination, err = absPath(destination)
	if err != nil {
		return nil, err
	}

	if symlink {
		l.logger.Info(ctx, "linking dataset", observability.Fields{
			"source":      sourcePath,
			"destination": destination,
		})
		if err := l.prepareForSymlink(destination, opts.Overwrite); err != nil {
			return nil, err
		}
		if err := os.Symlink(sourcePath, destination); err != nil {
			return nil, wrapError(kindPrecondition, err, "failed to link %s to %s: %v", destination, sourcePath, err)
		}
	} else {
		l.logger.Info(ctx, "copying dataset", observability.Fields{
			"source":      sourcePath,
			"destination": destination,
		})
		if err := ensureDestination(destination, opts.Overwrite); err != nil {
			return nil, err
		}
		if err := l.copy(sourcePath, destination); err != nil {
			return nil, err
		}
		_, copiedBytes, err := inspectTree(destination)
		if err != nil {
			return nil, err
		}
		l.metrics.RecordBytes("local", copiedBytes)
	}

	return &Result{
		DatasetPath: destination,
		Details: map[string]interface{}{
			"source":  sourcePath,
			"symlink": symlink,
		},
	}, nil
}

func (l *LocalImporter) copy(source, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return wrapError(kindPrecondition, err, "failed to stat %s: %v", source, err)
	}
	if info.IsDir() {
		_, err := copyContents(source, destination)
		return err
	}
	return copyFile(source, filepath.Join(destination, filepath.Base(source)))
}

// prepareForSymlink enforces the symlink lifecycle: the destination path
// itself must not pre-exist (a dangling symlink counts as existing), and its
// parent is created.
func (l *LocalImporter) prepareForSymlink(destination string, overwrite bool) error {
	info, err := os.Lstat(destination)
	if err == nil {
		if !overwrite {
			return preconditionErrorf("destination %s already exists; pass overwrite to replace it with a symlink", destination)
		}
		if info.IsDir() {
			if err := os.RemoveAll(destination); err != nil {
				return wrapError(kindPrecondition, err, "failed to clear destination %s: %v", destination, err)
			}
		} else {
			if err := os.Remove(destination); err != nil {
				return wrapError(kindPrecondition, err, "failed to clear destination %s: %v", destination, err)
			}
		}
	} else if !os.IsNotExist(err) {
		return wrapError(kindPrecondition, err, "failed to inspect destination %s: %v", destination, err)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return wrapError(kindPrecondition, err, "failed to create parent of %s: %v", destination, err)
	}
	return nil
}

// resolveSource expands a leading ~ and resolves the path to an absolute
// one, following symlinks so links point at the real dataset.
func resolveSource(source string) (string, error) {
	if source == "~" || strings.HasPrefix(source, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", wrapError(kindConfig, err, "failed to resolve home directory: %v", err)
		}
		source = filepath.Join(home, strings.TrimPrefix(source, "~"))
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", wrapError(kindConfig, err, "failed to resolve %s: %v", source, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
