package download

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bodaay/HuggingFaceModelDownloader/pkg/hfdownloader"

	"datasetfetch/observability"
)

// snapshotFunc matches hfdownloader.Download, injected for tests.
type snapshotFunc func(ctx context.Context, job hfdownloader.Job, cfg hfdownloader.Settings, fn hfdownloader.ProgressFunc) error

// HuggingFaceDownloader snapshots dataset or model repositories from the
// Hugging Face Hub directly into the destination. The hub client handles its
// own transfer; there is no separate archive step.
type HuggingFaceDownloader struct {
	snapshot    snapshotFunc
	token       string
	concurrency int
	logger      observability.Logger
	metrics     observability.Metrics
}

// NewHuggingFace creates a Hugging Face backend using the configured token
// and per-file connection concurrency.
func NewHuggingFace(deps Deps) (*HuggingFaceDownloader, error) {
	deps = deps.normalize()
	return &HuggingFaceDownloader{
		snapshot:    hfdownloader.Download,
		token:       deps.Config.HuggingFace.Token,
		concurrency: deps.Config.HuggingFace.Concurrency,
		logger:      deps.Logger.WithFields(observability.Fields{"source": "huggingface"}),
		metrics:     deps.Metrics,
	}, nil
}

// Download snapshots repo_id at revision. Parameters: repo_id (required),
// repo_type ("dataset" or "model", default "dataset"), revision (default
// "main"), token, allow_patterns, ignore_patterns. The hub client exposes
// include filters only, so ignore_patterns are pruned after the snapshot.
func (d *HuggingFaceDownloader) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	repoID, err := opts.Params.Require("huggingface", "repo_id")
	if err != nil {
		return nil, err
	}
	repoType := opts.Params.StringOr("repo_type", "dataset")
	if repoType != "dataset" && repoType != "model" {
		return nil, configErrorf("huggingface: repo_type must be \"dataset\" or \"model\", got %q", repoType)
	}
	revision := opts.Params.StringOr("revision", "main")
	token := opts.Params.StringOr("token", d.token)
	allowPatterns, err := opts.Params.StringSlice("allow_patterns")
	if err != nil {
		return nil, err
	}
	ignorePatterns, err := opts.Params.StringSlice("ignore_patterns")
	if err != nil {
		return nil, err
	}

	destination, err = absPath(destination)
	if err != nil {
		return nil, err
	}
	if err := ensureDestination(destination, opts.Overwrite); err != nil {
		return nil, err
	}

	d.logger.Info(ctx, "snapshotting Hugging Face repository", observability.Fields{
		"repo_id":     repoID,
		"repo_type":   repoType,
		"revision":    revision,
		"destination": destination,
	})

	job := hfdownloader.Job{
		Repo:      repoID,
		Revision:  revision,
		IsDataset: repoType == "dataset",
		Filters:   allowPatterns,
	}
	settings := hfdownloader.Settings{
		OutputDir:   destination,
		Concurrency: d.concurrency,
		Token:       token,
	}

	err = d.snapshot(ctx, job, settings, func(e hfdownloader.ProgressEvent) {
		d.logger.Debug(ctx, "hub snapshot progress", observability.Fields{
			"event": e.Event,
			"path":  e.Path,
		})
	})
	if err != nil {
		return nil, wrapTransport(err, "failed to download %s@%s from Hugging Face: %v", repoID, revision, err)
	}

	if len(ignorePatterns) > 0 {
		if err := pruneIgnored(destination, ignorePatterns); err != nil {
			return nil, err
		}
	}

	fileCount, snapshotBytes, err := inspectTree(destination)
	if err != nil {
		return nil, err
	}
	d.metrics.RecordBytes("huggingface", snapshotBytes)

	return &Result{
		DatasetPath: destination,
		Details: map[string]interface{}{
			"repo_id":    repoID,
			"revision":   revision,
			"file_count": fileCount,
		},
	}, nil
}

// pruneIgnored removes snapshot files whose slash-separated relative path or
// base name matches one of the glob patterns.
func pruneIgnored(destination string, patterns []string) error {
	return filepath.Walk(destination, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(destination, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			matched, err := filepath.Match(pattern, rel)
			if err != nil {
				return configErrorf("huggingface: invalid ignore pattern %q", pattern)
			}
			if !matched {
				matched, _ = filepath.Match(pattern, filepath.Base(path))
			}
			if matched {
				return os.Remove(path)
			}
		}
		return nil
	})
}
