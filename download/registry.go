package download

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"datasetfetch/observability"
	"datasetfetch/observability/logger"
)

// builder constructs a backend from the registry's dependencies.
type builder func(Deps) (Downloader, error)

// builders maps every recognized source key, including synonyms, to its
// backend constructor. Keys are matched case-insensitively.
var builders = map[string]builder{
	"github":       func(d Deps) (Downloader, error) { return NewGitHub(d) },
	"gh":           func(d Deps) (Downloader, error) { return NewGitHub(d) },
	"huggingface":  func(d Deps) (Downloader, error) { return NewHuggingFace(d) },
	"hf":           func(d Deps) (Downloader, error) { return NewHuggingFace(d) },
	"google_drive": func(d Deps) (Downloader, error) { return NewDrive(d) },
	"gdrive":       func(d Deps) (Downloader, error) { return NewDrive(d) },
	"kaggle":       func(d Deps) (Downloader, error) { return NewKaggle(d) },
	"http":         func(d Deps) (Downloader, error) { return NewHTTP(d) },
	"https":        func(d Deps) (Downloader, error) { return NewHTTP(d) },
	"url":          func(d Deps) (Downloader, error) { return NewHTTP(d) },
	"s3":           func(d Deps) (Downloader, error) { return NewS3(d) },
	"aws":          func(d Deps) (Downloader, error) { return NewS3(d) },
	"local":        func(d Deps) (Downloader, error) { return NewLocal(d) },
	"filesystem":   func(d Deps) (Downloader, error) { return NewLocal(d) },
}

// AvailableSources returns the sorted list of supported source keys,
// synonyms included.
func AvailableSources() []string {
	keys := make([]string, 0, len(builders))
	for key := range builders {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Request describes one dataset acquisition. The destination is computed as
// TargetRoot/DatasetName when a name is given, TargetRoot otherwise, with
// TargetRoot falling back to the configured default root.
type Request struct {
	Source      string
	DatasetName string
	TargetRoot  string
	Options
}

// Registry resolves a source key to a downloader implementation and routes
// requests to it. It owns the default root directory convention.
type Registry struct {
	deps    Deps
	logger  observability.Logger
	metrics observability.Metrics
}

// NewRegistry creates a dispatch registry. Nil dependencies fall back to
// environment defaults and no-op observability.
func NewRegistry(deps Deps) *Registry {
	deps = deps.normalize()
	return &Registry{
		deps:    deps,
		logger:  deps.Logger.WithFields(observability.Fields{"component": "registry"}),
		metrics: deps.Metrics,
	}
}

// DatasetsRoot returns the default root directory for downloads, creating
// it on first use.
func (r *Registry) DatasetsRoot() (string, error) {
	root, err := absPath(r.deps.Config.DatasetsRoot)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", wrapError(kindConfig, err, "failed to create datasets root %s: %v", root, err)
	}
	return root, nil
}

// Download resolves the source key, computes the destination and forwards
// the call to the backend. The registry validates nothing in the parameter
// bag; each backend fails fast on its own required parameters.
func (r *Registry) Download(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	key := strings.ToLower(strings.TrimSpace(req.Source))

	r.metrics.StartOperation("download")
	defer r.metrics.EndOperation("download")
	defer func() {
		r.metrics.RecordDuration("download", time.Since(start).Seconds())
	}()

	build, ok := builders[key]
	if !ok {
		err := configErrorf("unknown dataset source %q (supported: %s)", req.Source, strings.Join(AvailableSources(), ", "))
		r.metrics.RecordError("download", kindConfig)
		return nil, err
	}

	destination, err := r.resolveDestination(req)
	if err != nil {
		r.metrics.RecordError("download", errorKind(err))
		return nil, err
	}

	ctx = logger.WithRequestID(ctx, uuid.NewString())
	r.logger.Info(ctx, "preparing dataset download", observability.Fields{
		"source":      key,
		"destination": destination,
	})

	backend, err := build(r.deps)
	if err != nil {
		r.metrics.RecordError("download", errorKind(err))
		return nil, err
	}

	result, err := backend.Download(ctx, destination, req.Options)
	if err != nil {
		r.logger.Error(ctx, "dataset download failed", err, observability.Fields{
			"source":      key,
			"destination": destination,
		})
		r.metrics.RecordError("download", errorKind(err))
		return nil, err
	}

	r.logger.Info(ctx, "dataset download complete", observability.Fields{
		"source":       key,
		"dataset_path": result.DatasetPath,
	})
	r.metrics.RecordSuccess("download")
	return result, nil
}

// resolveDestination applies the root/name convention.
func (r *Registry) resolveDestination(req Request) (string, error) {
	root := req.TargetRoot
	if root == "" {
		defaultRoot, err := r.DatasetsRoot()
		if err != nil {
			return "", err
		}
		root = defaultRoot
	} else {
		abs, err := absPath(root)
		if err != nil {
			return "", err
		}
		root = abs
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", wrapError(kindConfig, err, "failed to create target root %s: %v", root, err)
		}
	}

	if req.DatasetName != "" {
		return joinName(root, req.DatasetName)
	}
	return root, nil
}

// joinName appends a dataset name to the root, rejecting names that would
// resolve outside it.
func joinName(root, name string) (string, error) {
	dest := filepath.Join(root, name)
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return "", configErrorf("dataset name %q escapes the target root", name)
	}
	return dest, nil
}
