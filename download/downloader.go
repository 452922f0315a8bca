// Package download implements the multi-source dataset acquisition
// framework: a pluggable client layer that fetches a dataset from one of
// several heterogeneous providers (GitHub, Hugging Face, S3, Google Drive,
// generic HTTP endpoints, the Kaggle CLI, the local filesystem) into a
// uniform on-disk layout, optionally unpacking archives.
//
// Every backend implements the Downloader interface and is selected through
// the Registry by a case-insensitive source key. Calls are synchronous and
// the destination directory is exclusively owned by one in-flight call;
// concurrent calls targeting the same destination are a caller error and are
// neither detected nor serialized by the framework.
package download

import (
	"context"

	"datasetfetch/config"
	"datasetfetch/observability"
)

// Options carries the flags shared by every backend plus the backend-specific
// parameter bag.
type Options struct {
	// Overwrite replaces an existing destination. Without it a populated
	// destination is a hard error; acquisition is never silently merged
	// into stale content.
	Overwrite bool

	// Extract unpacks recognized zip/tar archives into the destination,
	// collapsing a single top-level directory.
	Extract bool

	// KeepArchive keeps the downloaded archive alongside the extracted
	// tree instead of deleting it after extraction.
	KeepArchive bool

	// Params holds the backend-specific parameters (repo/ref, bucket/key,
	// file_id, url/urls, ...).
	Params Params
}

// Downloader is the one capability every backend implements: fetch
// dataset-shaped content into a destination directory and return a
// structured result. Implementations never retry; a failed network call
// propagates immediately as a *Error.
type Downloader interface {
	Download(ctx context.Context, destination string, opts Options) (*Result, error)
}

// Deps bundles the collaborators injected into every backend constructor.
// Zero values are usable: a nil Config falls back to environment defaults,
// nil Logger/Metrics to no-op implementations.
type Deps struct {
	Config  *config.Config
	Logger  observability.Logger
	Metrics observability.Metrics
}

func (d Deps) normalize() Deps {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Logger == nil {
		d.Logger = observability.NewNopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewNopMetrics()
	}
	return d
}
