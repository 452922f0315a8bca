package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"datasetfetch/observability"
)

// HTTPDownloader fetches datasets from generic HTTP(S) endpoints. It accepts
// either a single url or an ordered urls list, fetched strictly in order.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	logger    observability.Logger
	metrics   observability.Metrics
}

// NewHTTP creates a generic HTTP backend with the configured timeout and
// user agent.
func NewHTTP(deps Deps) (*HTTPDownloader, error) {
	deps = deps.normalize()
	return &HTTPDownloader{
		client:    &http.Client{Timeout: deps.Config.HTTP.Timeout},
		userAgent: deps.Config.HTTP.UserAgent,
		logger:    deps.Logger.WithFields(observability.Fields{"source": "http"}),
		metrics:   deps.Metrics,
	}, nil
}

// Download streams each target URL into the destination. Parameters: exactly
// one of url or urls (non-empty), plus optional filename and headers. An
// explicit or repeated filename gets a numeric suffix from the second target
// on; any non-2xx response aborts the whole batch.
func (d *HTTPDownloader) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	targets, err := normalizeURLs(opts.Params)
	if err != nil {
		return nil, err
	}
	filename := opts.Params.StringOr("filename", "")
	headers, err := opts.Params.StringMap("headers")
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

	var savedFiles []string
	for index, target := range targets {
		d.logger.Info(ctx, "downloading", observability.Fields{"url": target})

		name := pickName(filename, inferFilename(target), index+1)
		filePath := filepath.Join(destination, name)
		if err := d.streamToDisk(ctx, target, headers, filePath); err != nil {
			return nil, err
		}

		if opts.Extract {
			extracted, err := d.maybeExtract(ctx, filePath, destination, opts.KeepArchive)
			if err != nil {
				return nil, err
			}
			savedFiles = append(savedFiles, extracted...)
		} else {
			savedFiles = append(savedFiles, filePath)
		}
	}

	return &Result{
		DatasetPath: destination,
		Details: map[string]interface{}{
			"urls":  targets,
			"files": savedFiles,
		},
	}, nil
}

// normalizeURLs enforces the exactly-one-of url/urls contract before any
// network call.
func normalizeURLs(params Params) ([]string, error) {
	single, hasSingle := params.String("url")
	list, err := params.StringSlice("urls")
	if err != nil {
		return nil, err
	}

	if hasSingle && len(list) > 0 {
		return nil, configErrorf("http: provide either 'url' or 'urls', not both")
	}
	if hasSingle {
		return []string{single}, nil
	}
	if _, present := params["urls"]; present {
		var nonEmpty []string
		for _, item := range list {
			if item != "" {
				nonEmpty = append(nonEmpty, item)
			}
		}
		if len(nonEmpty) == 0 {
			return nil, configErrorf("http: no URLs provided")
		}
		return nonEmpty, nil
	}
	return nil, configErrorf("http: a URL is required")
}

// inferFilename derives a file name from the URL path component, defaulting
// to a generic name when absent.
func inferFilename(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return "download.bin"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "download.bin"
	}
	return name
}

// pickName disambiguates repeated or explicit filenames by appending a
// numeric suffix for the second and later targets.
func pickName(requested, inferred string, index int) string {
	name := inferred
	if strings.TrimSpace(requested) != "" {
		name = requested
	}
	if index == 1 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, index, ext)
}

func (d *HTTPDownloader) streamToDisk(ctx context.Context, target string, headers map[string]string, filePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return wrapTransport(err, "failed to create request for %s: %v", target, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return wrapTransport(err, "HTTP download failed for %s: %v", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpStatusError(resp, target)
	}

	written, err := streamToFile(resp.Body, filePath)
	if err != nil {
		return err
	}
	d.metrics.RecordBytes("http", written)
	return nil
}

// maybeExtract applies the shared extraction handling to a downloaded file
// already sitting inside the destination. Unrecognized formats are kept as
// opaque files with a warning rather than failing the download.
func (d *HTTPDownloader) maybeExtract(ctx context.Context, filePath, destination string, keepArchive bool) ([]string, error) {
	handled, files, err := extractCollapsed(filePath, destination, "")
	if err != nil {
		return nil, err
	}
	if !handled {
		d.logger.Warn(ctx, "extraction requested but payload is not a recognized archive", observability.Fields{
			"file": filePath,
		})
		return []string{filePath}, nil
	}
	if !keepArchive {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return files, wrapTransport(err, "failed to remove archive %s: %v", filePath, err)
		}
	} else {
		files = append(files, filePath)
	}
	return files, nil
}
