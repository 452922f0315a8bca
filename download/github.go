package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"datasetfetch/observability"
)

// GitHubDownloader fetches datasets stored in GitHub repositories, either as
// a zipball of a ref or as a named release asset.
type GitHubDownloader struct {
	apiRoot string
	token   string
	client  *http.Client
	logger  observability.Logger
	metrics observability.Metrics
}

// NewGitHub creates a GitHub backend. The API root, default token and
// request timeout come from configuration.
func NewGitHub(deps Deps) (*GitHubDownloader, error) {
	deps = deps.normalize()
	return &GitHubDownloader{
		apiRoot: deps.Config.GitHub.APIRoot,
		token:   deps.Config.GitHub.Token,
		client:  &http.Client{Timeout: deps.Config.GitHub.Timeout},
		logger:  deps.Logger.WithFields(observability.Fields{"source": "github"}),
		metrics: deps.Metrics,
	}, nil
}

// Download fetches repo@ref as an archive, or a single release asset when
// release_tag is given. Parameters: repo (required), ref (default "main"),
// subdir, release_tag, asset_name, token.
func (d *GitHubDownloader) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	repo, err := opts.Params.Require("github", "repo")
	if err != nil {
		return nil, err
	}
	ref := opts.Params.StringOr("ref", "main")
	subdir := opts.Params.StringOr("subdir", "")
	releaseTag := opts.Params.StringOr("release_tag", "")
	assetName := opts.Params.StringOr("asset_name", "")
	token := opts.Params.StringOr("token", d.token)

	if releaseTag != "" && assetName == "" {
		return nil, configErrorf("github: asset_name is required when release_tag is provided")
	}

	destination, err = absPath(destination)
	if err != nil {
		return nil, err
	}
	if err := ensureDestination(destination, opts.Overwrite); err != nil {
		return nil, err
	}

	d.logger.Info(ctx, "downloading from GitHub", observability.Fields{
		"repo":        repo,
		"ref":         ref,
		"release_tag": releaseTag,
		"asset":       assetName,
		"destination": destination,
	})

	if releaseTag != "" {
		assetPath, err := d.downloadReleaseAsset(ctx, repo, releaseTag, assetName, token)
		if err != nil {
			return nil, err
		}
		return d.placeArchive(ctx, assetPath, destination, subdir, assetName, opts)
	}

	archivePath, err := d.downloadRepoArchive(ctx, repo, ref, token)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s-%s.zip", path.Base(repo), ref)
	return d.placeArchive(ctx, archivePath, destination, subdir, label, opts)
}

// downloadRepoArchive streams the zipball for repo@ref to a temporary file
// and returns its path.
func (d *GitHubDownloader) downloadRepoArchive(ctx context.Context, repo, ref, token string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/zipball/%s", d.apiRoot, repo, ref)
	d.logger.Debug(ctx, "fetching GitHub archive", observability.Fields{"url": url})

	resp, err := d.get(ctx, url, token, "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", httpStatusError(resp, url)
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("datasetfetch-gh-%s.zip", uuid.NewString()))
	written, err := streamToFile(resp.Body, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	d.metrics.RecordBytes("github", written)
	return tmpPath, nil
}

// downloadReleaseAsset resolves the release metadata for releaseTag, matches
// an asset by name and streams its binary to a temporary file.
func (d *GitHubDownloader) downloadReleaseAsset(ctx context.Context, repo, releaseTag, assetName, token string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", d.apiRoot, repo, releaseTag)
	d.logger.Debug(ctx, "resolving GitHub release", observability.Fields{"url": url})

	resp, err := d.get(ctx, url, token, "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return "", httpStatusError(resp, url)
	}

	var release struct {
		Assets []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"assets"`
	}
	err = json.NewDecoder(resp.Body).Decode(&release)
	resp.Body.Close()
	if err != nil {
		return "", wrapTransport(err, "failed to decode release metadata from %s: %v", url, err)
	}

	assetURL := ""
	for _, asset := range release.Assets {
		if asset.Name == assetName {
			assetURL = asset.URL
			break
		}
	}
	if assetURL == "" {
		return "", preconditionErrorf("asset %q not found in release %s", assetName, releaseTag)
	}

	d.logger.Debug(ctx, "downloading GitHub release asset", observability.Fields{"url": assetURL})
	assetResp, err := d.get(ctx, assetURL, token, "application/octet-stream")
	if err != nil {
		return "", err
	}
	defer assetResp.Body.Close()
	if assetResp.StatusCode < 200 || assetResp.StatusCode > 299 {
		return "", httpStatusError(assetResp, assetURL)
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("datasetfetch-gh-%s_%s", uuid.NewString(), assetName))
	written, err := streamToFile(assetResp.Body, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	d.metrics.RecordBytes("github", written)
	return tmpPath, nil
}

// placeArchive applies the shared extraction/single-root handling to a
// downloaded file sitting at a temporary path. Without extract the file is
// moved into the destination under archiveName. Unrecognized formats are
// moved in as opaque files.
func (d *GitHubDownloader) placeArchive(ctx context.Context, archivePath, destination, subdir, archiveName string, opts Options) (*Result, error) {
	defer os.Remove(archivePath)

	if !opts.Extract {
		finalPath := filepath.Join(destination, archiveName)
		if err := moveFile(archivePath, finalPath); err != nil {
			return nil, err
		}
		return &Result{
			DatasetPath: destination,
			Details: map[string]interface{}{
				"archive":   finalPath,
				"extracted": false,
			},
		}, nil
	}

	handled, _, err := extractCollapsed(archivePath, destination, subdir)
	if err != nil {
		return nil, err
	}
	if !handled {
		d.logger.Warn(ctx, "extraction requested but payload is not a recognized archive", observability.Fields{
			"archive": archiveName,
		})
		finalPath := filepath.Join(destination, archiveName)
		if err := moveFile(archivePath, finalPath); err != nil {
			return nil, err
		}
		return &Result{
			DatasetPath: destination,
			Details: map[string]interface{}{
				"files":     []string{finalPath},
				"extracted": false,
			},
		}, nil
	}

	details := map[string]interface{}{"extracted": true}
	if opts.KeepArchive {
		finalPath := filepath.Join(destination, archiveName)
		if err := moveFile(archivePath, finalPath); err != nil {
			return nil, err
		}
		details["archive"] = finalPath
	}
	return &Result{DatasetPath: destination, Details: details}, nil
}

// get issues a GET with the GitHub accept header and optional bearer token.
func (d *GitHubDownloader) get(ctx context.Context, url, token, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapTransport(err, "failed to create request for %s: %v", url, err)
	}
	req.Header.Set("Accept", accept)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, wrapTransport(err, "GitHub request to %s failed: %v", url, err)
	}
	return resp, nil
}
