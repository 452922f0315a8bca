package download

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"datasetfetch/observability"
)

// KaggleDownloader shells out to the Kaggle CLI for dataset and competition
// downloads. The executable is discovered at construction time so a missing
// CLI fails before download is ever invoked.
type KaggleDownloader struct {
	executable string
	logger     observability.Logger
	metrics    observability.Metrics
}

// NewKaggle creates a Kaggle backend. KAGGLE_EXECUTABLE overrides PATH
// discovery.
func NewKaggle(deps Deps) (*KaggleDownloader, error) {
	deps = deps.normalize()

	executable := deps.Config.Kaggle.Executable
	if executable == "" {
		found, err := exec.LookPath("kaggle")
		if err != nil {
			return nil, configErrorf("kaggle CLI not found on PATH; install the 'kaggle' package and set up API credentials")
		}
		executable = found
	} else if _, err := exec.LookPath(executable); err != nil {
		return nil, configErrorf("kaggle CLI %q not found", executable)
	}

	return &KaggleDownloader{
		executable: executable,
		logger:     deps.Logger.WithFields(observability.Fields{"source": "kaggle"}),
		metrics:    deps.Metrics,
	}, nil
}

// Download runs the CLI against the destination. Parameters: exactly one of
// dataset or competition, plus optional files, unzip (default true) and
// extra_args. A non-zero exit surfaces the captured stderr/stdout text.
func (d *KaggleDownloader) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	dataset := opts.Params.StringOr("dataset", "")
	competition := opts.Params.StringOr("competition", "")
	if (dataset == "") == (competition == "") {
		return nil, configErrorf("kaggle: specify exactly one of 'dataset' or 'competition'")
	}
	files, err := opts.Params.StringSlice("files")
	if err != nil {
		return nil, err
	}
	extraArgs, err := opts.Params.StringSlice("extra_args")
	if err != nil {
		return nil, err
	}
	unzip := opts.Params.Bool("unzip", true)

	destination, err = absPath(destination)
	if err != nil {
		return nil, err
	}
	if err := ensureDestination(destination, opts.Overwrite); err != nil {
		return nil, err
	}

	args := buildKaggleArgs(dataset, competition, destination, unzip, files, extraArgs)
	command := append([]string{d.executable}, args...)
	d.logger.Info(ctx, "running Kaggle CLI", observability.Fields{
		"command": strings.Join(command, " "),
	})

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = strings.TrimSpace(stdout.String())
		}
		if message == "" {
			message = err.Error()
		}
		return nil, wrapTransport(err, "kaggle CLI failed: %s", message)
	}

	if unzip && !opts.KeepArchive {
		if err := removeResidualZips(destination); err != nil {
			return nil, err
		}
	}

	listed, err := listFiles(destination)
	if err != nil {
		return nil, err
	}
	_, fetchedBytes, err := inspectTree(destination)
	if err != nil {
		return nil, err
	}
	d.metrics.RecordBytes("kaggle", fetchedBytes)

	return &Result{
		DatasetPath: destination,
		Details: map[string]interface{}{
			"command":    command,
			"files":      listed,
			"file_count": len(listed),
		},
	}, nil
}

// buildKaggleArgs assembles the CLI argument list. The identifier goes last,
// matching the CLI's expectations.
func buildKaggleArgs(dataset, competition, destination string, unzip bool, files, extraArgs []string) []string {
	var args []string
	identifier := dataset
	if dataset != "" {
		args = append(args, "datasets", "download")
	} else {
		args = append(args, "competitions", "download")
		identifier = competition
	}
	args = append(args, "-p", destination)
	if unzip {
		args = append(args, "--unzip")
	}
	for _, file := range files {
		args = append(args, "-f", file)
	}
	args = append(args, extraArgs...)
	args = append(args, identifier)
	return args
}

// removeResidualZips clears archives the CLI leaves behind after --unzip.
func removeResidualZips(destination string) error {
	archives, err := filepath.Glob(filepath.Join(destination, "*.zip"))
	if err != nil {
		return wrapTransport(err, "failed to scan %s for archives: %v", destination, err)
	}
	for _, archive := range archives {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			return wrapTransport(err, "failed to remove archive %s: %v", archive, err)
		}
	}
	return nil
}

// listFiles returns the regular files in the destination's top level.
func listFiles(destination string) ([]string, error) {
	entries, err := os.ReadDir(destination)
	if err != nil {
		return nil, wrapTransport(err, "failed to list %s: %v", destination, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(destination, entry.Name()))
		}
	}
	return files, nil
}
