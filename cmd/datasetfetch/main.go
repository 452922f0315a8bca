// Package main provides the datasetfetch CLI.
//
// Usage:
//
//	datasetfetch download --source <key> [flags] [--param key=value ...]
//	datasetfetch sources
//
// Configuration is read from the environment (and .env files); flags
// override the computed destination per invocation.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"datasetfetch/config"
	"datasetfetch/download"
	"datasetfetch/observability"
)

var (
	flagSource      string
	flagName        string
	flagRoot        string
	flagOverwrite   bool
	flagExtract     bool
	flagKeepArchive bool
	flagParams      []string
)

var rootCmd = &cobra.Command{
	Use:           "datasetfetch",
	Short:         "Fetch datasets from remote and local sources into a common layout",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a dataset from the given source",
	Long: `Download a dataset from the given source into <root>/<name>.

Source-specific parameters are passed as repeated --param key=value flags.

Examples:
  datasetfetch download --source github --name squad --param repo=owner/name
  datasetfetch download --source hf --name squad --param repo_id=squad
  datasetfetch download --source http --name imgs --extract --param url=https://example.com/imgs.zip
  datasetfetch download --source s3 --name logs --param bucket=my-bucket --param key=logs/2024.tar.gz
  datasetfetch download --source local --name mirror --param source=~/datasets/mirror --param symlink=true`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(flagParams)
		if err != nil {
			return err
		}

		if err := config.Load(); err != nil {
			return err
		}
		cfg := config.MustGet()
		provider := observability.NewProvider(&observability.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
			LogLevel:    cfg.LogLevel,
		})

		registry := download.NewRegistry(download.Deps{
			Config:  cfg,
			Logger:  provider.Logger("cli"),
			Metrics: provider.Metrics("cli"),
		})

		result, err := registry.Download(cmd.Context(), download.Request{
			Source:      flagSource,
			DatasetName: flagName,
			TargetRoot:  flagRoot,
			Options: download.Options{
				Overwrite:   flagOverwrite,
				Extract:     flagExtract,
				KeepArchive: flagKeepArchive,
				Params:      params,
			},
		})
		if err != nil {
			return err
		}

		return printJSON(cmd, result.AsMap())
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List supported source keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, download.AvailableSources())
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&flagSource, "source", "s", "", "source key (see 'datasetfetch sources')")
	downloadCmd.Flags().StringVarP(&flagName, "name", "n", "", "dataset name, appended to the root directory")
	downloadCmd.Flags().StringVarP(&flagRoot, "root", "r", "", "target root directory (default: DATASETS_ROOT)")
	downloadCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "replace the destination if it already exists")
	downloadCmd.Flags().BoolVar(&flagExtract, "extract", false, "extract downloaded archives")
	downloadCmd.Flags().BoolVar(&flagKeepArchive, "keep-archive", false, "keep the archive file after extraction")
	downloadCmd.Flags().StringArrayVarP(&flagParams, "param", "p", nil, "source-specific parameter, key=value (repeatable)")
	_ = downloadCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// parseParams converts repeated key=value flags into a parameter bag.
// Comma-separated values become string lists so patterns and file filters
// stay expressible from the shell.
func parseParams(pairs []string) (download.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(download.Params, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		switch value {
		case "true":
			params[key] = true
		case "false":
			params[key] = false
		default:
			if strings.Contains(value, ",") {
				params[key] = strings.Split(value, ",")
			} else {
				params[key] = value
			}
		}
	}
	return params, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
