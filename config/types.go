package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all framework configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string

	// DatasetsRoot is the default directory datasets are downloaded into
	// when a caller does not supply a target root. Created on first use.
	DatasetsRoot string

	// Component configurations
	HTTP        HTTPConfig
	GitHub      GitHubConfig
	Drive       DriveConfig
	S3          S3Config
	HuggingFace HuggingFaceConfig
	Kaggle      KaggleConfig
}

// HTTPConfig holds configuration for the generic HTTP backend
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// GitHubConfig holds configuration for the GitHub backend
type GitHubConfig struct {
	APIRoot string
	Token   string
	Timeout time.Duration
}

// DriveConfig holds configuration for the Google Drive backend
type DriveConfig struct {
	BaseURL string
	Timeout time.Duration
}

// S3Config holds configuration for the S3 backend
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Only for local development (LocalStack/MinIO)
	ForcePathStyle  bool   // Path-style addressing; implied by a custom endpoint
	Timeout         time.Duration
}

// HuggingFaceConfig holds configuration for the Hugging Face backend
type HuggingFaceConfig struct {
	Token       string
	Concurrency int
}

// KaggleConfig holds configuration for the Kaggle CLI backend
type KaggleConfig struct {
	// Executable overrides CLI discovery on PATH. Useful in tests.
	Executable string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	if c.DatasetsRoot == "" {
		errors = append(errors, "DATASETS_ROOT must not be empty")
	}
	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.GitHub.Timeout <= 0 {
		errors = append(errors, "GITHUB_TIMEOUT must be positive")
	}
	if c.Drive.Timeout <= 0 {
		errors = append(errors, "GDRIVE_TIMEOUT must be positive")
	}
	if c.GitHub.APIRoot == "" {
		errors = append(errors, "GITHUB_API_ROOT must not be empty")
	}
	if c.Drive.BaseURL == "" {
		errors = append(errors, "GDRIVE_BASE_URL must not be empty")
	}
	if c.HuggingFace.Concurrency <= 0 {
		errors = append(errors, "HF_CONCURRENCY must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// IsProduction reports whether the configured environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
