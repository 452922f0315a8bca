package config

// parse reads configuration from environment variables
func parse() (*Config, error) {
	cfg := &Config{
		// Core
		Environment:  getEnv("ENVIRONMENT", "local"),
		ServiceName:  getEnv("SERVICE_NAME", "datasetfetch"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatasetsRoot: getEnv("DATASETS_ROOT", "data"),

		// Generic HTTP backend
		HTTP: HTTPConfig{
			Timeout:   getDuration("HTTP_TIMEOUT", "120s"),
			UserAgent: getEnv("HTTP_USER_AGENT", "datasetfetch/1.0"),
		},

		// GitHub backend
		GitHub: GitHubConfig{
			APIRoot: getEnv("GITHUB_API_ROOT", "https://api.github.com"),
			Token:   getEnv("GITHUB_TOKEN", ""),
			Timeout: getDuration("GITHUB_TIMEOUT", "60s"),
		},

		// Google Drive backend
		Drive: DriveConfig{
			BaseURL: getEnv("GDRIVE_BASE_URL", "https://docs.google.com/uc"),
			Timeout: getDuration("GDRIVE_TIMEOUT", "120s"),
		},

		// S3 backend
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-2"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			ForcePathStyle:  getBool("S3_FORCE_PATH_STYLE", false),
			Timeout:         getDuration("S3_TIMEOUT", "120s"),
		},

		// Hugging Face backend
		HuggingFace: HuggingFaceConfig{
			Token:       getEnv("HF_TOKEN", ""),
			Concurrency: getInt("HF_CONCURRENCY", 4),
		},

		// Kaggle backend
		Kaggle: KaggleConfig{
			Executable: getEnv("KAGGLE_EXECUTABLE", ""),
		},
	}

	return cfg, nil
}
